package services

import "time"

const (
	// GraceFromCancelMinutes uses the target's cancel_minutes as no-show grace.
	GraceFromCancelMinutes = "cancel_minutes"
	// GraceFixed uses Policy.NoShowGrace for every resource.
	GraceFixed = "fixed"
)

// MaxMinutes caps every minute-valued input so windows and deadlines stay
// representable as time.Duration.
const MaxMinutes = 24 * 60

func tooLong(field string, n int) error {
	if n > MaxMinutes {
		return &ValidationError{Field: field, Reason: "must not exceed 1440 minutes"}
	}
	return nil
}

type Policy struct {
	DefaultBookMinutes    int
	DefaultTimeoutMinutes int
	NoShowGraceMode       string
	NoShowGrace           time.Duration
	MaxRetries            int
}

func DefaultPolicy() Policy {
	return Policy{
		DefaultBookMinutes:    90,
		DefaultTimeoutMinutes: 15,
		NoShowGraceMode:       GraceFromCancelMinutes,
		NoShowGrace:           15 * time.Minute,
		MaxRetries:            5,
	}
}

func (p Policy) noShowGrace(cancelMinutes int) time.Duration {
	if p.NoShowGraceMode == GraceFixed {
		return p.NoShowGrace
	}
	return time.Duration(cancelMinutes) * time.Minute
}

func (p Policy) retries() int {
	if p.MaxRetries < 1 {
		return 1
	}
	return p.MaxRetries
}

func (p Policy) bookMinutes() int {
	if p.DefaultBookMinutes > 0 {
		return p.DefaultBookMinutes
	}
	return 90
}

func (p Policy) timeoutMinutes() int {
	if p.DefaultTimeoutMinutes > 0 {
		return p.DefaultTimeoutMinutes
	}
	return 15
}
