package services

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/table-reservation/models"
)

const sweepLeaseKey = "reservation:expiry-sweep"

// ExpiryScheduler periodically expires pending reservations whose deadline
// passed. All state lives in the ledger, so a restarted process simply picks
// up where the last sweep stopped.
type ExpiryScheduler struct {
	Booking   *BookingService
	Interval  time.Duration
	BatchSize int
	// AutoNoShowAfter, when positive, also marks confirmed reservations as
	// no-show once they are this late and their grace period elapsed.
	AutoNoShowAfter time.Duration
	// Lease lets only one replica sweep at a time. Nil means always sweep.
	Lease Lease
	Log   logrus.FieldLogger

	StopChan chan struct{}
	wg       sync.WaitGroup
}

type SweepResult struct {
	Expired  int
	NoShows  int
	Skipped  int
	Failures int
}

func NewExpiryScheduler(booking *BookingService) *ExpiryScheduler {
	return &ExpiryScheduler{
		Booking:   booking,
		Interval:  30 * time.Second,
		BatchSize: 100,
		Log:       booking.Log,
		StopChan:  make(chan struct{}),
	}
}

// Run sweeps immediately and then on every tick until ctx is done.
func (s *ExpiryScheduler) Run(ctx context.Context) error {
	t := time.NewTicker(s.Interval)
	defer t.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			s.tick(ctx)
		}
	}
}

// Start runs the scheduler in the background until Stop is called.
func (s *ExpiryScheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_ = s.Run(ctx)
	}()
	go func() {
		<-s.StopChan
		cancel()
	}()
}

func (s *ExpiryScheduler) Stop() {
	close(s.StopChan)
	s.wg.Wait()
}

func (s *ExpiryScheduler) tick(ctx context.Context) {
	if s.Lease != nil {
		ok, err := s.Lease.Acquire(ctx, sweepLeaseKey, s.leaseTTL())
		if err != nil {
			s.Log.WithError(err).Warn("sweep lease unavailable, sweeping anyway")
		} else if !ok {
			return
		} else {
			defer func() {
				if err := s.Lease.Release(context.Background(), sweepLeaseKey); err != nil {
					s.Log.WithError(err).Warn("sweep lease release failed")
				}
			}()
		}
	}

	res, err := s.Sweep(ctx)
	if err != nil && ctx.Err() == nil {
		s.Log.WithError(err).Error("expiry sweep failed")
		return
	}
	if res.Expired > 0 || res.NoShows > 0 || res.Failures > 0 {
		s.Log.WithFields(logrus.Fields{
			"expired":  res.Expired,
			"no_shows": res.NoShows,
			"failures": res.Failures,
		}).Info("expiry sweep finished")
	}
}

func (s *ExpiryScheduler) leaseTTL() time.Duration {
	if s.Interval*2 > time.Minute {
		return s.Interval * 2
	}
	return time.Minute
}

// Sweep performs one pass. It stops between reservations when ctx ends and
// logs, then skips, any reservation it cannot move.
func (s *ExpiryScheduler) Sweep(ctx context.Context) (SweepResult, error) {
	var out SweepResult
	if err := s.sweepExpired(ctx, &out); err != nil {
		return out, err
	}
	if s.AutoNoShowAfter > 0 {
		if err := s.sweepNoShows(ctx, &out); err != nil {
			return out, err
		}
	}
	return out, nil
}

func (s *ExpiryScheduler) batch() int {
	if s.BatchSize <= 0 {
		return 100
	}
	return s.BatchSize
}

func (s *ExpiryScheduler) sweepExpired(ctx context.Context, out *SweepResult) error {
	failed := map[string]bool{}
	for {
		now := s.Booking.now()
		var due []models.Reservation
		q := s.Booking.DB.WithContext(ctx).
			Select("id").
			Where("status = ? AND expires_at <= ?", models.ReservationPending, now)
		if len(failed) > 0 {
			q = q.Where("id NOT IN ?", mapKeys(failed))
		}
		if err := q.Order("expires_at ASC").Limit(s.batch()).Find(&due).Error; err != nil {
			return err
		}
		if len(due) == 0 {
			return nil
		}

		for _, r := range due {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := s.Booking.Expire(ctx, r.ID)
			switch {
			case err != nil:
				failed[r.ID] = true
				out.Failures++
				s.Log.WithError(err).WithField("reservation_id", r.ID).Warn("could not expire reservation")
			case res == nil:
				out.Skipped++
			default:
				out.Expired++
			}
		}
		if len(due) < s.batch() {
			return nil
		}
	}
}

func (s *ExpiryScheduler) sweepNoShows(ctx context.Context, out *SweepResult) error {
	cutoff := s.Booking.now().Add(-s.AutoNoShowAfter)
	skipped := map[string]bool{}
	for {
		var late []models.Reservation
		q := s.Booking.DB.WithContext(ctx).
			Select("id").
			Where("status = ? AND reservation_time <= ?", models.ReservationConfirmed, cutoff)
		if len(skipped) > 0 {
			q = q.Where("id NOT IN ?", mapKeys(skipped))
		}
		if err := q.Order("reservation_time ASC").Limit(s.batch()).Find(&late).Error; err != nil {
			return err
		}
		if len(late) == 0 {
			return nil
		}

		for _, r := range late {
			if err := ctx.Err(); err != nil {
				return err
			}
			// still inside its own grace period, or lost a race with staff
			if _, err := s.Booking.MarkNoShow(ctx, SystemActor, r.ID); err != nil {
				skipped[r.ID] = true
				out.Skipped++
				s.Log.WithError(err).WithField("reservation_id", r.ID).Debug("no-show skipped")
				continue
			}
			out.NoShows++
		}
		if len(late) < s.batch() {
			return nil
		}
	}
}

func mapKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
