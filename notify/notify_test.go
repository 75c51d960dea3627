package notify

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestMulti_DeliversToEverySinkAndJoinsErrors(t *testing.T) {
	a, b := &Recorder{}, &Recorder{Err: errors.New("b down")}
	c := &Recorder{Err: errors.New("c down")}
	m := Multi{a, nil, b, c}

	err := m.Notify(context.Background(), Notification{Kind: ReservationCreated, ReservationID: "r1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b down")
	assert.Contains(t, err.Error(), "c down")
	for _, r := range []*Recorder{a, b, c} {
		assert.Equal(t, []Kind{ReservationCreated}, r.Kinds())
	}
}

func TestAsync_DrainsOnClose(t *testing.T) {
	rec := &Recorder{}
	a := NewAsync(rec, quietLogger(), 16)
	for i := 0; i < 10; i++ {
		require.NoError(t, a.Notify(context.Background(), Notification{Kind: ReservationConfirmed}))
	}
	a.Close()
	assert.Len(t, rec.All(), 10)

	// after close it is a silent no-op
	assert.NoError(t, a.Notify(context.Background(), Notification{Kind: ReservationConfirmed}))
	assert.Len(t, rec.All(), 10)
	a.Close()
}

func TestAsync_DropsWhenFull(t *testing.T) {
	release := make(chan struct{})
	var once sync.Once
	started := make(chan struct{})
	blocking := NotifierFunc(func(context.Context, Notification) error {
		once.Do(func() { close(started) })
		<-release
		return nil
	})

	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	a := NewAsync(blocking, log, 1)

	require.NoError(t, a.Notify(context.Background(), Notification{Kind: ReservationCreated}))
	<-started // worker holds the first one
	require.NoError(t, a.Notify(context.Background(), Notification{Kind: ReservationCreated}))
	require.NoError(t, a.Notify(context.Background(), Notification{Kind: ReservationCreated}))

	close(release)
	a.Close()
	assert.Contains(t, buf.String(), "notification queue full")
}

func TestAsync_LogsSinkFailure(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	a := NewAsync(&Recorder{Err: errors.New("smtp down")}, log, 4)
	require.NoError(t, a.Notify(context.Background(), Notification{Kind: ReservationNoShow}))
	a.Close()
	assert.Contains(t, buf.String(), "smtp down")
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetFormatter(&logrus.JSONFormatter{})

	err := Logger{Log: log}.Notify(context.Background(), Notification{
		Kind:          ReservationExpired,
		ReservationID: "r9",
		OccurredAt:    time.Now(),
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"kind":"reservation_expired"`)
	assert.Contains(t, buf.String(), `"reservation_id":"r9"`)
}
