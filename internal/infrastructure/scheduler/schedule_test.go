package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntervalSchedule(t *testing.T) {
	s := NewIntervalSchedule(10 * time.Minute)
	at := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, at.Add(10*time.Minute), s.Next(at))
	assert.Equal(t, "@every 10m0s", s.String())
}

func TestDailyAtSchedule(t *testing.T) {
	s := NewDailyAtSchedule(8, 0, time.UTC)

	// Before 08:00 fires the same day.
	at := time.Date(2026, 3, 10, 6, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC), s.Next(at))

	// Exactly 08:00 fires tomorrow (strictly after).
	at = time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 11, 8, 0, 0, 0, time.UTC), s.Next(at))

	// After 08:00 fires tomorrow.
	at = time.Date(2026, 3, 10, 22, 15, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 11, 8, 0, 0, 0, time.UTC), s.Next(at))

	assert.Equal(t, "@daily 08:00 UTC", s.String())
}

func TestDailyAtSchedule_MidnightLock(t *testing.T) {
	// The midnight lock schedule: one minute past midnight fires next midnight.
	s := NewDailyAtSchedule(0, 0, time.UTC)
	at := time.Date(2026, 3, 10, 0, 1, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), s.Next(at))
}

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULER
// ══════════════════════════════════════════════════════════════════════════════

type fakeJob struct {
	name string
	runs chan struct{}
	err  error
}

func (j *fakeJob) Name() string        { return j.name }
func (j *fakeJob) Description() string { return "test job" }
func (j *fakeJob) Run(ctx context.Context) error {
	select {
	case j.runs <- struct{}{}:
	default:
	}
	return j.err
}

func TestScheduler_RegisterValidation(t *testing.T) {
	s := New(Config{})
	schedule := NewIntervalSchedule(time.Hour)
	job := &fakeJob{name: "sweep", runs: make(chan struct{}, 1)}

	assert.ErrorIs(t, s.Register(nil, schedule), ErrNilJob)
	assert.ErrorIs(t, s.Register(job, nil), ErrNilSchedule)

	require.NoError(t, s.Register(job, schedule))
	assert.ErrorIs(t, s.Register(job, schedule), ErrJobAlreadyExists)
}

func TestScheduler_StartStop(t *testing.T) {
	s := New(Config{})
	require.NoError(t, s.Register(&fakeJob{name: "sweep", runs: make(chan struct{}, 1)}, NewIntervalSchedule(time.Hour)))

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	assert.ErrorIs(t, s.Start(context.Background()), ErrSchedulerAlreadyRunning)

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
	assert.ErrorIs(t, s.Stop(), ErrSchedulerNotRunning)
}

func TestScheduler_RunNow(t *testing.T) {
	s := New(Config{})
	job := &fakeJob{name: "sweep", runs: make(chan struct{}, 1)}
	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Hour)))

	res, err := s.RunNow(context.Background(), "sweep")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Len(t, job.runs, 1)

	last, ok := s.LastRun("sweep")
	require.True(t, ok)
	assert.Equal(t, "sweep", last.JobName)

	_, err = s.RunNow(context.Background(), "unknown")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestScheduler_RunNowRecordsFailure(t *testing.T) {
	s := New(Config{})
	boom := errors.New("boom")
	job := &fakeJob{name: "sweep", runs: make(chan struct{}, 1), err: boom}
	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Hour)))

	res, err := s.RunNow(context.Background(), "sweep")
	assert.ErrorIs(t, err, boom)
	assert.False(t, res.Success)

	last, ok := s.LastRun("sweep")
	require.True(t, ok)
	assert.False(t, last.Success)
}

func TestScheduler_EnableDisable(t *testing.T) {
	s := New(Config{})
	require.NoError(t, s.Register(&fakeJob{name: "sweep", runs: make(chan struct{}, 1)}, NewIntervalSchedule(time.Hour)))

	require.NoError(t, s.DisableJob("sweep"))
	require.NoError(t, s.EnableJob("sweep"))
	assert.ErrorIs(t, s.DisableJob("unknown"), ErrJobNotFound)
}
