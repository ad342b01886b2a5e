package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentum-hub/progression-engine/internal/domain/shared"
)

type countingJob struct {
	name string
	runs int
	err  error
}

func (j *countingJob) Name() string        { return j.name }
func (j *countingJob) Description() string { return "test job" }
func (j *countingJob) Run(ctx context.Context) error {
	j.runs++
	return j.err
}

func newTestScheduler(clock shared.Clock) *Scheduler {
	cfg := DefaultConfig()
	cfg.Clock = clock
	return New(cfg)
}

func TestRegister_RejectsDuplicates(t *testing.T) {
	s := newTestScheduler(shared.SystemClock{})
	job := &countingJob{name: "a"}

	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Second)))
	err := s.Register(job, NewIntervalSchedule(time.Second))
	assert.ErrorIs(t, err, ErrJobAlreadyExists)
}

func TestRegister_NilChecks(t *testing.T) {
	s := newTestScheduler(shared.SystemClock{})
	assert.ErrorIs(t, s.Register(nil, NewIntervalSchedule(time.Second)), ErrNilJob)
	assert.ErrorIs(t, s.Register(&countingJob{name: "a"}, nil), ErrNilSchedule)
}

func TestPoll_RunsDueJobsOnVirtualTime(t *testing.T) {
	clock := shared.NewFakeClock(time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC))
	s := newTestScheduler(clock)
	job := &countingJob{name: "tick"}

	require.NoError(t, s.Register(job, NewIntervalSchedule(30*time.Second)))

	// Not due yet.
	s.Poll(context.Background())
	assert.Zero(t, job.runs)

	clock.Advance(30 * time.Second)
	s.Poll(context.Background())
	assert.Equal(t, 1, job.runs)

	// Same instant: schedule moved forward, no double fire.
	s.Poll(context.Background())
	assert.Equal(t, 1, job.runs)

	clock.Advance(30 * time.Second)
	s.Poll(context.Background())
	assert.Equal(t, 2, job.runs)
}

func TestPoll_SkipsDisabledJobs(t *testing.T) {
	clock := shared.NewFakeClock(time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC))
	s := newTestScheduler(clock)
	job := &countingJob{name: "tick"}

	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Second)))
	require.NoError(t, s.DisableJob("tick"))

	clock.Advance(time.Minute)
	s.Poll(context.Background())
	assert.Zero(t, job.runs)

	require.NoError(t, s.EnableJob("tick"))
	clock.Advance(2 * time.Second)
	s.Poll(context.Background())
	assert.Equal(t, 1, job.runs)
}

func TestRunNow_IgnoresSchedule(t *testing.T) {
	s := newTestScheduler(shared.SystemClock{})
	job := &countingJob{name: "manual"}
	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Hour)))

	result, err := s.RunNow(context.Background(), "manual")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, job.runs)

	_, err = s.RunNow(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestRunNow_RecordsFailure(t *testing.T) {
	s := newTestScheduler(shared.SystemClock{})
	job := &countingJob{name: "failing", err: errors.New("boom")}
	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Hour)))

	result, err := s.RunNow(context.Background(), "failing")
	require.NoError(t, err)
	assert.False(t, result.Success)

	infos := s.ListJobs()
	require.Len(t, infos, 1)
	assert.Equal(t, int64(1), infos[0].FailCount)
}

func TestStartStop_Lifecycle(t *testing.T) {
	s := newTestScheduler(shared.SystemClock{})

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	assert.ErrorIs(t, s.Start(context.Background()), ErrSchedulerAlreadyRunning)

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
	assert.ErrorIs(t, s.Stop(), ErrSchedulerNotRunning)
}

func TestMidnightSchedule_NextIsLocalMidnight(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Almaty")
	require.NoError(t, err)

	sched := NewMidnightSchedule(loc)
	now := time.Date(2024, 6, 15, 23, 30, 0, 0, loc)
	next := sched.Next(now)

	assert.Equal(t, time.Date(2024, 6, 16, 0, 0, 0, 0, loc), next)
}
