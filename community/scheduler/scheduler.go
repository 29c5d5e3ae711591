/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package scheduler runs the agent jobs on cron schedules, each tick in its
// own process.
package scheduler

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/robfig/cron/v3"
)

// Job is a named command run on a five-field cron schedule.
type Job struct {
	Name string
	Spec string

	schedule cron.Schedule
}

// Runner runs one job to completion.
type Runner interface {
	Run(ctx context.Context, job string) error
}

// ExecRunner runs "<Executable> <job>" with the scheduler's environment and
// output streams.
type ExecRunner struct {
	// Executable defaults to the running binary.
	Executable string
	// Env is appended to the inherited environment, as KEY=value.
	Env []string
}

// Run implements Runner.
func (r ExecRunner) Run(ctx context.Context, job string) error {
	exe := r.Executable
	if exe == "" {
		self, err := os.Executable()
		if err != nil {
			return fmt.Errorf("locating executable: %w", err)
		}
		exe = self
	}
	cmd := exec.CommandContext(ctx, exe, job)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(), r.Env...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("running %s %s: %w", exe, job, err)
	}
	return nil
}

// Scheduler fires jobs on their schedules. Jobs are independent of each
// other; a job still running when its next tick arrives skips that tick.
type Scheduler struct {
	runner Runner
	jobs   []Job
}

// New validates the schedules of jobs.
func New(runner Runner, jobs ...Job) (*Scheduler, error) {
	s := &Scheduler{runner: runner}
	for _, j := range jobs {
		sched, err := cron.ParseStandard(j.Spec)
		if err != nil {
			return nil, fmt.Errorf("parsing schedule %q of %s: %w", j.Spec, j.Name, err)
		}
		j.schedule = sched
		s.jobs = append(s.jobs, j)
	}
	return s, nil
}

// Jobs returns the scheduled jobs.
func (s *Scheduler) Jobs() []Job {
	return s.jobs
}

// Next returns the next activation of each job after t, keyed by name.
func (s *Scheduler) Next(t time.Time) map[string]time.Time {
	next := make(map[string]time.Time, len(s.jobs))
	for _, j := range s.jobs {
		next[j.Name] = j.schedule.Next(t)
	}
	return next
}

// Run starts the schedules and blocks until ctx is cancelled. It then
// waits for running jobs to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	log := clog.FromContext(ctx)
	logger := cronLogger{ctx: ctx}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	for _, j := range s.jobs {
		c.Schedule(j.schedule, cron.FuncJob(func() { s.RunJob(ctx, j.Name) }))
		log.With("job", j.Name, "schedule", j.Spec).Info("Scheduled job")
	}

	c.Start()
	<-ctx.Done()
	log.Info("Stopping scheduler")
	<-c.Stop().Done()
	return nil
}

// RunJob runs one job now. Failures are logged and never propagate.
func (s *Scheduler) RunJob(ctx context.Context, name string) {
	log := clog.FromContext(ctx).With("job", name)
	log.Info("Running job")
	start := time.Now()
	if err := s.runner.Run(ctx, name); err != nil {
		log.With("error", err, "duration", time.Since(start)).Error("Job failed")
		return
	}
	log.With("duration", time.Since(start)).Info("Job finished")
}

// cronLogger routes cron's own messages to the context logger.
type cronLogger struct {
	ctx context.Context
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	clog.FromContext(l.ctx).With(keysAndValues...).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	clog.FromContext(l.ctx).With(append(keysAndValues, "error", err)...).Error(msg)
}
