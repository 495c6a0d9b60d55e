// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package compass

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/relabs-tech/web_compass/internal/motion"
	"github.com/relabs-tech/web_compass/internal/orientation"
)

type job struct {
	fn   func(*Session)
	done chan struct{}
}

// Runner serializes all access to a Session on one goroutine and drives its
// calibration timer. Sensor callbacks from any goroutine go through Do.
type Runner struct {
	session *Session
	clk     clock.Clock
	jobs    chan job
}

// NewRunner wraps s. clk must be the clock the session was created with;
// nil means the wall clock.
func NewRunner(s *Session, clk clock.Clock) *Runner {
	if clk == nil {
		clk = clock.New()
	}
	return &Runner{session: s, clk: clk, jobs: make(chan job, 64)}
}

// Do runs fn on the session goroutine and waits for it to finish.
func (r *Runner) Do(ctx context.Context, fn func(*Session)) error {
	j := job{fn: fn, done: make(chan struct{})}
	select {
	case r.jobs <- j:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-j.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Orientation queues an orientation sample.
func (r *Runner) Orientation(ctx context.Context, s orientation.Sample) error {
	return r.Do(ctx, func(sess *Session) { sess.HandleOrientation(s) })
}

// Motion queues a motion sample.
func (r *Runner) Motion(ctx context.Context, s motion.Sample) error {
	return r.Do(ctx, func(sess *Session) { sess.HandleMotion(s) })
}

// Run processes jobs and calibration wake-ups until ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	var (
		timer   *clock.Timer
		wake    <-chan time.Time
		armedAt time.Time
	)
	stop := func() {
		if timer != nil {
			timer.Stop()
		}
		timer, wake, armedAt = nil, nil, time.Time{}
	}
	rearm := func() {
		for {
			at, ok := r.session.NextWake()
			if !ok {
				stop()
				return
			}
			if timer != nil && at.Equal(armedAt) {
				return
			}
			stop()
			d := at.Sub(r.clk.Now())
			if d <= 0 {
				// already due
				r.session.Tick()
				continue
			}
			timer = r.clk.Timer(d)
			wake, armedAt = timer.C, at
			return
		}
	}
	defer stop()

	rearm()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case j := <-r.jobs:
			j.fn(r.session)
			rearm()
			close(j.done)
		case <-wake:
			timer, wake, armedAt = nil, nil, time.Time{}
			r.session.Tick()
			rearm()
		}
	}
}
