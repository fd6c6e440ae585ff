// Package session runs the Pomodoro cycle and fires the matching preset alert
// whenever a phase ends.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/focusflow/focusflow/internal/logging"
	"github.com/focusflow/focusflow/internal/notify"
)

// Phase is the part of the cycle currently running.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseWork       Phase = "work"
	PhaseShortBreak Phase = "short_break"
	PhaseLongBreak  Phase = "long_break"
)

// Dispatcher is the part of the notification manager the cycle needs.
type Dispatcher interface {
	WorkComplete(ctx context.Context) (*notify.ActiveAlert, error)
	BreakComplete(ctx context.Context) (*notify.ActiveAlert, error)
	LongBreakComplete(ctx context.Context) (*notify.ActiveAlert, error)
}

// Config holds phase lengths. Zero values fall back to the classic 25/5/15
// minutes with a long break after every fourth work phase.
type Config struct {
	Work           time.Duration
	ShortBreak     time.Duration
	LongBreak      time.Duration
	LongBreakEvery int
}

func (c Config) withDefaults() Config {
	if c.Work <= 0 {
		c.Work = 25 * time.Minute
	}
	if c.ShortBreak <= 0 {
		c.ShortBreak = 5 * time.Minute
	}
	if c.LongBreak <= 0 {
		c.LongBreak = 15 * time.Minute
	}
	if c.LongBreakEvery <= 0 {
		c.LongBreakEvery = 4
	}
	return c
}

// Status is a snapshot of the cycle.
type Status struct {
	Running       bool      `json:"running"`
	Phase         Phase     `json:"phase"`
	CompletedWork int       `json:"completed_work"`
	StartedAt     time.Time `json:"started_at,omitempty"`
	EndsAt        time.Time `json:"ends_at,omitempty"`
}

// ErrRunning is returned by Start while a cycle is already running.
var ErrRunning = errors.New("session already running")

// Session drives the cycle on a notify.Clock.
type Session struct {
	cfg      Config
	notifier Dispatcher
	clock    notify.Clock

	mu        sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
	timer     notify.Timer
	run       uint64
	gen       uint64
	phase     Phase
	completed int
	startedAt time.Time
	endsAt    time.Time
}

// New creates an idle session. A nil clock uses the wall clock.
func New(cfg Config, d Dispatcher, clock notify.Clock) *Session {
	if clock == nil {
		clock = notify.SystemClock
	}
	return &Session{cfg: cfg.withDefaults(), notifier: d, clock: clock, phase: PhaseIdle}
}

// Start begins a work phase. The cycle keeps running until Stop is called or
// ctx ends.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseIdle {
		return ErrRunning
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.run++
	s.completed = 0
	s.enterLocked(PhaseWork)
	logging.Get().Info().Dur("work", s.cfg.Work).Dur("short_break", s.cfg.ShortBreak).
		Dur("long_break", s.cfg.LongBreak).Msg("focus session started")

	go func(ctx context.Context, run uint64) {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.run == run && s.phase != PhaseIdle {
			s.stopLocked()
		}
	}(s.ctx, s.run)
	return nil
}

// Stop ends the cycle without firing an alert. Stopping an idle session is a
// no-op.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseIdle {
		return
	}
	s.stopLocked()
	logging.Get().Info().Int("completed_work", s.completed).Msg("focus session stopped")
}

// Status reports the current phase and its deadline.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{Running: s.phase != PhaseIdle, Phase: s.phase, CompletedWork: s.completed}
	if st.Running {
		st.StartedAt = s.startedAt
		st.EndsAt = s.endsAt
	}
	return st
}

func (s *Session) stopLocked() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.phase = PhaseIdle
}

func (s *Session) enterLocked(p Phase) {
	s.gen++
	gen := s.gen
	d := s.durationOf(p)
	s.phase = p
	s.startedAt = s.clock.Now()
	s.endsAt = s.startedAt.Add(d)
	s.timer = s.clock.AfterFunc(d, func() { s.phaseEnded(gen) })
}

func (s *Session) durationOf(p Phase) time.Duration {
	switch p {
	case PhaseShortBreak:
		return s.cfg.ShortBreak
	case PhaseLongBreak:
		return s.cfg.LongBreak
	}
	return s.cfg.Work
}

// phaseEnded moves to the next phase before alerting so a slow or failing
// notification never holds the cycle back.
func (s *Session) phaseEnded(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.phase == PhaseIdle {
		s.mu.Unlock()
		return
	}
	ended := s.phase
	var next Phase
	switch ended {
	case PhaseWork:
		s.completed++
		next = PhaseShortBreak
		if s.completed%s.cfg.LongBreakEvery == 0 {
			next = PhaseLongBreak
		}
	default:
		next = PhaseWork
	}
	s.enterLocked(next)
	ctx := s.ctx
	completed := s.completed
	s.mu.Unlock()

	logging.Get().Info().Str("ended", string(ended)).Str("next", string(next)).
		Int("completed_work", completed).Msg("session phase complete")
	s.alert(ctx, ended)
}

func (s *Session) alert(ctx context.Context, ended Phase) {
	if s.notifier == nil {
		return
	}
	var err error
	switch ended {
	case PhaseWork:
		_, err = s.notifier.WorkComplete(ctx)
	case PhaseShortBreak:
		_, err = s.notifier.BreakComplete(ctx)
	case PhaseLongBreak:
		_, err = s.notifier.LongBreakComplete(ctx)
	}
	switch {
	case err == nil:
	case errors.Is(err, notify.ErrSuppressed):
		logging.Get().Debug().Str("phase", string(ended)).Msg("phase alert suppressed")
	default:
		logging.Get().Warn().Err(err).Str("phase", string(ended)).Msg("phase alert not shown")
	}
}
