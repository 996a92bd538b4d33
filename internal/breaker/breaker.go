// v0
// breaker.go
package breaker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// State is one of the three circuit states a Breaker can be in.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned by Execute when the breaker fast-fails instead of
// attempting the operation.
var ErrOpen = errors.New("circuit breaker is open; fast-fail")

// Config holds a breaker's tunables; New fills in defaults for fields left
// at zero. cmd/commentwatch builds it in code rather than reading it from
// the .properties file.
type Config struct {
	MaxFailures      int
	ResetTimeout     time.Duration
	SuccessesToClose int
}

// Breaker wraps an operation with consecutive-failure tripping and a
// reset-timeout probe, so a flaky external dependency degrades into
// fast-failed calls instead of hanging the caller.
type Breaker struct {
	name   string
	cfg    Config
	logger *slog.Logger
	probe  func(ctx context.Context) error

	mu          sync.Mutex
	state       State
	recentFails int
	openedAt    time.Time
}

// New creates a Breaker named for logging purposes. probe, if non-nil, is
// called once before the first post-open operation is retried; a failing
// probe keeps the breaker Open without attempting op.
func New(name string, cfg Config, logger *slog.Logger, probe func(ctx context.Context) error) *Breaker {
	if cfg.MaxFailures < 1 {
		cfg.MaxFailures = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.SuccessesToClose < 1 {
		cfg.SuccessesToClose = 1
	}
	b := &Breaker{name: name, cfg: cfg, logger: logger, probe: probe, state: Closed}
	b.logger.Info("breaker_created", "name", name, "maxFailures", cfg.MaxFailures, "resetTimeout", cfg.ResetTimeout.String())
	return b
}

// Execute runs op unless the breaker is open and the reset timeout has not
// elapsed, in which case it returns ErrOpen without calling op.
func (b *Breaker) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	b.mu.Lock()
	state := b.state
	openedAt := b.openedAt
	b.mu.Unlock()

	if state == Open {
		if time.Since(openedAt) < b.cfg.ResetTimeout {
			b.logger.Warn("breaker_fast_fail", "name", b.name, "since_open", time.Since(openedAt).String())
			return ErrOpen
		}
		return b.tryProbeThenOp(ctx, op)
	}

	if err := op(ctx); err != nil {
		b.onFailure(err)
		b.mu.Lock()
		isOpen := b.state == Open
		b.mu.Unlock()
		if isOpen {
			return ErrOpen
		}
		return err
	}
	b.onSuccess()
	return nil
}

func (b *Breaker) tryProbeThenOp(ctx context.Context, op func(ctx context.Context) error) error {
	b.mu.Lock()
	b.state = HalfOpen
	b.mu.Unlock()
	b.logger.Info("breaker_probe_start", "name", b.name)

	if b.probe != nil {
		if err := b.probe(ctx); err != nil {
			b.logger.Warn("breaker_probe_failed", "name", b.name, "error", err.Error())
			b.reopen()
			return ErrOpen
		}
	}

	if err := op(ctx); err != nil {
		b.logger.Warn("breaker_halfopen_op_failed", "name", b.name, "error", err.Error())
		b.reopen()
		return err
	}

	b.mu.Lock()
	b.state = Closed
	b.recentFails = 0
	b.mu.Unlock()
	b.logger.Info("breaker_closed_after_probe", "name", b.name)
	return nil
}

func (b *Breaker) reopen() {
	b.mu.Lock()
	b.state = Open
	b.openedAt = time.Now()
	b.recentFails++
	b.mu.Unlock()
}

func (b *Breaker) onSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != Closed {
		b.logger.Info("breaker_state_to_closed", "name", b.name, "from", b.state.String())
	}
	b.state = Closed
	b.recentFails = 0
}

func (b *Breaker) onFailure(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.recentFails++
	b.logger.Warn("operation_failure", "name", b.name, "failures", b.recentFails, "error", err.Error())
	if b.recentFails >= b.cfg.MaxFailures {
		b.state = Open
		b.openedAt = time.Now()
		b.logger.Error("breaker_opened", "name", b.name, "maxFailures", b.cfg.MaxFailures)
	}
}

// State reports the breaker's current state, mainly for the status API.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
