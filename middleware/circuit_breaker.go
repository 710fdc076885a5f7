package middleware

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shrek82/jrest/core"
	"github.com/shrek82/jrest/logger"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// CircuitBreakerMiddleware rejects queries with ErrCircuitOpen after
// Threshold consecutive failures, until ResetTimeout has passed. Then a
// single trial query is let through; its outcome closes or reopens the circuit.
type CircuitBreakerMiddleware struct {
	Threshold    int           // Number of consecutive failures before opening
	ResetTimeout time.Duration // Time to wait before half-open
	// IsFailure decides which errors count. Cancellations by the caller do not by default.
	IsFailure func(err error) bool

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool
	now      func() time.Time
	logger   logger.Logger
}

func NewCircuitBreaker(threshold int, resetTimeout time.Duration) *CircuitBreakerMiddleware {
	return &CircuitBreakerMiddleware{
		Threshold:    threshold,
		ResetTimeout: resetTimeout,
		IsFailure:    isFailure,
		state:        StateClosed,
		now:          time.Now,
		logger:       logger.Default,
	}
}

func isFailure(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled)
}

func (m *CircuitBreakerMiddleware) Name() string {
	return "CircuitBreaker"
}

func (m *CircuitBreakerMiddleware) Init(db *core.DB) error {
	m.logger = db.Logger()
	return nil
}

func (m *CircuitBreakerMiddleware) Shutdown() error {
	return nil
}

// State returns the current state of the circuit.
func (m *CircuitBreakerMiddleware) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *CircuitBreakerMiddleware) Process(ctx context.Context, query *core.Query, next core.QueryFunc) (*core.Result, error) {
	if !m.allow() {
		return nil, ErrCircuitOpen
	}

	res, err := next(ctx, query)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.IsFailure(err) {
		m.recordFailure()
	} else {
		m.recordSuccess()
	}
	return res, err
}

func (m *CircuitBreakerMiddleware) allow() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case StateOpen:
		if m.now().Sub(m.openedAt) < m.ResetTimeout {
			return false
		}
		m.transition(StateHalfOpen)
		m.probing = true
	case StateHalfOpen:
		// One trial at a time.
		if m.probing {
			return false
		}
		m.probing = true
	}
	return true
}

func (m *CircuitBreakerMiddleware) recordFailure() {
	m.failures++
	switch m.state {
	case StateClosed:
		if m.failures >= m.Threshold {
			m.open()
		}
	case StateHalfOpen:
		m.open()
	}
}

func (m *CircuitBreakerMiddleware) recordSuccess() {
	// Closed counts consecutive failures only.
	m.failures = 0
	if m.state == StateHalfOpen {
		m.transition(StateClosed)
		m.probing = false
	}
}

func (m *CircuitBreakerMiddleware) open() {
	m.openedAt = m.now()
	m.probing = false
	m.transition(StateOpen)
}

func (m *CircuitBreakerMiddleware) transition(s State) {
	if m.state == s {
		return
	}
	m.logger.Warn("circuit breaker %s -> %s after %d failures", m.state, s, m.failures)
	m.state = s
}
