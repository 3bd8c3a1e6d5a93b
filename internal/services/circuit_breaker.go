package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrCircuitOpen is returned without calling the wrapped function while the breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerState represents the current state of the circuit breaker
type CircuitBreakerState int

const (
	Closed CircuitBreakerState = iota
	Open
	HalfOpen
)

func (s CircuitBreakerState) String() string {
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

// CircuitBreakerConfig holds configuration for the circuit breaker
type CircuitBreakerConfig struct {
	FailureThreshold int           `json:"failure_threshold"` // consecutive failures before opening
	SuccessThreshold int           `json:"success_threshold"` // half-open successes before closing
	Timeout          time.Duration `json:"timeout"`           // open duration before probing
	MaxRequests      int           `json:"max_requests"`      // concurrent trial calls in half-open
	ResetTimeout     time.Duration `json:"reset_timeout"`     // quiet period that clears the failure count

	// IsFailure decides whether an error counts against the breaker. Nil counts every error.
	IsFailure func(error) bool `json:"-"`
}

// CircuitBreakerStats holds statistics for the circuit breaker
type CircuitBreakerStats struct {
	TotalRequests      int64     `json:"total_requests"`
	SuccessfulRequests int64     `json:"successful_requests"`
	FailedRequests     int64     `json:"failed_requests"`
	RejectedRequests   int64     `json:"rejected_requests"`
	LastFailureTime    time.Time `json:"last_failure_time"`
	LastSuccessTime    time.Time `json:"last_success_time"`
	StateChanges       int64     `json:"state_changes"`
}

// CircuitBreaker guards calls to an upstream provider. The wrapped function
// runs outside the lock so concurrent fetches are not serialised.
type CircuitBreaker struct {
	name            string
	config          CircuitBreakerConfig
	logger          *logrus.Logger
	now             func() time.Time
	mu              sync.Mutex
	state           CircuitBreakerState
	failureCount    int
	successCount    int
	inFlight        int
	lastFailureTime time.Time
	lastStateChange time.Time
	stats           CircuitBreakerStats
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(name string, config CircuitBreakerConfig, logger *logrus.Logger) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 2
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxRequests <= 0 {
		config.MaxRequests = 1
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = 5 * time.Minute
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &CircuitBreaker{
		name:            name,
		config:          config,
		logger:          logger,
		now:             time.Now,
		state:           Closed,
		lastStateChange: time.Now(),
	}
}

// Execute runs fn with circuit breaker protection.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	state, ok := cb.acquire()
	if !ok {
		cb.logger.WithFields(logrus.Fields{
			"circuit_breaker": cb.name,
			"state":           state.String(),
		}).Warn("Circuit breaker is open, rejecting request")
		return ErrCircuitOpen
	}

	start := cb.now()
	err := fn(ctx)
	cb.release(state, err, cb.now().Sub(start))
	return err
}

func (cb *CircuitBreaker) acquire() (CircuitBreakerState, bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.stats.TotalRequests++
	now := cb.now()

	switch cb.state {
	case Closed:
		if cb.failureCount > 0 && now.Sub(cb.lastFailureTime) > cb.config.ResetTimeout {
			cb.failureCount = 0
		}
	case Open:
		if now.Sub(cb.lastStateChange) < cb.config.Timeout {
			cb.stats.RejectedRequests++
			return Open, false
		}
		cb.setState(HalfOpen)
		cb.successCount = 0
		cb.inFlight = 0
		fallthrough
	case HalfOpen:
		if cb.inFlight >= cb.config.MaxRequests {
			cb.stats.RejectedRequests++
			return HalfOpen, false
		}
	}

	cb.inFlight++
	return cb.state, true
}

func (cb *CircuitBreaker) release(startedIn CircuitBreakerState, err error, duration time.Duration) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.inFlight > 0 {
		cb.inFlight--
	}

	if err != nil && (cb.config.IsFailure == nil || cb.config.IsFailure(err)) {
		cb.onFailure(startedIn, err, duration)
		return
	}
	cb.onSuccess(startedIn, duration)
}

func (cb *CircuitBreaker) onSuccess(startedIn CircuitBreakerState, duration time.Duration) {
	cb.stats.SuccessfulRequests++
	cb.stats.LastSuccessTime = cb.now()

	switch cb.state {
	case Closed:
		cb.failureCount = 0
	case HalfOpen:
		if startedIn != HalfOpen {
			break
		}
		cb.successCount++
		if cb.successCount >= cb.config.SuccessThreshold {
			cb.setState(Closed)
			cb.failureCount = 0
			cb.successCount = 0
		}
	}

	cb.logger.WithFields(logrus.Fields{
		"circuit_breaker": cb.name,
		"state":           cb.state.String(),
		"duration_ms":     duration.Milliseconds(),
	}).Debug("Circuit breaker: successful execution")
}

func (cb *CircuitBreaker) onFailure(startedIn CircuitBreakerState, err error, duration time.Duration) {
	now := cb.now()
	cb.stats.FailedRequests++
	cb.stats.LastFailureTime = now
	cb.lastFailureTime = now

	switch cb.state {
	case Closed:
		cb.failureCount++
		if cb.failureCount >= cb.config.FailureThreshold {
			cb.setState(Open)
		}
	case HalfOpen:
		if startedIn == HalfOpen {
			cb.failureCount++
			cb.successCount = 0
			cb.setState(Open)
		}
	}

	cb.logger.WithFields(logrus.Fields{
		"circuit_breaker": cb.name,
		"state":           cb.state.String(),
		"error":           err.Error(),
		"duration_ms":     duration.Milliseconds(),
		"failure_count":   cb.failureCount,
	}).Warn("Circuit breaker: failed execution")
}

func (cb *CircuitBreaker) setState(newState CircuitBreakerState) {
	if cb.state == newState {
		return
	}
	oldState := cb.state
	cb.state = newState
	cb.lastStateChange = cb.now()
	cb.stats.StateChanges++

	cb.logger.WithFields(logrus.Fields{
		"circuit_breaker": cb.name,
		"old_state":       oldState.String(),
		"new_state":       newState.String(),
		"failure_count":   cb.failureCount,
	}).Info("Circuit breaker state changed")
}

// GetState returns the current state of the circuit breaker
func (cb *CircuitBreaker) GetState() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// GetStats returns the current statistics
func (cb *CircuitBreaker) GetStats() CircuitBreakerStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.stats
}

func (cb *CircuitBreaker) IsOpen() bool {
	return cb.GetState() == Open
}

// Reset manually resets the circuit breaker to closed state
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.setState(Closed)
	cb.failureCount = 0
	cb.successCount = 0
	cb.inFlight = 0

	cb.logger.WithField("circuit_breaker", cb.name).Info("Circuit breaker manually reset")
}
