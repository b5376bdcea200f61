package embeddings

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// CircuitState is the state of a provider's circuit breaker.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	// CircuitHalfOpen admits a single trial request after the open period.
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// CircuitBreaker stops calls to a provider after consecutive failures.
// Sentence batches embed concurrently, so once the open period ends only one
// trial request is let through; the rest keep skipping the provider until
// the trial settles.
type CircuitBreaker struct {
	mu sync.Mutex

	threshold  int
	resetAfter time.Duration

	state               CircuitState
	consecutiveFailures int
	openUntil           time.Time
	trialInFlight       bool

	now    func() time.Time
	logger *zerolog.Logger
}

// NewCircuitBreaker creates a closed circuit breaker.
func NewCircuitBreaker(cfg CircuitBreakerConfig, logger *zerolog.Logger) *CircuitBreaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = defaultCircuitThreshold
	}

	return &CircuitBreaker{
		threshold:  cfg.Threshold,
		resetAfter: cfg.ResetAfter,
		now:        time.Now,
		logger:     logger,
	}
}

// CanAttempt reports whether a call may go to the provider. When the open
// period has elapsed the first caller gets the half-open trial.
func (cb *CircuitBreaker) CanAttempt() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return true
	case CircuitOpen:
		if cb.now().Before(cb.openUntil) {
			return false
		}

		cb.state = CircuitHalfOpen
		cb.trialInFlight = true

		return true
	default:
		if cb.trialInFlight {
			return false
		}

		cb.trialInFlight = true

		return true
	}
}

// RecordSuccess closes the circuit.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = CircuitClosed
	cb.consecutiveFailures = 0
	cb.trialInFlight = false
}

// RecordFailure counts a failed call. The circuit opens at the threshold,
// or immediately when the half-open trial fails.
func (cb *CircuitBreaker) RecordFailure(providerName ProviderName) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFailures++
	cb.trialInFlight = false

	if cb.state != CircuitHalfOpen && cb.consecutiveFailures < cb.threshold {
		return
	}

	cb.state = CircuitOpen
	cb.openUntil = cb.now().Add(cb.resetAfter)

	if cb.logger != nil {
		cb.logger.Warn().
			Str(logKeyProvider, string(providerName)).
			Int("consecutive_failures", cb.consecutiveFailures).
			Time("open_until", cb.openUntil).
			Msg("embedding circuit breaker opened")
	}
}

// IsOpen reports whether calls are currently blocked by an unexpired open period.
func (cb *CircuitBreaker) IsOpen() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return cb.state == CircuitOpen && cb.now().Before(cb.openUntil)
}

// State returns the current state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return cb.state
}

// Reset closes the circuit and clears the failure count.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = CircuitClosed
	cb.consecutiveFailures = 0
	cb.openUntil = time.Time{}
	cb.trialInFlight = false
}
