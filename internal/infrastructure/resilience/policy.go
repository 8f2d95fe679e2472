package resilience

import "time"

// Config sets the retry budget and breaker thresholds for one executor.
// Zero values are filled from DefaultConfig by normalize.
type Config struct {
	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	RetryMultiplier     float64

	BreakerEnabled          bool
	BreakerMinRequests      uint32
	BreakerFailureRatio     float64
	BreakerOpenTimeout      time.Duration
	BreakerHalfOpenMaxCalls uint32
}

func DefaultConfig() Config {
	return Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 100 * time.Millisecond,
		RetryMaxBackoff:     400 * time.Millisecond,
		RetryMultiplier:     2.0,

		BreakerEnabled:          true,
		BreakerMinRequests:      10,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      30 * time.Second,
		BreakerHalfOpenMaxCalls: 2,
	}
}

// SearchConfig is tuned for the Stage S fan-out: each query already runs
// under a stage timeout of a few seconds and a failed query degrades to
// the other queries' results, so retries stay short and the breaker needs
// little evidence before shedding a dead search backend.
func SearchConfig() Config {
	cfg := DefaultConfig()
	cfg.RetryMaxAttempts = 2
	cfg.RetryInitialBackoff = 50 * time.Millisecond
	cfg.RetryMaxBackoff = 150 * time.Millisecond
	cfg.BreakerMinRequests = 6
	cfg.BreakerOpenTimeout = 15 * time.Second
	return cfg
}

// LLMConfig is tuned for chat and embedding calls: a synthesis request is
// expensive to repeat and the model host recovers slowly, so retries back
// off further and the breaker stays open longer.
func LLMConfig() Config {
	cfg := DefaultConfig()
	cfg.RetryMaxAttempts = 2
	cfg.RetryInitialBackoff = 500 * time.Millisecond
	cfg.RetryMaxBackoff = 2 * time.Second
	cfg.BreakerMinRequests = 5
	cfg.BreakerOpenTimeout = 45 * time.Second
	return cfg
}

// PublishConfig is tuned for the NATS event sink: publishes are
// fire-and-forget, so the budget is a quick second attempt and a breaker
// that tolerates the occasional reconnect window.
func PublishConfig() Config {
	cfg := DefaultConfig()
	cfg.RetryMaxAttempts = 2
	cfg.RetryInitialBackoff = 25 * time.Millisecond
	cfg.RetryMaxBackoff = 100 * time.Millisecond
	cfg.BreakerMinRequests = 20
	cfg.BreakerOpenTimeout = 10 * time.Second
	return cfg
}

func (c Config) normalize() Config {
	out := c
	def := DefaultConfig()

	if out.RetryMaxAttempts <= 0 {
		out.RetryMaxAttempts = def.RetryMaxAttempts
	}
	if out.RetryInitialBackoff <= 0 {
		out.RetryInitialBackoff = def.RetryInitialBackoff
	}
	if out.RetryMaxBackoff <= 0 {
		out.RetryMaxBackoff = def.RetryMaxBackoff
	}
	if out.RetryMaxBackoff < out.RetryInitialBackoff {
		out.RetryMaxBackoff = out.RetryInitialBackoff
	}
	if out.RetryMultiplier < 1.0 {
		out.RetryMultiplier = def.RetryMultiplier
	}

	if out.BreakerMinRequests == 0 {
		out.BreakerMinRequests = def.BreakerMinRequests
	}
	if out.BreakerFailureRatio <= 0 || out.BreakerFailureRatio > 1 {
		out.BreakerFailureRatio = def.BreakerFailureRatio
	}
	if out.BreakerOpenTimeout <= 0 {
		out.BreakerOpenTimeout = def.BreakerOpenTimeout
	}
	if out.BreakerHalfOpenMaxCalls == 0 {
		out.BreakerHalfOpenMaxCalls = def.BreakerHalfOpenMaxCalls
	}

	return out
}
