package resilience

import "time"

type Config struct {
	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration

	BreakerEnabled          bool
	BreakerFailureThreshold uint32
	BreakerRecoveryTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		RetryMaxAttempts: 3,
		RetryBaseDelay:   1 * time.Second,
		RetryMaxDelay:    60 * time.Second,

		BreakerEnabled:          true,
		BreakerFailureThreshold: 5,
		BreakerRecoveryTimeout:  60 * time.Second,
	}
}

func (c Config) normalize() Config {
	out := c
	def := DefaultConfig()

	if out.RetryMaxAttempts <= 0 {
		out.RetryMaxAttempts = def.RetryMaxAttempts
	}
	if out.RetryBaseDelay <= 0 {
		out.RetryBaseDelay = def.RetryBaseDelay
	}
	if out.RetryMaxDelay < out.RetryBaseDelay {
		out.RetryMaxDelay = out.RetryBaseDelay
	}

	if out.BreakerFailureThreshold == 0 {
		out.BreakerFailureThreshold = def.BreakerFailureThreshold
	}
	if out.BreakerRecoveryTimeout <= 0 {
		out.BreakerRecoveryTimeout = def.BreakerRecoveryTimeout
	}

	return out
}
