package resilience

import (
	"testing"
	"time"
)

func BenchmarkBackoff_Delay(b *testing.B) {
	backoff := NewBackoff(BackoffConfig{BaseDelay: time.Second, MaxDelay: time.Hour})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = backoff.Delay(i % 32)
	}
}

func BenchmarkBackoff_DelayWithJitter(b *testing.B) {
	backoff := NewBackoff(BackoffConfig{BaseDelay: time.Second, MaxDelay: time.Hour})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = backoff.DelayWithJitter(i % 32)
	}
}

func BenchmarkBreaker_RecordOutcome(b *testing.B) {
	breaker := NewBreaker(BreakerConfig{FailureThreshold: 1 << 30})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if i%2 == 0 {
			breaker.RecordFailure()
		} else {
			breaker.RecordSuccess()
		}
	}
}

func BenchmarkRetryPolicy_ShouldRetry(b *testing.B) {
	policy := NewHumanRetryPolicy(RetryPolicyConfig{})
	err := errTimeout

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = policy.ShouldRetry(i%4, err)
	}
}

var errTimeout = &benchErr{}

type benchErr struct{}

func (*benchErr) Error() string { return "TIMEOUT waiting for responder" }
