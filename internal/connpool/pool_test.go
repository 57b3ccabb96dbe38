package connpool

import "testing"

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	if cfg.MaxConns != 10 {
		t.Fatalf("expected default MaxConns 10, got %d", cfg.MaxConns)
	}
	if cfg.Retry.MaxAttempts != DefaultRetryPolicy().MaxAttempts {
		t.Fatalf("expected default retry policy to be applied")
	}
	if cfg.ConnectTimeout <= 0 {
		t.Fatalf("expected a positive default connect timeout")
	}
}

func TestConfigWithDefaultsPreservesOverrides(t *testing.T) {
	cfg := Config{MaxConns: 42}.withDefaults()
	if cfg.MaxConns != 42 {
		t.Fatalf("expected explicit MaxConns to be preserved, got %d", cfg.MaxConns)
	}
}

func TestDefaultRetryPolicyShape(t *testing.T) {
	p := DefaultRetryPolicy()
	if p.MaxAttempts <= 0 || p.BackoffFactor <= 1 || p.InitialDelay <= 0 {
		t.Fatalf("unexpected retry policy shape: %+v", p)
	}
}
