package config

import "testing"

func TestLoadRetrievalDefaults(t *testing.T) {
	t.Setenv("RETRIEVAL_MODE", "")
	t.Setenv("RETRIEVAL_TOP_K", "")
	t.Setenv("RERANK_TOP_N", "")
	t.Setenv("HALLUCINATION_CHECK", "")

	cfg := Load()
	if cfg.RetrievalMode != "multi" {
		t.Fatalf("expected default retrieval mode multi, got %q", cfg.RetrievalMode)
	}
	if cfg.RetrievalTopK != 5 {
		t.Fatalf("expected default top k 5, got %d", cfg.RetrievalTopK)
	}
	if cfg.RerankTopN != 5 {
		t.Fatalf("expected default rerank top n 5, got %d", cfg.RerankTopN)
	}
	if !cfg.HallucinationCheck {
		t.Fatalf("expected hallucination check on by default")
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("RETRIEVAL_MODE", "cosine")
	t.Setenv("RETRIEVAL_TOP_K", "10")
	t.Setenv("RATE_LIMIT_PER_SECOND", "2.5")
	t.Setenv("HALLUCINATION_CHECK", "false")

	cfg := Load()
	if cfg.RetrievalMode != "cosine" {
		t.Fatalf("expected retrieval mode override, got %q", cfg.RetrievalMode)
	}
	if cfg.RetrievalTopK != 10 {
		t.Fatalf("expected top k 10, got %d", cfg.RetrievalTopK)
	}
	if cfg.RateLimitPerSecond != 2.5 {
		t.Fatalf("expected rate limit 2.5, got %f", cfg.RateLimitPerSecond)
	}
	if cfg.HallucinationCheck {
		t.Fatalf("expected hallucination check off")
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("RETRIEVAL_TOP_K", "many")
	t.Setenv("RATE_LIMIT_PER_SECOND", "fast")

	cfg := Load()
	if cfg.RetrievalTopK != 5 {
		t.Fatalf("expected fallback top k 5, got %d", cfg.RetrievalTopK)
	}
	if cfg.RateLimitPerSecond != 5 {
		t.Fatalf("expected fallback rate limit 5, got %f", cfg.RateLimitPerSecond)
	}
}
