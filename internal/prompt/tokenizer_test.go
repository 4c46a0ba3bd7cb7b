package prompt

import "testing"

func newTokenizer(t *testing.T) *Tokenizer {
	t.Helper()
	tok, err := NewTokenizer()
	if err != nil {
		t.Skipf("tokenizer unavailable: %v", err)
	}
	return tok
}

func TestTokenizer_Count(t *testing.T) {
	tok := newTokenizer(t)
	if count := tok.Count("Hello, world!"); count <= 0 {
		t.Errorf("expected positive token count, got %d", count)
	}
	if count := tok.Count(""); count != 0 {
		t.Errorf("expected 0 tokens for empty string, got %d", count)
	}
}

func TestTokenizer_Truncate(t *testing.T) {
	tok := newTokenizer(t)

	long := "This is a fairly long string that should have more than five tokens in total."
	truncated := tok.Truncate(long, 5)
	if len(truncated) >= len(long) {
		t.Error("truncated string should be shorter than original")
	}
	if n := tok.Count(truncated); n > 5 {
		t.Errorf("truncated to 5 tokens but Count says %d", n)
	}

	if got := tok.Truncate("Hi", 100); got != "Hi" {
		t.Errorf("short string should not be truncated: got %q", got)
	}
	if got := tok.Truncate("Hi", 0); got != "" {
		t.Errorf("zero budget should yield empty string, got %q", got)
	}
}
