package env

import "testing"

func TestGetFallsBackWhenUnset(t *testing.T) {
	if got := Get("LOKAPASAR_TEST_UNSET", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback got %q", got)
	}
}

func TestGetReturnsSetValue(t *testing.T) {
	t.Setenv("LOKAPASAR_TEST_SET", "value")
	if got := Get("LOKAPASAR_TEST_SET", "fallback"); got != "value" {
		t.Fatalf("expected value got %q", got)
	}
}

func TestGetTreatsBlankAsUnset(t *testing.T) {
	t.Setenv("LOKAPASAR_TEST_BLANK", "   ")
	if got := Get("LOKAPASAR_TEST_BLANK", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback got %q", got)
	}
}
