package policy

import (
	"strings"
	"testing"
)

func TestRedactPII(t *testing.T) {
	input := "Email me at sam@example.com or +1 (555) 123-9876 and use 4242 4242 4242 4242."
	out, changed := RedactPII(input)
	if !changed {
		t.Fatalf("changed = false, want true")
	}
	for _, marker := range []string{"[REDACTED_EMAIL]", "[REDACTED_PHONE]", "[REDACTED_CARD]"} {
		if !strings.Contains(out, marker) {
			t.Fatalf("output missing marker %q: %q", marker, out)
		}
	}
}

func TestRedactPIITrackingCode(t *testing.T) {
	out, changed := RedactPII("where is parcel RA123456789CN")
	if !changed {
		t.Fatalf("changed = false, want true")
	}
	if out != "where is parcel [REDACTED_TRACKING]" {
		t.Fatalf("output = %q", out)
	}
}

func TestRedactPIILeavesProductQuestionsAlone(t *testing.T) {
	for _, q := range []string{
		"what are the specs of Smartphone Y",
		"is the laptop pro in stock",
		"price of 2 wireless earbuds",
	} {
		out, changed := RedactPII(q)
		if changed || out != q {
			t.Fatalf("RedactPII(%q) = %q, %v", q, out, changed)
		}
	}
}

func TestLogSafeTruncates(t *testing.T) {
	long := strings.Repeat("a", MaxLoggedQueryRunes+50)
	got := LogSafe(long)
	if want := strings.Repeat("a", MaxLoggedQueryRunes) + "..."; got != want {
		t.Fatalf("LogSafe() len = %d, want %d", len(got), len(want))
	}
	if got := LogSafe("call me on 1 555 1239876"); got != "call me on [REDACTED_PHONE]" {
		t.Fatalf("LogSafe() = %q", got)
	}
}
