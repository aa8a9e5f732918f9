package sanitize

import (
	"strings"
	"testing"
)

func TestRedactPII(t *testing.T) {
	in := "Call me on +254 712 345 678 or write to jane.doe@example.com."
	out := RedactPII(in)
	if strings.Contains(out, "712 345 678") || strings.Contains(out, "example.com") {
		t.Fatalf("contact info leaked: %q", out)
	}
	if !strings.Contains(out, "[redacted phone]") || !strings.Contains(out, "[redacted email]") {
		t.Fatalf("markers missing: %q", out)
	}
}

func TestRedactPII_LeavesCaseNumbersAlone(t *testing.T) {
	in := "Case HC/2024/118 is still open."
	if out := RedactPII(in); out != in {
		t.Fatalf("short digit runs must survive: %q", out)
	}
}

func TestSummary(t *testing.T) {
	if got := Summary("short", 50); got != "short" {
		t.Fatalf("short text must pass through, got %q", got)
	}
	long := strings.Repeat("word ", 30)
	got := Summary(long, 40)
	if len(got) > 44 {
		t.Fatalf("summary too long: %d", len(got))
	}
	if !strings.HasSuffix(got, "…") {
		t.Fatalf("truncated text needs an ellipsis: %q", got)
	}
}
