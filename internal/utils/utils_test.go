package utils

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestTruncateForLog(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		input  string
		limit  int
		expect string
	}{
		"non-positive limit": {input: "Senior Go Engineer", limit: 0, expect: ""},
		"fits":               {input: "Senior Go", limit: 20, expect: "Senior Go"},
		"cut with ellipsis":  {input: "Senior Go Engineer", limit: 6, expect: "Senior..."},
		"multi-line prompt":  {input: "INPUT DATA:\n\n## Job Posting\n  Go  ", limit: 40, expect: "INPUT DATA: ## Job Posting Go"},
		"runes, not bytes":   {input: "Straße München", limit: 6, expect: "Straße..."},
		"only whitespace":    {input: " \n\t ", limit: 5, expect: ""},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if got := TruncateForLog(tt.input, tt.limit); got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}

func TestWaitFor(t *testing.T) {
	if err := WaitFor(context.Background(), 0); err != nil {
		t.Fatalf("zero duration: unexpected error: %v", err)
	}

	if err := WaitFor(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("short wait: unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := WaitFor(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if err := WaitFor(ctx, 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled for zero duration on a done context, got %v", err)
	}
}
