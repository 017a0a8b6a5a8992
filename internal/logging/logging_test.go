package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func captureLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, nil))
}

func TestResolvePrefersContextLogger(t *testing.T) {
	t.Parallel()

	var fromCtx, fallback bytes.Buffer
	ctx := ContextWithLogger(context.Background(), captureLogger(&fromCtx))

	Resolve(ctx, captureLogger(&fallback)).Info("hello")
	if fromCtx.Len() == 0 || fallback.Len() != 0 {
		t.Fatalf("expected the context logger to win, ctx=%q fallback=%q", fromCtx.String(), fallback.String())
	}

	Resolve(context.Background(), captureLogger(&fallback)).Info("hello")
	if fallback.Len() == 0 {
		t.Fatal("expected the fallback logger without a context logger")
	}

	if got := Resolve(context.Background(), nil); got != slog.Default() {
		t.Fatal("expected slog.Default as the last resort")
	}
}

func TestScopedAddsRoleAndOperation(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	Scoped(context.Background(), captureLogger(&buf), "service", "roster", "Publish", "week", "2024-01-07@UTC").Info("done")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode log record: %v", err)
	}
	for key, want := range map[string]string{"service": "roster", "operation": "Publish", "week": "2024-01-07@UTC"} {
		if record[key] != want {
			t.Errorf("expected %s=%q, got %v", key, want, record[key])
		}
	}
}

func TestContextWithLoggerIgnoresNil(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if got := ContextWithLogger(ctx, nil); got != ctx {
		t.Fatal("expected the original context for a nil logger")
	}
	if FromContext(ctx) != nil {
		t.Fatal("expected no logger on a bare context")
	}
	Discard().Info("dropped")
}
