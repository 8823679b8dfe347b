package logger

import (
	"context"
	"errors"
	"testing"
)

func TestLoggerInit(t *testing.T) {
	err := Init()
	if err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}
	if CurrentLevel() != "info" {
		t.Fatalf("expected info level, got %s", CurrentLevel())
	}
}

func TestLoggerBasic(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	ctx := WithRequestID(context.Background(), "req-1")
	l := Get()
	l.Info(ctx, "test message", String("k", "v"), Int("n", 1), Float64("f", 1.5), Bool("b", true))
	l.Debug(ctx, "hidden at info")
	l.Warn(ctx, "warned", Any("m", map[string]int{"a": 1}))
	l.Error(ctx, "failed", Error(errors.New("boom")))
}

func TestLoggerNamed(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	namedLogger := Named("test")
	if namedLogger == nil {
		t.Fatal("named logger is nil")
	}
	namedLogger.Info(context.Background(), "test message")
}

func TestSetLevelString(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	cases := map[string]string{
		"debug":   "debug",
		"WARNING": "warn",
		" error ": "error",
		"":        "info",
	}
	for in, want := range cases {
		if err := SetLevelString(in); err != nil {
			t.Fatalf("SetLevelString(%q): %v", in, err)
		}
		if got := CurrentLevel(); got != want {
			t.Fatalf("SetLevelString(%q): level %s, want %s", in, got, want)
		}
	}

	if err := SetLevelString("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestNop(t *testing.T) {
	l := NewNop().Named("quiet")
	l.Info(context.Background(), "discarded")
}
