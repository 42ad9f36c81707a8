package shared

import (
	"bytes"
	"testing"

	"github.com/charmbracelet/log"
)

func TestGenerateID(t *testing.T) {
	id := GenerateID()
	if id == "" {
		t.Fatal("expected non-empty id")
	}

	other := GenerateID()
	if id == other {
		t.Error("expected unique ids")
	}
}

func TestGenerateState(t *testing.T) {
	state, err := GenerateState()
	if err != nil {
		t.Fatalf("failed to generate state: %v", err)
	}

	if len(state) != 32 {
		t.Errorf("expected 32 hex chars, got %d", len(state))
	}

	other, err := GenerateState()
	if err != nil {
		t.Fatalf("failed to generate state: %v", err)
	}
	if state == other {
		t.Error("expected unique state tokens")
	}
}

func TestLogger(t *testing.T) {
	t.Run("NewLogger writes to provided writer", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger := NewLogger(buf)
		logger.Info("hello")

		if buf.Len() == 0 {
			t.Error("expected log output")
		}
	})

	t.Run("WithLogger adds fields", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger := WithLogger(NewLogger(buf), "component", "test")
		logger.Info("hello")

		if !bytes.Contains(buf.Bytes(), []byte("component")) {
			t.Error("expected component field in output")
		}
	})

	t.Run("SetLogLevel filters output", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger := NewLogger(buf)
		SetLogLevel(logger, log.ErrorLevel)
		logger.Info("quiet")

		if buf.Len() != 0 {
			t.Errorf("expected no output below error level, got %q", buf.String())
		}
	})
}
