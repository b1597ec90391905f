package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNew_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "info", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Info("hello", "account_id", "acct-1")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected JSON output, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "hello" {
		t.Errorf("Expected msg hello, got %v", entry["msg"])
	}
	if entry["account_id"] != "acct-1" {
		t.Errorf("Expected account_id attribute, got %v", entry["account_id"])
	}
}

func TestNew_TextOutput(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "info", Format: "text", Writer: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Info("hello")
	if !strings.Contains(buf.String(), "msg=hello") {
		t.Errorf("Expected text output, got %q", buf.String())
	}
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "warn", Writer: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Info("suppressed")
	if buf.Len() != 0 {
		t.Errorf("Expected info suppressed at warn level, got %q", buf.String())
	}

	logger.Warn("emitted")
	if buf.Len() == 0 {
		t.Error("Expected warn to be emitted")
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	if _, err := New(Config{Level: "loud"}); err == nil {
		t.Error("Expected error for unknown level")
	}
	if _, err := New(Config{Format: "xml"}); err == nil {
		t.Error("Expected error for unknown format")
	}
}

func TestNew_Defaults(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Writer: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Debug("suppressed")
	if buf.Len() != 0 {
		t.Error("Expected debug suppressed at default info level")
	}

	logger.Info("emitted")
	if !json.Valid(buf.Bytes()) {
		t.Errorf("Expected JSON by default, got %q", buf.String())
	}
}
