package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNew_ProdIsJSONAtInfo(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := newLogger(&buf, "prod", "")
	log.Debug("hidden")
	log.Info("shown", "user_id", 7)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("want one line, got %q", buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("not json: %v", err)
	}
	if rec["msg"] != "shown" || rec["service"] != service || rec["user_id"] != float64(7) {
		t.Fatalf("unexpected record %v", rec)
	}
}

func TestNew_LevelOverride(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := newLogger(&buf, "dev", "warn")
	log.Info("hidden")
	log.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "msg=shown") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestNew_BadLevelKeepsDefault(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	newLogger(&buf, "dev", "loud").Debug("kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Fatalf("dev default should log debug, got %q", buf.String())
	}
}
