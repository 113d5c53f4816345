package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Kblack0610/clickytheclicker/internal/model"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "scenario.json")
	script := &model.Script{
		Actions: []model.Action{
			{Kind: model.KindClickText, Text: "Resume", Required: true,
				OnFailure: &model.RecoverySpec{
					Strategy: "wait",
					Params:   model.RecoveryParams{MaxRetries: 4, WaitTime: 1.5},
				}},
			{Kind: model.KindWait, Duration: 0.5},
		},
		LoopActions:   true,
		ClickInterval: 0.25,
	}

	if err := Save(path, script); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(loaded.Actions) != 2 || !loaded.LoopActions || loaded.ClickInterval != 0.25 {
		t.Errorf("loaded script = %+v", loaded)
	}
	first := loaded.Actions[0]
	if first.Text != "Resume" || !first.Required || first.OnFailure == nil ||
		first.OnFailure.Params.MaxRetries != 4 {
		t.Errorf("first action = %+v", first)
	}
}

func TestLoadDropsInvalidRecoveryStrategies(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad-strategy.json")
	data := `{"actions": [
		{"type": "click_text", "text": "OK", "on_failure": {"strategy": "explode"}},
		{"type": "click_text", "text": "Go", "on_failure": {"strategy": "skip"}}
	]}`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	script, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if script.Actions[0].OnFailure != nil {
		t.Error("invalid strategy should be dropped at load time")
	}
	if script.Actions[1].OnFailure == nil {
		t.Error("valid strategy should survive loading")
	}
}

func TestLoadRejectsInvalidActions(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "invalid.json")
	data := `{"actions": [{"type": "hover", "x": 1, "y": 2}]}`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() = nil error for an unknown action type")
	}
	if !strings.Contains(err.Error(), "unknown action type") {
		t.Errorf("Load() error = %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Load() error = %v, want ErrNotFound", err)
	}
}

func TestLoadMalformedJSON(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "broken.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load() = nil error for malformed JSON")
	}
}

func TestResolvePath(t *testing.T) {
	t.Parallel()

	// Explicit directories pass through, with the suffix added when missing.
	if got := ResolvePath("/tmp/x/demo"); got != "/tmp/x/demo.json" {
		t.Errorf("ResolvePath(/tmp/x/demo) = %q", got)
	}
	if got := ResolvePath("/tmp/x/demo.json"); got != "/tmp/x/demo.json" {
		t.Errorf("ResolvePath(/tmp/x/demo.json) = %q", got)
	}

	// A bare name that does not exist locally resolves into the config dir.
	got := ResolvePath("no-such-script-here")
	if filepath.Base(got) != "no-such-script-here.json" || filepath.Dir(got) == "." {
		t.Errorf("ResolvePath(bare name) = %q, want a config-dir path", got)
	}
}
