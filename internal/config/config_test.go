package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"

	"github.com/verte-zerg/tuicw/internal/generator"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Practice.WPM != nil {
		t.Fatalf("expected empty config, got %+v", cfg)
	}
}

func TestApplyOverlaysFileValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `[practice]
wpm = 25
lesson = 3
cooldown = "2s"
lag-threshold = 7
focus-weak = true
words-file = "/tmp/calls.txt"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	s := DefaultSettings()
	if err := cfg.Practice.Apply(&s); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if s.WPM != 25 || s.Charset != "KMUR" || s.Cooldown != 2*time.Second || s.LagThreshold != 7 || !s.FocusWeak {
		t.Fatalf("unexpected settings: %+v", s)
	}
	if s.WordsFile != "/tmp/calls.txt" {
		t.Fatalf("unexpected words file %q", s.WordsFile)
	}
	if s.Tone != DefaultTone {
		t.Fatalf("unset values must keep defaults, tone=%v", s.Tone)
	}
	if err := Validate(s); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestApplyRejectsBadValues(t *testing.T) {
	lesson := 0
	s := DefaultSettings()
	if err := (PracticeConfig{Lesson: &lesson}).Apply(&s); err == nil {
		t.Fatalf("expected lesson error")
	}
	cooldown := "soon"
	if err := (PracticeConfig{Cooldown: &cooldown}).Apply(&s); err == nil {
		t.Fatalf("expected cooldown error")
	}
	s.MinGroupSize = 6
	if err := Validate(s); err == nil {
		t.Fatalf("expected group size error")
	}
	s = DefaultSettings()
	s.Charset = "KM#"
	if err := Validate(s); err == nil || !strings.Contains(err.Error(), "'#'") {
		t.Fatalf("expected unsendable char error, got %v", err)
	}
}

func TestTemplateDecodes(t *testing.T) {
	tmpl := Template()
	if !strings.Contains(tmpl, generator.LCWOOrder) {
		t.Fatalf("template misses default charset")
	}
	var cfg FileConfig
	if _, err := toml.Decode(tmpl, &cfg); err != nil {
		t.Fatalf("template must be valid TOML: %v", err)
	}
}

func TestDefaultPathsUseXDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(dir, "state"))

	if got := DefaultConfigPath(); got != filepath.Join(dir, "config", "tuicw", "config.toml") {
		t.Fatalf("unexpected config path %s", got)
	}
	if got := DefaultDBPath(); got != filepath.Join(dir, "data", "tuicw", "tuicw.db") {
		t.Fatalf("unexpected db path %s", got)
	}
	if got := DefaultLogPath(); got != filepath.Join(dir, "state", "tuicw", "tuicw.log") {
		t.Fatalf("unexpected log path %s", got)
	}
}

func TestWatcherReportsChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuicw", "config.toml")
	changes := make(chan FileConfig, 4)
	w, err := NewWatcher(path, func(cfg FileConfig, err error) {
		if err != nil {
			return
		}
		select {
		case changes <- cfg:
		default:
		}
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go w.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-w.Done()
	})

	if err := os.WriteFile(path, []byte("[practice]\nwpm = 30\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	timeout := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-changes:
			if cfg.Practice.WPM != nil && *cfg.Practice.WPM == 30 {
				return
			}
		case <-timeout:
			t.Fatalf("no change reported")
		}
	}
}
