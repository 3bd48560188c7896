package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/tuicw/internal/config"
	"github.com/verte-zerg/tuicw/internal/model"
	"github.com/verte-zerg/tuicw/internal/store"
)

func ptr[T any](v T) *T {
	return &v
}

func TestResolveSettingsFlagsOverrideFile(t *testing.T) {
	cmd := newRootCmd()
	if err := cmd.Flags().Set("wpm", "30"); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	if err := cmd.Flags().Set("lesson", "3"); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	fileCfg := config.FileConfig{Practice: config.PracticeConfig{
		WPM:          ptr(18.0),
		Tone:         ptr(700.0),
		Charset:      ptr("ABC"),
		LagThreshold: ptr(3),
	}}

	s, err := resolveSettings(cmd, fileCfg)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if s.WPM != 30 {
		t.Fatalf("expected flag WPM 30, got %.0f", s.WPM)
	}
	if s.Tone != 700 {
		t.Fatalf("expected file tone 700, got %.0f", s.Tone)
	}
	if s.Charset != "KMUR" {
		t.Fatalf("expected lesson flag over file charset, got %q", s.Charset)
	}
	if s.LagThreshold != 3 {
		t.Fatalf("expected file lag threshold 3, got %d", s.LagThreshold)
	}
}

func TestResolveSettingsTogglesPresets(t *testing.T) {
	cmd := newRootCmd()
	for name, value := range map[string]string{"charset": "K1M2", "digits": "false", "punct": "true"} {
		if err := cmd.Flags().Set(name, value); err != nil {
			t.Fatalf("set %s: %v", name, err)
		}
	}
	s, err := resolveSettings(cmd, config.FileConfig{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !strings.HasSuffix(s.Charset, "KM") || !strings.HasPrefix(s.Charset, ".,") || strings.ContainsAny(s.Charset, "12") {
		t.Fatalf("unexpected charset %q", s.Charset)
	}
}

func TestResolveSettingsRejectsBadValues(t *testing.T) {
	cmd := newRootCmd()
	if err := cmd.Flags().Set("lesson", "99"); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	if _, err := resolveSettings(cmd, config.FileConfig{}); err == nil {
		t.Fatalf("expected lesson range error")
	}

	cmd = newRootCmd()
	bad := config.FileConfig{Practice: config.PracticeConfig{MinGroup: ptr(6), MaxGroup: ptr(2)}}
	if _, err := resolveSettings(cmd, bad); err == nil {
		t.Fatalf("expected group size error")
	}
}

func TestRenderLessonsMarksCurrentLesson(t *testing.T) {
	var buf bytes.Buffer
	if err := renderLessons(&buf, "KMU"); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "*    2  U    KMU") {
		t.Fatalf("expected lesson 2 marked:\n%s", out)
	}
	if !strings.Contains(out, "Letters: some  Digits: none  Punctuation: none") {
		t.Fatalf("expected coverage line:\n%s", out)
	}
}

func TestRenderPlainStats(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "tuicw.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	ctx := context.Background()
	finished := time.Date(2026, 10, 19, 10, 0, 0, 0, time.Local)
	sent := model.SentCharacter{At: finished.Add(-time.Second), Char: "K", Duration: 300 * time.Millisecond}
	sess := model.Session{
		ID:               "s1",
		StartedAt:        finished.Add(-time.Minute),
		FinishedAt:       finished,
		CopiedText:       "K",
		EndReason:        model.EndTimeout,
		Settings:         config.DefaultSettings(),
		Elapsed:          60,
		CopiedCharacters: 1,
		Score:            1,
	}
	outcomes := []model.CharacterOutcome{{ID: "c1", SessionID: "s1", Result: model.ResultCorrect, Sent: &sent,
		Received: &model.ReceivedCharacter{At: sent.At.Add(400 * time.Millisecond), Char: "k"}}}
	if err := st.SaveSession(ctx, sess, outcomes); err != nil {
		t.Fatalf("save: %v", err)
	}

	var buf bytes.Buffer
	if err := renderPlainStats(ctx, &buf, st, model.StatsConfig{CurveWindow: 5}); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Statistics", "Summary", "History", "too slow", "Per-Character (Windowed)", "Char K"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in report:\n%s", want, out)
		}
	}
}
