// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/verte-zerg/tuicw/internal/generator"
	"github.com/verte-zerg/tuicw/internal/model"
	"github.com/verte-zerg/tuicw/internal/morse"
)

// Practice defaults.
const (
	DefaultWPM          = 20.0
	DefaultTone         = 600.0
	DefaultErrorTone    = 200.0
	DefaultGroupSize    = 5
	DefaultCooldown     = time.Second
	DefaultLagThreshold = 5
	DefaultWeakTop      = 8
	DefaultWeakFactor   = 2.0
	DefaultWeakWindow   = 20
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Practice PracticeConfig `toml:"practice"`
}

// PracticeConfig maps practice-related settings.
type PracticeConfig struct {
	WPM          *float64 `toml:"wpm"`
	Tone         *float64 `toml:"tone"`
	ErrorTone    *float64 `toml:"error-tone"`
	MinGroup     *int     `toml:"min-group"`
	MaxGroup     *int     `toml:"max-group"`
	Charset      *string  `toml:"charset"`
	Lesson       *int     `toml:"lesson"`
	Cooldown     *string  `toml:"cooldown"`
	LagThreshold *int     `toml:"lag-threshold"`
	FocusWeak    *bool    `toml:"focus-weak"`
	WeakTop      *int     `toml:"weak-top"`
	WeakFactor   *float64 `toml:"weak-factor"`
	WeakWindow   *int     `toml:"weak-window"`
	WordsFile    *string  `toml:"words-file"`
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() model.Settings {
	return model.Settings{
		WPM:          DefaultWPM,
		Tone:         DefaultTone,
		ErrorTone:    DefaultErrorTone,
		MinGroupSize: DefaultGroupSize,
		MaxGroupSize: DefaultGroupSize,
		Charset:      generator.LCWOOrder,
		Cooldown:     DefaultCooldown,
		LagThreshold: DefaultLagThreshold,
		WeakTop:      DefaultWeakTop,
		WeakFactor:   DefaultWeakFactor,
		WeakWindow:   DefaultWeakWindow,
	}
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// Apply overlays the values set in the file onto s. A lesson number selects
// the lesson charset unless an explicit charset is also given.
func (p PracticeConfig) Apply(s *model.Settings) error {
	setFloat(&s.WPM, p.WPM)
	setFloat(&s.Tone, p.Tone)
	setFloat(&s.ErrorTone, p.ErrorTone)
	setInt(&s.MinGroupSize, p.MinGroup)
	setInt(&s.MaxGroupSize, p.MaxGroup)
	if p.Lesson != nil {
		if *p.Lesson < 1 || *p.Lesson > generator.LessonCount {
			return fmt.Errorf("lesson must be between 1 and %d", generator.LessonCount)
		}
		s.Charset = generator.LessonCharset(*p.Lesson)
	}
	if p.Charset != nil {
		s.Charset = *p.Charset
	}
	if p.Cooldown != nil {
		d, err := time.ParseDuration(*p.Cooldown)
		if err != nil {
			return fmt.Errorf("invalid cooldown: %w", err)
		}
		s.Cooldown = d
	}
	setInt(&s.LagThreshold, p.LagThreshold)
	if p.FocusWeak != nil {
		s.FocusWeak = *p.FocusWeak
	}
	setInt(&s.WeakTop, p.WeakTop)
	setFloat(&s.WeakFactor, p.WeakFactor)
	setInt(&s.WeakWindow, p.WeakWindow)
	if p.WordsFile != nil {
		s.WordsFile = *p.WordsFile
	}
	return nil
}

// Validate checks settings ranges. An empty charset is accepted here; the
// session refuses to start on it instead.
func Validate(s model.Settings) error {
	if s.WPM <= 0 {
		return fmt.Errorf("wpm must be > 0")
	}
	if s.Tone <= 0 || s.ErrorTone <= 0 {
		return fmt.Errorf("tones must be > 0")
	}
	if s.MinGroupSize < 1 {
		return fmt.Errorf("min-group must be >= 1")
	}
	if s.MinGroupSize > s.MaxGroupSize {
		return fmt.Errorf("min-group must be <= max-group")
	}
	if s.Cooldown < 0 {
		return fmt.Errorf("cooldown must be >= 0")
	}
	if s.LagThreshold < 1 {
		return fmt.Errorf("lag-threshold must be >= 1")
	}
	if s.WeakTop < 0 {
		return fmt.Errorf("weak-top must be >= 0")
	}
	if s.WeakFactor < 0 {
		return fmt.Errorf("weak-factor must be >= 0")
	}
	if s.WeakWindow < 0 {
		return fmt.Errorf("weak-window must be >= 0")
	}
	for _, r := range s.Charset {
		if !morse.Known(r) {
			return fmt.Errorf("charset: %q has no Morse code", r)
		}
	}
	return nil
}

// Template returns a commented config file with the defaults.
func Template() string {
	d := DefaultSettings()
	return fmt.Sprintf(`# tuicw configuration
# Uncomment a value to enable it. CLI flags override config values.
# Changes are picked up while practicing; a running session is stopped.

[practice]
# wpm = %.0f               # Character speed in words per minute
# tone = %.0f             # Tone frequency (Hz)
# error-tone = %.0f       # Buzzer frequency after a mistake (Hz)
# min-group = %d           # Shortest group
# max-group = %d           # Longest group
# charset = %q
# lesson = 2              # LCWO lesson (overridden by charset)
# cooldown = %q          # Pause before the next session may start
# lag-threshold = %d       # Unjudged characters before a timeout
# focus-weak = false      # Bias practice toward weak characters
# weak-top = %d            # Number of weak characters to focus on
# weak-factor = %.1f      # Weight factor for weak characters
# weak-window = %d        # Number of recent sessions to compute weak chars
# words-file = "calls.txt" # Practice whole words from this list (one per line)
`,
		d.WPM,
		d.Tone,
		d.ErrorTone,
		d.MinGroupSize,
		d.MaxGroupSize,
		d.Charset,
		d.Cooldown.String(),
		d.LagThreshold,
		d.WeakTop,
		d.WeakFactor,
		d.WeakWindow,
	)
}

func setFloat(target *float64, value *float64) {
	if value != nil {
		*target = *value
	}
}

func setInt(target *int, value *int) {
	if value != nil {
		*target = *value
	}
}
