// Package main provides the CLI entrypoint for tuicw.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/tuicw/internal/config"
	"github.com/verte-zerg/tuicw/internal/generator"
	"github.com/verte-zerg/tuicw/internal/logging"
	"github.com/verte-zerg/tuicw/internal/model"
	"github.com/verte-zerg/tuicw/internal/playback"
	"github.com/verte-zerg/tuicw/internal/recorder"
	"github.com/verte-zerg/tuicw/internal/session"
	"github.com/verte-zerg/tuicw/internal/stats"
	"github.com/verte-zerg/tuicw/internal/store"
	"github.com/verte-zerg/tuicw/internal/tui"
	"github.com/verte-zerg/tuicw/internal/wordlist"
)

var (
	practiceWPM          float64
	practiceTone         float64
	practiceErrorTone    float64
	practiceMinGroup     int
	practiceMaxGroup     int
	practiceCharset      string
	practiceLesson       int
	practiceCooldown     time.Duration
	practiceLagThreshold int
	practiceFocusWeak    bool
	practiceWeakTop      int
	practiceWeakFactor   float64
	practiceWeakWindow   int
	practiceWordsFile    string
	practiceLetters      bool
	practiceDigits       bool
	practicePunct        bool
	practiceDebug        bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "tuicw",
		Short:         "TUI Morse code copy trainer",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPracticeCmd,
	}

	d := config.DefaultSettings()
	flags := rootCmd.Flags()
	flags.Float64Var(&practiceWPM, "wpm", d.WPM, "character speed in words per minute")
	flags.Float64Var(&practiceTone, "tone", d.Tone, "tone frequency (Hz)")
	flags.Float64Var(&practiceErrorTone, "error-tone", d.ErrorTone, "buzzer frequency after a mistake (Hz)")
	flags.IntVar(&practiceMinGroup, "min-group", d.MinGroupSize, "shortest group")
	flags.IntVar(&practiceMaxGroup, "max-group", d.MaxGroupSize, "longest group")
	flags.StringVar(&practiceCharset, "charset", d.Charset, "characters to practice")
	flags.IntVar(&practiceLesson, "lesson", 0, fmt.Sprintf("LCWO lesson 1-%d (overridden by --charset)", generator.LessonCount))
	flags.DurationVar(&practiceCooldown, "cooldown", d.Cooldown, "pause before the next session may start")
	flags.IntVar(&practiceLagThreshold, "lag-threshold", d.LagThreshold, "unjudged characters before a timeout")
	flags.BoolVar(&practiceFocusWeak, "focus-weak", false, "bias practice toward weak characters")
	flags.IntVar(&practiceWeakTop, "weak-top", d.WeakTop, "number of weak characters to focus on")
	flags.Float64Var(&practiceWeakFactor, "weak-factor", d.WeakFactor, "weight factor for weak characters")
	flags.IntVar(&practiceWeakWindow, "weak-window", d.WeakWindow, "number of recent sessions to compute weak chars")
	flags.BoolVar(&practiceLetters, "letters", false, "add (or with =false remove) all letters")
	flags.BoolVar(&practiceDigits, "digits", false, "add (or with =false remove) all digits")
	flags.BoolVar(&practicePunct, "punct", false, "add (or with =false remove) all punctuation")
	flags.StringVar(&practiceWordsFile, "words-file", "", "practice whole words from this list (one per line)")
	flags.BoolVar(&practiceDebug, "debug", false, "write debug entries to the log file")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newLessonsCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newResetCmd())

	return rootCmd
}

func runPracticeCmd(cmd *cobra.Command, _ []string) error {
	configPath := config.DefaultConfigPath()
	fileCfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	settings, err := resolveSettings(cmd, fileCfg)
	if err != nil {
		return err
	}

	logger, logFile, err := logging.Setup(config.DefaultLogPath(), practiceDebug)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := logFile.Close(); cerr != nil {
			logErrf("failed to close log: %v\n", cerr)
		}
	}()

	// Without a store the trainer still runs; nothing is saved.
	var (
		sink    recorder.Sink
		weak    tui.WeakSource
		saver   stats.Saver
		initial model.Stats
	)
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		logger.Error().Err(err).Msg("history store unavailable")
		logErrf("failed to open db, sessions will not be saved: %v\n", err)
	} else {
		defer func() {
			if cerr := st.Close(); cerr != nil {
				logErrf("failed to close db: %v\n", cerr)
			}
		}()
		sink, weak, saver = st, st, st
		initial, err = st.LoadStats(cmd.Context())
		if err != nil {
			logger.Error().Err(err).Msg("failed to load stats")
			initial = model.Stats{}
		}
	}

	var program *tea.Program
	bridge := tui.NewBridge(func(msg tea.Msg) { program.Send(msg) })
	defer bridge.Close()

	engine := playback.NewTimedEngine()
	player := playback.NewAdapter(engine, bridge.Send)
	ticker := tui.NewTicker(bridge.Send)
	groups := generator.NewWeighted(generator.New())
	words, err := loadWords(settings)
	if err != nil {
		return err
	}
	groups.SetWords(words)
	logWordCount(logger, settings, groups)
	agg := stats.NewAggregator(initial, saver, logger)
	ctrl := session.NewController(settings, player, ticker, groups, recorder.New(sink, logger), agg, logger)

	program = tea.NewProgram(tui.NewModel(ctrl, groups, weak, logger), tea.WithAltScreen(), tea.WithReportFocus())

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	watcher, err := config.NewWatcher(configPath, func(fc config.FileConfig, err error) {
		if err != nil {
			program.Send(tui.ConfigMsg{Err: err})
			return
		}
		next, err := resolveSettings(cmd, fc)
		if err != nil {
			program.Send(tui.ConfigMsg{Err: err})
			return
		}
		words, err := loadWords(next)
		program.Send(tui.ConfigMsg{Settings: next, Words: words, Err: err})
	}, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("config changes will not be picked up")
	} else {
		go watcher.Run(ctx)
		defer func() {
			cancel()
			<-watcher.Done()
		}()
	}

	logger.Info().Float64("wpm", settings.WPM).Str("charset", settings.Charset).Msg("practice started")
	_, runErr := program.Run()
	engine.Stop()
	ticker.Stop()
	if runErr != nil {
		return fmt.Errorf("failed to run TUI: %w", runErr)
	}
	return nil
}

// resolveSettings layers defaults, the config file and explicitly set flags.
func resolveSettings(cmd *cobra.Command, fileCfg config.FileConfig) (model.Settings, error) {
	s := config.DefaultSettings()
	if err := fileCfg.Practice.Apply(&s); err != nil {
		return model.Settings{}, fmt.Errorf("invalid config: %w", err)
	}
	applyFloatFlag(cmd, "wpm", &s.WPM, practiceWPM)
	applyFloatFlag(cmd, "tone", &s.Tone, practiceTone)
	applyFloatFlag(cmd, "error-tone", &s.ErrorTone, practiceErrorTone)
	applyIntFlag(cmd, "min-group", &s.MinGroupSize, practiceMinGroup)
	applyIntFlag(cmd, "max-group", &s.MaxGroupSize, practiceMaxGroup)
	if cmd.Flags().Changed("lesson") {
		if practiceLesson < 1 || practiceLesson > generator.LessonCount {
			return model.Settings{}, fmt.Errorf("--lesson must be between 1 and %d", generator.LessonCount)
		}
		s.Charset = generator.LessonCharset(practiceLesson)
	}
	if cmd.Flags().Changed("charset") {
		s.Charset = practiceCharset
	}
	for _, p := range []struct {
		flag   string
		preset string
		on     bool
	}{
		{"letters", generator.Latin, practiceLetters},
		{"digits", generator.Digits, practiceDigits},
		{"punct", generator.Punct, practicePunct},
	} {
		if cmd.Flags().Changed(p.flag) {
			s.Charset = generator.TogglePreset(s.Charset, p.preset, p.on)
		}
	}
	if cmd.Flags().Changed("cooldown") {
		s.Cooldown = practiceCooldown
	}
	applyIntFlag(cmd, "lag-threshold", &s.LagThreshold, practiceLagThreshold)
	if cmd.Flags().Changed("focus-weak") {
		s.FocusWeak = practiceFocusWeak
	}
	applyIntFlag(cmd, "weak-top", &s.WeakTop, practiceWeakTop)
	applyFloatFlag(cmd, "weak-factor", &s.WeakFactor, practiceWeakFactor)
	applyIntFlag(cmd, "weak-window", &s.WeakWindow, practiceWeakWindow)
	if cmd.Flags().Changed("words-file") {
		s.WordsFile = practiceWordsFile
	}
	if err := config.Validate(s); err != nil {
		return model.Settings{}, err
	}
	return s, nil
}

// loadWords reads the configured word list, or returns nil when none is set.
func loadWords(s model.Settings) ([]string, error) {
	if s.WordsFile == "" {
		return nil, nil
	}
	words, err := wordlist.LoadWords(s.WordsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load words file %s: %w", s.WordsFile, err)
	}
	return words, nil
}

func logWordCount(logger zerolog.Logger, s model.Settings, groups *generator.Weighted) {
	if s.WordsFile == "" {
		return
	}
	n := len(groups.Spellable(s.Charset))
	if n == 0 {
		logErrf("no word in %s fits the charset; using random groups\n", s.WordsFile)
	}
	logger.Info().Str("file", s.WordsFile).Int("spellable", n).Msg("word list loaded")
}

func applyIntFlag(cmd *cobra.Command, name string, target *int, value int) {
	if cmd.Flags().Changed(name) {
		*target = value
	}
}

func applyFloatFlag(cmd *cobra.Command, name string, target *float64, value float64) {
	if cmd.Flags().Changed(name) {
		*target = value
	}
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(config.Template()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func openStore() (*store.Store, func(), error) {
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open db: %w", err)
	}
	return st, func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}, nil
}

func writeLines(w io.Writer, lines ...string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
