package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/tuicw/internal/config"
	"github.com/verte-zerg/tuicw/internal/generator"
	"github.com/verte-zerg/tuicw/internal/model"
	"github.com/verte-zerg/tuicw/internal/stats"
	"github.com/verte-zerg/tuicw/internal/statsui"
	"github.com/verte-zerg/tuicw/internal/store"
	"github.com/verte-zerg/tuicw/internal/transfer"
)

const (
	defaultCurveWindow = 20
	defaultHistoryRows = 10
	defaultCurveChars  = 5
)

var (
	statsSince       string
	statsLast        int
	statsCurveWindow int
	statsChars       string
	statsPlain       bool

	exportFormat string
	exportOut    string
	importFormat string
	resetYes     bool
)

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show stats",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N sessions")
	cmd.Flags().IntVar(&statsCurveWindow, "curve-window", defaultCurveWindow, "moving average window")
	cmd.Flags().StringVar(&statsChars, "char", "", "characters for per-char curves")
	cmd.Flags().BoolVar(&statsPlain, "plain", false, "print a text report instead of the TUI")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	var sinceTime *time.Time
	if statsSince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", statsSince, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}
	if statsCurveWindow < 1 {
		return fmt.Errorf("--curve-window must be >= 1")
	}

	cfg := model.StatsConfig{
		Since:       sinceTime,
		Last:        statsLast,
		CurveWindow: statsCurveWindow,
		Chars:       statsChars,
	}

	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	if statsPlain {
		return renderPlainStats(cmd.Context(), cmd.OutOrStdout(), st, cfg)
	}
	program := tea.NewProgram(statsui.NewModel(st, cfg), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	return nil
}

func renderPlainStats(ctx context.Context, w io.Writer, st *store.Store, cfg model.StatsConfig) error {
	report, err := stats.BuildReport(ctx, st, cfg)
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}
	if err := stats.RenderBuckets(w, report.Stats); err != nil {
		return err
	}
	if err := stats.RenderSummary(w, report.Sessions); err != nil {
		return err
	}
	if len(report.Sessions) == 0 {
		return nil
	}
	if err := stats.RenderHistory(w, report.Sessions, defaultHistoryRows); err != nil {
		return err
	}
	if err := stats.RenderCurvesWithSize(w, report.Sessions, cfg.CurveWindow, 0, 0, false); err != nil {
		return err
	}
	if err := stats.RenderCharTable(w, report.CharAggsWindow); err != nil {
		return err
	}

	chars := parseCharFlag(cfg.Chars)
	if len(chars) == 0 {
		chars = stats.TopCharsByFrequency(report.CharAggsAll, defaultCurveChars)
	}
	if len(chars) == 0 {
		return nil
	}
	perSession, err := st.ListCharStatsForSessions(ctx, stats.SessionIDs(report.Sessions), chars)
	if err != nil {
		return fmt.Errorf("failed to load character curves: %w", err)
	}
	return stats.RenderCharCurvesWithSize(w, report.Sessions, perSession, chars, cfg.CurveWindow, 0, 0, false)
}

func parseCharFlag(input string) []string {
	var out []string
	for _, r := range strings.ToUpper(input) {
		if r == ',' || r == ' ' {
			continue
		}
		out = append(out, string(r))
	}
	return out
}

func newLessonsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lessons",
		Short: "List LCWO lessons and the configured charset coverage",
		Args:  cobra.NoArgs,
		RunE:  runLessonsCmd,
	}
}

func runLessonsCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	settings := config.DefaultSettings()
	if err := fileCfg.Practice.Apply(&settings); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return renderLessons(cmd.OutOrStdout(), settings.Charset)
}

func renderLessons(w io.Writer, charset string) error {
	current := generator.LessonFromCharset(charset)
	lines := []string{"Lesson  New  Charset"}
	for n := 1; n <= generator.LessonCount; n++ {
		lesson := generator.LessonCharset(n)
		marker := " "
		if n == current {
			marker = "*"
		}
		newChars := lesson[len(lesson)-1:]
		if n == 1 {
			newChars = lesson
		}
		lines = append(lines, fmt.Sprintf("%s%5d  %-3s  %s", marker, n, newChars, lesson))
	}
	lines = append(lines,
		"",
		fmt.Sprintf("Configured charset: %s", charset),
		fmt.Sprintf("Letters: %s  Digits: %s  Punctuation: %s",
			generator.PresetCoverage(charset, generator.Latin),
			generator.PresetCoverage(charset, generator.Digits),
			generator.PresetCoverage(charset, generator.Punct)),
	)
	return writeLines(w, lines...)
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export practice history",
		Args:  cobra.NoArgs,
		RunE:  runExportCmd,
	}
	cmd.Flags().StringVar(&exportFormat, "format", "", "json or yaml (default: from --out, else json)")
	cmd.Flags().StringVar(&exportOut, "out", "", "output file (default: stdout)")
	return cmd
}

func runExportCmd(cmd *cobra.Command, _ []string) error {
	format, err := resolveFormat(exportFormat, exportOut)
	if err != nil {
		return err
	}
	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	if exportOut == "" {
		_, err := transfer.Export(cmd.Context(), st, cmd.OutOrStdout(), format)
		return err
	}

	if err := os.MkdirAll(filepath.Dir(exportOut), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(exportOut)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", exportOut, err)
	}
	archive, err := transfer.Export(cmd.Context(), st, f, format)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to close %s: %w", exportOut, cerr)
	}
	if err != nil {
		return err
	}
	logErrf("Exported %d sessions and %d characters to %s\n", len(archive.Sessions), len(archive.Characters), exportOut)
	return nil
}

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import practice history exported by tuicw",
		Args:  cobra.ExactArgs(1),
		RunE:  runImportCmd,
	}
	cmd.Flags().StringVar(&importFormat, "format", "", "json or yaml (default: from the file extension)")
	return cmd
}

func runImportCmd(cmd *cobra.Command, args []string) error {
	path := args[0]
	format, err := resolveFormat(importFormat, path)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			// Best-effort close of a read-only file.
			_ = cerr
		}
	}()

	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	archive, err := transfer.Import(cmd.Context(), st, f, format)
	if err != nil {
		return err
	}
	logErrf("Imported %d sessions and %d characters\n", len(archive.Sessions), len(archive.Characters))
	return nil
}

func resolveFormat(flag, path string) (transfer.Format, error) {
	if flag != "" {
		return transfer.ParseFormat(flag)
	}
	if path == "" {
		return transfer.FormatJSON, nil
	}
	return transfer.FormatFromPath(path)
}

func newResetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all practice history",
		Args:  cobra.NoArgs,
		RunE:  runResetCmd,
	}
	cmd.Flags().BoolVar(&resetYes, "yes", false, "confirm deleting every session and statistic")
	return cmd
}

func runResetCmd(cmd *cobra.Command, _ []string) error {
	if !resetYes {
		return fmt.Errorf("refusing to delete history without --yes")
	}
	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()
	if err := st.DeleteAll(cmd.Context()); err != nil {
		return fmt.Errorf("failed to delete history: %w", err)
	}
	logErrf("History deleted\n")
	return nil
}
