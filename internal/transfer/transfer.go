// Package transfer exports and imports practice history as JSON or YAML.
package transfer

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/tuicw/internal/model"
)

// Format is an archive encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Archive is the exported history.
type Archive struct {
	Sessions   []model.Session          `json:"sessions" yaml:"sessions"`
	Characters []model.CharacterOutcome `json:"characters" yaml:"characters"`
	Stats      *model.Stats             `json:"stats,omitempty" yaml:"stats,omitempty"`
}

// Source reads everything an archive holds.
type Source interface {
	Sessions(ctx context.Context) ([]model.Session, error)
	ListOutcomes(ctx context.Context, sessionID string) ([]model.CharacterOutcome, error)
	LoadStats(ctx context.Context) (model.Stats, error)
}

// Target stores an imported archive.
type Target interface {
	Import(ctx context.Context, sessions []model.Session, outcomes []model.CharacterOutcome, stats *model.Stats) error
}

// ParseFormat validates a --format value.
func ParseFormat(value string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(value))) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown format %q (use json or yaml)", value)
	}
}

// FormatFromPath guesses the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", fmt.Errorf("cannot tell format of %s: no extension", path)
	}
	return ParseFormat(ext)
}

// Collect reads sessions, outcomes and stats concurrently.
func Collect(ctx context.Context, src Source) (Archive, error) {
	var archive Archive
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sessions, err := src.Sessions(ctx)
		if err != nil {
			return fmt.Errorf("failed to read sessions: %w", err)
		}
		archive.Sessions = sessions
		return nil
	})
	g.Go(func() error {
		outcomes, err := src.ListOutcomes(ctx, "")
		if err != nil {
			return fmt.Errorf("failed to read characters: %w", err)
		}
		archive.Characters = outcomes
		return nil
	})
	g.Go(func() error {
		stats, err := src.LoadStats(ctx)
		if err != nil {
			return fmt.Errorf("failed to read stats: %w", err)
		}
		if !stats.Updated.IsZero() {
			archive.Stats = &stats
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Archive{}, err
	}
	if archive.Sessions == nil {
		archive.Sessions = []model.Session{}
	}
	if archive.Characters == nil {
		archive.Characters = []model.CharacterOutcome{}
	}
	return archive, nil
}

// Encode writes archive to w.
func Encode(w io.Writer, archive Archive, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(archive); err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(archive); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
	default:
		return fmt.Errorf("unknown format %q", format)
	}
	return nil
}

// Decode reads an archive from r.
func Decode(r io.Reader, format Format) (Archive, error) {
	var archive Archive
	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&archive); err != nil {
			return Archive{}, fmt.Errorf("failed to decode json: %w", err)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&archive); err != nil {
			return Archive{}, fmt.Errorf("failed to decode yaml: %w", err)
		}
	default:
		return Archive{}, fmt.Errorf("unknown format %q", format)
	}
	return archive, nil
}

// Export collects the history from src and writes it to w.
func Export(ctx context.Context, src Source, w io.Writer, format Format) (Archive, error) {
	archive, err := Collect(ctx, src)
	if err != nil {
		return Archive{}, err
	}
	return archive, Encode(w, archive, format)
}

// Import decodes an archive from r and stores it in dst. Entries whose ID
// already exists are replaced.
func Import(ctx context.Context, dst Target, r io.Reader, format Format) (Archive, error) {
	archive, err := Decode(r, format)
	if err != nil {
		return Archive{}, err
	}
	for _, s := range archive.Sessions {
		if s.ID == "" {
			return Archive{}, fmt.Errorf("session without id")
		}
	}
	for _, c := range archive.Characters {
		if c.ID == "" || c.SessionID == "" {
			return Archive{}, fmt.Errorf("character without id or session id")
		}
	}
	if err := dst.Import(ctx, archive.Sessions, archive.Characters, archive.Stats); err != nil {
		return Archive{}, fmt.Errorf("failed to import archive: %w", err)
	}
	return archive, nil
}
