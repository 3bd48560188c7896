// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/verte-zerg/tuicw/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// timeLayout has a fixed-width fraction so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, err
	}
	return t.Local(), nil
}

// Store wraps SQLite access for session data.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite has a single writer.
	db.SetMaxOpenConns(1)
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			copied_text TEXT NOT NULL,
			expected_char TEXT,
			mistaken_char TEXT,
			end_reason TEXT NOT NULL,
			settings TEXT NOT NULL,
			elapsed INTEGER NOT NULL,
			copied_characters INTEGER NOT NULL,
			copied_groups INTEGER NOT NULL,
			score INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS characters (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			result TEXT NOT NULL,
			sent_at TEXT,
			sent_char TEXT,
			sent_duration_ms INTEGER,
			received_at TEXT,
			received_char TEXT,
			delay_ms INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS stat_buckets (
			name TEXT PRIMARY KEY,
			updated_at TEXT NOT NULL,
			last_session INTEGER NOT NULL,
			best_session INTEGER NOT NULL,
			current_day INTEGER NOT NULL,
			best_day INTEGER NOT NULL,
			total INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_finished_at ON sessions(finished_at);`,
		`CREATE INDEX IF NOT EXISTS idx_characters_session ON characters(session_id);`,
		`CREATE INDEX IF NOT EXISTS idx_characters_sent_char ON characters(sent_char);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// SaveOutcome stores a single character outcome.
func (s *Store) SaveOutcome(ctx context.Context, outcome model.CharacterOutcome) error {
	return insertOutcome(ctx, s.db, outcome)
}

// SaveSession stores a finished session together with its closing outcomes.
func (s *Store) SaveSession(ctx context.Context, session model.Session, outcomes []model.CharacterOutcome) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	if err = insertSession(ctx, tx, session); err != nil {
		return err
	}
	for _, o := range outcomes {
		if err = insertOutcome(ctx, tx, o); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Import writes sessions, outcomes and optionally stats in one transaction.
// Rows with an existing ID are replaced.
func (s *Store) Import(ctx context.Context, sessions []model.Session, outcomes []model.CharacterOutcome, stats *model.Stats) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	for _, sess := range sessions {
		if err = insertSession(ctx, tx, sess); err != nil {
			return fmt.Errorf("failed to import session %s: %w", sess.ID, err)
		}
	}
	for _, o := range outcomes {
		if err = insertOutcome(ctx, tx, o); err != nil {
			return fmt.Errorf("failed to import outcome %s: %w", o.ID, err)
		}
	}
	if stats != nil {
		if err = saveStats(ctx, tx, *stats); err != nil {
			return fmt.Errorf("failed to import stats: %w", err)
		}
	}
	return tx.Commit()
}

// DeleteAll removes every stored session, outcome and statistic.
func (s *Store) DeleteAll(ctx context.Context) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()
	for _, table := range []string{"characters", "sessions", "stat_buckets"} {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func insertSession(ctx context.Context, ex execer, session model.Session) error {
	settings, err := json.Marshal(session.Settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	var expected, mistaken sql.NullString
	if session.Mistake != nil {
		expected = sql.NullString{String: session.Mistake.Expected, Valid: true}
		mistaken = sql.NullString{String: session.Mistake.Mistaken, Valid: true}
	}
	_, err = ex.ExecContext(ctx,
		`INSERT OR REPLACE INTO sessions (id, started_at, finished_at, copied_text, expected_char, mistaken_char, end_reason, settings, elapsed, copied_characters, copied_groups, score)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID,
		formatTime(session.StartedAt),
		formatTime(session.FinishedAt),
		session.CopiedText,
		expected,
		mistaken,
		string(session.EndReason),
		string(settings),
		session.Elapsed,
		session.CopiedCharacters,
		session.CopiedGroups,
		session.Score,
	)
	return err
}

func insertOutcome(ctx context.Context, ex execer, o model.CharacterOutcome) error {
	var sentAt, sentChar, receivedAt, receivedChar sql.NullString
	var duration, delay sql.NullInt64
	if o.Sent != nil {
		sentAt = sql.NullString{String: formatTime(o.Sent.At), Valid: true}
		sentChar = sql.NullString{String: o.Sent.Char, Valid: true}
		duration = sql.NullInt64{Int64: o.Sent.Duration.Milliseconds(), Valid: true}
	}
	if o.Received != nil {
		receivedAt = sql.NullString{String: formatTime(o.Received.At), Valid: true}
		receivedChar = sql.NullString{String: o.Received.Char, Valid: true}
	}
	if o.Sent != nil && o.Received != nil {
		delay = sql.NullInt64{Int64: o.Received.At.Sub(o.Sent.At).Milliseconds(), Valid: true}
	}
	_, err := ex.ExecContext(ctx,
		`INSERT OR REPLACE INTO characters (id, session_id, result, sent_at, sent_char, sent_duration_ms, received_at, received_char, delay_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.SessionID, string(o.Result), sentAt, sentChar, duration, receivedAt, receivedChar, delay,
	)
	return err
}

// SaveStats replaces the stored rolling statistics.
func (s *Store) SaveStats(ctx context.Context, stats model.Stats) error {
	return saveStats(ctx, s.db, stats)
}

func saveStats(ctx context.Context, ex execer, stats model.Stats) error {
	updated := formatTime(stats.Updated)
	for name, b := range bucketsByName(&stats) {
		if _, err := ex.ExecContext(ctx,
			`INSERT OR REPLACE INTO stat_buckets (name, updated_at, last_session, best_session, current_day, best_day, total)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			name, updated, b.LastSession, b.BestSession, b.CurrentDay, b.BestDay, b.Total,
		); err != nil {
			return err
		}
	}
	return nil
}

// LoadStats returns the stored rolling statistics, or zero stats when none
// were saved yet.
func (s *Store) LoadStats(ctx context.Context) (model.Stats, error) {
	var stats model.Stats
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, updated_at, last_session, best_session, current_day, best_day, total FROM stat_buckets`)
	if err != nil {
		return stats, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	buckets := bucketsByName(&stats)
	for rows.Next() {
		var name, updated string
		var b model.StatBucket
		if err := rows.Scan(&name, &updated, &b.LastSession, &b.BestSession, &b.CurrentDay, &b.BestDay, &b.Total); err != nil {
			return stats, err
		}
		parsed, err := parseTime(updated)
		if err != nil {
			return stats, err
		}
		if parsed.After(stats.Updated) {
			stats.Updated = parsed
		}
		if target, ok := buckets[name]; ok {
			*target = b
		}
	}
	return stats, rows.Err()
}

func bucketsByName(stats *model.Stats) map[string]*model.StatBucket {
	return map[string]*model.StatBucket{
		"elapsed":           &stats.Elapsed,
		"copied_characters": &stats.CopiedCharacters,
		"copied_groups":     &stats.CopiedGroups,
		"score":             &stats.Score,
	}
}

// ListSessions returns session summaries filtered by stats config, oldest first.
func (s *Store) ListSessions(ctx context.Context, cfg model.StatsConfig) ([]model.SessionSummary, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.Since != nil {
		clauses = append(clauses, "finished_at >= ?")
		args = append(args, formatTime(*cfg.Since))
	}
	limit := -1
	if cfg.Last > 0 {
		limit = cfg.Last
	}
	args = append(args, limit)
	query := fmt.Sprintf(`SELECT * FROM (
		SELECT id, started_at, finished_at, copied_text, expected_char, mistaken_char, end_reason, elapsed, copied_characters, copied_groups, score
		FROM sessions
		WHERE %s
		ORDER BY finished_at DESC
		LIMIT ?
	) ORDER BY finished_at ASC`, strings.Join(clauses, " AND "))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var sessions []model.SessionSummary
	for rows.Next() {
		var sum model.SessionSummary
		var started, finished, reason string
		var expected, mistaken sql.NullString
		if err := rows.Scan(&sum.ID, &started, &finished, &sum.CopiedText, &expected, &mistaken, &reason,
			&sum.Elapsed, &sum.CopiedCharacters, &sum.CopiedGroups, &sum.Score); err != nil {
			return nil, err
		}
		if sum.StartedAt, err = parseTime(started); err != nil {
			return nil, err
		}
		if sum.FinishedAt, err = parseTime(finished); err != nil {
			return nil, err
		}
		sum.EndReason = model.EndReason(reason)
		if expected.Valid {
			sum.Mistake = &model.Mistake{Expected: expected.String, Mistaken: mistaken.String}
		}
		sessions = append(sessions, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// Sessions returns every stored session with its settings, oldest first.
func (s *Store) Sessions(ctx context.Context) ([]model.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, copied_text, expected_char, mistaken_char, end_reason, settings, elapsed, copied_characters, copied_groups, score
		 FROM sessions ORDER BY finished_at ASC`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var sessions []model.Session
	for rows.Next() {
		var sess model.Session
		var started, finished, reason, settings string
		var expected, mistaken sql.NullString
		if err := rows.Scan(&sess.ID, &started, &finished, &sess.CopiedText, &expected, &mistaken, &reason, &settings,
			&sess.Elapsed, &sess.CopiedCharacters, &sess.CopiedGroups, &sess.Score); err != nil {
			return nil, err
		}
		if sess.StartedAt, err = parseTime(started); err != nil {
			return nil, err
		}
		if sess.FinishedAt, err = parseTime(finished); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(settings), &sess.Settings); err != nil {
			return nil, fmt.Errorf("failed to decode settings of session %s: %w", sess.ID, err)
		}
		sess.EndReason = model.EndReason(reason)
		if expected.Valid {
			sess.Mistake = &model.Mistake{Expected: expected.String, Mistaken: mistaken.String}
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// ListOutcomes returns the outcomes of one session, or of all sessions when
// sessionID is empty, in the order they were sent.
func (s *Store) ListOutcomes(ctx context.Context, sessionID string) ([]model.CharacterOutcome, error) {
	query := `SELECT id, session_id, result, sent_at, sent_char, sent_duration_ms, received_at, received_char
		FROM characters
		WHERE (? = '' OR session_id = ?)
		ORDER BY COALESCE(sent_at, received_at) ASC, rowid ASC`
	rows, err := s.db.QueryContext(ctx, query, sessionID, sessionID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var outcomes []model.CharacterOutcome
	for rows.Next() {
		var o model.CharacterOutcome
		var result string
		var sentAt, sentChar, receivedAt, receivedChar sql.NullString
		var duration sql.NullInt64
		if err := rows.Scan(&o.ID, &o.SessionID, &result, &sentAt, &sentChar, &duration, &receivedAt, &receivedChar); err != nil {
			return nil, err
		}
		o.Result = model.Result(result)
		if sentAt.Valid {
			at, err := parseTime(sentAt.String)
			if err != nil {
				return nil, err
			}
			o.Sent = &model.SentCharacter{
				At:       at,
				Char:     sentChar.String,
				Duration: time.Duration(duration.Int64) * time.Millisecond,
			}
		}
		if receivedAt.Valid {
			at, err := parseTime(receivedAt.String)
			if err != nil {
				return nil, err
			}
			o.Received = &model.ReceivedCharacter{At: at, Char: receivedChar.String}
		}
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

const charAggregateColumns = `UPPER(c.sent_char) AS ch,
		SUM(CASE WHEN c.result = 'Correct' THEN 1 ELSE 0 END) AS correct,
		SUM(CASE WHEN c.result = 'Incorrect' THEN 1 ELSE 0 END) AS incorrect,
		SUM(CASE WHEN c.result = 'Pending' THEN 1 ELSE 0 END) AS pending,
		COALESCE(SUM(CASE WHEN c.result = 'Correct' THEN c.delay_ms END), 0) AS delay_sum_ms,
		SUM(CASE WHEN c.result = 'Correct' AND c.delay_ms IS NOT NULL THEN 1 ELSE 0 END) AS delay_count`

// ListCharAggregates aggregates sent-character outcomes over the most recent
// window sessions; window <= 0 covers all sessions. Spaces are excluded.
func (s *Store) ListCharAggregates(ctx context.Context, window int) ([]model.CharAggregate, error) {
	limit := -1
	if window > 0 {
		limit = window
	}
	query := `WITH recent_sessions AS (
		SELECT id FROM sessions
		ORDER BY finished_at DESC
		LIMIT ?
	)
	SELECT ` + charAggregateColumns + `
	FROM characters c
	JOIN recent_sessions r ON r.id = c.session_id
	WHERE c.sent_char IS NOT NULL AND c.sent_char <> ' '
	GROUP BY ch
	ORDER BY ch`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	return scanCharAggregates(rows)
}

func scanCharAggregates(rows *sql.Rows) ([]model.CharAggregate, error) {
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.CharAggregate
	for rows.Next() {
		var agg model.CharAggregate
		if err := rows.Scan(&agg.Char, &agg.Correct, &agg.Incorrect, &agg.Pending, &agg.DelaySumMs, &agg.DelayCount); err != nil {
			return nil, err
		}
		result = append(result, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ListCharAggregatesForSessions aggregates sent-character outcomes across
// the given sessions. Spaces are excluded.
func (s *Store) ListCharAggregatesForSessions(ctx context.Context, sessionIDs []string) ([]model.CharAggregate, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(sessionIDs))
	args := make([]any, len(sessionIDs))
	for i, id := range sessionIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT `+charAggregateColumns+`
		FROM characters c
		WHERE c.session_id IN (%s) AND c.sent_char IS NOT NULL AND c.sent_char <> ' '
		GROUP BY ch
		ORDER BY ch`, strings.Join(placeholders, ","))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanCharAggregates(rows)
}

// ListCharStatsForSessions returns per-session aggregates for selected characters.
func (s *Store) ListCharStatsForSessions(ctx context.Context, sessionIDs []string, chars []string) (map[string]map[string]model.CharAggregate, error) {
	if len(sessionIDs) == 0 || len(chars) == 0 {
		return map[string]map[string]model.CharAggregate{}, nil
	}
	idPlaceholders := make([]string, len(sessionIDs))
	args := make([]any, 0, len(sessionIDs)+len(chars))
	for i, id := range sessionIDs {
		idPlaceholders[i] = "?"
		args = append(args, id)
	}
	charPlaceholders := make([]string, len(chars))
	for i, ch := range chars {
		charPlaceholders[i] = "?"
		args = append(args, strings.ToUpper(ch))
	}

	query := fmt.Sprintf(`SELECT c.session_id, `+charAggregateColumns+`
		FROM characters c
		WHERE c.session_id IN (%s) AND UPPER(c.sent_char) IN (%s)
		GROUP BY c.session_id, ch`, strings.Join(idPlaceholders, ","), strings.Join(charPlaceholders, ","))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	result := map[string]map[string]model.CharAggregate{}
	for rows.Next() {
		var sessionID string
		var agg model.CharAggregate
		if err := rows.Scan(&sessionID, &agg.Char, &agg.Correct, &agg.Incorrect, &agg.Pending, &agg.DelaySumMs, &agg.DelayCount); err != nil {
			return nil, err
		}
		if _, ok := result[sessionID]; !ok {
			result[sessionID] = map[string]model.CharAggregate{}
		}
		result[sessionID][agg.Char] = agg
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
