// Package model defines shared data structures.
package model

import "time"

// Settings defines practice settings.
type Settings struct {
	WPM          float64       `json:"wpm" yaml:"wpm"`
	Tone         float64       `json:"tone" yaml:"tone"`
	ErrorTone    float64       `json:"errorTone" yaml:"error_tone"`
	MinGroupSize int           `json:"minGroupSize" yaml:"min_group_size"`
	MaxGroupSize int           `json:"maxGroupSize" yaml:"max_group_size"`
	Charset      string        `json:"charset" yaml:"charset"`
	Cooldown     time.Duration `json:"cooldown" yaml:"cooldown"`
	LagThreshold int           `json:"lagThreshold" yaml:"lag_threshold"`
	FocusWeak    bool          `json:"focusWeak" yaml:"focus_weak"`
	WeakTop      int           `json:"weakTop" yaml:"weak_top"`
	WeakFactor   float64       `json:"weakFactor" yaml:"weak_factor"`
	WeakWindow   int           `json:"weakWindow" yaml:"weak_window"`
	WordsFile    string        `json:"wordsFile,omitempty" yaml:"words_file,omitempty"`
}

// StatsConfig defines filters and options for stats output.
type StatsConfig struct {
	Since       *time.Time
	Last        int
	CurveWindow int
	Chars       string
}

// SentCharacter is a character reported as played by the playback engine.
type SentCharacter struct {
	At       time.Time     `json:"time" yaml:"time"`
	Char     string        `json:"character" yaml:"character"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// ReceivedCharacter is a character typed by the user.
type ReceivedCharacter struct {
	At   time.Time `json:"time" yaml:"time"`
	Char string    `json:"character" yaml:"character"`
}

// Result classifies a sent/received pair.
type Result string

const (
	ResultCorrect    Result = "Correct"
	ResultIncorrect  Result = "Incorrect"
	ResultExtraneous Result = "Extraneous"
	ResultPending    Result = "Pending"
)

// CharacterOutcome is one judged (or never judged) character of a session.
type CharacterOutcome struct {
	ID        string             `json:"id" yaml:"id"`
	SessionID string             `json:"sessionId" yaml:"session_id"`
	Result    Result             `json:"result" yaml:"result"`
	Sent      *SentCharacter     `json:"sent,omitempty" yaml:"sent,omitempty"`
	Received  *ReceivedCharacter `json:"received,omitempty" yaml:"received,omitempty"`
}

// Mistake records what was expected and what was typed instead.
type Mistake struct {
	Expected string `json:"expectedCharacter" yaml:"expected_character"`
	Mistaken string `json:"mistakenCharacter" yaml:"mistaken_character"`
}

// EndReason tells why a session ended.
type EndReason string

const (
	EndMistake   EndReason = "mistake"
	EndTimeout   EndReason = "timeout"
	EndStopped   EndReason = "stopped"
	EndLostFocus EndReason = "lost-focus"
)

// Session captures a finished copy session.
type Session struct {
	ID               string    `json:"id" yaml:"id"`
	StartedAt        time.Time `json:"started" yaml:"started"`
	FinishedAt       time.Time `json:"finished" yaml:"finished"`
	CopiedText       string    `json:"copiedText" yaml:"copied_text"`
	Mistake          *Mistake  `json:"mistake" yaml:"mistake"`
	EndReason        EndReason `json:"endReason" yaml:"end_reason"`
	Settings         Settings  `json:"settings" yaml:"settings"`
	Elapsed          int64     `json:"elapsed" yaml:"elapsed"`
	CopiedCharacters int64     `json:"copiedCharacters" yaml:"copied_characters"`
	CopiedGroups     int64     `json:"copiedGroups" yaml:"copied_groups"`
	Score            int64     `json:"score" yaml:"score"`
}

// StatBucket tracks one metric over several horizons.
type StatBucket struct {
	LastSession int64 `json:"lastSession" yaml:"last_session"`
	BestSession int64 `json:"bestSession" yaml:"best_session"`
	CurrentDay  int64 `json:"currentDay" yaml:"current_day"`
	BestDay     int64 `json:"bestDay" yaml:"best_day"`
	Total       int64 `json:"total" yaml:"total"`
}

// Stats holds the rolling buckets and when they were last modified.
type Stats struct {
	Updated          time.Time  `json:"updated" yaml:"updated"`
	Elapsed          StatBucket `json:"elapsed" yaml:"elapsed"`
	CopiedCharacters StatBucket `json:"copiedCharacters" yaml:"copied_characters"`
	CopiedGroups     StatBucket `json:"copiedGroups" yaml:"copied_groups"`
	Score            StatBucket `json:"score" yaml:"score"`
}

// SessionSummary is a stored session as listed in history views.
type SessionSummary struct {
	ID               string
	StartedAt        time.Time
	FinishedAt       time.Time
	CopiedText       string
	Mistake          *Mistake
	EndReason        EndReason
	Elapsed          int64
	CopiedCharacters int64
	CopiedGroups     int64
	Score            int64
}

// CharAggregate aggregates outcomes for one sent character.
type CharAggregate struct {
	Char       string
	Correct    int
	Incorrect  int
	Pending    int
	DelaySumMs int64
	DelayCount int64
}
