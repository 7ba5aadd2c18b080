// Package model defines the entity types shared by speakcast's store,
// worker, audio, and library packages. Entities are plain record types —
// no duck-typed rows, no reflection-driven mapping; the schema lives once in
// internal/store's migrations and is mirrored here field for field.
package model

import "time"

// SourceType identifies how a Source's raw content was obtained.
type SourceType string

const (
	SourceText SourceType = "text"
	SourceFile SourceType = "file"
	SourceURL  SourceType = "url"
	SourceGit  SourceType = "git"
)

// CleaningSettings is a snapshot of the Normalizer's cleaning configuration,
// stored alongside a Source so re-cleaning is reproducible and auditable.
type CleaningSettings struct {
	CodeBlockRule         CodeBlockRule `json:"code_block_rule"`
	RemoveNonText         bool          `json:"remove_non_text"`
	SpeakURLs             bool          `json:"speak_urls"`
	HandleTables          bool          `json:"handle_tables"`
	ExpandAbbreviations   bool          `json:"expand_abbreviations"`
	PreserveParentheses   bool          `json:"preserve_parentheses"`
}

// CodeBlockRule controls how the Normalizer treats fenced/indented code.
type CodeBlockRule string

const (
	CodeBlockSkip     CodeBlockRule = "skip"
	CodeBlockInline   CodeBlockRule = "inline"
	CodeBlockDescribe CodeBlockRule = "describe"
)

// DefaultCleaningSettings returns the package-level hard default used when
// neither a request nor the Settings singleton supplies a value.
func DefaultCleaningSettings() CleaningSettings {
	return CleaningSettings{
		CodeBlockRule:       CodeBlockDescribe,
		RemoveNonText:       true,
		SpeakURLs:           false,
		HandleTables:        true,
		ExpandAbbreviations: false,
		PreserveParentheses: true,
	}
}

// Source is an imported document before chunking.
type Source struct {
	ID          string
	Title       string
	SourceType  SourceType
	RawText     string
	CleanedText string
	Cleaning    CleaningSettings
	CoverArt    string // relative path under sources/<id>/, empty if none
	FolderID    string // empty means root
	CreatedAt   time.Time
}

// EpisodeStatus is the lifecycle status of an Episode.
type EpisodeStatus string

const (
	EpisodePending    EpisodeStatus = "pending"
	EpisodeGenerating EpisodeStatus = "generating"
	EpisodeReady      EpisodeStatus = "ready"
	EpisodeError      EpisodeStatus = "error"
	EpisodeCancelled  EpisodeStatus = "cancelled"
)

// ChunkStrategy selects how the Chunker partitions cleaned text.
type ChunkStrategy string

const (
	StrategyParagraph ChunkStrategy = "paragraph"
	StrategySentence  ChunkStrategy = "sentence"
	StrategyHeading   ChunkStrategy = "heading"
	StrategyMaxChars  ChunkStrategy = "max_chars"
)

// BreathingIntensity selects the density of inter-sentence pause markers the
// Chunker inserts within a chunk.
type BreathingIntensity string

const (
	BreathingNone   BreathingIntensity = "none"
	BreathingLight  BreathingIntensity = "light"
	BreathingNormal BreathingIntensity = "normal"
	BreathingHeavy  BreathingIntensity = "heavy"
)

// Episode is a generation job over a Source with a fixed chunk plan and voice.
type Episode struct {
	ID                string
	SourceID          string
	Title             string
	VoiceID           string
	OutputFormat      string
	ChunkStrategy     ChunkStrategy
	ChunkMaxLength    int
	BreathingIntensity BreathingIntensity
	Status            EpisodeStatus
	TotalDurationSecs float64
	FolderID          string
	CreatedAt         time.Time
	LastPlayedAt      *time.Time
}

// ChunkStatus is the lifecycle status of a Chunk.
type ChunkStatus string

const (
	ChunkPending    ChunkStatus = "pending"
	ChunkGenerating ChunkStatus = "generating"
	ChunkReady      ChunkStatus = "ready"
	ChunkError      ChunkStatus = "error"
)

// Chunk is the unit of TTS synthesis and playback.
type Chunk struct {
	EpisodeID    string
	ChunkIndex   int
	Text         string
	Status       ChunkStatus
	DurationSecs float64
	AudioPath    string
	ErrorMessage string
	Label        string
	CreatedAt    time.Time
}

// Folder is a tree-structured grouping for Sources and Episodes.
type Folder struct {
	ID       string
	Name     string
	ParentID string // empty means root
}

// Tag is a free-form label joined to Sources and Episodes via association tables.
type Tag struct {
	ID   string
	Name string
}

// PlaybackState is the per-episode resume point.
type PlaybackState struct {
	EpisodeID        string
	CurrentChunkIdx  int
	PositionSecs     float64
	PercentListened  float64
	UpdatedAt        time.Time
}

// Settings is the singleton row of process-wide preference defaults.
type Settings struct {
	DefaultVoiceID       string
	DefaultOutputFormat  string
	DefaultChunkStrategy ChunkStrategy
	DefaultChunkMaxChars int
	DefaultBreathing     BreathingIntensity
	DefaultCleaning      CleaningSettings
}

// DefaultSettings returns the package-level hard defaults applied when the
// Settings row has never been written.
func DefaultSettings() Settings {
	return Settings{
		DefaultOutputFormat:  "wav",
		DefaultChunkStrategy: StrategyParagraph,
		DefaultChunkMaxChars: 1000,
		DefaultBreathing:     BreathingNormal,
		DefaultCleaning:      DefaultCleaningSettings(),
	}
}

// UndoOperationKind identifies what an UndoTicket's inverse payload restores.
type UndoOperationKind string

const (
	UndoRegenerateWithSettings UndoOperationKind = "regenerate_with_settings"
)

// UndoTicket is a transient record of a destructive operation, restorable
// within a bounded window.
type UndoTicket struct {
	ID             string
	OperationKind  UndoOperationKind
	EpisodeID      string
	InversePayload []byte // serialized EpisodeSnapshot
	ExpiresAt      time.Time
}

// EpisodeSnapshot is the inverse payload captured by regenerate_with_settings
// so undo() can restore the episode's prior voice, format, chunk plan, and
// on-disk audio in one shot.
type EpisodeSnapshot struct {
	Episode Episode
	Chunks  []Chunk
}

// GenerationSnapshot is the point-in-time status the worker exposes for
// external polling (spec §4.5 Observability).
type GenerationSnapshot struct {
	QueueSize        int
	CurrentEpisodeID string
	CurrentChunkIdx  int
}
