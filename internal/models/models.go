package models

import (
	"time"

	"github.com/google/uuid"
)

// ──────────────────── Reference Entities ────────────────────

// RefEntity is a name-keyed lookup row. Studios, labels, actresses and
// genres all share this shape; the name is unique within each table.
type RefEntity struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ──────────────────── Video ────────────────────

type Video struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	Code        string     `json:"code" db:"code"`
	Title       string     `json:"title" db:"title"`
	ReleaseDate *time.Time `json:"release_date,omitempty" db:"release_date"`
	CoverURL    *string    `json:"cover_url,omitempty" db:"cover_url"`
	LocalCover  *string    `json:"local_cover,omitempty" db:"local_cover"`
	Rating      *float64   `json:"rating,omitempty" db:"rating"`
	SourceURL   *string    `json:"source_url,omitempty" db:"source_url"`
	StudioID    *uuid.UUID `json:"studio_id,omitempty" db:"studio_id"`
	LabelID     *uuid.UUID `json:"label_id,omitempty" db:"label_id"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`

	// Loaded associations (not columns of the videos table)
	Studio         *RefEntity      `json:"studio,omitempty"`
	Label          *RefEntity      `json:"label,omitempty"`
	Actresses      []RefEntity     `json:"actresses"`
	Genres         []RefEntity     `json:"genres"`
	StreamingLinks []StreamingLink `json:"streaming_links"`
}

// ──────────────────── Streaming Link ────────────────────

// StreamingLink is attached opportunistically: VideoID is set when a video
// with the same code exists at bind time, and left null otherwise.
type StreamingLink struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	Code      string     `json:"code" db:"code"`
	URL       string     `json:"url" db:"url"`
	Source    string     `json:"source" db:"source"`
	VideoID   *uuid.UUID `json:"video_id,omitempty" db:"video_id"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}
