package model

import (
	"time"

	"github.com/google/uuid"
)

// RenderRequest is the unit of work for one rendering pass.
type RenderRequest struct {
	ID        uuid.UUID  `json:"id"`
	Post      Post       `json:"post"`
	Template  TemplateID `json:"template"`
	Logo      string     `json:"logo,omitempty"`       // data URI or remote URL
	SiteLabel string     `json:"site_label,omitempty"` // printed on boxed templates
}

// Rendered is the flattened graphic produced by a completed pass.
type Rendered struct {
	RenderID     uuid.UUID  `json:"render_id"`
	PostID       int64      `json:"post_id"`
	Template     TemplateID `json:"template"`
	PNG          []byte     `json:"-"`
	Width        int        `json:"width"`
	Height       int        `json:"height"`
	FallbackLogo bool       `json:"fallback_logo"` // built-in logo was drawn
	Attempt      int        `json:"attempt"`       // 1, or 2 after the logo retry
	CreatedAt    time.Time  `json:"created_at"`
}

// RenderedEvent is published once a rendered graphic has been stored.
type RenderedEvent struct {
	RenderID     uuid.UUID  `json:"render_id"`
	PostID       int64      `json:"post_id"`
	Template     TemplateID `json:"template"`
	Path         string     `json:"path"`
	FallbackLogo bool       `json:"fallback_logo"`
	CreatedAt    time.Time  `json:"created_at"`
}
