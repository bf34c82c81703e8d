package models

import (
	"time"

	"github.com/dmitrijs2005/betclever/internal/server/workflow"
)

// FileRef points at one uploaded blob.
type FileRef struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// Document is the per-(user, category) upload record.
type Document struct {
	ID         string
	UserID     string
	Category   workflow.DocumentCategory
	Files      []FileRef
	IsLocked   bool
	IsApproved bool
	UpdatedAt  time.Time
}

// Categories lists the categories present in docs.
func Categories(docs []Document) []workflow.DocumentCategory {
	out := make([]workflow.DocumentCategory, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Category)
	}
	return out
}
