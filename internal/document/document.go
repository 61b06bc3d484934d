// Package document defines the document entity, its validation rules and the
// lifecycle service that persists documents and keeps the search index in
// step with the store.
package document

import "time"

// Status is the indexing state of a stored document.
type Status string

const (
	StatusNew      Status = "NEW"
	StatusIndexing Status = "INDEXING"
	StatusReady    Status = "READY"
	StatusFailed   Status = "FAILED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusIndexing, StatusReady, StatusFailed:
		return true
	}
	return false
}

// Document is a stored, owner-scoped text document.
type Document struct {
	ID        int64
	Title     string
	Content   string
	OwnerID   int64
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Request is the body accepted when creating or updating a document.
type Request struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// DTO is the outward view of a document.
type DTO struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Status Status `json:"status"`
}

func (d *Document) DTO() DTO {
	return DTO{ID: d.ID, Title: d.Title, Status: d.Status}
}

// Event is published on the document-events topic after a lifecycle change.
type Event struct {
	Type       string    `json:"type"`
	DocumentID int64     `json:"document_id"`
	OwnerID    int64     `json:"owner_id"`
	Status     Status    `json:"status,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

const (
	EventIndexed = "document.indexed"
	EventFailed  = "document.failed"
	EventRemoved = "document.removed"
)
