package document

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
)

// Repository persists documents. Find methods report a missing row as
// (nil, nil).
type Repository interface {
	Create(ctx context.Context, doc *Document) error
	Update(ctx context.Context, doc *Document) error
	UpdateStatus(ctx context.Context, id int64, status Status) error
	FindByIDAndOwnerID(ctx context.Context, id, ownerID int64) (*Document, error)
	FindAllByOwner(ctx context.Context, ownerID int64) ([]Document, error)
	FindAll(ctx context.Context) ([]Document, error)
	Delete(ctx context.Context, id, ownerID int64) error
	// DeleteAllByOwner removes every document of ownerID in one
	// transaction and returns the deleted ids.
	DeleteAllByOwner(ctx context.Context, ownerID int64) ([]int64, error)
}

// Indexer keeps the search index in step with the store.
type Indexer interface {
	Index(doc *Document) error
	Remove(docID int64)
}

// CacheInvalidator drops cached search pages of an owner.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, ownerID int64) error
}

// EventPublisher is implemented by *kafka.Producer.
type EventPublisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

type Service struct {
	repo      Repository
	indexer   Indexer
	cache     CacheInvalidator
	publisher EventPublisher
	logger    *slog.Logger
}

// NewService wires the lifecycle. cache and publisher may be nil.
func NewService(repo Repository, indexer Indexer, cache CacheInvalidator, publisher EventPublisher) *Service {
	return &Service{
		repo:      repo,
		indexer:   indexer,
		cache:     cache,
		publisher: publisher,
		logger:    slog.Default().With("component", "document-service"),
	}
}

// Create stores a new document as INDEXING, indexes it and marks it READY.
// When indexing fails the document is kept as FAILED and the error returned.
func (s *Service) Create(ctx context.Context, ownerID int64, req Request) (*Document, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	doc := &Document{
		Title:   req.Title,
		Content: req.Content,
		OwnerID: ownerID,
		Status:  StatusIndexing,
	}
	if err := s.repo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("creating document: %w", err)
	}
	if err := s.index(ctx, doc); err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("document created", "doc_id", doc.ID)
	return doc, nil
}

// Update replaces title and content of an existing document and re-indexes
// it.
func (s *Service) Update(ctx context.Context, id, ownerID int64, req Request) (*Document, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	doc, err := s.find(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	doc.Title = req.Title
	doc.Content = req.Content
	doc.Status = StatusIndexing
	if err := s.repo.Update(ctx, doc); err != nil {
		return nil, fmt.Errorf("updating document %d: %w", id, err)
	}
	if err := s.index(ctx, doc); err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("document updated", "doc_id", doc.ID)
	return doc, nil
}

func (s *Service) Get(ctx context.Context, id, ownerID int64) (*Document, error) {
	return s.find(ctx, id, ownerID)
}

// List returns every document of ownerID. An owner without documents is
// reported as not found.
func (s *Service) List(ctx context.Context, ownerID int64) ([]Document, error) {
	docs, err := s.repo.FindAllByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	if len(docs) == 0 {
		return nil, apperrors.New(apperrors.ErrDocumentNotFound, http.StatusNotFound, "user does not have any documents loaded")
	}
	return docs, nil
}

func (s *Service) Delete(ctx context.Context, id, ownerID int64) error {
	logger.FromContext(ctx).Debug("deleting document", "doc_id", id)
	if _, err := s.find(ctx, id, ownerID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id, ownerID); err != nil {
		return fmt.Errorf("deleting document %d: %w", id, err)
	}
	s.indexer.Remove(id)
	s.invalidate(ctx, ownerID)
	s.publish(ctx, EventRemoved, id, ownerID, "")
	logger.FromContext(ctx).Info("document deleted", "doc_id", id)
	return nil
}

func (s *Service) DeleteAll(ctx context.Context, ownerID int64) error {
	ids, err := s.repo.DeleteAllByOwner(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("deleting documents: %w", err)
	}
	if len(ids) == 0 {
		return apperrors.New(apperrors.ErrDocumentNotFound, http.StatusNotFound, "cannot delete documents: user does not have any documents loaded")
	}
	for _, id := range ids {
		s.indexer.Remove(id)
		s.publish(ctx, EventRemoved, id, ownerID, "")
	}
	s.invalidate(ctx, ownerID)
	logger.FromContext(ctx).Info("all documents deleted", "count", len(ids))
	return nil
}

func (s *Service) find(ctx context.Context, id, ownerID int64) (*Document, error) {
	doc, err := s.repo.FindByIDAndOwnerID(ctx, id, ownerID)
	if err != nil {
		return nil, fmt.Errorf("loading document %d: %w", id, err)
	}
	if doc == nil {
		return nil, apperrors.DocumentNotFound(id)
	}
	return doc, nil
}

// index moves doc from INDEXING to READY or FAILED. A FAILED document is
// taken out of the index so stale postings of an earlier version do not
// match. Cached pages are dropped only once the new status is stored, so a
// search racing the write cannot repopulate the cache with INDEXING.
func (s *Service) index(ctx context.Context, doc *Document) error {
	if err := s.indexer.Index(doc); err != nil {
		logger.FromContext(ctx).Error("failed to index document", "doc_id", doc.ID, "error", err)
		s.indexer.Remove(doc.ID)
		doc.Status = StatusFailed
		if serr := s.repo.UpdateStatus(ctx, doc.ID, StatusFailed); serr != nil {
			s.logger.Error("failed to mark document as failed", "doc_id", doc.ID, "error", serr)
		}
		s.invalidate(ctx, doc.OwnerID)
		s.publish(ctx, EventFailed, doc.ID, doc.OwnerID, StatusFailed)
		return fmt.Errorf("indexing document %d: %w", doc.ID, err)
	}

	err := s.repo.UpdateStatus(ctx, doc.ID, StatusReady)
	s.invalidate(ctx, doc.OwnerID)
	if err != nil {
		return fmt.Errorf("marking document %d ready: %w", doc.ID, err)
	}
	doc.Status = StatusReady
	s.publish(ctx, EventIndexed, doc.ID, doc.OwnerID, StatusReady)
	return nil
}

func (s *Service) invalidate(ctx context.Context, ownerID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, ownerID); err != nil {
		s.logger.Warn("cache invalidation failed", "owner_id", ownerID, "error", err)
	}
}

func (s *Service) publish(ctx context.Context, typ string, docID, ownerID int64, status Status) {
	if s.publisher == nil {
		return
	}
	event := kafka.Event{
		Key: strconv.FormatInt(ownerID, 10),
		Value: Event{
			Type:       typ,
			DocumentID: docID,
			OwnerID:    ownerID,
			Status:     status,
			OccurredAt: time.Now().UTC(),
		},
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish document event", "type", typ, "doc_id", docID, "error", err)
	}
}
