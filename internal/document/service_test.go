package document

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
)

type memRepo struct {
	mu       sync.Mutex
	nextID   int64
	docs     map[int64]Document
	statuses []Status
}

func newMemRepo() *memRepo {
	return &memRepo{docs: make(map[int64]Document)}
}

func (r *memRepo) Create(_ context.Context, doc *Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	doc.ID = r.nextID
	r.docs[doc.ID] = *doc
	return nil
}

func (r *memRepo) Update(_ context.Context, doc *Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[doc.ID] = *doc
	return nil
}

func (r *memRepo) UpdateStatus(_ context.Context, id int64, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := r.docs[id]
	d.Status = status
	r.docs[id] = d
	r.statuses = append(r.statuses, status)
	return nil
}

func (r *memRepo) FindByIDAndOwnerID(_ context.Context, id, ownerID int64) (*Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[id]
	if !ok || d.OwnerID != ownerID {
		return nil, nil
	}
	return &d, nil
}

func (r *memRepo) FindAllByOwner(_ context.Context, ownerID int64) ([]Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Document
	for _, d := range r.docs {
		if d.OwnerID == ownerID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memRepo) FindAll(ctx context.Context) ([]Document, error) {
	return nil, errors.New("not used")
}

func (r *memRepo) Delete(_ context.Context, id, ownerID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.docs, id)
	return nil
}

func (r *memRepo) DeleteAllByOwner(_ context.Context, ownerID int64) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []int64
	for id, d := range r.docs {
		if d.OwnerID == ownerID {
			ids = append(ids, id)
			delete(r.docs, id)
		}
	}
	return ids, nil
}

type fakeIndexer struct {
	indexed map[int64]string
	removed []int64
	err     error
}

func (f *fakeIndexer) Index(doc *Document) error {
	if f.err != nil {
		return f.err
	}
	f.indexed[doc.ID] = doc.Content
	return nil
}

func (f *fakeIndexer) Remove(id int64) {
	delete(f.indexed, id)
	f.removed = append(f.removed, id)
}

type recorder struct {
	invalidated []int64
	events      []Event
}

func (r *recorder) Invalidate(_ context.Context, ownerID int64) error {
	r.invalidated = append(r.invalidated, ownerID)
	return nil
}

func (r *recorder) Publish(_ context.Context, e kafka.Event) error {
	r.events = append(r.events, e.Value.(Event))
	return nil
}

func newTestService() (*Service, *memRepo, *fakeIndexer, *recorder) {
	repo := newMemRepo()
	idx := &fakeIndexer{indexed: make(map[int64]string)}
	rec := &recorder{}
	return NewService(repo, idx, rec, rec), repo, idx, rec
}

func TestCreateIndexesAndMarksReady(t *testing.T) {
	svc, repo, idx, rec := newTestService()
	ctx := context.Background()

	doc, err := svc.Create(ctx, 7, Request{Title: "Doc A", Content: "java spring"})
	require.NoError(t, err)

	assert.Equal(t, StatusReady, doc.Status)
	assert.Equal(t, StatusReady, repo.docs[doc.ID].Status)
	assert.Equal(t, "java spring", idx.indexed[doc.ID])
	assert.Equal(t, []int64{7}, rec.invalidated)
	require.Len(t, rec.events, 1)
	assert.Equal(t, EventIndexed, rec.events[0].Type)
	assert.Equal(t, DTO{ID: doc.ID, Title: "Doc A", Status: StatusReady}, doc.DTO())
}

func TestCreateRejectsInvalidRequestWithoutSideEffects(t *testing.T) {
	svc, repo, _, rec := newTestService()
	_, err := svc.Create(context.Background(), 7, Request{Title: "", Content: "x"})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Empty(t, repo.docs)
	assert.Empty(t, rec.events)
}

func TestCreateMarksFailedWhenIndexingFails(t *testing.T) {
	svc, repo, idx, rec := newTestService()
	idx.err = apperrors.ErrInvalidDocument

	_, err := svc.Create(context.Background(), 7, Request{Title: "t", Content: "c"})
	require.ErrorIs(t, err, apperrors.ErrInvalidDocument)

	require.Len(t, repo.docs, 1)
	assert.Equal(t, StatusFailed, repo.docs[1].Status)
	assert.Equal(t, []Status{StatusFailed}, repo.statuses)
	require.Len(t, rec.events, 1)
	assert.Equal(t, EventFailed, rec.events[0].Type)
}

// statusAtInvalidate records the stored status of every document of the
// owner at the moment the cache is invalidated.
type statusAtInvalidate struct {
	repo *memRepo
	seen []Status
}

func (s *statusAtInvalidate) Invalidate(_ context.Context, ownerID int64) error {
	s.repo.mu.Lock()
	defer s.repo.mu.Unlock()
	for _, d := range s.repo.docs {
		if d.OwnerID == ownerID {
			s.seen = append(s.seen, d.Status)
		}
	}
	return nil
}

func TestCacheInvalidatedAfterStatusWrite(t *testing.T) {
	repo := newMemRepo()
	idx := &fakeIndexer{indexed: make(map[int64]string)}
	inv := &statusAtInvalidate{repo: repo}
	svc := NewService(repo, idx, inv, nil)
	ctx := context.Background()

	doc, err := svc.Create(ctx, 7, Request{Title: "t", Content: "c"})
	require.NoError(t, err)
	_, err = svc.Update(ctx, doc.ID, 7, Request{Title: "t", Content: "c2"})
	require.NoError(t, err)
	assert.Equal(t, []Status{StatusReady, StatusReady}, inv.seen)

	idx.err = apperrors.ErrInvalidDocument
	inv.seen = nil
	_, err = svc.Update(ctx, doc.ID, 7, Request{Title: "t", Content: "c3"})
	require.Error(t, err)
	assert.Equal(t, []Status{StatusFailed}, inv.seen)
}

func TestUpdateReindexes(t *testing.T) {
	svc, _, idx, _ := newTestService()
	ctx := context.Background()
	doc, err := svc.Create(ctx, 7, Request{Title: "t", Content: "old"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, doc.ID, 7, Request{Title: "t2", Content: "new"})
	require.NoError(t, err)
	assert.Equal(t, "t2", updated.Title)
	assert.Equal(t, "new", idx.indexed[doc.ID])

	_, err = svc.Update(ctx, doc.ID, 8, Request{Title: "t", Content: "x"})
	assert.ErrorIs(t, err, apperrors.ErrDocumentNotFound)
}

func TestGetAndListAreOwnerScoped(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	a, _ := svc.Create(ctx, 1, Request{Title: "a", Content: "a"})
	_, _ = svc.Create(ctx, 2, Request{Title: "b", Content: "b"})

	got, err := svc.Get(ctx, a.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, "a", got.Title)

	_, err = svc.Get(ctx, a.ID, 2)
	assert.ErrorIs(t, err, apperrors.ErrDocumentNotFound)

	docs, err := svc.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	_, err = svc.List(ctx, 3)
	assert.ErrorIs(t, err, apperrors.ErrDocumentNotFound)
}

func TestDeleteRemovesFromIndex(t *testing.T) {
	svc, repo, idx, rec := newTestService()
	ctx := context.Background()
	doc, _ := svc.Create(ctx, 1, Request{Title: "a", Content: "a"})

	assert.ErrorIs(t, svc.Delete(ctx, doc.ID, 2), apperrors.ErrDocumentNotFound)
	require.NoError(t, svc.Delete(ctx, doc.ID, 1))

	assert.Empty(t, repo.docs)
	assert.NotContains(t, idx.indexed, doc.ID)
	assert.Equal(t, EventRemoved, rec.events[len(rec.events)-1].Type)
	assert.ErrorIs(t, svc.Delete(ctx, doc.ID, 1), apperrors.ErrDocumentNotFound)
}

func TestDeleteAll(t *testing.T) {
	svc, repo, idx, _ := newTestService()
	ctx := context.Background()
	for range 3 {
		_, err := svc.Create(ctx, 1, Request{Title: "a", Content: "a"})
		require.NoError(t, err)
	}
	other, _ := svc.Create(ctx, 2, Request{Title: "b", Content: "b"})

	require.NoError(t, svc.DeleteAll(ctx, 1))
	assert.Len(t, repo.docs, 1)
	assert.Len(t, idx.indexed, 1)
	assert.Contains(t, idx.indexed, other.ID)

	assert.ErrorIs(t, svc.DeleteAll(ctx, 1), apperrors.ErrDocumentNotFound)
}
