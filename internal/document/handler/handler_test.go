package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/document"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/middleware"
)

type fakeService struct {
	docs    map[int64]document.Document
	nextID  int64
	deleted []int64
}

func newFakeService() *fakeService {
	return &fakeService{docs: make(map[int64]document.Document)}
}

func (s *fakeService) Create(_ context.Context, ownerID int64, req document.Request) (*document.Document, error) {
	if err := document.Validate(req); err != nil {
		return nil, err
	}
	s.nextID++
	d := document.Document{ID: s.nextID, Title: req.Title, Content: req.Content, OwnerID: ownerID, Status: document.StatusReady}
	s.docs[d.ID] = d
	return &d, nil
}

func (s *fakeService) Update(ctx context.Context, id, ownerID int64, req document.Request) (*document.Document, error) {
	d, err := s.Get(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	d.Title = req.Title
	s.docs[id] = *d
	return d, nil
}

func (s *fakeService) Get(_ context.Context, id, ownerID int64) (*document.Document, error) {
	d, ok := s.docs[id]
	if !ok || d.OwnerID != ownerID {
		return nil, apperrors.DocumentNotFound(id)
	}
	return &d, nil
}

func (s *fakeService) List(_ context.Context, ownerID int64) ([]document.Document, error) {
	var out []document.Document
	for _, d := range s.docs {
		if d.OwnerID == ownerID {
			out = append(out, d)
		}
	}
	if len(out) == 0 {
		return nil, apperrors.New(apperrors.ErrDocumentNotFound, http.StatusNotFound, "user does not have any documents loaded")
	}
	return out, nil
}

func (s *fakeService) Delete(ctx context.Context, id, ownerID int64) error {
	if _, err := s.Get(ctx, id, ownerID); err != nil {
		return err
	}
	delete(s.docs, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *fakeService) DeleteAll(_ context.Context, ownerID int64) error {
	n := 0
	for id, d := range s.docs {
		if d.OwnerID == ownerID {
			delete(s.docs, id)
			n++
		}
	}
	if n == 0 {
		return apperrors.New(apperrors.ErrDocumentNotFound, http.StatusNotFound, "no documents")
	}
	return nil
}

func newServer(svc DocumentService) http.Handler {
	mux := http.NewServeMux()
	New(svc).Register(mux)
	return middleware.Chain(mux, middleware.Owner("/documents"))
}

func do(t *testing.T, h http.Handler, method, path, owner, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if owner != "" {
		req.Header.Set(middleware.OwnerHeader, owner)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreateAndGet(t *testing.T) {
	h := newServer(newFakeService())

	rec := do(t, h, http.MethodPost, "/documents", "1", `{"title":"Doc A","content":"java"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var dto document.DTO
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&dto))
	assert.Equal(t, document.DTO{ID: 1, Title: "Doc A", Status: document.StatusReady}, dto)

	rec = do(t, h, http.MethodGet, "/documents/1", "1", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/documents/1", "2", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body apperrors.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, apperrors.CodeDocumentNotFound, body.Code)
}

func TestCreateValidation(t *testing.T) {
	h := newServer(newFakeService())
	cases := []struct {
		name, owner, body string
	}{
		{"missing owner", "", `{"title":"a","content":"b"}`},
		{"bad owner", "abc", `{"title":"a","content":"b"}`},
		{"bad json", "1", `{`},
		{"blank title", "1", `{"title":" ","content":"b"}`},
		{"long title", "1", `{"title":"` + strings.Repeat("x", 101) + `","content":"b"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/documents", tc.owner, tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestListUpdateAndDelete(t *testing.T) {
	svc := newFakeService()
	h := newServer(svc)

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/documents/all", "1", "").Code)

	do(t, h, http.MethodPost, "/documents", "1", `{"title":"a","content":"x"}`)
	do(t, h, http.MethodPost, "/documents", "1", `{"title":"b","content":"y"}`)

	rec := do(t, h, http.MethodGet, "/documents/all", "1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []document.DTO
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	assert.Len(t, list, 2)

	rec = do(t, h, http.MethodPut, "/documents/2", "1", `{"title":"b2","content":"y"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "b2", svc.docs[2].Title)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodDelete, "/documents/delete/x", "1", "").Code)

	rec = do(t, h, http.MethodDelete, "/documents/delete/1", "1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, rec.Body.Len())
	assert.Equal(t, []int64{1}, svc.deleted)

	rec = do(t, h, http.MethodDelete, "/documents/delete/all", "1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, rec.Body.Len())
	assert.Empty(t, svc.docs)

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodDelete, "/documents/delete/all", "1", "").Code)
}
