// Package handler exposes the document lifecycle over HTTP. Every route
// expects the owner id placed in the context by middleware.Owner.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/document"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/middleware"
)

// DocumentService is implemented by *document.Service.
type DocumentService interface {
	Create(ctx context.Context, ownerID int64, req document.Request) (*document.Document, error)
	Update(ctx context.Context, id, ownerID int64, req document.Request) (*document.Document, error)
	Get(ctx context.Context, id, ownerID int64) (*document.Document, error)
	List(ctx context.Context, ownerID int64) ([]document.Document, error)
	Delete(ctx context.Context, id, ownerID int64) error
	DeleteAll(ctx context.Context, ownerID int64) error
}

type Handler struct {
	service DocumentService
	logger  *slog.Logger
}

func New(service DocumentService) *Handler {
	return &Handler{
		service: service,
		logger:  slog.Default().With("component", "document-handler"),
	}
}

// Register mounts the document routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /documents", h.Create)
	mux.HandleFunc("GET /documents/all", h.List)
	mux.HandleFunc("GET /documents/{id}", h.Get)
	mux.HandleFunc("PUT /documents/{id}", h.Update)
	mux.HandleFunc("DELETE /documents/delete/all", h.DeleteAll)
	mux.HandleFunc("DELETE /documents/delete/{id}", h.Delete)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	doc, err := h.service.Create(r.Context(), ownerID, req)
	if err != nil {
		h.fail(w, r, "create document failed", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, doc.DTO())
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	doc, err := h.service.Update(r.Context(), id, ownerID, req)
	if err != nil {
		h.fail(w, r, "update document failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, doc.DTO())
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	doc, err := h.service.Get(r.Context(), id, ownerID)
	if err != nil {
		h.fail(w, r, "get document failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, doc.DTO())
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	docs, err := h.service.List(r.Context(), ownerID)
	if err != nil {
		h.fail(w, r, "list documents failed", err)
		return
	}
	dtos := make([]document.DTO, 0, len(docs))
	for i := range docs {
		dtos = append(dtos, docs[i].DTO())
	}
	h.writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id, ownerID); err != nil {
		h.fail(w, r, "delete document failed", err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteAll(r.Context(), ownerID); err != nil {
		h.fail(w, r, "delete all documents failed", err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) owner(w http.ResponseWriter, r *http.Request) (int64, bool) {
	ownerID, ok := middleware.OwnerFromContext(r.Context())
	if !ok {
		apperrors.WriteJSON(w, http.StatusBadRequest, apperrors.CodeValidation, "missing "+middleware.OwnerHeader+" header")
	}
	return ownerID, ok
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		apperrors.WriteJSON(w, http.StatusBadRequest, apperrors.CodeValidation, "document id must be an integer")
		return 0, false
	}
	return id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (document.Request, bool) {
	var req document.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apperrors.WriteJSON(w, http.StatusBadRequest, apperrors.CodeValidation, "invalid JSON body")
		return req, false
	}
	return req, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status := apperrors.HTTPStatusCode(err)
	log := logger.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error(msg, "error", err, "status_code", status)
	} else {
		log.Info(msg, "error", err, "status_code", status)
	}
	apperrors.Write(w, err)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}
