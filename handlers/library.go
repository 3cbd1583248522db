package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"vidrelay/internal/database"
	"vidrelay/models"
)

type libraryStore interface {
	Create(ctx context.Context, upstreamID, name, mimeHint string) (models.LibraryEntry, error)
	Get(ctx context.Context, id string) (models.LibraryEntry, error)
	List(ctx context.Context) ([]models.LibraryEntry, error)
	Delete(ctx context.Context, id string) (string, error)
}

type publisher interface {
	MakePublic(ctx context.Context, id string) error
}

type invalidator interface {
	Invalidate(fileID string)
}

var _ libraryStore = (*database.LibraryRepository)(nil)

// LibraryHandler manages the registry of locally known media entries.
type LibraryHandler struct {
	Store     libraryStore
	Publisher publisher
	Streaming invalidator
}

// NewLibraryHandler wires the library endpoints.
func NewLibraryHandler(store libraryStore, pub publisher, inv invalidator) *LibraryHandler {
	return &LibraryHandler{Store: store, Publisher: pub, Streaming: inv}
}

// List responds with all registered entries.
func (h *LibraryHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Store.List(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []models.LibraryEntry{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}

// Create registers an upstream file id under a display name and, best
// effort, makes the upstream object public so it can be streamed.
func (h *LibraryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var request struct {
		UpstreamID string `json:"upstreamId"`
		Name       string `json:"name"`
		MimeHint   string `json:"mimeHint"`
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&request); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(request.UpstreamID) == "" || strings.TrimSpace(request.Name) == "" {
		http.Error(w, "upstreamId and name are required", http.StatusBadRequest)
		return
	}

	entry, err := h.Store.Create(r.Context(), request.UpstreamID, request.Name, request.MimeHint)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if h.Publisher != nil {
		if err := h.Publisher.MakePublic(r.Context(), entry.UpstreamID); err != nil {
			// Serving does not depend on the permission change.
			log.Printf("[library] make public failed for %s: %v", entry.UpstreamID, err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(entry)
}

// Delete removes an entry and drops any cached metadata for its upstream
// file.
func (h *LibraryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	upstreamID, err := h.Store.Delete(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrEntryNotFound) {
			http.Error(w, "library entry not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if h.Streaming != nil {
		h.Streaming.Invalidate(upstreamID)
	}

	w.WriteHeader(http.StatusNoContent)
}
