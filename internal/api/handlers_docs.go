package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// handleListDocuments lists datastore documents, optionally filtered by
// content hash.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	contentHash := r.URL.Query().Get("content_hash")
	limit := 200
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	docs, err := s.orchestrator.StoreClient().ListDocuments(r.Context(), contentHash, limit)
	if err != nil {
		jsonError(w, "failed to list documents: "+err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"documents": docs})
}

// handleDeleteDocument removes a document from the datastore.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	if docID == "" {
		jsonError(w, "document id is required", http.StatusBadRequest)
		return
	}

	if err := s.orchestrator.StoreClient().DeleteDocument(r.Context(), docID); err != nil {
		jsonError(w, "failed to delete document: "+err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"deleted": docID})
}
