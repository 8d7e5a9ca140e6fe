package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dgallion1/docsearch/internal/annotate"
)

type queryRequest struct {
	Query    string `json:"query"`
	PageSize int    `json:"page_size"`
}

type askRequest struct {
	Question string `json:"question"`
	PageSize int    `json:"page_size"`
}

// handleQuery searches the datastore and returns annotated chunks.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		jsonError(w, "query is required", http.StatusBadRequest)
		return
	}

	chunks, err := s.retrieve(r.Context(), req.Query, req.PageSize)
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		s.log.Error("search failed", "query", req.Query, "error", err)
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(map[string]any{
			"error":         "search failed: " + err.Error(),
			"chunks":        []annotate.RetrievedChunk{},
			"query":         req.Query,
			"total_results": 0,
		})
		return
	}

	json.NewEncoder(w).Encode(map[string]any{
		"chunks":        chunks,
		"query":         req.Query,
		"total_results": len(chunks),
	})
}

// handleAsk retrieves chunks for the question and asks the model for a
// grounded answer.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Question == "" {
		jsonError(w, "question is required", http.StatusBadRequest)
		return
	}
	if s.claude == nil {
		jsonError(w, "answering is not configured", http.StatusServiceUnavailable)
		return
	}

	chunks, err := s.retrieve(r.Context(), req.Question, req.PageSize)
	if err != nil {
		s.log.Error("search failed", "question", req.Question, "error", err)
		jsonError(w, "search failed: "+err.Error(), http.StatusBadGateway)
		return
	}

	text, err := s.claude.Answer(r.Context(), req.Question, chunks)
	if err != nil {
		s.log.Error("answer failed", "question", req.Question, "error", err)
		jsonError(w, "answer failed: "+err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"answer":   text,
		"question": req.Question,
		"chunks":   chunks,
	})
}

// retrieve runs a search and annotates each non-empty hit with title, uri
// and page metadata.
func (s *Server) retrieve(ctx context.Context, query string, pageSize int) ([]annotate.RetrievedChunk, error) {
	if pageSize <= 0 {
		pageSize = s.cfg.SearchPageSize
	}

	resp, err := s.orchestrator.StoreClient().Search(ctx, query, pageSize)
	if err != nil {
		return nil, err
	}

	chunks := make([]annotate.RetrievedChunk, 0, len(resp.Results))
	for _, result := range resp.Results {
		if result.Chunk.Content == "" {
			continue
		}
		chunks = append(chunks, annotate.Chunk(result.Chunk.Content, annotate.DocumentMeta{
			ID:      result.Document.ID,
			Struct:  result.Document.StructData,
			Derived: result.Document.DerivedStructData,
		}))
	}
	return chunks, nil
}
