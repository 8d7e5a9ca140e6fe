// Package searchstore is the HTTP client for the hosted search service:
// object storage for rendered documents, metadata-driven imports into a
// datastore, and chunk-mode search over it.
package searchstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client communicates with the search service HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	bucket     string
	datastore  string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey, bucket, datastore string) *Client {
	return &Client{
		baseURL:   baseURL,
		apiKey:    apiKey,
		bucket:    bucket,
		datastore: datastore,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ObjectURI returns the storage URI an uploaded object is addressed by.
func (c *Client) ObjectURI(name string) string {
	return fmt.Sprintf("ss://%s/%s", c.bucket, name)
}

// UploadObject stores a blob in the service's object bucket and returns
// its storage URI.
func (c *Client) UploadObject(ctx context.Context, name, contentType string, data []byte) (string, error) {
	u := fmt.Sprintf("%s/objects/%s/%s", c.baseURL, url.PathEscape(c.bucket), name)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, u, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("upload object: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", statusError("upload object "+name, resp)
	}
	return c.ObjectURI(name), nil
}

// ImportRequest asks the datastore to ingest the documents listed in a
// metadata JSONL object. Reconciliation is incremental: existing
// documents with the same id are updated, others are left alone.
type ImportRequest struct {
	MetadataURI    string `json:"metadata_uri"`
	DataSchema     string `json:"data_schema"`
	Reconciliation string `json:"reconciliation_mode"`
}

// ImportDocuments triggers an incremental import from an uploaded
// metadata.jsonl object. The service fetches each document's content from
// its storage URI and re-chunks it on its side.
func (c *Client) ImportDocuments(ctx context.Context, metadataURI string) error {
	body, err := json.Marshal(ImportRequest{
		MetadataURI:    metadataURI,
		DataSchema:     "document",
		Reconciliation: "INCREMENTAL",
	})
	if err != nil {
		return fmt.Errorf("marshal import request: %w", err)
	}

	u := fmt.Sprintf("%s/datastores/%s/documents:import", c.baseURL, url.PathEscape(c.datastore))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("import documents: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &RetryableError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return statusError("import documents", resp)
	}
	return nil
}

// SearchRequest is the body for POST /datastores/{id}/search.
type SearchRequest struct {
	Query    string `json:"query"`
	PageSize int    `json:"page_size"`
}

// SearchResult is one chunk-mode hit: the chunk content plus the metadata
// of the document it came from.
type SearchResult struct {
	Document DocumentRecord `json:"document"`
	Chunk    ChunkContent   `json:"chunk"`
}

// DocumentRecord is the document-level metadata returned with each hit.
type DocumentRecord struct {
	ID                string         `json:"id"`
	StructData        map[string]any `json:"struct_data,omitempty"`
	DerivedStructData map[string]any `json:"derived_struct_data,omitempty"`
}

// ChunkContent is the retrieval unit returned by chunk-mode search.
type ChunkContent struct {
	Content string `json:"content"`
}

// SearchResponse is the full result set for one query.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
}

// Search runs a chunk-mode query against the datastore.
func (c *Client) Search(ctx context.Context, query string, pageSize int) (*SearchResponse, error) {
	body, err := json.Marshal(SearchRequest{Query: query, PageSize: pageSize})
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	u := fmt.Sprintf("%s/datastores/%s/search", c.baseURL, url.PathEscape(c.datastore))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, statusError("search", resp)
	}

	var result SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return &result, nil
}

// ListDocuments returns document records in the datastore, optionally
// filtered by content hash (used for ingest dedup).
func (c *Client) ListDocuments(ctx context.Context, contentHash string, limit int) ([]DocumentRecord, error) {
	u := fmt.Sprintf("%s/datastores/%s/documents", c.baseURL, url.PathEscape(c.datastore))
	q := url.Values{}
	if contentHash != "" {
		q.Set("content_hash", contentHash)
	}
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, statusError("list documents", resp)
	}

	var result struct {
		Documents []DocumentRecord `json:"documents"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode documents: %w", err)
	}
	return result.Documents, nil
}

// FindByHash returns the first document whose content hash matches, or
// nil when none exists.
func (c *Client) FindByHash(ctx context.Context, contentHash string) (*DocumentRecord, error) {
	docs, err := c.ListDocuments(ctx, contentHash, 1)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return &docs[0], nil
}

// DeleteDocument removes a document from the datastore.
func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	u := fmt.Sprintf("%s/datastores/%s/documents/%s", c.baseURL, url.PathEscape(c.datastore), url.PathEscape(id))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return statusError("delete document "+id, resp)
	}
	return nil
}

// RetryableError indicates a transient service failure worth retrying.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	msg := e.Message
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, msg)
}

func statusError(op string, resp *http.Response) error {
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return fmt.Errorf("%s: status %d: %s", op, resp.StatusCode, string(respBody))
}

// Close releases any resources.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
