package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgallion1/docsearch/internal/chunker"
	"github.com/dgallion1/docsearch/internal/document"
	"github.com/dgallion1/docsearch/internal/extractor"
	"github.com/dgallion1/docsearch/internal/pagehtml"
	"github.com/dgallion1/docsearch/internal/searchstore"
)

// Worker processes a single document job.
type Worker struct {
	store    *searchstore.Client
	log      *slog.Logger
	chunkCfg chunker.Config

	maxConcurrentUpload int
	sitePrefix          string
	pdfFallback         bool
}

func NewWorker(store *searchstore.Client, log *slog.Logger, chunkCfg chunker.Config, maxUpload int, sitePrefix string, pdfFallback bool) *Worker {
	if maxUpload < 1 {
		maxUpload = 1
	}
	return &Worker{
		store:               store,
		log:                 log,
		chunkCfg:            chunkCfg,
		maxConcurrentUpload: maxUpload,
		sitePrefix:          sitePrefix,
		pdfFallback:         pdfFallback,
	}
}

// uploadItem is one object to push to the store plus its metadata record.
type uploadItem struct {
	name        string
	contentType string
	data        []byte
	meta        searchstore.Metadata
}

// Process runs the full ingest pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)

	// Phase 1: Extract
	job.SetStatus(StatusExtracting, "extracting")
	ex, err := extractor.ForFile(job.Filename)
	if err != nil {
		log.Error("unsupported format", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "extracting")
		return
	}
	if pdf, ok := ex.(*extractor.PDFExtractor); ok {
		pdf.FallbackPdftotext = w.pdfFallback
	}

	doc, err := ex.Extract(bytes.NewReader(job.FileData()), job.Filename)
	if err != nil {
		log.Error("extraction failed", "error", err)
		job.AddError(fmt.Sprintf("extract: %s", err))
		job.SetStatus(StatusFailed, "extracting")
		return
	}
	if job.Title != "" {
		doc.Title = job.Title
	}
	if doc.Title == "" {
		base := filepath.Base(job.Filename)
		doc.Title = strings.TrimSuffix(base, filepath.Ext(base))
	}
	job.SetPagesExtracted(len(doc.Pages))

	if !doc.HasText() {
		log.Warn("no text extracted, continuing with empty pages", "pages", len(doc.Pages))
	}

	// Document ID is the content hash of the extracted text, so the same
	// content always maps to the same datastore documents.
	job.SetContentHash(ContentHashHex([]byte(flattenDocText(doc))))
	log = log.With("doc_id", job.DocID)

	// Phase 1.5: Dedup check
	if !job.Force {
		existing, err := w.store.FindByHash(ctx, job.ContentHash)
		if err != nil {
			log.Warn("dedup check failed, proceeding", "error", err)
		} else if existing != nil {
			log.Info("duplicate document, skipping", "existing_doc_id", existing.ID)
			job.SetStatus(StatusDupSkipped, "dedup")
			return
		}
	}

	// Phase 2: Render
	job.SetStatus(StatusRendering, "rendering")
	items, err := w.buildItems(job, doc)
	if err != nil {
		log.Error("render failed", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "rendering")
		return
	}
	job.SetTotalObjects(len(items))
	log.Info("rendered document", "mode", job.Mode, "objects", len(items))

	// Phase 3: Upload objects with bounded concurrency.
	job.SetStatus(StatusUploading, "uploading")
	type uploadResult struct {
		err  error
		name string
	}
	sem := make(chan struct{}, w.maxConcurrentUpload)
	results := make(chan uploadResult, len(items))

	for _, item := range items {
		sem <- struct{}{}
		go func(item uploadItem) {
			defer func() { <-sem }()
			err := w.withRetry(ctx, log, "upload "+item.name, func() error {
				_, err := w.store.UploadObject(ctx, item.name, item.contentType, item.data)
				return err
			})
			results <- uploadResult{err: err, name: item.name}
		}(item)
	}

	uploaded := 0
	hadErrors := false
	for range items {
		r := <-results
		if r.err != nil {
			log.Error("upload failed", "object", r.name, "error", r.err)
			job.AddError(fmt.Sprintf("upload %s: %s", r.name, r.err))
			hadErrors = true
			continue
		}
		uploaded++
		job.IncrObjectsUploaded()
	}
	log.Info("uploads complete", "uploaded", uploaded, "total", len(items))

	if uploaded == 0 {
		job.SetStatus(StatusFailed, "uploading")
		return
	}

	// Phase 4: Upload the metadata manifest and trigger an import.
	job.SetStatus(StatusImporting, "importing")

	records := make([]searchstore.Metadata, 0, len(items))
	for _, item := range items {
		records = append(records, item.meta)
	}
	manifest, err := searchstore.EncodeJSONL(records)
	if err != nil {
		log.Error("metadata encoding failed", "error", err)
		job.AddError(fmt.Sprintf("metadata: %s", err))
		job.SetStatus(StatusFailed, "importing")
		return
	}

	manifestName := w.objectName(job.DocID, "metadata.jsonl")
	metadataURI, err := w.uploadManifest(ctx, log, manifestName, manifest)
	if err != nil {
		log.Error("metadata upload failed", "error", err)
		job.AddError(fmt.Sprintf("metadata upload: %s", err))
		job.SetStatus(StatusFailed, "importing")
		return
	}

	importErr := w.withRetry(ctx, log, "import", func() error {
		return w.store.ImportDocuments(ctx, metadataURI)
	})
	if importErr != nil {
		log.Error("import failed", "error", importErr)
		job.AddError(fmt.Sprintf("import: %s", importErr))
		job.SetStatus(StatusFailed, "importing")
		return
	}

	if hadErrors {
		job.SetStatus(StatusPartial, "done")
	} else {
		job.SetStatus(StatusCompleted, "done")
	}
}

// buildItems renders the document into uploadable objects for the job's
// index mode, each paired with its metadata record.
func (w *Worker) buildItems(job *Job, doc *document.Document) ([]uploadItem, error) {
	switch job.Mode {
	case ModePages:
		docs := pagehtml.Split(doc.Pages, doc.Title)
		items := make([]uploadItem, 0, len(docs))
		for i, html := range docs {
			page := doc.Pages[i].Number
			name := w.objectName(job.DocID, fmt.Sprintf("page-%04d.html", page))
			items = append(items, uploadItem{
				name:        name,
				contentType: "text/html",
				data:        []byte(html),
				meta: searchstore.Metadata{
					ID:      fmt.Sprintf("%s-p%04d", job.DocID, page),
					Content: searchstore.Content{MimeType: "text/html", URI: w.store.ObjectURI(name)},
					StructData: searchstore.StructData{
						Title:       doc.Title,
						SourceFile:  job.Filename,
						ContentHash: job.ContentHash,
						Page:        page,
					},
				},
			})
		}
		return items, nil

	case ModeChunks:
		cfg := w.chunkCfg
		if job.ChunkSize > 0 {
			cfg.ChunkSize = job.ChunkSize
		}
		if job.ChunkOverlap > 0 {
			cfg.ChunkOverlap = job.ChunkOverlap
		}
		chunks := chunker.Pages(doc, cfg)
		items := make([]uploadItem, 0, len(chunks))
		for _, chunk := range chunks {
			name := w.objectName(job.DocID, fmt.Sprintf("chunk-%04d.txt", chunk.Index))
			items = append(items, uploadItem{
				name:        name,
				contentType: "text/plain",
				data:        []byte(chunk.Text),
				meta: searchstore.Metadata{
					ID:      fmt.Sprintf("%s-c%04d", job.DocID, chunk.Index),
					Content: searchstore.Content{MimeType: "text/plain", URI: w.store.ObjectURI(name)},
					StructData: searchstore.StructData{
						Title:       doc.Title,
						SourceFile:  job.Filename,
						ContentHash: job.ContentHash,
						Page:        chunk.Page,
					},
				},
			})
		}
		return items, nil

	case ModeDocument, "":
		html := pagehtml.Combined(doc.Pages, doc.Title)
		name := w.objectName(job.DocID, "document.html")
		return []uploadItem{{
			name:        name,
			contentType: "text/html",
			data:        []byte(html),
			meta: searchstore.Metadata{
				ID:      job.DocID,
				Content: searchstore.Content{MimeType: "text/html", URI: w.store.ObjectURI(name)},
				StructData: searchstore.StructData{
					Title:       doc.Title,
					SourceFile:  job.Filename,
					ContentHash: job.ContentHash,
				},
			},
		}}, nil

	default:
		return nil, fmt.Errorf("unknown index mode: %s", job.Mode)
	}
}

func (w *Worker) uploadManifest(ctx context.Context, log *slog.Logger, name string, data []byte) (string, error) {
	var uri string
	err := w.withRetry(ctx, log, "upload "+name, func() error {
		u, err := w.store.UploadObject(ctx, name, "application/json", data)
		if err == nil {
			uri = u
		}
		return err
	})
	return uri, err
}

// withRetry runs fn, retrying retryable errors with jittered backoff.
func (w *Worker) withRetry(ctx context.Context, log *slog.Logger, op string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < MaxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil || !IsRetryable(lastErr) {
			return lastErr
		}
		log.Warn("retryable error", "op", op, "attempt", attempt, "error", lastErr)
		select {
		case <-time.After(Backoff(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

func (w *Worker) objectName(docID, suffix string) string {
	if w.sitePrefix != "" {
		return fmt.Sprintf("%s/%s/%s", w.sitePrefix, docID, suffix)
	}
	return fmt.Sprintf("%s/%s", docID, suffix)
}

// flattenDocText joins all page text and table cells into one string for
// content hashing.
func flattenDocText(doc *document.Document) string {
	var sb strings.Builder
	for _, page := range doc.Pages {
		if page.Text != "" {
			if sb.Len() > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(page.Text)
		}
		for _, table := range page.Tables {
			for _, row := range table.Rows {
				if sb.Len() > 0 {
					sb.WriteString("\n")
				}
				sb.WriteString(strings.Join(row, "\t"))
			}
		}
	}
	return sb.String()
}
