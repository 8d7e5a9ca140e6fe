package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"
)

// JobStatus represents the state of an ingestion job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusExtracting JobStatus = "extracting"
	StatusRendering  JobStatus = "rendering"
	StatusChunking   JobStatus = "chunking"
	StatusUploading  JobStatus = "uploading"
	StatusImporting  JobStatus = "importing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusPartial    JobStatus = "partial"
	StatusDupSkipped JobStatus = "duplicate_skipped"
)

// IndexMode controls how a document is materialized in the datastore.
type IndexMode string

const (
	// ModeDocument uploads one combined HTML document; the search backend
	// re-chunks it server side.
	ModeDocument IndexMode = "document"
	// ModePages uploads one HTML document per page.
	ModePages IndexMode = "pages"
	// ModeChunks chunks locally and uploads one object per chunk.
	ModeChunks IndexMode = "chunks"
)

// ValidIndexMode reports whether s names a known index mode.
func ValidIndexMode(s string) bool {
	switch IndexMode(s) {
	case ModeDocument, ModePages, ModeChunks:
		return true
	}
	return false
}

// Job tracks the state of a single document ingestion.
type Job struct {
	mu sync.Mutex

	ID    string `json:"job_id"`
	DocID string `json:"doc_id"`

	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Filename string    `json:"filename"`
	Title    string    `json:"title"`

	Mode         IndexMode `json:"mode"`
	ChunkSize    int       `json:"chunk_size,omitempty"`
	ChunkOverlap int       `json:"chunk_overlap,omitempty"`
	Force        bool      `json:"force,omitempty"`

	Progress Progress `json:"progress"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	fileData []byte
	errors   []string
}

// Progress tracks processing progress.
type Progress struct {
	PagesExtracted  int      `json:"pages_extracted"`
	TotalObjects    int      `json:"total_objects"`
	ObjectsUploaded int      `json:"objects_uploaded"`
	Errors          []string `json:"errors"`
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		if now.Sub(job.UpdatedAt) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetPagesExtracted records the extracted page count.
func (j *Job) SetPagesExtracted(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.PagesExtracted = n
	j.UpdatedAt = time.Now()
}

// SetTotalObjects records how many objects this job will upload.
func (j *Job) SetTotalObjects(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.TotalObjects = n
	j.UpdatedAt = time.Now()
}

// IncrObjectsUploaded atomically increments the uploaded object count.
func (j *Job) IncrObjectsUploaded() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.ObjectsUploaded++
	j.UpdatedAt = time.Now()
}

// SetContentHash records the content hash and the derived document ID.
func (j *Job) SetContentHash(hash string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ContentHash = hash
	j.DocID = hash
	j.UpdatedAt = time.Now()
}

// SetFileData sets the raw file bytes for processing.
func (j *Job) SetFileData(data []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fileData = data
}

// FileData returns the raw file bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string    `json:"job_id"`
	DocID       string    `json:"doc_id"`
	Status      JobStatus `json:"status"`
	Phase       string    `json:"phase"`
	Filename    string    `json:"filename"`
	Title       string    `json:"title"`
	Mode        IndexMode `json:"mode"`
	ContentHash string    `json:"content_hash,omitempty"`
	Progress    Progress  `json:"progress"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := j.Progress.Errors
	if errs == nil {
		errs = []string{}
	}
	return JobSnapshot{
		ID:          j.ID,
		DocID:       j.DocID,
		Status:      j.Status,
		Phase:       j.Phase,
		Filename:    j.Filename,
		Title:       j.Title,
		Mode:        j.Mode,
		ContentHash: j.ContentHash,
		Progress: Progress{
			PagesExtracted:  j.Progress.PagesExtracted,
			TotalObjects:    j.Progress.TotalObjects,
			ObjectsUploaded: j.Progress.ObjectsUploaded,
			Errors:          errs,
		},
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
