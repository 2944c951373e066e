package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"
)

// JobStatus represents the state of a pagination job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusParsing   JobStatus = "parsing"
	StatusFlowing   JobStatus = "flowing"
	StatusRendering JobStatus = "rendering"
	StatusStoring   JobStatus = "storing"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
)

// Done reports whether the status is terminal.
func (s JobStatus) Done() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Upload is one submitted file.
type Upload struct {
	Filename string
	Data     []byte
}

// Request carries the per-job overrides of the service defaults.
type Request struct {
	Pagination      string `json:"pagination,omitempty"`
	Box             string `json:"box,omitempty"`
	ContentSelector string `json:"content_selector,omitempty"`
	PageSelector    string `json:"page_selector,omitempty"`
	SectionLevel    int    `json:"section_level,omitempty"`
}

// Job tracks the state of a single pagination run.
type Job struct {
	mu sync.Mutex

	ID string `json:"job_id"`

	Status    JobStatus `json:"status"`
	Phase     string    `json:"phase"`
	Templates string    `json:"templates"`
	Files     []string  `json:"files"`
	Request   Request   `json:"request"`

	Progress Progress `json:"progress"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	templates Upload
	files     []Upload
	errors    []string
}

// Progress tracks processing progress.
type Progress struct {
	FilesTotal  int      `json:"files_total"`
	FilesParsed int      `json:"files_parsed"`
	Items       int      `json:"items"`
	Pages       int      `json:"pages"`
	Splits      int      `json:"splits"`
	Diagnostics []string `json:"diagnostics"`
	Errors      []string `json:"errors"`
}

// NewJob creates a queued job for a template document and its content files.
func NewJob(templates Upload, files []Upload, req Request) *Job {
	now := time.Now()
	j := &Job{
		ID:        NewJobID(),
		Status:    StatusQueued,
		Phase:     "queued",
		Templates: templates.Filename,
		Request:   req,
		CreatedAt: now,
		UpdatedAt: now,
		templates: templates,
		files:     files,
	}
	h := sha256.New()
	h.Write(templates.Data)
	for _, f := range files {
		j.Files = append(j.Files, f.Filename)
		h.Write(f.Data)
	}
	j.ContentHash = fmt.Sprintf("%x", h.Sum(nil))
	j.Progress.FilesTotal = len(files)
	return j
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

func (s *JobStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
}

// Cleanup removes finished jobs not updated within the TTL and returns their ids.
func (s *JobStore) Cleanup() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	var removed []string
	for id, job := range s.jobs {
		snap := job.Snapshot()
		if snap.Status.Done() && now.Sub(snap.UpdatedAt) > s.ttl {
			delete(s.jobs, id)
			removed = append(removed, id)
		}
	}
	return removed
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

// IncrFilesParsed atomically increments the parsed file count and adds the
// file's content items.
func (j *Job) IncrFilesParsed(items int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.FilesParsed++
	j.Progress.Items += items
	j.UpdatedAt = time.Now()
}

// SetRunResult records the outcome of the flow run.
func (j *Job) SetRunResult(pages, splits int, diagnostics []string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Pages = pages
	j.Progress.Splits = splits
	j.Progress.Diagnostics = append([]string(nil), diagnostics...)
	j.UpdatedAt = time.Now()
}

// Inputs returns the uploaded template document and content files.
func (j *Job) Inputs() (Upload, []Upload) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.templates, j.files
}

// releaseInputs drops the uploaded bytes once they are no longer needed.
func (j *Job) releaseInputs() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.templates.Data = nil
	for i := range j.files {
		j.files[i].Data = nil
	}
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string    `json:"job_id"`
	Status      JobStatus `json:"status"`
	Phase       string    `json:"phase"`
	Templates   string    `json:"templates"`
	Files       []string  `json:"files"`
	Request     Request   `json:"request"`
	Progress    Progress  `json:"progress"`
	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := append([]string{}, j.Progress.Errors...)
	diags := append([]string{}, j.Progress.Diagnostics...)
	files := append([]string{}, j.Files...)
	p := j.Progress
	p.Errors = errs
	p.Diagnostics = diags
	return JobSnapshot{
		ID:          j.ID,
		Status:      j.Status,
		Phase:       j.Phase,
		Templates:   j.Templates,
		Files:       files,
		Request:     j.Request,
		Progress:    p,
		ContentHash: j.ContentHash,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
}
