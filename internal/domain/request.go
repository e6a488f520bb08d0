package domain

// IndexDocInput is one document submitted for brand kit indexing. Tags are
// stored joined with commas.
type IndexDocInput struct {
	Title   string   `json:"title"`
	Source  string   `json:"source,omitempty"`
	Content string   `json:"content"`
	Tags    []string `json:"tags,omitempty"`
}

// IndexDocsRequest represents the request to index brand kit documents.
type IndexDocsRequest struct {
	Docs               []IndexDocInput `json:"docs"`
	EmbeddingDimension int             `json:"embedding_dimension,omitempty"`
}

// IndexDocsResponse represents the response from indexing documents.
type IndexDocsResponse struct {
	OK      bool    `json:"ok"`
	Indexed int     `json:"indexed"`
	DocIDs  []int64 `json:"doc_ids"`
}

// TaskRequest represents the request to plan a new task.
type TaskRequest struct {
	Task string `json:"task"`
	TopK int    `json:"top_k,omitempty"`
}

// ContextChunk is one retrieved brand kit chunk handed to the planner.
type ContextChunk struct {
	DocID   int64   `json:"doc_id"`
	Title   string  `json:"title"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// TaskResponse represents the response from planning a task.
type TaskResponse struct {
	RunID int64          `json:"run_id"`
	Plan  *Plan          `json:"plan"`
	Ctx   []ContextChunk `json:"ctx"`
}

// AdvanceResponse represents the response from advancing a run by one step.
// ExecutedStepID is nil when the plan was already complete, and names the
// attempted step otherwise, including when that attempt failed.
type AdvanceResponse struct {
	RunID          int64     `json:"run_id"`
	Status         RunStatus `json:"status"`
	ExecutedStepID *string   `json:"executed_step_id"`
}

// CloseSessionResponse represents the response from closing a run's session.
type CloseSessionResponse struct {
	OK    bool  `json:"ok"`
	RunID int64 `json:"run_id"`
}

// RunDetail is the full view of a run: row, decoded plan and ordered log.
type RunDetail struct {
	Run  *Run     `json:"run"`
	Plan *Plan    `json:"plan"`
	Logs []RunLog `json:"logs"`
}
