package notes

// CreateNoteRequest attaches a note to a case.
type CreateNoteRequest struct {
	Content string `json:"content" validate:"required"`
	CaseID  int64  `json:"case_id" validate:"required,gt=0"`
}

// UpdateNoteRequest rewrites a note's content.
type UpdateNoteRequest struct {
	Content string `json:"content" validate:"required"`
}
