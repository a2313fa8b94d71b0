package documents

// UpdateTemplateRequest changes template metadata; nil fields keep their
// current value.
type UpdateTemplateRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
}

// CreateFromTemplateRequest starts a case document from a template.
type CreateFromTemplateRequest struct {
	CaseID      int64   `json:"case_id" validate:"required,gt=0"`
	Description *string `json:"description"`
}

// RequestSignatureRequest asks a user to sign a document.
type RequestSignatureRequest struct {
	SignerID int64 `json:"signer_id" validate:"required,gt=0"`
}

// SignRequest completes a signature request addressed by token.
type SignRequest struct {
	Token         string `json:"token" validate:"required"`
	SignatureData string `json:"signature_data" validate:"required"`
}

// RejectRequest declines a signature request addressed by token.
type RejectRequest struct {
	Token  string `json:"token" validate:"required"`
	Reason string `json:"reason" validate:"required"`
}
