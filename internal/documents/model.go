package documents

import "time"

// SignatureStatus tracks a signature request.
type SignatureStatus string

const (
	SignaturePending  SignatureStatus = "PENDING"
	SignatureSigned   SignatureStatus = "SIGNED"
	SignatureRejected SignatureStatus = "REJECTED"
	SignatureExpired  SignatureStatus = "EXPIRED"
)

// Document is a file attached to a case. The bytes live in blob storage
// under StorageKey; rows here carry only metadata.
type Document struct {
	ID             int64     `json:"id"`
	FileName       string    `json:"file_name"`
	StorageKey     string    `json:"-"`
	FileType       string    `json:"file_type"`
	FileSize       int64     `json:"file_size"`
	CurrentVersion int       `json:"current_version"`
	Description    *string   `json:"description,omitempty"`
	OCRText        *string   `json:"ocr_text,omitempty"`
	CaseID         int64     `json:"case_id"`
	UploadedBy     *int64    `json:"uploaded_by,omitempty"`
	UploadedAt     time.Time `json:"uploaded_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Version is one immutable revision of a document.
type Version struct {
	ID            int64     `json:"id"`
	DocumentID    int64     `json:"document_id"`
	VersionNumber int       `json:"version_number"`
	StorageKey    string    `json:"-"`
	FileName      string    `json:"file_name"`
	FileSize      int64     `json:"file_size"`
	Comment       *string   `json:"comment,omitempty"`
	UploadedBy    *int64    `json:"uploaded_by,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Template is a reusable starting file for new case documents. Inactive
// templates stay downloadable by ID but drop out of the listings.
type Template struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	StorageKey  string    `json:"-"`
	FileType    string    `json:"file_type"`
	Category    *string   `json:"category,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedBy   *int64    `json:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Signature is one signature request on a document, addressed by an
// unguessable token.
type Signature struct {
	ID              int64           `json:"id"`
	DocumentID      int64           `json:"document_id"`
	SignerID        int64           `json:"signer_id"`
	Status          SignatureStatus `json:"status"`
	Token           string          `json:"token"`
	SignatureData   *string         `json:"signature_data,omitempty"`
	SignedAt        *time.Time      `json:"signed_at,omitempty"`
	ExpiresAt       time.Time       `json:"expires_at"`
	RejectionReason *string         `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}
