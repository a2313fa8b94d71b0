package documents

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/skk/jds-backend/internal/shared"
)

// RepositoryPort defines data access methods for documents.
type RepositoryPort interface {
	Get(ctx context.Context, id int64) (*Document, error)
	ListByCase(ctx context.Context, caseID int64) ([]Document, error)
	Create(ctx context.Context, d Document) (int64, error)
	SetOCRText(ctx context.Context, id int64, text string) error
	Delete(ctx context.Context, id int64) error
	AddVersion(ctx context.Context, v Version) (*Version, error)
	ListVersions(ctx context.Context, documentID int64) ([]Version, error)
	GetVersion(ctx context.Context, versionID int64) (*Version, error)
	CreateTemplate(ctx context.Context, t Template) (int64, error)
	GetTemplate(ctx context.Context, id int64) (*Template, error)
	ListTemplates(ctx context.Context) ([]Template, error)
	ListTemplatesByCategory(ctx context.Context, category string) ([]Template, error)
	UpdateTemplate(ctx context.Context, t Template) error
	SetTemplateActive(ctx context.Context, id int64, active bool) error
	DeleteTemplate(ctx context.Context, id int64) error
	CreateSignature(ctx context.Context, s Signature) (*Signature, error)
	GetSignatureByToken(ctx context.Context, token string) (*Signature, error)
	UpdateSignature(ctx context.Context, s Signature) error
	ListSignatures(ctx context.Context, documentID int64) ([]Signature, error)
	ListPendingForSigner(ctx context.Context, signerID int64) ([]Signature, error)
}

// OCRDispatcher queues text extraction for a document. The extraction
// engine itself runs in the background worker.
type OCRDispatcher interface {
	EnqueueExtract(ctx context.Context, documentID int64) error
}

// Notifier announces a new signature request to the signer, typically by
// queueing an email carrying the token link.
type Notifier interface {
	SignatureRequested(ctx context.Context, doc Document, sig Signature) error
}

// How long a signer has before a request lapses.
const signatureTTL = 7 * 24 * time.Hour

// Service handles document business logic.
type Service struct {
	repo     RepositoryPort
	blobs    BlobStore
	ocr      OCRDispatcher
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, blobs BlobStore, ocr OCRDispatcher, logger *slog.Logger) *Service {
	return &Service{repo: repo, blobs: blobs, ocr: ocr, logger: logger, now: time.Now}
}

// SetNotifier installs the signature request notifier. Without one,
// requests are created silently.
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

func storageKey(fileName string) string {
	return uuid.NewString() + filepath.Ext(fileName)
}

// Upload stores the file bytes and records the document metadata.
func (s *Service) Upload(ctx context.Context, caseID int64, fileName, fileType string, r io.Reader, uploaderID int64, description *string) (*Document, error) {
	key := storageKey(fileName)
	size, err := s.blobs.Put(ctx, key, r)
	if err != nil {
		return nil, fmt.Errorf("store document: %w", err)
	}

	d := Document{
		FileName:       fileName,
		StorageKey:     key,
		FileType:       fileType,
		FileSize:       size,
		CurrentVersion: 1,
		Description:    description,
		CaseID:         caseID,
		UploadedBy:     &uploaderID,
	}
	id, err := s.repo.Create(ctx, d)
	if err != nil {
		if derr := s.blobs.Delete(ctx, key); derr != nil {
			s.logger.Warn("orphaned blob after failed insert", slog.String("key", key), slog.Any("error", derr))
		}
		return nil, fmt.Errorf("create document: %w", err)
	}
	return s.repo.Get(ctx, id)
}

// Get returns one document's metadata.
func (s *Service) Get(ctx context.Context, id int64) (*Document, error) {
	return s.repo.Get(ctx, id)
}

// ListByCase returns the documents attached to a case.
func (s *Service) ListByCase(ctx context.Context, caseID int64) ([]Document, error) {
	return s.repo.ListByCase(ctx, caseID)
}

// Download opens the current revision's bytes.
func (s *Service) Download(ctx context.Context, id int64) (*Document, io.ReadCloser, error) {
	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.blobs.Get(ctx, d.StorageKey)
	if err != nil {
		return nil, nil, fmt.Errorf("open document blob: %w", err)
	}
	return d, rc, nil
}

// Delete removes the document, its revisions' blobs, and its metadata.
func (s *Service) Delete(ctx context.Context, id int64) error {
	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	versions, err := s.repo.ListVersions(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	for _, v := range versions {
		if err := s.blobs.Delete(ctx, v.StorageKey); err != nil {
			s.logger.Warn("delete version blob", slog.String("key", v.StorageKey), slog.Any("error", err))
		}
	}
	if err := s.blobs.Delete(ctx, d.StorageKey); err != nil {
		s.logger.Warn("delete document blob", slog.String("key", d.StorageKey), slog.Any("error", err))
	}
	return nil
}

// AddVersion stores a new revision of an existing document.
func (s *Service) AddVersion(ctx context.Context, documentID int64, fileName string, r io.Reader, uploaderID int64, comment *string) (*Version, error) {
	key := storageKey(fileName)
	size, err := s.blobs.Put(ctx, key, r)
	if err != nil {
		return nil, fmt.Errorf("store document version: %w", err)
	}

	v, err := s.repo.AddVersion(ctx, Version{
		DocumentID: documentID,
		StorageKey: key,
		FileName:   fileName,
		FileSize:   size,
		Comment:    comment,
		UploadedBy: &uploaderID,
	})
	if err != nil {
		if derr := s.blobs.Delete(ctx, key); derr != nil {
			s.logger.Warn("orphaned blob after failed version", slog.String("key", key), slog.Any("error", derr))
		}
		return nil, err
	}
	return v, nil
}

// ListVersions returns all revisions of a document, newest first.
func (s *Service) ListVersions(ctx context.Context, documentID int64) ([]Version, error) {
	if _, err := s.repo.Get(ctx, documentID); err != nil {
		return nil, err
	}
	return s.repo.ListVersions(ctx, documentID)
}

// GetVersion returns one revision.
func (s *Service) GetVersion(ctx context.Context, versionID int64) (*Version, error) {
	return s.repo.GetVersion(ctx, versionID)
}

// DownloadVersion opens one revision's bytes.
func (s *Service) DownloadVersion(ctx context.Context, versionID int64) (*Version, io.ReadCloser, error) {
	v, err := s.repo.GetVersion(ctx, versionID)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.blobs.Get(ctx, v.StorageKey)
	if err != nil {
		return nil, nil, fmt.Errorf("open version blob: %w", err)
	}
	return v, rc, nil
}

// CreateTemplate stores the template file and records its metadata.
func (s *Service) CreateTemplate(ctx context.Context, name string, description, category *string, fileName, fileType string, r io.Reader, creatorID int64) (*Template, error) {
	key := storageKey(fileName)
	if _, err := s.blobs.Put(ctx, key, r); err != nil {
		return nil, fmt.Errorf("store template: %w", err)
	}

	id, err := s.repo.CreateTemplate(ctx, Template{
		Name:        name,
		Description: description,
		StorageKey:  key,
		FileType:    fileType,
		Category:    category,
		CreatedBy:   &creatorID,
	})
	if err != nil {
		if derr := s.blobs.Delete(ctx, key); derr != nil {
			s.logger.Warn("orphaned blob after failed template insert", slog.String("key", key), slog.Any("error", derr))
		}
		return nil, fmt.Errorf("create template: %w", err)
	}
	return s.repo.GetTemplate(ctx, id)
}

// Templates returns the active templates ordered by name.
func (s *Service) Templates(ctx context.Context) ([]Template, error) {
	return s.repo.ListTemplates(ctx)
}

// TemplatesByCategory returns the active templates in a category.
func (s *Service) TemplatesByCategory(ctx context.Context, category string) ([]Template, error) {
	return s.repo.ListTemplatesByCategory(ctx, category)
}

// Template returns one template's metadata.
func (s *Service) Template(ctx context.Context, id int64) (*Template, error) {
	return s.repo.GetTemplate(ctx, id)
}

// DownloadTemplate opens the template's bytes.
func (s *Service) DownloadTemplate(ctx context.Context, id int64) (*Template, io.ReadCloser, error) {
	t, err := s.repo.GetTemplate(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.blobs.Get(ctx, t.StorageKey)
	if err != nil {
		return nil, nil, fmt.Errorf("open template blob: %w", err)
	}
	return t, rc, nil
}

// UpdateTemplate applies metadata changes; nil fields keep their value.
func (s *Service) UpdateTemplate(ctx context.Context, id int64, req UpdateTemplateRequest) (*Template, error) {
	t, err := s.repo.GetTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		t.Name = *req.Name
	}
	if req.Description != nil {
		t.Description = req.Description
	}
	if req.Category != nil {
		t.Category = req.Category
	}
	if err := s.repo.UpdateTemplate(ctx, *t); err != nil {
		return nil, err
	}
	return s.repo.GetTemplate(ctx, id)
}

// DeactivateTemplate hides the template from the listings. Its file stays
// so existing documents keep their provenance.
func (s *Service) DeactivateTemplate(ctx context.Context, id int64) error {
	return s.repo.SetTemplateActive(ctx, id, false)
}

// DeleteTemplate removes the template row and its blob.
func (s *Service) DeleteTemplate(ctx context.Context, id int64) error {
	t, err := s.repo.GetTemplate(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteTemplate(ctx, id); err != nil {
		return err
	}
	if err := s.blobs.Delete(ctx, t.StorageKey); err != nil {
		s.logger.Warn("delete template blob", slog.String("key", t.StorageKey), slog.Any("error", err))
	}
	return nil
}

// CreateFromTemplate copies a template's bytes into a fresh case document,
// taking the normal upload path so the document owns its own blob.
func (s *Service) CreateFromTemplate(ctx context.Context, templateID, caseID, uploaderID int64, description *string) (*Document, error) {
	t, err := s.repo.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}
	rc, err := s.blobs.Get(ctx, t.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("open template blob: %w", err)
	}
	defer rc.Close()

	fileName := t.Name + filepath.Ext(t.StorageKey)
	return s.Upload(ctx, caseID, fileName, t.FileType, rc, uploaderID, description)
}

// RequestSignature opens a signature request and hands back the token
// the signer will present.
func (s *Service) RequestSignature(ctx context.Context, documentID, signerID int64) (*Signature, error) {
	doc, err := s.repo.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	sig, err := s.repo.CreateSignature(ctx, Signature{
		DocumentID: documentID,
		SignerID:   signerID,
		Status:     SignaturePending,
		Token:      uuid.NewString(),
		ExpiresAt:  s.now().Add(signatureTTL),
	})
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		if nerr := s.notifier.SignatureRequested(ctx, *doc, *sig); nerr != nil {
			s.logger.Warn("signature notification", slog.Int64("document_id", documentID), slog.Any("error", nerr))
		}
	}
	return sig, nil
}

// Sign completes a pending signature request. A lapsed request is moved
// to EXPIRED and refused.
func (s *Service) Sign(ctx context.Context, req SignRequest) (*Signature, error) {
	sig, err := s.repo.GetSignatureByToken(ctx, req.Token)
	if err != nil {
		return nil, err
	}
	if sig.ExpiresAt.Before(s.now()) {
		sig.Status = SignatureExpired
		if err := s.repo.UpdateSignature(ctx, *sig); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("signature request expired: %w", shared.ErrForbidden)
	}
	if sig.Status != SignaturePending {
		return nil, fmt.Errorf("signature request is %s: %w", sig.Status, shared.ErrForbidden)
	}

	signedAt := s.now()
	sig.Status = SignatureSigned
	sig.SignatureData = &req.SignatureData
	sig.SignedAt = &signedAt
	if err := s.repo.UpdateSignature(ctx, *sig); err != nil {
		return nil, err
	}
	return sig, nil
}

// Reject declines a pending signature request.
func (s *Service) Reject(ctx context.Context, req RejectRequest) (*Signature, error) {
	sig, err := s.repo.GetSignatureByToken(ctx, req.Token)
	if err != nil {
		return nil, err
	}
	if sig.Status != SignaturePending {
		return nil, fmt.Errorf("signature request is %s: %w", sig.Status, shared.ErrForbidden)
	}

	sig.Status = SignatureRejected
	sig.RejectionReason = &req.Reason
	if err := s.repo.UpdateSignature(ctx, *sig); err != nil {
		return nil, err
	}
	return sig, nil
}

// ListSignatures returns the signature requests for a document.
func (s *Service) ListSignatures(ctx context.Context, documentID int64) ([]Signature, error) {
	if _, err := s.repo.Get(ctx, documentID); err != nil {
		return nil, err
	}
	return s.repo.ListSignatures(ctx, documentID)
}

// ListPendingForSigner returns a user's open signature requests.
func (s *Service) ListPendingForSigner(ctx context.Context, signerID int64) ([]Signature, error) {
	return s.repo.ListPendingForSigner(ctx, signerID)
}

// RequestOCR queues text extraction for a document.
func (s *Service) RequestOCR(ctx context.Context, documentID int64) error {
	if _, err := s.repo.Get(ctx, documentID); err != nil {
		return err
	}
	return s.ocr.EnqueueExtract(ctx, documentID)
}

// OCRText returns the extracted text, or ErrNotFound when no extraction
// has run yet.
func (s *Service) OCRText(ctx context.Context, documentID int64) (string, error) {
	d, err := s.repo.Get(ctx, documentID)
	if err != nil {
		return "", err
	}
	if d.OCRText == nil {
		return "", fmt.Errorf("no extracted text for document %d: %w", documentID, shared.ErrNotFound)
	}
	return *d.OCRText, nil
}

// StoreOCRText records extraction output; used by the background worker.
func (s *Service) StoreOCRText(ctx context.Context, documentID int64, text string) error {
	return s.repo.SetOCRText(ctx, documentID, text)
}
