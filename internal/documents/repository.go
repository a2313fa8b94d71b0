package documents

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skk/jds-backend/internal/platform/db"
	"github.com/skk/jds-backend/internal/shared"
)

// Repository provides PostgreSQL backed persistence for documents,
// versions and signature requests.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const documentColumns = `id, file_name, storage_key, file_type, file_size, current_version,
	description, ocr_text, case_id, uploaded_by_user_id, uploaded_at, updated_at`

func scanDocument(row pgx.Row) (*Document, error) {
	var d Document
	err := row.Scan(&d.ID, &d.FileName, &d.StorageKey, &d.FileType, &d.FileSize, &d.CurrentVersion,
		&d.Description, &d.OCRText, &d.CaseID, &d.UploadedBy, &d.UploadedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// Get returns one document.
func (r *Repository) Get(ctx context.Context, id int64) (*Document, error) {
	return scanDocument(r.pool.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`, id))
}

// ListByCase returns the documents attached to a case.
func (r *Repository) ListByCase(ctx context.Context, caseID int64) ([]Document, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE case_id = $1 ORDER BY uploaded_at DESC`, caseID)
	if err != nil {
		return nil, fmt.Errorf("list documents by case: %w", err)
	}
	defer rows.Close()
	var list []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *d)
	}
	return list, rows.Err()
}

// Create inserts a document and returns its id.
func (r *Repository) Create(ctx context.Context, d Document) (int64, error) {
	var id int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO documents (file_name, storage_key, file_type, file_size, current_version,
				description, case_id, uploaded_by_user_id, uploaded_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
			 RETURNING id`,
			d.FileName, d.StorageKey, d.FileType, d.FileSize, d.CurrentVersion,
			d.Description, d.CaseID, d.UploadedBy).Scan(&id)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23503" {
				return shared.ErrNotFound
			}
			return err
		}

		// Every revision lives in document_versions, the first included, so
		// deletion can sweep the blob for each one.
		_, err = tx.Exec(ctx,
			`INSERT INTO document_versions (document_id, version_number, storage_key, file_name, file_size,
				comment, uploaded_by_user_id, created_at)
			 VALUES ($1, 1, $2, $3, $4, NULL, $5, now())`,
			id, d.StorageKey, d.FileName, d.FileSize, d.UploadedBy)
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// SetOCRText stores the extracted text for a document.
func (r *Repository) SetOCRText(ctx context.Context, id int64, text string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE documents SET ocr_text = $1, updated_at = now() WHERE id = $2`, text, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes a document row.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

const versionColumns = `id, document_id, version_number, storage_key, file_name, file_size,
	comment, uploaded_by_user_id, created_at`

func scanVersion(row pgx.Row) (*Version, error) {
	var v Version
	err := row.Scan(&v.ID, &v.DocumentID, &v.VersionNumber, &v.StorageKey, &v.FileName, &v.FileSize,
		&v.Comment, &v.UploadedBy, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}

// AddVersion inserts a new revision and bumps the document's current
// version inside one transaction.
func (r *Repository) AddVersion(ctx context.Context, v Version) (*Version, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var number int
	err = tx.QueryRow(ctx,
		`UPDATE documents
		 SET current_version = current_version + 1,
		     storage_key = $1, file_name = $2, file_size = $3, updated_at = now()
		 WHERE id = $4
		 RETURNING current_version`,
		v.StorageKey, v.FileName, v.FileSize, v.DocumentID).Scan(&number)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO document_versions (document_id, version_number, storage_key, file_name, file_size,
			comment, uploaded_by_user_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		 RETURNING `+versionColumns,
		v.DocumentID, number, v.StorageKey, v.FileName, v.FileSize, v.Comment, v.UploadedBy).
		Scan(&v.ID, &v.DocumentID, &v.VersionNumber, &v.StorageKey, &v.FileName, &v.FileSize,
			&v.Comment, &v.UploadedBy, &v.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &v, nil
}

// ListVersions returns all revisions of a document, newest first.
func (r *Repository) ListVersions(ctx context.Context, documentID int64) ([]Version, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+versionColumns+` FROM document_versions
		 WHERE document_id = $1 ORDER BY version_number DESC`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list document versions: %w", err)
	}
	defer rows.Close()
	var list []Version
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *v)
	}
	return list, rows.Err()
}

// GetVersion returns one revision.
func (r *Repository) GetVersion(ctx context.Context, versionID int64) (*Version, error) {
	return scanVersion(r.pool.QueryRow(ctx,
		`SELECT `+versionColumns+` FROM document_versions WHERE id = $1`, versionID))
}

const signatureColumns = `id, document_id, signer_user_id, status, token, signature_data,
	signed_at, expires_at, rejection_reason, created_at`

func scanSignature(row pgx.Row) (*Signature, error) {
	var s Signature
	err := row.Scan(&s.ID, &s.DocumentID, &s.SignerID, &s.Status, &s.Token, &s.SignatureData,
		&s.SignedAt, &s.ExpiresAt, &s.RejectionReason, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// CreateSignature inserts a signature request.
func (r *Repository) CreateSignature(ctx context.Context, s Signature) (*Signature, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO document_signatures (document_id, signer_user_id, status, token, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, now())
		 RETURNING `+signatureColumns,
		s.DocumentID, s.SignerID, s.Status, s.Token, s.ExpiresAt).
		Scan(&s.ID, &s.DocumentID, &s.SignerID, &s.Status, &s.Token, &s.SignatureData,
			&s.SignedAt, &s.ExpiresAt, &s.RejectionReason, &s.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// GetSignatureByToken returns the signature request for a token.
func (r *Repository) GetSignatureByToken(ctx context.Context, token string) (*Signature, error) {
	return scanSignature(r.pool.QueryRow(ctx,
		`SELECT `+signatureColumns+` FROM document_signatures WHERE token = $1`, token))
}

// UpdateSignature persists a status transition.
func (r *Repository) UpdateSignature(ctx context.Context, s Signature) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE document_signatures
		 SET status = $1, signature_data = $2, signed_at = $3, rejection_reason = $4
		 WHERE id = $5`,
		s.Status, s.SignatureData, s.SignedAt, s.RejectionReason, s.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListSignatures returns the signature requests for a document, newest first.
func (r *Repository) ListSignatures(ctx context.Context, documentID int64) ([]Signature, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+signatureColumns+` FROM document_signatures
		 WHERE document_id = $1 ORDER BY created_at DESC`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list document signatures: %w", err)
	}
	defer rows.Close()
	var list []Signature
	for rows.Next() {
		s, err := scanSignature(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *s)
	}
	return list, rows.Err()
}

// ListPendingForSigner returns a user's open signature requests.
func (r *Repository) ListPendingForSigner(ctx context.Context, signerID int64) ([]Signature, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+signatureColumns+` FROM document_signatures
		 WHERE signer_user_id = $1 AND status = 'PENDING' ORDER BY created_at DESC`, signerID)
	if err != nil {
		return nil, fmt.Errorf("list pending signatures: %w", err)
	}
	defer rows.Close()
	var list []Signature
	for rows.Next() {
		s, err := scanSignature(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *s)
	}
	return list, rows.Err()
}

const templateColumns = `id, name, description, storage_key, file_type, category,
	is_active, created_by_user_id, created_at, updated_at`

func scanTemplate(row pgx.Row) (*Template, error) {
	var t Template
	err := row.Scan(&t.ID, &t.Name, &t.Description, &t.StorageKey, &t.FileType, &t.Category,
		&t.IsActive, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// CreateTemplate inserts a template and returns its id.
func (r *Repository) CreateTemplate(ctx context.Context, t Template) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO document_templates (name, description, storage_key, file_type, category,
			is_active, created_by_user_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, TRUE, $6, now(), now())
		 RETURNING id`,
		t.Name, t.Description, t.StorageKey, t.FileType, t.Category, t.CreatedBy).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return 0, shared.ErrNotFound
		}
		return 0, err
	}
	return id, nil
}

// GetTemplate returns one template, active or not.
func (r *Repository) GetTemplate(ctx context.Context, id int64) (*Template, error) {
	return scanTemplate(r.pool.QueryRow(ctx,
		`SELECT `+templateColumns+` FROM document_templates WHERE id = $1`, id))
}

// ListTemplates returns the active templates ordered by name.
func (r *Repository) ListTemplates(ctx context.Context) ([]Template, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+templateColumns+` FROM document_templates WHERE is_active ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()
	return collectTemplates(rows)
}

// ListTemplatesByCategory returns the active templates in a category.
func (r *Repository) ListTemplatesByCategory(ctx context.Context, category string) ([]Template, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+templateColumns+` FROM document_templates
		 WHERE is_active AND category = $1 ORDER BY name`, category)
	if err != nil {
		return nil, fmt.Errorf("list templates by category: %w", err)
	}
	defer rows.Close()
	return collectTemplates(rows)
}

func collectTemplates(rows pgx.Rows) ([]Template, error) {
	var list []Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *t)
	}
	return list, rows.Err()
}

// UpdateTemplate persists metadata changes.
func (r *Repository) UpdateTemplate(ctx context.Context, t Template) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE document_templates
		 SET name = $1, description = $2, category = $3, updated_at = now()
		 WHERE id = $4`,
		t.Name, t.Description, t.Category, t.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SetTemplateActive flips the listing flag.
func (r *Repository) SetTemplateActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE document_templates SET is_active = $1, updated_at = now() WHERE id = $2`, active, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteTemplate removes a template row.
func (r *Repository) DeleteTemplate(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM document_templates WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
