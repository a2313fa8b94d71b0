package documents

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/skk/jds-backend/internal/shared"
)

type memoryDocRepo struct {
	nextID     int64
	docs       map[int64]*Document
	versions   map[int64]*Version
	signatures map[int64]*Signature
	templates  map[int64]*Template
}

func newMemoryDocRepo() *memoryDocRepo {
	return &memoryDocRepo{
		nextID:     1,
		docs:       make(map[int64]*Document),
		versions:   make(map[int64]*Version),
		signatures: make(map[int64]*Signature),
		templates:  make(map[int64]*Template),
	}
}

func (m *memoryDocRepo) id() int64 {
	id := m.nextID
	m.nextID++
	return id
}

func (m *memoryDocRepo) Get(_ context.Context, id int64) (*Document, error) {
	d, ok := m.docs[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *d
	return &copied, nil
}

func (m *memoryDocRepo) ListByCase(_ context.Context, caseID int64) ([]Document, error) {
	var out []Document
	for _, d := range m.docs {
		if d.CaseID == caseID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *memoryDocRepo) Create(_ context.Context, d Document) (int64, error) {
	id := m.id()
	d.ID = id
	d.UploadedAt = time.Now()
	d.UpdatedAt = d.UploadedAt
	m.docs[id] = &d
	vid := m.id()
	m.versions[vid] = &Version{
		ID:            vid,
		DocumentID:    id,
		VersionNumber: 1,
		StorageKey:    d.StorageKey,
		FileName:      d.FileName,
		FileSize:      d.FileSize,
		UploadedBy:    d.UploadedBy,
		CreatedAt:     d.UploadedAt,
	}
	return id, nil
}

func (m *memoryDocRepo) SetOCRText(_ context.Context, id int64, text string) error {
	d, ok := m.docs[id]
	if !ok {
		return shared.ErrNotFound
	}
	d.OCRText = &text
	return nil
}

func (m *memoryDocRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.docs[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.docs, id)
	return nil
}

func (m *memoryDocRepo) AddVersion(_ context.Context, v Version) (*Version, error) {
	d, ok := m.docs[v.DocumentID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	d.CurrentVersion++
	d.StorageKey = v.StorageKey
	d.FileName = v.FileName
	d.FileSize = v.FileSize
	v.ID = m.id()
	v.VersionNumber = d.CurrentVersion
	v.CreatedAt = time.Now()
	m.versions[v.ID] = &v
	copied := v
	return &copied, nil
}

func (m *memoryDocRepo) ListVersions(_ context.Context, documentID int64) ([]Version, error) {
	var out []Version
	for _, v := range m.versions {
		if v.DocumentID == documentID {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (m *memoryDocRepo) GetVersion(_ context.Context, versionID int64) (*Version, error) {
	v, ok := m.versions[versionID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *v
	return &copied, nil
}

func (m *memoryDocRepo) CreateSignature(_ context.Context, s Signature) (*Signature, error) {
	s.ID = m.id()
	s.CreatedAt = time.Now()
	m.signatures[s.ID] = &s
	copied := s
	return &copied, nil
}

func (m *memoryDocRepo) GetSignatureByToken(_ context.Context, token string) (*Signature, error) {
	for _, s := range m.signatures {
		if s.Token == token {
			copied := *s
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memoryDocRepo) UpdateSignature(_ context.Context, s Signature) error {
	if _, ok := m.signatures[s.ID]; !ok {
		return shared.ErrNotFound
	}
	m.signatures[s.ID] = &s
	return nil
}

func (m *memoryDocRepo) ListSignatures(_ context.Context, documentID int64) ([]Signature, error) {
	var out []Signature
	for _, s := range m.signatures {
		if s.DocumentID == documentID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memoryDocRepo) ListPendingForSigner(_ context.Context, signerID int64) ([]Signature, error) {
	var out []Signature
	for _, s := range m.signatures {
		if s.SignerID == signerID && s.Status == SignaturePending {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memoryDocRepo) CreateTemplate(_ context.Context, t Template) (int64, error) {
	t.ID = m.id()
	t.IsActive = true
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	m.templates[t.ID] = &t
	return t.ID, nil
}

func (m *memoryDocRepo) GetTemplate(_ context.Context, id int64) (*Template, error) {
	t, ok := m.templates[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *t
	return &copied, nil
}

func (m *memoryDocRepo) ListTemplates(_ context.Context) ([]Template, error) {
	var out []Template
	for _, t := range m.templates {
		if t.IsActive {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (m *memoryDocRepo) ListTemplatesByCategory(_ context.Context, category string) ([]Template, error) {
	var out []Template
	for _, t := range m.templates {
		if t.IsActive && t.Category != nil && *t.Category == category {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (m *memoryDocRepo) UpdateTemplate(_ context.Context, t Template) error {
	stored, ok := m.templates[t.ID]
	if !ok {
		return shared.ErrNotFound
	}
	t.UpdatedAt = time.Now()
	t.CreatedAt = stored.CreatedAt
	m.templates[t.ID] = &t
	return nil
}

func (m *memoryDocRepo) SetTemplateActive(_ context.Context, id int64, active bool) error {
	t, ok := m.templates[id]
	if !ok {
		return shared.ErrNotFound
	}
	t.IsActive = active
	return nil
}

func (m *memoryDocRepo) DeleteTemplate(_ context.Context, id int64) error {
	if _, ok := m.templates[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.templates, id)
	return nil
}

type memoryBlobStore struct {
	blobs map[string][]byte
}

func newMemoryBlobStore() *memoryBlobStore {
	return &memoryBlobStore{blobs: make(map[string][]byte)}
}

func (m *memoryBlobStore) Put(_ context.Context, key string, r io.Reader) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	m.blobs[key] = data
	return int64(len(data)), nil
}

func (m *memoryBlobStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := m.blobs[key]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryBlobStore) Delete(_ context.Context, key string) error {
	delete(m.blobs, key)
	return nil
}

type stubDispatcher struct {
	queued []int64
}

func (s *stubDispatcher) EnqueueExtract(_ context.Context, documentID int64) error {
	s.queued = append(s.queued, documentID)
	return nil
}

func newDocService() (*Service, *memoryDocRepo, *memoryBlobStore, *stubDispatcher) {
	repo := newMemoryDocRepo()
	blobs := newMemoryBlobStore()
	ocr := &stubDispatcher{}
	svc := NewService(repo, blobs, ocr, slog.Default())
	return svc, repo, blobs, ocr
}

func uploadDoc(t *testing.T, svc *Service, content string) *Document {
	t.Helper()
	d, err := svc.Upload(context.Background(), 1, "report.pdf", "application/pdf",
		strings.NewReader(content), 7, nil)
	require.NoError(t, err)
	return d
}

func TestUploadStoresBlobAndMetadata(t *testing.T) {
	svc, _, blobs, _ := newDocService()

	d := uploadDoc(t, svc, "hello world")
	require.Equal(t, "report.pdf", d.FileName)
	require.Equal(t, int64(len("hello world")), d.FileSize)
	require.Equal(t, 1, d.CurrentVersion)
	require.Len(t, blobs.blobs, 1)

	got, rc, err := svc.Download(context.Background(), d.ID)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "hello world", string(data))
	require.Equal(t, d.ID, got.ID)
}

func TestAddVersionBumpsCurrent(t *testing.T) {
	svc, repo, _, _ := newDocService()

	d := uploadDoc(t, svc, "v1")
	v, err := svc.AddVersion(context.Background(), d.ID, "report-v2.pdf", strings.NewReader("v2 content"), 7, nil)
	require.NoError(t, err)
	require.Equal(t, 2, v.VersionNumber)

	current, err := repo.Get(context.Background(), d.ID)
	require.NoError(t, err)
	require.Equal(t, 2, current.CurrentVersion)
	require.Equal(t, "report-v2.pdf", current.FileName)
}

func TestDeleteRemovesBlobs(t *testing.T) {
	svc, _, blobs, _ := newDocService()

	d := uploadDoc(t, svc, "bytes")
	_, err := svc.AddVersion(context.Background(), d.ID, "v2.pdf", strings.NewReader("more"), 7, nil)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), d.ID))
	require.Empty(t, blobs.blobs)
}

func TestSignatureFlow(t *testing.T) {
	svc, _, _, _ := newDocService()

	d := uploadDoc(t, svc, "contract")
	sig, err := svc.RequestSignature(context.Background(), d.ID, 3)
	require.NoError(t, err)
	require.Equal(t, SignaturePending, sig.Status)
	require.NotEmpty(t, sig.Token)

	pending, err := svc.ListPendingForSigner(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	signed, err := svc.Sign(context.Background(), SignRequest{Token: sig.Token, SignatureData: "base64data"})
	require.NoError(t, err)
	require.Equal(t, SignatureSigned, signed.Status)
	require.NotNil(t, signed.SignedAt)

	// A completed request cannot be signed again.
	_, err = svc.Sign(context.Background(), SignRequest{Token: sig.Token, SignatureData: "again"})
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestSignExpiredRequest(t *testing.T) {
	svc, repo, _, _ := newDocService()
	svc.now = func() time.Time { return time.Now().Add(-8 * 24 * time.Hour) }

	d := uploadDoc(t, svc, "contract")
	sig, err := svc.RequestSignature(context.Background(), d.ID, 3)
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.Sign(context.Background(), SignRequest{Token: sig.Token, SignatureData: "late"})
	require.ErrorIs(t, err, shared.ErrForbidden)

	stored, err := repo.GetSignatureByToken(context.Background(), sig.Token)
	require.NoError(t, err)
	require.Equal(t, SignatureExpired, stored.Status)
}

func TestRejectSignature(t *testing.T) {
	svc, _, _, _ := newDocService()

	d := uploadDoc(t, svc, "contract")
	sig, err := svc.RequestSignature(context.Background(), d.ID, 3)
	require.NoError(t, err)

	rejected, err := svc.Reject(context.Background(), RejectRequest{Token: sig.Token, Reason: "wrong document"})
	require.NoError(t, err)
	require.Equal(t, SignatureRejected, rejected.Status)
	require.Equal(t, "wrong document", *rejected.RejectionReason)
}

func TestOCRQueueAndText(t *testing.T) {
	svc, _, _, ocr := newDocService()

	d := uploadDoc(t, svc, "scanned")
	require.NoError(t, svc.RequestOCR(context.Background(), d.ID))
	require.Equal(t, []int64{d.ID}, ocr.queued)

	_, err := svc.OCRText(context.Background(), d.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)

	require.NoError(t, svc.StoreOCRText(context.Background(), d.ID, "extracted text"))
	text, err := svc.OCRText(context.Background(), d.ID)
	require.NoError(t, err)
	require.Equal(t, "extracted text", text)
}

func createTemplate(t *testing.T, svc *Service, name, content string, category *string) *Template {
	t.Helper()
	tpl, err := svc.CreateTemplate(context.Background(), name, nil, category,
		name+".docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		strings.NewReader(content), 7)
	require.NoError(t, err)
	return tpl
}

func TestCreateTemplateStoresBlobAndMetadata(t *testing.T) {
	svc, _, blobs, _ := newDocService()

	tpl := createTemplate(t, svc, "Intake Form", "template bytes", nil)
	require.Equal(t, "Intake Form", tpl.Name)
	require.True(t, tpl.IsActive)
	require.Len(t, blobs.blobs, 1)

	got, rc, err := svc.DownloadTemplate(context.Background(), tpl.ID)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "template bytes", string(data))
	require.Equal(t, tpl.ID, got.ID)
}

func TestCreateFromTemplateCopiesBytes(t *testing.T) {
	svc, repo, blobs, _ := newDocService()

	tpl := createTemplate(t, svc, "Engagement Letter", "letter body", nil)
	d, err := svc.CreateFromTemplate(context.Background(), tpl.ID, 1, 9, nil)
	require.NoError(t, err)
	require.Equal(t, int64(1), d.CaseID)
	require.Equal(t, 1, d.CurrentVersion)

	// The document gets its own copy under a fresh storage key.
	stored, err := repo.Get(context.Background(), d.ID)
	require.NoError(t, err)
	require.NotEqual(t, tpl.StorageKey, stored.StorageKey)
	require.Len(t, blobs.blobs, 2)

	_, rc, err := svc.Download(context.Background(), d.ID)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "letter body", string(data))
}

func TestDeactivateTemplateHidesFromListings(t *testing.T) {
	svc, _, _, _ := newDocService()

	cat := "forms"
	tpl := createTemplate(t, svc, "Consent", "c", &cat)
	createTemplate(t, svc, "Other", "o", nil)

	require.NoError(t, svc.DeactivateTemplate(context.Background(), tpl.ID))

	list, err := svc.Templates(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "Other", list[0].Name)

	byCat, err := svc.TemplatesByCategory(context.Background(), cat)
	require.NoError(t, err)
	require.Empty(t, byCat)

	// Still downloadable by ID.
	_, rc, err := svc.DownloadTemplate(context.Background(), tpl.ID)
	require.NoError(t, err)
	rc.Close()
}

func TestUpdateTemplateKeepsUnsetFields(t *testing.T) {
	svc, _, _, _ := newDocService()

	cat := "contracts"
	tpl := createTemplate(t, svc, "NDA", "n", &cat)

	name := "Mutual NDA"
	updated, err := svc.UpdateTemplate(context.Background(), tpl.ID, UpdateTemplateRequest{Name: &name})
	require.NoError(t, err)
	require.Equal(t, "Mutual NDA", updated.Name)
	require.NotNil(t, updated.Category)
	require.Equal(t, cat, *updated.Category)
}

func TestDeleteTemplateRemovesBlob(t *testing.T) {
	svc, _, blobs, _ := newDocService()

	tpl := createTemplate(t, svc, "Checklist", "items", nil)
	require.NoError(t, svc.DeleteTemplate(context.Background(), tpl.ID))
	require.Empty(t, blobs.blobs)

	_, err := svc.Template(context.Background(), tpl.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
