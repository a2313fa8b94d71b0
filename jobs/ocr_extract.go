package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"

	"github.com/skk/jds-backend/internal/documents"
	jobmetrics "github.com/skk/jds-backend/internal/jobs"
)

// DocumentSource is the slice of the document service the OCR job needs.
type DocumentSource interface {
	Download(ctx context.Context, id int64) (*documents.Document, io.ReadCloser, error)
	StoreOCRText(ctx context.Context, documentID int64, text string) error
}

// OCREngine turns a document's bytes into text.
type OCREngine interface {
	Extract(ctx context.Context, r io.Reader, fileType string) (string, error)
}

// PassthroughEngine reads plain text documents directly and stores a
// marker for binary formats. Swap in a Tesseract or cloud vision engine
// for real image extraction.
type PassthroughEngine struct{}

func (PassthroughEngine) Extract(_ context.Context, r io.Reader, fileType string) (string, error) {
	if strings.HasPrefix(fileType, "text/") {
		data, err := io.ReadAll(r)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	return "Text extraction is not configured for " + fileType + " documents.", nil
}

// ocrSupported mirrors the upload-side file type gate.
func ocrSupported(fileType string) bool {
	t := strings.ToLower(fileType)
	return strings.Contains(t, "image") ||
		strings.Contains(t, "pdf") ||
		strings.Contains(t, "tif") ||
		strings.HasPrefix(t, "text/")
}

// OCRJob extracts text from uploaded documents in the background.
type OCRJob struct {
	Documents DocumentSource
	Engine    OCREngine
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewOCRJob wires the extraction handler.
func NewOCRJob(source DocumentSource, engine OCREngine, logger *slog.Logger, metrics *jobmetrics.Metrics) *OCRJob {
	return &OCRJob{Documents: source, Engine: engine, Logger: logger, Metrics: metrics}
}

// Handle processes TaskTypeDocumentOCR tasks.
func (j *OCRJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Documents == nil || j.Engine == nil {
		return errors.New("ocr: handler not configured")
	}
	var payload DocumentOCRPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.Metrics.Track(TaskTypeDocumentOCR)
	err := j.extract(ctx, payload.DocumentID)
	if err != nil {
		j.Logger.Error("ocr extraction",
			slog.Int64("document_id", payload.DocumentID), slog.Any("error", err))
	}
	return tracker.End(err)
}

func (j *OCRJob) extract(ctx context.Context, documentID int64) error {
	doc, rc, err := j.Documents.Download(ctx, documentID)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	defer rc.Close()

	if !ocrSupported(doc.FileType) {
		j.Logger.Warn("ocr unsupported file type",
			slog.Int64("document_id", documentID), slog.String("file_type", doc.FileType))
		return j.Documents.StoreOCRText(ctx, documentID, "OCR not supported for this file type: "+doc.FileType)
	}

	text, err := j.Engine.Extract(ctx, rc, doc.FileType)
	if err != nil {
		return fmt.Errorf("extract text: %w", err)
	}
	if err := j.Documents.StoreOCRText(ctx, documentID, text); err != nil {
		return fmt.Errorf("store text: %w", err)
	}
	j.Logger.Info("ocr extracted",
		slog.Int64("document_id", documentID), slog.Int("chars", len(text)))
	return nil
}
