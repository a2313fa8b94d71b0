package documents

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/skk/jds-backend/internal/authz"
	"github.com/skk/jds-backend/internal/platform/httpx"
)

// Uploads are buffered up to this many bytes in memory.
const maxUploadMemory = 32 << 20

// Handler exposes document, version, signature and OCR endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	authz     authz.Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mw authz.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		authz:     mw,
		validator: validator.New(),
	}
}

// MountRoutes registers document routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequireRole(authz.RoleCaseWorker, authz.RoleAdmin))
		r.Post("/upload", h.upload)
		r.Get("/{id}", h.get)
		r.Get("/case/{caseId}", h.listByCase)
		r.Get("/download/{id}", h.download)

		r.Post("/versions/{documentId}", h.addVersion)
		r.Get("/versions/{documentId}", h.listVersions)
		r.Get("/versions/version/{versionId}", h.getVersion)
		r.Get("/versions/download/{versionId}", h.downloadVersion)

		r.Get("/signatures/document/{documentId}", h.listSignatures)
		r.Get("/signatures/pending/{userId}", h.listPendingSignatures)

		r.Post("/ocr/extract/{documentId}", h.requestOCR)
		r.Get("/ocr/{documentId}", h.ocrText)

		r.Post("/templates/{templateId}/use", h.createFromTemplate)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequireAuthenticated())
		r.Get("/templates", h.listTemplates)
		r.Get("/templates/category/{category}", h.listTemplatesByCategory)
		r.Get("/templates/{templateId}", h.getTemplate)
		r.Get("/templates/download/{templateId}", h.downloadTemplate)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequireRole(authz.RoleAdmin, authz.RoleSupervisor))
		r.Post("/templates", h.createTemplate)
		r.Put("/templates/{templateId}", h.updateTemplate)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission(authz.PermDocumentSign))
		r.Post("/signatures/request/{documentId}", h.requestSignature)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequireRole(authz.RoleAdmin))
		r.Delete("/{id}", h.delete)
		r.Put("/templates/{templateId}/deactivate", h.deactivateTemplate)
		r.Delete("/templates/{templateId}", h.deleteTemplate)
	})

	// Token-addressed; signers act on the emailed link without a session.
	r.Post("/signatures/sign", h.sign)
	r.Post("/signatures/reject", h.reject)
}

func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid multipart body")
		return
	}
	caseID, err := strconv.ParseInt(r.FormValue("case_id"), 10, 64)
	if err != nil || caseID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "case_id required")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "file required")
		return
	}
	defer file.Close()

	var description *string
	if v := r.FormValue("description"); v != "" {
		description = &v
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	principal := authz.PrincipalFromContext(r.Context())
	d, err := h.service.Upload(r.Context(), caseID, header.Filename, contentType, file, principal.ID, description)
	if err != nil {
		h.logger.Error("upload document", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, d)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid document id")
		return
	}
	d, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

func (h *Handler) listByCase(w http.ResponseWriter, r *http.Request) {
	caseID, ok := idParam(r, "caseId")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid case id")
		return
	}
	list, err := h.service.ListByCase(r.Context(), caseID)
	if err != nil {
		h.logger.Error("list documents by case", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid document id")
		return
	}
	d, rc, err := h.service.Download(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", d.FileType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", d.FileName))
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("stream document", slog.Int64("id", id), slog.Any("error", err))
	}
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid document id")
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) addVersion(w http.ResponseWriter, r *http.Request) {
	documentID, ok := idParam(r, "documentId")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid document id")
		return
	}
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid multipart body")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "file required")
		return
	}
	defer file.Close()

	var comment *string
	if v := r.FormValue("comment"); v != "" {
		comment = &v
	}

	principal := authz.PrincipalFromContext(r.Context())
	v, err := h.service.AddVersion(r.Context(), documentID, header.Filename, file, principal.ID, comment)
	if err != nil {
		h.logger.Error("add document version", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, v)
}

func (h *Handler) listVersions(w http.ResponseWriter, r *http.Request) {
	documentID, ok := idParam(r, "documentId")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid document id")
		return
	}
	list, err := h.service.ListVersions(r.Context(), documentID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) getVersion(w http.ResponseWriter, r *http.Request) {
	versionID, ok := idParam(r, "versionId")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid version id")
		return
	}
	v, err := h.service.GetVersion(r.Context(), versionID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, v)
}

func (h *Handler) downloadVersion(w http.ResponseWriter, r *http.Request) {
	versionID, ok := idParam(r, "versionId")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid version id")
		return
	}
	v, rc, err := h.service.DownloadVersion(r.Context(), versionID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", v.FileName))
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("stream version", slog.Int64("id", versionID), slog.Any("error", err))
	}
}

func (h *Handler) createTemplate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid multipart body")
		return
	}
	name := r.FormValue("name")
	if name == "" {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "name required")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "file required")
		return
	}
	defer file.Close()

	var description, category *string
	if v := r.FormValue("description"); v != "" {
		description = &v
	}
	if v := r.FormValue("category"); v != "" {
		category = &v
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	principal := authz.PrincipalFromContext(r.Context())
	t, err := h.service.CreateTemplate(r.Context(), name, description, category, header.Filename, contentType, file, principal.ID)
	if err != nil {
		h.logger.Error("create template", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, t)
}

func (h *Handler) listTemplates(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.Templates(r.Context())
	if err != nil {
		h.logger.Error("list templates", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) listTemplatesByCategory(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.TemplatesByCategory(r.Context(), chi.URLParam(r, "category"))
	if err != nil {
		h.logger.Error("list templates by category", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) getTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "templateId")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid template id")
		return
	}
	t, err := h.service.Template(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

func (h *Handler) downloadTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "templateId")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid template id")
		return
	}
	t, rc, err := h.service.DownloadTemplate(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", t.FileType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", t.Name))
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("stream template", slog.Int64("id", id), slog.Any("error", err))
	}
}

func (h *Handler) updateTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "templateId")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid template id")
		return
	}
	var req UpdateTemplateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	t, err := h.service.UpdateTemplate(r.Context(), id, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

func (h *Handler) deactivateTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "templateId")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid template id")
		return
	}
	if err := h.service.DeactivateTemplate(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) deleteTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "templateId")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid template id")
		return
	}
	if err := h.service.DeleteTemplate(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) createFromTemplate(w http.ResponseWriter, r *http.Request) {
	templateID, ok := idParam(r, "templateId")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid template id")
		return
	}
	var req CreateFromTemplateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	principal := authz.PrincipalFromContext(r.Context())
	d, err := h.service.CreateFromTemplate(r.Context(), templateID, req.CaseID, principal.ID, req.Description)
	if err != nil {
		h.logger.Error("create document from template", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, d)
}

func (h *Handler) requestSignature(w http.ResponseWriter, r *http.Request) {
	documentID, ok := idParam(r, "documentId")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid document id")
		return
	}
	var req RequestSignatureRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	sig, err := h.service.RequestSignature(r.Context(), documentID, req.SignerID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, sig)
}

func (h *Handler) sign(w http.ResponseWriter, r *http.Request) {
	var req SignRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	sig, err := h.service.Sign(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sig)
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	var req RejectRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	sig, err := h.service.Reject(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sig)
}

func (h *Handler) listSignatures(w http.ResponseWriter, r *http.Request) {
	documentID, ok := idParam(r, "documentId")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid document id")
		return
	}
	list, err := h.service.ListSignatures(r.Context(), documentID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) listPendingSignatures(w http.ResponseWriter, r *http.Request) {
	userID, ok := idParam(r, "userId")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid user id")
		return
	}
	list, err := h.service.ListPendingForSigner(r.Context(), userID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) requestOCR(w http.ResponseWriter, r *http.Request) {
	documentID, ok := idParam(r, "documentId")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid document id")
		return
	}
	if err := h.service.RequestOCR(r.Context(), documentID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (h *Handler) ocrText(w http.ResponseWriter, r *http.Request) {
	documentID, ok := idParam(r, "documentId")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid document id")
		return
	}
	text, err := h.service.OCRText(r.Context(), documentID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"text": text})
}
