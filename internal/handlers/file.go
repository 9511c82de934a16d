package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"DocVault/internal/config"
	"DocVault/internal/middleware"
	"DocVault/internal/pipeline"
	"DocVault/internal/repo"
	"DocVault/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// FileAPI — операции оркестратора, доступные по HTTP.
type FileAPI interface {
	Upload(ctx context.Context, sess *service.Session, body io.Reader, declaredType string) (*service.UploadResult, error)
	Download(ctx context.Context, sess *service.Session, fileRef string) (*service.Document, error)
	Info(ctx context.Context, sess *service.Session, fileRef string) (*service.FileInfo, error)
	Stats(ctx context.Context, sess *service.Session, fileRef string) (*repo.FileStats, error)
	ProvisionKey(ctx context.Context, sess *service.Session) (bool, error)
}

var _ FileAPI = (*service.FileService)(nil)

// FileHandler обрабатывает загрузку и выдачу документов.
type FileHandler struct {
	Files  FileAPI
	Logger *zap.SugaredLogger
	Config *config.Config
}

// NewFileHandler создаёт хендлер файлов
func NewFileHandler(files FileAPI, logger *zap.SugaredLogger, cfg *config.Config) *FileHandler {
	return &FileHandler{Files: files, Logger: logger, Config: cfg}
}

// KeyReply — ответ на создание ключа тенанта.
type KeyReply struct {
	TenantCode string `json:"tenant_code"`
	Created    bool   `json:"created"`
}

// ErrorReply — тело ответа с ошибкой.
type ErrorReply struct {
	Error string `json:"error"`
}

// sessionFrom возвращает nil для анонимного запроса; сервис ответит ErrInvalidCredential.
func sessionFrom(r *http.Request) *service.Session {
	s, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		return nil
	}
	return &service.Session{TenantCode: s.TenantCode, SessionID: s.SessionID, Token: middleware.TokenFromRequest(r)}
}

// statusFor — единое соответствие ошибок пайплайна HTTP-статусам.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, pipeline.ErrInvalidCredential):
		return http.StatusUnauthorized
	case errors.Is(err, pipeline.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, pipeline.ErrIncomplete):
		return http.StatusConflict
	case errors.Is(err, pipeline.ErrPartiallyStored):
		return http.StatusMultiStatus
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *FileHandler) fail(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.Logger.Errorw(op+": failed", "error", err)
	} else {
		h.Logger.Warnw(op+": rejected", "status", status, "error", err)
	}
	writeJSON(w, status, ErrorReply{Error: http.StatusText(status)})
}

// Upload принимает содержимое файла телом запроса.
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	if sess == nil {
		h.fail(w, "Upload", pipeline.ErrInvalidCredential)
		return
	}

	declared := ""
	if ct := r.Header.Get("Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err == nil {
			declared = mt
		}
	}
	body := http.MaxBytesReader(w, r.Body, h.Config.UploadMaxBytes())

	res, err := h.Files.Upload(r.Context(), sess, body, declared)
	if err != nil && res == nil {
		h.fail(w, "Upload", err)
		return
	}
	if err != nil {
		status := statusFor(err)
		h.Logger.Warnw("Upload: partially stored", "file_ref", res.FileRef, "status", status, "error", err)
		writeJSON(w, status, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Download отдаёт расшифрованный документ с сохранённым типом содержимого.
func (h *FileHandler) Download(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")
	doc, err := h.Files.Download(r.Context(), sessionFrom(r), ref)
	if err != nil {
		status := statusFor(err)
		h.Logger.Warnw("Download: failed", "file_ref", ref, "status", status, "error", err)
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", doc.MediaType)
	w.Header().Set("Content-Length", strconv.FormatInt(doc.Size, 10))
	w.WriteHeader(http.StatusOK)
	if _, err := doc.WriteTo(w); err != nil {
		h.Logger.Warnw("Download: write interrupted", "file_ref", ref, "error", err)
	}
}

// Info — состояние частей документа.
func (h *FileHandler) Info(w http.ResponseWriter, r *http.Request) {
	info, err := h.Files.Info(r.Context(), sessionFrom(r), chi.URLParam(r, "ref"))
	if err != nil {
		h.fail(w, "Info", err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// Stats — сводка по документу.
func (h *FileHandler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.Files.Stats(r.Context(), sessionFrom(r), chi.URLParam(r, "ref"))
	if err != nil {
		h.fail(w, "Stats", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// ProvisionKey создаёт ключ тенанта вызывающего.
func (h *FileHandler) ProvisionKey(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	created, err := h.Files.ProvisionKey(r.Context(), sess)
	if err != nil {
		h.fail(w, "ProvisionKey", err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, KeyReply{TenantCode: sess.TenantCode, Created: created})
}
