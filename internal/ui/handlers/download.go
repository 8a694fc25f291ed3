// download.go — выдача материала по ссылке /download.
package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/oapi-codegen/runtime"

	"github.com/bigkaa/goartstore/course-materials/internal/api/middleware"
	"github.com/bigkaa/goartstore/course-materials/internal/service"
)

// DownloadParams — query-параметры ссылки на скачивание.
type DownloadParams struct {
	FileID   int64
	ScopeID  int64
	CourseID int64
}

// DownloadHandler — обработчик скачивания материалов.
type DownloadHandler struct {
	downloads Downloader
	logger    *slog.Logger
}

// NewDownloadHandler создаёт DownloadHandler.
func NewDownloadHandler(downloads Downloader, logger *slog.Logger) *DownloadHandler {
	return &DownloadHandler{
		downloads: downloads,
		logger:    logger.With(slog.String("component", "ui.download")),
	}
}

// bindDownloadParams разбирает fileid, scopeid и courseid (все обязательны).
func bindDownloadParams(query url.Values) (DownloadParams, error) {
	var p DownloadParams
	if err := runtime.BindQueryParameter("form", true, true, "fileid", query, &p.FileID); err != nil {
		return p, err
	}
	if err := runtime.BindQueryParameter("form", true, true, "scopeid", query, &p.ScopeID); err != nil {
		return p, err
	}
	if err := runtime.BindQueryParameter("form", true, true, "courseid", query, &p.CourseID); err != nil {
		return p, err
	}
	return p, nil
}

// HandleDownload обрабатывает GET /download?fileid=&scopeid=&courseid=.
// Ошибки отображаются страницей с одним из двух общих сообщений,
// подробности пишутся только в лог.
func (h *DownloadHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	params, err := bindDownloadParams(r.URL.Query())
	if err != nil {
		h.logger.Debug("Некорректные параметры скачивания", slog.String("error", err.Error()))
		renderMessage(w, r, h.logger, http.StatusBadRequest, "wrong_resource")
		return
	}

	delivery, err := h.downloads.Prepare(r.Context(), service.DownloadRequest{
		Principal: middleware.PrincipalFromContext(r.Context()),
		FileID:    params.FileID,
		ScopeID:   params.ScopeID,
		CourseID:  params.CourseID,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPermission):
			renderMessage(w, r, h.logger, http.StatusForbidden, "wrong_resource")
		case errors.Is(err, service.ErrBlobMissing):
			renderMessage(w, r, h.logger, http.StatusNotFound, "not_found")
		case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrDeliveryNotConfirmed):
			renderMessage(w, r, h.logger, http.StatusNotFound, "wrong_resource")
		default:
			h.logger.Error("Ошибка выдачи материала",
				slog.Int64("file_id", params.FileID),
				slog.String("error", err.Error()),
			)
			renderMessage(w, r, h.logger, http.StatusServiceUnavailable, "wrong_resource")
		}
		return
	}
	defer delivery.File.Close()

	header := w.Header()
	header.Set("Content-Description", "File Transfer")
	header.Set("Content-Type", delivery.ContentType)
	header.Set("Content-Disposition", contentDisposition(delivery.Filename))
	header.Set("Expires", "0")
	header.Set("Cache-Control", "must-revalidate")
	header.Set("Pragma", "public")
	header.Set("Content-Length", strconv.FormatInt(delivery.Size, 10))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, delivery.File); err != nil {
		h.logger.Warn("Передача файла прервана",
			slog.Int64("file_id", params.FileID),
			slog.String("error", err.Error()),
		)
	}
}

// contentDisposition формирует заголовок attachment с исходным именем файла.
// Для не-ASCII имён добавляется filename* (RFC 5987), а filename содержит
// ASCII-замену.
func contentDisposition(filename string) string {
	var fallback strings.Builder
	ascii := true
	for _, r := range filename {
		switch {
		case r == '"' || r == '\\' || r < 0x20 || r == 0x7f:
			fallback.WriteByte('_')
		case r > 0x7f:
			ascii = false
			fallback.WriteByte('_')
		default:
			fallback.WriteRune(r)
		}
	}

	value := `attachment; filename="` + fallback.String() + `"`
	if !ascii {
		value += "; filename*=UTF-8''" + url.PathEscape(filename)
	}
	return value
}
