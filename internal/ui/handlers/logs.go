// logs.go — журналы загрузок и скачиваний области курса.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/bigkaa/goartstore/course-materials/internal/api/middleware"
	"github.com/bigkaa/goartstore/course-materials/internal/service"
	"github.com/bigkaa/goartstore/course-materials/internal/ui/views"
)

// LogsHandler — обработчик журналов.
type LogsHandler struct {
	logs   ActivityLogs
	logger *slog.Logger
}

// NewLogsHandler создаёт LogsHandler.
func NewLogsHandler(logs ActivityLogs, logger *slog.Logger) *LogsHandler {
	return &LogsHandler{
		logs:   logs,
		logger: logger.With(slog.String("component", "ui.logs")),
	}
}

// HandleLog обрабатывает GET /courses/{courseID}/materials/log?action=download|upload.
func (h *LogsHandler) HandleLog(w http.ResponseWriter, r *http.Request) {
	courseID, ok := courseIDParam(r)
	if !ok {
		renderMessage(w, r, h.logger, http.StatusNotFound, "wrong_resource")
		return
	}
	ctx := r.Context()
	p := middleware.PrincipalFromContext(ctx)

	switch r.URL.Query().Get("action") {
	case "upload":
		files, err := h.logs.Uploads(ctx, p, courseID)
		if err != nil {
			h.renderError(w, r, courseID, err)
			return
		}
		renderPage(w, r, h.logger, http.StatusOK, views.UploadLogPage(courseID, files))
	case "download":
		entries, err := h.logs.Downloads(ctx, p, courseID)
		if err != nil {
			h.renderError(w, r, courseID, err)
			return
		}
		renderPage(w, r, h.logger, http.StatusOK, views.DownloadLogPage(courseID, entries))
	default:
		renderMessage(w, r, h.logger, http.StatusNotFound, "wrong_resource")
	}
}

func (h *LogsHandler) renderError(w http.ResponseWriter, r *http.Request, courseID int64, err error) {
	switch {
	case errors.Is(err, service.ErrPermission):
		renderMessage(w, r, h.logger, http.StatusForbidden, "permission_denied")
	case errors.Is(err, service.ErrNotFound):
		renderMessage(w, r, h.logger, http.StatusNotFound, "wrong_resource")
	default:
		h.logger.Error("Ошибка получения журнала",
			slog.Int64("course_id", courseID),
			slog.String("error", err.Error()),
		)
		renderMessage(w, r, h.logger, http.StatusServiceUnavailable, "wrong_resource")
	}
}
