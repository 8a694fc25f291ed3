// Пакет handlers — HTTP-обработчики блока материалов курса.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/goartstore/course-materials/internal/domain/capability"
	"github.com/bigkaa/goartstore/course-materials/internal/domain/model"
	"github.com/bigkaa/goartstore/course-materials/internal/service"
	"github.com/bigkaa/goartstore/course-materials/internal/ui/i18n"
	"github.com/bigkaa/goartstore/course-materials/internal/ui/views"
)

// Registry — реестр материалов (service.RegistryService).
type Registry interface {
	Listing(ctx context.Context, p *capability.Principal, courseID int64) (*service.Listing, error)
	SoftDelete(ctx context.Context, p *capability.Principal, courseID, fileID int64) error
}

// Uploader — загрузка материалов (service.UploadService).
type Uploader interface {
	Upload(ctx context.Context, p service.UploadParams) (*model.FileRecord, error)
}

// Downloader — выдача материалов (service.DownloadService).
type Downloader interface {
	Prepare(ctx context.Context, req service.DownloadRequest) (*service.Delivery, error)
}

// ActivityLogs — журналы загрузок и скачиваний (service.LogService).
type ActivityLogs interface {
	Uploads(ctx context.Context, p *capability.Principal, courseID int64) ([]*model.FileRecord, error)
	Downloads(ctx context.Context, p *capability.Principal, courseID int64) ([]*model.DownloadLogEntry, error)
}

// courseIDParam извлекает {courseID} из пути.
func courseIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "courseID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// renderPage отрисовывает HTML-страницу с указанным статусом.
func renderPage(w http.ResponseWriter, r *http.Request, logger *slog.Logger, status int, page templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := page.Render(r.Context(), w); err != nil {
		logger.Error("Ошибка рендеринга страницы",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
}

// renderMessage отрисовывает страницу сообщения по ключу перевода.
func renderMessage(w http.ResponseWriter, r *http.Request, logger *slog.Logger, status int, key string) {
	renderPage(w, r, logger, status, views.MessagePage(i18n.T(r.Context(), key)))
}
