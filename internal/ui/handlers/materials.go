// materials.go — блок материалов курса: просмотр, загрузка, удаление.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/bigkaa/goartstore/course-materials/internal/api/middleware"
	"github.com/bigkaa/goartstore/course-materials/internal/domain/model"
	"github.com/bigkaa/goartstore/course-materials/internal/service"
	"github.com/bigkaa/goartstore/course-materials/internal/ui/views"
)

const (
	// statusParam — query-параметр результата последней операции.
	statusParam = "status"
	// statusNoDir — не удалось создать каталог области.
	statusNoDir = "nodir"

	// multipartMemory — часть multipart-формы, хранимая в памяти.
	multipartMemory = 8 << 20
)

// MaterialsHandler — обработчик блока материалов.
type MaterialsHandler struct {
	registry      Registry
	uploader      Uploader
	maxUploadSize int64
	logger        *slog.Logger
}

// NewMaterialsHandler создаёт MaterialsHandler.
// maxUploadSize — ограничение размера тела запроса загрузки (CM_MAX_UPLOAD_SIZE).
func NewMaterialsHandler(registry Registry, uploader Uploader, maxUploadSize int64, logger *slog.Logger) *MaterialsHandler {
	return &MaterialsHandler{
		registry:      registry,
		uploader:      uploader,
		maxUploadSize: maxUploadSize,
		logger:        logger.With(slog.String("component", "ui.materials")),
	}
}

// HandleView обрабатывает GET /courses/{courseID}/materials.
func (h *MaterialsHandler) HandleView(w http.ResponseWriter, r *http.Request) {
	courseID, ok := courseIDParam(r)
	if !ok {
		renderMessage(w, r, h.logger, http.StatusNotFound, "wrong_resource")
		return
	}

	listing, err := h.registry.Listing(r.Context(), middleware.PrincipalFromContext(r.Context()), courseID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPermission):
			renderMessage(w, r, h.logger, http.StatusForbidden, "permission_denied")
		case errors.Is(err, service.ErrNotFound):
			renderMessage(w, r, h.logger, http.StatusNotFound, "wrong_resource")
		default:
			h.logger.Error("Ошибка получения списка материалов",
				slog.Int64("course_id", courseID),
				slog.String("error", err.Error()),
			)
			renderMessage(w, r, h.logger, http.StatusServiceUnavailable, "wrong_resource")
		}
		return
	}

	renderPage(w, r, h.logger, http.StatusOK, views.MaterialsPage(views.MaterialsData{
		CourseID:           listing.CourseID,
		Scope:              listing.Scope,
		Files:              listing.Files,
		CanManage:          listing.CanManage,
		StorageUnavailable: r.URL.Query().Get(statusParam) == statusNoDir,
	}))
}

// HandleSubmit обрабатывает POST /courses/{courseID}/materials.
// action=delete удаляет материал file_id, иначе форма считается загрузкой.
// Ответ всегда 303 на страницу блока.
func (h *MaterialsHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	courseID, ok := courseIDParam(r)
	if !ok {
		renderMessage(w, r, h.logger, http.StatusNotFound, "wrong_resource")
		return
	}
	back := views.MaterialsURL(courseID)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		h.logger.Warn("Некорректная форма блока материалов",
			slog.Int64("course_id", courseID),
			slog.String("error", err.Error()),
		)
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}

	if r.FormValue("action") == "delete" {
		h.delete(r, courseID)
	} else if h.upload(r, courseID) {
		back += "?" + statusParam + "=" + statusNoDir
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}

// delete удаляет материал. Ошибки не показываются пользователю.
func (h *MaterialsHandler) delete(r *http.Request, courseID int64) {
	fileID, err := strconv.ParseInt(r.FormValue("file_id"), 10, 64)
	if err != nil {
		h.logger.Debug("Удаление без корректного file_id", slog.Int64("course_id", courseID))
		return
	}

	p := middleware.PrincipalFromContext(r.Context())
	err = h.registry.SoftDelete(r.Context(), p, courseID, fileID)
	switch {
	case err == nil, errors.Is(err, service.ErrPermission):
	case errors.Is(err, service.ErrNotFound):
		h.logger.Info("Удаление несуществующего материала",
			slog.Int64("course_id", courseID),
			slog.Int64("file_id", fileID),
		)
	default:
		h.logger.Error("Ошибка удаления материала",
			slog.Int64("course_id", courseID),
			slog.Int64("file_id", fileID),
			slog.String("error", err.Error()),
		)
	}
}

// upload сохраняет материал из формы. Возвращает true, если каталог
// области не удалось создать.
func (h *MaterialsHandler) upload(r *http.Request, courseID int64) (storageUnavailable bool) {
	file, header, err := r.FormFile("userfile")
	if err != nil {
		h.logger.Debug("Форма загрузки без файла",
			slog.Int64("course_id", courseID),
			slog.String("error", err.Error()),
		)
		return false
	}
	defer file.Close()

	// Поля области из формы необязательны, при наличии сверяются с курсом
	scopeID, _ := strconv.ParseInt(r.FormValue("scopeid"), 10, 64)

	_, err = h.uploader.Upload(r.Context(), service.UploadParams{
		Principal:   middleware.PrincipalFromContext(r.Context()),
		CourseID:    courseID,
		ScopeID:     scopeID,
		ScopeType:   model.ScopeType(r.FormValue("scopetype")),
		Filename:    header.Filename,
		Description: r.FormValue("descriptionfile"),
		Content:     file,
	})
	switch {
	case err == nil, errors.Is(err, service.ErrPermission):
		return false
	case errors.Is(err, service.ErrStorageUnavailable):
		return true
	case errors.Is(err, service.ErrValidation):
		h.logger.Info("Загрузка отклонена",
			slog.Int64("course_id", courseID),
			slog.String("error", err.Error()),
		)
	default:
		h.logger.Error("Ошибка загрузки материала",
			slog.Int64("course_id", courseID),
			slog.String("error", err.Error()),
		)
	}
	return false
}
