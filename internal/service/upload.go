// upload.go — сервис загрузки материалов.
// Pipeline: право managefiles → область курса → каталог области →
// файл на диск под уникальным именем → запись в реестре.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/goartstore/course-materials/internal/domain/capability"
	"github.com/bigkaa/goartstore/course-materials/internal/domain/model"
	"github.com/bigkaa/goartstore/course-materials/internal/repository"
	"github.com/bigkaa/goartstore/course-materials/internal/storage/filestore"
)

// maxDescriptionRunes — предельная длина описания.
const maxDescriptionRunes = 255

var (
	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cm_uploads_total",
		Help: "Количество загрузок материалов (по результату).",
	}, []string{"status"})

	uploadBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cm_upload_bytes_total",
		Help: "Общее количество загруженных байт.",
	})
)

// UploadParams — параметры загрузки.
type UploadParams struct {
	Principal *capability.Principal
	CourseID  int64
	// ScopeID и ScopeType — область, которую видел пользователь в форме
	// (0 и "" — не переданы)
	ScopeID   int64
	ScopeType model.ScopeType
	// Filename — имя файла, как его прислал клиент
	Filename    string
	Description string
	Content     io.Reader
}

// UploadService — сервис загрузки материалов.
type UploadService struct {
	files  repository.FileRepository
	store  FileStore
	scopes ScopeResolver
	guard  *Guard
	logger *slog.Logger
}

// NewUploadService создаёт сервис загрузки.
func NewUploadService(
	files repository.FileRepository,
	store FileStore,
	scopes ScopeResolver,
	guard *Guard,
	logger *slog.Logger,
) *UploadService {
	return &UploadService{
		files:  files,
		store:  store,
		scopes: scopes,
		guard:  guard,
		logger: logger.With(slog.String("component", "upload_service")),
	}
}

// Upload сохраняет файл и создаёт запись в реестре.
//
// Ошибки: ErrPermission (до любых действий с файловой системой),
// ErrValidation, ErrNotFound (курс), ErrLMSUnavailable,
// ErrStorageUnavailable (каталог или файл; запись в реестре не создаётся).
func (s *UploadService) Upload(ctx context.Context, p UploadParams) (*model.FileRecord, error) {
	if err := s.guard.Require(ctx, p.Principal, capability.ManageFiles, p.CourseID); err != nil {
		uploadsTotal.WithLabelValues("denied").Inc()
		return nil, err
	}

	filename := filestore.CleanFilename(p.Filename)
	if filename == "" {
		uploadsTotal.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: не выбран файл", ErrValidation)
	}

	description := strings.TrimSpace(p.Description)
	if description == "" {
		description = filename
	}
	if utf8.RuneCountInString(description) > maxDescriptionRunes {
		uploadsTotal.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: описание длиннее %d символов", ErrValidation, maxDescriptionRunes)
	}

	scope, err := s.scopes.ResolveScope(ctx, p.CourseID)
	if err != nil {
		uploadsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	if p.ScopeID != 0 && (p.ScopeID != scope.RefID || (p.ScopeType != "" && p.ScopeType != scope.Type)) {
		uploadsTotal.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: область формы %d/%s не совпадает с областью курса %s",
			ErrValidation, p.ScopeID, p.ScopeType, scope)
	}

	if err := s.store.EnsureScopeDir(scope); err != nil {
		uploadsTotal.WithLabelValues("storage_error").Inc()
		s.logger.ErrorContext(ctx, "Не удалось создать каталог области",
			slog.String("scope", scope.String()),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	storedName := filestore.GenerateStoredName(filename)
	size, err := s.store.Save(scope, storedName, p.Content)
	if err != nil {
		uploadsTotal.WithLabelValues("storage_error").Inc()
		s.logger.ErrorContext(ctx, "Ошибка записи файла",
			slog.String("scope", scope.String()),
			slog.String("stored_filename", storedName),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	record := &model.FileRecord{
		Description:    description,
		Filename:       filename,
		Scope:          scope,
		StoredFilename: storedName,
		UploaderID:     p.Principal.UserID,
	}
	if err := s.files.Create(ctx, record); err != nil {
		// Файл без записи в реестре никому не виден, удаляем его
		if delErr := s.store.Delete(scope, storedName); delErr != nil {
			s.logger.WarnContext(ctx, "Не удалось удалить файл после ошибки реестра",
				slog.String("stored_filename", storedName),
				slog.String("error", delErr.Error()),
			)
		}
		uploadsTotal.WithLabelValues("error").Inc()
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
		return nil, fmt.Errorf("создание записи файла: %w", err)
	}

	uploadsTotal.WithLabelValues("ok").Inc()
	uploadBytesTotal.Add(float64(size))

	s.logger.InfoContext(ctx, "Материал загружен",
		slog.Int64("file_id", record.ID),
		slog.String("scope", scope.String()),
		slog.String("filename", filename),
		slog.String("stored_filename", storedName),
		slog.Int64("size", size),
		slog.String("uploader_id", record.UploaderID),
	)

	return record, nil
}
