// registry.go — реестр материалов: список области курса и мягкое удаление.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/goartstore/course-materials/internal/domain/capability"
	"github.com/bigkaa/goartstore/course-materials/internal/domain/model"
	"github.com/bigkaa/goartstore/course-materials/internal/repository"
)

var deletesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "cm_deletes_total",
	Help: "Количество удалений материалов (по результату).",
}, []string{"status"})

// Listing — содержимое блока материалов курса для конкретного пользователя.
type Listing struct {
	CourseID  int64
	Scope     model.ScopeKey
	Files     []*model.FileRecord
	CanManage bool
}

// RegistryService — чтение реестра и удаление материалов.
type RegistryService struct {
	files  repository.FileRepository
	tx     FileTxRunner
	store  FileStore
	scopes ScopeResolver
	guard  *Guard
	logger *slog.Logger
}

// NewRegistryService создаёт сервис реестра.
func NewRegistryService(
	files repository.FileRepository,
	tx FileTxRunner,
	store FileStore,
	scopes ScopeResolver,
	guard *Guard,
	logger *slog.Logger,
) *RegistryService {
	return &RegistryService{
		files:  files,
		tx:     tx,
		store:  store,
		scopes: scopes,
		guard:  guard,
		logger: logger.With(slog.String("component", "registry_service")),
	}
}

// ListVisible возвращает неудалённые материалы области.
func (s *RegistryService) ListVisible(ctx context.Context, scope model.ScopeKey) ([]*model.FileRecord, error) {
	files, err := s.files.ListVisible(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("список материалов области %s: %w", scope, err)
	}
	return files, nil
}

// Get возвращает запись реестра по ID.
func (s *RegistryService) Get(ctx context.Context, id int64) (*model.FileRecord, error) {
	f, err := s.files.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: файл %d", ErrNotFound, id)
		}
		return nil, err
	}
	return f, nil
}

// Listing собирает блок материалов курса. Список видят пользователи
// с правом скачивания или управления.
func (s *RegistryService) Listing(ctx context.Context, p *capability.Principal, courseID int64) (*Listing, error) {
	canManage := s.guard.Has(p, capability.ManageFiles, courseID)
	if !canManage {
		if err := s.guard.Require(ctx, p, capability.DownloadFile, courseID); err != nil {
			return nil, err
		}
	}

	scope, err := s.scopes.ResolveScope(ctx, courseID)
	if err != nil {
		return nil, err
	}
	files, err := s.ListVisible(ctx, scope)
	if err != nil {
		return nil, err
	}

	return &Listing{
		CourseID:  courseID,
		Scope:     scope,
		Files:     files,
		CanManage: canManage,
	}, nil
}

// SoftDelete помечает материал удалённым и удаляет файл с диска.
// Отсутствующий на диске файл не мешает удалению записи, любая другая
// ошибка удаления файла откатывает пометку.
func (s *RegistryService) SoftDelete(ctx context.Context, p *capability.Principal, courseID, fileID int64) error {
	if err := s.guard.Require(ctx, p, capability.ManageFiles, courseID); err != nil {
		deletesTotal.WithLabelValues("denied").Inc()
		return err
	}

	scope, err := s.scopes.ResolveScope(ctx, courseID)
	if err != nil {
		deletesTotal.WithLabelValues("error").Inc()
		return err
	}

	var record *model.FileRecord
	err = s.tx.WithFiles(ctx, func(files repository.FileRepository) error {
		f, err := files.GetByID(ctx, fileID)
		if err != nil {
			return err
		}
		if f.Deleted || f.Scope != scope {
			return repository.ErrNotFound
		}
		if err := files.MarkDeleted(ctx, fileID); err != nil {
			return err
		}
		record = f
		return s.store.Delete(f.Scope, f.StoredFilename)
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			deletesTotal.WithLabelValues("not_found").Inc()
			return fmt.Errorf("%w: файл %d в курсе %d", ErrNotFound, fileID, courseID)
		}
		deletesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("удаление файла %d: %w", fileID, err)
	}

	deletesTotal.WithLabelValues("ok").Inc()
	s.logger.InfoContext(ctx, "Материал удалён",
		slog.Int64("file_id", fileID),
		slog.String("scope", record.Scope.String()),
		slog.String("filename", record.Filename),
		slog.String("user_id", p.UserID),
	)
	return nil
}
