// logs.go — журналы загрузок и скачиваний области курса.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bigkaa/goartstore/course-materials/internal/domain/capability"
	"github.com/bigkaa/goartstore/course-materials/internal/domain/model"
	"github.com/bigkaa/goartstore/course-materials/internal/repository"
)

// LogService — журналы для пользователей с правом managefiles.
type LogService struct {
	files     repository.FileRepository
	downloads repository.DownloadRepository
	scopes    ScopeResolver
	guard     *Guard
	logger    *slog.Logger
}

// NewLogService создаёт сервис журналов.
func NewLogService(
	files repository.FileRepository,
	downloads repository.DownloadRepository,
	scopes ScopeResolver,
	guard *Guard,
	logger *slog.Logger,
) *LogService {
	return &LogService{
		files:     files,
		downloads: downloads,
		scopes:    scopes,
		guard:     guard,
		logger:    logger.With(slog.String("component", "log_service")),
	}
}

// Uploads возвращает все загрузки области курса, включая удалённые материалы.
func (s *LogService) Uploads(ctx context.Context, p *capability.Principal, courseID int64) ([]*model.FileRecord, error) {
	scope, err := s.authorizedScope(ctx, p, courseID)
	if err != nil {
		return nil, err
	}
	files, err := s.files.ListAll(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("журнал загрузок области %s: %w", scope, err)
	}
	return files, nil
}

// Downloads возвращает подтверждённые выдачи материалов области курса.
func (s *LogService) Downloads(ctx context.Context, p *capability.Principal, courseID int64) ([]*model.DownloadLogEntry, error) {
	scope, err := s.authorizedScope(ctx, p, courseID)
	if err != nil {
		return nil, err
	}
	entries, err := s.downloads.ListByScope(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("журнал скачиваний области %s: %w", scope, err)
	}
	return entries, nil
}

func (s *LogService) authorizedScope(ctx context.Context, p *capability.Principal, courseID int64) (model.ScopeKey, error) {
	if err := s.guard.Require(ctx, p, capability.ManageFiles, courseID); err != nil {
		return model.ScopeKey{}, err
	}
	return s.scopes.ResolveScope(ctx, courseID)
}
