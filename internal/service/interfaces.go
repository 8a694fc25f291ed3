package service

import (
	"context"
	"io"
	"os"

	"github.com/bigkaa/goartstore/course-materials/internal/domain/model"
	"github.com/bigkaa/goartstore/course-materials/internal/repository"
)

// FileStore — файловое хранилище областей (filestore.FileStore).
type FileStore interface {
	EnsureScopeDir(scope model.ScopeKey) error
	Save(scope model.ScopeKey, storedName string, reader io.Reader) (int64, error)
	Open(scope model.ScopeKey, storedName string) (*os.File, error)
	Delete(scope model.ScopeKey, storedName string) error
}

// ScopeResolver — вычисление области по курсу (CourseDirectory).
type ScopeResolver interface {
	ResolveScope(ctx context.Context, courseID int64) (model.ScopeKey, error)
}

// FileTxRunner — транзакция над реестром (repository.TxRunner).
type FileTxRunner interface {
	WithFiles(ctx context.Context, fn func(files repository.FileRepository) error) error
}

// DeliverySigner — внешний сервис подтверждения выдачи (signclient.Client).
type DeliverySigner interface {
	SignDelivery(ctx context.Context, userID string, scopeRefID, fileID int64) error
}
