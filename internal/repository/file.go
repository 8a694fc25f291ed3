package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/goartstore/course-materials/internal/domain/model"
)

// FileRepository — реестр материалов (таблица files).
type FileRepository interface {
	// Create вставляет запись; ID и CreatedAt заполняются из базы.
	Create(ctx context.Context, f *model.FileRecord) error
	// GetByID возвращает запись по ID (включая удалённые).
	GetByID(ctx context.Context, id int64) (*model.FileRecord, error)
	// ListVisible возвращает неудалённые записи области по возрастанию ID.
	ListVisible(ctx context.Context, scope model.ScopeKey) ([]*model.FileRecord, error)
	// ListAll возвращает все записи области, включая удалённые.
	ListAll(ctx context.Context, scope model.ScopeKey) ([]*model.FileRecord, error)
	// MarkDeleted помечает запись удалённой.
	MarkDeleted(ctx context.Context, id int64) error
}

// fileRepo — реализация FileRepository.
type fileRepo struct {
	db DBTX
}

// NewFileRepository создаёт репозиторий реестра материалов.
func NewFileRepository(db DBTX) FileRepository {
	return &fileRepo{db: db}
}

const fileColumns = `id, description, filename, scope_ref_id, scope_type, deleted,
	stored_filename, uploader_id, created_at`

func scanFile(row pgx.Row) (*model.FileRecord, error) {
	f := &model.FileRecord{}
	var scopeType string
	err := row.Scan(&f.ID, &f.Description, &f.Filename, &f.Scope.RefID, &scopeType,
		&f.Deleted, &f.StoredFilename, &f.UploaderID, &f.CreatedAt)
	if err != nil {
		return nil, err
	}
	f.Scope.Type = model.ScopeType(scopeType)
	return f, nil
}

func (r *fileRepo) Create(ctx context.Context, f *model.FileRecord) error {
	query := `
		INSERT INTO files (description, filename, scope_ref_id, scope_type,
			stored_filename, uploader_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		f.Description, f.Filename, f.Scope.RefID, string(f.Scope.Type),
		f.StoredFilename, f.UploaderID,
	).Scan(&f.ID, &f.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: имя %s уже занято в области %s", ErrConflict, f.StoredFilename, f.Scope)
		}
		return fmt.Errorf("ошибка создания записи файла: %w", err)
	}
	return nil
}

func (r *fileRepo) GetByID(ctx context.Context, id int64) (*model.FileRecord, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1`

	f, err := scanFile(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения файла: %w", err)
	}
	return f, nil
}

func (r *fileRepo) ListVisible(ctx context.Context, scope model.ScopeKey) ([]*model.FileRecord, error) {
	query := `SELECT ` + fileColumns + `
		FROM files
		WHERE scope_ref_id = $1 AND scope_type = $2 AND deleted = false
		ORDER BY id`
	return r.list(ctx, query, scope)
}

func (r *fileRepo) ListAll(ctx context.Context, scope model.ScopeKey) ([]*model.FileRecord, error) {
	query := `SELECT ` + fileColumns + `
		FROM files
		WHERE scope_ref_id = $1 AND scope_type = $2
		ORDER BY id`
	return r.list(ctx, query, scope)
}

func (r *fileRepo) list(ctx context.Context, query string, scope model.ScopeKey) ([]*model.FileRecord, error) {
	rows, err := r.db.Query(ctx, query, scope.RefID, string(scope.Type))
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка файлов: %w", err)
	}
	defer rows.Close()

	var result []*model.FileRecord
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования файла: %w", err)
		}
		result = append(result, f)
	}
	return result, rows.Err()
}

func (r *fileRepo) MarkDeleted(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE files SET deleted = true WHERE id = $1 AND deleted = false`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления файла: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
