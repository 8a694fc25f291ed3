package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/goartstore/course-materials/internal/domain/model"
)

// ReservationState — итог попытки зарезервировать запись журнала.
type ReservationState int

const (
	// Reserved — создана (или перехвачена брошенная) запись pending.
	Reserved ReservationState = iota
	// AlreadyConfirmed — выдача этому пользователю уже учтена.
	AlreadyConfirmed
	// InFlight — параллельный запрос того же пользователя ещё не завершён.
	InFlight
)

// Reservation — результат Reserve.
type Reservation struct {
	State ReservationState
	// ID записи pending (только для Reserved)
	ID int64
}

// DownloadRepository — журнал выдачи материалов (таблица downloads).
//
// Запись создаётся в два шага: Reserve (pending) и Confirm или Revert.
// Между шагами выполняется внешний HTTP-запрос, поэтому транзакция
// базы данных на это время не удерживается.
type DownloadRepository interface {
	// Reserve резервирует запись для пары (fileID, userID).
	// Записи pending старше staleBefore считаются брошенными и перехватываются.
	Reserve(ctx context.Context, fileID int64, userID string, staleBefore time.Time) (Reservation, error)
	// Confirm переводит запись pending в confirmed.
	Confirm(ctx context.Context, id int64) error
	// Revert удаляет запись pending.
	Revert(ctx context.Context, id int64) error
	// HasConfirmed сообщает, учтена ли выдача файла пользователю.
	HasConfirmed(ctx context.Context, fileID int64, userID string) (bool, error)
	// ListByScope возвращает подтверждённые выдачи файлов области.
	ListByScope(ctx context.Context, scope model.ScopeKey) ([]*model.DownloadLogEntry, error)
}

// downloadRepo — реализация DownloadRepository.
type downloadRepo struct {
	db DBTX
}

// NewDownloadRepository создаёт репозиторий журнала выдачи.
func NewDownloadRepository(db DBTX) DownloadRepository {
	return &downloadRepo{db: db}
}

func (r *downloadRepo) Reserve(ctx context.Context, fileID int64, userID string, staleBefore time.Time) (Reservation, error) {
	query := `
		INSERT INTO downloads (file_id, user_id, downloaded_at, status)
		VALUES ($1, $2, now(), 'pending')
		ON CONFLICT (file_id, user_id) DO UPDATE
			SET downloaded_at = now()
			WHERE downloads.status = 'pending' AND downloads.downloaded_at < $3
		RETURNING id`

	var id int64
	err := r.db.QueryRow(ctx, query, fileID, userID, staleBefore).Scan(&id)
	if err == nil {
		return Reservation{State: Reserved, ID: id}, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Reservation{}, fmt.Errorf("ошибка резервирования записи журнала: %w", err)
	}

	// Строка уже есть и не перехвачена: определяем её состояние
	var status string
	err = r.db.QueryRow(ctx,
		`SELECT status FROM downloads WHERE file_id = $1 AND user_id = $2`,
		fileID, userID,
	).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Запись откатили между двумя запросами
			return Reservation{State: InFlight}, nil
		}
		return Reservation{}, fmt.Errorf("ошибка чтения записи журнала: %w", err)
	}
	if model.DownloadStatus(status) == model.DownloadConfirmed {
		return Reservation{State: AlreadyConfirmed}, nil
	}
	return Reservation{State: InFlight}, nil
}

func (r *downloadRepo) Confirm(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE downloads SET status = 'confirmed', downloaded_at = now()
		WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return fmt.Errorf("ошибка подтверждения записи журнала: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *downloadRepo) Revert(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM downloads WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return fmt.Errorf("ошибка отката записи журнала: %w", err)
	}
	return nil
}

func (r *downloadRepo) HasConfirmed(ctx context.Context, fileID int64, userID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM downloads
			WHERE file_id = $1 AND user_id = $2 AND status = 'confirmed'
		)`, fileID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки журнала: %w", err)
	}
	return exists, nil
}

func (r *downloadRepo) ListByScope(ctx context.Context, scope model.ScopeKey) ([]*model.DownloadLogEntry, error) {
	query := `
		SELECT d.file_id, f.filename, f.description, d.user_id, d.downloaded_at
		FROM downloads d
		JOIN files f ON f.id = d.file_id
		WHERE f.scope_ref_id = $1 AND f.scope_type = $2 AND d.status = 'confirmed'
		ORDER BY d.downloaded_at DESC, d.id DESC`

	rows, err := r.db.Query(ctx, query, scope.RefID, string(scope.Type))
	if err != nil {
		return nil, fmt.Errorf("ошибка получения журнала скачиваний: %w", err)
	}
	defer rows.Close()

	var result []*model.DownloadLogEntry
	for rows.Next() {
		e := &model.DownloadLogEntry{}
		if err := rows.Scan(&e.FileID, &e.Filename, &e.Description, &e.UserID, &e.DownloadedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования журнала: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}
