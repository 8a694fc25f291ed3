// download.go — сервис выдачи материалов.
//
// Конечный автомат одного запроса:
//
//	REQUESTED → AUTHORIZED → LOOKED_UP → LEDGER_CHECKED → [EXTERNAL_CONFIRM] → DELIVERED
//
// с выходами DENIED (нет права downloadfile) и UNAVAILABLE (любая другая
// неудача). Запись журнала создаётся в два шага: резерв pending до
// внешнего подтверждения и Confirm/Revert после него, поэтому транзакция
// базы данных не держится на время HTTP-запроса.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/goartstore/course-materials/internal/domain/capability"
	"github.com/bigkaa/goartstore/course-materials/internal/domain/mimetype"
	"github.com/bigkaa/goartstore/course-materials/internal/domain/model"
	"github.com/bigkaa/goartstore/course-materials/internal/repository"
	"github.com/bigkaa/goartstore/course-materials/internal/storage/filestore"
)

// DownloadState — состояние автомата выдачи.
type DownloadState string

const (
	StateRequested       DownloadState = "REQUESTED"
	StateAuthorized      DownloadState = "AUTHORIZED"
	StateLookedUp        DownloadState = "LOOKED_UP"
	StateLedgerChecked   DownloadState = "LEDGER_CHECKED"
	StateExternalConfirm DownloadState = "EXTERNAL_CONFIRM"
	StateDelivered       DownloadState = "DELIVERED"
	StateDenied          DownloadState = "DENIED"
	StateUnavailable     DownloadState = "UNAVAILABLE"
)

// ledgerTimeout — таймаут Confirm/Revert, которые выполняются даже
// после отмены контекста запроса.
const ledgerTimeout = 5 * time.Second

var (
	downloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cm_downloads_total",
		Help: "Количество запросов на скачивание (по конечному состоянию).",
	}, []string{"state"})

	signRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cm_delivery_sign_total",
		Help: "Количество запросов подтверждения выдачи (по результату).",
	}, []string{"result"})

	signDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cm_delivery_sign_duration_seconds",
		Help:    "Длительность запроса подтверждения выдачи.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	})
)

// DownloadRequest — параметры запроса на скачивание.
type DownloadRequest struct {
	Principal *capability.Principal
	FileID    int64
	// ScopeID — область, указанная в ссылке
	ScopeID  int64
	CourseID int64
}

// Delivery — подготовленный к отдаче файл. Вызывающий код обязан закрыть File.
type Delivery struct {
	File        *os.File
	Size        int64
	Filename    string
	ContentType string
	ModTime     time.Time
}

// DownloadService — сервис выдачи материалов.
type DownloadService struct {
	files      repository.FileRepository
	downloads  repository.DownloadRepository
	store      FileStore
	scopes     ScopeResolver
	signer     DeliverySigner
	guard      *Guard
	staleAfter time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

// NewDownloadService создаёт сервис выдачи.
// staleAfter — возраст записи pending, после которого она считается брошенной.
func NewDownloadService(
	files repository.FileRepository,
	downloads repository.DownloadRepository,
	store FileStore,
	scopes ScopeResolver,
	signer DeliverySigner,
	guard *Guard,
	staleAfter time.Duration,
	logger *slog.Logger,
) *DownloadService {
	return &DownloadService{
		files:      files,
		downloads:  downloads,
		store:      store,
		scopes:     scopes,
		signer:     signer,
		guard:      guard,
		staleAfter: staleAfter,
		now:        time.Now,
		logger:     logger.With(slog.String("component", "download_service")),
	}
}

// Prepare проводит запрос через автомат выдачи и возвращает файл для отдачи.
//
// Ошибки: ErrPermission (DENIED); ErrNotFound, ErrBlobMissing,
// ErrDeliveryNotConfirmed и прочие (UNAVAILABLE).
func (s *DownloadService) Prepare(ctx context.Context, req DownloadRequest) (*Delivery, error) {
	state := StateRequested
	userID := ""
	if req.Principal != nil {
		userID = req.Principal.UserID
	}
	log := s.logger.With(
		slog.String("user_id", userID),
		slog.Int64("file_id", req.FileID),
		slog.Int64("course_id", req.CourseID),
	)
	transition := func(next DownloadState) {
		log.DebugContext(ctx, "Переход автомата выдачи",
			slog.String("from", string(state)),
			slog.String("to", string(next)),
		)
		state = next
	}
	fail := func(final DownloadState, err error) (*Delivery, error) {
		transition(final)
		downloadsTotal.WithLabelValues(string(final)).Inc()
		if final == StateUnavailable {
			log.WarnContext(ctx, "Выдача материала невозможна", slog.String("error", err.Error()))
		}
		return nil, err
	}

	// REQUESTED → AUTHORIZED
	if err := s.guard.Require(ctx, req.Principal, capability.DownloadFile, req.CourseID); err != nil {
		return fail(StateDenied, err)
	}
	transition(StateAuthorized)

	// AUTHORIZED → LOOKED_UP
	record, err := s.lookup(ctx, req)
	if err != nil {
		return fail(StateUnavailable, err)
	}
	f, err := s.store.Open(record.Scope, record.StoredFilename)
	if err != nil {
		if errors.Is(err, filestore.ErrBlobNotFound) {
			return fail(StateUnavailable, fmt.Errorf("%w: %v", ErrBlobMissing, err))
		}
		return fail(StateUnavailable, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fail(StateUnavailable, fmt.Errorf("stat файла: %w", err))
	}
	transition(StateLookedUp)

	// LOOKED_UP → LEDGER_CHECKED (→ EXTERNAL_CONFIRM)
	if err := s.recordDelivery(ctx, req.Principal, req.CourseID, record, transition); err != nil {
		f.Close()
		return fail(StateUnavailable, err)
	}

	// → DELIVERED
	transition(StateDelivered)
	downloadsTotal.WithLabelValues(string(StateDelivered)).Inc()
	log.InfoContext(ctx, "Материал выдан",
		slog.String("filename", record.Filename),
		slog.Int64("size", info.Size()),
	)

	return &Delivery{
		File:        f,
		Size:        info.Size(),
		Filename:    record.Filename,
		ContentType: mimetype.Classify(record.Filename).ContentType,
		ModTime:     info.ModTime(),
	}, nil
}

// lookup находит запись и проверяет, что она видима в контексте запроса:
// не удалена, принадлежит области из ссылки и области курса.
func (s *DownloadService) lookup(ctx context.Context, req DownloadRequest) (*model.FileRecord, error) {
	record, err := s.files.GetByID(ctx, req.FileID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: файл %d", ErrNotFound, req.FileID)
		}
		return nil, fmt.Errorf("получение файла %d: %w", req.FileID, err)
	}
	if record.Deleted {
		return nil, fmt.Errorf("%w: файл %d удалён", ErrNotFound, req.FileID)
	}
	if record.Scope.RefID != req.ScopeID {
		return nil, fmt.Errorf("%w: файл %d не принадлежит области %d", ErrNotFound, req.FileID, req.ScopeID)
	}

	scope, err := s.scopes.ResolveScope(ctx, req.CourseID)
	if err != nil {
		return nil, err
	}
	if record.Scope != scope {
		return nil, fmt.Errorf("%w: файл %d не относится к курсу %d", ErrNotFound, req.FileID, req.CourseID)
	}
	return record, nil
}

// recordDelivery гарантирует запись журнала для пары (файл, пользователь).
// Повторная выдача уже учтённого файла не создаёт записей и не вызывает
// внешний сервис.
func (s *DownloadService) recordDelivery(
	ctx context.Context,
	p *capability.Principal,
	courseID int64,
	record *model.FileRecord,
	transition func(DownloadState),
) error {
	staleBefore := s.now().Add(-s.staleAfter)
	res, err := s.downloads.Reserve(ctx, record.ID, p.UserID, staleBefore)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryNotConfirmed, err)
	}

	switch res.State {
	case repository.AlreadyConfirmed:
		transition(StateLedgerChecked)
		return nil
	case repository.InFlight:
		return fmt.Errorf("%w: параллельная выдача ещё не завершена", ErrDeliveryNotConfirmed)
	}
	transition(StateLedgerChecked)

	// Подтверждение требуется только от пользователей с правом подписи,
	// администраторы площадки его не проходят
	if !capability.IsSiteAdmin(p) && s.guard.Has(p, capability.SignMaterialDelivery, courseID) {
		transition(StateExternalConfirm)
		if err := s.sign(ctx, p, record); err != nil {
			s.revert(ctx, res.ID)
			return err
		}
	}

	lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ledgerTimeout)
	defer cancel()
	if err := s.downloads.Confirm(lctx, res.ID); err != nil {
		s.revert(ctx, res.ID)
		return fmt.Errorf("%w: %v", ErrDeliveryNotConfirmed, err)
	}
	return nil
}

// sign запрашивает внешнее подтверждение выдачи.
func (s *DownloadService) sign(ctx context.Context, p *capability.Principal, record *model.FileRecord) error {
	start := time.Now()
	err := s.signer.SignDelivery(ctx, p.UserID, record.Scope.RefID, record.ID)
	signDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		signRequestsTotal.WithLabelValues("rejected").Inc()
		return fmt.Errorf("%w: %v", ErrDeliveryNotConfirmed, err)
	}
	signRequestsTotal.WithLabelValues("ok").Inc()
	return nil
}

// revert удаляет зарезервированную запись журнала. Выполняется и после
// отмены контекста запроса, чтобы пара (файл, пользователь) не осталась
// заблокированной до истечения staleAfter.
func (s *DownloadService) revert(ctx context.Context, id int64) {
	lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ledgerTimeout)
	defer cancel()
	if err := s.downloads.Revert(lctx, id); err != nil {
		s.logger.ErrorContext(ctx, "Не удалось откатить запись журнала",
			slog.Int64("download_id", id),
			slog.String("error", err.Error()),
		)
	}
}
