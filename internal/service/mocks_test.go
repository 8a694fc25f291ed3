package service

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bigkaa/goartstore/course-materials/internal/domain/capability"
	"github.com/bigkaa/goartstore/course-materials/internal/domain/model"
	"github.com/bigkaa/goartstore/course-materials/internal/repository"
	"github.com/bigkaa/goartstore/course-materials/internal/storage/filestore"
)

// --- Реестр в памяти ---

// memFileRepo — FileRepository в памяти. createFn позволяет подменить Create.
type memFileRepo struct {
	mu       sync.Mutex
	nextID   int64
	records  map[int64]*model.FileRecord
	createFn func(f *model.FileRecord) error
}

func newMemFileRepo() *memFileRepo {
	return &memFileRepo{records: make(map[int64]*model.FileRecord)}
}

func (r *memFileRepo) Create(_ context.Context, f *model.FileRecord) error {
	if r.createFn != nil {
		if err := r.createFn(f); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	f.ID = r.nextID
	f.CreatedAt = time.Now()
	cp := *f
	r.records[f.ID] = &cp
	return nil
}

func (r *memFileRepo) GetByID(_ context.Context, id int64) (*model.FileRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.records[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (r *memFileRepo) ListVisible(_ context.Context, scope model.ScopeKey) ([]*model.FileRecord, error) {
	return r.list(scope, false), nil
}

func (r *memFileRepo) ListAll(_ context.Context, scope model.ScopeKey) ([]*model.FileRecord, error) {
	return r.list(scope, true), nil
}

func (r *memFileRepo) list(scope model.ScopeKey, withDeleted bool) []*model.FileRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*model.FileRecord
	for id := int64(1); id <= r.nextID; id++ {
		f, ok := r.records[id]
		if !ok || f.Scope != scope || (f.Deleted && !withDeleted) {
			continue
		}
		cp := *f
		result = append(result, &cp)
	}
	return result
}

func (r *memFileRepo) MarkDeleted(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.records[id]
	if !ok || f.Deleted {
		return repository.ErrNotFound
	}
	f.Deleted = true
	return nil
}

// WithFiles имитирует транзакцию: при ошибке fn состояние восстанавливается.
func (r *memFileRepo) WithFiles(_ context.Context, fn func(files repository.FileRepository) error) error {
	r.mu.Lock()
	snapshot := make(map[int64]model.FileRecord, len(r.records))
	for id, f := range r.records {
		snapshot[id] = *f
	}
	r.mu.Unlock()

	if err := fn(r); err != nil {
		r.mu.Lock()
		for id, f := range snapshot {
			restored := f
			r.records[id] = &restored
		}
		r.mu.Unlock()
		return err
	}
	return nil
}

// --- Журнал выдачи в памяти ---

type ledgerKey struct {
	fileID int64
	userID string
}

type ledgerRow struct {
	id     int64
	status model.DownloadStatus
	at     time.Time
}

// memDownloadRepo — DownloadRepository в памяти.
type memDownloadRepo struct {
	mu        sync.Mutex
	nextID    int64
	rows      map[ledgerKey]*ledgerRow
	confirmFn func(id int64) error
	files     *memFileRepo
}

func newMemDownloadRepo(files *memFileRepo) *memDownloadRepo {
	return &memDownloadRepo{rows: make(map[ledgerKey]*ledgerRow), files: files}
}

func (r *memDownloadRepo) Reserve(_ context.Context, fileID int64, userID string, staleBefore time.Time) (repository.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := ledgerKey{fileID, userID}
	row, ok := r.rows[k]
	switch {
	case !ok:
		r.nextID++
		r.rows[k] = &ledgerRow{id: r.nextID, status: model.DownloadPending, at: time.Now()}
		return repository.Reservation{State: repository.Reserved, ID: r.nextID}, nil
	case row.status == model.DownloadConfirmed:
		return repository.Reservation{State: repository.AlreadyConfirmed}, nil
	case row.at.Before(staleBefore):
		row.at = time.Now()
		return repository.Reservation{State: repository.Reserved, ID: row.id}, nil
	default:
		return repository.Reservation{State: repository.InFlight}, nil
	}
}

func (r *memDownloadRepo) Confirm(_ context.Context, id int64) error {
	if r.confirmFn != nil {
		if err := r.confirmFn(id); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.id == id && row.status == model.DownloadPending {
			row.status = model.DownloadConfirmed
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *memDownloadRepo) Revert(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, row := range r.rows {
		if row.id == id && row.status == model.DownloadPending {
			delete(r.rows, k)
		}
	}
	return nil
}

func (r *memDownloadRepo) HasConfirmed(_ context.Context, fileID int64, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[ledgerKey{fileID, userID}]
	return ok && row.status == model.DownloadConfirmed, nil
}

func (r *memDownloadRepo) ListByScope(ctx context.Context, scope model.ScopeKey) ([]*model.DownloadLogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*model.DownloadLogEntry
	for k, row := range r.rows {
		if row.status != model.DownloadConfirmed {
			continue
		}
		f, err := r.files.GetByID(ctx, k.fileID)
		if err != nil || f.Scope != scope {
			continue
		}
		result = append(result, &model.DownloadLogEntry{
			FileID: k.fileID, Filename: f.Filename, Description: f.Description,
			UserID: k.userID, DownloadedAt: row.at,
		})
	}
	return result, nil
}

// rowCount возвращает количество строк (любого статуса) для пары.
func (r *memDownloadRepo) rowCount(fileID int64, userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[ledgerKey{fileID, userID}]; ok {
		return 1
	}
	return 0
}

// --- Прочие зависимости ---

// mockScopes — ScopeResolver с фиксированным соответствием курс → область.
type mockScopes struct {
	scopes    map[int64]model.ScopeKey
	resolveFn func(courseID int64) (model.ScopeKey, error)
}

func (m *mockScopes) ResolveScope(_ context.Context, courseID int64) (model.ScopeKey, error) {
	if m.resolveFn != nil {
		return m.resolveFn(courseID)
	}
	s, ok := m.scopes[courseID]
	if !ok {
		return model.ScopeKey{}, ErrNotFound
	}
	return s, nil
}

// mockSigner — DeliverySigner, считающий вызовы.
type mockSigner struct {
	mu     sync.Mutex
	calls  int
	signFn func(userID string, scopeRefID, fileID int64) error
}

func (m *mockSigner) SignDelivery(_ context.Context, userID string, scopeRefID, fileID int64) error {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.signFn != nil {
		return m.signFn(userID, scopeRefID, fileID)
	}
	return nil
}

func (m *mockSigner) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// --- Окружение теста ---

const (
	ownCourseID    = int64(10)
	sharedCourseID = int64(20)
)

var (
	ownScope    = model.ScopeKey{RefID: ownCourseID, Type: model.ScopeOwn}
	sharedScope = model.ScopeKey{RefID: 3, Type: model.ScopeShared}

	student = &capability.Principal{UserID: "student-1", CourseRoles: map[int64][]string{
		ownCourseID: {capability.RoleStudent}, sharedCourseID: {capability.RoleStudent},
	}}
	teacher = &capability.Principal{UserID: "teacher-1", CourseRoles: map[int64][]string{
		ownCourseID: {capability.RoleEditingTeacher}, sharedCourseID: {capability.RoleEditingTeacher},
	}}
	siteAdmin = &capability.Principal{UserID: "admin", SiteAdmin: true}
	outsider  = &capability.Principal{UserID: "guest-1"}
)

// testEnv — сервисы поверх реестра в памяти и настоящего FileStore во временном каталоге.
type testEnv struct {
	files     *memFileRepo
	downloads *memDownloadRepo
	store     *filestore.FileStore
	scopes    *mockScopes
	signer    *mockSigner
	guard     *Guard

	upload   *UploadService
	download *DownloadService
	registry *RegistryService
	logs     *LogService
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := filestore.New(filepath.Join(t.TempDir(), "data"))
	if err != nil {
		t.Fatalf("ошибка создания FileStore: %v", err)
	}

	logger := testLogger()
	files := newMemFileRepo()
	env := &testEnv{
		files:     files,
		downloads: newMemDownloadRepo(files),
		store:     store,
		scopes: &mockScopes{scopes: map[int64]model.ScopeKey{
			ownCourseID:    ownScope,
			sharedCourseID: sharedScope,
		}},
		signer: &mockSigner{},
		guard:  NewGuard(capability.NewAuthorizer(capability.DefaultMatrix()), logger),
	}
	env.upload = NewUploadService(env.files, store, env.scopes, env.guard, logger)
	env.download = NewDownloadService(env.files, env.downloads, store, env.scopes, env.signer,
		env.guard, 2*time.Minute, logger)
	env.registry = NewRegistryService(env.files, env.files, store, env.scopes, env.guard, logger)
	env.logs = NewLogService(env.files, env.downloads, env.scopes, env.guard, logger)
	return env
}
