package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// TestSoftDelete_Denied — без права managefiles ничего не меняется.
func TestSoftDelete_Denied(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rec := seedFile(t, env, ownCourseID, "a.txt", "x")

	err := env.registry.SoftDelete(ctx, student, ownCourseID, rec.ID)
	if !errors.Is(err, ErrPermission) {
		t.Fatalf("SoftDelete() = %v, ожидается ErrPermission", err)
	}

	visible, _ := env.registry.ListVisible(ctx, ownScope)
	if len(visible) != 1 {
		t.Errorf("ListVisible() вернул %d записей, хотели 1", len(visible))
	}
	if _, err := os.Stat(filepath.Join(env.store.ScopeDir(ownScope), rec.StoredFilename)); err != nil {
		t.Errorf("файл на диске затронут: %v", err)
	}
}

func TestSoftDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rec := seedFile(t, env, ownCourseID, "a.txt", "x")
	keep := seedFile(t, env, ownCourseID, "b.txt", "y")

	if err := env.registry.SoftDelete(ctx, teacher, ownCourseID, rec.ID); err != nil {
		t.Fatalf("SoftDelete() вернул ошибку: %v", err)
	}

	visible, _ := env.registry.ListVisible(ctx, ownScope)
	if len(visible) != 1 || visible[0].ID != keep.ID {
		t.Errorf("ListVisible() = %+v, ожидается только %d", visible, keep.ID)
	}
	if _, err := os.Stat(filepath.Join(env.store.ScopeDir(ownScope), rec.StoredFilename)); !os.IsNotExist(err) {
		t.Error("файл не удалён с диска")
	}

	got, err := env.registry.Get(ctx, rec.ID)
	if err != nil || !got.Deleted {
		t.Errorf("Get() = %+v, %v; ожидается помеченная запись", got, err)
	}

	// Повторное удаление
	if err := env.registry.SoftDelete(ctx, teacher, ownCourseID, rec.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("повторный SoftDelete() = %v, ожидается ErrNotFound", err)
	}
}

// TestSoftDelete_MissingBlob — отсутствие файла на диске не мешает удалению записи.
func TestSoftDelete_MissingBlob(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rec := seedFile(t, env, ownCourseID, "a.txt", "x")
	if err := os.Remove(filepath.Join(env.store.ScopeDir(ownScope), rec.StoredFilename)); err != nil {
		t.Fatal(err)
	}

	if err := env.registry.SoftDelete(ctx, teacher, ownCourseID, rec.ID); err != nil {
		t.Fatalf("SoftDelete() вернул ошибку: %v", err)
	}
	visible, _ := env.registry.ListVisible(ctx, ownScope)
	if len(visible) != 0 {
		t.Errorf("ListVisible() вернул %d записей, хотели 0", len(visible))
	}
}

// TestSoftDelete_OtherCourse — нельзя удалить материал чужой области.
func TestSoftDelete_OtherCourse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rec := seedFile(t, env, sharedCourseID, "a.txt", "x")

	if err := env.registry.SoftDelete(ctx, teacher, ownCourseID, rec.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("SoftDelete() = %v, ожидается ErrNotFound", err)
	}
	got, _ := env.registry.Get(ctx, rec.ID)
	if got.Deleted {
		t.Error("запись чужой области помечена удалённой")
	}
}

// TestSoftDelete_UnlinkFailure — ошибка удаления файла откатывает пометку.
func TestSoftDelete_UnlinkFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	rec := seedFile(t, env, ownCourseID, "a.txt", "x")

	// Непустой каталог на месте файла не удаляется через os.Remove
	path := filepath.Join(env.store.ScopeDir(ownScope), rec.StoredFilename)
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(path, "inner"), 0o750); err != nil {
		t.Fatal(err)
	}

	if err := env.registry.SoftDelete(ctx, teacher, ownCourseID, rec.ID); err == nil {
		t.Fatal("SoftDelete() должен вернуть ошибку")
	}
	got, _ := env.registry.Get(ctx, rec.ID)
	if got.Deleted {
		t.Error("пометка удаления должна быть откачена")
	}
}

func TestListing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedFile(t, env, ownCourseID, "a.txt", "x")

	l, err := env.registry.Listing(ctx, teacher, ownCourseID)
	if err != nil {
		t.Fatalf("Listing() вернул ошибку: %v", err)
	}
	if !l.CanManage || len(l.Files) != 1 || l.Scope != ownScope {
		t.Errorf("Listing() для преподавателя = %+v", l)
	}

	l, err = env.registry.Listing(ctx, student, ownCourseID)
	if err != nil {
		t.Fatalf("Listing() вернул ошибку: %v", err)
	}
	if l.CanManage {
		t.Error("студент не должен управлять материалами")
	}

	if _, err := env.registry.Listing(ctx, outsider, ownCourseID); !errors.Is(err, ErrPermission) {
		t.Errorf("Listing() для постороннего = %v, ожидается ErrPermission", err)
	}
}
