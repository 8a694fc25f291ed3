package filestore

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/bigkaa/goartstore/course-materials/internal/domain/model"
)

var testScope = model.ScopeKey{RefID: 12, Type: model.ScopeOwn}

func newStore(t *testing.T) *FileStore {
	t.Helper()
	fs, err := New(filepath.Join(t.TempDir(), "data"))
	if err != nil {
		t.Fatalf("ошибка создания FileStore: %v", err)
	}
	return fs
}

// TestEnsureScopeDir проверяет идемпотентное создание каталога области.
func TestEnsureScopeDir(t *testing.T) {
	fs := newStore(t)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- fs.EnsureScopeDir(testScope)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("EnsureScopeDir() вернул ошибку: %v", err)
		}
	}

	info, err := os.Stat(fs.ScopeDir(testScope))
	if err != nil || !info.IsDir() {
		t.Fatalf("каталог области не создан: %v", err)
	}
}

// TestEnsureScopeDir_Failure проверяет ошибку, когда на месте каталога лежит файл.
func TestEnsureScopeDir_Failure(t *testing.T) {
	fs := newStore(t)
	if err := os.WriteFile(fs.ScopeDir(testScope), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := fs.EnsureScopeDir(testScope); err == nil {
		t.Error("EnsureScopeDir() поверх файла должен вернуть ошибку")
	}
}

func TestSaveOpenDelete(t *testing.T) {
	fs := newStore(t)
	if err := fs.EnsureScopeDir(testScope); err != nil {
		t.Fatal(err)
	}

	content := []byte("Тестовые данные материала")
	name := GenerateStoredName("lecture.pdf")

	size, err := fs.Save(testScope, name, bytes.NewReader(content))
	if err != nil {
		t.Fatalf("Save() вернул ошибку: %v", err)
	}
	if size != int64(len(content)) {
		t.Errorf("размер: ожидалось %d, получено %d", len(content), size)
	}

	// Временных файлов не остаётся
	entries, _ := os.ReadDir(fs.ScopeDir(testScope))
	if len(entries) != 1 || entries[0].Name() != name {
		t.Errorf("в каталоге области ожидается только %s, получено %d файлов", name, len(entries))
	}

	f, err := fs.Open(testScope, name)
	if err != nil {
		t.Fatalf("Open() вернул ошибку: %v", err)
	}
	got := new(bytes.Buffer)
	_, _ = got.ReadFrom(f)
	f.Close()
	if !bytes.Equal(got.Bytes(), content) {
		t.Error("содержимое не совпадает")
	}

	if err := fs.Delete(testScope, name); err != nil {
		t.Fatalf("Delete() вернул ошибку: %v", err)
	}
	// Повторное удаление отсутствующего файла — не ошибка
	if err := fs.Delete(testScope, name); err != nil {
		t.Errorf("повторный Delete() вернул ошибку: %v", err)
	}

	if _, err := fs.Open(testScope, name); !errors.Is(err, ErrBlobNotFound) {
		t.Errorf("Open() удалённого файла = %v, ожидается ErrBlobNotFound", err)
	}
}

func TestSave_MissingScopeDir(t *testing.T) {
	fs := newStore(t)
	if _, err := fs.Save(testScope, "a_b.txt", strings.NewReader("x")); err == nil {
		t.Error("Save() без каталога области должен вернуть ошибку")
	}
}

func TestGenerateStoredName(t *testing.T) {
	tests := []struct {
		original string
		prefix   string
		suffix   string
	}{
		{"report.pdf", "report_", ".pdf"},
		{"archive.tar.gz", "archivetar_", ".gz"},
		{"Лекция 1.docx", "Лекция1_", ".docx"},
		{"Makefile", "Makefile_", ""},
		{".bashrc", "file_", ".bashrc"},
		{"C:\\Users\\me\\photo.JPG", "photo_", ".JPG"},
		{"../../etc/passwd", "passwd_", ""},
	}
	for _, tt := range tests {
		t.Run(tt.original, func(t *testing.T) {
			got := GenerateStoredName(tt.original)
			if got == tt.original {
				t.Errorf("имя хранения совпадает с исходным: %q", got)
			}
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("GenerateStoredName(%q) = %q, ожидается префикс %q", tt.original, got, tt.prefix)
			}
			if tt.suffix != "" && !strings.HasSuffix(got, tt.suffix) {
				t.Errorf("GenerateStoredName(%q) = %q, ожидается расширение %q", tt.original, got, tt.suffix)
			}
			if strings.ContainsAny(got, `/\`) {
				t.Errorf("имя хранения содержит разделитель пути: %q", got)
			}
		})
	}

	// Одно и то же исходное имя даёт разные имена хранения
	a, b := GenerateStoredName("report.pdf"), GenerateStoredName("report.pdf")
	if a == b {
		t.Errorf("два имени хранения совпали: %q", a)
	}
}

func TestCleanFilename(t *testing.T) {
	tests := map[string]string{
		"report.pdf":          "report.pdf",
		"dir/sub/report.pdf":  "report.pdf",
		`C:\fakepath\a b.txt`: "a b.txt",
		"  ":                  "",
		"..":                  "",
		"/":                   "",
	}
	for in, want := range tests {
		if got := CleanFilename(in); got != want {
			t.Errorf("CleanFilename(%q) = %q, хотели %q", in, got, want)
		}
	}
}

func TestCheckReady(t *testing.T) {
	fs := newStore(t)
	if status, msg := fs.CheckReady(); status != "ok" {
		t.Errorf("CheckReady() = %q (%s), ожидается ok", status, msg)
	}
	entries, _ := os.ReadDir(fs.DataDir())
	if len(entries) != 0 {
		t.Errorf("после проверки остались файлы: %v", entries)
	}

	if err := os.RemoveAll(fs.DataDir()); err != nil {
		t.Fatal(err)
	}
	if status, _ := fs.CheckReady(); status != "fail" {
		t.Errorf("CheckReady() без каталога = %q, ожидается fail", status)
	}
}
