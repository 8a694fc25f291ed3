// Пакет filestore — файлы материалов на диске.
// Каждая область (курс или категория) хранится в своём каталоге
// внутри корневого каталога данных, каталог создаётся при первой загрузке.
package filestore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/bigkaa/goartstore/course-materials/internal/domain/model"
)

// ErrBlobNotFound — файл отсутствует на диске.
var ErrBlobNotFound = errors.New("файл не найден на диске")

// maxNameRunes — ограничение длины имени (без расширения) в имени хранения.
const maxNameRunes = 50

// FileStore — управление файлами материалов на диске.
type FileStore struct {
	// dataDir — корневой каталог (CM_DATA_DIR)
	dataDir string
}

// New создаёт FileStore. Корневой каталог создаётся, если его нет.
func New(dataDir string) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию данных %s: %w", dataDir, err)
	}
	return &FileStore{dataDir: dataDir}, nil
}

// DataDir возвращает путь к корневому каталогу.
func (fs *FileStore) DataDir() string {
	return fs.dataDir
}

// CheckReady проверяет, что корневой каталог существует и доступен для записи.
// Возвращает статус ("ok", "fail") и сообщение.
func (fs *FileStore) CheckReady() (status string, message string) {
	info, err := os.Stat(fs.dataDir)
	if err != nil {
		return "fail", fmt.Sprintf("каталог данных недоступен: %v", err)
	}
	if !info.IsDir() {
		return "fail", fmt.Sprintf("%s не является каталогом", fs.dataDir)
	}
	f, err := os.CreateTemp(fs.dataDir, ".probe-*")
	if err != nil {
		return "fail", fmt.Sprintf("каталог данных недоступен для записи: %v", err)
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return "ok", "каталог данных доступен"
}

// ScopeDir возвращает каталог области.
func (fs *FileStore) ScopeDir(scope model.ScopeKey) string {
	return filepath.Join(fs.dataDir, scope.String())
}

// EnsureScopeDir создаёт каталог области. Уже существующий каталог
// (в том числе созданный параллельной загрузкой) не является ошибкой.
func (fs *FileStore) EnsureScopeDir(scope model.ScopeKey) error {
	dir := fs.ScopeDir(scope)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("не удалось создать каталог области %s: %w", dir, err)
	}
	return nil
}

// Save записывает данные из reader в файл storedName каталога области.
// Возвращает количество записанных байт.
//
// Паттерн: temp файл → запись → fsync → atomic rename.
// При ошибке temp файл удаляется.
func (fs *FileStore) Save(scope model.ScopeKey, storedName string, reader io.Reader) (int64, error) {
	dir := fs.ScopeDir(scope)
	fullPath := filepath.Join(dir, storedName)

	f, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return 0, fmt.Errorf("ошибка создания временного файла: %w", err)
	}
	tmpPath := f.Name()

	size, err := io.Copy(f, reader)
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return 0, fmt.Errorf("ошибка записи данных: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return 0, fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return size, nil
}

// Open открывает файл области для чтения. Вызывающий код обязан закрыть файл.
func (fs *FileStore) Open(scope model.ScopeKey, storedName string) (*os.File, error) {
	fullPath := filepath.Join(fs.ScopeDir(scope), storedName)

	f, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, fullPath)
		}
		return nil, fmt.Errorf("ошибка открытия файла %s: %w", fullPath, err)
	}
	return f, nil
}

// Delete удаляет файл области. Отсутствующий файл не является ошибкой.
func (fs *FileStore) Delete(scope model.ScopeKey, storedName string) error {
	fullPath := filepath.Join(fs.ScopeDir(scope), storedName)

	err := os.Remove(fullPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка удаления файла %s: %w", fullPath, err)
	}
	return nil
}

// CleanFilename отбрасывает путь из имени файла, присланного клиентом.
// Для имени без полезной части возвращает пустую строку.
func CleanFilename(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	if name == "" {
		return ""
	}
	base := path.Base(name)
	if base == "." || base == ".." || base == "/" {
		return ""
	}
	return base
}

// GenerateStoredName генерирует имя хранения: имя до последней точки,
// случайный токен и исходное расширение.
// Пример: report.pdf → report_0f8e…c1.pdf, Makefile → Makefile_0f8e…c1
func GenerateStoredName(original string) string {
	original = CleanFilename(original)

	name, ext := original, ""
	if i := strings.LastIndexByte(original, '.'); i >= 0 {
		name, ext = original[:i], original[i+1:]
	}

	name = sanitize(name)
	if r := []rune(name); len(r) > maxNameRunes {
		name = string(r[:maxNameRunes])
	}

	token := strings.ReplaceAll(uuid.NewString(), "-", "")

	if ext != "" {
		return fmt.Sprintf("%s_%s.%s", name, token, ext)
	}
	return fmt.Sprintf("%s_%s", name, token)
}

// sanitize оставляет только буквы, цифры, дефис и подчёркивание.
func sanitize(s string) string {
	var result strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_' ||
			(r >= 0x0400 && r <= 0x04FF) { // Кириллица
			result.WriteRune(r)
		}
	}
	if result.Len() == 0 {
		return "file"
	}
	return result.String()
}
