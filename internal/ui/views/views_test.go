package views

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/a-h/templ"

	"github.com/bigkaa/goartstore/course-materials/internal/domain/model"
	"github.com/bigkaa/goartstore/course-materials/internal/ui/i18n"
)

func TestMain(m *testing.M) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := i18n.LoadFromEmbedFS(i18n.Init(logger), logger); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func render(t *testing.T, ctx context.Context, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	if err := c.Render(ctx, &buf); err != nil {
		t.Fatalf("Render() вернул ошибку: %v", err)
	}
	return buf.String()
}

var testScope = model.ScopeKey{RefID: 3, Type: model.ScopeShared}

func testFiles() []*model.FileRecord {
	return []*model.FileRecord{
		{ID: 5, Filename: "lecture.pdf", Description: "Лекция 1", Scope: testScope},
		{ID: 6, Filename: "slides.docx", Description: strings.Repeat("d", 40), Scope: testScope},
		{ID: 7, Filename: "<script>.txt", Description: "<b>bold</b>", Scope: testScope},
	}
}

func TestMaterialsBlock_Student(t *testing.T) {
	html := render(t, context.Background(), MaterialsBlock(MaterialsData{
		CourseID: 20, Scope: testScope, Files: testFiles(),
	}))

	for _, want := range []string{
		"Files (3)",
		`href="/download?fileid=5&amp;scopeid=3&amp;courseid=20"`,
		`target="_blank"`,
		"cm-icon-pdf",
		"cm-icon-office",
		"cm-icon-text",
		strings.Repeat("d", 24) + "...",
		"&lt;b&gt;bold&lt;/b&gt;",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("в HTML нет %q", want)
		}
	}
	for _, unwanted := range []string{"data-delete-file", "coursefileform", "<b>bold</b>", "log?action="} {
		if strings.Contains(html, unwanted) {
			t.Errorf("HTML студента не должен содержать %q", unwanted)
		}
	}
}

func TestMaterialsBlock_Empty(t *testing.T) {
	html := render(t, context.Background(), MaterialsBlock(MaterialsData{CourseID: 20, Scope: testScope}))

	if !strings.Contains(html, "<th>Files</th>") || !strings.Contains(html, "No files") {
		t.Errorf("пустой блок отрисован неверно: %s", html)
	}
	if strings.Contains(html, "Files (") {
		t.Error("пустой блок не должен показывать количество")
	}
}

func TestMaterialsBlock_Manager(t *testing.T) {
	html := render(t, context.Background(), MaterialsBlock(MaterialsData{
		CourseID: 20, Scope: testScope, Files: testFiles(), CanManage: true,
	}))

	for _, want := range []string{
		`data-delete-file="5"`,
		`id="coursefileform"`,
		`action="/courses/20/materials"`,
		`name="userfile"`,
		`maxlength="50"`,
		`id="scopeid" name="scopeid" value="3"`,
		`id="scopetype" name="scopetype" value="shared"`,
		`id="askquestion" name="askquestion" value="Are you sure?"`,
		`href="/courses/20/materials/log?action=download"`,
		`href="/courses/20/materials/log?action=upload"`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("в HTML нет %q", want)
		}
	}
	if strings.Contains(html, "Could not create the folder") {
		t.Error("сообщение об ошибке каталога не ожидается")
	}
}

func TestMaterialsBlock_StorageUnavailable(t *testing.T) {
	html := render(t, context.Background(), MaterialsBlock(MaterialsData{
		CourseID: 20, Scope: testScope, CanManage: true, StorageUnavailable: true,
	}))

	if !strings.Contains(html, "Could not create the folder") {
		t.Error("нет сообщения об ошибке создания каталога")
	}
	if strings.Contains(html, `name="userfile"`) {
		t.Error("поле выбора файла не должно выводиться")
	}
}

func TestMaterialsBlock_Russian(t *testing.T) {
	ctx := i18n.WithLang(context.Background(), "ru")
	html := render(t, ctx, MaterialsPage(MaterialsData{CourseID: 20, Scope: testScope}))

	for _, want := range []string{`lang="ru"`, "Нет файлов", "Материалы курса", "/static/js/materials.js"} {
		if !strings.Contains(html, want) {
			t.Errorf("в HTML нет %q", want)
		}
	}
}

func TestMessagePage(t *testing.T) {
	html := render(t, context.Background(), MessagePage("Resource unavailable"))

	for _, want := range []string{"<!DOCTYPE html>", "Resource unavailable", "data-close-window", ">Close<"} {
		if !strings.Contains(html, want) {
			t.Errorf("в HTML нет %q", want)
		}
	}
}

func TestLogPages(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	files := []*model.FileRecord{
		{ID: 1, Filename: "a.pdf", Description: "A", UploaderID: "teacher-1", CreatedAt: at},
		{ID: 2, Filename: "b.pdf", Description: "B", UploaderID: "teacher-1", CreatedAt: at, Deleted: true},
	}
	html := render(t, context.Background(), UploadLogPage(20, files))
	for _, want := range []string{"Log of uploaded files", "a.pdf", "2026-03-14 09:30", "<td>Yes</td>", "<td>No</td>", `href="/courses/20/materials"`} {
		if !strings.Contains(html, want) {
			t.Errorf("журнал загрузок: нет %q", want)
		}
	}

	entries := []*model.DownloadLogEntry{
		{FileID: 1, Filename: "a.pdf", Description: "A", UserID: "student-1", DownloadedAt: at},
	}
	html = render(t, context.Background(), DownloadLogPage(20, entries))
	for _, want := range []string{"Log of downloaded files", "student-1", "Downloaded date"} {
		if !strings.Contains(html, want) {
			t.Errorf("журнал скачиваний: нет %q", want)
		}
	}
}
