package views

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/bigkaa/goartstore/course-materials/internal/domain/mimetype"
	"github.com/bigkaa/goartstore/course-materials/internal/domain/model"
	"github.com/bigkaa/goartstore/course-materials/internal/ui/i18n"
)

// LabelBudget — максимальная длина подписи файла в списке.
const LabelBudget = 27

// DescriptionMaxLength — ограничение поля описания в форме загрузки.
const DescriptionMaxLength = 50

// MaterialsData — данные блока материалов.
type MaterialsData struct {
	CourseID  int64
	Scope     model.ScopeKey
	Files     []*model.FileRecord
	CanManage bool
	// StorageUnavailable — последняя загрузка не смогла создать каталог
	// области, вместо формы показывается сообщение.
	StorageUnavailable bool
}

// DownloadURL возвращает ссылку на скачивание материала.
func DownloadURL(fileID, scopeID, courseID int64) string {
	return fmt.Sprintf("/download?fileid=%d&scopeid=%d&courseid=%d", fileID, scopeID, courseID)
}

// MaterialsURL возвращает адрес блока материалов курса.
func MaterialsURL(courseID int64) string {
	return "/courses/" + strconv.FormatInt(courseID, 10) + "/materials"
}

// LogURL возвращает адрес журнала ("upload" или "download").
func LogURL(courseID int64, action string) string {
	return MaterialsURL(courseID) + "/log?action=" + action
}

// MaterialsPage — страница с блоком материалов.
func MaterialsPage(data MaterialsData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return Page(i18n.T(ctx, "title"), MaterialsBlock(data)).Render(ctx, w)
	})
}

// MaterialsBlock — таблица материалов области и, для управляющих,
// форма загрузки и кнопки журналов.
func MaterialsBlock(data MaterialsData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<div class="cm-block"><table class="cm-table" id="coursematerialfilestable">`)

		if n := len(data.Files); n > 0 {
			h.raw(`<tr><th colspan="100%">`)
			h.text(i18n.Tf(ctx, "files_count", n))
			h.raw("</th></tr>")
		} else {
			h.raw("<tr><th>")
			h.text(i18n.T(ctx, "files"))
			h.raw(`</th></tr><tr><td class="cm-nodata">`)
			h.text(i18n.T(ctx, "nofiles"))
			h.raw("</td></tr>")
		}

		for _, f := range data.Files {
			h.component(ctx, fileRow(data, f))
		}
		h.raw("</table>")

		if data.CanManage {
			h.component(ctx, uploadForm(data))
			h.raw(`<div class="cm-buttons">`)
			h.raw(`<a class="cm-button" target="_blank"`)
			h.attr("href", LogURL(data.CourseID, "download"))
			h.raw(">")
			h.text(i18n.T(ctx, "downloadlist_button"))
			h.raw(`</a><a class="cm-button" target="_blank"`)
			h.attr("href", LogURL(data.CourseID, "upload"))
			h.raw(">")
			h.text(i18n.T(ctx, "uploadlist_button"))
			h.raw("</a></div>")
		}
		h.raw("</div>")
		return h.err
	})
}

func fileRow(data MaterialsData, f *model.FileRecord) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		kind := mimetype.Classify(f.Filename)

		h.raw(`<tr><td><span`)
		h.attr("class", "cm-icon cm-icon-"+string(kind.Icon))
		h.attr("title", string(kind.Icon))
		h.raw(`></span></td><td><a class="cm-filelink" target="_blank"`)
		h.attr("href", DownloadURL(f.ID, data.Scope.RefID, data.CourseID))
		h.attr("title", f.Label())
		h.raw(">")
		h.text(ShortenWithEllipsis(f.Label(), LabelBudget))
		h.raw("</a></td>")

		if data.CanManage {
			id := strconv.FormatInt(f.ID, 10)
			h.raw(`<td><button type="button" class="cm-delete"`)
			h.attr("id", "cm-deletefile-"+id)
			h.attr("data-delete-file", id)
			h.attr("title", i18n.T(ctx, "delete"))
			h.raw(">&times;</button></td>")
		}
		h.raw("</tr>")
		return h.err
	})
}

// uploadForm — форма загрузки. Скрытые поля используются и для удаления
// (см. confirmDeletion в materials.js), поэтому форма выводится всегда,
// а поля выбора файла заменяются сообщением, если каталог не создан.
func uploadForm(data MaterialsData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<form class="cm-upload" id="coursefileform" method="post" enctype="multipart/form-data"`)
		h.attr("action", MaterialsURL(data.CourseID))
		h.raw(">")

		hidden := []struct{ id, name, value string }{
			{"scopeid", "scopeid", strconv.FormatInt(data.Scope.RefID, 10)},
			{"scopetype", "scopetype", string(data.Scope.Type)},
			{"courseid", "courseid", strconv.FormatInt(data.CourseID, 10)},
			{"action", "action", ""},
			{"file_id", "file_id", ""},
			{"askquestion", "askquestion", i18n.T(ctx, "askquestion")},
		}
		for _, f := range hidden {
			h.raw(`<input type="hidden"`)
			h.attr("id", f.id)
			h.attr("name", f.name)
			h.attr("value", f.value)
			h.raw(">")
		}

		if data.StorageUnavailable {
			h.raw(`<p class="cm-error">`)
			h.text(i18n.T(ctx, "unabletomakedir"))
			h.raw("</p>")
		} else {
			h.raw(`<input type="file" name="userfile" required>`)
			h.raw(`<input type="text" name="descriptionfile"`)
			h.attr("maxlength", strconv.Itoa(DescriptionMaxLength))
			h.attr("placeholder", i18n.T(ctx, "descriptionfile"))
			h.raw(`><button type="submit" class="cm-button">`)
			h.text(i18n.T(ctx, "upload"))
			h.raw("</button>")
		}
		h.raw("</form>")
		return h.err
	})
}
