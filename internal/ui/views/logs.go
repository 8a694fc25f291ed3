package views

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/bigkaa/goartstore/course-materials/internal/domain/model"
	"github.com/bigkaa/goartstore/course-materials/internal/ui/i18n"
)

// UploadLogPage — журнал загрузок области, включая удалённые материалы.
func UploadLogPage(courseID int64, files []*model.FileRecord) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		logHeader(ctx, h, "uploadlist_title", "filename", "description", "user", "uploadeddate", "deleted")
		for _, f := range files {
			deleted := i18n.T(ctx, "no")
			if f.Deleted {
				deleted = i18n.T(ctx, "yes")
			}
			logRow(h, f.Filename, f.Description, f.UploaderID, f.CreatedAt.Format(dateLayout), deleted)
		}
		logFooter(ctx, h, courseID)
		return h.err
	})
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return Page(i18n.T(ctx, "uploadlist_title"), body).Render(ctx, w)
	})
}

// DownloadLogPage — журнал подтверждённых выдач материалов области.
func DownloadLogPage(courseID int64, entries []*model.DownloadLogEntry) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		logHeader(ctx, h, "downloadlist_title", "filename", "description", "user", "downloadeddate")
		for _, e := range entries {
			logRow(h, e.Filename, e.Description, e.UserID, e.DownloadedAt.Format(dateLayout))
		}
		logFooter(ctx, h, courseID)
		return h.err
	})
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return Page(i18n.T(ctx, "downloadlist_title"), body).Render(ctx, w)
	})
}

func logHeader(ctx context.Context, h *htmlWriter, titleKey string, columnKeys ...string) {
	h.raw(`<div class="cm-block"><h2>`)
	h.text(i18n.T(ctx, titleKey))
	h.raw(`</h2><table class="cm-log"><tr>`)
	for _, key := range columnKeys {
		h.raw("<th>")
		h.text(i18n.T(ctx, key))
		h.raw("</th>")
	}
	h.raw("</tr>")
}

func logRow(h *htmlWriter, cells ...string) {
	h.raw("<tr>")
	for _, c := range cells {
		h.raw("<td>")
		h.text(c)
		h.raw("</td>")
	}
	h.raw("</tr>")
}

func logFooter(ctx context.Context, h *htmlWriter, courseID int64) {
	h.raw(`</table><div class="cm-buttons"><a class="cm-button"`)
	h.attr("href", MaterialsURL(courseID))
	h.raw(">")
	h.text(i18n.T(ctx, "gobacktocourse"))
	h.raw("</a></div></div>")
}
