// Пакет views — HTML-компоненты блока материалов (templ).
package views

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/bigkaa/goartstore/course-materials/internal/ui/i18n"
)

// dateLayout — формат дат в журналах.
const dateLayout = "2006-01-02 15:04"

// htmlWriter накапливает первую ошибку записи.
type htmlWriter struct {
	w   io.Writer
	err error
}

// raw пишет строку без экранирования.
func (h *htmlWriter) raw(s string) {
	if h.err == nil {
		_, h.err = io.WriteString(h.w, s)
	}
}

// text пишет экранированный текст.
func (h *htmlWriter) text(s string) {
	h.raw(templ.EscapeString(s))
}

// attr пишет атрибут name="value" с экранированием значения.
func (h *htmlWriter) attr(name, value string) {
	h.raw(" " + name + `="` + templ.EscapeString(value) + `"`)
}

func (h *htmlWriter) component(ctx context.Context, c templ.Component) {
	if h.err == nil {
		h.err = c.Render(ctx, h.w)
	}
}

// Page — HTML-страница со стилями и скриптом блока.
func Page(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw("<!DOCTYPE html><html")
		h.attr("lang", i18n.LangFromContext(ctx))
		h.raw(`><head><meta charset="utf-8"><title>`)
		h.text(title)
		h.raw(`</title><link rel="stylesheet" href="/static/css/materials.css">`)
		h.raw(`<script src="/static/js/materials.js" defer></script></head><body>`)
		h.component(ctx, body)
		h.component(ctx, languageSwitch())
		h.raw("</body></html>")
		return h.err
	})
}

// languageSwitch — переключатель языка (POST /set-language).
func languageSwitch() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		current := i18n.LangFromContext(ctx)
		h.raw(`<form class="cm-buttons" method="post" action="/set-language">`)
		for _, lang := range []string{"en", "ru"} {
			h.raw(`<button type="submit" name="lang" class="cm-button"`)
			h.attr("value", lang)
			if lang == current {
				h.raw(" disabled")
			}
			h.raw(">")
			h.text(lang)
			h.raw("</button>")
		}
		h.raw("</form>")
		return h.err
	})
}

// MessagePage — страница с сообщением и кнопкой закрытия вкладки.
// Используется для ошибок скачивания: ссылка открывается в новой вкладке.
func MessagePage(message string) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<div class="cm-message"><h2>`)
		h.text(i18n.T(ctx, "title"))
		h.raw(`</h2><p class="cm-error">`)
		h.text(message)
		h.raw(`</p><button type="button" class="cm-button" data-close-window>`)
		h.text(i18n.T(ctx, "close"))
		h.raw("</button></div>")
		return h.err
	})
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return Page(i18n.T(ctx, "title"), body).Render(ctx, w)
	})
}
