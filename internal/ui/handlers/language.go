// language.go — переключение языка интерфейса.
package handlers

import (
	"net/http"
	"net/url"
	"time"

	"github.com/bigkaa/goartstore/course-materials/internal/ui/i18n"
)

// HandleSetLanguage обрабатывает POST /set-language: устанавливает cookie
// "lang" и возвращает пользователя на предыдущую страницу.
func HandleSetLanguage(w http.ResponseWriter, r *http.Request) {
	lang := r.FormValue("lang")
	if !i18n.IsSupported(lang) {
		lang = i18n.DefaultLang
	}

	http.SetCookie(w, &http.Cookie{
		Name:     i18n.LangCookieName,
		Value:    lang,
		Path:     "/",
		MaxAge:   365 * 24 * 60 * 60,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(365 * 24 * time.Hour),
	})

	http.Redirect(w, r, localReferer(r), http.StatusSeeOther)
}

// localReferer возвращает путь из Referer того же хоста, иначе "/".
func localReferer(r *http.Request) string {
	ref, err := url.Parse(r.Header.Get("Referer"))
	if err != nil || ref.Path == "" || (ref.Host != "" && ref.Host != r.Host) {
		return "/"
	}
	target := ref.EscapedPath()
	if ref.RawQuery != "" {
		target += "?" + ref.RawQuery
	}
	return target
}
