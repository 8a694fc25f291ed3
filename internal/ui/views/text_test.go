package views

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestShortenWithEllipsis(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		budget int
		want   string
	}{
		{"короче бюджета", "notes.pdf", 27, "notes.pdf"},
		{"ровно бюджет", strings.Repeat("a", 27), 27, strings.Repeat("a", 27)},
		{"длиннее на один", strings.Repeat("a", 28), 27, strings.Repeat("a", 24) + "..."},
		{"кириллица", "Лекция по математическому анализу, часть 2", 27, "Лекция по математическом..."},
		{"пустая строка", "", 27, ""},
		{"крошечный бюджет", "abcdef", 2, "ab"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShortenWithEllipsis(tt.text, tt.budget); got != tt.want {
				t.Errorf("ShortenWithEllipsis(%q, %d) = %q, ожидается %q", tt.text, tt.budget, got, tt.want)
			}
		})
	}
}

// TestShortenWithEllipsis_Budget27 — текст из 40 символов сокращается до 27
// символов, последние три из которых "...".
func TestShortenWithEllipsis_Budget27(t *testing.T) {
	text := strings.Repeat("x", 40)
	got := ShortenWithEllipsis(text, 27)

	if n := utf8.RuneCountInString(got); n != 27 {
		t.Errorf("длина = %d, ожидается 27", n)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("%q не заканчивается на ...", got)
	}
	if !strings.HasPrefix(text, strings.TrimSuffix(got, "...")) {
		t.Errorf("%q не является началом исходного текста", got)
	}
}
