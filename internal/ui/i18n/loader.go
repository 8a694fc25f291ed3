// loader.go — загрузка каталогов переводов из embed.FS.
package i18n

import (
	"fmt"
	"log/slog"
)

// LoadFromEmbedFS загружает каталоги locales/<lang>.json для всех
// поддерживаемых языков.
func LoadFromEmbedFS(bundle *Bundle, logger *slog.Logger) error {
	for _, tag := range SupportedLanguages {
		base, _ := tag.Base()
		lang := base.String()

		path := fmt.Sprintf("locales/%s.json", lang)
		data, err := LocaleFS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("i18n: не удалось прочитать %s: %w", path, err)
		}
		if err := bundle.LoadMessages(lang, data); err != nil {
			return err
		}
	}

	logger.Info("i18n каталоги загружены", slog.Int("languages", len(SupportedLanguages)))
	return nil
}
