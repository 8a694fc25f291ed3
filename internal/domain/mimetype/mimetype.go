// Пакет mimetype — классификация файлов по расширению:
// ключ иконки для списка и Content-Type для отдачи.
package mimetype

import "strings"

// Icon — ключ иконки типа файла.
type Icon string

const (
	IconImage   Icon = "image"
	IconArchive Icon = "archive"
	IconVideo   Icon = "video"
	IconOffice  Icon = "office"
	IconText    Icon = "text"
	IconPDF     Icon = "pdf"
	IconUnknown Icon = "unknown"
)

// DefaultContentType — тип содержимого для всего, что не изображение и не архив.
const DefaultContentType = "application/octet-stream"

// Kind — результат классификации.
type Kind struct {
	Icon        Icon
	ContentType string
}

// kinds — таблица расширений. Content-Type задан только для
// изображений и архивов, остальные отдаются как octet-stream.
var kinds = map[string]Kind{
	"png":  {IconImage, "image/png"},
	"jpg":  {IconImage, "image/jpeg"},
	"jpeg": {IconImage, "image/jpeg"},
	"bmp":  {IconImage, "image/bmp"},
	"gif":  {IconImage, "image/gif"},
	"rar":  {IconArchive, "application/x-rar-compressed"},
	"zip":  {IconArchive, "application/zip"},
	"wmv":  {IconVideo, DefaultContentType},
	"avi":  {IconVideo, DefaultContentType},
	"flv":  {IconVideo, DefaultContentType},
	"doc":  {IconOffice, DefaultContentType},
	"docx": {IconOffice, DefaultContentType},
	"xls":  {IconOffice, DefaultContentType},
	"xlsx": {IconOffice, DefaultContentType},
	"txt":  {IconText, DefaultContentType},
	"pdf":  {IconPDF, DefaultContentType},
}

// Extension возвращает расширение в нижнем регистре: текст после
// последней точки. Для имени без точки возвращается пустая строка.
func Extension(filename string) string {
	i := strings.LastIndexByte(filename, '.')
	if i < 0 {
		return ""
	}
	return strings.ToLower(filename[i+1:])
}

// Classify определяет иконку и Content-Type по имени файла.
// Функция тотальна: неизвестное или отсутствующее расширение даёт IconUnknown.
func Classify(filename string) Kind {
	if k, ok := kinds[Extension(filename)]; ok {
		return k
	}
	return Kind{Icon: IconUnknown, ContentType: DefaultContentType}
}
