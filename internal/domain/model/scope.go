// Пакет model — доменные типы сервиса материалов курсов.
package model

import "fmt"

// ScopeType — тип области хранения материалов.
type ScopeType string

const (
	// ScopeOwn — материалы принадлежат самому курсу.
	ScopeOwn ScopeType = "own"
	// ScopeShared — материалы общие для всех курсов категории.
	ScopeShared ScopeType = "shared"
)

// Valid проверяет, что тип области известен.
func (t ScopeType) Valid() bool {
	return t == ScopeOwn || t == ScopeShared
}

// ScopeKey — ключ области: курс (own) или категория курсов (shared).
type ScopeKey struct {
	RefID int64
	Type  ScopeType
}

// String возвращает ключ в виде "<type>-<ref_id>".
// Используется как имя каталога области.
func (k ScopeKey) String() string {
	return fmt.Sprintf("%s-%d", k.Type, k.RefID)
}

// Course — сведения о курсе, получаемые из платформы обучения.
type Course struct {
	ID         int64  `json:"id"`
	CategoryID int64  `json:"category_id"`
	FullName   string `json:"fullname"`
}

// DeriveScope вычисляет область материалов курса.
// Курсы категории ownCategoryID хранят материалы сами,
// остальные используют общую область своей категории.
func DeriveScope(course Course, ownCategoryID int64) ScopeKey {
	if course.CategoryID == ownCategoryID {
		return ScopeKey{RefID: course.ID, Type: ScopeOwn}
	}
	return ScopeKey{RefID: course.CategoryID, Type: ScopeShared}
}
