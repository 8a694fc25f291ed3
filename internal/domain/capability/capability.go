// Пакет capability — права пользователя в контексте курса.
// Роли пользователя в курсах приходят из платформы обучения (claims JWT),
// матрица "право → роли" задаётся по умолчанию и может быть
// переопределена TOML-файлом.
package capability

import (
	"fmt"
	"slices"

	"github.com/BurntSushi/toml"
)

// Capability — имя проверяемого права.
type Capability string

const (
	// ManageFiles — загрузка и удаление материалов, просмотр журналов.
	ManageFiles Capability = "managefiles"
	// DownloadFile — скачивание материалов.
	DownloadFile Capability = "downloadfile"
	// SignMaterialDelivery — выдача материала требует внешнего подтверждения.
	SignMaterialDelivery Capability = "signmaterialdelivery"
)

// Роли курса (архетипы платформы обучения).
const (
	RoleStudent        = "student"
	RoleTeacher        = "teacher"
	RoleEditingTeacher = "editingteacher"
	RoleManager        = "manager"
)

// Известные права.
var known = []Capability{ManageFiles, DownloadFile, SignMaterialDelivery}

// Principal — идентичность пользователя текущего запроса.
type Principal struct {
	// UserID — идентификатор пользователя (sub)
	UserID string
	// Username — имя для журналов
	Username string
	// SiteAdmin — администратор площадки: получает все права
	SiteAdmin bool
	// CourseRoles — роли пользователя по ID курса
	CourseRoles map[int64][]string
}

// Matrix — соответствие "право → роли, которым оно выдано".
type Matrix map[Capability][]string

// DefaultMatrix возвращает матрицу прав по умолчанию.
func DefaultMatrix() Matrix {
	return Matrix{
		DownloadFile:         {RoleStudent, RoleTeacher, RoleEditingTeacher, RoleManager},
		ManageFiles:          {RoleEditingTeacher, RoleManager},
		SignMaterialDelivery: {RoleStudent},
	}
}

// LoadMatrix читает TOML-файл вида
//
//	downloadfile = ["student", "teacher"]
//	managefiles = ["manager"]
//
// и накладывает его на матрицу по умолчанию. Права, не упомянутые
// в файле, остаются без изменений.
func LoadMatrix(path string) (Matrix, error) {
	m := DefaultMatrix()
	if path == "" {
		return m, nil
	}

	var raw map[string][]string
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, fmt.Errorf("ошибка чтения матрицы прав %s: %w", path, err)
	}
	for name, roles := range raw {
		c := Capability(name)
		if !slices.Contains(known, c) {
			return nil, fmt.Errorf("неизвестное право %q в %s", name, path)
		}
		m[c] = roles
	}
	return m, nil
}

// Decision — результат проверки права.
type Decision struct {
	Allowed bool
	// Reason — причина отказа (только для логов)
	Reason string
}

// Authorizer — единая точка проверки прав.
type Authorizer struct {
	matrix Matrix
}

// NewAuthorizer создаёт Authorizer с заданной матрицей.
func NewAuthorizer(m Matrix) *Authorizer {
	return &Authorizer{matrix: m}
}

// Authorize проверяет право capability у пользователя в контексте курса courseID.
func (a *Authorizer) Authorize(p *Principal, c Capability, courseID int64) Decision {
	if p == nil || p.UserID == "" {
		return Decision{Reason: "пользователь не аутентифицирован"}
	}
	if !slices.Contains(known, c) {
		return Decision{Reason: fmt.Sprintf("неизвестное право %q", c)}
	}
	if p.SiteAdmin {
		return Decision{Allowed: true}
	}
	allowed := a.matrix[c]
	for _, role := range p.CourseRoles[courseID] {
		if slices.Contains(allowed, role) {
			return Decision{Allowed: true}
		}
	}
	return Decision{Reason: fmt.Sprintf("нет права %s в курсе %d", c, courseID)}
}

// Has — сокращение для Authorize(...).Allowed.
func (a *Authorizer) Has(p *Principal, c Capability, courseID int64) bool {
	return a.Authorize(p, c, courseID).Allowed
}

// IsSiteAdmin сообщает, является ли пользователь администратором площадки.
func IsSiteAdmin(p *Principal) bool {
	return p != nil && p.SiteAdmin
}
