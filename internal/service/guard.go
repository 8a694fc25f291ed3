package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/goartstore/course-materials/internal/domain/capability"
)

var authzDeniedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "cm_authorization_denied_total",
	Help: "Количество отказов в доступе (по праву).",
}, []string{"capability"})

// Guard — проверка прав на входе в каждый сценарий.
// Отказ превращается в ErrPermission, причина остаётся только в логах.
type Guard struct {
	authz  *capability.Authorizer
	logger *slog.Logger
}

// NewGuard создаёт Guard поверх Authorizer.
func NewGuard(authz *capability.Authorizer, logger *slog.Logger) *Guard {
	return &Guard{
		authz:  authz,
		logger: logger.With(slog.String("component", "guard")),
	}
}

// Require возвращает nil, если у пользователя есть право c в курсе courseID.
func (g *Guard) Require(ctx context.Context, p *capability.Principal, c capability.Capability, courseID int64) error {
	d := g.authz.Authorize(p, c, courseID)
	if d.Allowed {
		return nil
	}
	authzDeniedTotal.WithLabelValues(string(c)).Inc()

	userID := ""
	if p != nil {
		userID = p.UserID
	}
	g.logger.DebugContext(ctx, "Доступ запрещён",
		slog.String("user_id", userID),
		slog.String("capability", string(c)),
		slog.Int64("course_id", courseID),
		slog.String("reason", d.Reason),
	)
	return fmt.Errorf("%w: %s", ErrPermission, c)
}

// Has сообщает, есть ли право, без логирования отказа
// (для решения, показывать ли элемент интерфейса).
func (g *Guard) Has(p *capability.Principal, c capability.Capability, courseID int64) bool {
	return g.authz.Has(p, c, courseID)
}
