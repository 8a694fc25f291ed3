// dephealth.go — интеграция с topologymetrics SDK для мониторинга зависимостей.
//
// Сервис мониторит:
//   - PostgreSQL — SQL checker через существующий pgxpool (critical)
//   - LMS — HTTP checker REST API платформы обучения (critical)
//   - сервис подтверждения выдачи — HTTP checker (не critical: без него
//     недоступно только скачивание для пользователей с правом подписи)
package service

import (
	"context"
	"database/sql"
	"log/slog"
	"net/url"
	"time"

	"github.com/BigKAA/topologymetrics/sdk-go/dephealth"
	_ "github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/httpcheck" // регистрация HTTP checker factory
	"github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/pgcheck"
	"github.com/prometheus/client_golang/prometheus"
)

// DephealthParams — параметры мониторинга зависимостей.
type DephealthParams struct {
	// ServiceID — имя вершины графа текущего приложения
	ServiceID string
	// Group — имя группы в метриках (CM_DEPHEALTH_GROUP)
	Group string
	// DB — *sql.DB поверх pgxpool
	DB *sql.DB
	// PGConnURL — URL PostgreSQL (для лейблов, не для подключения)
	PGConnURL string
	// LMSURL — базовый URL LMS
	LMSURL string
	// SignURL — базовый URL сервиса подтверждения
	SignURL       string
	CheckInterval time.Duration
	// Registerer — Prometheus registerer (nil — глобальный)
	Registerer prometheus.Registerer
}

// DephealthService — сервис мониторинга зависимостей через topologymetrics.
type DephealthService struct {
	dh     *dephealth.DepHealth
	logger *slog.Logger
}

// NewDephealthService создаёт сервис мониторинга зависимостей.
func NewDephealthService(p DephealthParams, logger *slog.Logger) (*DephealthService, error) {
	opts := []dephealth.Option{
		dephealth.WithLogger(logger),
		dephealth.AddDependency("postgresql", dephealth.TypePostgres,
			pgcheck.New(pgcheck.WithDB(p.DB)),
			dephealth.FromURL(p.PGConnURL),
			dephealth.CheckInterval(p.CheckInterval),
			dephealth.Critical(true),
		),
		dephealth.HTTP("lms", httpDepOpts(p.LMSURL, p.CheckInterval, true)...),
		dephealth.HTTP("delivery-sign", httpDepOpts(p.SignURL, p.CheckInterval, false)...),
	}
	if p.Registerer != nil {
		opts = append(opts, dephealth.WithRegisterer(p.Registerer))
	}

	dh, err := dephealth.New(p.ServiceID, p.Group, opts...)
	if err != nil {
		return nil, err
	}

	return &DephealthService{
		dh:     dh,
		logger: logger.With(slog.String("component", "dephealth")),
	}, nil
}

// httpDepOpts строит опции HTTP-зависимости: health path берётся из пути базового URL.
func httpDepOpts(rawURL string, interval time.Duration, critical bool) []dephealth.DependencyOption {
	healthPath := "/"
	opts := []dephealth.DependencyOption{
		dephealth.FromURL(rawURL),
		dephealth.CheckInterval(interval),
		dephealth.Critical(critical),
	}
	if parsed, err := url.Parse(rawURL); err == nil {
		if parsed.Path != "" {
			healthPath = parsed.Path
		}
		if parsed.Scheme == "https" {
			opts = append(opts, dephealth.WithHTTPTLSSkipVerify(false))
		}
	}
	return append(opts, dephealth.WithHTTPHealthPath(healthPath))
}

// Start запускает периодическую проверку зависимостей.
func (ds *DephealthService) Start(ctx context.Context) error {
	ds.logger.Info("Мониторинг зависимостей запущен (PostgreSQL, LMS, сервис подтверждения)")
	return ds.dh.Start(ctx)
}

// Stop останавливает мониторинг зависимостей.
func (ds *DephealthService) Stop() {
	ds.dh.Stop()
	ds.logger.Info("Мониторинг зависимостей остановлен")
}

// Health возвращает текущее состояние зависимостей.
func (ds *DephealthService) Health() map[string]bool {
	return ds.dh.Health()
}
