// Пакет server — HTTP-сервер блока материалов с graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"

	apihandlers "github.com/bigkaa/goartstore/course-materials/internal/api/handlers"
	"github.com/bigkaa/goartstore/course-materials/internal/api/middleware"
	"github.com/bigkaa/goartstore/course-materials/internal/config"
	uihandlers "github.com/bigkaa/goartstore/course-materials/internal/ui/handlers"
	"github.com/bigkaa/goartstore/course-materials/internal/ui/i18n"
	"github.com/bigkaa/goartstore/course-materials/internal/ui/static"
)

// Пути, доступные без аутентификации.
var publicPrefixes = []string{"/health/", "/metrics", "/static/", "/set-language"}

// Handlers — обработчики маршрутов сервера.
type Handlers struct {
	Health    *apihandlers.HealthHandler
	Materials *uihandlers.MaterialsHandler
	Download  *uihandlers.DownloadHandler
	Logs      *uihandlers.LogsHandler
}

// Server — HTTP-сервер блока материалов.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт HTTP-сервер с маршрутами и middleware.
// auth — middleware аутентификации (nil — без аутентификации, для тестов).
func New(cfg *config.Config, logger *slog.Logger, h Handlers, auth func(http.Handler) http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      NewRouter(logger, h, auth),
			ReadTimeout:  cfg.HTTPReadTimeout,
			WriteTimeout: cfg.HTTPWriteTimeout,
			IdleTimeout:  cfg.HTTPIdleTimeout,
		},
		logger: logger,
		cfg:    cfg,
	}
}

// NewRouter собирает маршрутизатор.
func NewRouter(logger *slog.Logger, h Handlers, auth func(http.Handler) http.Handler) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))
	router.Use(i18n.Middleware())
	if auth != nil {
		router.Use(AuthWithExclusions(auth, publicPrefixes...))
	}

	router.Get("/health/live", h.Health.HealthLive)
	router.Get("/health/ready", h.Health.HealthReady)
	router.Get("/metrics", h.Health.GetMetrics)
	router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(static.FileSystem())))
	router.Post("/set-language", uihandlers.HandleSetLanguage)

	router.Route("/courses/{courseID}/materials", func(r chi.Router) {
		r.Get("/", h.Materials.HandleView)
		r.Post("/", h.Materials.HandleSubmit)
		r.Get("/log", h.Logs.HandleLog)
	})
	router.Get("/download", h.Download.HandleDownload)

	return router
}

// AuthWithExclusions оборачивает middleware, пропуская пути с указанными префиксами.
func AuthWithExclusions(mw func(http.Handler) http.Handler, excludePrefixes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		protected := mw(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, prefix := range excludePrefixes {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}
			protected.ServeHTTP(w, r)
		})
	}
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
