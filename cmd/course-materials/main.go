// Точка входа Course Materials — обмен учебными материалами курсов LMS.
// Загружает конфигурацию, применяет миграции, подключается к PostgreSQL,
// создаёт клиенты LMS и сервиса подтверждения, сервисный слой и UI handlers,
// запускает topologymetrics и HTTP-сервер с JWT middleware и graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"

	apihandlers "github.com/bigkaa/goartstore/course-materials/internal/api/handlers"
	"github.com/bigkaa/goartstore/course-materials/internal/api/middleware"
	"github.com/bigkaa/goartstore/course-materials/internal/config"
	"github.com/bigkaa/goartstore/course-materials/internal/database"
	"github.com/bigkaa/goartstore/course-materials/internal/domain/capability"
	"github.com/bigkaa/goartstore/course-materials/internal/lmsclient"
	"github.com/bigkaa/goartstore/course-materials/internal/repository"
	"github.com/bigkaa/goartstore/course-materials/internal/server"
	"github.com/bigkaa/goartstore/course-materials/internal/service"
	"github.com/bigkaa/goartstore/course-materials/internal/signclient"
	"github.com/bigkaa/goartstore/course-materials/internal/storage/filestore"
	uihandlers "github.com/bigkaa/goartstore/course-materials/internal/ui/handlers"
	"github.com/bigkaa/goartstore/course-materials/internal/ui/i18n"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Course Materials запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics
	pgDB := database.SQLDB(pool)
	defer pgDB.Close()

	// 5. Хранилище файлов
	store, err := filestore.New(cfg.DataDir)
	if err != nil {
		logger.Error("Ошибка инициализации хранилища файлов", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Хранилище файлов готово", slog.String("data_dir", store.DataDir()))

	// 6. Внешние клиенты
	lms, err := lmsclient.New(cfg.LMSURL, cfg.LMSToken, cfg.CACertPath, cfg.LMSTimeout, logger)
	if err != nil {
		logger.Error("Ошибка создания LMS-клиента", slog.String("error", err.Error()))
		os.Exit(1)
	}
	signer, err := signclient.New(cfg.SignBaseURL, cfg.CACertPath, cfg.SignTimeout, logger)
	if err != nil {
		logger.Error("Ошибка создания клиента подтверждения", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 7. Матрица прав
	matrix, err := capability.LoadMatrix(cfg.CapabilitiesFile)
	if err != nil {
		logger.Error("Ошибка загрузки матрицы прав", slog.String("error", err.Error()))
		os.Exit(1)
	}
	guard := service.NewGuard(capability.NewAuthorizer(matrix), logger)

	// 8. Repositories
	fileRepo := repository.NewFileRepository(pool)
	downloadRepo := repository.NewDownloadRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	// 9. Services
	courses := service.NewCourseDirectory(lms, cfg.CourseCacheSize, cfg.CourseCacheTTL, cfg.OwnCategoryID, logger)
	uploadSvc := service.NewUploadService(fileRepo, store, courses, guard, logger)
	downloadSvc := service.NewDownloadService(fileRepo, downloadRepo, store, courses, signer, guard,
		cfg.LedgerStaleAfter, logger)
	registrySvc := service.NewRegistryService(fileRepo, txRunner, store, courses, guard, logger)
	logSvc := service.NewLogService(fileRepo, downloadRepo, courses, guard, logger)

	// 10. Переводы UI
	if err := i18n.LoadFromEmbedFS(i18n.Init(logger), logger); err != nil {
		logger.Error("Ошибка загрузки переводов", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 11. JWT middleware
	jwtAuth, err := middleware.NewJWTAuth(
		cfg.JWTJWKSURL,
		cfg.CACertPath,
		cfg.JWTIssuer,
		cfg.RoleAdminGroups,
		cfg.JWKSClientTimeout,
		cfg.JWKSRefreshInterval,
		cfg.JWTLeeway,
		logger,
	)
	if err != nil {
		logger.Error("Ошибка создания JWT middleware", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("JWT middleware инициализирован",
		slog.String("jwks_url", cfg.JWTJWKSURL),
		slog.String("issuer", cfg.JWTIssuer),
	)

	// 12. topologymetrics — мониторинг зависимостей (PostgreSQL, LMS, сервис подтверждения)
	dephealthSvc, dephealthErr := service.NewDephealthService(service.DephealthParams{
		ServiceID:     "course-materials",
		Group:         cfg.DephealthGroup,
		DB:            pgDB,
		PGConnURL:     cfg.DatabaseURL("postgres"),
		LMSURL:        lms.BaseURL(),
		SignURL:       signer.BaseURL(),
		CheckInterval: cfg.DephealthCheckInterval,
	}, logger)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
	} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
		logger.Warn("Ошибка запуска topologymetrics", slog.String("error", startErr.Error()))
	} else {
		defer dephealthSvc.Stop()
		logger.Info("topologymetrics запущен",
			slog.String("group", cfg.DephealthGroup),
			slog.String("check_interval", cfg.DephealthCheckInterval.String()),
		)
	}

	// 13. HTTP-сервер
	srv := server.New(cfg, logger, server.Handlers{
		Health:    apihandlers.NewHealthHandler(database.NewReadinessChecker(pool), store),
		Materials: uihandlers.NewMaterialsHandler(registrySvc, uploadSvc, cfg.MaxUploadSize, logger),
		Download:  uihandlers.NewDownloadHandler(downloadSvc, logger),
		Logs:      uihandlers.NewLogsHandler(logSvc, logger),
	}, jwtAuth.Middleware())

	// 14. Запуск сервера (блокирующий вызов с graceful shutdown)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Course Materials остановлен")
}
