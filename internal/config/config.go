// Пакет config — загрузка и валидация конфигурации сервиса Course Materials
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации сервиса.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string
	// Таймауты HTTP-сервера
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	// --- PostgreSQL ---

	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string

	// --- Хранилище файлов ---

	// Корневой каталог, внутри которого создаются каталоги областей
	DataDir string
	// Максимальный размер загружаемого файла в байтах
	MaxUploadSize int64
	// ID категории, курсы которой хранят собственные материалы
	OwnCategoryID int64

	// --- LMS ---

	// Базовый URL REST API платформы обучения
	LMSURL string
	// Сервисный токен для LMS API (опционально)
	LMSToken string
	// Таймаут запросов к LMS
	LMSTimeout time.Duration
	// Размер и TTL кэша курсов
	CourseCacheSize int
	CourseCacheTTL  time.Duration

	// --- Подтверждение выдачи материалов ---

	// Базовый URL сервиса подтверждения (всегда заканчивается на "/")
	SignBaseURL string
	// Таймаут запроса подтверждения
	SignTimeout time.Duration
	// Время, после которого незавершённая запись журнала считается брошенной
	LedgerStaleAfter time.Duration

	// --- JWT ---

	// URL JWKS endpoint поставщика удостоверений
	JWTJWKSURL string
	// Issuer JWT (опционально, пустое значение отключает проверку)
	JWTIssuer string
	// Допустимое расхождение часов
	JWTLeeway time.Duration
	// Интервал обновления JWKS
	JWKSRefreshInterval time.Duration
	// Таймаут HTTP-клиента JWKS
	JWKSClientTimeout time.Duration
	// Путь к CA-сертификату для TLS-соединений (опционально)
	CACertPath string

	// --- Права ---

	// Группы, члены которых считаются администраторами площадки
	RoleAdminGroups []string
	// Путь к TOML-файлу с матрицей прав (опционально)
	CapabilitiesFile string

	// --- Мониторинг зависимостей ---

	DephealthGroup         string
	DephealthCheckInterval time.Duration

	// --- Graceful shutdown ---

	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// CM_PORT — порт HTTP-сервера (по умолчанию 8040)
	cfg.Port, err = getEnvInt("CM_PORT", 8040)
	if err != nil {
		return nil, fmt.Errorf("CM_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("CM_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	cfg.LogLevel, err = parseLogLevel(getEnvDefault("CM_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("CM_LOG_LEVEL: %w", err)
	}

	cfg.LogFormat = getEnvDefault("CM_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("CM_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	cfg.HTTPReadTimeout, err = getEnvDuration("CM_HTTP_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CM_HTTP_READ_TIMEOUT: %w", err)
	}
	// Запись ответа включает отдачу файла целиком, поэтому таймаут большой
	cfg.HTTPWriteTimeout, err = getEnvDuration("CM_HTTP_WRITE_TIMEOUT", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("CM_HTTP_WRITE_TIMEOUT: %w", err)
	}
	cfg.HTTPIdleTimeout, err = getEnvDuration("CM_HTTP_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CM_HTTP_IDLE_TIMEOUT: %w", err)
	}

	// --- PostgreSQL ---

	cfg.DBHost, err = getEnvRequired("CM_DB_HOST")
	if err != nil {
		return nil, err
	}
	cfg.DBPort, err = getEnvInt("CM_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("CM_DB_PORT: %w", err)
	}
	cfg.DBName, err = getEnvRequired("CM_DB_NAME")
	if err != nil {
		return nil, err
	}
	cfg.DBUser, err = getEnvRequired("CM_DB_USER")
	if err != nil {
		return nil, err
	}
	cfg.DBPassword, err = getEnvRequired("CM_DB_PASSWORD")
	if err != nil {
		return nil, err
	}
	cfg.DBSSLMode = getEnvDefault("CM_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("CM_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// --- Хранилище файлов ---

	cfg.DataDir = getEnvDefault("CM_DATA_DIR", "/var/lib/course-materials")

	// CM_MAX_UPLOAD_SIZE — по умолчанию 256 MiB
	maxUpload, err := getEnvInt("CM_MAX_UPLOAD_SIZE", 256<<20)
	if err != nil {
		return nil, fmt.Errorf("CM_MAX_UPLOAD_SIZE: %w", err)
	}
	if maxUpload < 1 {
		return nil, fmt.Errorf("CM_MAX_UPLOAD_SIZE: значение %d должно быть положительным", maxUpload)
	}
	cfg.MaxUploadSize = int64(maxUpload)

	ownCategory, err := getEnvInt("CM_OWN_CATEGORY_ID", 1)
	if err != nil {
		return nil, fmt.Errorf("CM_OWN_CATEGORY_ID: %w", err)
	}
	cfg.OwnCategoryID = int64(ownCategory)

	// --- LMS ---

	cfg.LMSURL, err = getEnvURL("CM_LMS_URL")
	if err != nil {
		return nil, err
	}
	cfg.LMSURL = strings.TrimRight(cfg.LMSURL, "/")
	cfg.LMSToken = getEnvDefault("CM_LMS_TOKEN", "")
	cfg.LMSTimeout, err = getEnvDuration("CM_LMS_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CM_LMS_TIMEOUT: %w", err)
	}
	cfg.CourseCacheSize, err = getEnvInt("CM_COURSE_CACHE_SIZE", 1000)
	if err != nil {
		return nil, fmt.Errorf("CM_COURSE_CACHE_SIZE: %w", err)
	}
	if cfg.CourseCacheSize < 1 {
		return nil, fmt.Errorf("CM_COURSE_CACHE_SIZE: значение %d должно быть положительным", cfg.CourseCacheSize)
	}
	cfg.CourseCacheTTL, err = getEnvDuration("CM_COURSE_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("CM_COURSE_CACHE_TTL: %w", err)
	}

	// --- Подтверждение выдачи ---

	cfg.SignBaseURL, err = getEnvURL("CM_SIGN_BASE_URL")
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(cfg.SignBaseURL, "/") {
		cfg.SignBaseURL += "/"
	}
	cfg.SignTimeout, err = getEnvDuration("CM_SIGN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CM_SIGN_TIMEOUT: %w", err)
	}
	if cfg.SignTimeout <= 0 {
		return nil, fmt.Errorf("CM_SIGN_TIMEOUT: таймаут должен быть положительным")
	}
	cfg.LedgerStaleAfter, err = getEnvDuration("CM_LEDGER_STALE_AFTER", 2*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("CM_LEDGER_STALE_AFTER: %w", err)
	}
	// Незавершённая запись не может считаться брошенной раньше, чем истечёт
	// таймаут запроса подтверждения
	if cfg.LedgerStaleAfter <= cfg.SignTimeout {
		return nil, fmt.Errorf("CM_LEDGER_STALE_AFTER (%s) должен быть больше CM_SIGN_TIMEOUT (%s)",
			cfg.LedgerStaleAfter, cfg.SignTimeout)
	}

	// --- JWT ---

	cfg.JWTJWKSURL, err = getEnvURL("CM_JWT_JWKS_URL")
	if err != nil {
		return nil, err
	}
	cfg.JWTIssuer = getEnvDefault("CM_JWT_ISSUER", "")
	cfg.JWTLeeway, err = getEnvDuration("CM_JWT_LEEWAY", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CM_JWT_LEEWAY: %w", err)
	}
	cfg.JWKSRefreshInterval, err = getEnvDuration("CM_JWKS_REFRESH_INTERVAL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("CM_JWKS_REFRESH_INTERVAL: %w", err)
	}
	cfg.JWKSClientTimeout, err = getEnvDuration("CM_JWKS_CLIENT_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CM_JWKS_CLIENT_TIMEOUT: %w", err)
	}
	cfg.CACertPath = getEnvDefault("CM_CA_CERT_PATH", "")

	// --- Права ---

	cfg.RoleAdminGroups = parseCSV(getEnvDefault("CM_ROLE_ADMIN_GROUPS", "lms-admins"))
	cfg.CapabilitiesFile = getEnvDefault("CM_CAPABILITIES_FILE", "")

	// --- Мониторинг зависимостей ---

	cfg.DephealthGroup = getEnvDefault("CM_DEPHEALTH_GROUP", "course-materials")
	cfg.DephealthCheckInterval, err = getEnvDuration("CM_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CM_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// --- Graceful shutdown ---

	cfg.ShutdownTimeout, err = getEnvDuration("CM_SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("CM_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL PostgreSQL (для golang-migrate и dephealth).
func (c *Config) DatabaseURL(scheme string) string {
	u := url.URL{
		Scheme:   scheme,
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     fmt.Sprintf("%s:%d", c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + c.DBSSLMode,
	}
	return u.String()
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvURL возвращает обязательный абсолютный http(s) URL.
func getEnvURL(key string) (string, error) {
	val, err := getEnvRequired(key)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(val)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%s: некорректный URL %q", key, val)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}

// parseCSV разбирает строку, разделённую запятыми, на срез строк.
func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
