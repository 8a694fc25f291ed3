// Пакет lmsclient — HTTP-клиент REST API платформы обучения.
// Используется для получения категории курса, от которой зависит
// область хранения материалов.
package lmsclient

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/bigkaa/goartstore/course-materials/internal/domain/model"
)

// ErrCourseNotFound — курс не существует в платформе обучения.
var ErrCourseNotFound = errors.New("курс не найден")

// Client — HTTP-клиент LMS.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string //nolint:gosec // G101: поле структуры, не содержит секрет напрямую
	logger     *slog.Logger
}

// New создаёт клиент LMS.
// baseURL — базовый URL REST API (например, https://lms.kryukov.lan).
// token — сервисный токен (пустая строка — без авторизации).
// caCertPath — путь к CA-сертификату для TLS (пустая строка — стандартный пул).
func New(baseURL, token, caCertPath string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	httpClient := &http.Client{Timeout: timeout}

	if caCertPath != "" {
		tlsConfig, err := buildTLSConfig(caCertPath)
		if err != nil {
			return nil, fmt.Errorf("загрузка CA-сертификата LMS: %w", err)
		}
		httpClient.Transport = &http.Transport{
			TLSClientConfig: tlsConfig,
		}
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		logger:     logger.With(slog.String("component", "lms_client")),
	}, nil
}

// BaseURL возвращает базовый URL LMS (для мониторинга зависимостей).
func (c *Client) BaseURL() string {
	return c.baseURL
}

// GetCourse запрашивает сведения о курсе.
// GET /api/v1/courses/{id}
func (c *Client) GetCourse(ctx context.Context, courseID int64) (*model.Course, error) {
	reqURL := fmt.Sprintf("%s/api/v1/courses/%d", c.baseURL, courseID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("создание запроса GetCourse: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req) //nolint:gosec // G704: URL из конфигурации
	if err != nil {
		return nil, fmt.Errorf("запрос GetCourse к %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %d", ErrCourseNotFound, courseID)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("LMS вернул статус %d для курса %d: %s", resp.StatusCode, courseID, string(body))
	}

	var course model.Course
	if err := json.NewDecoder(resp.Body).Decode(&course); err != nil {
		return nil, fmt.Errorf("декодирование ответа LMS: %w", err)
	}
	if course.ID != courseID {
		return nil, fmt.Errorf("LMS вернул курс %d вместо %d", course.ID, courseID)
	}

	c.logger.Debug("Курс получен из LMS",
		slog.Int64("course_id", course.ID),
		slog.Int64("category_id", course.CategoryID),
	)

	return &course, nil
}

// buildTLSConfig создаёт TLS-конфигурацию с кастомным CA-сертификатом.
func buildTLSConfig(caCertPath string) (*tls.Config, error) {
	caCert, err := os.ReadFile(caCertPath)
	if err != nil {
		return nil, fmt.Errorf("чтение CA-сертификата: %w", err)
	}

	caCertPool, err := x509.SystemCertPool()
	if err != nil {
		caCertPool = x509.NewCertPool()
	}
	caCertPool.AppendCertsFromPEM(caCert)

	return &tls.Config{
		RootCAs: caCertPool,
	}, nil
}
