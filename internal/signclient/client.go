// Пакет signclient — клиент внешнего сервиса подтверждения выдачи
// материалов. Сервис отвечает телом "OK", если выдача зарегистрирована;
// любой другой ответ означает отказ.
package signclient

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrNotConfirmed — сервис ответил, но выдачу не подтвердил.
var ErrNotConfirmed = errors.New("выдача не подтверждена")

// signPath — путь обработчика относительно базового URL.
const signPath = "inc/coursefilesrequests.php"

// maxBody — сколько байт ответа читать (ответ "OK" короткий).
const maxBody = 1024

// Client — HTTP-клиент сервиса подтверждения.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// New создаёт клиент. baseURL дополняется завершающим "/".
// timeout ограничивает весь запрос, включая чтение тела.
func New(baseURL, caCertPath string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	httpClient := &http.Client{Timeout: timeout}

	if caCertPath != "" {
		tlsConfig, err := buildTLSConfig(caCertPath)
		if err != nil {
			return nil, fmt.Errorf("загрузка CA-сертификата сервиса подтверждения: %w", err)
		}
		httpClient.Transport = &http.Transport{
			TLSClientConfig: tlsConfig,
		}
	}

	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		logger:     logger.With(slog.String("component", "sign_client")),
	}, nil
}

// BaseURL возвращает базовый URL сервиса (для мониторинга зависимостей).
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SignDelivery регистрирует выдачу файла fileID пользователю userID
// в области scopeRefID. Возвращает nil только при ответе ровно "OK".
func (c *Client) SignDelivery(ctx context.Context, userID string, scopeRefID, fileID int64) error {
	q := url.Values{}
	q.Set("action", "material_delivery_sign")
	q.Set("alu_id", userID)
	q.Set("course_id", strconv.FormatInt(scopeRefID, 10))
	q.Set("file_id", strconv.FormatInt(fileID, 10))
	reqURL := c.baseURL + signPath + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("создание запроса подтверждения: %w", err)
	}

	resp, err := c.httpClient.Do(req) //nolint:gosec // G704: URL из конфигурации
	if err != nil {
		return fmt.Errorf("запрос подтверждения: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("чтение ответа подтверждения: %w", err)
	}

	if resp.StatusCode != http.StatusOK || string(body) != "OK" {
		c.logger.Warn("Сервис подтверждения отклонил выдачу",
			slog.Int("status", resp.StatusCode),
			slog.String("user_id", userID),
			slog.Int64("file_id", fileID),
			slog.String("body", truncate(string(body), 200)),
		)
		return fmt.Errorf("%w: статус %d", ErrNotConfirmed, resp.StatusCode)
	}

	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
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
