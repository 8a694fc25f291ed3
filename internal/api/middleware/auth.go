// auth.go — JWT middleware аутентификации пользователей LMS.
// Токен берётся из заголовка Authorization (Bearer) или из cookie cm_token:
// ссылки на скачивание открываются в новой вкладке без заголовков.
// Claims преобразуются в capability.Principal и помещаются в контекст.
package middleware

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	apierrors "github.com/bigkaa/goartstore/course-materials/internal/api/errors"
	"github.com/bigkaa/goartstore/course-materials/internal/domain/capability"
)

// TokenCookieName — cookie с JWT для запросов без заголовка Authorization.
const TokenCookieName = "cm_token"

type contextKey string

const contextKeyPrincipal contextKey = "principal"

// lmsClaims — claims JWT, выпущенного LMS.
type lmsClaims struct {
	jwt.RegisteredClaims
	PreferredUsername string   `json:"preferred_username"`
	Groups            []string `json:"groups,omitempty"`

	// CourseRoles — роли пользователя по курсам: {"42": ["student"]}.
	CourseRoles map[string][]string `json:"course_roles,omitempty"`
}

// JWTAuth — middleware JWT-аутентификации через JWKS.
type JWTAuth struct {
	jwks        keyfunc.Keyfunc
	issuer      string
	leeway      time.Duration
	adminGroups []string
	logger      *slog.Logger
}

// NewJWTAuth создаёт JWT middleware с JWKS, обновляемым в фоне.
// caCertPath — опциональный CA-сертификат для TLS к JWKS endpoint.
// adminGroups — группы, члены которых считаются администраторами площадки.
func NewJWTAuth(
	jwksURL string,
	caCertPath string,
	issuer string,
	adminGroups []string,
	jwksClientTimeout time.Duration,
	jwksRefreshInterval time.Duration,
	leeway time.Duration,
	logger *slog.Logger,
) (*JWTAuth, error) {
	httpClient := &http.Client{Timeout: jwksClientTimeout}
	if caCertPath != "" {
		var err error
		httpClient, err = httpClientWithCA(caCertPath, jwksClientTimeout)
		if err != nil {
			return nil, fmt.Errorf("загрузка CA-сертификата %s: %w", caCertPath, err)
		}
	}

	// Стартуем даже если LMS ещё недоступна
	storage, err := jwkset.NewStorageFromHTTP(jwksURL, jwkset.HTTPClientStorageOptions{
		Client:                    httpClient,
		NoErrorReturnFirstHTTPReq: true,
		RefreshInterval:           jwksRefreshInterval,
		RefreshErrorHandler: func(_ context.Context, err error) {
			logger.Error("Ошибка обновления JWKS",
				slog.String("error", err.Error()),
				slog.String("url", jwksURL),
			)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("создание JWKS storage: %w", err)
	}

	k, err := keyfunc.New(keyfunc.Options{Storage: storage})
	if err != nil {
		return nil, fmt.Errorf("создание keyfunc: %w", err)
	}

	a := NewJWTAuthWithKeyfunc(k, issuer, adminGroups, logger)
	a.leeway = leeway
	return a, nil
}

// NewJWTAuthWithKeyfunc создаёт JWT middleware с готовой keyfunc.
func NewJWTAuthWithKeyfunc(kf keyfunc.Keyfunc, issuer string, adminGroups []string, logger *slog.Logger) *JWTAuth {
	return &JWTAuth{
		jwks:        kf,
		issuer:      issuer,
		adminGroups: adminGroups,
		logger:      logger.With(slog.String("component", "jwt_auth")),
	}
}

func httpClientWithCA(caCertPath string, timeout time.Duration) (*http.Client, error) {
	caCert, err := os.ReadFile(caCertPath)
	if err != nil {
		return nil, err
	}

	caCertPool, err := x509.SystemCertPool()
	if err != nil {
		caCertPool = x509.NewCertPool()
	}
	caCertPool.AppendCertsFromPEM(caCert)

	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				RootCAs:    caCertPool,
				MinVersion: tls.VersionTLS12,
			},
		},
	}, nil
}

// Middleware возвращает HTTP middleware аутентификации.
func (j *JWTAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := extractToken(r)
			if err != nil {
				apierrors.Unauthorized(w, err.Error())
				return
			}

			raw := &lmsClaims{}
			parserOpts := []jwt.ParserOption{
				jwt.WithValidMethods([]string{"RS256"}),
				jwt.WithExpirationRequired(),
				jwt.WithLeeway(j.leeway),
			}
			if j.issuer != "" {
				parserOpts = append(parserOpts, jwt.WithIssuer(j.issuer))
			}

			token, err := jwt.ParseWithClaims(tokenString, raw, j.jwks.KeyfuncCtx(r.Context()), parserOpts...)
			if err != nil || !token.Valid {
				j.logger.Debug("JWT валидация не пройдена",
					slog.Any("error", err),
					slog.String("remote_addr", r.RemoteAddr),
				)
				apierrors.Unauthorized(w, "Невалидный или просроченный токен")
				return
			}

			if raw.Subject == "" {
				apierrors.Unauthorized(w, "Отсутствует sub в токене")
				return
			}

			p := j.buildPrincipal(raw)
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// extractToken достаёт токен из заголовка Authorization или cookie.
func extractToken(r *http.Request) (string, error) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return "", fmt.Errorf("неверный формат Authorization: ожидается Bearer <token>")
		}
		if parts[1] == "" {
			return "", fmt.Errorf("пустой Bearer token")
		}
		return parts[1], nil
	}

	if cookie, err := r.Cookie(TokenCookieName); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}
	return "", fmt.Errorf("отсутствует токен аутентификации")
}

// buildPrincipal формирует Principal из claims.
// Нечисловые идентификаторы курсов пропускаются.
func (j *JWTAuth) buildPrincipal(raw *lmsClaims) *capability.Principal {
	p := &capability.Principal{
		UserID:      raw.Subject,
		Username:    raw.PreferredUsername,
		CourseRoles: make(map[int64][]string, len(raw.CourseRoles)),
	}

	for _, g := range raw.Groups {
		if slices.Contains(j.adminGroups, g) {
			p.SiteAdmin = true
			break
		}
	}

	for key, roles := range raw.CourseRoles {
		courseID, err := strconv.ParseInt(key, 10, 64)
		if err != nil || courseID <= 0 {
			j.logger.Debug("Пропущен некорректный идентификатор курса в course_roles",
				slog.String("user_id", raw.Subject),
				slog.String("course", key),
			)
			continue
		}
		p.CourseRoles[courseID] = roles
	}
	return p
}

// WithPrincipal помещает Principal в контекст.
func WithPrincipal(ctx context.Context, p *capability.Principal) context.Context {
	return context.WithValue(ctx, contextKeyPrincipal, p)
}

// PrincipalFromContext извлекает Principal из контекста (nil, если запрос
// не прошёл аутентификацию).
func PrincipalFromContext(ctx context.Context) *capability.Principal {
	p, _ := ctx.Value(contextKeyPrincipal).(*capability.Principal)
	return p
}
