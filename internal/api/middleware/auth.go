// auth.go — JWT middleware REST API портала.
// Проверяет подпись Bearer-токена через JWKS провайдера идентичности
// и помещает идентичность (sub, email, preferred_username) в контекст.
// Решение о доступе принимается позже, по профилю в хранилище.
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	apierrors "github.com/bigkaa/ecoportal/internal/api/errors"
	"github.com/bigkaa/ecoportal/internal/domain/access"
)

// contextKey — тип для ключей контекста (избегаем коллизий).
type contextKey string

const (
	// ContextKeyIdentity — идентичность вызывающего в контексте запроса.
	ContextKeyIdentity contextKey = "identity"
)

// Ошибки проверки токена.
var (
	ErrMissingToken = errors.New("отсутствует Bearer token")
	ErrInvalidToken = errors.New("невалидный или просроченный токен")
	ErrNoSubject    = errors.New("отсутствует sub в токене")
)

// identityClaims — claims токена провайдера идентичности.
type identityClaims struct {
	jwt.RegisteredClaims
	PreferredUsername string `json:"preferred_username"`
	Email             string `json:"email"`
}

// JWTAuth — проверка JWT через JWKS провайдера идентичности.
type JWTAuth struct {
	jwks      keyfunc.Keyfunc
	logger    *slog.Logger
	issuer    string
	jwtLeeway time.Duration
}

// NewJWTAuth создаёт JWT middleware с JWKS провайдера идентичности.
// httpClient — клиент для загрузки JWKS (nil — http.DefaultClient).
// refreshInterval — интервал фонового обновления ключей.
// issuer — ожидаемый issuer (пусто — не проверяется).
func NewJWTAuth(
	jwksURL string,
	issuer string,
	httpClient *http.Client,
	refreshInterval time.Duration,
	leeway time.Duration,
	logger *slog.Logger,
) (*JWTAuth, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	// NoErrorReturnFirstHTTPReq — стартуем даже если провайдер ещё недоступен.
	storage, err := jwkset.NewStorageFromHTTP(jwksURL, jwkset.HTTPClientStorageOptions{
		Client:                    httpClient,
		NoErrorReturnFirstHTTPReq: true,
		RefreshInterval:           refreshInterval,
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

	k, err := keyfunc.New(keyfunc.Options{
		Storage: storage,
	})
	if err != nil {
		return nil, fmt.Errorf("создание keyfunc: %w", err)
	}

	return &JWTAuth{
		jwks:      k,
		logger:    logger.With(slog.String("component", "jwt_auth")),
		issuer:    issuer,
		jwtLeeway: leeway,
	}, nil
}

// NewJWTAuthWithKeyfunc создаёт JWT middleware с предоставленной keyfunc.
// Используется в тестах для подстановки JWKS.
func NewJWTAuthWithKeyfunc(kf keyfunc.Keyfunc, issuer string, leeway time.Duration, logger *slog.Logger) *JWTAuth {
	return &JWTAuth{
		jwks:      kf,
		logger:    logger.With(slog.String("component", "jwt_auth")),
		issuer:    issuer,
		jwtLeeway: leeway,
	}
}

// Verify проверяет токен (RS256, обязательный exp, issuer) и возвращает идентичность.
func (j *JWTAuth) Verify(ctx context.Context, tokenString string) (*access.Identity, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	raw := &identityClaims{}
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(j.jwtLeeway),
	}
	if j.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(j.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, raw, j.jwks.KeyfuncCtx(ctx), parserOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	subject, err := raw.GetSubject()
	if err != nil || strings.TrimSpace(subject) == "" {
		return nil, ErrNoSubject
	}

	return &access.Identity{
		Subject:  subject,
		Email:    raw.Email,
		Username: raw.PreferredUsername,
	}, nil
}

// Middleware возвращает HTTP middleware для JWT-аутентификации.
// Без валидного токена запрос завершается 401.
func (j *JWTAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := BearerToken(r)
			if !ok {
				apierrors.Unauthorized(w, "Неверный формат Authorization: ожидается Bearer <token>")
				return
			}

			identity, err := j.Verify(r.Context(), tokenString)
			if err != nil {
				j.logger.Debug("JWT валидация не пройдена",
					slog.String("error", err.Error()),
					slog.String("remote_addr", r.RemoteAddr),
				)
				switch {
				case errors.Is(err, ErrNoSubject):
					apierrors.Unauthorized(w, "Отсутствует sub в токене")
				default:
					apierrors.Unauthorized(w, "Невалидный или просроченный токен")
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// BearerToken извлекает токен из заголовка Authorization.
func BearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(authHeader, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// --- Context helpers ---

// WithIdentity помещает идентичность в контекст.
func WithIdentity(ctx context.Context, identity *access.Identity) context.Context {
	return context.WithValue(ctx, ContextKeyIdentity, identity)
}

// IdentityFromContext извлекает идентичность из контекста запроса.
// Возвращает nil, если идентичность не установлена.
func IdentityFromContext(ctx context.Context) *access.Identity {
	identity, _ := ctx.Value(ContextKeyIdentity).(*access.Identity)
	return identity
}

// SubjectFromContext извлекает sub из контекста запроса.
func SubjectFromContext(ctx context.Context) string {
	identity := IdentityFromContext(ctx)
	if identity == nil {
		return ""
	}
	return identity.Subject
}

// --- ReadinessChecker для провайдера идентичности ---

// JWKSReadinessChecker — проверка доступности JWKS endpoint.
type JWKSReadinessChecker struct {
	jwksURL string
	client  *http.Client
}

// NewJWKSReadinessChecker создаёт checker доступности JWKS.
func NewJWKSReadinessChecker(jwksURL string, client *http.Client) *JWKSReadinessChecker {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &JWKSReadinessChecker{jwksURL: jwksURL, client: client}
}

const statusFail = "fail"

// CheckReady проверяет, что JWKS отвечает и содержит ключи.
func (k *JWKSReadinessChecker) CheckReady(ctx context.Context) (status, message string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.jwksURL, http.NoBody)
	if err != nil {
		return statusFail, "ошибка создания запроса: " + err.Error()
	}
	resp, err := k.client.Do(req) //nolint:gosec // URL из конфигурации
	if err != nil {
		return statusFail, fmt.Sprintf("JWKS недоступен: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusFail, fmt.Sprintf("JWKS вернул статус %d", resp.StatusCode)
	}

	var jwksResp struct {
		Keys []json.RawMessage `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&jwksResp); err != nil {
		return "degraded", fmt.Sprintf("JWKS: невалидный JSON: %v", err)
	}
	if len(jwksResp.Keys) == 0 {
		return "degraded", "JWKS: нет ключей"
	}

	return "ok", fmt.Sprintf("JWKS доступен, ключей: %d", len(jwksResp.Keys))
}
