// Пакет middleware — HTTP middleware для UI портала.
// auth.go — проверка UI-сессии (cookie-based) и токена внутри неё.
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/bigkaa/ecoportal/internal/domain/access"
	"github.com/bigkaa/ecoportal/internal/ui/auth"
)

// contextKey — тип для ключей контекста UI (избегаем коллизий с API middleware).
type contextKey string

const (
	// ContextKeyUISession — данные UI-сессии в контексте запроса.
	ContextKeyUISession contextKey = "ui_session"
	// ContextKeyIdentity — проверенная идентичность в контексте запроса.
	ContextKeyIdentity contextKey = "ui_identity"
)

// TokenVerifier проверяет bearer-токен. Реализуется api/middleware.JWTAuth.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*access.Identity, error)
}

// UIAuth — middleware для проверки аутентификации UI-пользователей.
// Страницы доступны и без сессии: без валидной сессии идентичность в контекст
// не кладётся, решение принимает обработчик страницы.
type UIAuth struct {
	sessionManager *auth.SessionManager
	verifier       TokenVerifier
	logger         *slog.Logger
}

// NewUIAuth создаёт новый UIAuth middleware.
func NewUIAuth(sessionManager *auth.SessionManager, verifier TokenVerifier, logger *slog.Logger) *UIAuth {
	return &UIAuth{
		sessionManager: sessionManager,
		verifier:       verifier,
		logger:         logger.With(slog.String("component", "ui_auth_middleware")),
	}
}

// Middleware возвращает HTTP middleware, извлекающий сессию и идентичность.
func (ua *UIAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := ua.sessionManager.GetSessionFromRequest(r)
			if err != nil {
				ua.logger.Debug("Ошибка чтения UI-сессии",
					slog.String("error", err.Error()),
					slog.String("remote_addr", r.RemoteAddr),
				)
				// Повреждённый cookie — очищаем, продолжаем анонимно
				ua.sessionManager.ClearSessionCookie(w)
				next.ServeHTTP(w, r)
				return
			}
			if session == nil {
				next.ServeHTTP(w, r)
				return
			}

			if session.IsExpired() {
				ua.sessionManager.ClearSessionCookie(w)
				next.ServeHTTP(w, r)
				return
			}

			identity, err := ua.verifier.Verify(r.Context(), session.AccessToken)
			if err != nil {
				ua.logger.Info("Токен сессии отклонён, сессия сброшена",
					slog.String("user_id", session.Subject),
					slog.String("error", err.Error()),
				)
				ua.sessionManager.ClearSessionCookie(w)
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyUISession, session)
			ctx = context.WithValue(ctx, ContextKeyIdentity, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext извлекает SessionData из контекста запроса.
// Возвращает nil если сессия не найдена или не прошла проверку.
func SessionFromContext(ctx context.Context) *auth.SessionData {
	session, ok := ctx.Value(ContextKeyUISession).(*auth.SessionData)
	if !ok {
		return nil
	}
	return session
}

// IdentityFromContext извлекает проверенную идентичность из контекста запроса.
func IdentityFromContext(ctx context.Context) *access.Identity {
	identity, _ := ctx.Value(ContextKeyIdentity).(*access.Identity)
	return identity
}

// WithIdentity помещает идентичность в контекст (для тестов обработчиков).
func WithIdentity(ctx context.Context, identity *access.Identity) context.Context {
	return context.WithValue(ctx, ContextKeyIdentity, identity)
}
