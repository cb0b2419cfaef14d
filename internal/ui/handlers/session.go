// session.go — вход по токену провайдера идентичности и выход.
package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	apimiddleware "github.com/bigkaa/ecoportal/internal/api/middleware"
	"github.com/bigkaa/ecoportal/internal/service"
	"github.com/bigkaa/ecoportal/internal/ui/auth"
	"github.com/bigkaa/ecoportal/internal/ui/i18n"
	uimiddleware "github.com/bigkaa/ecoportal/internal/ui/middleware"
	"github.com/bigkaa/ecoportal/internal/ui/pages"
)

// sessionTTL — срок жизни cookie сессии. Сам токен проверяется
// на каждом запросе, истёкший токен сбрасывает сессию раньше.
const sessionTTL = 8 * time.Hour

// SessionHandler — обработчики входа и выхода UI.
type SessionHandler struct {
	sessionManager *auth.SessionManager
	verifier       uimiddleware.TokenVerifier
	profiles       *service.ProfileService
	logger         *slog.Logger
}

// NewSessionHandler создаёт новый SessionHandler.
func NewSessionHandler(
	sessionManager *auth.SessionManager,
	verifier uimiddleware.TokenVerifier,
	profiles *service.ProfileService,
	logger *slog.Logger,
) *SessionHandler {
	return &SessionHandler{
		sessionManager: sessionManager,
		verifier:       verifier,
		profiles:       profiles,
		logger:         logger.With(slog.String("component", "ui_session")),
	}
}

// HandleLoginPage — GET /login. Уже вошедший пользователь уходит на главную.
func (h *SessionHandler) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	if uimiddleware.IdentityFromContext(r.Context()) != nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	h.renderLogin(w, r, http.StatusOK, "")
}

// HandleCreateSession — POST /session.
// Токен берётся из поля формы token или из заголовка Authorization.
// Проверенный токен сохраняется в зашифрованном cookie.
func (h *SessionHandler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token := strings.TrimSpace(r.FormValue("token"))
	if token == "" {
		token, _ = apimiddleware.BearerToken(r)
	}
	if token == "" {
		h.renderLogin(w, r, http.StatusUnauthorized, i18n.T(ctx, "session.invalid"))
		return
	}

	identity, err := h.verifier.Verify(ctx, token)
	if err != nil {
		h.logger.Info("Вход отклонён", slog.String("error", err.Error()))
		h.renderLogin(w, r, http.StatusUnauthorized, i18n.T(ctx, "session.invalid"))
		return
	}

	session := auth.NewSessionData(token, identity.Subject, identity.Username, identity.Email, sessionTTL)
	if err := h.sessionManager.SetSessionCookie(w, session); err != nil {
		h.logger.Error("Ошибка сохранения сессии",
			slog.String("user_id", identity.Subject),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Внутренняя ошибка сервера", http.StatusInternalServerError)
		return
	}

	h.logger.Info("Пользователь вошёл", slog.String("user_id", identity.Subject))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleLogout — POST /session/logout. Удаляет cookie сессии.
func (h *SessionHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if identity := uimiddleware.IdentityFromContext(r.Context()); identity != nil {
		h.logger.Info("Пользователь вышел", slog.String("user_id", identity.Subject))
	}
	h.sessionManager.ClearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *SessionHandler) renderLogin(w http.ResponseWriter, r *http.Request, status int, msg string) {
	layout := layoutData(r.Context(), h.profiles, "session.title", "")
	render(w, r, h.logger, status, pages.Layout(layout, pages.Login(msg)))
}
