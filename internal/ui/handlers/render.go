// Пакет handlers — HTTP-обработчики UI портала.
package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"

	"github.com/bigkaa/ecoportal/internal/domain/access"
	"github.com/bigkaa/ecoportal/internal/domain/model"
	"github.com/bigkaa/ecoportal/internal/service"
	uimiddleware "github.com/bigkaa/ecoportal/internal/ui/middleware"
	"github.com/bigkaa/ecoportal/internal/ui/pages"
)

// layoutData собирает данные каркаса для текущего пользователя.
// Ссылка на администрирование показывается только при роли admin.
func layoutData(ctx context.Context, profiles *service.ProfileService, title, active string) pages.LayoutData {
	data := pages.LayoutData{Title: title, Active: active}

	identity := uimiddleware.IdentityFromContext(ctx)
	if identity == nil {
		return data
	}
	data.SignedIn = true
	data.Username = displayName(identity)

	role, err := profiles.CurrentRole(ctx, identity)
	data.ShowAdmin = err == nil && role == model.RoleAdmin
	return data
}

func displayName(identity *access.Identity) string {
	switch {
	case identity.Username != "":
		return identity.Username
	case identity.Email != "":
		return identity.Email
	default:
		return identity.Subject
	}
}

// render пишет HTML-ответ с указанным статусом.
func render(w http.ResponseWriter, r *http.Request, logger *slog.Logger, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		logger.Error("Ошибка рендеринга страницы",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
}
