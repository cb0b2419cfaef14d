package pages

import (
	"context"

	"github.com/a-h/templ"

	"github.com/bigkaa/ecoportal/internal/ui/i18n"
)

// Виды уведомлений.
const (
	NoticeSuccess = "success"
	NoticeError   = "error"
)

// Waiting — страница ожидания, пока профиль не загружен.
// Каркас обновляет страницу сам (LayoutData.RefreshSeconds).
func Waiting() templ.Component {
	return build(func(ctx context.Context, h *htmlWriter) {
		h.raw(`<section class="waiting"><div class="spinner" aria-hidden="true"></div><h1>`)
		h.text(i18n.T(ctx, "waiting.title"))
		h.raw("</h1><p>")
		h.text(i18n.T(ctx, "waiting.message"))
		h.raw("</p></section>")
	})
}

// Notification — сообщение в области уведомлений.
func Notification(kind, message string) templ.Component {
	return build(func(_ context.Context, h *htmlWriter) {
		h.raw("<div")
		h.attr("class", "notice notice-"+kind)
		if kind == NoticeError {
			h.raw(` role="alert"`)
		} else {
			h.raw(` role="status"`)
		}
		h.raw(">")
		h.text(message)
		h.raw("</div>")
	})
}

// NotificationOOB — уведомление для out-of-band замены области уведомлений
// вместе с основным ответом HTMX.
func NotificationOOB(kind, message string) templ.Component {
	return build(func(ctx context.Context, h *htmlWriter) {
		h.raw("<div")
		h.attr("id", NotificationsID)
		h.raw(` hx-swap-oob="innerHTML">`)
		h.component(ctx, Notification(kind, message))
		h.raw("</div>")
	})
}

// Login — форма обмена токена провайдера идентичности на сессию.
func Login(errorMessage string) templ.Component {
	return build(func(ctx context.Context, h *htmlWriter) {
		h.raw(`<section class="login"><h1>`)
		h.text(i18n.T(ctx, "session.title"))
		h.raw("</h1>")
		if errorMessage != "" {
			h.component(ctx, Notification(NoticeError, errorMessage))
		}
		h.raw(`<form method="post" action="/session"><label for="token">`)
		h.text(i18n.T(ctx, "session.token"))
		h.raw(`</label><textarea id="token" name="token" rows="6" required autocomplete="off"></textarea><button type="submit">`)
		h.text(i18n.T(ctx, "session.submit"))
		h.raw("</button></form></section>")
	})
}
