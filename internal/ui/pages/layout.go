package pages

import (
	"context"
	"strconv"

	"github.com/a-h/templ"

	"github.com/bigkaa/ecoportal/internal/ui/i18n"
)

// Разделы навигации.
const (
	NavKPIs  = "kpis"
	NavAdmin = "admin"
)

// htmxSrc — HTMX подключается с CDN, статика содержит только стили.
const htmxSrc = "https://unpkg.com/htmx.org@2.0.4/dist/htmx.min.js"

// LayoutData — общие данные каркаса страницы.
type LayoutData struct {
	// Title — заголовок вкладки браузера (ключ i18n)
	Title string
	// Active — активный раздел навигации
	Active string
	// SignedIn — есть проверенная сессия
	SignedIn bool
	// Username — имя для отображения в шапке
	Username string
	// ShowAdmin — показывать ссылку на администрирование
	ShowAdmin bool
	// RefreshSeconds — автообновление страницы (0 — выключено)
	RefreshSeconds int
}

// Layout — каркас страницы: шапка, навигация, область уведомлений и содержимое.
func Layout(data LayoutData, body templ.Component) templ.Component {
	return build(func(ctx context.Context, h *htmlWriter) {
		lang := i18n.LangFromContext(ctx)

		h.raw("<!DOCTYPE html>\n<html")
		h.attr("lang", lang)
		h.raw(`><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1">`)
		if data.RefreshSeconds > 0 {
			h.raw(`<meta http-equiv="refresh"`)
			h.attr("content", strconv.Itoa(data.RefreshSeconds))
			h.raw(">")
		}
		h.raw("<title>")
		h.text(i18n.T(ctx, data.Title) + " · " + i18n.T(ctx, "app.title"))
		h.raw(`</title><link rel="stylesheet" href="/static/css/portal.css"><script defer`)
		h.attr("src", htmxSrc)
		h.raw("></script></head><body>")

		h.raw(`<header class="topbar"><a class="brand" href="/">`)
		h.text(i18n.T(ctx, "app.title"))
		h.raw(`</a><nav>`)
		navLink(ctx, h, "/kpis", "nav.kpis", data.Active == NavKPIs)
		if data.ShowAdmin {
			navLink(ctx, h, "/admin", "nav.admin", data.Active == NavAdmin)
		}
		h.raw(`</nav><div class="session">`)
		languageSwitch(ctx, h, lang)
		if data.SignedIn {
			if data.Username != "" {
				h.raw(`<span class="user">`)
				h.text(data.Username)
				h.raw("</span>")
			}
			h.raw(`<form method="post" action="/session/logout"><button type="submit" class="link">`)
			h.text(i18n.T(ctx, "nav.logout"))
			h.raw("</button></form>")
		} else {
			h.raw(`<a href="/login">`)
			h.text(i18n.T(ctx, "nav.login"))
			h.raw("</a>")
		}
		h.raw(`</div></header>`)

		h.raw(`<div id="notifications" aria-live="polite"></div><main>`)
		h.component(ctx, body)
		h.raw("</main></body></html>")
	})
}

func navLink(ctx context.Context, h *htmlWriter, href, key string, active bool) {
	h.raw("<a")
	h.attr("href", href)
	if active {
		h.raw(` class="active" aria-current="page"`)
	}
	h.raw(">")
	h.text(i18n.T(ctx, key))
	h.raw("</a>")
}

func languageSwitch(ctx context.Context, h *htmlWriter, current string) {
	h.raw(`<form method="post" action="/set-language" class="lang"><label>`)
	h.text(i18n.T(ctx, "nav.language"))
	h.raw(` <select name="lang" onchange="this.form.submit()">`)
	for _, l := range i18n.Languages() {
		h.raw("<option")
		h.attr("value", l)
		if l == current {
			h.raw(" selected")
		}
		h.raw(">")
		h.text(l)
		h.raw("</option>")
	}
	h.raw("</select></label></form>")
}
