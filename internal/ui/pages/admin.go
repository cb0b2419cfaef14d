package pages

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/a-h/templ"

	"github.com/bigkaa/ecoportal/internal/domain/model"
	"github.com/bigkaa/ecoportal/internal/ui/i18n"
)

// ProfilesTableID — id контейнера таблицы, цель HTMX-обновлений.
const ProfilesTableID = "profiles-table"

// NotificationsID — id области уведомлений в каркасе.
const NotificationsID = "notifications"

// ProfileRow — строка таблицы профилей.
type ProfileRow struct {
	// ID — идентификатор записи профиля, из него строится id строки
	ID           string
	UserID       string
	Name         string
	Organization string
	Role         string
	Active       bool
	CreatedAt    time.Time
	// Self — строка принадлежит действующему администратору, действий нет
	Self bool
}

// ProfilesTableData — счётчики и строки таблицы.
type ProfilesTableData struct {
	Stats model.ProfileStats
	Rows  []ProfileRow
}

// Admin — страница администрирования: заголовок и таблица профилей.
func Admin(data ProfilesTableData) templ.Component {
	return build(func(ctx context.Context, h *htmlWriter) {
		h.raw(`<section class="admin"><header class="section-head"><h1>`)
		h.text(i18n.T(ctx, "admin.title"))
		h.raw(`</h1><button type="button" class="secondary" hx-get="/admin/partials/profiles"`)
		h.attr("hx-target", "#"+ProfilesTableID)
		h.raw(` hx-swap="outerHTML">`)
		h.text(i18n.T(ctx, "admin.refresh"))
		h.raw("</button></header>")
		h.component(ctx, ProfilesTable(data))
		h.raw("</section>")
	})
}

// ProfilesTable — карточки счётчиков и таблица профилей (HTMX-партиал).
func ProfilesTable(data ProfilesTableData) templ.Component {
	return build(func(ctx context.Context, h *htmlWriter) {
		h.raw("<div")
		h.attr("id", ProfilesTableID)
		h.raw(`><div class="stats">`)
		statCard(ctx, h, "admin.stats.total", data.Stats.Total)
		statCard(ctx, h, "admin.stats.active", data.Stats.Active)
		statCard(ctx, h, "admin.stats.pending", data.Stats.Pending)
		statCard(ctx, h, "admin.stats.admins", data.Stats.Admins)
		h.raw("</div>")

		if len(data.Rows) == 0 {
			h.raw(`<p class="empty">`)
			h.text(i18n.T(ctx, "admin.empty"))
			h.raw("</p></div>")
			return
		}

		h.raw("<table><thead><tr>")
		for _, key := range []string{"admin.col.name", "admin.col.organization", "admin.col.role", "admin.col.status", "admin.col.created", "admin.col.actions"} {
			h.raw("<th>")
			h.text(i18n.T(ctx, key))
			h.raw("</th>")
		}
		h.raw("</tr></thead><tbody>")
		for _, row := range data.Rows {
			profileRow(ctx, h, row, false)
		}
		h.raw("</tbody></table></div>")
	})
}

// ProfileRowOOB — одна строка таблицы для out-of-band замены.
// HTMX требует обернуть элементы таблицы в template.
func ProfileRowOOB(row ProfileRow) templ.Component {
	return build(func(ctx context.Context, h *htmlWriter) {
		h.raw("<template>")
		profileRow(ctx, h, row, true)
		h.raw("</template>")
	})
}

// ProfileRowElementID возвращает id строки профиля.
func ProfileRowElementID(id string) string {
	return "profile-" + id
}

func statCard(ctx context.Context, h *htmlWriter, key string, value int) {
	h.raw(`<div class="card"><span class="value">`)
	h.text(strconv.Itoa(value))
	h.raw(`</span><span class="label">`)
	h.text(i18n.T(ctx, key))
	h.raw("</span></div>")
}

func profileRow(ctx context.Context, h *htmlWriter, row ProfileRow, oob bool) {
	h.raw("<tr")
	h.attr("id", ProfileRowElementID(row.ID))
	h.attr("data-user-id", row.UserID)
	if oob {
		h.raw(` hx-swap-oob="true"`)
	}
	h.raw("><td>")
	if row.Name != "" {
		h.text(row.Name)
	} else {
		h.raw(`<span class="muted">`)
		h.text(i18n.T(ctx, "admin.unnamed"))
		h.raw("</span>")
	}
	if row.Self {
		h.raw(` <span class="badge self">`)
		h.text(i18n.T(ctx, "admin.you"))
		h.raw("</span>")
	}
	h.raw("</td><td>")
	h.text(row.Organization)
	h.raw("</td><td>")
	badge(h, "role-"+row.Role, i18n.T(ctx, "admin.role."+row.Role))
	h.raw("</td><td>")
	if row.Active {
		badge(h, "status-positive", i18n.T(ctx, "admin.status.active"))
	} else {
		badge(h, "status-neutral", i18n.T(ctx, "admin.status.inactive"))
	}
	h.raw("</td><td>")
	h.raw("<time")
	h.attr("datetime", row.CreatedAt.UTC().Format(time.RFC3339))
	h.raw(">")
	h.text(row.CreatedAt.Format("2006-01-02"))
	h.raw("</time></td><td class=\"actions\">")
	if !row.Self {
		actions(ctx, h, row)
	}
	h.raw("</td></tr>")
}

// actions — кнопки переключения активности и роли.
// Форма отправляет значение, которое видит администратор.
func actions(ctx context.Context, h *htmlWriter, row ProfileRow) {
	base := "/admin/partials/profiles/" + url.PathEscape(row.UserID)

	toggleKey := "admin.action.activate"
	if row.Active {
		toggleKey = "admin.action.deactivate"
	}
	actionForm(ctx, h, base+"/toggle-active", "active", strconv.FormatBool(row.Active), toggleKey)

	nextRole, roleKey := model.RoleAdmin, "admin.action.make_admin"
	if row.Role == model.RoleAdmin {
		nextRole, roleKey = model.RoleUser, "admin.action.make_user"
	}
	actionForm(ctx, h, base+"/role", "role", nextRole, roleKey)
}

func actionForm(ctx context.Context, h *htmlWriter, action, name, value, labelKey string) {
	h.raw("<form")
	h.attr("hx-post", action)
	h.attr("hx-target", "#"+ProfilesTableID)
	h.raw(` hx-swap="outerHTML"><input type="hidden"`)
	h.attr("name", name)
	h.attr("value", value)
	h.raw(`><button type="submit">`)
	h.text(i18n.T(ctx, labelKey))
	h.raw("</button></form>")
}
