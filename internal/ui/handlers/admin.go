// admin.go — страница администрирования профилей и HTMX-партиалы таблицы.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/ecoportal/internal/domain/access"
	"github.com/bigkaa/ecoportal/internal/domain/model"
	"github.com/bigkaa/ecoportal/internal/service"
	"github.com/bigkaa/ecoportal/internal/ui/i18n"
	uimiddleware "github.com/bigkaa/ecoportal/internal/ui/middleware"
	"github.com/bigkaa/ecoportal/internal/ui/pages"
)

// pendingRefreshSeconds — период автообновления страницы ожидания.
const pendingRefreshSeconds = 2

// AdminHandler — обработчик страницы «Управление пользователями».
type AdminHandler struct {
	profiles *service.ProfileService
	logger   *slog.Logger
}

// NewAdminHandler создаёт новый AdminHandler.
func NewAdminHandler(profiles *service.ProfileService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		profiles: profiles,
		logger:   logger.With(slog.String("component", "ui.admin")),
	}
}

// HandleAdmin обрабатывает GET /admin.
// pending — страница ожидания с автообновлением,
// unauthorized — редирект на главную, authorized — таблица профилей.
func (h *AdminHandler) HandleAdmin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	decision, grant := h.profiles.ResolveAccess(ctx, uimiddleware.IdentityFromContext(ctx))
	layout := layoutData(ctx, h.profiles, "admin.title", pages.NavAdmin)

	switch decision {
	case access.Pending:
		layout.Title = "waiting.title"
		layout.RefreshSeconds = pendingRefreshSeconds
		render(w, r, h.logger, http.StatusOK, pages.Layout(layout, pages.Waiting()))
		return
	case access.Unauthorized:
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	data, err := h.tableData(ctx, grant)
	if err != nil {
		body := templ.Join(
			pages.Notification(pages.NoticeError, h.errorMessage(ctx, err)),
			pages.Admin(pages.ProfilesTableData{}),
		)
		render(w, r, h.logger, http.StatusOK, pages.Layout(layout, body))
		return
	}
	render(w, r, h.logger, http.StatusOK, pages.Layout(layout, pages.Admin(data)))
}

// HandleProfilesPartial обрабатывает GET /admin/partials/profiles.
func (h *AdminHandler) HandleProfilesPartial(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	grant, ok := h.requireGrant(w, r)
	if !ok {
		return
	}
	data, err := h.tableData(ctx, grant)
	if err != nil {
		h.renderFailure(w, r, err)
		return
	}
	render(w, r, h.logger, http.StatusOK, pages.ProfilesTable(data))
}

// HandleToggleActive обрабатывает POST /admin/partials/profiles/{userID}/toggle-active.
// Поле active содержит значение, которое видел администратор.
func (h *AdminHandler) HandleToggleActive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	grant, ok := h.requireGrant(w, r)
	if !ok {
		return
	}
	userID, err := targetUserID(r)
	if err != nil {
		h.renderFailure(w, r, service.ErrValidation)
		return
	}
	current, err := strconv.ParseBool(r.FormValue("active"))
	if err != nil {
		h.renderFailure(w, r, service.ErrValidation)
		return
	}

	p, err := h.profiles.ToggleActive(ctx, grant, userID, current)
	if err != nil {
		h.renderFailure(w, r, err)
		return
	}
	h.renderUpdated(w, r, grant, p, i18n.Tf(ctx, "notify.status_updated", profileLabel(p)))
}

// HandleChangeRole обрабатывает POST /admin/partials/profiles/{userID}/role.
func (h *AdminHandler) HandleChangeRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	grant, ok := h.requireGrant(w, r)
	if !ok {
		return
	}
	userID, err := targetUserID(r)
	if err != nil {
		h.renderFailure(w, r, service.ErrValidation)
		return
	}

	p, err := h.profiles.ChangeRole(ctx, grant, userID, r.FormValue("role"))
	if err != nil {
		h.renderFailure(w, r, err)
		return
	}
	h.renderUpdated(w, r, grant, p, i18n.Tf(ctx, "notify.role_updated", profileLabel(p)))
}

// requireGrant проверяет доступ для партиалов. Решение вычисляется
// заново на каждом запросе, страница могла устареть.
func (h *AdminHandler) requireGrant(w http.ResponseWriter, r *http.Request) (*access.Grant, bool) {
	decision, grant := h.profiles.ResolveAccess(r.Context(), uimiddleware.IdentityFromContext(r.Context()))
	switch decision {
	case access.Authorized:
		return grant, true
	case access.Pending:
		h.renderNotice(w, r, i18n.T(r.Context(), "error.pending"))
	default:
		h.renderNotice(w, r, i18n.T(r.Context(), "error.forbidden"))
	}
	return nil, false
}

func (h *AdminHandler) tableData(ctx context.Context, grant *access.Grant) (pages.ProfilesTableData, error) {
	profiles, err := h.profiles.ListProfiles(ctx, grant)
	if err != nil {
		return pages.ProfilesTableData{}, err
	}

	actor := grant.Actor().Subject
	data := pages.ProfilesTableData{
		Stats: service.ComputeStats(profiles),
		Rows:  make([]pages.ProfileRow, 0, len(profiles)),
	}
	for _, p := range profiles {
		data.Rows = append(data.Rows, profileRow(p, actor))
	}
	return data, nil
}

func profileRow(p *model.Profile, actor string) pages.ProfileRow {
	row := pages.ProfileRow{
		ID:        p.ID,
		UserID:    p.UserID,
		Name:      p.FullName(),
		Role:      p.Role,
		Active:    p.Active,
		CreatedAt: p.CreatedAt,
		Self:      p.UserID == actor,
	}
	if p.Organization != nil {
		row.Organization = *p.Organization
	}
	return row
}

// renderUpdated отдаёт обновлённую таблицу и уведомление об успехе (out-of-band).
// Запись уже зафиксирована: если перечитать список не удалось,
// заменяется только изменённая строка, остальная таблица не трогается.
func (h *AdminHandler) renderUpdated(w http.ResponseWriter, r *http.Request, grant *access.Grant, p *model.Profile, msg string) {
	data, err := h.tableData(r.Context(), grant)
	if err != nil {
		h.logger.Warn("Список профилей не перечитан после изменения",
			slog.String("user_id", p.UserID),
			slog.String("error", err.Error()),
		)
		w.Header().Set("HX-Reswap", "none")
		render(w, r, h.logger, http.StatusOK, templ.Join(
			pages.ProfileRowOOB(profileRow(p, grant.Actor().Subject)),
			pages.NotificationOOB(pages.NoticeSuccess, msg),
		))
		return
	}
	render(w, r, h.logger, http.StatusOK, templ.Join(
		pages.ProfilesTable(data),
		pages.NotificationOOB(pages.NoticeSuccess, msg),
	))
}

func (h *AdminHandler) renderFailure(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Warn("Операция над профилями не выполнена",
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	h.renderNotice(w, r, h.errorMessage(r.Context(), err))
}

// renderNotice перенаправляет ответ HTMX в область уведомлений.
// Статус 200: HTMX не подставляет тело ответов 4xx/5xx.
func (h *AdminHandler) renderNotice(w http.ResponseWriter, r *http.Request, msg string) {
	w.Header().Set("HX-Retarget", "#"+pages.NotificationsID)
	w.Header().Set("HX-Reswap", "innerHTML")
	render(w, r, h.logger, http.StatusOK, pages.Notification(pages.NoticeError, msg))
}

// errorMessage переводит ошибку сервиса в сообщение для пользователя.
func (h *AdminHandler) errorMessage(ctx context.Context, err error) string {
	key := "error.invalid_request"
	switch {
	case errors.Is(err, service.ErrSelfModification):
		key = "error.self"
	case errors.Is(err, service.ErrForbidden), errors.Is(err, service.ErrUnauthenticated):
		key = "error.forbidden"
	case errors.Is(err, service.ErrInvalidRole):
		key = "error.invalid_role"
	case errors.Is(err, service.ErrNotFound):
		key = "error.not_found"
	case errors.Is(err, service.ErrLoadProfiles):
		key = "error.load_users"
	case errors.Is(err, service.ErrUpdateStatus):
		key = "error.update_status"
	case errors.Is(err, service.ErrUpdateRole):
		key = "error.update_role"
	}
	return i18n.T(ctx, key)
}

// targetUserID извлекает идентификатор профиля из пути.
func targetUserID(r *http.Request) (string, error) {
	return url.PathUnescape(chi.URLParam(r, "userID"))
}

func profileLabel(p *model.Profile) string {
	if name := p.FullName(); name != "" {
		return name
	}
	return p.UserID
}
