// profiles.go — обработчики профилей: проверка доступа, собственный профиль
// и административные операции над чужими профилями.
package handlers

import (
	"net/http"

	"github.com/google/uuid"
	openapi_types "github.com/oapi-codegen/runtime/types"

	apierrors "github.com/bigkaa/ecoportal/internal/api/errors"
	"github.com/bigkaa/ecoportal/internal/api/middleware"
	"github.com/bigkaa/ecoportal/internal/api/openapi"
	"github.com/bigkaa/ecoportal/internal/domain/model"
	"github.com/bigkaa/ecoportal/internal/service"
)

// GetAccess — GET /api/v1/access. Решение доступа для вызывающего.
// Всегда 200: pending, unauthorized или authorized в теле.
func (h *APIHandler) GetAccess(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	if identity == nil {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return
	}

	decision, _ := h.profiles.ResolveAccess(r.Context(), identity)
	writeJSON(w, http.StatusOK, openapi.AccessResult{
		Decision: string(decision),
		Subject:  identity.Subject,
		Email:    toEmail(identity.Email),
	})
}

// GetMyProfile — GET /api/v1/profile.
func (h *APIHandler) GetMyProfile(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	p, err := h.profiles.MyProfile(r.Context(), identity)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAPIProfile(p, identity.Subject))
}

// RegisterProfile — POST /api/v1/profile. Новый профиль создаётся неактивным с ролью user.
func (h *APIHandler) RegisterProfile(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())

	var body openapi.RegisterProfileRequest
	if err := decodeJSON(r, &body); err != nil {
		apierrors.ValidationError(w, "Некорректное тело запроса: "+err.Error())
		return
	}

	p, err := h.profiles.Register(r.Context(), identity, service.RegisterInput{
		FirstName:    deref(body.FirstName),
		LastName:     deref(body.LastName),
		Organization: deref(body.Organization),
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAPIProfile(p, identity.Subject))
}

// ListProfiles — GET /api/v1/admin/profiles.
func (h *APIHandler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	grant, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}

	profiles, err := h.profiles.ListProfiles(r.Context(), grant)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	items := make([]openapi.Profile, 0, len(profiles))
	for _, p := range profiles {
		items = append(items, toAPIProfile(p, grant.Actor().Subject))
	}
	stats := service.ComputeStats(profiles)
	writeJSON(w, http.StatusOK, openapi.ProfileList{
		Items: items,
		Stats: openapi.ProfileStats{
			Total:   stats.Total,
			Active:  stats.Active,
			Pending: stats.Pending,
			Admins:  stats.Admins,
		},
	})
}

// ToggleProfileActive — POST /api/v1/admin/profiles/{userID}/toggle-active.
// Тело содержит значение active, которое видел администратор; записывается обратное.
func (h *APIHandler) ToggleProfileActive(w http.ResponseWriter, r *http.Request, userID string) {
	grant, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}

	var body openapi.ToggleActiveRequest
	if err := decodeJSON(r, &body); err != nil {
		apierrors.ValidationError(w, "Некорректное тело запроса: "+err.Error())
		return
	}

	p, err := h.profiles.ToggleActive(r.Context(), grant, userID, body.Active)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAPIProfile(p, grant.Actor().Subject))
}

// ChangeProfileRole — PUT /api/v1/admin/profiles/{userID}/role.
func (h *APIHandler) ChangeProfileRole(w http.ResponseWriter, r *http.Request, userID string) {
	grant, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}

	var body openapi.ChangeRoleRequest
	if err := decodeJSON(r, &body); err != nil {
		apierrors.ValidationError(w, "Некорректное тело запроса: "+err.Error())
		return
	}

	p, err := h.profiles.ChangeRole(r.Context(), grant, userID, body.Role)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAPIProfile(p, grant.Actor().Subject))
}

// toAPIProfile конвертирует профиль в API-модель.
// actorSubject — sub вызывающего, для признака self.
func toAPIProfile(p *model.Profile, actorSubject string) openapi.Profile {
	id, err := uuid.Parse(p.ID)
	if err != nil {
		id = uuid.Nil
	}
	out := openapi.Profile{
		Id:           id,
		UserId:       p.UserID,
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		Organization: p.Organization,
		Role:         p.Role,
		Active:       p.Active,
		CreatedAt:    p.CreatedAt,
	}
	if name := p.FullName(); name != "" {
		out.FullName = &name
	}
	if p.UserID == actorSubject {
		self := true
		out.Self = &self
	}
	return out
}

// toEmail возвращает email, только если он сериализуется как корректный адрес.
func toEmail(s string) *openapi_types.Email {
	if s == "" {
		return nil
	}
	e := openapi_types.Email(s)
	if _, err := e.MarshalJSON(); err != nil {
		return nil
	}
	return &e
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
