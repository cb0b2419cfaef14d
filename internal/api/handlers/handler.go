// handler.go — основной обработчик API, реализующий openapi.ServerInterface.
// Объединяет доменные обработчики и делегирует запросы в сервисный слой.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/ecoportal/internal/api/errors"
	"github.com/bigkaa/ecoportal/internal/api/middleware"
	"github.com/bigkaa/ecoportal/internal/api/openapi"
	"github.com/bigkaa/ecoportal/internal/domain/access"
	"github.com/bigkaa/ecoportal/internal/service"
)

var _ openapi.ServerInterface = (*APIHandler)(nil)

// APIHandler — основной обработчик API портала.
type APIHandler struct {
	health   *HealthHandler
	kpis     *service.KPIService
	profiles *service.ProfileService
	logger   *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	health *HealthHandler,
	kpis *service.KPIService,
	profiles *service.ProfileService,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:   health,
		kpis:     kpis,
		profiles: profiles,
		logger:   logger.With(slog.String("component", "api_handler")),
	}
}

// HealthLive — liveness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики (делегируется в HealthHandler).
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// requireAdmin вычисляет решение доступа для вызывающего.
// Возвращает grant только для активного администратора, в остальных
// случаях ответ уже записан.
func (h *APIHandler) requireAdmin(w http.ResponseWriter, r *http.Request) (*access.Grant, bool) {
	identity := middleware.IdentityFromContext(r.Context())
	if identity == nil {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return nil, false
	}

	decision, grant := h.profiles.ResolveAccess(r.Context(), identity)
	switch decision {
	case access.Authorized:
		return grant, true
	case access.Pending:
		apierrors.AccessPending(w, "Профиль ещё не загружен, повторите запрос", apierrors.DefaultRetryAfter)
	default:
		apierrors.Forbidden(w, "Доступ разрешён только активным администраторам")
	}
	return nil, false
}

// writeServiceError переводит ошибку сервисного слоя в HTTP-ответ.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		apierrors.Unauthorized(w, "Требуется аутентификация")
	case errors.Is(err, service.ErrForbidden):
		apierrors.Forbidden(w, "Доступ разрешён только активным администраторам")
	case errors.Is(err, service.ErrSelfModification):
		apierrors.SelfModification(w, service.ErrSelfModification.Error())
	case errors.Is(err, service.ErrInvalidRole):
		apierrors.InvalidRole(w, service.ErrInvalidRole.Error())
	case errors.Is(err, service.ErrValidation):
		apierrors.ValidationError(w, err.Error())
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, service.ErrNotFound.Error())
	case errors.Is(err, service.ErrConflict):
		apierrors.Conflict(w, service.ErrConflict.Error())
	case errors.Is(err, service.ErrLoadProfiles):
		apierrors.StoreUnavailable(w, service.ErrLoadProfiles.Error())
	case errors.Is(err, service.ErrUpdateStatus):
		apierrors.StoreUnavailable(w, service.ErrUpdateStatus.Error())
	case errors.Is(err, service.ErrUpdateRole):
		apierrors.StoreUnavailable(w, service.ErrUpdateRole.Error())
	default:
		h.logger.Error("Необработанная ошибка сервиса", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Внутренняя ошибка")
	}
}

// RequestErrorHandler — обработчик ошибок разбора и валидации запроса.
func RequestErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	apierrors.ValidationError(w, openapi.ValidationMessage(err))
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// decodeJSON читает тело запроса, неизвестные поля отклоняются.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
