// profiles.go — сервис профилей: проверка доступа и администрирование.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/ecoportal/internal/domain/access"
	"github.com/bigkaa/ecoportal/internal/domain/model"
	"github.com/bigkaa/ecoportal/internal/repository"
)

var (
	accessDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ep_access_decisions_total",
		Help: "Количество решений проверки доступа по результату.",
	}, []string{"decision"})
	profileMutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ep_profile_mutations_total",
		Help: "Количество изменений профилей по операции и результату.",
	}, []string{"operation", "result"})
)

// RegisterInput — данные для регистрации собственного профиля.
type RegisterInput struct {
	FirstName    string
	LastName     string
	Organization string
}

// ProfileService — единая точка получения профиля для идентичности
// и административных операций над профилями.
type ProfileService struct {
	repo   repository.ProfileRepository
	gate   access.Gate
	logger *slog.Logger
}

// NewProfileService создаёт сервис профилей.
func NewProfileService(repo repository.ProfileRepository, logger *slog.Logger) *ProfileService {
	return &ProfileService{
		repo:   repo,
		logger: logger.With(slog.String("component", "profile_service")),
	}
}

// ResolveAccess загружает профиль идентичности и вычисляет решение.
// Ошибка чтения хранилища оставляет профиль незагруженным (pending).
func (s *ProfileService) ResolveAccess(ctx context.Context, identity *access.Identity) (access.Decision, *access.Grant) {
	decision, grant := s.gate.Evaluate(identity, s.lookup(ctx, identity))
	accessDecisionsTotal.WithLabelValues(string(decision)).Inc()
	return decision, grant
}

func (s *ProfileService) lookup(ctx context.Context, identity *access.Identity) access.ProfileLookup {
	if identity == nil || identity.Subject == "" {
		return access.NotLoaded()
	}
	p, err := s.repo.GetByUserID(ctx, identity.Subject)
	switch {
	case err == nil:
		return access.Found(p)
	case errors.Is(err, repository.ErrNotFound):
		return access.NotFound()
	default:
		s.logger.Warn("Профиль не загружен, решение отложено",
			slog.String("user_id", identity.Subject),
			slog.String("error", err.Error()),
		)
		return access.NotLoaded()
	}
}

// CurrentRole возвращает роль идентичности или пустую строку, если профиля нет.
func (s *ProfileService) CurrentRole(ctx context.Context, identity *access.Identity) (string, error) {
	if identity == nil || identity.Subject == "" {
		return "", ErrUnauthenticated
	}
	role, err := s.repo.GetRole(ctx, identity.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("получение роли: %w", err)
	}
	return role, nil
}

// MyProfile возвращает профиль идентичности.
func (s *ProfileService) MyProfile(ctx context.Context, identity *access.Identity) (*model.Profile, error) {
	if identity == nil || identity.Subject == "" {
		return nil, ErrUnauthenticated
	}
	p, err := s.repo.GetByUserID(ctx, identity.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение профиля: %w", err)
	}
	return p, nil
}

// Register создаёт профиль идентичности: роль user, не активен.
// Повторная регистрация возвращает ErrConflict.
func (s *ProfileService) Register(ctx context.Context, identity *access.Identity, in RegisterInput) (*model.Profile, error) {
	if identity == nil || identity.Subject == "" {
		return nil, ErrUnauthenticated
	}

	p := &model.Profile{
		UserID:       identity.Subject,
		FirstName:    optional(in.FirstName),
		LastName:     optional(in.LastName),
		Organization: optional(in.Organization),
		Role:         model.RoleUser,
		Active:       false,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("регистрация профиля: %w", err)
	}

	s.logger.Info("Профиль зарегистрирован", slog.String("user_id", p.UserID))
	return p, nil
}

// ListProfiles возвращает все профили, новые первыми.
func (s *ProfileService) ListProfiles(ctx context.Context, grant *access.Grant) ([]*model.Profile, error) {
	if grant == nil {
		return nil, ErrForbidden
	}
	profiles, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("Ошибка загрузки профилей",
			slog.String("actor", grant.Actor().Subject),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: %w", ErrLoadProfiles, err)
	}
	return profiles, nil
}

// ToggleActive записывает active = !currentActive для профиля targetUserID.
// currentActive — значение, которое видел администратор.
// Возвращается профиль в том виде, в каком его сохранило хранилище.
func (s *ProfileService) ToggleActive(ctx context.Context, grant *access.Grant, targetUserID string, currentActive bool) (*model.Profile, error) {
	if err := s.checkMutation(grant, targetUserID); err != nil {
		profileMutationsTotal.WithLabelValues("toggle_active", "rejected").Inc()
		return nil, err
	}

	p, err := s.repo.SetActive(ctx, targetUserID, !currentActive)
	if err != nil {
		profileMutationsTotal.WithLabelValues("toggle_active", "error").Inc()
		s.logger.Error("Ошибка изменения активности профиля",
			slog.String("actor", grant.Actor().Subject),
			slog.String("user_id", targetUserID),
			slog.String("error", err.Error()),
		)
		return nil, wrapStoreError(ErrUpdateStatus, err)
	}

	profileMutationsTotal.WithLabelValues("toggle_active", "ok").Inc()
	s.logger.Info("Активность профиля изменена",
		slog.String("actor", grant.Actor().Subject),
		slog.String("user_id", targetUserID),
		slog.Bool("active", p.Active),
	)
	return p, nil
}

// ChangeRole устанавливает роль профиля targetUserID.
func (s *ProfileService) ChangeRole(ctx context.Context, grant *access.Grant, targetUserID, role string) (*model.Profile, error) {
	if err := s.checkMutation(grant, targetUserID); err != nil {
		profileMutationsTotal.WithLabelValues("change_role", "rejected").Inc()
		return nil, err
	}
	if !access.ValidRole(role) {
		profileMutationsTotal.WithLabelValues("change_role", "rejected").Inc()
		return nil, ErrInvalidRole
	}

	p, err := s.repo.SetRole(ctx, targetUserID, role)
	if err != nil {
		profileMutationsTotal.WithLabelValues("change_role", "error").Inc()
		s.logger.Error("Ошибка изменения роли профиля",
			slog.String("actor", grant.Actor().Subject),
			slog.String("user_id", targetUserID),
			slog.String("role", role),
			slog.String("error", err.Error()),
		)
		return nil, wrapStoreError(ErrUpdateRole, err)
	}

	profileMutationsTotal.WithLabelValues("change_role", "ok").Inc()
	s.logger.Info("Роль профиля изменена",
		slog.String("actor", grant.Actor().Subject),
		slog.String("user_id", targetUserID),
		slog.String("role", p.Role),
	)
	return p, nil
}

// BootstrapAdmin назначает userID активным администратором.
// Вызывается при старте, если задан EP_BOOTSTRAP_ADMIN.
func (s *ProfileService) BootstrapAdmin(ctx context.Context, userID string) error {
	p, err := s.repo.EnsureAdmin(ctx, userID)
	if err != nil {
		return err
	}
	s.logger.Info("Начальный администратор назначен", slog.String("user_id", p.UserID))
	return nil
}

func (s *ProfileService) checkMutation(grant *access.Grant, targetUserID string) error {
	if grant == nil {
		return ErrForbidden
	}
	if strings.TrimSpace(targetUserID) == "" {
		return fmt.Errorf("%w: пустой идентификатор профиля", ErrValidation)
	}
	if !access.CanModify(grant, targetUserID) {
		return ErrSelfModification
	}
	return nil
}

// wrapStoreError оборачивает ошибку хранилища в фиксированную ошибку операции.
// Отсутствие строки дополнительно помечается ErrNotFound.
func wrapStoreError(op error, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%w: %w", op, err)
}

// ComputeStats считает карточки панели по списку профилей.
func ComputeStats(profiles []*model.Profile) model.ProfileStats {
	stats := model.ProfileStats{Total: len(profiles)}
	for _, p := range profiles {
		if p.Active {
			stats.Active++
		} else {
			stats.Pending++
		}
		if p.IsAdmin() {
			stats.Admins++
		}
	}
	return stats
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
