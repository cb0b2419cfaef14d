package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/ecoportal/internal/domain/model"
)

// ProfileRepository — операции над таблицей profiles.
type ProfileRepository interface {
	// List возвращает все профили, новые первыми.
	List(ctx context.Context) ([]*model.Profile, error)
	// GetByUserID возвращает профиль идентичности.
	GetByUserID(ctx context.Context, userID string) (*model.Profile, error)
	// GetRole возвращает только роль профиля.
	GetRole(ctx context.Context, userID string) (string, error)
	// Create создаёт профиль (роль и активность берутся из записи).
	Create(ctx context.Context, p *model.Profile) error
	// SetActive устанавливает активность и возвращает сохранённый профиль.
	SetActive(ctx context.Context, userID string, active bool) (*model.Profile, error)
	// SetRole устанавливает роль и возвращает сохранённый профиль.
	SetRole(ctx context.Context, userID string, role string) (*model.Profile, error)
	// EnsureAdmin создаёт или повышает профиль до активного администратора.
	EnsureAdmin(ctx context.Context, userID string) (*model.Profile, error)
}

type profileRepo struct {
	db DBTX
}

// NewProfileRepository создаёт репозиторий профилей.
func NewProfileRepository(db DBTX) ProfileRepository {
	return &profileRepo{db: db}
}

const profileColumns = `id, user_id, first_name, last_name, organization, role, active, created_at`

func scanProfile(row pgx.Row) (*model.Profile, error) {
	p := &model.Profile{}
	err := row.Scan(
		&p.ID, &p.UserID, &p.FirstName, &p.LastName, &p.Organization,
		&p.Role, &p.Active, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *profileRepo) List(ctx context.Context) ([]*model.Profile, error) {
	query := fmt.Sprintf(`SELECT %s FROM profiles ORDER BY created_at DESC`, profileColumns)

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка профилей: %w", err)
	}
	defer rows.Close()

	result := make([]*model.Profile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования профиля: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (r *profileRepo) GetByUserID(ctx context.Context, userID string) (*model.Profile, error) {
	query := fmt.Sprintf(`SELECT %s FROM profiles WHERE user_id = $1`, profileColumns)

	p, err := scanProfile(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения профиля: %w", err)
	}
	return p, nil
}

func (r *profileRepo) GetRole(ctx context.Context, userID string) (string, error) {
	var role string
	err := r.db.QueryRow(ctx, `SELECT role FROM profiles WHERE user_id = $1`, userID).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("ошибка получения роли: %w", err)
	}
	return role, nil
}

func (r *profileRepo) Create(ctx context.Context, p *model.Profile) error {
	query := `
		INSERT INTO profiles (user_id, first_name, last_name, organization, role, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		p.UserID, p.FirstName, p.LastName, p.Organization, p.Role, p.Active,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("ошибка создания профиля: %w", err)
	}
	return nil
}

// SetActive обновляет ровно одну строку по user_id.
// Если строки нет, возвращает ErrNotFound.
func (r *profileRepo) SetActive(ctx context.Context, userID string, active bool) (*model.Profile, error) {
	query := fmt.Sprintf(`UPDATE profiles SET active = $2 WHERE user_id = $1 RETURNING %s`, profileColumns)

	p, err := scanProfile(r.db.QueryRow(ctx, query, userID, active))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка обновления активности профиля: %w", err)
	}
	return p, nil
}

func (r *profileRepo) SetRole(ctx context.Context, userID string, role string) (*model.Profile, error) {
	query := fmt.Sprintf(`UPDATE profiles SET role = $2 WHERE user_id = $1 RETURNING %s`, profileColumns)

	p, err := scanProfile(r.db.QueryRow(ctx, query, userID, role))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка обновления роли профиля: %w", err)
	}
	return p, nil
}

func (r *profileRepo) EnsureAdmin(ctx context.Context, userID string) (*model.Profile, error) {
	query := fmt.Sprintf(`
		INSERT INTO profiles (user_id, role, active)
		VALUES ($1, 'admin', TRUE)
		ON CONFLICT (user_id) DO UPDATE SET role = 'admin', active = TRUE
		RETURNING %s`, profileColumns)

	p, err := scanProfile(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		return nil, fmt.Errorf("ошибка назначения администратора: %w", err)
	}
	return p, nil
}
