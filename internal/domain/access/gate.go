// Пакет access определяет доступ к администрированию профилей.
//
// Решение вычисляется из двух входов: идентичности из проверенного токена
// и результата поиска профиля в хранилище. Состояний три: pending,
// unauthorized, authorized. Мутирующие операции требуют *Grant, который
// выдаётся только в состоянии authorized.
package access

import "github.com/bigkaa/ecoportal/internal/domain/model"

// Decision — результат проверки доступа.
type Decision string

const (
	// Pending — профиль ещё не загружен, решение отложено.
	Pending Decision = "pending"
	// Unauthorized — доступ запрещён.
	Unauthorized Decision = "unauthorized"
	// Authorized — активный администратор.
	Authorized Decision = "authorized"
)

// Identity — аутентифицированный субъект.
type Identity struct {
	// Subject — непрозрачный идентификатор (claim sub)
	Subject string
	// Email — опционально
	Email string
	// Username — preferred_username, если есть
	Username string
}

// ProfileLookup — результат поиска профиля для идентичности.
// Loaded == false означает, что поиск не завершён (или хранилище недоступно).
// Loaded == true и Profile == nil означает, что профиля нет.
type ProfileLookup struct {
	Loaded  bool
	Profile *model.Profile
}

// Found — профиль найден.
func Found(p *model.Profile) ProfileLookup {
	return ProfileLookup{Loaded: true, Profile: p}
}

// NotFound — поиск завершён, профиля нет.
func NotFound() ProfileLookup {
	return ProfileLookup{Loaded: true}
}

// NotLoaded — поиск ещё не завершён.
func NotLoaded() ProfileLookup {
	return ProfileLookup{}
}

// Decide вычисляет решение. Функция чистая, порядок проверок важен:
// отсутствие идентичности перекрывает любое состояние профиля.
func Decide(identity *Identity, lookup ProfileLookup) Decision {
	if identity == nil || identity.Subject == "" {
		return Unauthorized
	}
	if !lookup.Loaded {
		return Pending
	}
	p := lookup.Profile
	if p == nil {
		return Unauthorized
	}
	if p.Role == model.RoleAdmin && p.Active {
		return Authorized
	}
	return Unauthorized
}

// Grant — подтверждение доступа authorized. Создаётся только Gate.Evaluate,
// поэтому наличие ненулевого *Grant гарантирует, что решение было authorized.
type Grant struct {
	actor   Identity
	profile model.Profile
}

// Actor возвращает идентичность, получившую доступ.
func (g *Grant) Actor() Identity {
	return g.actor
}

// Profile возвращает профиль администратора на момент проверки.
func (g *Grant) Profile() model.Profile {
	return g.profile
}

// Gate вычисляет решение и выдаёт Grant.
type Gate struct{}

// Evaluate возвращает решение и, только для Authorized, ненулевой Grant.
func (Gate) Evaluate(identity *Identity, lookup ProfileLookup) (Decision, *Grant) {
	d := Decide(identity, lookup)
	if d != Authorized {
		return d, nil
	}
	return d, &Grant{actor: *identity, profile: *lookup.Profile}
}

// CanModify сообщает, может ли владелец grant изменять профиль targetUserID.
// Собственный профиль изменять нельзя: ни статус, ни роль.
func CanModify(grant *Grant, targetUserID string) bool {
	if grant == nil || targetUserID == "" {
		return false
	}
	return grant.actor.Subject != targetUserID
}

// ValidRole проверяет, является ли строка допустимой ролью.
func ValidRole(role string) bool {
	return role == model.RoleAdmin || role == model.RoleUser
}
