package model

import "time"

// Роли профиля.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Profile — профиль зарегистрированного пользователя с ролью и признаком активности.
// Хранится в таблице profiles, по одному на UserID.
type Profile struct {
	// ID — UUID записи
	ID string
	// UserID — идентификатор владельца (sub из токена провайдера идентичности)
	UserID string
	// FirstName — имя (может отсутствовать)
	FirstName *string
	// LastName — фамилия (может отсутствовать)
	LastName *string
	// Organization — организация (может отсутствовать)
	Organization *string
	// Role — роль (admin, user)
	Role string
	// Active — активирован ли профиль администратором
	Active bool
	// CreatedAt — время регистрации
	CreatedAt time.Time
}

// IsAdmin сообщает, имеет ли профиль роль admin.
func (p *Profile) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// FullName возвращает "Имя Фамилия" или пустую строку, если одно из полей не задано.
func (p *Profile) FullName() string {
	if p.FirstName == nil || p.LastName == nil || *p.FirstName == "" || *p.LastName == "" {
		return ""
	}
	return *p.FirstName + " " + *p.LastName
}

// ProfileStats — счётчики для карточек административной панели.
type ProfileStats struct {
	// Total — всего профилей
	Total int `json:"total"`
	// Active — активных профилей
	Active int `json:"active"`
	// Pending — неактивных профилей (ожидают активации)
	Pending int `json:"pending"`
	// Admins — профилей с ролью admin
	Admins int `json:"admins"`
}
