package openapi

import (
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"
)

// ErrorDetail — тело ошибки.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error — ответ с ошибкой.
type Error struct {
	Error ErrorDetail `json:"error"`
}

// KPIRecord — запись KPI с вычисленными уровнями для отображения.
type KPIRecord struct {
	Dimension      string `json:"dimension"`
	Subdimension   string `json:"subdimension"`
	Indicator      string `json:"indicator"`
	Status         string `json:"status"`
	Description    string `json:"description"`
	Formula        string `json:"formula"`
	Data           string `json:"data"`
	Source         string `json:"source"`
	Importance     string `json:"importance"`
	Frequency      string `json:"frequency"`
	SourceDetail   string `json:"sourceDetail"`
	Bibliography   string `json:"bibliography"`
	ImportanceTier string `json:"importanceTier"`
	StatusTier     string `json:"statusTier"`
}

// KPIList — список записей KPI.
type KPIList struct {
	Items     []KPIRecord `json:"items"`
	Total     int         `json:"total"`
	Dimension *string     `json:"dimension,omitempty"`
	Source    string      `json:"source"`
}

// ListKPIsParams — параметры GET /api/v1/kpis.
type ListKPIsParams struct {
	// Dimension — фильтр по измерению (точное совпадение)
	Dimension *string `form:"dimension,omitempty" json:"dimension,omitempty"`
}

// Dimension — измерение с количеством записей.
type Dimension struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// DimensionList — список измерений.
type DimensionList struct {
	Items []Dimension `json:"items"`
}

// ReloadResult — результат перезагрузки ресурса KPI.
type ReloadResult struct {
	Source     string `json:"source"`
	Records    int    `json:"records"`
	Dimensions int    `json:"dimensions"`
	Dropped    int    `json:"dropped"`
}

// AccessResult — решение проверки доступа для вызывающего.
type AccessResult struct {
	Decision string               `json:"decision"`
	Subject  string               `json:"subject"`
	Email    *openapi_types.Email `json:"email,omitempty"`
}

// Profile — профиль пользователя.
type Profile struct {
	Id           openapi_types.UUID `json:"id"`
	UserId       string             `json:"userId"`
	FirstName    *string            `json:"firstName,omitempty"`
	LastName     *string            `json:"lastName,omitempty"`
	FullName     *string            `json:"fullName,omitempty"`
	Organization *string            `json:"organization,omitempty"`
	Role         string             `json:"role"`
	Active       bool               `json:"active"`
	CreatedAt    time.Time          `json:"createdAt"`
	// Self — профиль принадлежит вызывающему (изменять нельзя)
	Self *bool `json:"self,omitempty"`
}

// ProfileStats — счётчики профилей.
type ProfileStats struct {
	Total   int `json:"total"`
	Active  int `json:"active"`
	Pending int `json:"pending"`
	Admins  int `json:"admins"`
}

// ProfileList — список профилей со счётчиками.
type ProfileList struct {
	Items []Profile    `json:"items"`
	Stats ProfileStats `json:"stats"`
}

// RegisterProfileRequest — тело POST /api/v1/profile.
type RegisterProfileRequest struct {
	FirstName    *string `json:"firstName,omitempty"`
	LastName     *string `json:"lastName,omitempty"`
	Organization *string `json:"organization,omitempty"`
}

// ToggleActiveRequest — тело POST .../toggle-active.
type ToggleActiveRequest struct {
	// Active — текущее значение, которое видел администратор
	Active bool `json:"active"`
}

// ChangeRoleRequest — тело PUT .../role.
type ChangeRoleRequest struct {
	Role string `json:"role"`
}
