// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import "errors"

var (
	// ErrNotFound — профиль не найден.
	ErrNotFound = errors.New("профиль не найден")
	// ErrConflict — профиль уже существует.
	ErrConflict = errors.New("профиль уже существует")
	// ErrForbidden — операция требует подтверждённого доступа администратора.
	ErrForbidden = errors.New("нет доступа администратора")
	// ErrUnauthenticated — нет идентичности.
	ErrUnauthenticated = errors.New("идентичность не установлена")
	// ErrSelfModification — попытка изменить собственный профиль.
	ErrSelfModification = errors.New("изменение собственного профиля запрещено")
	// ErrInvalidRole — некорректная роль.
	ErrInvalidRole = errors.New("некорректная роль: допустимые значения admin, user")
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")

	// ErrLoadProfiles — не удалось загрузить список профилей.
	ErrLoadProfiles = errors.New("could not load users")
	// ErrUpdateStatus — не удалось изменить активность профиля.
	ErrUpdateStatus = errors.New("could not update status")
	// ErrUpdateRole — не удалось изменить роль профиля.
	ErrUpdateRole = errors.New("could not update role")
)
