// Пакет model — доменные модели портала экосистемы.
package model

// KPIRecord — одна строка CSV-ресурса с описанием индикатора.
// Создаётся при разборе и после этого не изменяется.
type KPIRecord struct {
	// Dimension — измерение верхнего уровня (группа KPI)
	Dimension string `json:"dimension"`
	// Subdimension — поддимензия внутри измерения
	Subdimension string `json:"subdimension"`
	// Indicator — название индикатора
	Indicator string `json:"indicator"`
	// Status — состояние индикатора ("ok" или произвольный текст)
	Status string `json:"status"`
	// Description — описание индикатора
	Description string `json:"description"`
	// Formula — формула расчёта
	Formula string `json:"formula"`
	// Data — описание данных
	Data string `json:"data"`
	// Source — происхождение данных
	Source string `json:"source"`
	// Importance — важность (alta/media/baja, high/medium/low)
	Importance string `json:"importance"`
	// Frequency — периодичность обновления
	Frequency string `json:"frequency"`
	// SourceDetail — детальное описание источника
	SourceDetail string `json:"sourceDetail"`
	// Bibliography — библиография
	Bibliography string `json:"bibliography"`
}
