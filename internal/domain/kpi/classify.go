package kpi

import "strings"

// ImportanceTier — уровень важности индикатора для отображения.
type ImportanceTier string

// Уровни важности.
const (
	ImportanceHigh   ImportanceTier = "high"
	ImportanceMedium ImportanceTier = "medium"
	ImportanceLow    ImportanceTier = "low"
)

// StatusTier — уровень статуса индикатора для отображения.
type StatusTier string

// Уровни статуса.
const (
	StatusPositive StatusTier = "positive"
	StatusNeutral  StatusTier = "neutral"
)

// ClassifyImportance сопоставляет текст важности уровню по подстроке без учёта регистра.
// Проверки идут в порядке high → medium, всё остальное — low.
func ClassifyImportance(importance string) ImportanceTier {
	imp := strings.ToLower(importance)
	switch {
	case strings.Contains(imp, "alta"), strings.Contains(imp, "high"):
		return ImportanceHigh
	case strings.Contains(imp, "media"), strings.Contains(imp, "medium"):
		return ImportanceMedium
	default:
		return ImportanceLow
	}
}

// ClassifyStatus возвращает StatusPositive только для "ok" (без учёта регистра).
func ClassifyStatus(status string) StatusTier {
	if strings.EqualFold(status, "ok") {
		return StatusPositive
	}
	return StatusNeutral
}
