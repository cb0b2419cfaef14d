// kpis.go — обработчики каталога KPI.
// Чтение публичное, перезагрузка ресурса доступна только администраторам.
package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/bigkaa/ecoportal/internal/api/openapi"
	"github.com/bigkaa/ecoportal/internal/domain/kpi"
	"github.com/bigkaa/ecoportal/internal/domain/model"
)

// ListKPIs — GET /api/v1/kpis.
// Без фильтра возвращает все записи в исходном порядке.
func (h *APIHandler) ListKPIs(w http.ResponseWriter, r *http.Request, params openapi.ListKPIsParams) {
	var records []model.KPIRecord
	var dimension *string
	if params.Dimension != nil && strings.TrimSpace(*params.Dimension) != "" {
		d := strings.TrimSpace(*params.Dimension)
		dimension = &d
		records = h.kpis.ByDimension(r.Context(), d)
	} else {
		records = h.kpis.Dataset(r.Context()).Records
	}

	writeJSON(w, http.StatusOK, openapi.KPIList{
		Items:     toAPIRecords(records),
		Total:     len(records),
		Dimension: dimension,
		Source:    h.kpis.SourceName(),
	})
}

// ListDimensions — GET /api/v1/kpis/dimensions.
func (h *APIHandler) ListDimensions(w http.ResponseWriter, r *http.Request) {
	dims := h.kpis.Dimensions(r.Context())
	items := make([]openapi.Dimension, 0, len(dims))
	for _, d := range dims {
		items = append(items, openapi.Dimension{Name: d.Name, Count: d.Count})
	}
	writeJSON(w, http.StatusOK, openapi.DimensionList{Items: items})
}

// ReloadKPIs — POST /api/v1/kpis/reload. Сбрасывает кэш и загружает ресурс заново.
func (h *APIHandler) ReloadKPIs(w http.ResponseWriter, r *http.Request) {
	grant, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}

	h.kpis.Invalidate()
	ds := h.kpis.Dataset(r.Context())

	h.logger.Info("Ресурс KPI перезагружен",
		slog.String("actor", grant.Actor().Subject),
		slog.Int("records", len(ds.Records)),
		slog.Int("dropped", ds.Dropped),
	)
	writeJSON(w, http.StatusOK, openapi.ReloadResult{
		Source:     h.kpis.SourceName(),
		Records:    len(ds.Records),
		Dimensions: len(ds.Dimensions),
		Dropped:    ds.Dropped,
	})
}

func toAPIRecords(records []model.KPIRecord) []openapi.KPIRecord {
	items := make([]openapi.KPIRecord, 0, len(records))
	for _, rec := range records {
		items = append(items, openapi.KPIRecord{
			Dimension:      rec.Dimension,
			Subdimension:   rec.Subdimension,
			Indicator:      rec.Indicator,
			Status:         rec.Status,
			Description:    rec.Description,
			Formula:        rec.Formula,
			Data:           rec.Data,
			Source:         rec.Source,
			Importance:     rec.Importance,
			Frequency:      rec.Frequency,
			SourceDetail:   rec.SourceDetail,
			Bibliography:   rec.Bibliography,
			ImportanceTier: string(kpi.ClassifyImportance(rec.Importance)),
			StatusTier:     string(kpi.ClassifyStatus(rec.Status)),
		})
	}
	return items
}
