package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/bigkaa/ecoportal/internal/service"
	"github.com/bigkaa/ecoportal/internal/ui/pages"
)

// KPIPageHandler — обработчик страницы индикаторов.
type KPIPageHandler struct {
	kpis     *service.KPIService
	profiles *service.ProfileService
	logger   *slog.Logger
}

// NewKPIPageHandler создаёт новый KPIPageHandler.
func NewKPIPageHandler(kpis *service.KPIService, profiles *service.ProfileService, logger *slog.Logger) *KPIPageHandler {
	return &KPIPageHandler{
		kpis:     kpis,
		profiles: profiles,
		logger:   logger.With(slog.String("component", "ui.kpis")),
	}
}

// HandleKPIs обрабатывает GET / и GET /kpis.
// Измерение выбирается параметром dimension, по умолчанию первое.
// Страница доступна без входа.
func (h *KPIPageHandler) HandleKPIs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Вкладки и записи строятся по одному снимку: кэш мог истечь между вызовами.
	ds := h.kpis.Dataset(ctx)
	dims := service.SummarizeDimensions(ds)
	requested := strings.TrimSpace(r.URL.Query().Get("dimension"))

	data := pages.KPIPageData{
		Tabs:   make([]pages.DimensionTab, 0, len(dims)),
		Source: h.kpis.SourceName(),
	}
	for _, d := range dims {
		data.Tabs = append(data.Tabs, pages.DimensionTab{Name: d.Name, Count: d.Count})
		if d.Name == requested {
			data.Selected = requested
		}
	}
	if data.Selected == "" && len(dims) > 0 {
		data.Selected = dims[0].Name
	}
	if data.Selected != "" {
		data.Records = ds.ByDimension(data.Selected)
	}

	layout := layoutData(ctx, h.profiles, "kpis.title", pages.NavKPIs)
	render(w, r, h.logger, http.StatusOK, pages.Layout(layout, pages.KPIs(data)))
}
