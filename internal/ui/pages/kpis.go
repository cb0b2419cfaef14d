package pages

import (
	"context"
	"net/url"
	"strconv"

	"github.com/a-h/templ"

	"github.com/bigkaa/ecoportal/internal/domain/kpi"
	"github.com/bigkaa/ecoportal/internal/domain/model"
	"github.com/bigkaa/ecoportal/internal/ui/i18n"
)

// DimensionTab — вкладка измерения с количеством индикаторов.
type DimensionTab struct {
	Name  string
	Count int
}

// KPIPageData — данные страницы индикаторов.
type KPIPageData struct {
	// Tabs — измерения в порядке первого появления
	Tabs []DimensionTab
	// Selected — выбранное измерение
	Selected string
	// Records — записи выбранного измерения в исходном порядке
	Records []model.KPIRecord
	// Source — имя источника ресурса
	Source string
}

// KPIs — вкладки измерений и таблица индикаторов выбранного измерения.
// При пустом наборе показывается пустое состояние.
func KPIs(data KPIPageData) templ.Component {
	return build(func(ctx context.Context, h *htmlWriter) {
		h.raw(`<section class="kpis"><h1>`)
		h.text(i18n.T(ctx, "kpis.title"))
		h.raw("</h1>")

		if len(data.Tabs) == 0 {
			h.raw(`<p class="empty">`)
			h.text(i18n.T(ctx, "kpis.empty"))
			h.raw("</p></section>")
			return
		}

		h.raw(`<nav class="tabs" role="tablist">`)
		for _, tab := range data.Tabs {
			h.raw(`<a role="tab"`)
			h.attr("href", "/kpis?dimension="+url.QueryEscape(tab.Name))
			if tab.Name == data.Selected {
				h.raw(` class="tab active" aria-selected="true"`)
			} else {
				h.raw(` class="tab"`)
			}
			h.raw(">")
			h.text(tab.Name)
			h.raw(` <span class="count">`)
			h.text(strconv.Itoa(tab.Count))
			h.raw("</span></a>")
		}
		h.raw("</nav>")

		h.raw(`<p class="meta">`)
		h.text(i18n.Tf(ctx, "kpis.count", len(data.Records)))
		if data.Source != "" {
			h.raw(" · ")
			h.text(i18n.Tf(ctx, "kpis.source", data.Source))
		}
		h.raw("</p>")

		h.raw(`<div class="kpi-list">`)
		for _, rec := range data.Records {
			kpiCard(ctx, h, rec)
		}
		h.raw("</div></section>")
	})
}

func kpiCard(ctx context.Context, h *htmlWriter, rec model.KPIRecord) {
	h.raw(`<details class="kpi"><summary><span class="subdimension">`)
	h.text(rec.Subdimension)
	h.raw(`</span><strong class="indicator">`)
	h.text(rec.Indicator)
	h.raw("</strong>")
	badge(h, "status-"+string(kpi.ClassifyStatus(rec.Status)), rec.Status)
	badge(h, "importance-"+string(kpi.ClassifyImportance(rec.Importance)), rec.Importance)
	if rec.Frequency != "" {
		h.raw(`<span class="frequency">`)
		h.text(rec.Frequency)
		h.raw("</span>")
	}
	h.raw("</summary><dl>")
	field(ctx, h, "kpis.field.description", rec.Description)
	field(ctx, h, "kpis.field.formula", rec.Formula)
	field(ctx, h, "kpis.field.data", rec.Data)
	field(ctx, h, "kpis.field.source", rec.Source)
	field(ctx, h, "kpis.field.source_detail", rec.SourceDetail)
	field(ctx, h, "kpis.field.bibliography", rec.Bibliography)
	h.raw("</dl></details>")
}

func badge(h *htmlWriter, class, label string) {
	if label == "" {
		return
	}
	h.raw("<span")
	h.attr("class", "badge "+class)
	h.raw(">")
	h.text(label)
	h.raw("</span>")
}

func field(ctx context.Context, h *htmlWriter, key, value string) {
	if value == "" {
		return
	}
	h.raw("<dt>")
	h.text(i18n.T(ctx, key))
	h.raw("</dt><dd>")
	h.text(value)
	h.raw("</dd>")
}
