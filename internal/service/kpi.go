// kpi.go — сервис KPI: загрузка ресурса, разбор и кэширование набора.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/ecoportal/internal/domain/kpi"
	"github.com/bigkaa/ecoportal/internal/domain/model"
	"github.com/bigkaa/ecoportal/internal/kpisource"
)

// Prometheus-метрики ресурса KPI.
var (
	kpiFetchErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ep_kpi_fetch_errors_total",
		Help: "Количество неудачных загрузок ресурса KPI.",
	}, []string{"source"})
	kpiRowsDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ep_kpi_rows_dropped_total",
		Help: "Количество отброшенных некорректных строк ресурса KPI.",
	}, []string{"source"})
	kpiRowsAccepted = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ep_kpi_rows_accepted",
		Help: "Количество принятых записей KPI в последнем разборе.",
	}, []string{"source"})
	kpiCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ep_kpi_cache_hits_total",
		Help: "Общее количество попаданий в кэш наборов KPI.",
	})
	kpiCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ep_kpi_cache_misses_total",
		Help: "Общее количество промахов кэша наборов KPI.",
	})
)

// DimensionSummary — измерение и количество его индикаторов.
type DimensionSummary struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// KPIService отдаёт разобранный набор KPI.
// Набор кэшируется в LRU с TTL, ключ — имя источника.
// Ошибка источника не возвращается вызывающему: отдаётся пустой набор,
// в кэш ничего не кладётся.
type KPIService struct {
	source kpisource.Source
	cache  *expirable.LRU[string, kpi.Dataset]
	logger *slog.Logger
}

// NewKPIService создаёт сервис KPI.
// cacheSize — максимальное количество наборов в кэше, ttl — время жизни набора.
func NewKPIService(source kpisource.Source, cacheSize int, ttl time.Duration, logger *slog.Logger) *KPIService {
	return &KPIService{
		source: source,
		cache:  expirable.NewLRU[string, kpi.Dataset](cacheSize, nil, ttl),
		logger: logger.With(slog.String("component", "kpi_service")),
	}
}

// SourceName возвращает имя текущего источника.
func (s *KPIService) SourceName() string {
	return s.source.Name()
}

// Dataset возвращает набор KPI: из кэша или свежезагруженный.
func (s *KPIService) Dataset(ctx context.Context) kpi.Dataset {
	key := s.source.Name()
	if ds, ok := s.cache.Get(key); ok {
		kpiCacheHitsTotal.Inc()
		return ds
	}
	kpiCacheMissesTotal.Inc()

	text, err := s.source.Fetch(ctx)
	if err != nil {
		kpiFetchErrorsTotal.WithLabelValues(key).Inc()
		s.logger.Error("Не удалось загрузить ресурс KPI",
			slog.String("source", key),
			slog.String("error", err.Error()),
		)
		return kpi.Empty()
	}

	ds := kpi.Parse(text)
	kpiRowsAccepted.WithLabelValues(key).Set(float64(len(ds.Records)))
	if ds.Dropped > 0 {
		kpiRowsDroppedTotal.WithLabelValues(key).Add(float64(ds.Dropped))
		s.logger.Debug("Отброшены некорректные строки ресурса KPI",
			slog.String("source", key),
			slog.Int("dropped", ds.Dropped),
		)
	}
	s.logger.Info("Ресурс KPI загружен",
		slog.String("source", key),
		slog.Int("records", len(ds.Records)),
		slog.Int("dimensions", len(ds.Dimensions)),
	)

	s.cache.Add(key, ds)
	return ds
}

// ByDimension возвращает записи измерения в исходном порядке.
func (s *KPIService) ByDimension(ctx context.Context, dimension string) []model.KPIRecord {
	return s.Dataset(ctx).ByDimension(dimension)
}

// Dimensions возвращает измерения в порядке первого появления с количеством записей.
func (s *KPIService) Dimensions(ctx context.Context) []DimensionSummary {
	return SummarizeDimensions(s.Dataset(ctx))
}

// SummarizeDimensions сводит уже полученный набор по измерениям.
func SummarizeDimensions(ds kpi.Dataset) []DimensionSummary {
	result := make([]DimensionSummary, 0, len(ds.Dimensions))
	for _, g := range ds.Groups() {
		result = append(result, DimensionSummary{Name: g.Dimension, Count: len(g.Records)})
	}
	return result
}

// Invalidate сбрасывает кэш, следующий запрос перезагрузит ресурс.
func (s *KPIService) Invalidate() {
	s.cache.Purge()
	s.logger.Info("Кэш KPI сброшен", slog.String("source", s.source.Name()))
}
