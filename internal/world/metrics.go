package world

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Метрики генерации. Создаются один раз на процесс и регистрируются
// явно через RegisterMetrics, чтобы тесты могли строить сколько угодно миров.
var (
	regionsBuilt = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "worldgen",
		Name:      "regions_built_total",
		Help:      "Количество построенных регионов по результату.",
	}, []string{"result"})

	regionFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "worldgen",
		Name:      "region_failures_total",
		Help:      "Ошибки генерации регионов по причине.",
	}, []string{"reason"})

	regionBuildSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "worldgen",
		Name:      "region_build_duration_seconds",
		Help:      "Длительность построения одного региона.",
		Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
	})

	generationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "worldgen",
		Name:      "generation_duration_seconds",
		Help:      "Длительность генерации всего мира.",
		Buckets:   prometheus.DefBuckets,
	})

	pathLength = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "worldgen",
		Name:      "path_length_cells",
		Help:      "Длина найденных маршрутов в клетках.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
	})

	worldState = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "worldgen",
		Name:      "state",
		Help:      "Состояние генератора: 0 не инициализирован, 1 генерация, 2 сгенерирован.",
	})
)

// RegisterMetrics регистрирует метрики генератора. Повторная регистрация не ошибка.
func RegisterMetrics(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{regionsBuilt, regionFailures, regionBuildSeconds, generationSeconds, pathLength, worldState} {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}
