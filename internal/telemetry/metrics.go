package telemetry

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Статусы в метках метрик.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Metrics — метрики запусков рецептов.
//
// Реализует engine.Observer. Нулевой указатель безопасен: все методы ничего не делают.
type Metrics struct {
	registry *prometheus.Registry

	stepsTotal    *prometheus.CounterVec
	stepDuration  *prometheus.HistogramVec
	runsTotal     *prometheus.CounterVec
	responseCodes *prometheus.CounterVec
}

// NewMetrics создаёт метрики в собственном реестре.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		stepsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spiderchef_steps_total",
			Help: "Total recipe steps executed",
		}, []string{"type", "status"}),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "spiderchef_step_duration_seconds",
			Help:    "Recipe step execution time",
			Buckets: prometheus.DefBuckets,
		}, []string{"type"}),
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spiderchef_runs_total",
			Help: "Total recipe runs",
		}, []string{"status"}),
		responseCodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spiderchef_fetch_responses_total",
			Help: "HTTP responses received by fetch steps",
		}, []string{"code"}),
	}

	m.registry.MustRegister(m.stepsTotal, m.stepDuration, m.runsTotal, m.responseCodes)
	return m
}

// Registry возвращает реестр метрик.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveStep учитывает выполненный шаг.
func (m *Metrics) ObserveStep(stepType string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	status := StatusSucceeded
	if err != nil {
		status = StatusFailed
	}
	m.stepsTotal.WithLabelValues(stepType, status).Inc()
	m.stepDuration.WithLabelValues(stepType).Observe(duration.Seconds())
}

// ObserveResponse учитывает код ответа.
func (m *Metrics) ObserveResponse(statusCode int) {
	if m == nil {
		return
	}
	m.responseCodes.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// ObserveRun учитывает завершённый запуск.
func (m *Metrics) ObserveRun(err error) {
	if m == nil {
		return
	}
	status := StatusSucceeded
	if err != nil {
		status = StatusFailed
	}
	m.runsTotal.WithLabelValues(status).Inc()
}

// WriteTextfile выгружает метрики в файл формата textfile.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
