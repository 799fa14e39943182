// Package telemetry обеспечивает наблюдаемость запусков рецептов.
//
// Включает:
//   - logging.go — structured logging через slog
//   - metrics.go — Prometheus метрики шагов, запусков и ответов
//
// Метрики собираются в собственный реестр и выгружаются
// в файл формата textfile (node_exporter) после запуска.
package telemetry
