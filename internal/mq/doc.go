// Package mq публикует события о запусках рецептов в RabbitMQ.
//
// Структура:
//   - connection.go — соединение и канал AMQP
//   - topology.go   — объявление exchange, очереди и привязки
//   - publisher.go  — публикация сообщений
//
// Типы сообщений:
//   - run.finished — запуск рецепта завершён (успешно или с ошибкой)
//
// Exchanges:
//   - spiderchef.runs — события запусков
package mq
