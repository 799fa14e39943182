// Package transport — сетевая сессия рецепта.
//
// Session выполняет запросы относительно базового адреса рецепта
// и возвращает статус, заголовки и декодированный текст ответа.
// Реализация RestySession построена на go-resty/resty:
//   - версия протокола (http_version: 1, 1.1, 2, 3)
//   - профиль имитации браузера (impersonate: firefox, chrome, safari, edge)
//   - кодировка по умолчанию (default_encoding, "auto" — определение через chardet)
//   - общий cookie jar на всю сессию
//   - ограничение частоты запросов (golang.org/x/time/rate)
//
// Повторных попыток нет: каждый запрос выполняется ровно один раз.
package transport
