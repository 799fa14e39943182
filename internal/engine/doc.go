// Package engine содержит общее состояние запуска рецепта.
//
// Включает:
//   - context.go    — Context: переменные, последний ответ, кэш дерева, сессия
//   - substitute.go — подстановка ${name} в конфигурацию шагов
//   - path.go       — извлечение значений по пути "a.b[0].c" и "items[].id"
//   - errors.go     — ошибки разрешения данных
//
// Engine ничего не знает о конкретных шагах: он даёт им общее
// состояние и правила подстановки переменных.
package engine
