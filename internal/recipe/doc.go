// Package recipe содержит модель рецепта и цикл его выполнения.
//
// Рецепт — именованный упорядоченный конвейер шагов и сетевые настройки.
// Загружается из YAML (Load, Parse), сериализуется обратно (Marshal),
// выполняется через Cook.
//
// Сетевая сессия создаётся лениво при первом обращении шага
// и закрывается ровно один раз по окончании Cook.
package recipe
