// Package cli реализует команды инструмента spiderchef.
//
// # Команды
//
//   - cook RECIPE — выполнить рецепт и записать результат в файл
//   - recipe new NAME — создать config_NAME.yaml из шаблона
//   - recipe validate FILE — загрузить рецепт и показать его шаги
//   - steps — список зарегистрированных типов шагов
//
// Каждая команда создаётся фабричной функцией (NewCookCmd и т.д.),
// принимающей appFn — замыкание, которое отдаёт App после разбора
// PersistentFlags корневой команды.
//
// # Output
//
// Таблицы (text/tabwriter) по умолчанию, JSON с флагом --json.
// Данные выводятся в stdout, сообщения — в stderr, логи — в stderr через slog.
package cli
