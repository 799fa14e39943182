// Package domain содержит модель запуска рецепта.
package domain
