// Package query — вычислитель запросов к HTML/XML документам.
//
// Документ разбирается один раз (Parse), после чего к нему можно
// применять XPath (antchfx/htmlquery, antchfx/xpath) и CSS селекторы (goquery).
// Результат — упорядоченный список фрагментов, каждый из которых
// можно получить как текст или как разметку.
package query
