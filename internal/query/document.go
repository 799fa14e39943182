package query

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xpath"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Ошибки вычислителя.
var (
	// ErrParse — документ не удалось разобрать.
	ErrParse = errors.New("document parse failed")

	// ErrExpression — невалидное XPath выражение или CSS селектор.
	ErrExpression = errors.New("invalid query expression")
)

// Document — разобранный HTML документ.
type Document struct {
	root *html.Node
}

// tableContexts — родительский элемент, внутри которого разбирается фрагмент,
// начинающийся с тега табличной секции. Вне таблицы HTML5 парсер такие теги отбрасывает.
var tableContexts = map[atom.Atom]atom.Atom{
	atom.Tr:       atom.Tbody,
	atom.Td:       atom.Tr,
	atom.Th:       atom.Tr,
	atom.Tbody:    atom.Table,
	atom.Thead:    atom.Table,
	atom.Tfoot:    atom.Table,
	atom.Caption:  atom.Table,
	atom.Colgroup: atom.Table,
	atom.Col:      atom.Colgroup,
}

// Parse разбирает текст в документ.
//
// Фрагменты таблицы (<tr>, <td> и т.п.) разбираются в контексте
// родительского элемента таблицы, чтобы их узлы сохранились.
func Parse(text string) (*Document, error) {
	if parent, ok := tableContexts[leadingTag(text)]; ok {
		return parseFragment(text, parent)
	}

	root, err := htmlquery.Parse(strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return &Document{root: root}, nil
}

func parseFragment(text string, parent atom.Atom) (*Document, error) {
	parentNode := &html.Node{Type: html.ElementNode, Data: parent.String(), DataAtom: parent}
	nodes, err := html.ParseFragment(strings.NewReader(text), parentNode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	root := &html.Node{Type: html.DocumentNode}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	return &Document{root: root}, nil
}

// leadingTag возвращает атом первого открывающего тега текста или 0.
func leadingTag(text string) atom.Atom {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "<") {
		return 0
	}
	end := strings.IndexAny(text[1:], " \t\n\r/>")
	if end <= 0 {
		return 0
	}
	return atom.Lookup([]byte(strings.ToLower(text[1 : 1+end])))
}

// Fragment — один результат запроса: узел документа или готовое значение
// (атрибут, текстовый узел, результат функции XPath).
type Fragment struct {
	node  *html.Node
	value string
}

// IsValue возвращает true, если фрагмент — строковое значение, а не элемент.
func (f Fragment) IsValue() bool {
	return f.node == nil
}

// Text возвращает текстовое содержимое фрагмента.
func (f Fragment) Text() string {
	if f.node == nil {
		return f.value
	}
	return htmlquery.InnerText(f.node)
}

// HTML возвращает разметку фрагмента вместе с самим элементом.
func (f Fragment) HTML() string {
	if f.node == nil {
		return f.value
	}
	return htmlquery.OutputHTML(f.node, true)
}

// Attr возвращает значение атрибута элемента или пустую строку.
func (f Fragment) Attr(name string) string {
	if f.node == nil {
		return ""
	}
	return htmlquery.SelectAttr(f.node, name)
}

// XPath применяет XPath выражение к документу.
//
// Атрибуты и текстовые узлы возвращаются как значения,
// скалярные результаты (count(), string()) — как один фрагмент.
func (d *Document) XPath(expr string) ([]Fragment, error) {
	compiled, err := xpath.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrExpression, expr, err)
	}

	switch result := compiled.Evaluate(htmlquery.CreateXPathNavigator(d.root)).(type) {
	case *xpath.NodeIterator:
		var fragments []Fragment
		for result.MoveNext() {
			nav, ok := result.Current().(*htmlquery.NodeNavigator)
			if !ok {
				continue
			}
			switch nav.NodeType() {
			case xpath.AttributeNode, xpath.TextNode, xpath.CommentNode:
				fragments = append(fragments, Fragment{value: nav.Value()})
			default:
				fragments = append(fragments, Fragment{node: nav.Current()})
			}
		}
		return fragments, nil
	case string:
		return []Fragment{{value: result}}, nil
	case float64:
		return []Fragment{{value: strconv.FormatFloat(result, 'f', -1, 64)}}, nil
	case bool:
		return []Fragment{{value: strconv.FormatBool(result)}}, nil
	default:
		return nil, nil
	}
}

// CSS применяет CSS селектор к документу.
func (d *Document) CSS(selector string) ([]Fragment, error) {
	matcher, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrExpression, selector, err)
	}

	selection := goquery.NewDocumentFromNode(d.root).FindMatcher(matcher)
	fragments := make([]Fragment, 0, selection.Length())
	selection.Each(func(_ int, s *goquery.Selection) {
		fragments = append(fragments, Fragment{node: s.Get(0)})
	})
	return fragments, nil
}

// ValidateXPath проверяет синтаксис XPath выражения.
func ValidateXPath(expr string) error {
	if _, err := xpath.Compile(expr); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrExpression, expr, err)
	}
	return nil
}

// ValidateCSS проверяет синтаксис CSS селектора.
func ValidateCSS(selector string) error {
	if _, err := cascadia.Compile(selector); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrExpression, selector, err)
	}
	return nil
}
