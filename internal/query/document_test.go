package query

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const productsHTML = `
<div class="product">
    <h2>Product 1</h2>
    <p class="price">$10.99</p>
    <a href="/p/1">more</a>
</div>
<div class="product">
    <h2>Product 2</h2>
    <p class="price">$20.50</p>
    <a href="/p/2">more</a>
</div>`

func texts(fragments []Fragment) []string {
	out := make([]string, len(fragments))
	for i, f := range fragments {
		out[i] = f.Text()
	}
	return out
}

func TestDocument_XPathElements(t *testing.T) {
	doc, err := Parse(productsHTML)
	require.NoError(t, err)

	fragments, err := doc.XPath("//h2")
	require.NoError(t, err)
	assert.Equal(t, []string{"Product 1", "Product 2"}, texts(fragments))
	assert.False(t, fragments[0].IsValue())
	assert.Equal(t, "<h2>Product 1</h2>", fragments[0].HTML())
}

func TestParse_TableFragments(t *testing.T) {
	tests := []struct {
		name string
		text string
		expr string
		want []string
	}{
		{"row", "<tr><td>Dune</td><td>10</td></tr>", ".//td/text()", []string{"Dune", "10"}},
		{"row with attributes", `<TR class="odd"><td>Emma</td></TR>`, "//td", []string{"Emma"}},
		{"cell", "<td><b>bold</b></td>", "//b/text()", []string{"bold"}},
		{"header cell", "<th>Title</th>", "//th", []string{"Title"}},
		{"body", "<tbody><tr><td>a</td></tr><tr><td>b</td></tr></tbody>", "//tr/td", []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Parse(tt.text)
			require.NoError(t, err)

			fragments, err := doc.XPath(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, texts(fragments))
		})
	}
}

func TestDocument_XPathValues(t *testing.T) {
	doc, err := Parse(productsHTML)
	require.NoError(t, err)

	textNodes, err := doc.XPath("//h2/text()")
	require.NoError(t, err)
	assert.Equal(t, []string{"Product 1", "Product 2"}, texts(textNodes))
	assert.True(t, textNodes[0].IsValue())

	attrs, err := doc.XPath("//a/@href")
	require.NoError(t, err)
	assert.Equal(t, []string{"/p/1", "/p/2"}, texts(attrs))

	count, err := doc.XPath("count(//div)")
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, texts(count))
}

func TestDocument_XPathNoMatch(t *testing.T) {
	doc, err := Parse("<p>No match</p>")
	require.NoError(t, err)

	fragments, err := doc.XPath("//div")
	require.NoError(t, err)
	assert.Empty(t, fragments)
}

func TestDocument_XPathInvalid(t *testing.T) {
	doc, err := Parse(productsHTML)
	require.NoError(t, err)

	_, err = doc.XPath("//div[")
	assert.True(t, errors.Is(err, ErrExpression))
	assert.Error(t, ValidateXPath("//div["))
	assert.NoError(t, ValidateXPath(".//h2/text()"))
}

func TestDocument_CSS(t *testing.T) {
	doc, err := Parse(productsHTML)
	require.NoError(t, err)

	fragments, err := doc.CSS("div.product p.price")
	require.NoError(t, err)
	assert.Equal(t, []string{"$10.99", "$20.50"}, texts(fragments))
	assert.Equal(t, `<p class="price">$10.99</p>`, fragments[0].HTML())

	_, err = doc.CSS("div[")
	assert.True(t, errors.Is(err, ErrExpression))
	assert.Error(t, ValidateCSS("div["))
}

func TestFragment_Attr(t *testing.T) {
	doc, err := Parse(productsHTML)
	require.NoError(t, err)

	fragments, err := doc.CSS("div.product a")
	require.NoError(t, err)
	require.NotEmpty(t, fragments)
	assert.Equal(t, "/p/1", fragments[0].Attr("href"))
	assert.Equal(t, "", fragments[0].Attr("missing"))
	assert.Equal(t, "", Fragment{value: "x"}.Attr("href"))
}
