package converter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlainText(t *testing.T) {
	text, err := PlainText("<h1>Título</h1><p>Primer   párrafo</p><ul><li>uno</li><li>dos</li></ul><p>a<br/>b</p>")
	require.NoError(t, err)
	assert.Equal(t, "Título Primer párrafo uno dos a b", text)
}

func TestDescribe(t *testing.T) {
	html := "<p>El veloz murciélago hindú comía feliz cardillo y kiwi.</p>"

	short, err := Describe(html, 500)
	require.NoError(t, err)
	assert.Equal(t, "El veloz murciélago hindú comía feliz cardillo y kiwi.", short)

	cut, err := Describe(html, 22)
	require.NoError(t, err)
	assert.Equal(t, "El veloz murciélago...", cut)

	all, err := Describe(html, 0)
	require.NoError(t, err)
	assert.Equal(t, short, all)
}

func TestSanitizer(t *testing.T) {
	s := NewSanitizer()
	out := s.Sanitize(`<p onclick="x()">hola<script>alert(1)</script></p>`)
	assert.Equal(t, "<p>hola</p>", out)
}
