package converter

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/article-publishing-api/internal/converter/docxtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t testing.TB, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.docx")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func zipWith(t testing.TB, parts map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range parts {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func convert(t *testing.T, body, rels string) string {
	t.Helper()
	html, err := NewDocxConverter().Convert(context.Background(), writeFile(t, docxtest.Build(body, rels)))
	require.NoError(t, err)
	return html
}

func TestDocxConverter_Paragraphs(t *testing.T) {
	html, err := NewDocxConverter().Convert(context.Background(), writeFile(t, docxtest.Text("Hola mundo cruel", "Segundo párrafo")))
	require.NoError(t, err)
	assert.Equal(t, "<p>Hola mundo cruel</p><p>Segundo párrafo</p>", html)
}

func TestDocxConverter_Headings(t *testing.T) {
	body := `<w:p><w:pPr><w:pStyle w:val="Title"/></w:pPr><w:r><w:t>Portada</w:t></w:r></w:p>` +
		`<w:p><w:pPr><w:pStyle w:val="Heading2"/></w:pPr><w:r><w:t>Sección</w:t></w:r></w:p>` +
		`<w:p><w:pPr><w:pStyle w:val="Normal"/></w:pPr><w:r><w:t>Texto</w:t></w:r></w:p>`

	assert.Equal(t, "<h1>Portada</h1><h2>Sección</h2><p>Texto</p>", convert(t, body, ""))
}

func TestDocxConverter_RunFormatting(t *testing.T) {
	body := `<w:p>` +
		`<w:r><w:rPr><w:b/></w:rPr><w:t>fuerte</w:t></w:r>` +
		`<w:r><w:t xml:space="preserve"> y </w:t></w:r>` +
		`<w:r><w:rPr><w:i/><w:b w:val="0"/></w:rPr><w:t>suave</w:t></w:r>` +
		`<w:r><w:br/><w:t>fin</w:t></w:r>` +
		`</w:p>`

	html := convert(t, body, "")
	assert.True(t, strings.HasPrefix(html, "<p><strong>fuerte</strong> y <em>suave</em><br"), html)
	assert.True(t, strings.HasSuffix(html, "fin</p>"), html)
}

func TestDocxConverter_Lists(t *testing.T) {
	item := func(text string) string {
		return `<w:p><w:pPr><w:numPr><w:ilvl w:val="0"/><w:numId w:val="1"/></w:numPr></w:pPr><w:r><w:t>` + text + `</w:t></w:r></w:p>`
	}
	body := item("uno") + item("dos") + docxtest.Paragraph("fin") + item("otra")

	assert.Equal(t, "<ul><li>uno</li><li>dos</li></ul><p>fin</p><ul><li>otra</li></ul>", convert(t, body, ""))
}

func TestDocxConverter_Tables(t *testing.T) {
	cell := func(text string) string { return `<w:tc>` + docxtest.Paragraph(text) + `</w:tc>` }
	body := docxtest.Paragraph("antes") +
		`<w:tbl><w:tblPr/><w:tr>` + cell("a") + cell("b") + `</w:tr><w:tr>` + cell("c") + cell("d") + `</w:tr></w:tbl>`

	assert.Equal(t,
		"<p>antes</p><table><tr><td><p>a</p></td><td><p>b</p></td></tr><tr><td><p>c</p></td><td><p>d</p></td></tr></table>",
		convert(t, body, ""))
}

func TestDocxConverter_Hyperlinks(t *testing.T) {
	rels := `<?xml version="1.0" encoding="UTF-8"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId7" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink" Target="https://example.com/guia" TargetMode="External"/>
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>
</Relationships>`
	body := `<w:p><w:r><w:t xml:space="preserve">Visita </w:t></w:r>` +
		`<w:hyperlink r:id="rId7"><w:r><w:t>la guía</w:t></w:r></w:hyperlink></w:p>` +
		`<w:p><w:hyperlink r:id="rId1"><w:r><w:t>sin enlace</w:t></w:r></w:hyperlink></w:p>`

	html := convert(t, body, rels)
	assert.Contains(t, html, `href="https://example.com/guia"`)
	assert.Contains(t, html, "nofollow")
	assert.Contains(t, html, ">la guía</a>")
	assert.Contains(t, html, "<p>sin enlace</p>")
}

func TestDocxConverter_EscapesAndSanitizes(t *testing.T) {
	html := convert(t, docxtest.Paragraphs("a < b & c", "<script>alert(1)</script>"), "")

	assert.Contains(t, html, "<p>a &lt; b &amp; c</p>")
	assert.NotContains(t, html, "<script>")
}

func TestDocxConverter_DropsEmptyParagraphs(t *testing.T) {
	body := `<w:p/>` + docxtest.Paragraph("texto") + `<w:p><w:r><w:t xml:space="preserve">   </w:t></w:r></w:p>`
	assert.Equal(t, "<p>texto</p>", convert(t, body, ""))
}

func TestDocxConverter_TextBoxKeepsSurroundingText(t *testing.T) {
	body := `<w:p><w:r><w:t>Antes del cuadro.</w:t></w:r>` +
		`<w:r><w:pict><w:txbxContent>` + docxtest.Paragraph("Dentro del cuadro.") + `</w:txbxContent></w:pict></w:r>` +
		`<w:r><w:t>Después del cuadro.</w:t></w:r></w:p>` +
		docxtest.Paragraph("Siguiente")

	assert.Equal(t,
		"<p>Antes del cuadro.Después del cuadro.</p><div><p>Dentro del cuadro.</p></div><p>Siguiente</p>",
		convert(t, body, ""))
}

func TestDocxConverter_AlternateContentRenderedOnce(t *testing.T) {
	box := func(text string) string {
		return `<w:txbxContent>` + docxtest.Paragraph(text) + `</w:txbxContent>`
	}
	body := `<w:p><w:r><w:t xml:space="preserve">Texto </w:t></w:r><w:r>` +
		`<mc:AlternateContent xmlns:mc="http://schemas.openxmlformats.org/markup-compatibility/2006">` +
		`<mc:Choice Requires="wps"><w:drawing>` + box("Cuadro nuevo") + `</w:drawing></mc:Choice>` +
		`<mc:Fallback><w:pict>` + box("Cuadro viejo") + `</w:pict></mc:Fallback>` +
		`</mc:AlternateContent></w:r><w:r><w:t>final</w:t></w:r></w:p>`

	html := convert(t, body, "")
	assert.Equal(t, "<p>Texto final</p><div><p>Cuadro nuevo</p></div>", html)
	assert.NotContains(t, html, "Cuadro viejo")
}

func TestDocxConverter_Idempotent(t *testing.T) {
	path := writeFile(t, docxtest.Text("uno", "dos", "tres"))
	conv := NewDocxConverter()

	first, err := conv.Convert(context.Background(), path)
	require.NoError(t, err)
	second, err := conv.Convert(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestDocxConverter_Errors(t *testing.T) {
	conv := NewDocxConverter()

	t.Run("missing file", func(t *testing.T) {
		_, err := conv.Convert(context.Background(), filepath.Join(t.TempDir(), "nope.docx"))
		assert.ErrorIs(t, err, ErrUnreadable)
	})

	t.Run("not a zip", func(t *testing.T) {
		_, err := conv.Convert(context.Background(), writeFile(t, []byte("this is not a document")))
		assert.ErrorIs(t, err, ErrUnreadable)
	})

	t.Run("zip without document part", func(t *testing.T) {
		path := writeFile(t, zipWith(t, map[string]string{"[Content_Types].xml": "<Types/>"}))
		_, err := conv.Convert(context.Background(), path)
		assert.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("broken xml", func(t *testing.T) {
		path := writeFile(t, zipWith(t, map[string]string{"word/document.xml": "<w:document><w:body><w:p>"}))
		_, err := conv.Convert(context.Background(), path)
		assert.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := conv.Convert(ctx, writeFile(t, docxtest.Text("hola")))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func BenchmarkDocxConverter(b *testing.B) {
	texts := make([]string, 500)
	for i := range texts {
		texts[i] = "Lorem ipsum dolor sit amet, consectetur adipiscing elit, sed do eiusmod tempor."
	}
	path := writeFile(b, docxtest.Text(texts...))
	conv := NewDocxConverter()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := conv.Convert(context.Background(), path); err != nil {
			b.Fatal(err)
		}
	}
}
