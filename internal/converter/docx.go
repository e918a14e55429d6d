package converter

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"strings"
)

const (
	documentPart      = "word/document.xml"
	relationshipsPart = "word/_rels/document.xml.rels"

	hyperlinkRelType = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink"

	markupCompatibilityNS = "http://schemas.openxmlformats.org/markup-compatibility/2006"

	// upper bound on the uncompressed size of a single part
	maxPartSize = 64 * 1024 * 1024
)

// DocxConverter renders Office Open XML word-processing documents
type DocxConverter struct {
	sanitizer *Sanitizer
}

// NewDocxConverter creates a DOCX converter whose output is sanitized
func NewDocxConverter() *DocxConverter {
	return &DocxConverter{sanitizer: NewSanitizer()}
}

var _ Converter = (*DocxConverter)(nil)

// Convert reads the document at path and returns its body as HTML
func (c *DocxConverter) Convert(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	defer zr.Close()

	parts := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		parts[f.Name] = f
	}

	doc, ok := parts[documentPart]
	if !ok {
		return "", fmt.Errorf("%w: missing %s", ErrMalformed, documentPart)
	}

	links := map[string]string{}
	if relsFile, ok := parts[relationshipsPart]; ok {
		links, err = readHyperlinks(relsFile)
		if err != nil {
			return "", err
		}
	}

	rc, err := openPart(doc)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	body, err := render(rc, links)
	if err != nil {
		return "", err
	}

	return c.sanitizer.Sanitize(body), nil
}

func openPart(f *zip.File) (io.ReadCloser, error) {
	if f.UncompressedSize64 > maxPartSize {
		return nil, fmt.Errorf("%w: part %s is too large", ErrMalformed, f.Name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	return struct {
		io.Reader
		io.Closer
	}{io.LimitReader(rc, maxPartSize), rc}, nil
}

type relationships struct {
	Items []struct {
		ID         string `xml:"Id,attr"`
		Type       string `xml:"Type,attr"`
		Target     string `xml:"Target,attr"`
		TargetMode string `xml:"TargetMode,attr"`
	} `xml:"Relationship"`
}

// readHyperlinks maps relationship ids to external hyperlink targets
func readHyperlinks(f *zip.File) (map[string]string, error) {
	rc, err := openPart(f)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var rels relationships
	if err := xml.NewDecoder(rc).Decode(&rels); err != nil {
		return nil, fmt.Errorf("%w: relationships: %v", ErrMalformed, err)
	}

	links := make(map[string]string)
	for _, r := range rels.Items {
		if r.Type == hyperlinkRelType && strings.EqualFold(r.TargetMode, "External") {
			links[r.ID] = r.Target
		}
	}
	return links, nil
}

// container is a block-level sink: the body, a table, a row or a cell
type container struct {
	tag      string
	b        strings.Builder
	listOpen bool
}

func (c *container) closeList() {
	if c.listOpen {
		c.b.WriteString("</ul>")
		c.listOpen = false
	}
}

type paragraph struct {
	style  string
	list   bool
	inline strings.Builder
	// blocks nested in the paragraph (text boxes), emitted after it
	after strings.Builder
}

type run struct {
	bold   bool
	italic bool
	inProp bool
	text   strings.Builder
}

func (r *run) html() string {
	s := r.text.String()
	if s == "" {
		return ""
	}
	if r.italic {
		s = "<em>" + s + "</em>"
	}
	if r.bold {
		s = "<strong>" + s + "</strong>"
	}
	return s
}

type hyperlink struct {
	href   string
	inline strings.Builder
}

// inlineState is the open paragraph, run and hyperlink at one nesting level
type inlineState struct {
	para   *paragraph
	run    *run
	link   *hyperlink
	inText bool
}

type renderer struct {
	links map[string]string
	stack []*container
	inlineState
	// saved holds the enclosing inline state while a text box is open
	saved []inlineState
	// skip counts open elements inside an ignored mc:Fallback
	skip int
}

func render(r io.Reader, links map[string]string) (string, error) {
	rd := &renderer{
		links: links,
		stack: []*container{{tag: "body"}},
	}

	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrMalformed, err)
		}

		if rd.skip > 0 {
			switch tok.(type) {
			case xml.StartElement:
				rd.skip++
			case xml.EndElement:
				rd.skip--
			}
			continue
		}

		switch t := tok.(type) {
		case xml.StartElement:
			// mc:Choice and mc:Fallback carry the same content; keep the choice
			if t.Name.Local == "Fallback" && (t.Name.Space == markupCompatibilityNS || t.Name.Space == "mc") {
				rd.skip = 1
				continue
			}
			rd.start(t)
		case xml.EndElement:
			rd.end(t)
		case xml.CharData:
			if rd.inText && rd.run != nil {
				rd.run.text.WriteString(html.EscapeString(string(t)))
			}
		}
	}

	if len(rd.stack) != 1 || len(rd.saved) != 0 {
		return "", fmt.Errorf("%w: unbalanced table structure", ErrMalformed)
	}
	body := rd.stack[0]
	body.closeList()
	return body.b.String(), nil
}

func (rd *renderer) top() *container {
	return rd.stack[len(rd.stack)-1]
}

func (rd *renderer) start(t xml.StartElement) {
	switch t.Name.Local {
	case "tbl", "tr", "tc":
		if t.Name.Local == "tbl" {
			rd.top().closeList()
		}
		rd.stack = append(rd.stack, &container{tag: blockTag(t.Name.Local)})
	case "txbxContent":
		rd.saved = append(rd.saved, rd.inlineState)
		rd.inlineState = inlineState{}
		rd.stack = append(rd.stack, &container{tag: "div"})
	case "p":
		rd.para = &paragraph{}
	case "pStyle":
		if rd.para != nil && rd.run == nil {
			rd.para.style = attr(t, "val")
		}
	case "numPr":
		if rd.para != nil && rd.run == nil {
			rd.para.list = true
		}
	case "hyperlink":
		if rd.para != nil {
			href := rd.links[attr(t, "id")]
			if anchor := attr(t, "anchor"); href == "" && anchor != "" {
				href = "#" + anchor
			}
			rd.link = &hyperlink{href: href}
		}
	case "r":
		rd.run = &run{}
	case "rPr":
		if rd.run != nil {
			rd.run.inProp = true
		}
	case "b":
		if rd.run != nil && rd.run.inProp {
			rd.run.bold = toggleOn(t)
		}
	case "i":
		if rd.run != nil && rd.run.inProp {
			rd.run.italic = toggleOn(t)
		}
	case "t":
		rd.inText = true
	case "tab":
		if rd.run != nil && !rd.run.inProp {
			rd.run.text.WriteString("\t")
		}
	case "br", "cr":
		if rd.run != nil {
			rd.run.text.WriteString("<br />")
		}
	}
}

func (rd *renderer) end(t xml.EndElement) {
	switch t.Name.Local {
	case "tbl", "tr", "tc":
		if len(rd.stack) < 2 {
			return
		}
		c := rd.top()
		rd.stack = rd.stack[:len(rd.stack)-1]
		c.closeList()
		rd.top().b.WriteString("<" + c.tag + ">" + c.b.String() + "</" + c.tag + ">")
	case "txbxContent":
		if len(rd.saved) == 0 || len(rd.stack) < 2 {
			return
		}
		c := rd.top()
		rd.stack = rd.stack[:len(rd.stack)-1]
		c.closeList()
		rd.inlineState = rd.saved[len(rd.saved)-1]
		rd.saved = rd.saved[:len(rd.saved)-1]

		if c.b.Len() == 0 {
			return
		}
		box := "<div>" + c.b.String() + "</div>"
		if rd.para != nil {
			rd.para.after.WriteString(box)
		} else {
			rd.top().closeList()
			rd.top().b.WriteString(box)
		}
	case "t":
		rd.inText = false
	case "rPr":
		if rd.run != nil {
			rd.run.inProp = false
		}
	case "r":
		if rd.run == nil {
			return
		}
		out := rd.run.html()
		rd.run = nil
		switch {
		case rd.link != nil:
			rd.link.inline.WriteString(out)
		case rd.para != nil:
			rd.para.inline.WriteString(out)
		}
	case "hyperlink":
		if rd.link == nil || rd.para == nil {
			rd.link = nil
			return
		}
		inner := rd.link.inline.String()
		if rd.link.href != "" && inner != "" {
			inner = `<a href="` + html.EscapeString(rd.link.href) + `">` + inner + "</a>"
		}
		rd.para.inline.WriteString(inner)
		rd.link = nil
	case "p":
		if rd.para == nil {
			return
		}
		rd.emitParagraph(rd.para)
		rd.para = nil
	}
}

func (rd *renderer) emitParagraph(p *paragraph) {
	content := p.inline.String()
	c := rd.top()

	switch {
	case strings.TrimSpace(content) == "":
	case p.list:
		if !c.listOpen {
			c.b.WriteString("<ul>")
			c.listOpen = true
		}
		c.b.WriteString("<li>" + content + "</li>")
	default:
		c.closeList()
		tag := paragraphTag(p.style)
		c.b.WriteString("<" + tag + ">" + content + "</" + tag + ">")
	}

	if p.after.Len() > 0 {
		c.closeList()
		c.b.WriteString(p.after.String())
	}
}

func blockTag(local string) string {
	switch local {
	case "tbl":
		return "table"
	case "tr":
		return "tr"
	default:
		return "td"
	}
}

// paragraphTag maps built-in style ids to HTML elements
func paragraphTag(style string) string {
	s := strings.ToLower(strings.ReplaceAll(style, " ", ""))
	switch s {
	case "title":
		return "h1"
	case "heading1", "heading2", "heading3", "heading4", "heading5", "heading6":
		return "h" + s[len(s)-1:]
	}
	return "p"
}

func attr(t xml.StartElement, local string) string {
	for _, a := range t.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// toggleOn reads an OOXML on/off property; a bare element means on
func toggleOn(t xml.StartElement) bool {
	switch strings.ToLower(attr(t, "val")) {
	case "0", "false", "off", "none":
		return false
	}
	return true
}
