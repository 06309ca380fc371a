// Package htmltemplate implements the TemplateRenderer port. It assembles a
// named template's assets into a single static HTML page: markdown assets
// are rendered to sanitized HTML, binary assets (already uploaded and
// replaced by absolute URLs) become download links, and everything else is
// embedded as escaped preformatted text.
package htmltemplate

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/previewpub/previewpub/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.TemplateRenderer = (*Renderer)(nil)

var (
	mdRenderer    goldmark.Markdown
	htmlSanitizer *bluemonday.Policy
)

func init() {
	mdRenderer = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)

	htmlSanitizer = bluemonday.UGCPolicy()
}

var pageTemplate = template.Must(template.New("bundle").Parse(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Name}}</title>
<style>
body { font-family: sans-serif; max-width: 60rem; margin: 2rem auto; padding: 0 1rem; }
pre { background: #f6f8fa; padding: 1rem; overflow-x: auto; }
section { margin-bottom: 2rem; }
</style>
</head>
<body>
<h1>{{.Name}}</h1>
{{range .Sections}}<section>
<h2>{{.Name}}</h2>
{{.Body}}
</section>
{{end}}</body>
</html>
`))

type page struct {
	Name     string
	Sections []section
}

type section struct {
	Name string
	Body template.HTML
}

// Renderer renders template asset maps into self-contained HTML pages.
type Renderer struct{}

// NewRenderer creates a Renderer.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render produces the HTML page for the named template. Asset order in the
// page is lexicographic by asset name so repeated renders of the same input
// are byte-identical.
func (r *Renderer) Render(templateName string, assets map[string]string) (string, error) {
	names := make([]string, 0, len(assets))
	for name := range assets {
		names = append(names, name)
	}
	sort.Strings(names)

	p := page{Name: templateName}
	for _, name := range names {
		p.Sections = append(p.Sections, section{
			Name: name,
			Body: renderAsset(name, assets[name]),
		})
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, p); err != nil {
		return "", fmt.Errorf("render template %s: %w", templateName, err)
	}

	return buf.String(), nil
}

// renderAsset converts one asset into a sanitized HTML fragment.
func renderAsset(name, value string) template.HTML {
	switch {
	case isURL(value):
		safe := template.HTMLEscapeString(value)
		return template.HTML(fmt.Sprintf(`<p><a href="%s">%s</a></p>`, safe, template.HTMLEscapeString(name)))
	case strings.HasSuffix(name, ".md"):
		return template.HTML(renderMarkdown(value))
	case strings.HasSuffix(name, ".html"):
		return template.HTML(htmlSanitizer.Sanitize(value))
	default:
		return template.HTML("<pre>" + template.HTMLEscapeString(value) + "</pre>")
	}
}

// renderMarkdown converts a markdown string to sanitized HTML. Falls back to
// sanitizing the raw input if conversion fails.
func renderMarkdown(src string) string {
	if src == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(src), &buf); err != nil {
		return htmlSanitizer.Sanitize(src)
	}

	return htmlSanitizer.Sanitize(buf.String())
}

func isURL(value string) bool {
	return strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://")
}
