// Package markup Markdown -> HTML saneado para las tarjetas y limpieza de texto libre.
package markup

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/jhoicas/appstore-api/internal/application/ports"
)

var _ ports.Markup = (*Renderer)(nil)

type Renderer struct {
	md     goldmark.Markdown
	ugc    *bluemonday.Policy
	strict *bluemonday.Policy
}

func NewRenderer() *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
	)
	ugc := bluemonday.UGCPolicy()
	ugc.RequireNoFollowOnLinks(true)
	ugc.AddTargetBlankToFullyQualifiedLinks(true)
	return &Renderer{md: md, ugc: ugc, strict: bluemonday.StrictPolicy()}
}

// RenderMarkdown descripciones del catálogo; el HTML crudo embebido se sanea con la política UGC.
func (r *Renderer) RenderMarkdown(src string) (string, error) {
	if strings.TrimSpace(src) == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("markdown: %w", err)
	}
	return r.ugc.Sanitize(buf.String()), nil
}

// StripTags elimina todo el HTML y devuelve texto plano (sin entidades escapadas).
func (r *Renderer) StripTags(s string) string {
	return html.UnescapeString(r.strict.Sanitize(s))
}
