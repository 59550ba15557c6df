package document

import (
	"context"
	"time"

	"prescription-chatbot/pkg"
)

// Renderer turns a full HTML page into PDF bytes.
type Renderer interface {
	Render(ctx context.Context, htmlDoc string) ([]byte, error)
}

// Generator produces prescription PDFs from complete records.
type Generator struct {
	Renderer Renderer
	// Now returns the issue date; time.Now when nil.
	Now func() time.Time
}

// NewGenerator constructs a Generator around r.
func NewGenerator(r Renderer) *Generator {
	return &Generator{Renderer: r}
}

// Generate lays out rec with the optional signature and renders it.
func (g *Generator) Generate(ctx context.Context, rec pkg.Record, signature string) ([]byte, error) {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	page, err := BuildHTML(rec, signature, now())
	if err != nil {
		return nil, err
	}
	return g.Renderer.Render(ctx, page)
}
