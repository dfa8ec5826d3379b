package report

import (
	"bytes"
	"context"
	"fmt"

	"github.com/pumpline-erp/pumpline/internal/view"
)

// Renderer executes a console template outside of a request and converts
// the result to PDF.
type Renderer struct {
	client *Client
	engine *view.Engine
}

// NewRenderer constructs a Renderer.
func NewRenderer(client *Client, engine *view.Engine) *Renderer {
	return &Renderer{client: client, engine: engine}
}

// Render produces the PDF of template name.
func (r *Renderer) Render(ctx context.Context, name, title string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.engine.Execute(&buf, name, view.TemplateData{Title: title, Data: data}); err != nil {
		return nil, fmt.Errorf("report: execute %s: %w", name, err)
	}
	return r.client.RenderHTML(ctx, buf.Bytes())
}
