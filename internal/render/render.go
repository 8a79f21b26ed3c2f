package render

import (
	"fmt"

	"github.com/Delicias2025/delicias-de-mi-patria/internal/schema"
)

// Renderer formats an order receipt into bytes for output.
type Renderer interface {
	Render(order *schema.Order) ([]byte, error)
}

// NewRenderer returns a Renderer for the given format string.
// Supported formats: "json" (default), "md".
func NewRenderer(format string) (Renderer, error) {
	switch format {
	case "json", "":
		return &jsonRenderer{}, nil
	case "md":
		return &markdownRenderer{}, nil
	default:
		return nil, fmt.Errorf("unknown format %q: supported formats are json, md", format)
	}
}
