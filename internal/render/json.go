package render

import (
	"encoding/json"

	"github.com/Delicias2025/delicias-de-mi-patria/internal/schema"
)

type jsonRenderer struct{}

func (r *jsonRenderer) Render(order *schema.Order) ([]byte, error) {
	return json.MarshalIndent(order, "", "  ")
}
