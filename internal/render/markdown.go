package render

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/shopspring/decimal"

	"github.com/Delicias2025/delicias-de-mi-patria/internal/schema"
)

type markdownRenderer struct{}

var mdTemplate = template.Must(template.New("receipt").Funcs(template.FuncMap{
	"money": func(d decimal.Decimal) string { return "$" + d.StringFixed(2) },
	"pct":   func(d decimal.Decimal) string { return d.Shift(2).String() + "%" },
}).Parse(`# Delicias de mi Patria: {{ if .Number }}Order {{ .Number }}{{ else }}Quote{{ end }}
{{ if .Status }}
**Status:** {{ .Status }}{{ end }}{{ if .Customer.Name }}
**Customer:** {{ .Customer.Name }} <{{ .Customer.Email }}>{{ end }}{{ if .ShippingAddress.Line1 }}
**Ship to:** {{ .ShippingAddress.Line1 }}, {{ .ShippingAddress.City }}, {{ .ShippingAddress.State }} {{ .ShippingAddress.PostalCode }}{{ end }}

| Item | Qty | Unit | Line |
|------|----:|-----:|-----:|
{{ range .Items }}| {{ if .Name }}{{ .Name }}{{ else }}{{ .ProductID }}{{ end }} | {{ .Quantity }} | {{ money .UnitPrice }} | {{ money .LineTotal }} |
{{ end }}
| | |
|---|---:|
| Subtotal | {{ money .Totals.Subtotal }} |
| Shipping | {{ money .Totals.Shipping }} |
| Tax ({{ pct .Totals.TaxRate }}) | {{ money .Totals.Tax }} |
{{ if .Totals.Discount.IsPositive }}| Discount{{ if .PromotionCode }} ({{ .PromotionCode }}){{ end }} | -{{ money .Totals.Discount }} |
{{ end }}| **Total** | **{{ money .Totals.Total }}** |
{{ if .Payment.Method }}
*Paid by {{ .Payment.Method }}{{ if .Payment.Last4 }} ending {{ .Payment.Last4 }}{{ end }}{{ if .Payment.Reference }} · ref {{ .Payment.Reference }}{{ end }}*
{{ end }}`))

func (r *markdownRenderer) Render(order *schema.Order) ([]byte, error) {
	var buf bytes.Buffer
	if err := mdTemplate.Execute(&buf, order); err != nil {
		return nil, fmt.Errorf("rendering markdown: %w", err)
	}
	return buf.Bytes(), nil
}
