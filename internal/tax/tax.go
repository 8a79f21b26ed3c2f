package tax

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultRate applies to any state the table does not know (7%).
var DefaultRate = decimal.RequireFromString("0.07")

// Table maps a state to its sales tax rate as a fraction (0.0625 for 6.25%).
// A Table is immutable once built and safe for concurrent use.
type Table struct {
	rates       map[string]decimal.Decimal
	defaultRate decimal.Decimal
}

var builtin = newBuiltin()

func newBuiltin() *Table {
	t := &Table{
		rates:       make(map[string]decimal.Decimal, 2*len(stateRates)),
		defaultRate: DefaultRate,
	}
	pct := decimal.NewFromInt(100)
	for _, s := range stateRates {
		r := decimal.RequireFromString(s.rate).Div(pct)
		t.rates[normalize(s.name)] = r
		t.rates[normalize(s.abbrev)] = r
	}
	return t
}

// Default returns the built-in US state table.
func Default() *Table { return builtin }

// WithDefault returns a copy of t whose unmatched-state rate is rate.
func (t *Table) WithDefault(rate decimal.Decimal) (*Table, error) {
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("default tax rate %s must be in [0, 1)", rate)
	}
	return &Table{rates: t.rates, defaultRate: rate}, nil
}

// Rate returns the rate for state, matched by full name or USPS abbreviation
// ignoring case and surrounding whitespace. Unknown states get the default rate.
func (t *Table) Rate(state string) decimal.Decimal {
	if r, ok := t.rates[normalize(state)]; ok {
		return r
	}
	return t.defaultRate
}

// Known reports whether state is in the table.
func (t *Table) Known(state string) bool {
	_, ok := t.rates[normalize(state)]
	return ok
}

// Rate looks up state in the built-in table.
func Rate(state string) decimal.Decimal { return builtin.Rate(state) }

// States returns the full state names in the built-in table, sorted.
func States() []string {
	out := make([]string, 0, len(stateRates))
	for _, s := range stateRates {
		out = append(out, s.name)
	}
	sort.Strings(out)
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
