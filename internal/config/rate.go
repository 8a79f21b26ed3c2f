package config

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// TaxDefaultRate parses Tax.DefaultRate. An empty value yields ok=false.
func (c *Config) TaxDefaultRate() (rate decimal.Decimal, ok bool, err error) {
	if c.Tax.DefaultRate == "" {
		return decimal.Zero, false, nil
	}
	rate, err = decimal.NewFromString(c.Tax.DefaultRate)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("tax.default_rate %q is not a number", c.Tax.DefaultRate)
	}
	return rate, true, nil
}

func checkRate(s string) error {
	rate, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("tax.default_rate %q is not a number", s)
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("tax.default_rate %s must be in [0, 1)", rate)
	}
	return nil
}
