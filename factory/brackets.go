/*
Package factory converts external resource files into deduction types.

PURPOSE:
  The withholding tables and statutory rates change every year. They live
  in files (JSON tables, YAML rates) so a new tax year is a data change,
  not a code change.

BRACKET JSON SCHEMA:
  {
    "version": "2024",
    "tax_brackets": {
      "1060000-1070000": {"1": 1040, "2": 1040, "3": 0},
      ...
    },
    "high_income_brackets": {
      "10000000-14000000": {
        "base_tax": {"1": 1507400, "2": 1431570},
        "rate": 0.35,
        "addition": 25000
      }
    }
  }

  Range keys are "min-max" with min inclusive and max exclusive. Dependent
  columns are string keys holding integer counts.

RATES YAML: see rates.go.

SEE ALSO:
  - deduction/: the engine that consumes these
  - configs/: sample files
*/
package factory

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/deduction"
	"github.com/warp/payroll-engine/generic"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// BracketFileJSON is the on-disk bracket resource.
type BracketFileJSON struct {
	Version            string                                `json:"version,omitempty"`
	TaxBrackets        map[string]map[string]decimal.Decimal `json:"tax_brackets"`
	HighIncomeBrackets map[string]HighIncomeJSON             `json:"high_income_brackets"`
}

type HighIncomeJSON struct {
	BaseTax  map[string]decimal.Decimal `json:"base_tax"`
	Rate     decimal.Decimal            `json:"rate"`
	Addition decimal.Decimal            `json:"addition"`
}

// =============================================================================
// PARSING
// =============================================================================

// ParseBracketTables parses and validates the bracket JSON. Every failure is
// a ConfigurationError.
func ParseBracketTables(data []byte) (deduction.Tables, error) {
	var file BracketFileJSON
	if err := json.Unmarshal(data, &file); err != nil {
		return deduction.Tables{}, configErr(fmt.Errorf("invalid JSON: %w", err))
	}
	if file.TaxBrackets == nil {
		return deduction.Tables{}, configErr(errors.New("missing tax_brackets"))
	}

	tables := deduction.Tables{Version: file.Version}
	for key, cols := range file.TaxBrackets {
		lo, hi, err := parseRange(key)
		if err != nil {
			return deduction.Tables{}, configErr(err)
		}
		tax, err := parseColumns(key, cols)
		if err != nil {
			return deduction.Tables{}, configErr(err)
		}
		tables.Brackets = append(tables.Brackets, deduction.Bracket{Min: lo, Max: hi, Tax: tax})
	}
	for key, row := range file.HighIncomeBrackets {
		lo, hi, err := parseRange(key)
		if err != nil {
			return deduction.Tables{}, configErr(err)
		}
		base, err := parseColumns(key, row.BaseTax)
		if err != nil {
			return deduction.Tables{}, configErr(err)
		}
		tables.HighIncome = append(tables.HighIncome, deduction.HighIncomeBracket{
			Min:      lo,
			Max:      hi,
			BaseTax:  base,
			Rate:     row.Rate,
			Addition: row.Addition.Floor().IntPart(),
		})
	}

	tables.Sort()
	if err := tables.Validate(); err != nil {
		return deduction.Tables{}, err
	}
	return tables, nil
}

// LoadBracketTables reads and parses a bracket file.
func LoadBracketTables(path string) (deduction.Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return deduction.Tables{}, &generic.ConfigurationError{Source: path, Err: err}
	}
	tables, err := ParseBracketTables(data)
	if err != nil {
		var cfgErr *generic.ConfigurationError
		if errors.As(err, &cfgErr) {
			cfgErr.Source = path
		}
		return deduction.Tables{}, err
	}
	return tables, nil
}

func parseRange(key string) (int64, int64, error) {
	lo, hi, ok := strings.Cut(strings.TrimSpace(key), "-")
	if !ok {
		return 0, 0, fmt.Errorf("bracket key %q is not min-max", key)
	}
	from, err := strconv.ParseInt(strings.TrimSpace(lo), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bracket key %q: %w", key, err)
	}
	to, err := strconv.ParseInt(strings.TrimSpace(hi), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bracket key %q: %w", key, err)
	}
	return from, to, nil
}

func parseColumns(key string, cols map[string]decimal.Decimal) (map[int]int64, error) {
	out := make(map[int]int64, len(cols))
	for dep, amount := range cols {
		n, err := strconv.Atoi(strings.TrimSpace(dep))
		if err != nil || n < 1 {
			return nil, fmt.Errorf("bracket %q: dependent column %q must be a positive integer", key, dep)
		}
		if amount.IsNegative() {
			return nil, fmt.Errorf("bracket %q: negative tax for %d dependents", key, n)
		}
		out[n] = amount.Floor().IntPart()
	}
	return out, nil
}

func configErr(err error) error {
	return &generic.ConfigurationError{Source: "brackets", Err: err}
}
