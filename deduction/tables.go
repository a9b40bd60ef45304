package deduction

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/generic"
)

// =============================================================================
// BRACKETS - min <= taxable < max
// =============================================================================

// Bracket is one row of the withholding table. Tax is keyed by dependent
// count (1 and up).
type Bracket struct {
	Min int64
	Max int64
	Tax map[int]int64
}

func (b Bracket) contains(amount int64) bool {
	return amount >= b.Min && amount < b.Max
}

// HighIncomeBracket is one row of the table used at and above the
// high-income threshold.
type HighIncomeBracket struct {
	Min      int64
	Max      int64
	BaseTax  map[int]int64
	Rate     decimal.Decimal
	Addition int64
}

func (b HighIncomeBracket) contains(amount int64) bool {
	return amount >= b.Min && amount < b.Max
}

// Tables is the versioned, read-only bracket resource. Brackets are sorted
// by Min.
type Tables struct {
	Version    string
	Brackets   []Bracket
	HighIncome []HighIncomeBracket
}

// Sort orders both tables by lower bound. The factory calls it after parsing.
func (t *Tables) Sort() {
	sort.Slice(t.Brackets, func(i, j int) bool { return t.Brackets[i].Min < t.Brackets[j].Min })
	sort.Slice(t.HighIncome, func(i, j int) bool { return t.HighIncome[i].Min < t.HighIncome[j].Min })
}

// Validate rejects tables no result could be correct with: empty, inverted
// ranges, overlapping ranges, or rows without any dependent column.
func (t Tables) Validate() error {
	if len(t.Brackets) == 0 {
		return &generic.ConfigurationError{Source: "brackets", Err: errors.New("tax_brackets is empty")}
	}
	for i, b := range t.Brackets {
		if b.Max <= b.Min || b.Min < 0 {
			return &generic.ConfigurationError{Source: "brackets", Err: fmt.Errorf("bracket %d-%d is inverted", b.Min, b.Max)}
		}
		if len(b.Tax) == 0 {
			return &generic.ConfigurationError{Source: "brackets", Err: fmt.Errorf("bracket %d-%d has no dependent columns", b.Min, b.Max)}
		}
		if i > 0 && b.Min < t.Brackets[i-1].Max {
			return &generic.ConfigurationError{Source: "brackets", Err: fmt.Errorf("bracket %d-%d overlaps %d-%d", b.Min, b.Max, t.Brackets[i-1].Min, t.Brackets[i-1].Max)}
		}
	}
	for _, b := range t.HighIncome {
		if b.Max <= b.Min {
			return &generic.ConfigurationError{Source: "high_income_brackets", Err: fmt.Errorf("bracket %d-%d is inverted", b.Min, b.Max)}
		}
		if len(b.BaseTax) == 0 {
			return &generic.ConfigurationError{Source: "high_income_brackets", Err: fmt.Errorf("bracket %d-%d has no base_tax", b.Min, b.Max)}
		}
	}
	return nil
}

// lookup finds the withholding row. below is true when the amount is under
// the first row, which means no tax is withheld.
func (t Tables) lookup(amount int64) (row Bracket, below bool, ok bool) {
	if len(t.Brackets) == 0 {
		return Bracket{}, false, false
	}
	if amount < t.Brackets[0].Min {
		return Bracket{}, true, false
	}
	i := sort.Search(len(t.Brackets), func(i int) bool { return t.Brackets[i].Max > amount })
	if i < len(t.Brackets) && t.Brackets[i].contains(amount) {
		return t.Brackets[i], false, true
	}
	return Bracket{}, false, false
}

func (t Tables) lookupHighIncome(amount int64) (HighIncomeBracket, bool) {
	for _, b := range t.HighIncome {
		if b.contains(amount) {
			return b, true
		}
	}
	return HighIncomeBracket{}, false
}

// column picks the largest dependent column that does not exceed the
// employee's count. Counts below 1 use the single-earner column.
func column(cols map[int]int64, dependents int) (int64, bool) {
	dependents = max(dependents, 1)
	best, found := 0, false
	for k := range cols {
		if k <= dependents && (!found || k > best) {
			best, found = k, true
		}
	}
	if !found {
		return 0, false
	}
	return cols[best], true
}
