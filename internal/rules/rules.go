// Package rules loads the per-commodity signal thresholds.
//
// The table is a CSV with the columns Commodity, Bearish_Range and
// Bullish_Range, where each range is written "min-max" in percent of open
// interest. Any structural problem is reported as ErrMalformedRules: there
// is no sensible default threshold, so callers should refuse to start.
package rules

import (
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/trogers1052/cot-signal-service/internal/models"
)

//go:embed cot_signals.csv
var defaultTable []byte

// ErrMalformedRules is wrapped by every load error.
var ErrMalformedRules = errors.New("malformed signal rules")

const (
	colCommodity = "Commodity"
	colBearish   = "Bearish_Range"
	colBullish   = "Bullish_Range"
)

// Table is an immutable set of signal rules keyed by commodity name.
type Table struct {
	rules map[string]models.SignalRule
	order []string
}

// Load reads the table at path, or the embedded default when path is empty.
func Load(path string) (*Table, error) {
	if path == "" {
		return Parse(strings.NewReader(string(defaultTable)))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open rules file %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a rules CSV. When a commodity appears more than once the
// first row wins.
func Parse(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty table", ErrMalformedRules)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read header: %v", ErrMalformedRules, err)
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, col := range []string{colCommodity, colBearish, colBullish} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("%w: missing column %s", ErrMalformedRules, col)
		}
	}

	t := &Table{rules: make(map[string]models.SignalRule)}
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedRules, line, err)
		}

		rule, err := parseRow(record, idx)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedRules, line, err)
		}
		if _, exists := t.rules[rule.Commodity]; exists {
			continue
		}
		t.rules[rule.Commodity] = rule
		t.order = append(t.order, rule.Commodity)
	}

	if len(t.rules) == 0 {
		return nil, fmt.Errorf("%w: no rules defined", ErrMalformedRules)
	}
	return t, nil
}

func parseRow(record []string, idx map[string]int) (models.SignalRule, error) {
	commodity := strings.TrimSpace(record[idx[colCommodity]])
	if commodity == "" {
		return models.SignalRule{}, errors.New("empty commodity")
	}

	bearMin, bearMax, err := parseRange(record[idx[colBearish]])
	if err != nil {
		return models.SignalRule{}, fmt.Errorf("%s %s: %v", commodity, colBearish, err)
	}
	bullMin, bullMax, err := parseRange(record[idx[colBullish]])
	if err != nil {
		return models.SignalRule{}, fmt.Errorf("%s %s: %v", commodity, colBullish, err)
	}

	return models.SignalRule{
		Commodity:  commodity,
		BearishMin: bearMin,
		BearishMax: bearMax,
		BullishMin: bullMin,
		BullishMax: bullMax,
	}, nil
}

// parseRange splits "min-max" into two bounds within [0,100].
func parseRange(s string) (float64, float64, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("range %q is not min-max", s)
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid minimum %q", parts[0])
	}
	hi, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid maximum %q", parts[1])
	}
	if lo > hi {
		return 0, 0, fmt.Errorf("minimum %g exceeds maximum %g", lo, hi)
	}
	if lo < 0 || hi > 100 {
		return 0, 0, fmt.Errorf("range %g-%g outside 0-100", lo, hi)
	}
	return lo, hi, nil
}

// NewTable builds a table from rules already in memory. The first rule for
// a commodity wins.
func NewTable(rules ...models.SignalRule) *Table {
	t := &Table{rules: make(map[string]models.SignalRule, len(rules))}
	for _, r := range rules {
		if _, exists := t.rules[r.Commodity]; exists {
			continue
		}
		t.rules[r.Commodity] = r
		t.order = append(t.order, r.Commodity)
	}
	return t
}

// Lookup returns the rule for an exact commodity name.
func (t *Table) Lookup(commodity string) (models.SignalRule, bool) {
	if t == nil {
		return models.SignalRule{}, false
	}
	r, ok := t.rules[commodity]
	return r, ok
}

// Rules returns all rules in file order.
func (t *Table) Rules() []models.SignalRule {
	out := make([]models.SignalRule, 0, len(t.order))
	for _, c := range t.order {
		out = append(out, t.rules[c])
	}
	return out
}

// Describe renders the ranges for display.
func Describe(r models.SignalRule) string {
	return fmt.Sprintf("Bullish when Short %% is between %g%% and %g%%; Bearish when Long %% is between %g%% and %g%%",
		r.BullishMin, r.BullishMax, r.BearishMin, r.BearishMax)
}
