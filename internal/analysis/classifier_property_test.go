package analysis

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/trogers1052/cot-signal-service/internal/models"
	"github.com/trogers1052/cot-signal-service/internal/rules"
)

func TestClassify_Property(t *testing.T) {
	table, err := rules.Load("")
	if err != nil {
		t.Fatalf("load rules: %v", err)
	}
	commodities := []string{"Crude Oil", "Natural Gas", "Gold", "Silver", "Copper", "Corn", "Soybeans", "Wheat"}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("signal is always one of the known values", prop.ForAll(
		func(idx int, shortPct, longPct float64) bool {
			sig := Classify(shortPct, longPct, table, commodities[idx])
			return sig.Type.Valid()
		},
		gen.IntRange(0, len(commodities)-1),
		gen.Float64Range(0, 100),
		gen.Float64Range(0, 100),
	))

	properties.Property("unknown commodity is neutral without reasons", prop.ForAll(
		func(shortPct, longPct float64) bool {
			sig := Classify(shortPct, longPct, table, "Orange Juice")
			return sig.Type == models.SignalNeutral && len(sig.Reasons) == 0
		},
		gen.Float64Range(-50, 150),
		gen.Float64Range(-50, 150),
	))

	properties.Property("bearish whenever long % is in the bearish range", prop.ForAll(
		func(idx int, shortPct, frac float64) bool {
			rule, _ := table.Lookup(commodities[idx])
			longPct := rule.BearishMin + frac*(rule.BearishMax-rule.BearishMin)
			return Classify(shortPct, longPct, table, commodities[idx]).Type == models.SignalBearish
		},
		gen.IntRange(0, len(commodities)-1),
		gen.Float64Range(0, 100),
		gen.Float64Range(0, 1),
	))

	properties.Property("reason count matches fired checks", prop.ForAll(
		func(idx int, shortPct, longPct float64) bool {
			rule, _ := table.Lookup(commodities[idx])
			want := 0
			if shortPct >= rule.BullishMin && shortPct <= rule.BullishMax {
				want++
			}
			if longPct >= rule.BearishMin && longPct <= rule.BearishMax {
				want++
			}
			return len(Classify(shortPct, longPct, table, commodities[idx]).Reasons) == want
		},
		gen.IntRange(0, len(commodities)-1),
		gen.Float64Range(0, 100),
		gen.Float64Range(0, 100),
	))

	properties.TestingRun(t)
}
