package analysis

import (
	"fmt"

	"github.com/trogers1052/cot-signal-service/internal/models"
)

// RuleSource resolves the thresholds for a commodity.
type RuleSource interface {
	Lookup(commodity string) (models.SignalRule, bool)
}

// Classify maps one (short %, long %) observation to a signal.
//
// The bullish check (short % inside the bullish range) and the bearish check
// (long % inside the bearish range) are evaluated independently, bullish
// first. When both fire the result is BEARISH and both reasons are kept.
// Ranges are closed at both ends. An unknown commodity is NEUTRAL with no
// reasons.
func Classify(shortPct, longPct float64, rules RuleSource, commodity string) models.Signal {
	sig := models.Signal{Type: models.SignalNeutral, Reasons: []string{}}
	if rules == nil {
		return sig
	}
	rule, ok := rules.Lookup(commodity)
	if !ok {
		return sig
	}

	if shortPct >= rule.BullishMin && shortPct <= rule.BullishMax {
		sig.Type = models.SignalBullish
		sig.Reasons = append(sig.Reasons, fmt.Sprintf("Short %.1f%% in bullish range", shortPct))
	}
	if longPct >= rule.BearishMin && longPct <= rule.BearishMax {
		sig.Type = models.SignalBearish
		sig.Reasons = append(sig.Reasons, fmt.Sprintf("Long %.1f%% in bearish range", longPct))
	}
	return sig
}
