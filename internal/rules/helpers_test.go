package rules

import "github.com/trogers1052/cot-signal-service/internal/models"

func ruleFor(commodity string) models.SignalRule {
	return models.SignalRule{
		Commodity:  commodity,
		BearishMin: 60,
		BearishMax: 70,
		BullishMin: 30,
		BullishMax: 40,
	}
}
