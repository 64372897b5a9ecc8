package analysis

import (
	"time"

	"github.com/trogers1052/cot-signal-service/internal/models"
	"github.com/trogers1052/cot-signal-service/internal/rules"
)

var ny = mustLocation("America/New_York")

func mustLocation(name string) *time.Location {
	loc, err := models.LoadMarketLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, ny)
}

func testRules() *rules.Table {
	return rules.NewTable(models.SignalRule{
		Commodity:  "TEST",
		BullishMin: 30,
		BullishMax: 40,
		BearishMin: 60,
		BearishMax: 70,
	})
}

func position(date time.Time, shortPct, longPct float64) models.MerchantPosition {
	return models.MerchantPosition{
		Date:             date,
		Market:           "TEST - EXCHANGE",
		MerchantShortPct: shortPct,
		MerchantLongPct:  longPct,
		OpenInterest:     1000,
	}
}

func bar(ts time.Time, px float64) models.PriceBar {
	return models.PriceBar{Timestamp: ts, Open: px, High: px, Low: px, Close: px}
}
