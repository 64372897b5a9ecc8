package cftc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trogers1052/cot-signal-service/internal/analysis"
	"github.com/trogers1052/cot-signal-service/internal/models"
	"github.com/trogers1052/cot-signal-service/internal/rules"
)

var marketNames = []string{
	"CRUDE OIL, LIGHT SWEET-WTI - ICE FUTURES EUROPE",
	"WTI FINANCIAL CRUDE OIL - NEW YORK MERCANTILE EXCHANGE",
	"WTI-PHYSICAL - NEW YORK MERCANTILE EXCHANGE",
	"NATURAL GAS (HENRY HUB) - ICE FUTURES U.S.",
	"NAT GAS NYME - NEW YORK MERCANTILE EXCHANGE",
	"GOLD - COMMODITY EXCHANGE INC.",
	"MICRO GOLD - COMMODITY EXCHANGE INC.",
	"SILVER - COMMODITY EXCHANGE INC.",
	"COPPER- #1 - COMMODITY EXCHANGE INC.",
	"CORN - CHICAGO BOARD OF TRADE",
	"SOYBEANS - CHICAGO BOARD OF TRADE",
	"SOYBEAN OIL - CHICAGO BOARD OF TRADE",
	"SOYBEAN MEAL - CHICAGO BOARD OF TRADE",
	"WHEAT-SRW - CHICAGO BOARD OF TRADE",
	"WHEAT-HRW - CHICAGO BOARD OF TRADE",
	"WHEAT-HRSpring - MIAX FUTURES EXCHANGE",
}

func reportsFor(markets []string, date time.Time) []models.FilingReport {
	reports := make([]models.FilingReport, 0, len(markets))
	for i, m := range markets {
		reports = append(reports, models.FilingReport{
			Market:           m,
			ReportDate:       date,
			OpenInterest:     int64(1000 * (i + 1)),
			MerchantLongPct:  float64(i),
			MerchantShortPct: float64(50 - i),
		})
	}
	return reports
}

func TestMerchantPositions_ResolvesCatalogCommodities(t *testing.T) {
	reports := reportsFor(marketNames, time.Date(2024, 1, 2, 0, 0, 0, 0, ny))

	tests := []struct {
		commodity string
		expected  []string
	}{
		{"Crude Oil", []string{
			"CRUDE OIL, LIGHT SWEET-WTI - ICE FUTURES EUROPE",
			"WTI FINANCIAL CRUDE OIL - NEW YORK MERCANTILE EXCHANGE",
		}},
		{"Natural Gas", []string{"NATURAL GAS (HENRY HUB) - ICE FUTURES U.S."}},
		{"Gold", []string{
			"GOLD - COMMODITY EXCHANGE INC.",
			"MICRO GOLD - COMMODITY EXCHANGE INC.",
		}},
		{"Silver", []string{"SILVER - COMMODITY EXCHANGE INC."}},
		{"Copper", []string{"COPPER- #1 - COMMODITY EXCHANGE INC."}},
		{"Corn", []string{"CORN - CHICAGO BOARD OF TRADE"}},
		{"Soybeans", []string{"SOYBEANS - CHICAGO BOARD OF TRADE"}},
		{"Wheat", []string{
			"WHEAT-SRW - CHICAGO BOARD OF TRADE",
			"WHEAT-HRW - CHICAGO BOARD OF TRADE",
			"WHEAT-HRSpring - MIAX FUTURES EXCHANGE",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.commodity, func(t *testing.T) {
			series := MerchantPositions(reports, tt.commodity)
			assert.Equal(t, tt.expected, series.Markets())
		})
	}
}

func TestMerchantPositions_SortsByDateStably(t *testing.T) {
	jan9 := time.Date(2024, 1, 9, 0, 0, 0, 0, ny)
	jan2 := time.Date(2024, 1, 2, 0, 0, 0, 0, ny)
	reports := []models.FilingReport{
		{Market: "GOLD - COMEX", ReportDate: jan9, MerchantLongPct: 1},
		{Market: "MICRO GOLD - COMEX", ReportDate: jan2, MerchantLongPct: 2},
		{Market: "GOLD - COMEX", ReportDate: jan2, MerchantLongPct: 3},
		{Market: "SILVER - COMEX", ReportDate: jan2, MerchantLongPct: 4},
	}

	series := MerchantPositions(reports, "gold")
	require.Len(t, series, 3)
	assert.Equal(t, 2.0, series[0].MerchantLongPct)
	assert.Equal(t, 3.0, series[1].MerchantLongPct)
	assert.Equal(t, 1.0, series[2].MerchantLongPct)
	assert.NoError(t, series.Validate())
}

func TestMerchantPositions_NoMatch(t *testing.T) {
	reports := reportsFor(marketNames, time.Date(2024, 1, 2, 0, 0, 0, 0, ny))

	assert.Empty(t, MerchantPositions(reports, "Platinum"))
	assert.Empty(t, MerchantPositions(reports, "   "))
	assert.Empty(t, MerchantPositions(nil, "Gold"))
}

func TestMerchantPositions_CopiesValues(t *testing.T) {
	date := time.Date(2024, 1, 2, 0, 0, 0, 0, ny)
	reports := []models.FilingReport{{
		Market:           "CORN - CHICAGO BOARD OF TRADE",
		ReportDate:       date,
		OpenInterest:     1500000,
		MerchantLong:     300000,
		MerchantShort:    600000,
		MerchantLongPct:  20.4,
		MerchantShortPct: 39.9,
	}}

	series := MerchantPositions(reports, "Corn")
	require.Len(t, series, 1)
	p := series[0]
	assert.True(t, p.Date.Equal(date))
	assert.Equal(t, int64(1500000), p.OpenInterest)
	assert.Equal(t, int64(300000), p.MerchantLong)
	assert.Equal(t, int64(600000), p.MerchantShort)
	assert.Equal(t, 20.4, p.MerchantLongPct)
	assert.Equal(t, 39.9, p.MerchantShortPct)
}

// Classifying normalized output must agree with classifying the raw rows.
func TestMerchantPositions_ClassificationRoundTrip(t *testing.T) {
	table, err := rules.Load("")
	require.NoError(t, err)

	text := reportText(
		row{"GOLD - COMMODITY EXCHANGE INC.", "2024-01-02", 500000, 60000, 300000, 12.0, 60.0},
		row{"GOLD - COMMODITY EXCHANGE INC.", "2024-01-09", 500000, 90000, 150000, 18.0, 30.0},
		row{"SILVER - COMMODITY EXCHANGE INC.", "2024-01-02", 150000, 30000, 90000, 20.0, 60.0},
		row{"CORN - CHICAGO BOARD OF TRADE", "2024-01-09", 1500000, 750000, 300000, 50.0, 20.0},
	)
	reports, _, err := ParseReport(stringsReader(text), ny)
	require.NoError(t, err)

	for _, commodity := range []string{"Gold", "Silver", "Corn"} {
		series := MerchantPositions(reports, commodity)
		require.NotEmpty(t, series, commodity)

		var raw []models.FilingReport
		for _, r := range reports {
			if containsFold(r.Market, commodity) {
				raw = append(raw, r)
			}
		}
		require.Len(t, series, len(raw))

		for i, p := range series {
			expected := analysis.Classify(raw[i].MerchantShortPct, raw[i].MerchantLongPct, table, commodity)
			actual := analysis.Classify(p.MerchantShortPct, p.MerchantLongPct, table, commodity)
			assert.Equal(t, expected, actual, "%s row %d", commodity, i)
		}
	}
}
