package cftc

import (
	"fmt"
	"strings"
	"time"

	"github.com/trogers1052/cot-signal-service/internal/models"
)

var ny = mustLocation("America/New_York")

func mustLocation(name string) *time.Location {
	loc, err := models.LoadMarketLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

const testHeader = `"Market_and_Exchange_Names","As_of_Date_In_Form_YYMMDD","Report_Date_as_YYYY-MM-DD","Open_Interest_All","Prod_Merc_Positions_Long_All","Prod_Merc_Positions_Short_All","Pct_of_OI_Prod_Merc_Long_All","Pct_of_OI_Prod_Merc_Short_All"`

type row struct {
	market   string
	date     string
	oi       int64
	long     int64
	short    int64
	longPct  float64
	shortPct float64
}

func reportText(rows ...row) string {
	var b strings.Builder
	b.WriteString(testHeader)
	b.WriteString("\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "%q,%s,%s,%d,%d,%d,%.1f,%.1f\n",
			r.market, strings.ReplaceAll(r.date[2:], "-", ""), r.date,
			r.oi, r.long, r.short, r.longPct, r.shortPct)
	}
	return b.String()
}

func stringsReader(s string) *strings.Reader {
	return strings.NewReader(s)
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
