// Package cftc downloads and parses the CFTC disaggregated futures
// Commitments of Traders archives and extracts producer/merchant
// positioning for one commodity.
package cftc

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/trogers1052/cot-signal-service/internal/models"
)

// Column names in the disaggregated futures text files
const (
	ColMarket           = "Market_and_Exchange_Names"
	ColReportDate       = "Report_Date_as_YYYY-MM-DD"
	ColOpenInterest     = "Open_Interest_All"
	ColMerchantLong     = "Prod_Merc_Positions_Long_All"
	ColMerchantShort    = "Prod_Merc_Positions_Short_All"
	ColMerchantLongPct  = "Pct_of_OI_Prod_Merc_Long_All"
	ColMerchantShortPct = "Pct_of_OI_Prod_Merc_Short_All"
)

var requiredColumns = []string{
	ColMarket, ColReportDate, ColOpenInterest,
	ColMerchantLong, ColMerchantShort,
	ColMerchantLongPct, ColMerchantShortPct,
}

// ParseStats counts what happened to the data rows of one file.
type ParseStats struct {
	Rows    int
	Skipped int
}

// ParseReport reads one comma-separated report file. Rows with the wrong
// number of fields or unparseable values are skipped and counted; a file
// missing any required column is an error. Report dates are placed at
// midnight in loc.
func ParseReport(r io.Reader, loc *time.Location) ([]models.FilingReport, ParseStats, error) {
	var stats ParseStats

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, stats, nil
	}
	if err != nil {
		return nil, stats, fmt.Errorf("failed to read header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	var missing []string
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, stats, fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}

	var reports []models.FilingReport
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				stats.Skipped++
				continue
			}
			return nil, stats, fmt.Errorf("failed to read report: %w", err)
		}
		stats.Rows++

		if len(record) != len(header) {
			stats.Skipped++
			continue
		}
		report, err := parseRow(record, idx, loc)
		if err != nil {
			stats.Skipped++
			continue
		}
		reports = append(reports, report)
	}

	return reports, stats, nil
}

func parseRow(record []string, idx map[string]int, loc *time.Location) (models.FilingReport, error) {
	field := func(col string) string { return strings.TrimSpace(record[idx[col]]) }

	date, err := parseDate(field(ColReportDate), loc)
	if err != nil {
		return models.FilingReport{}, err
	}

	var (
		counts [3]int64
		pcts   [2]float64
	)
	for i, col := range []string{ColOpenInterest, ColMerchantLong, ColMerchantShort} {
		v, err := strconv.ParseFloat(field(col), 64)
		if err != nil {
			return models.FilingReport{}, fmt.Errorf("invalid %s: %w", col, err)
		}
		counts[i] = int64(math.Round(v))
	}
	for i, col := range []string{ColMerchantLongPct, ColMerchantShortPct} {
		v, err := strconv.ParseFloat(field(col), 64)
		if err != nil {
			return models.FilingReport{}, fmt.Errorf("invalid %s: %w", col, err)
		}
		pcts[i] = v
	}

	return models.FilingReport{
		Market:           field(ColMarket),
		ReportDate:       date,
		OpenInterest:     counts[0],
		MerchantLong:     counts[1],
		MerchantShort:    counts[2],
		MerchantLongPct:  pcts[0],
		MerchantShortPct: pcts[1],
	}, nil
}

// parseDate accepts YYYY-MM-DD, optionally followed by a time component.
func parseDate(s string, loc *time.Location) (time.Time, error) {
	if len(s) > len(models.DateLayout) {
		s = s[:len(models.DateLayout)]
	}
	t, err := time.ParseInLocation(models.DateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid report date %q: %w", s, err)
	}
	return t, nil
}
