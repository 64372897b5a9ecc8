package cftc

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/trogers1052/cot-signal-service/internal/models"
)

// DefaultURLTemplate is the yearly disaggregated futures-only archive.
const DefaultURLTemplate = "https://www.cftc.gov/files/dea/history/fut_disagg_txt_%d.zip"

// maxArchiveBytes bounds the download; yearly archives are a few MB.
const maxArchiveBytes = 64 << 20

// ArchiveFetcher downloads yearly report archives over HTTP
type ArchiveFetcher struct {
	client      *http.Client
	urlTemplate string
	limiter     *rate.Limiter
	location    *time.Location
	logger      *zap.Logger
}

// NewArchiveFetcher creates a fetcher. urlTemplate must contain one %d for
// the year; an empty template uses DefaultURLTemplate. limiter may be nil.
func NewArchiveFetcher(client *http.Client, urlTemplate string, limiter *rate.Limiter, loc *time.Location, logger *zap.Logger) *ArchiveFetcher {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	if urlTemplate == "" {
		urlTemplate = DefaultURLTemplate
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArchiveFetcher{
		client:      client,
		urlTemplate: urlTemplate,
		limiter:     limiter,
		location:    loc,
		logger:      logger,
	}
}

// FetchFilings downloads the archive for a year and parses every .txt file
// inside it into one concatenated report set.
func (f *ArchiveFetcher) FetchFilings(ctx context.Context, year int) ([]models.FilingReport, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("failed to wait for rate limit for %d archive: %w", year, err)
		}
	}

	url := fmt.Sprintf(f.urlTemplate, year)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", url, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxArchiveBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read archive %s: %w", url, err)
	}

	reports, err := ParseArchive(body, f.location, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to parse archive %s: %w", url, err)
	}

	f.logger.Info("Loaded COT archive",
		zap.Int("year", year),
		zap.Int("reports", len(reports)))
	return reports, nil
}

// ParseArchive reads a zip archive and concatenates the reports of every
// .txt member in archive order.
func ParseArchive(data []byte, loc *time.Location, logger *zap.Logger) ([]models.FilingReport, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open zip: %w", err)
	}

	var reports []models.FilingReport
	for _, file := range zr.File {
		if !strings.EqualFold(path.Ext(file.Name), ".txt") {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", file.Name, err)
		}
		parsed, stats, err := ParseReport(rc, loc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", file.Name, err)
		}

		if stats.Skipped > 0 {
			logger.Warn("Skipped malformed COT rows",
				zap.String("file", file.Name),
				zap.Int("skipped", stats.Skipped),
				zap.Int("rows", stats.Rows))
		}
		reports = append(reports, parsed...)
	}
	return reports, nil
}
