// Package analysis turns merchant positioning and price series into
// signals, a weekly signal history, a positioning accuracy table and a
// daily trend/open-interest alignment.
//
// Every function is pure and tolerant of empty input: an empty series
// produces an empty result, never an error. Timestamps are expected to be
// normalized to the market timezone at ingestion; weeks are calendar weeks
// ending Sunday and days are calendar days in the supplied location.
package analysis
