// Package parser normalizes upstream search-results payloads, a nested
// structure of results containing hits, into auction lot records.
package parser

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"valuer/internal/domain"
)

// searchResults mirrors the envelope of the upstream search API.
type searchResults struct {
	Results []struct {
		Hits []json.RawMessage `json:"hits"`
	} `json:"results"`
}

// lotKeys are the hit fields mapped onto fixed AuctionLot fields. Everything
// else lands in Extras.
var lotKeys = map[string]struct{}{
	"lotNumber":       {},
	"lotRef":          {},
	"lotTitle":        {},
	"description":     {},
	"houseName":       {},
	"saleType":        {},
	"dateTimeLocal":   {},
	"dateTimeUTCUnix": {},
	"priceResult":     {},
	"currencyCode":    {},
	"currencySymbol":  {},
	"photoPath":       {},
}

// ParseSearchResults extracts auction lots from a raw search-results payload.
// Hits that fail to parse are logged and skipped; the remaining lots are
// still returned.
func ParseSearchResults(data []byte, logger zerolog.Logger) ([]domain.AuctionLot, error) {
	var payload searchResults
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parser: decode search results: %w", err)
	}

	var lots []domain.AuctionLot
	for _, result := range payload.Results {
		for _, hit := range result.Hits {
			lot, err := parseHit(hit)
			if err != nil {
				logger.Error().Err(err).Msg("parser: skipping unparseable hit")
				continue
			}
			lots = append(lots, lot)
		}
	}
	return lots, nil
}

func parseHit(hit json.RawMessage) (domain.AuctionLot, error) {
	var lot domain.AuctionLot
	if err := json.Unmarshal(hit, &lot); err != nil {
		return domain.AuctionLot{}, fmt.Errorf("decode hit: %w", err)
	}
	if lot.LotRef == "" {
		return domain.AuctionLot{}, fmt.Errorf("hit missing lotRef")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(hit, &fields); err != nil {
		return domain.AuctionLot{}, fmt.Errorf("decode hit fields: %w", err)
	}
	for key, value := range fields {
		if _, known := lotKeys[key]; known {
			continue
		}
		if lot.Extras == nil {
			lot.Extras = make(map[string]json.RawMessage)
		}
		lot.Extras[key] = value
	}
	return lot, nil
}

// ValidateSearchResults checks that the payload has the expected
// results-containing-hits shape before any parsing is attempted. An empty
// results array is valid; a missing one is not.
func ValidateSearchResults(data []byte) error {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("parser: %w: %v", domain.ErrInvalidPayload, err)
	}

	rawResults, ok := envelope["results"]
	if !ok {
		return fmt.Errorf("parser: %w: missing results field", domain.ErrInvalidPayload)
	}

	var results []map[string]json.RawMessage
	if err := json.Unmarshal(rawResults, &results); err != nil {
		return fmt.Errorf("parser: %w: results is not an array", domain.ErrInvalidPayload)
	}
	if len(results) == 0 {
		return nil
	}
	if _, ok := results[0]["hits"]; !ok {
		return fmt.Errorf("parser: %w: first result has no hits field", domain.ErrInvalidPayload)
	}
	return nil
}
