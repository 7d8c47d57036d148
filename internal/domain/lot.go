package domain

import (
	"encoding/json"
	"time"
)

// AuctionLot is one auction item as parsed from a search-results payload.
// The fixed fields mirror the hit schema of the upstream search API; any
// keys the parser does not recognize are preserved verbatim in Extras so
// the record can round-trip into the persisted raw_data payload.
type AuctionLot struct {
	LotNumber       string  `json:"lotNumber"`
	LotRef          string  `json:"lotRef"`
	LotTitle        string  `json:"lotTitle"`
	Description     string  `json:"description,omitempty"`
	HouseName       string  `json:"houseName"`
	SaleType        string  `json:"saleType"`
	DateTimeLocal   string  `json:"dateTimeLocal"`
	DateTimeUTCUnix int64   `json:"dateTimeUTCUnix"`
	PriceResult     float64 `json:"priceResult"`
	CurrencyCode    string  `json:"currencyCode"`
	CurrencySymbol  string  `json:"currencySymbol"`
	PhotoPath       string  `json:"photoPath"`

	Extras map[string]json.RawMessage `json:"-"`
}

// StoredLot is the durable catalog record for a processed auction lot.
// StoragePath holds the storage reference of the processed image and is
// empty when image processing failed or was skipped.
type StoredLot struct {
	ID                string    `json:"id"`
	LotNumber         string    `json:"lotNumber"`
	LotRef            string    `json:"lotRef"`
	LotTitle          string    `json:"lotTitle"`
	Description       string    `json:"description,omitempty"`
	HouseName         string    `json:"houseName"`
	SaleType          string    `json:"saleType"`
	DateTimeLocal     string    `json:"dateTimeLocal"`
	DateTimeUTCUnix   int64     `json:"dateTimeUTCUnix"`
	PriceResult       float64   `json:"priceResult"`
	CurrencyCode      string    `json:"currencyCode"`
	CurrencySymbol    string    `json:"currencySymbol"`
	OriginalPhotoPath string    `json:"originalPhotoPath"`
	StoragePath       string    `json:"storagePath,omitempty"`
	RawData           []byte    `json:"rawData,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
	ProcessedAt       time.Time `json:"processedAt"`
}
