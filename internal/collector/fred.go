package collector

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"ATHWatch/internal/model"
)

const (
	DefaultFREDURL    = "https://fred.stlouisfed.org/graph/fredgraph.csv"
	DefaultFREDSeries = "CPIAUCSL"
)

// FREDSource reads a monthly series from the FRED graph CSV export (no API key required).
// The CSV has a header row followed by "YYYY-MM-DD,value" rows.
type FREDSource struct {
	BaseURL  string
	SeriesID string
	Client   *http.Client
}

// NewFREDSource creates a CPI source; empty arguments fall back to the CPI-U defaults.
func NewFREDSource(baseURL, seriesID string, client *http.Client) *FREDSource {
	if baseURL == "" {
		baseURL = DefaultFREDURL
	}
	if seriesID == "" {
		seriesID = DefaultFREDSeries
	}
	return &FREDSource{BaseURL: baseURL, SeriesID: seriesID, Client: client}
}

func (s *FREDSource) Name() string { return "cpi" }

func (s *FREDSource) FetchSeries(ctx context.Context) (model.IndexSeries, error) {
	endpoint := s.BaseURL + "?id=" + url.QueryEscape(s.SeriesID)
	body, err := get(ctx, s.Client, "fred", s.SeriesID, endpoint)
	if err != nil {
		return nil, err
	}
	series, err := parseFREDCSV(body)
	if err != nil {
		return nil, newSourceError("fred", s.SeriesID, 0, err)
	}
	return series, nil
}

func parseFREDCSV(body []byte) (model.IndexSeries, error) {
	r := csv.NewReader(bytes.NewReader(body))
	r.FieldsPerRecord = -1

	if _, err := r.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptySeries
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	series := make(model.IndexSeries)
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if len(rec) < 2 {
			continue
		}
		raw := strings.TrimSpace(rec[1])
		if raw == "" || raw == "." { // FRED marks missing observations with "."
			continue
		}
		month, err := model.ParseMonth(strings.TrimSpace(rec[0]))
		if err != nil {
			return nil, err
		}
		v, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("value for %s: %w", month, err)
		}
		series[month] = v
	}
	if len(series) == 0 {
		return nil, ErrEmptySeries
	}
	return series, nil
}
