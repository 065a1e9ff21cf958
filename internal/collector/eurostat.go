package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"ATHWatch/internal/model"
)

// DefaultEurostatURL is the euro-area all-items HICP, 2015=100.
const DefaultEurostatURL = "https://ec.europa.eu/eurostat/api/dissemination/statistics/1.0/data/" +
	"prc_hicp_midx?geo=EA19&coicop=CP00&unit=I15"

// EurostatSource reads a monthly HICP series from the Eurostat dissemination API.
type EurostatSource struct {
	URL    string
	Client *http.Client
}

func NewEurostatSource(endpoint string, client *http.Client) *EurostatSource {
	if endpoint == "" {
		endpoint = DefaultEurostatURL
	}
	return &EurostatSource{URL: endpoint, Client: client}
}

func (s *EurostatSource) Name() string { return "hicp" }

// jsonStat is the subset of the JSON-stat 2.0 dataset we read. All other
// dimensions are fixed by the query, so the time position indexes value directly.
type jsonStat struct {
	Value     map[string]decimal.Decimal `json:"value"`
	Dimension struct {
		Time struct {
			Category struct {
				Index map[string]int `json:"index"`
			} `json:"category"`
		} `json:"time"`
	} `json:"dimension"`
}

func (s *EurostatSource) FetchSeries(ctx context.Context) (model.IndexSeries, error) {
	body, err := get(ctx, s.Client, "eurostat", "prc_hicp_midx", s.URL)
	if err != nil {
		return nil, err
	}
	series, err := parseJSONStat(body)
	if err != nil {
		return nil, newSourceError("eurostat", "prc_hicp_midx", 0, err)
	}
	return series, nil
}

func parseJSONStat(body []byte) (model.IndexSeries, error) {
	var ds jsonStat
	if err := json.Unmarshal(body, &ds); err != nil {
		return nil, fmt.Errorf("decode json-stat: %w", err)
	}

	series := make(model.IndexSeries, len(ds.Dimension.Time.Category.Index))
	for label, pos := range ds.Dimension.Time.Category.Index {
		v, ok := ds.Value[strconv.Itoa(pos)]
		if !ok {
			continue // not yet published
		}
		// Older releases label months as 1996M01.
		month, err := model.ParseMonth(strings.Replace(label, "M", "-", 1))
		if err != nil {
			return nil, err
		}
		series[month] = v
	}
	if len(series) == 0 {
		return nil, ErrEmptySeries
	}
	return series, nil
}
