package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mohammed-shakir/geoitems/internal/core/model"
	"github.com/mohammed-shakir/geoitems/internal/core/observability"
)

const DefaultGeocodioURL = "https://api.geocod.io"

// Geocodio calls the geocod.io v1.7 forward geocoding endpoint.
type Geocodio struct {
	base   *url.URL
	apiKey string
	http   *http.Client
}

func NewGeocodio(baseURL, apiKey string, hc *http.Client) (*Geocodio, error) {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultGeocodioURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse geocoder url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("geocoder url %q must be absolute", baseURL)
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Geocodio{base: u, apiKey: apiKey, http: hc}, nil
}

type geocodioResponse struct {
	Results []struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
		Accuracy float64 `json:"accuracy"`
	} `json:"results"`
	Error string `json:"error"`
}

// Geocode takes the first result; geocodio orders results by likelihood.
func (g *Geocodio) Geocode(ctx context.Context, address string) (model.Point, bool, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return model.Point{}, false, fmt.Errorf("%w: empty address", model.ErrInvalidInput)
	}

	u := g.base.JoinPath("v1.7", "geocode")
	q := u.Query()
	q.Set("q", address)
	if g.apiKey != "" {
		q.Set("api_key", g.apiKey)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return model.Point{}, false, fmt.Errorf("build geocode request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := g.http.Do(req)
	observability.ObserveUpstreamLatency("geocodio", time.Since(start).Seconds())
	if err != nil {
		return model.Point{}, false, fmt.Errorf("geocode request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return model.Point{}, false, fmt.Errorf("read geocode response: %w", err)
	}

	var out geocodioResponse
	decodeErr := json.Unmarshal(body, &out)

	switch {
	case resp.StatusCode == http.StatusUnprocessableEntity:
		// geocodio answers 422 for addresses it cannot parse
		return model.Point{}, false, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		msg := strings.TrimSpace(out.Error)
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return model.Point{}, false, fmt.Errorf("geocoder status %d: %s", resp.StatusCode, msg)
	case decodeErr != nil:
		return model.Point{}, false, fmt.Errorf("decode geocode response: %w", decodeErr)
	}

	if len(out.Results) == 0 {
		return model.Point{}, false, nil
	}
	loc := out.Results[0].Location
	p, err := model.NewPoint(loc.Lat, loc.Lng)
	if err != nil {
		return model.Point{}, false, fmt.Errorf("geocoder returned invalid coordinates %v,%v", loc.Lat, loc.Lng)
	}
	return p, true, nil
}
