package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/mohammed-shakir/geoitems/internal/core/model"
	"github.com/mohammed-shakir/geoitems/internal/core/observability"
	"github.com/mohammed-shakir/geoitems/internal/query"
)

const maxBodyBytes = 1 << 20

type ItemQuerier interface {
	Query(ctx context.Context, req query.Request) ([]model.Item, error)
}

type ItemCreator interface {
	CreateItem(ctx context.Context, name, address string) (model.ItemID, error)
}

type coords struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type itemDTO struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Coords  coords `json:"coords"`
}

type createReq struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

type errorBody struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

// HandleGetItems serves GET /items; format=geojson renders a FeatureCollection.
func HandleGetItems(logger *slog.Logger, q ItemQuerier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		defer func() {
			observability.ObserveHTTP(r.Method, "/items", sw.code, time.Since(start).Seconds())
		}()

		params := r.URL.Query()
		req, err := ParseLocation(params)
		if err != nil {
			writeError(r.Context(), logger, sw, err)
			return
		}

		items, err := q.Query(r.Context(), req)
		if err != nil {
			writeError(r.Context(), logger, sw, err)
			return
		}

		if strings.EqualFold(strings.TrimSpace(params.Get("format")), "geojson") {
			writeJSON(sw, http.StatusOK, "application/geo+json", toFeatureCollection(items))
			return
		}
		out := make([]itemDTO, 0, len(items))
		for _, it := range items {
			out = append(out, itemDTO{
				ID:      string(it.ID),
				Name:    it.Name,
				Address: it.Address,
				Coords:  coords{Lat: it.Point.Lat, Lng: it.Point.Lng},
			})
		}
		writeJSON(sw, http.StatusOK, "application/json", out)
	}
}

// HandleCreateItem serves POST /items with a {"name","address"} body.
func HandleCreateItem(logger *slog.Logger, c ItemCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		defer func() {
			observability.ObserveHTTP(r.Method, "/items", sw.code, time.Since(start).Seconds())
		}()

		var body createReq
		dec := json.NewDecoder(http.MaxBytesReader(sw, r.Body, maxBodyBytes))
		if err := dec.Decode(&body); err != nil {
			writeError(r.Context(), logger, sw, fmt.Errorf("%w: request body: %w", model.ErrInvalidInput, err))
			return
		}

		id, err := c.CreateItem(r.Context(), body.Name, body.Address)
		if err != nil {
			writeError(r.Context(), logger, sw, err)
			return
		}
		writeJSON(sw, http.StatusCreated, "application/json", map[string]string{"id": string(id)})
	}
}

// ParseLocation reads address, lat, lng and radius. Coordinates must be given
// together; when an address is present they are passed along but not required
// to be well formed.
func ParseLocation(v url.Values) (query.Request, error) {
	var req query.Request
	req.Address = strings.TrimSpace(v.Get("address"))

	rawLat := strings.TrimSpace(v.Get("lat"))
	rawLng := strings.TrimSpace(v.Get("lng"))
	if rawLat != "" || rawLng != "" {
		p, err := parseCenter(rawLat, rawLng)
		switch {
		case err == nil:
			req.Center = &p
		case req.Address == "":
			return query.Request{}, err
		}
	}

	if raw := strings.TrimSpace(v.Get("radius")); raw != "" {
		r, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return query.Request{}, fmt.Errorf("%w: radius %q is not a number", model.ErrInvalidInput, raw)
		}
		if r < 0 {
			return query.Request{}, fmt.Errorf("%w: radius must not be negative", model.ErrInvalidInput)
		}
		req.RadiusMeters = &r
	}
	return req, nil
}

func parseCenter(rawLat, rawLng string) (model.Point, error) {
	if rawLat == "" || rawLng == "" {
		return model.Point{}, fmt.Errorf("%w: lat and lng must be supplied together", model.ErrInvalidInput)
	}
	lat, err := strconv.ParseFloat(rawLat, 64)
	if err != nil {
		return model.Point{}, fmt.Errorf("%w: lat %q is not a number", model.ErrInvalidInput, rawLat)
	}
	lng, err := strconv.ParseFloat(rawLng, 64)
	if err != nil {
		return model.Point{}, fmt.Errorf("%w: lng %q is not a number", model.ErrInvalidInput, rawLng)
	}
	return model.NewPoint(lat, lng)
}

func toFeatureCollection(items []model.Item) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, it := range items {
		f := geojson.NewFeature(orb.Point{it.Point.Lng, it.Point.Lat})
		f.ID = string(it.ID)
		f.Properties["name"] = it.Name
		f.Properties["address"] = it.Address
		fc.Append(f)
	}
	return fc
}

func writeError(ctx context.Context, logger *slog.Logger, w http.ResponseWriter, err error) {
	code, msg := http.StatusInternalServerError, "internal error"
	switch {
	case errors.Is(err, model.ErrInvalidInput):
		code, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, model.ErrGeocodeFailure):
		msg = "unable to geocode address"
	case errors.Is(err, model.ErrStoreFailure):
		msg = "storage unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		msg = "request timed out"
	}
	if code >= http.StatusInternalServerError {
		logger.ErrorContext(ctx, "request failed", "err", err)
	} else {
		logger.DebugContext(ctx, "request rejected", "err", err)
	}
	writeJSON(w, code, "application/json", errorBody{StatusCode: code, Message: msg})
}

func writeJSON(w http.ResponseWriter, code int, contentType string, v any) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
