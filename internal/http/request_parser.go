// Package http provides the JSON API server and its handlers.
//
// This file implements utilities for parsing and validating request data:
// query criteria, month and range parameters, coordinates and JSON bodies.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"pinledger/internal/core"
	"pinledger/internal/filtering"
)

const (
	maxJSONBody  = 1 << 20  // 1 MiB
	maxImageBody = 10 << 20 // 10 MiB
)

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month time.Month
}

// ParseMonthParams extracts year and month from query parameters, using now
// as the default. Out-of-range values are rejected.
func ParseMonthParams(query url.Values, now time.Time) (MonthParams, error) {
	params := MonthParams{Year: now.Year(), Month: now.Month()}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 || y > 9999 {
			return MonthParams{}, fmt.Errorf("%w: invalid year %q", errBadRequest, v)
		}
		params.Year = y
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return MonthParams{}, fmt.Errorf("%w: invalid month %q", errBadRequest, v)
		}
		params.Month = time.Month(m)
	}
	return params, nil
}

// ParseCriteria reads view, period, category and q from the query string.
func ParseCriteria(query url.Values) (filtering.Criteria, error) {
	view, err := filtering.ParseViewMode(query.Get("view"))
	if err != nil {
		return filtering.Criteria{}, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	period, err := filtering.ParsePeriod(query.Get("period"))
	if err != nil {
		return filtering.Criteria{}, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return filtering.Criteria{
		View:     view,
		Period:   period,
		Category: sanitizeInput(query.Get("category")),
		Search:   sanitizeInput(query.Get("q")),
	}, nil
}

// ParseLocation reads a coordinate pair from the named query keys. Both
// missing means no location.
func ParseLocation(query url.Values, latKey, lngKey string) (*core.Location, error) {
	latStr := strings.TrimSpace(query.Get(latKey))
	lngStr := strings.TrimSpace(query.Get(lngKey))
	if latStr == "" && lngStr == "" {
		return nil, nil
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil || lat < -90 || lat > 90 {
		return nil, fmt.Errorf("%w: invalid %s %q", errBadRequest, latKey, latStr)
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil || lng < -180 || lng > 180 {
		return nil, fmt.Errorf("%w: invalid %s %q", errBadRequest, lngKey, lngStr)
	}
	return &core.Location{Lat: lat, Lng: lng}, nil
}

// ParseDate parses a YYYY-MM-DD value in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(core.DateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q, want YYYY-MM-DD", errBadRequest, s)
	}
	return t, nil
}

// ParseSeq reads the optional suggestion sequence number.
func ParseSeq(query url.Values) (uint64, error) {
	v := strings.TrimSpace(query.Get("seq"))
	if v == "" {
		return 0, nil
	}
	seq, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid seq %q", errBadRequest, v)
	}
	return seq, nil
}

// DecodeJSON reads a single JSON object from the request body into dst.
// Unknown fields are rejected so client typos surface as 400s.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return fmt.Errorf("%w: empty body", errBadRequest)
		case errors.As(err, &maxErr):
			return fmt.Errorf("%w: body larger than %d bytes", errBadRequest, maxErr.Limit)
		default:
			return fmt.Errorf("%w: %v", errBadRequest, err)
		}
	}
	if dec.More() {
		return fmt.Errorf("%w: body must hold a single JSON object", errBadRequest)
	}
	return nil
}

// ReadImage returns the uploaded image, either as a raw body or as the
// "image" part of a multipart form.
func ReadImage(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageBody)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxImageBody); err != nil {
			return nil, fmt.Errorf("%w: %v", errBadRequest, err)
		}
		f, _, err := r.FormFile("image")
		if err != nil {
			return nil, fmt.Errorf("%w: missing image part", errBadRequest)
		}
		defer f.Close()
		return readAllNonEmpty(f)
	}
	return readAllNonEmpty(r.Body)
}

func readAllNonEmpty(rd io.Reader) ([]byte, error) {
	data, err := io.ReadAll(rd)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image", errBadRequest)
	}
	return data, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
