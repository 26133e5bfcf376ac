package http

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"pinledger/internal/filtering"
)

func TestParseMonthParams(t *testing.T) {
	now := time.Date(2024, time.May, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		query     url.Values
		wantYear  int
		wantMonth time.Month
		wantErr   bool
	}{
		{"defaults to now", url.Values{}, 2024, time.May, false},
		{"all values", url.Values{"year": {"2023"}, "month": {"12"}}, 2023, time.December, false},
		{"month only", url.Values{"month": {"3"}}, 2024, time.March, false},
		{"month zero", url.Values{"month": {"0"}}, 0, 0, true},
		{"month 13", url.Values{"month": {"13"}}, 0, 0, true},
		{"month not a number", url.Values{"month": {"abc"}}, 0, 0, true},
		{"year negative", url.Values{"year": {"-1"}}, 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMonthParams(tt.query, now)
			if tt.wantErr {
				if !errors.Is(err, errBadRequest) {
					t.Fatalf("err = %v, want errBadRequest", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Year != tt.wantYear || got.Month != tt.wantMonth {
				t.Errorf("got %d-%02d, want %d-%02d", got.Year, got.Month, tt.wantYear, tt.wantMonth)
			}
		})
	}
}

func TestParseCriteria(t *testing.T) {
	c, err := ParseCriteria(url.Values{
		"view":     {"Friends"},
		"period":   {"weekly"},
		"category": {" Cafe "},
		"q":        {"blue\x00 bottle"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.View != filtering.ViewFriends || c.Period != filtering.PeriodWeekly {
		t.Errorf("view/period = %q/%q", c.View, c.Period)
	}
	if c.Category != "Cafe" || c.Search != "blue bottle" {
		t.Errorf("category/search = %q/%q", c.Category, c.Search)
	}

	c, err = ParseCriteria(url.Values{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.View != filtering.ViewPersonal || c.Period != filtering.PeriodAll {
		t.Errorf("defaults = %q/%q, want personal/all", c.View, c.Period)
	}

	for _, q := range []url.Values{{"view": {"everyone"}}, {"period": {"daily"}}} {
		if _, err := ParseCriteria(q); !errors.Is(err, errBadRequest) {
			t.Errorf("ParseCriteria(%v) err = %v, want errBadRequest", q, err)
		}
	}
}

func TestParseLocation(t *testing.T) {
	tests := []struct {
		name    string
		query   url.Values
		wantNil bool
		wantErr bool
	}{
		{"missing", url.Values{}, true, false},
		{"valid", url.Values{"lat": {"37.5"}, "lng": {"127.0"}}, false, false},
		{"lat only", url.Values{"lat": {"37.5"}}, false, true},
		{"lat out of range", url.Values{"lat": {"91"}, "lng": {"0"}}, false, true},
		{"lng out of range", url.Values{"lat": {"0"}, "lng": {"-181"}}, false, true},
		{"not numbers", url.Values{"lat": {"north"}, "lng": {"east"}}, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := ParseLocation(tt.query, "lat", "lng")
			if tt.wantErr {
				if !errors.Is(err, errBadRequest) {
					t.Fatalf("err = %v, want errBadRequest", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if (loc == nil) != tt.wantNil {
				t.Fatalf("loc = %v, wantNil %v", loc, tt.wantNil)
			}
			if loc != nil && (loc.Lat != 37.5 || loc.Lng != 127.0) {
				t.Errorf("loc = %+v", loc)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	seoul := time.FixedZone("KST", 9*60*60)
	got, err := ParseDate(" 2024-05-01 ", seoul)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := time.Date(2024, time.May, 1, 0, 0, 0, 0, seoul); !got.Equal(want) {
		t.Errorf("ParseDate() = %v, want %v", got, want)
	}
	if _, err := ParseDate("05/01/2024", seoul); !errors.Is(err, errBadRequest) {
		t.Errorf("err = %v, want errBadRequest", err)
	}
}

func TestParseSeq(t *testing.T) {
	if seq, err := ParseSeq(url.Values{}); err != nil || seq != 0 {
		t.Errorf("missing seq = %d, %v", seq, err)
	}
	if seq, err := ParseSeq(url.Values{"seq": {"42"}}); err != nil || seq != 42 {
		t.Errorf("seq = %d, %v", seq, err)
	}
	if _, err := ParseSeq(url.Values{"seq": {"-3"}}); !errors.Is(err, errBadRequest) {
		t.Errorf("negative seq err = %v", err)
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Text string `json:"text"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"text":"hello"}`, false},
		{"empty", ``, true},
		{"malformed", `{"text":`, true},
		{"unknown field", `{"txt":"hello"}`, true},
		{"two objects", `{"text":"a"}{"text":"b"}`, true},
		{"too large", `{"text":"` + strings.Repeat("a", maxJSONBody) + `"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/api/memos", strings.NewReader(tt.body))
			var p payload
			err := DecodeJSON(httptest.NewRecorder(), r, &p)
			if tt.wantErr {
				if !errors.Is(err, errBadRequest) {
					t.Fatalf("err = %v, want errBadRequest", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.Text != "hello" {
				t.Errorf("Text = %q", p.Text)
			}
		})
	}
}

func TestReadImage(t *testing.T) {
	img := []byte{0xff, 0xd8, 0xff, 0xe0, 0x00}

	t.Run("raw body", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/api/receipts/scan", bytes.NewReader(img))
		r.Header.Set("Content-Type", "image/jpeg")
		got, err := ReadImage(httptest.NewRecorder(), r)
		if err != nil || !bytes.Equal(got, img) {
			t.Fatalf("ReadImage() = %v, %v", got, err)
		}
	})

	t.Run("multipart", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, err := mw.CreateFormFile("image", "receipt.jpg")
		if err != nil {
			t.Fatal(err)
		}
		_, _ = part.Write(img)
		_ = mw.Close()

		r := httptest.NewRequest(http.MethodPost, "/api/receipts/scan", &buf)
		r.Header.Set("Content-Type", mw.FormDataContentType())
		got, err := ReadImage(httptest.NewRecorder(), r)
		if err != nil || !bytes.Equal(got, img) {
			t.Fatalf("ReadImage() = %v, %v", got, err)
		}
	})

	t.Run("multipart without image part", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		_ = mw.WriteField("note", "hi")
		_ = mw.Close()

		r := httptest.NewRequest(http.MethodPost, "/api/receipts/scan", &buf)
		r.Header.Set("Content-Type", mw.FormDataContentType())
		if _, err := ReadImage(httptest.NewRecorder(), r); !errors.Is(err, errBadRequest) {
			t.Errorf("err = %v, want errBadRequest", err)
		}
	})

	t.Run("empty", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/api/receipts/scan", nil)
		if _, err := ReadImage(httptest.NewRecorder(), r); !errors.Is(err, errBadRequest) {
			t.Errorf("err = %v, want errBadRequest", err)
		}
	})
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  Blue Bottle  ", "Blue Bottle"},
		{"a\x00b\x07c", "abc"},
		{"line\nbreak\ttab", "line\nbreak\ttab"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
