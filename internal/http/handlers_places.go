package http

import (
	"net/http"
	"strings"

	"pinledger/internal/core"
)

// handleScanReceipt reads the receipt image and returns the extracted data
// without saving anything. 422 means the image could not be read.
func (s *Server) handleScanReceipt(w http.ResponseWriter, r *http.Request) {
	img, err := ReadImage(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	data := s.ledger.ScanReceipt(r.Context(), img)
	if data == nil {
		ErrorResponse(http.StatusUnprocessableEntity, "could not read receipt").Write(w)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

// handleSaveReceipt records a reviewed receipt. A zero total is ignored
// and answered with 204.
func (s *Server) handleSaveReceipt(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Receipt  core.ReceiptData `json:"receipt"`
		Category string           `json:"category"`
	}
	if err := DecodeJSON(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	body.Receipt.MerchantName = sanitizeInput(body.Receipt.MerchantName)
	out, err := s.ledger.AddFromReceipt(r.Context(), body.Receipt, sanitizeInput(body.Category))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if out == nil {
		writeNoContent(w)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleInsight(w http.ResponseWriter, r *http.Request) {
	c, err := ParseCriteria(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	text, err := s.ledger.Insight(r.Context(), c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

// handleSuggest serves type-ahead place suggestions. Clients send an
// increasing seq; a response with stale=true was superseded and should be
// dropped.
func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	seq, err := ParseSeq(q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	center, err := ParseLocation(q, "lat", "lng")
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ledger.Suggest(r.Context(), seq, sanitizeInput(q.Get("q")), center))
}

func (s *Server) handleSearchPlace(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := sanitizeInput(q.Get("q"))
	if query == "" {
		ErrorResponse(http.StatusBadRequest, "q is required").Write(w)
		return
	}
	center, err := ParseLocation(q, "lat", "lng")
	if err != nil {
		writeError(w, r, err)
		return
	}
	res := s.ledger.SearchPlace(r.Context(), query, center)
	if res == nil {
		ErrorResponse(http.StatusNotFound, "no place found").Write(w)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handlePlaceDetails(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	merchant := strings.TrimSpace(sanitizeInput(q.Get("merchant")))
	if merchant == "" {
		ErrorResponse(http.StatusBadRequest, "merchant is required").Write(w)
		return
	}
	loc, err := ParseLocation(q, "lat", "lng")
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ledger.PlaceDetails(r.Context(), merchant, loc))
}
