package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"pinledger/internal/core"
	"pinledger/internal/report"
	"pinledger/internal/services"
)

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	c, err := ParseCriteria(q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	mq := services.MapQuery{Criteria: c, SelectedID: strings.TrimSpace(q.Get("selected"))}

	// A place picked from the suggestion list moves the camera to it.
	loc, err := ParseLocation(q, "placeLat", "placeLng")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if loc != nil {
		mq.Search = &core.SearchResult{Name: sanitizeInput(q.Get("place")), Location: *loc}
	}

	m, err := s.ledger.Map(r.Context(), mq)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleOffers(w http.ResponseWriter, r *http.Request) {
	c, err := ParseCriteria(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	offers := s.ledger.Offers(c)
	if offers == nil {
		offers = []core.Offer{}
	}
	writeJSON(w, http.StatusOK, offers)
}

func (s *Server) handleRefreshOffers(w http.ResponseWriter, r *http.Request) {
	offers, err := s.ledger.RefreshOffers(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if offers == nil {
		offers = []core.Offer{}
	}
	writeJSON(w, http.StatusOK, offers)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, core.Categories)
}

type reportResponse struct {
	core.Report
	Day             int                `json:"day,omitempty"`
	DayTransactions []core.Transaction `json:"dayTransactions,omitempty"`
}

// handleReport serves mode=month (year, month) or mode=range (start, end).
// Without a mode the report opens on the budget period. day drills into one
// day of a month report.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	win, err := s.reportWindow(r, q.Get("mode"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	rep, err := s.ledger.Report(r.Context(), win)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := reportResponse{Report: rep}
	if v := strings.TrimSpace(q.Get("day")); v != "" {
		day, err := strconv.Atoi(v)
		if err != nil || day < 1 || day > 31 {
			writeError(w, r, fmt.Errorf("%w: invalid day %q", errBadRequest, v))
			return
		}
		resp.Day = day
		resp.DayTransactions = report.Day(rep, day)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) reportWindow(r *http.Request, mode string) (report.Window, error) {
	q := r.URL.Query()
	switch report.Mode(strings.ToLower(strings.TrimSpace(mode))) {
	case "":
		return s.ledger.DefaultReportWindow(r.Context())
	case report.ModeMonth:
		mp, err := ParseMonthParams(q, s.ledger.Now())
		if err != nil {
			return report.Window{}, err
		}
		return s.ledger.MonthWindow(mp.Year, mp.Month), nil
	case report.ModeRange:
		loc := s.ledger.Now().Location()
		start, err := ParseDate(q.Get("start"), loc)
		if err != nil {
			return report.Window{}, err
		}
		end, err := ParseDate(q.Get("end"), loc)
		if err != nil {
			return report.Window{}, err
		}
		if end.Before(start) {
			return report.Window{}, fmt.Errorf("%w: end is before start", errBadRequest)
		}
		return s.ledger.RangeWindow(start, end), nil
	default:
		return report.Window{}, fmt.Errorf("%w: unknown report mode %q", errBadRequest, mode)
	}
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	mp, err := ParseMonthParams(r.URL.Query(), s.ledger.Now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	l, err := s.ledger.Ledger(r.Context(), mp.Year, mp.Month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}
