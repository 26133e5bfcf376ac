package services

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"pinledger/internal/ai"
	"pinledger/internal/cache"
	"pinledger/internal/core"
	"pinledger/internal/filtering"
	applog "pinledger/internal/log"
	"pinledger/internal/markers"
	"pinledger/internal/report"
	"pinledger/internal/store"
)

type (
	MapQuery struct {
		filtering.Criteria
		SelectedID string
		// Search is the place picked from the suggestion list, if any.
		Search *core.SearchResult
	}

	// SuggestResult carries the suggestions for one lookup. Stale is set when
	// a newer lookup superseded this one; Results is then empty.
	SuggestResult struct {
		Seq     uint64              `json:"seq"`
		Stale   bool                `json:"stale"`
		Results []core.SearchResult `json:"results"`
	}
)

// Map composes the marker groups, offer pins and camera for the current view.
func (s *LedgerService) Map(ctx context.Context, q MapQuery) (markers.Map, error) {
	txs, err := s.Transactions(ctx, q.Criteria)
	if err != nil {
		return markers.Map{}, err
	}
	return markers.Compose(markers.Input{
		Transactions: txs,
		Offers:       s.Offers(q.Criteria),
		SelectedID:   q.SelectedID,
		Category:     q.Category,
		Search:       q.Search,
	}), nil
}

// Insight asks the advisor to comment on the transactions in view. Real
// answers are cached by persona, budget and transaction fingerprint;
// fallback messages are not.
func (s *LedgerService) Insight(ctx context.Context, c filtering.Criteria) (string, error) {
	txs, err := s.Transactions(ctx, c)
	if err != nil {
		return "", err
	}
	persona, err := s.store.Persona(ctx)
	if err != nil {
		return "", err
	}
	cfg, err := s.store.Budget(ctx)
	if err != nil {
		return "", err
	}
	var budget *core.BudgetConfig
	if cfg.Amount.Cents > 0 {
		budget = &cfg
	}

	key := insightKey(persona, budget, txs)
	if text, ok := s.insights.Get(key); ok {
		slog.DebugContext(ctx, "Insight served from cache",
			applog.FieldComponent, applog.ComponentCache,
			applog.FieldPersona, string(persona))
		return text, nil
	}

	text := s.advisor.GenerateInsight(ctx, txs, persona, budget)
	if !isFallback(text) {
		s.insights.Set(key, text)
	}
	return text, nil
}

// insightKey fingerprints everything the insight prompt reads, so an edit to
// any listed transaction or to the budget misses the cache.
func insightKey(persona core.Persona, budget *core.BudgetConfig, txs []core.Transaction) string {
	parts := make([]string, 0, 2+len(txs))
	parts = append(parts, string(persona))
	if budget != nil {
		parts = append(parts, strings.Join([]string{
			string(budget.Period),
			strconv.FormatInt(budget.Amount.Cents, 10),
			budget.CustomStart,
			budget.CustomEnd,
		}, ":"))
	} else {
		parts = append(parts, "-")
	}
	for _, t := range txs {
		parts = append(parts, strings.Join([]string{
			t.ID,
			t.MerchantName,
			t.Category,
			strconv.FormatInt(t.Amount.Cents, 10),
			t.Currency,
			strconv.FormatBool(t.IsOnline()),
			strconv.FormatInt(t.Date.Unix(), 10),
		}, "|"))
	}
	return cache.Key(parts...)
}

func isFallback(text string) bool {
	switch text {
	case ai.MsgNotConfigured, ai.MsgInsightUnavailable, ai.MsgInsightEmpty:
		return true
	}
	return false
}

// PlaceDetails describes a merchant near loc. Successful lookups are cached.
func (s *LedgerService) PlaceDetails(ctx context.Context, merchant string, loc *core.Location) core.PlaceInfo {
	merchant = strings.TrimSpace(merchant)
	var near []string
	if loc != nil {
		near = []string{strconv.FormatFloat(loc.Lat, 'f', 4, 64), strconv.FormatFloat(loc.Lng, 'f', 4, 64)}
	}
	key := cache.Key(append([]string{strings.ToLower(merchant)}, near...)...)
	if info, ok := s.places.Get(key); ok {
		return info
	}
	info := s.advisor.PlaceDetails(ctx, merchant, loc)
	if s.advisor.Configured() && info.Text != ai.MsgPlaceUnavailable && info.Text != ai.MsgPlaceEmpty {
		s.places.Set(key, info)
	}
	return info
}

// ScanReceipt runs receipt OCR on an uploaded image. A nil result means the
// image could not be read; nothing is saved until AddFromReceipt.
func (s *LedgerService) ScanReceipt(ctx context.Context, image []byte) *core.ReceiptData {
	return s.advisor.AnalyzeReceipt(ctx, image)
}

// Suggest returns place suggestions for a partial query. Passing seq 0 takes
// the next sequence number. A lookup superseded by a newer seq is cancelled
// and reported stale.
func (s *LedgerService) Suggest(ctx context.Context, seq uint64, query string, center *core.Location) SuggestResult {
	if seq == 0 {
		seq = s.suggestions.Next()
	}
	res := SuggestResult{Seq: seq, Results: []core.SearchResult{}}
	if s.geocoder == nil {
		return res
	}
	lookupCtx, done, ok := s.suggestions.Start(ctx, seq)
	defer done()
	if !ok {
		res.Stale = true
		return res
	}
	results := s.geocoder.Suggest(lookupCtx, query, center)
	if !s.suggestions.Current(seq) {
		res.Stale = true
		return res
	}
	if results != nil {
		res.Results = results
	}
	return res
}

// SearchPlace resolves a free-text query to the single best place.
func (s *LedgerService) SearchPlace(ctx context.Context, query string, center *core.Location) *core.SearchResult {
	if s.geocoder == nil {
		return nil
	}
	return s.geocoder.SearchOne(ctx, query, center)
}

// DefaultReportWindow is the window the report opens on: the budget period
// when a budget is set, otherwise the current month.
func (s *LedgerService) DefaultReportWindow(ctx context.Context) (report.Window, error) {
	cfg, err := s.store.Budget(ctx)
	if err != nil {
		return report.Window{}, err
	}
	return report.DefaultWindow(cfg, s.localNow()), nil
}

// MonthWindow is a calendar month in the service's time zone.
func (s *LedgerService) MonthWindow(year int, month time.Month) report.Window {
	return report.MonthWindow(year, month, s.loc)
}

// RangeWindow is an inclusive date range in the service's time zone.
func (s *LedgerService) RangeWindow(start, end time.Time) report.Window {
	return report.RangeWindow(start.In(s.loc), end.In(s.loc))
}

// Report summarizes the user's own spending over w against the budget.
func (s *LedgerService) Report(ctx context.Context, w report.Window) (core.Report, error) {
	mine, err := s.store.List(ctx, store.FeedMine)
	if err != nil {
		return core.Report{}, err
	}
	cfg, err := s.store.Budget(ctx)
	if err != nil {
		return core.Report{}, err
	}
	return report.Build(mine, w, cfg), nil
}

// Ledger lists the user's transactions for one month grouped by day.
func (s *LedgerService) Ledger(ctx context.Context, year int, month time.Month) (core.Ledger, error) {
	mine, err := s.store.List(ctx, store.FeedMine)
	if err != nil {
		return core.Ledger{}, err
	}
	return report.BuildLedger(mine, year, month, s.loc), nil
}
