package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pinledger/internal/ai"
	"pinledger/internal/amqp"
	"pinledger/internal/budget"
	"pinledger/internal/core"
	"pinledger/internal/filtering"
	"pinledger/internal/rewards"
	"pinledger/internal/seed"
	"pinledger/internal/store"
	"pinledger/internal/store/memory"
)

var testNow = time.Date(2024, time.May, 15, 12, 30, 0, 0, time.UTC)

type fakePublisher struct {
	mu   sync.Mutex
	msgs []*amqp.TransactionCreatedMessage
	err  error
}

func (p *fakePublisher) PublishTransactionCreated(_ context.Context, msg *amqp.TransactionCreatedMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

type fakeGeocoder struct {
	results []core.SearchResult
	block   chan struct{}
}

func (g *fakeGeocoder) Suggest(ctx context.Context, _ string, _ *core.Location) []core.SearchResult {
	if g.block != nil {
		select {
		case <-g.block:
		case <-ctx.Done():
			return nil
		}
	}
	return g.results
}

func (g *fakeGeocoder) SearchOne(_ context.Context, _ string, _ *core.Location) *core.SearchResult {
	if len(g.results) == 0 {
		return nil
	}
	r := g.results[0]
	return &r
}

type countingModel struct {
	mu    sync.Mutex
	calls int
	text  string
	err   error
}

func (m *countingModel) Name() string { return "counting" }

func (m *countingModel) Generate(_ context.Context, _ ai.Prompt) (ai.Completion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return ai.Completion{}, m.err
	}
	return ai.Completion{Text: m.text}, nil
}

func cents(n int64) core.Money { return core.Money{Cents: n} }

func starbucksOffer() core.Offer {
	return core.Offer{
		ID:           "offer_sb",
		MerchantName: "Starbucks",
		CashbackRate: 0.1,
		Category:     "Cafe",
		Location:     &core.Location{Lat: 37.5, Lng: 127.0},
	}
}

func friendTx(id string, vis core.Visibility) core.Transaction {
	return core.Transaction{
		ID:           id,
		Amount:       cents(2500),
		Currency:     "USD",
		MerchantName: "Joe's Pizza",
		Date:         testNow.Add(-time.Hour),
		Category:     "Dining",
		Location:     &core.Location{Lat: 40.73, Lng: -73.99},
		Status:       core.StatusCompleted,
		Visibility:   vis,
		Memo:         "Best slice",
		User:         core.UserInfo{ID: "u_friend", Name: "Mina"},
	}
}

func newTestService(t *testing.T, d seed.Dataset, opts Options) (*LedgerService, *memory.Store) {
	t.Helper()
	st := memory.NewFromDataset(d)
	if opts.Now == nil {
		opts.Now = func() time.Time { return testNow }
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.CurrentUser.ID == "" {
		opts.CurrentUser = seed.CurrentUser
	}
	svc := NewLedgerService(st, rewards.NewMock([]core.Offer{starbucksOffer()}), opts)
	if _, err := svc.RefreshOffers(context.Background()); err != nil {
		t.Fatalf("RefreshOffers() error = %v", err)
	}
	t.Cleanup(svc.Close)
	return svc, st
}

func TestAddManual_IgnoresIncompleteEntries(t *testing.T) {
	tests := []struct {
		name  string
		entry ManualEntry
	}{
		{"blank merchant", ManualEntry{MerchantName: "  ", Amount: cents(500)}},
		{"zero amount", ManualEntry{MerchantName: "Cafe", Amount: cents(0)}},
		{"negative amount", ManualEntry{MerchantName: "Cafe", Amount: cents(-100)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, st := newTestService(t, seed.Dataset{}, Options{})
			out, err := svc.AddManual(context.Background(), tt.entry)
			if err != nil || out != nil {
				t.Fatalf("AddManual() = %v, %v; want nil, nil", out, err)
			}
			mine, _ := st.List(context.Background(), store.FeedMine)
			if len(mine) != 0 {
				t.Errorf("store has %d transactions, want 0", len(mine))
			}
		})
	}
}

func TestAddManual_DefaultsAndInlineMatch(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, seed.Dataset{}, Options{})

	out, err := svc.AddManual(ctx, ManualEntry{MerchantName: " Starbucks Gangnam ", Amount: cents(1000)})
	if err != nil {
		t.Fatalf("AddManual() error = %v", err)
	}
	tx := out.Transaction
	if tx.MerchantName != "Starbucks Gangnam" || tx.Currency != DefaultCurrency || tx.Category != DefaultCategory {
		t.Errorf("unexpected defaults: %+v", tx)
	}
	if tx.Visibility != core.VisibilityPrivate || tx.Status != core.StatusCompleted || !tx.User.IsCurrentUser {
		t.Errorf("unexpected ownership fields: %+v", tx)
	}
	if !tx.Date.Equal(testNow) {
		t.Errorf("Date = %v, want %v", tx.Date, testNow)
	}
	if out.Queued {
		t.Error("Queued = true without a publisher")
	}
	if out.Match == nil || out.Match.RewardAmount.Cents != 100 || !out.OpenNotifications {
		t.Fatalf("Match = %+v, want 100 cent reward", out.Match)
	}

	items, _ := st.Notifications(ctx)
	if len(items) != 1 {
		t.Fatalf("notifications = %d, want 1", len(items))
	}
	n := items[0]
	if n.Type != core.NotifyOfferNearby || n.Title != TitleCashbackEarned {
		t.Errorf("notification = %+v", n)
	}
	if n.Message != "You earned $1.00 at Starbucks!" {
		t.Errorf("Message = %q", n.Message)
	}
	if n.Related == nil || n.Related.Kind != core.RelatedTransaction || n.Related.ID != tx.ID {
		t.Errorf("Related = %+v, want transaction %s", n.Related, tx.ID)
	}
}

func TestAddManual_NoMatchNoNotification(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, seed.Dataset{}, Options{})

	out, err := svc.AddManual(ctx, ManualEntry{MerchantName: "Corner Deli", Amount: cents(700), Category: "Dining"})
	if err != nil {
		t.Fatalf("AddManual() error = %v", err)
	}
	if out.Match != nil || out.OpenNotifications {
		t.Errorf("unexpected match: %+v", out)
	}
	items, _ := st.Notifications(ctx)
	if len(items) != 0 {
		t.Errorf("notifications = %d, want 0", len(items))
	}
}

func TestProcess_PublishesToWorker(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	svc, st := newTestService(t, seed.Dataset{}, Options{Publisher: pub})

	out, err := svc.AddManual(ctx, ManualEntry{MerchantName: "Starbucks", Amount: cents(1000)})
	if err != nil {
		t.Fatalf("AddManual() error = %v", err)
	}
	if !out.Queued || out.Match != nil {
		t.Errorf("Outcome = %+v, want queued without inline match", out)
	}
	if len(pub.msgs) != 1 {
		t.Fatalf("published %d messages, want 1", len(pub.msgs))
	}
	msg := pub.msgs[0]
	if msg.TransactionID != out.Transaction.ID || msg.AmountCents != 1000 || msg.Source != amqp.SourceManual {
		t.Errorf("message = %+v", msg)
	}
	items, _ := st.Notifications(ctx)
	if len(items) != 0 {
		t.Errorf("notifications = %d before the worker ran, want 0", len(items))
	}

	// Worker side.
	if err := svc.HandleTransactionCreated(ctx, msg); err != nil {
		t.Fatalf("HandleTransactionCreated() error = %v", err)
	}
	items, _ = st.Notifications(ctx)
	if len(items) != 1 || items[0].Title != TitleCashbackEarned {
		t.Errorf("notifications after worker = %+v", items)
	}
}

func TestProcess_PublishFailureFallsBackToInlineMatch(t *testing.T) {
	pub := &fakePublisher{err: amqp.ErrCircuitOpen}
	svc, _ := newTestService(t, seed.Dataset{}, Options{Publisher: pub})

	out, err := svc.AddManual(context.Background(), ManualEntry{MerchantName: "Starbucks", Amount: cents(2000)})
	if err != nil {
		t.Fatalf("AddManual() error = %v", err)
	}
	if out.Queued {
		t.Error("Queued = true after publish failure")
	}
	if out.Match == nil || out.Match.RewardAmount.Cents != 200 {
		t.Errorf("Match = %+v, want inline 200 cent reward", out.Match)
	}
}

func TestHandleTransactionCreated_DropsUnknownTransaction(t *testing.T) {
	svc, _ := newTestService(t, seed.Dataset{}, Options{})
	msg := amqp.NewTransactionCreatedMessage("tx_gone", "Starbucks", 100, amqp.SourceWebhook)
	if err := svc.HandleTransactionCreated(context.Background(), msg); err != nil {
		t.Errorf("HandleTransactionCreated() error = %v, want nil", err)
	}
}

func TestAddFromReceipt(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, seed.Dataset{}, Options{})

	r := core.ReceiptData{
		Date:        "2024-05-10",
		Subtotal:    cents(1000),
		Tax:         cents(80),
		Tip:         cents(200),
		TotalAmount: cents(1280),
	}
	out, err := svc.AddFromReceipt(ctx, r, "")
	if err != nil {
		t.Fatalf("AddFromReceipt() error = %v", err)
	}
	tx := out.Transaction
	want := time.Date(2024, time.May, 10, 12, 30, 0, 0, time.UTC)
	if !tx.Date.Equal(want) {
		t.Errorf("Date = %v, want %v", tx.Date, want)
	}
	if tx.MerchantName != UnknownMerchant || tx.CountryCode != "US" || tx.Category != DefaultCategory {
		t.Errorf("unexpected defaults: %+v", tx)
	}
	if tx.Memo != "Subtotal: $10.00 | Tax: $0.80 | Tip: $2.00" {
		t.Errorf("Memo = %q", tx.Memo)
	}
	if tx.Location == nil || *tx.Location != ReceiptLocation {
		t.Errorf("Location = %v, want %v", tx.Location, ReceiptLocation)
	}

	t.Run("bad date falls back to now", func(t *testing.T) {
		r.Date = "last tuesday"
		out, err := svc.AddFromReceipt(ctx, r, "Dining")
		if err != nil {
			t.Fatalf("AddFromReceipt() error = %v", err)
		}
		if !out.Transaction.Date.Equal(testNow) {
			t.Errorf("Date = %v, want %v", out.Transaction.Date, testNow)
		}
	})

	t.Run("zero total ignored", func(t *testing.T) {
		out, err := svc.AddFromReceipt(ctx, core.ReceiptData{MerchantName: "X"}, "")
		if err != nil || out != nil {
			t.Errorf("AddFromReceipt() = %v, %v; want nil, nil", out, err)
		}
	})
}

func TestSimulateWebhook(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, seed.Dataset{}, Options{})

	out, err := svc.SimulateWebhook(ctx, core.Transaction{MerchantName: "Starbucks Reserve", Amount: cents(550)})
	if err != nil {
		t.Fatalf("SimulateWebhook() error = %v", err)
	}
	if out.Transaction.ID == "" || out.Match == nil {
		t.Errorf("Outcome = %+v, want id and match", out)
	}

	_, err = svc.SimulateWebhook(ctx, core.Transaction{MerchantName: "Nowhere"})
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("SimulateWebhook(no amount) error = %v, want ErrInvalidAmount", err)
	}
}

func TestSaveMemory(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, seed.Dataset{Friends: []core.Transaction{friendTx("f1", core.VisibilityFriends)}}, Options{})
	out, _ := svc.AddManual(ctx, ManualEntry{MerchantName: "Bakery", Amount: cents(400)})

	update := MemoryUpdate{Memo: "Croissants", PhotoURL: "https://img.example/c.jpg", Visibility: core.VisibilityPublic}
	got, err := svc.SaveMemory(ctx, out.Transaction.ID, update)
	if err != nil {
		t.Fatalf("SaveMemory() error = %v", err)
	}
	stored, _ := st.Get(ctx, out.Transaction.ID)
	if got.Memo != update.Memo || stored.Memo != update.Memo || stored.PhotoURL != update.PhotoURL || stored.Visibility != update.Visibility {
		t.Errorf("stored = %+v, want %+v", stored, update)
	}

	if _, err := svc.SaveMemory(ctx, "f1", update); !errors.Is(err, core.ErrNotOwner) {
		t.Errorf("SaveMemory(friend) error = %v, want ErrNotOwner", err)
	}
	if _, err := svc.SaveMemory(ctx, out.Transaction.ID, MemoryUpdate{Visibility: "everyone"}); err == nil {
		t.Error("SaveMemory(bad visibility) error = nil")
	}
}

func TestUpdateCategory(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, seed.Dataset{}, Options{})
	out, _ := svc.AddManual(ctx, ManualEntry{MerchantName: "Taxi", Amount: cents(1500)})

	got, err := svc.UpdateCategory(ctx, out.Transaction.ID, "Transport")
	if err != nil || got.Category != "Transport" {
		t.Errorf("UpdateCategory() = %+v, %v", got, err)
	}
	if _, err := svc.UpdateCategory(ctx, out.Transaction.ID, " "); !errors.Is(err, ErrEmptyCategory) {
		t.Errorf("UpdateCategory(blank) error = %v", err)
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, seed.Dataset{}, Options{})
	out, _ := svc.AddManual(ctx, ManualEntry{MerchantName: "Taxi", Amount: cents(1500)})
	id := out.Transaction.ID

	if err := svc.Delete(ctx, id, false); !errors.Is(err, core.ErrConfirmationRequired) {
		t.Errorf("Delete(unconfirmed) error = %v", err)
	}
	if _, err := st.Get(ctx, id); err != nil {
		t.Fatalf("transaction removed without confirmation: %v", err)
	}
	if err := svc.Delete(ctx, id, true); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := st.Get(ctx, id); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Get after delete error = %v, want ErrNotFound", err)
	}
	if err := svc.Delete(ctx, "missing", true); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Delete(missing) error = %v, want ErrNotFound", err)
	}
}

func TestAddComment(t *testing.T) {
	ctx := context.Background()
	d := seed.Dataset{Friends: []core.Transaction{
		friendTx("f_public", core.VisibilityFriends),
		friendTx("f_private", core.VisibilityPrivate),
	}}
	svc, st := newTestService(t, d, Options{})

	c, err := svc.AddComment(ctx, "f_public", "Looks great")
	if err != nil {
		t.Fatalf("AddComment() error = %v", err)
	}
	if c.User.ID != seed.CurrentUser.ID || c.Text != "Looks great" {
		t.Errorf("comment = %+v", c)
	}
	stored, _ := st.Get(ctx, "f_public")
	if len(stored.Comments) != 1 {
		t.Errorf("stored comments = %d, want 1", len(stored.Comments))
	}
	if _, err := svc.AddComment(ctx, "f_private", "hi"); !errors.Is(err, core.ErrPrivateTransaction) {
		t.Errorf("AddComment(private) error = %v, want ErrPrivateTransaction", err)
	}
}

func TestReviewsAndLikes(t *testing.T) {
	ctx := context.Background()
	d := seed.Dataset{Friends: []core.Transaction{friendTx("f1", core.VisibilityFriends), friendTx("f2", core.VisibilityPublic)}}
	svc, _ := newTestService(t, d, Options{})

	reviews, err := svc.Reviews(ctx, "f1")
	if err != nil {
		t.Fatalf("Reviews() error = %v", err)
	}
	if len(reviews) != 1 || reviews[0].Transaction.ID != "f2" {
		t.Fatalf("Reviews() = %+v, want only f2", reviews)
	}
	if !svc.ToggleLike("f2") {
		t.Error("first ToggleLike() = false")
	}
	reviews, _ = svc.Reviews(ctx, "f1")
	if !reviews[0].Liked {
		t.Error("review not marked liked")
	}
	if svc.ToggleLike("f2") {
		t.Error("second ToggleLike() = true")
	}
}

func TestBudgetAlerts(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, seed.Dataset{}, Options{})
	if _, err := svc.AddManual(ctx, ManualEntry{MerchantName: "Electronics", Amount: cents(12000)}); err != nil {
		t.Fatal(err)
	}

	alert, err := svc.SetBudget(ctx, core.BudgetConfig{Amount: cents(10000), Period: core.PeriodMonthly})
	if err != nil {
		t.Fatalf("SetBudget() error = %v", err)
	}
	if alert == nil || alert.Title != budget.TitleExceeded {
		t.Fatalf("alert = %+v, want %q", alert, budget.TitleExceeded)
	}

	// An unread alert with the same title suppresses a second one.
	if _, err := svc.AddManual(ctx, ManualEntry{MerchantName: "Cables", Amount: cents(500)}); err != nil {
		t.Fatal(err)
	}
	items, _ := st.Notifications(ctx)
	n := 0
	for _, it := range items {
		if it.Title == budget.TitleExceeded {
			n++
		}
	}
	if n != 1 {
		t.Errorf("exceeded alerts = %d, want 1", n)
	}

	if _, err := svc.SetBudget(ctx, core.BudgetConfig{Amount: cents(100), Period: "fortnightly"}); err == nil {
		t.Error("SetBudget(bad period) error = nil")
	}
}

func TestAddManual_CrossingThresholdOpensPanel(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, seed.Dataset{}, Options{})
	if alert, err := svc.SetBudget(ctx, core.BudgetConfig{Amount: cents(100000), Period: core.PeriodMonthly}); err != nil || alert != nil {
		t.Fatalf("SetBudget() = %+v, %v", alert, err)
	}

	out, err := svc.AddManual(ctx, ManualEntry{MerchantName: "Electronics", Amount: cents(85000)})
	if err != nil {
		t.Fatalf("AddManual() error = %v", err)
	}
	if out.Alert == nil || out.Alert.Title != budget.TitleApproaching {
		t.Fatalf("Alert = %+v, want %q", out.Alert, budget.TitleApproaching)
	}
	if !out.OpenNotifications {
		t.Error("OpenNotifications = false after a budget alert")
	}

	// A second purchase under the same unread alert stays quiet.
	out, err = svc.AddManual(ctx, ManualEntry{MerchantName: "Cables", Amount: cents(1000)})
	if err != nil {
		t.Fatal(err)
	}
	if out.Alert != nil || out.OpenNotifications {
		t.Errorf("second Outcome = %+v, want no alert", out)
	}
	items, _ := st.Notifications(ctx)
	n := 0
	for _, it := range items {
		if it.Title == budget.TitleApproaching {
			n++
		}
	}
	if n != 1 {
		t.Errorf("approaching alerts = %d, want 1", n)
	}
}

func TestMarkRead_ReraisesBudgetAlert(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, seed.Dataset{}, Options{})
	if _, err := svc.AddManual(ctx, ManualEntry{MerchantName: "Electronics", Amount: cents(12000)}); err != nil {
		t.Fatal(err)
	}
	alert, err := svc.SetBudget(ctx, core.BudgetConfig{Amount: cents(10000), Period: core.PeriodMonthly})
	if err != nil || alert == nil {
		t.Fatalf("SetBudget() = %+v, %v", alert, err)
	}

	unreadExceeded := func() int {
		items, _ := st.Notifications(ctx)
		n := 0
		for _, it := range items {
			if it.Title == budget.TitleExceeded && !it.IsRead {
				n++
			}
		}
		return n
	}

	if err := svc.MarkRead(ctx, alert.ID); err != nil {
		t.Fatalf("MarkRead() error = %v", err)
	}
	if got := unreadExceeded(); got != 1 {
		t.Errorf("unread exceeded after MarkRead = %d, want 1", got)
	}

	if err := svc.MarkAllRead(ctx); err != nil {
		t.Fatalf("MarkAllRead() error = %v", err)
	}
	if got := unreadExceeded(); got != 1 {
		t.Errorf("unread exceeded after MarkAllRead = %d, want 1", got)
	}
	inbox, _ := svc.Notifications(ctx)
	if inbox.Unread != 1 {
		t.Errorf("Unread = %d, want 1", inbox.Unread)
	}
}

func TestPersona(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, seed.Dataset{}, Options{})
	if err := svc.SetPersona(ctx, core.PersonaScrooge); err != nil {
		t.Fatalf("SetPersona() error = %v", err)
	}
	if p, _ := svc.Persona(ctx); p != core.PersonaScrooge {
		t.Errorf("Persona() = %q", p)
	}
	if err := svc.SetPersona(ctx, "pirate"); !errors.Is(err, core.ErrInvalidPersona) {
		t.Errorf("SetPersona(pirate) error = %v, want ErrInvalidPersona", err)
	}
}

func TestOpenNotification(t *testing.T) {
	ctx := context.Background()
	d := seed.Dataset{
		Friends: []core.Transaction{friendTx("f1", core.VisibilityFriends)},
		Notifications: []core.NotificationItem{
			{ID: "n_alert", Type: core.NotifySystemAlert, Title: budget.TitleApproaching},
			{ID: "n_like", Type: core.NotifySocialLike, Related: &core.Related{Kind: core.RelatedTransaction, ID: "f1"}},
			{ID: "n_offer", Type: core.NotifyOfferNearby, Related: &core.Related{Kind: core.RelatedOffer, ID: "offer_sb"}},
			{ID: "n_stale", Type: core.NotifySocialComment, Related: &core.Related{Kind: core.RelatedTransaction, ID: "gone"}},
		},
	}
	svc, _ := newTestService(t, d, Options{})

	tests := []struct {
		id   string
		kind string
		view filtering.ViewMode
	}{
		{"n_alert", TargetReport, ""},
		{"n_like", TargetTransaction, filtering.ViewFriends},
		{"n_offer", TargetOffer, ""},
		{"n_stale", TargetNone, ""},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got, err := svc.OpenNotification(ctx, tt.id)
			if err != nil {
				t.Fatalf("OpenNotification() error = %v", err)
			}
			if got.Kind != tt.kind || got.View != tt.view {
				t.Errorf("OpenNotification() = %+v, want kind %s view %q", got, tt.kind, tt.view)
			}
		})
	}

	inbox, _ := svc.Notifications(ctx)
	if inbox.Unread != 0 {
		t.Errorf("Unread = %d after opening everything, want 0", inbox.Unread)
	}
	if _, err := svc.OpenNotification(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("OpenNotification(missing) error = %v", err)
	}
}

func TestMarkAllRead(t *testing.T) {
	ctx := context.Background()
	d := seed.Dataset{Notifications: []core.NotificationItem{
		{ID: "a", Type: core.NotifySocialLike},
		{ID: "b", Type: core.NotifySocialComment},
	}}
	svc, _ := newTestService(t, d, Options{})

	if err := svc.MarkRead(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	inbox, _ := svc.Notifications(ctx)
	if inbox.Unread != 1 {
		t.Errorf("Unread = %d, want 1", inbox.Unread)
	}
	if err := svc.MarkAllRead(ctx); err != nil {
		t.Fatal(err)
	}
	inbox, _ = svc.Notifications(ctx)
	if inbox.Unread != 0 {
		t.Errorf("Unread = %d, want 0", inbox.Unread)
	}
}

func TestMemos(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, seed.Dataset{}, Options{})

	if m, err := svc.AddMemo(ctx, "   "); m != nil || err != nil {
		t.Errorf("AddMemo(blank) = %v, %v", m, err)
	}
	m, err := svc.AddMemo(ctx, " Buy milk ")
	if err != nil || m == nil || m.Text != "Buy milk" {
		t.Fatalf("AddMemo() = %v, %v", m, err)
	}
	toggled, err := svc.ToggleMemo(ctx, m.ID)
	if err != nil || !toggled.Completed {
		t.Errorf("ToggleMemo() = %+v, %v", toggled, err)
	}
	if _, err := svc.AddMemo(ctx, "Call bank"); err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteMemo(ctx, m.ID); err != nil {
		t.Fatal(err)
	}
	memos, _ := svc.Memos(ctx)
	if len(memos) != 1 || memos[0].Text != "Call bank" {
		t.Errorf("Memos() = %+v", memos)
	}
	if err := svc.ClearMemos(ctx); err != nil {
		t.Fatal(err)
	}
	memos, _ = svc.Memos(ctx)
	if memos == nil || len(memos) != 0 {
		t.Errorf("Memos() after clear = %#v, want empty slice", memos)
	}
}

func TestAddCard(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, seed.Dataset{}, Options{})

	if _, err := svc.AddCard(ctx, core.Card{BankName: "KB", CardName: "Gold", Last4: "12a4"}); !errors.Is(err, ErrInvalidCard) {
		t.Errorf("AddCard(bad last4) error = %v", err)
	}
	res, err := svc.AddCard(ctx, core.Card{BankName: "KB", CardName: "Gold", Last4: "1234"})
	if err != nil {
		t.Fatalf("AddCard() error = %v", err)
	}
	if res.Card.ID == "" || res.Card.Type != core.CardCredit || !res.Enrolled {
		t.Errorf("AddCard() = %+v", res)
	}
	cards, _ := svc.Cards(ctx)
	if len(cards) != 1 {
		t.Errorf("Cards() = %d, want 1", len(cards))
	}
}

func TestInsight_CachesRealAnswers(t *testing.T) {
	ctx := context.Background()
	model := &countingModel{text: "Coffee is winning this week."}
	svc, _ := newTestService(t, seed.Dataset{}, Options{Advisor: ai.NewAdvisor(model)})
	if _, err := svc.AddManual(ctx, ManualEntry{MerchantName: "Starbucks", Amount: cents(600)}); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		got, err := svc.Insight(ctx, filtering.Criteria{})
		if err != nil {
			t.Fatalf("Insight() error = %v", err)
		}
		if got != model.text {
			t.Errorf("Insight() = %q", got)
		}
	}
	if model.calls != 1 {
		t.Errorf("model calls = %d, want 1", model.calls)
	}

	// A new persona is a new cache entry.
	if err := svc.SetPersona(ctx, core.PersonaMom); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Insight(ctx, filtering.Criteria{}); err != nil {
		t.Fatal(err)
	}
	if model.calls != 2 {
		t.Errorf("model calls = %d, want 2", model.calls)
	}
}

func TestInsight_EditMissesCache(t *testing.T) {
	ctx := context.Background()
	model := &countingModel{text: "Dining is up."}
	svc, _ := newTestService(t, seed.Dataset{}, Options{Advisor: ai.NewAdvisor(model)})
	out, err := svc.AddManual(ctx, ManualEntry{MerchantName: "Kimbap Cheonguk", Amount: cents(900), Category: "Dining"})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Insight(ctx, filtering.Criteria{}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.UpdateCategory(ctx, out.Transaction.ID, "Shopping"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Insight(ctx, filtering.Criteria{}); err != nil {
		t.Fatal(err)
	}
	if model.calls != 2 {
		t.Errorf("model calls = %d, want 2 after a category change", model.calls)
	}
}

func TestInsight_FallbackNotCached(t *testing.T) {
	ctx := context.Background()
	model := &countingModel{err: errors.New("quota")}
	svc, _ := newTestService(t, seed.Dataset{}, Options{Advisor: ai.NewAdvisor(model)})
	if _, err := svc.AddManual(ctx, ManualEntry{MerchantName: "Cafe", Amount: cents(600)}); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		got, _ := svc.Insight(ctx, filtering.Criteria{})
		if got != ai.MsgInsightUnavailable {
			t.Errorf("Insight() = %q, want fallback", got)
		}
	}
	if model.calls != 2 {
		t.Errorf("model calls = %d, want 2", model.calls)
	}

	unconfigured, _ := newTestService(t, seed.Dataset{}, Options{})
	if got, _ := unconfigured.Insight(ctx, filtering.Criteria{}); got != ai.MsgNotConfigured {
		t.Errorf("Insight() without model = %q", got)
	}
}

func TestSuggest_StaleSequence(t *testing.T) {
	ctx := context.Background()
	geo := &fakeGeocoder{results: []core.SearchResult{{Name: "Gangnam Station"}}}
	svc, _ := newTestService(t, seed.Dataset{}, Options{Geocoder: geo})

	got := svc.Suggest(ctx, 5, "gang", nil)
	if got.Stale || len(got.Results) != 1 {
		t.Fatalf("Suggest(5) = %+v", got)
	}
	got = svc.Suggest(ctx, 3, "gan", nil)
	if !got.Stale || len(got.Results) != 0 {
		t.Errorf("Suggest(3) after 5 = %+v, want stale", got)
	}
}

func TestSuggest_NewerLookupCancelsOlder(t *testing.T) {
	ctx := context.Background()
	geo := &fakeGeocoder{results: []core.SearchResult{{Name: "Hongdae"}}, block: make(chan struct{})}
	svc, _ := newTestService(t, seed.Dataset{}, Options{Geocoder: geo})

	first := make(chan SuggestResult)
	go func() { first <- svc.Suggest(ctx, 1, "hon", nil) }()

	// Wait for the first lookup to register before superseding it.
	deadline := time.Now().Add(2 * time.Second)
	for !svc.suggestions.Current(1) {
		if time.Now().After(deadline) {
			t.Fatal("first lookup never started")
		}
		time.Sleep(time.Millisecond)
	}
	secondCh := make(chan SuggestResult)
	go func() { secondCh <- svc.Suggest(ctx, 2, "hong", nil) }()

	// Starting lookup 2 cancels lookup 1 while it is still blocked.
	if r := <-first; !r.Stale {
		t.Errorf("first = %+v, want stale", r)
	}
	close(geo.block)
	if second := <-secondCh; second.Stale || len(second.Results) != 1 {
		t.Errorf("second = %+v", second)
	}
}

func TestSuggest_AutoSequenceNeverRepeats(t *testing.T) {
	ctx := context.Background()
	geo := &fakeGeocoder{results: []core.SearchResult{{Name: "Itaewon"}}}
	svc, _ := newTestService(t, seed.Dataset{}, Options{Geocoder: geo})

	first := svc.Suggest(ctx, 0, "ita", nil)
	second := svc.Suggest(ctx, 0, "itae", nil)
	if first.Seq == second.Seq {
		t.Fatalf("both lookups got seq %d", first.Seq)
	}
	if first.Stale || second.Stale || len(second.Results) != 1 {
		t.Errorf("first = %+v, second = %+v", first, second)
	}
}

func TestSuggest_WithoutGeocoder(t *testing.T) {
	svc, _ := newTestService(t, seed.Dataset{}, Options{})
	got := svc.Suggest(context.Background(), 0, "seoul", nil)
	if got.Results == nil || len(got.Results) != 0 || got.Seq != 1 {
		t.Errorf("Suggest() = %+v", got)
	}
	if svc.SearchPlace(context.Background(), "seoul", nil) != nil {
		t.Error("SearchPlace() without geocoder returned a result")
	}
}

func TestMap_SelectedAndMatched(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, seed.Dataset{}, Options{})
	loc := starbucksOffer().Location
	out, err := svc.AddManual(ctx, ManualEntry{MerchantName: "Starbucks", Amount: cents(500), Category: "Cafe", Location: loc})
	if err != nil {
		t.Fatal(err)
	}

	m, err := svc.Map(ctx, MapQuery{SelectedID: out.Transaction.ID})
	if err != nil {
		t.Fatalf("Map() error = %v", err)
	}
	if len(m.Groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(m.Groups))
	}
	g := m.Groups[0]
	if !g.Selected || !g.Matched {
		t.Errorf("group = %+v, want selected and matched", g)
	}
	if m.Camera == nil {
		t.Error("Camera = nil with a selection")
	}
}

func TestReportAndLedger(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, seed.Dataset{}, Options{})
	may3 := time.Date(2024, time.May, 3, 9, 0, 0, 0, time.UTC)
	april := time.Date(2024, time.April, 28, 9, 0, 0, 0, time.UTC)
	for _, e := range []ManualEntry{
		{MerchantName: "Cafe", Amount: cents(500), Category: "Cafe", Date: &may3},
		{MerchantName: "Bistro", Amount: cents(2500), Category: "Dining"},
		{MerchantName: "Old", Amount: cents(999), Category: "Dining", Date: &april},
	} {
		if _, err := svc.AddManual(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	r, err := svc.Report(ctx, svc.MonthWindow(2024, time.May))
	if err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	if r.Total.Cents != 3000 || len(r.ByCategory) != 2 || r.ByCategory[0].Name != "Dining" {
		t.Errorf("Report() = total %d categories %+v", r.Total.Cents, r.ByCategory)
	}

	w, err := svc.DefaultReportWindow(ctx)
	if err != nil || w.Start.Month() != time.May {
		t.Errorf("DefaultReportWindow() = %+v, %v", w, err)
	}

	l, err := svc.Ledger(ctx, 2024, time.May)
	if err != nil {
		t.Fatalf("Ledger() error = %v", err)
	}
	if len(l.Days) != 2 || l.Days[0].Date.Day() != 15 || l.Total.Cents != 3000 {
		t.Errorf("Ledger() = %+v", l)
	}
}

func TestOffersAndRefresh(t *testing.T) {
	svc, _ := newTestService(t, seed.Dataset{}, Options{})
	if got := svc.Offers(filtering.Criteria{Category: "Cafe"}); len(got) != 1 {
		t.Errorf("Offers(Cafe) = %d, want 1", len(got))
	}
	if got := svc.Offers(filtering.Criteria{Category: "Travel"}); len(got) != 0 {
		t.Errorf("Offers(Travel) = %d, want 0", len(got))
	}
	if _, ok := svc.Offer("offer_sb"); !ok {
		t.Error("Offer(offer_sb) not found")
	}
}

func TestTransactions_ViewModes(t *testing.T) {
	ctx := context.Background()
	d := seed.Dataset{Friends: []core.Transaction{friendTx("f1", core.VisibilityFriends)}}
	svc, _ := newTestService(t, d, Options{})
	if _, err := svc.AddManual(ctx, ManualEntry{MerchantName: "Mine", Amount: cents(100)}); err != nil {
		t.Fatal(err)
	}

	personal, _ := svc.Transactions(ctx, filtering.Criteria{View: filtering.ViewPersonal})
	friends, _ := svc.Transactions(ctx, filtering.Criteria{View: filtering.ViewFriends})
	if len(personal) != 1 || len(friends) != 2 {
		t.Errorf("personal = %d friends = %d, want 1 and 2", len(personal), len(friends))
	}
}
