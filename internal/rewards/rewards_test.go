package rewards

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"pinledger/internal/core"
)

var catalogue = []core.Offer{
	{ID: "off_1", MerchantName: "Starbucks", CashbackRate: 0.05},
	{ID: "off_2", MerchantName: "Joe's Pizza Downtown", CashbackRate: 0.1},
}

func TestMatch(t *testing.T) {
	tests := []struct {
		name     string
		merchant string
		cents    int64
		wantID   string
		reward   int64
	}{
		{"exact", "Starbucks", 1000, "off_1", 50},
		{"transaction contains offer", "STARBUCKS #1204", 1234, "off_1", 62},
		{"offer contains transaction", "joe's pizza", 2050, "off_2", 205},
		{"no overlap", "Target", 1000, "", 0},
		{"blank merchant", "  ", 1000, "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Match(catalogue, core.Transaction{MerchantName: tt.merchant, Amount: core.Money{Cents: tt.cents}})
			if tt.wantID == "" {
				if got.Matched || got.Offer != nil {
					t.Fatalf("unexpected match %+v", got)
				}
				return
			}
			if !got.Matched || got.Offer.ID != tt.wantID || got.RewardAmount.Cents != tt.reward {
				t.Fatalf("got %+v (reward %d), want %s/%d", got, got.RewardAmount.Cents, tt.wantID, tt.reward)
			}
		})
	}
}

func TestMockIsolatesCatalogue(t *testing.T) {
	m := NewMock(catalogue)
	offers := m.FetchOffers(context.Background(), "u1")
	offers[0].MerchantName = "changed"
	if again := m.FetchOffers(context.Background(), "u1"); again[0].MerchantName != "Starbucks" {
		t.Fatalf("catalogue mutated through returned slice")
	}
	if !m.EnrollCard(context.Background(), "card_1") {
		t.Fatal("mock enrollment should succeed")
	}
}

func TestClient(t *testing.T) {
	var auth []string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /kard/offers", func(w http.ResponseWriter, r *http.Request) {
		auth = append(auth, r.Header.Get("Authorization"))
		if r.URL.Query().Get("userId") != "u1" {
			http.Error(w, "bad user", http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode([]core.Offer{{ID: "remote", MerchantName: "Shake Shack", CashbackRate: 0.07}})
	})
	mux.HandleFunc("POST /kard/transactions/match", func(w http.ResponseWriter, r *http.Request) {
		var tx core.Transaction
		_ = json.NewDecoder(r.Body).Decode(&tx)
		if tx.MerchantName != "Shake Shack" {
			_, _ = io.WriteString(w, `{"matched":false}`)
			return
		}
		_, _ = io.WriteString(w, `{"matched":true,"offer":{"id":"remote","merchantName":"Shake Shack","cashbackRate":0.07},"rewardAmount":1.4}`)
	})
	mux.HandleFunc("POST /kard/cards/{id}/enroll", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "card_1" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(srv.URL+"/", "secret", catalogue)
	ctx := context.Background()

	offers := c.FetchOffers(ctx, "u1")
	if len(offers) != 1 || offers[0].ID != "remote" {
		t.Fatalf("offers = %+v", offers)
	}
	if len(auth) != 1 || auth[0] != "Bearer secret" {
		t.Errorf("auth = %v", auth)
	}

	res := c.MatchTransaction(ctx, core.Transaction{ID: "t1", MerchantName: "Shake Shack", Amount: core.Money{Cents: 2000}})
	if !res.Matched || res.Offer == nil || res.RewardAmount.Cents != 140 {
		t.Errorf("match = %+v", res)
	}
	if res := c.MatchTransaction(ctx, core.Transaction{MerchantName: "Other"}); res.Matched {
		t.Errorf("unexpected match %+v", res)
	}

	if !c.EnrollCard(ctx, "card_1") {
		t.Error("enroll card_1 failed")
	}
	if c.EnrollCard(ctx, "card_9") {
		t.Error("enroll of unknown card should fail")
	}
}

func TestClientFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", catalogue)
	ctx := context.Background()
	if offers := c.FetchOffers(ctx, "u1"); len(offers) != len(catalogue) {
		t.Fatalf("fallback offers = %+v", offers)
	}
	if res := c.MatchTransaction(ctx, core.Transaction{MerchantName: "Starbucks"}); res.Matched {
		t.Fatalf("failed match call should not match: %+v", res)
	}
	if c.EnrollCard(ctx, "card_1") {
		t.Fatal("failed enrollment reported success")
	}
}
