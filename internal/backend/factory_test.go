package backend

import (
	"context"
	"path/filepath"
	"testing"

	"pinledger/internal/config"
	"pinledger/internal/store"
)

func TestCreateBackend_Memory(t *testing.T) {
	ctx := context.Background()
	res, err := NewFactory(nil).CreateBackend(ctx, Config{Type: MemoryBackend, Seed: 42})
	if err != nil {
		t.Fatalf("CreateBackend() error = %v", err)
	}
	if res.Cleanup != nil {
		t.Error("memory backend needs no cleanup")
	}
	mine, err := res.Store.List(ctx, store.FeedMine)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(mine) == 0 || len(mine) != len(res.Dataset.Mine) {
		t.Errorf("mine = %d transactions, dataset has %d", len(mine), len(res.Dataset.Mine))
	}
	if len(res.Dataset.Offers) == 0 {
		t.Error("dataset should carry offers for the mock rewards provider")
	}
}

func TestCreateBackend_SQLiteSeedsOnce(t *testing.T) {
	ctx := context.Background()
	cfg := Config{Type: SQLiteBackend, Seed: 7, SQLiteDBPath: filepath.Join(t.TempDir(), "ledger.db")}
	f := NewFactory(nil)

	first, err := f.CreateBackend(ctx, cfg)
	if err != nil {
		t.Fatalf("first CreateBackend() error = %v", err)
	}
	if !first.Seeded {
		t.Error("empty database should be seeded")
	}
	if err := first.Cleanup(); err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}

	second, err := f.CreateBackend(ctx, cfg)
	if err != nil {
		t.Fatalf("second CreateBackend() error = %v", err)
	}
	t.Cleanup(func() { _ = second.Cleanup() })
	if second.Seeded {
		t.Error("existing database must not be reseeded")
	}
	mine, err := second.Store.List(ctx, store.FeedMine)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(mine) != len(first.Dataset.Mine) {
		t.Errorf("mine = %d, want %d", len(mine), len(first.Dataset.Mine))
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"unknown", Config{Type: "sheets"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
	got, err := FromAppConfig(&config.Config{DataBackend: "sqlite", SQLiteDBPath: "a.db", Seed: 3})
	if err != nil {
		t.Fatalf("FromAppConfig() error = %v", err)
	}
	if got.Type != SQLiteBackend || got.SQLiteDBPath != "a.db" || got.Seed != 3 {
		t.Errorf("FromAppConfig() = %+v", got)
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}
