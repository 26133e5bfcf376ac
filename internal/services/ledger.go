// Package services holds the ledger service: the single state container the
// HTTP handlers, CLI and worker call into. It owns every mutation of the
// user's ledger and derives the read-side views (filtered lists, map,
// report) from the store on each call.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"pinledger/internal/ai"
	"pinledger/internal/amqp"
	"pinledger/internal/budget"
	"pinledger/internal/cache"
	"pinledger/internal/core"
	"pinledger/internal/filtering"
	"pinledger/internal/geocode"
	applog "pinledger/internal/log"
	"pinledger/internal/rewards"
	"pinledger/internal/social"
	"pinledger/internal/store"
)

const (
	insightCacheSize = 256
	insightCacheTTL  = 10 * time.Minute
	placeCacheSize   = 512
	placeCacheTTL    = time.Hour
)

type (
	// Publisher hands new transactions to the reward-matching worker.
	Publisher interface {
		PublishTransactionCreated(ctx context.Context, msg *amqp.TransactionCreatedMessage) error
	}

	Geocoder interface {
		Suggest(ctx context.Context, query string, center *core.Location) []core.SearchResult
		SearchOne(ctx context.Context, query string, center *core.Location) *core.SearchResult
	}

	Options struct {
		HomeCountry string
		CurrentUser core.UserInfo
		// Publisher is optional. Without one, rewards are matched inline.
		Publisher Publisher
		Advisor   *ai.Advisor
		Geocoder  Geocoder
		Location  *time.Location
		Now       func() time.Time
	}

	LedgerService struct {
		store     store.Store
		rewards   rewards.Service
		publisher Publisher
		advisor   *ai.Advisor
		geocoder  Geocoder
		engine    *filtering.Engine
		monitor   *budget.Monitor
		likes     *social.Likes
		user      core.UserInfo
		loc       *time.Location
		now       func() time.Time

		offersMu    sync.RWMutex
		offers      []core.Offer
		offersGroup singleflight.Group

		// budgetMu serializes evaluate-then-notify so two concurrent
		// mutations cannot both raise the same alert.
		budgetMu sync.Mutex

		suggestions geocode.Sequencer

		insights *cache.LRUCache[string]
		places   *cache.LRUCache[core.PlaceInfo]
		caches   *cache.Manager
	}
)

func NewLedgerService(st store.Store, rw rewards.Service, opts Options) *LedgerService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Advisor == nil {
		opts.Advisor = ai.NewAdvisor(nil)
	}
	s := &LedgerService{
		store:     st,
		rewards:   rw,
		publisher: opts.Publisher,
		advisor:   opts.Advisor,
		geocoder:  opts.Geocoder,
		engine:    filtering.New(opts.HomeCountry),
		monitor:   budget.NewMonitor(),
		likes:     social.NewLikes(),
		user:      opts.CurrentUser,
		loc:       opts.Location,
		now:       opts.Now,
		insights:  cache.NewLRUCache[string](insightCacheSize, insightCacheTTL),
		places:    cache.NewLRUCache[core.PlaceInfo](placeCacheSize, placeCacheTTL),
		caches:    cache.NewManager(),
	}
	s.caches.Register(s.insights)
	s.caches.Register(s.places)
	return s
}

// Start loads the offer catalogue and starts cache expiry.
func (s *LedgerService) Start(ctx context.Context) {
	if _, err := s.RefreshOffers(ctx); err != nil {
		slog.WarnContext(ctx, "Initial offer load failed",
			applog.FieldComponent, applog.ComponentLedger,
			applog.FieldError, err)
	}
	s.caches.StartCleanup(5 * time.Minute)
}

// Close stops background work. The store is owned by the caller.
func (s *LedgerService) Close() {
	s.caches.Stop()
}

func (s *LedgerService) CurrentUser() core.UserInfo { return s.user }

// HomeCountry is the country code treated as domestic.
func (s *LedgerService) HomeCountry() string { return s.engine.HomeCountry }

// Ping checks the store is reachable by reading the settings row.
func (s *LedgerService) Ping(ctx context.Context) error {
	_, err := s.store.Persona(ctx)
	return err
}

func (s *LedgerService) localNow() time.Time {
	return s.now().In(s.loc)
}

// Now is the service clock in its configured time zone.
func (s *LedgerService) Now() time.Time { return s.localNow() }

// AIProvider names the configured AI backend, or "none".
func (s *LedgerService) AIProvider() string { return s.advisor.Provider() }

// GeocoderEnabled reports whether place lookups can reach a provider.
func (s *LedgerService) GeocoderEnabled() bool { return s.geocoder != nil }

// Sources loads the three transaction feeds concurrently.
func (s *LedgerService) Sources(ctx context.Context) (filtering.Sources, error) {
	var src filtering.Sources
	g, ctx := errgroup.WithContext(ctx)
	load := func(feed store.Feed, dst *[]core.Transaction) {
		g.Go(func() error {
			txs, err := s.store.List(ctx, feed)
			if err != nil {
				return fmt.Errorf("list %s transactions: %w", feed, err)
			}
			*dst = txs
			return nil
		})
	}
	load(store.FeedMine, &src.Mine)
	load(store.FeedFriends, &src.Friends)
	load(store.FeedGlobal, &src.Global)
	if err := g.Wait(); err != nil {
		return filtering.Sources{}, err
	}
	return src, nil
}

// Transactions returns the filtered, newest-first view for c.
func (s *LedgerService) Transactions(ctx context.Context, c filtering.Criteria) ([]core.Transaction, error) {
	src, err := s.Sources(ctx)
	if err != nil {
		return nil, err
	}
	return s.engine.Transactions(src, c, s.localNow()), nil
}

func (s *LedgerService) Transaction(ctx context.Context, id string) (core.Transaction, error) {
	return s.store.Get(ctx, id)
}

// Offers returns the active offers matching c's category and search term.
func (s *LedgerService) Offers(c filtering.Criteria) []core.Offer {
	return s.engine.Offers(s.allOffers(), c, s.localNow())
}

func (s *LedgerService) allOffers() []core.Offer {
	s.offersMu.RLock()
	defer s.offersMu.RUnlock()
	return s.offers
}

// Offer looks up a loaded offer by ID.
func (s *LedgerService) Offer(id string) (core.Offer, bool) {
	for _, o := range s.allOffers() {
		if o.ID == id {
			return o, true
		}
	}
	return core.Offer{}, false
}

// RefreshOffers reloads the catalogue from the rewards provider. Concurrent
// callers share one upstream request.
func (s *LedgerService) RefreshOffers(ctx context.Context) ([]core.Offer, error) {
	v, err, shared := s.offersGroup.Do("offers", func() (any, error) {
		offers := s.rewards.FetchOffers(ctx, s.user.ID)
		s.offersMu.Lock()
		s.offers = offers
		s.offersMu.Unlock()
		slog.InfoContext(ctx, "Offers refreshed",
			applog.FieldComponent, applog.ComponentLedger,
			"count", len(offers))
		return offers, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		slog.DebugContext(ctx, "Offer refresh collapsed into in-flight request",
			applog.FieldComponent, applog.ComponentLedger)
	}
	return v.([]core.Offer), nil
}
