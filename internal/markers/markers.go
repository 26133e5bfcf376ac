// Package markers turns filtered transactions and offers into map groups with
// a deterministic visual state, plus the camera target for the current
// selection.
package markers

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"pinledger/internal/core"
	"pinledger/internal/filtering"
)

const (
	HubKey = "online-hub"

	// MatchTolerance is the per-axis distance, in degrees, under which an
	// offer and a transaction are considered the same place.
	MatchTolerance = 0.0001

	// VIPVisits is the visit count from which a place is styled as VIP.
	VIPVisits = 5

	ZoomDetail = 16
	ZoomHub    = 14
	ZoomWorld  = 2
)

var (
	// HubPosition is the sentinel coordinate for location-less transactions.
	HubPosition = core.Location{Lat: 40.6892, Lng: -74.0445}
	// WorldCenter is where the camera goes for the overseas category.
	WorldCenter = core.Location{Lat: 35, Lng: 0}
)

const (
	StateNormal      State = "normal"
	StateVIP         State = "vip"
	StateMatched     State = "matched"
	StateOnline      State = "online"
	StateOnlineDeals State = "online_deals"
)

const (
	zSearch   = 10000
	zSelected = 1000
	zMatched  = 950
	zVIP      = 900
	zNormal   = 800
	zOffer    = 500
)

type (
	State string

	// Style carries the colors and glyph names a renderer needs.
	Style struct {
		Fill   string `json:"fill"`
		Stroke string `json:"stroke"`
		Icon   string `json:"iconColor"`
		Glyph  string `json:"glyph"`
		Badge  string `json:"badge,omitempty"`
	}

	Group struct {
		Key            string             `json:"key"`
		Position       core.Location      `json:"position"`
		IsHub          bool               `json:"isOnlineHub"`
		Transactions   []core.Transaction `json:"transactions"`
		Representative core.Transaction   `json:"representative"`
		Count          int                `json:"count"`
		Selected       bool               `json:"selected"`
		Matched        bool               `json:"matched"`
		State          State              `json:"state"`
		Style          Style              `json:"style"`
		ZIndex         int                `json:"zIndex"`
		Title          string             `json:"title"`
		Caption        string             `json:"caption"`
		Tag            string             `json:"tag,omitempty"`
	}

	OfferMarker struct {
		Offer    core.Offer    `json:"offer"`
		Position core.Location `json:"position"`
		ZIndex   int           `json:"zIndex"`
		Caption  string        `json:"caption"`
	}

	SearchMarker struct {
		Result  core.SearchResult `json:"result"`
		Offer   *core.Offer       `json:"offer,omitempty"`
		ZIndex  int               `json:"zIndex"`
		Caption string            `json:"caption,omitempty"`
	}

	// Camera is where the map should fly to. Nil means leave it alone.
	Camera struct {
		Center core.Location `json:"center"`
		Zoom   int           `json:"zoom"`
	}

	Input struct {
		Transactions []core.Transaction
		Offers       []core.Offer
		SelectedID   string
		Category     string
		Search       *core.SearchResult
	}

	Map struct {
		Groups            []Group       `json:"groups"`
		OfferMarkers      []OfferMarker `json:"offerMarkers"`
		OnlineOffersCount int           `json:"onlineOffersCount"`
		Search            *SearchMarker `json:"search,omitempty"`
		Camera            *Camera       `json:"camera,omitempty"`
	}
)

// Key returns the grouping key for a location, rounded to 5 decimals.
func Key(loc core.Location) string {
	return fmt.Sprintf("%.5f,%.5f", loc.Lat, loc.Lng)
}

// Compose builds the full marker set for one render.
func Compose(in Input) Map {
	onlineOffers := 0
	for _, o := range in.Offers {
		if o.IsOnlineDeal() {
			onlineOffers++
		}
	}

	groups := GroupTransactions(in.Transactions)
	for i := range groups {
		decorate(&groups[i], in.Offers, in.SelectedID, onlineOffers)
	}

	m := Map{
		Groups:            groups,
		OfferMarkers:      offerMarkers(in.Offers, groups),
		OnlineOffersCount: onlineOffers,
	}
	if in.Search != nil {
		m.Search = searchMarker(*in.Search, in.Offers)
	}
	m.Camera = camera(in, groups)
	return m
}

// GroupTransactions buckets located transactions by rounded coordinates, in
// first-seen order, and appends the online hub when any transaction lacks a
// location. Each group's members are sorted newest first.
func GroupTransactions(txs []core.Transaction) []Group {
	index := make(map[string]int)
	var groups []Group
	var online []core.Transaction

	for _, t := range txs {
		if t.Location == nil {
			online = append(online, t)
			continue
		}
		k := Key(*t.Location)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, Group{
				Key:      k,
				Position: core.Location{Lat: t.Location.Lat, Lng: t.Location.Lng},
			})
		}
		groups[i].Transactions = append(groups[i].Transactions, t)
	}
	if len(online) > 0 {
		groups = append(groups, Group{
			Key:          HubKey,
			Position:     HubPosition,
			IsHub:        true,
			Transactions: online,
		})
	}

	for i := range groups {
		g := &groups[i]
		slices.SortStableFunc(g.Transactions, func(a, b core.Transaction) int {
			return b.Date.Compare(a.Date)
		})
		g.Representative = g.Transactions[0]
		g.Count = len(g.Transactions)
	}
	return groups
}

// Matches reports whether offer o corresponds to transaction t.
func Matches(o core.Offer, t core.Transaction) bool {
	if strings.EqualFold(o.MerchantName, t.MerchantName) {
		return true
	}
	return o.Location != nil && t.Location != nil && near(*o.Location, *t.Location)
}

func near(a, b core.Location) bool {
	return math.Abs(a.Lat-b.Lat) < MatchTolerance && math.Abs(a.Lng-b.Lng) < MatchTolerance
}

func decorate(g *Group, offers []core.Offer, selectedID string, onlineOffers int) {
	rep := g.Representative
	for _, o := range offers {
		if Matches(o, rep) {
			g.Matched = true
			break
		}
	}
	if selectedID != "" {
		for _, t := range g.Transactions {
			if t.ID == selectedID {
				g.Selected = true
				break
			}
		}
	}

	switch {
	case g.IsHub && onlineOffers > 0:
		g.State = StateOnlineDeals
	case g.IsHub:
		g.State = StateOnline
	case g.Matched:
		g.State = StateMatched
	case g.Count >= VIPVisits:
		g.State = StateVIP
	default:
		g.State = StateNormal
	}
	g.Style = StyleFor(g.State, rep.Category)

	switch {
	case g.Selected:
		g.ZIndex = zSelected
	case g.Matched:
		g.ZIndex = zMatched
	case g.Count >= VIPVisits:
		g.ZIndex = zVIP
	default:
		g.ZIndex = zNormal
	}

	g.Title = rep.MerchantName
	if g.IsHub {
		g.Title = "Online Purchases"
	}
	if g.Count > 1 {
		g.Caption = fmt.Sprintf("%d items total", g.Count)
	} else {
		g.Caption = rep.Date.Format("1/2/2006")
	}
	switch {
	case g.IsHub && onlineOffers > 0:
		g.Tag = fmt.Sprintf("%d Deals Available", onlineOffers)
	case g.Matched && !g.IsHub:
		g.Tag = "Cashback Pending"
	}
}

// Glyph names the icon used for a category.
func Glyph(category string) string {
	switch category {
	case "Dining":
		return "utensils"
	case "Shopping":
		return "shopping-bag"
	case "Cafe":
		return "coffee"
	case "Transport":
		return "car"
	default:
		return "map-pin"
	}
}

// CategoryColor is the stroke and icon color of a plain marker.
func CategoryColor(category string) string {
	switch category {
	case "Dining":
		return "#F97316"
	case "Shopping":
		return "#0EA5E9"
	case "Cafe":
		return "#F43F5E"
	case "Transport":
		return "#475569"
	default:
		return "#6366F1"
	}
}

// StyleFor maps a visual state to its palette.
func StyleFor(s State, category string) Style {
	switch s {
	case StateOnlineDeals:
		return Style{Fill: "#ECFDF5", Stroke: "#059669", Icon: "#059669", Glyph: "globe", Badge: "sparkles"}
	case StateOnline:
		return Style{Fill: "#EFF6FF", Stroke: "#3B82F6", Icon: "#2563EB", Glyph: "globe", Badge: "cloud"}
	case StateMatched:
		return Style{Fill: "gradient:#10B981-#047857", Stroke: "#059669", Icon: "#FFFFFF", Glyph: Glyph(category), Badge: "sparkles"}
	case StateVIP:
		return Style{Fill: "#FFFBEB", Stroke: "#F59E0B", Icon: "#D97706", Glyph: Glyph(category), Badge: "crown"}
	default:
		c := CategoryColor(category)
		return Style{Fill: "#FFFFFF", Stroke: c, Icon: c, Glyph: Glyph(category)}
	}
}

func offerMarkers(offers []core.Offer, groups []Group) []OfferMarker {
	var out []OfferMarker
	for _, o := range offers {
		if o.Location == nil {
			continue
		}
		if coveredByGroup(*o.Location, groups) {
			continue
		}
		out = append(out, OfferMarker{
			Offer:    o,
			Position: *o.Location,
			ZIndex:   zOffer,
			Caption:  cashbackCaption(o.CashbackRate),
		})
	}
	return out
}

func coveredByGroup(loc core.Location, groups []Group) bool {
	for _, g := range groups {
		if near(g.Position, loc) {
			return true
		}
	}
	return false
}

func searchMarker(r core.SearchResult, offers []core.Offer) *SearchMarker {
	sm := &SearchMarker{Result: r, ZIndex: zSearch}
	if o, ok := filtering.OfferForPlace(offers, r.Name); ok {
		sm.Offer = &o
		sm.Caption = cashbackCaption(o.CashbackRate)
	}
	return sm
}

func cashbackCaption(rate float64) string {
	return fmt.Sprintf("%d%% Cashback", int(math.Round(rate*100)))
}

// camera picks the fly-to target. A search result wins over a selection,
// which wins over the category jump.
func camera(in Input, groups []Group) *Camera {
	if in.Search != nil {
		return &Camera{Center: in.Search.Location, Zoom: ZoomDetail}
	}
	if in.SelectedID != "" {
		for _, g := range groups {
			if g.Selected {
				return &Camera{Center: g.Position, Zoom: ZoomDetail}
			}
		}
		for _, o := range in.Offers {
			if o.ID == in.SelectedID && o.Location != nil {
				return &Camera{Center: *o.Location, Zoom: ZoomDetail}
			}
		}
	}
	switch in.Category {
	case core.CategoryOverseas:
		return &Camera{Center: WorldCenter, Zoom: ZoomWorld}
	case core.CategoryOnline:
		return &Camera{Center: HubPosition, Zoom: ZoomHub}
	}
	return nil
}
