package core

import (
	"errors"
	"strings"
	"time"
)

const (
	StatusPending   TxStatus = "pending"
	StatusCompleted TxStatus = "completed"
)

const (
	VisibilityPrivate Visibility = "private"
	VisibilityFriends Visibility = "friends"
	VisibilityPublic  Visibility = "public"
)

const (
	CardCredit CardType = "Credit"
	CardDebit  CardType = "Debit"
)

// Category names with special filtering semantics.
const (
	CategoryAll      = "All"
	CategoryOverseas = "Overseas"
	CategoryOnline   = "Online"
)

// Categories lists the category chips offered to the client.
var Categories = []string{
	"Dining",
	"Shopping",
	"Transport",
	"Travel",
	CategoryOverseas,
	"Entertainment",
	"Cafe",
	CategoryOnline,
	"Subscription",
}

type (
	TxStatus   string
	Visibility string
	CardType   string

	Location struct {
		Lat     float64 `json:"lat"`
		Lng     float64 `json:"lng"`
		Address string  `json:"address,omitempty"`
	}

	UserInfo struct {
		ID            string `json:"id"`
		Name          string `json:"name"`
		AvatarURL     string `json:"avatarUrl"`
		IsCurrentUser bool   `json:"isCurrentUser"`
	}

	Comment struct {
		ID        string    `json:"id"`
		User      UserInfo  `json:"user"`
		Text      string    `json:"text"`
		Timestamp time.Time `json:"timestamp"`
	}

	// Transaction is a single card or manual spend. A nil Location marks it
	// as online.
	Transaction struct {
		ID               string       `json:"id"`
		Amount           Money        `json:"amount"`
		Currency         string       `json:"currency"`
		OriginalAmount   *Money       `json:"originalAmount,omitempty"`
		OriginalCurrency string       `json:"originalCurrency,omitempty"`
		ExchangeRate     float64      `json:"exchangeRate,omitempty"`
		CountryCode      string       `json:"countryCode,omitempty"`
		MerchantName     string       `json:"merchantName"`
		Date             time.Time    `json:"date"`
		Category         string       `json:"category"`
		Location         *Location    `json:"location,omitempty"`
		Status           TxStatus     `json:"status"`
		Memo             string       `json:"memo,omitempty"`
		PhotoURL         string       `json:"photoUrl,omitempty"`
		Visibility       Visibility   `json:"visibility"`
		User             UserInfo     `json:"user"`
		Comments         []Comment    `json:"comments,omitempty"`
		LikeCount        int          `json:"likeCount"`
		Receipt          *ReceiptData `json:"receiptData,omitempty"`
		LogoURL          string       `json:"logoUrl,omitempty"`
	}

	// Offer is a merchant cashback promotion. CashbackRate is a fraction in [0, 1].
	Offer struct {
		ID           string     `json:"id"`
		MerchantName string     `json:"merchantName"`
		CashbackRate float64    `json:"cashbackRate"`
		Description  string     `json:"description"`
		Location     *Location  `json:"location,omitempty"`
		Category     string     `json:"category,omitempty"`
		ValidFrom    *time.Time `json:"validFrom,omitempty"`
		ValidUntil   *time.Time `json:"validUntil,omitempty"`
	}

	Card struct {
		ID       string   `json:"id"`
		BankName string   `json:"bankName"`
		CardName string   `json:"cardName"`
		Last4    string   `json:"last4"`
		Color    string   `json:"color"`
		Type     CardType `json:"type"`
	}

	MemoItem struct {
		ID        string `json:"id"`
		Text      string `json:"text"`
		Completed bool   `json:"completed"`
	}

	// SearchResult is a geocoded place. It is never persisted.
	SearchResult struct {
		Name        string   `json:"name"`
		Location    Location `json:"location"`
		Description string   `json:"description,omitempty"`
	}

	PlaceLink struct {
		Title string `json:"title"`
		URI   string `json:"uri"`
	}

	PlaceInfo struct {
		Text  string      `json:"text"`
		Links []PlaceLink `json:"links"`
	}
)

var (
	ErrNotFound             = errors.New("not found")
	ErrNotOwner             = errors.New("transaction belongs to another user")
	ErrConfirmationRequired = errors.New("confirmation required")
	ErrPrivateTransaction   = errors.New("transaction is private")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrEmptyMerchant        = errors.New("empty merchant name")
	ErrEmptyText            = errors.New("empty text")
	ErrInvalidPeriod        = errors.New("invalid budget period")
	ErrInvalidPersona       = errors.New("invalid persona")
	ErrInvalidVisibility    = errors.New("invalid visibility")
)

// IsOnline reports whether the transaction has no physical location.
func (t Transaction) IsOnline() bool {
	return t.Location == nil
}

// HasReviewContent reports whether the transaction carries a memo or a photo.
func (t Transaction) HasReviewContent() bool {
	return strings.TrimSpace(t.Memo) != "" || t.PhotoURL != ""
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.MerchantName) == "" {
		return ErrEmptyMerchant
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if err := t.Visibility.Validate(); err != nil {
		return err
	}
	return nil
}

func (v Visibility) Validate() error {
	switch v {
	case VisibilityPrivate, VisibilityFriends, VisibilityPublic:
		return nil
	default:
		return ErrInvalidVisibility
	}
}

// ActiveAt reports whether now falls inside the offer validity window. Offers
// missing either bound are always active.
func (o Offer) ActiveAt(now time.Time) bool {
	if o.ValidFrom == nil || o.ValidUntil == nil {
		return true
	}
	return !now.Before(*o.ValidFrom) && !now.After(*o.ValidUntil)
}

// IsOnlineDeal reports whether the offer belongs to the online hub.
func (o Offer) IsOnlineDeal() bool {
	return o.Location == nil || o.Category == CategoryOnline
}
