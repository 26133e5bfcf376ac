// Package ai turns spending data and receipt photos into model prompts and
// parses the answers back into domain values.
//
// The Advisor never surfaces model failures to its callers. Every error is
// logged and replaced by a fixed fallback so the map and dashboards keep
// rendering when the provider is down or unconfigured.
package ai

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"strings"

	"golang.org/x/sync/semaphore"

	"pinledger/internal/core"
	applog "pinledger/internal/log"
)

const (
	MsgNotConfigured      = "API Key not configured."
	MsgInsightUnavailable = "AI Insights currently unavailable."
	MsgInsightEmpty       = "Unable to analyze spending history."
	MsgPlaceUnavailable   = "Could not fetch place details."
	MsgPlaceEmpty         = "No details found."
)

// MaxConcurrentReceipts bounds the OCR calls in flight.
const MaxConcurrentReceipts = 3

var ErrEmptyCompletion = errors.New("model returned no text")

type (
	// Image is an inline picture sent alongside a prompt.
	Image struct {
		MIMEType string
		Data     []byte
	}

	Prompt struct {
		System string
		Text   string
		Image  *Image
		// Grounded asks the provider to attach web/maps sources when it can.
		Grounded bool
		Near     *core.Location
		// JSON asks for a bare JSON object as the answer.
		JSON bool
	}

	Completion struct {
		Text  string
		Links []core.PlaceLink
	}

	// Model is a single text generation backend.
	Model interface {
		Name() string
		Generate(ctx context.Context, p Prompt) (Completion, error)
	}

	Advisor struct {
		model    Model
		receipts *semaphore.Weighted
		rng      func() float64
	}
)

// NewAdvisor wraps model. A nil model yields an advisor that answers every
// request with the not-configured fallback.
func NewAdvisor(model Model) *Advisor {
	return &Advisor{
		model:    model,
		receipts: semaphore.NewWeighted(MaxConcurrentReceipts),
		rng:      rand.Float64,
	}
}

// Configured reports whether a model backs the advisor.
func (a *Advisor) Configured() bool {
	return a != nil && a.model != nil
}

// Provider names the backing model, or "none".
func (a *Advisor) Provider() string {
	if !a.Configured() {
		return "none"
	}
	return a.model.Name()
}

// GenerateInsight returns a one or two sentence comment on txs in the voice
// of persona.
func (a *Advisor) GenerateInsight(ctx context.Context, txs []core.Transaction, persona core.Persona, budget *core.BudgetConfig) string {
	if !a.Configured() {
		return MsgNotConfigured
	}
	out, err := a.model.Generate(ctx, InsightPrompt(txs, persona, budget))
	if err != nil {
		slog.ErrorContext(ctx, "Insight generation failed",
			applog.FieldComponent, applog.ComponentAI,
			"provider", a.model.Name(),
			"persona", string(persona),
			applog.FieldError, err)
		return MsgInsightUnavailable
	}
	if text := strings.TrimSpace(out.Text); text != "" {
		return text
	}
	return MsgInsightEmpty
}

// PlaceDetails describes a merchant in two sentences with links to sources.
func (a *Advisor) PlaceDetails(ctx context.Context, merchant string, near *core.Location) core.PlaceInfo {
	if !a.Configured() {
		return core.PlaceInfo{Text: strings.TrimSuffix(MsgNotConfigured, "."), Links: []core.PlaceLink{}}
	}
	out, err := a.model.Generate(ctx, PlacePrompt(merchant, near))
	if err != nil {
		slog.ErrorContext(ctx, "Place details failed",
			applog.FieldComponent, applog.ComponentAI,
			"provider", a.model.Name(),
			"merchant", merchant,
			applog.FieldError, err)
		return core.PlaceInfo{Text: MsgPlaceUnavailable, Links: []core.PlaceLink{}}
	}
	info := core.PlaceInfo{Text: strings.TrimSpace(out.Text), Links: out.Links}
	if info.Text == "" {
		info.Text = MsgPlaceEmpty
	}
	if info.Links == nil {
		info.Links = []core.PlaceLink{}
	}
	return info
}

// AnalyzeReceipt runs OCR on a receipt photo. It returns nil when the image
// is unusable, the model fails, or the answer is not valid receipt JSON.
// At most MaxConcurrentReceipts calls reach the model at once; waiting
// callers give up when ctx ends.
func (a *Advisor) AnalyzeReceipt(ctx context.Context, image []byte) *core.ReceiptData {
	if !a.Configured() {
		return nil
	}
	img, err := DecodeImage(image)
	if err != nil {
		slog.WarnContext(ctx, "Rejected receipt image",
			applog.FieldComponent, applog.ComponentAI,
			applog.FieldError, err)
		return nil
	}
	if err := a.receipts.Acquire(ctx, 1); err != nil {
		return nil
	}
	defer a.receipts.Release(1)

	out, err := a.model.Generate(ctx, ReceiptPrompt(img))
	if err == nil && strings.TrimSpace(out.Text) == "" {
		err = ErrEmptyCompletion
	}
	if err != nil {
		slog.ErrorContext(ctx, "Receipt OCR failed",
			applog.FieldComponent, applog.ComponentAI,
			"provider", a.model.Name(),
			applog.FieldError, err)
		return nil
	}
	data, err := ParseReceipt(out.Text)
	if err != nil {
		slog.ErrorContext(ctx, "Receipt OCR returned invalid JSON",
			applog.FieldComponent, applog.ComponentAI,
			"provider", a.model.Name(),
			applog.FieldError, err)
		return nil
	}
	a.suggestAlternatives(data)
	return data
}
