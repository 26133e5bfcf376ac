package ai

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"pinledger/internal/core"
)

// MaxImageBytes caps a decoded receipt photo.
const MaxImageBytes = 8 << 20

var (
	ErrNotAnImage    = errors.New("unsupported image format")
	ErrImageTooLarge = errors.New("image too large")
)

var (
	dataURLPrefix = regexp.MustCompile(`^data:image/(png|jpeg|jpg|webp);base64,`)
	codeFence     = regexp.MustCompile("```(?:json)?")
)

// Competitors offered as cheaper alternatives on receipt items.
var Competitors = []string{"K-Mart", "Target", "Aldi", "Trader Joes"}

var imageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
}

// DecodeImage accepts raw image bytes or a base64 data URL and sniffs the
// MIME type. Only PNG, JPEG and WebP pass.
func DecodeImage(raw []byte) (Image, error) {
	s := strings.TrimSpace(string(raw))
	if loc := dataURLPrefix.FindStringIndex(s); loc != nil {
		b, err := base64.StdEncoding.DecodeString(s[loc[1]:])
		if err != nil {
			return Image{}, fmt.Errorf("decode data url: %w", err)
		}
		raw = b
	}
	if len(raw) == 0 {
		return Image{}, ErrNotAnImage
	}
	if len(raw) > MaxImageBytes {
		return Image{}, ErrImageTooLarge
	}
	mime := http.DetectContentType(raw)
	if !imageTypes[mime] {
		return Image{}, fmt.Errorf("%w: %s", ErrNotAnImage, mime)
	}
	return Image{MIMEType: mime, Data: raw}, nil
}

// ParseReceipt decodes a model answer into ReceiptData, tolerating markdown
// fences around the JSON.
func ParseReceipt(text string) (*core.ReceiptData, error) {
	clean := strings.TrimSpace(codeFence.ReplaceAllString(text, ""))
	var data core.ReceiptData
	if err := json.Unmarshal([]byte(clean), &data); err != nil {
		return nil, fmt.Errorf("parse receipt json: %w", err)
	}
	data.Normalize()
	return &data, nil
}

// suggestAlternatives gives roughly 30% of items a competitor price at 80-95%
// of the scanned one.
func (a *Advisor) suggestAlternatives(data *core.ReceiptData) {
	for i := range data.Items {
		if a.rng() <= 0.7 {
			continue
		}
		store := Competitors[int(a.rng()*float64(len(Competitors)))%len(Competitors)]
		factor := 0.8 + a.rng()*0.15
		data.Items[i].CheaperAlternative = &core.CheaperAlternative{
			Store: store,
			Price: data.Items[i].Price.MulRate(factor),
		}
	}
}
