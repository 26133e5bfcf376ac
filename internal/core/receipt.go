package core

import (
	"fmt"
	"strings"
)

type (
	CheaperAlternative struct {
		Store string `json:"store"`
		Price Money  `json:"price"`
	}

	ReceiptItem struct {
		Name               string              `json:"name"`
		Price              Money               `json:"price"`
		Quantity           int                 `json:"quantity"`
		CheaperAlternative *CheaperAlternative `json:"cheaperAlternative,omitempty"`
	}

	// ReceiptData is the structured result of receipt OCR.
	ReceiptData struct {
		MerchantName string        `json:"merchantName"`
		Date         string        `json:"date"`
		Currency     string        `json:"currency"`
		Subtotal     Money         `json:"subtotal"`
		Tax          Money         `json:"tax"`
		Tip          Money         `json:"tip"`
		TotalAmount  Money         `json:"totalAmount"`
		Items        []ReceiptItem `json:"items"`
	}
)

// Normalize fills defaults the OCR model is allowed to omit.
func (r *ReceiptData) Normalize() {
	r.MerchantName = strings.TrimSpace(r.MerchantName)
	if r.Currency == "" {
		r.Currency = "USD"
	}
	for i := range r.Items {
		if r.Items[i].Quantity <= 0 {
			r.Items[i].Quantity = 1
		}
	}
}

// Breakdown renders the memo line stored on transactions created from a receipt.
func (r ReceiptData) Breakdown() string {
	return fmt.Sprintf("Subtotal: $%s | Tax: $%s | Tip: $%s", r.Subtotal.Fixed(), r.Tax.Fixed(), r.Tip.Fixed())
}
