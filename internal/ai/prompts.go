package ai

import (
	"fmt"
	"math"
	"strings"

	"pinledger/internal/core"
)

// InsightPrompt builds the spending-advice prompt for persona. A budget with
// a positive amount adds a status paragraph the persona is told to react to.
func InsightPrompt(txs []core.Transaction, persona core.Persona, budget *core.BudgetConfig) Prompt {
	var total core.Money
	var b strings.Builder
	for _, t := range txs {
		total = total.Add(t.Amount)
		where := "Online"
		if !t.IsOnline() {
			where = "Offline"
		}
		fmt.Fprintf(&b, "- %s (%s): %s %s [%s]\n", t.MerchantName, t.Category, t.Amount.String(), t.Currency, where)
	}

	budgetContext := budgetParagraph(total, budget)
	system := personaInstruction(persona, budgetContext != "")

	var text strings.Builder
	if budgetContext != "" {
		text.WriteString(budgetContext)
		text.WriteString("\n\n")
	}
	text.WriteString("Here is the recent transaction history:\n")
	text.WriteString(b.String())
	text.WriteString("\nProvide the insight based on your persona.")

	return Prompt{System: system, Text: text.String()}
}

func budgetParagraph(total core.Money, budget *core.BudgetConfig) string {
	if budget == nil || budget.Amount.Cents <= 0 {
		return ""
	}
	percent := int(math.Round(total.Ratio(budget.Amount) * 100))
	period := string(budget.Period)
	if budget.Period == core.PeriodCustom && budget.CustomStart != "" && budget.CustomEnd != "" {
		period = budget.CustomStart + " to " + budget.CustomEnd
	}
	return strings.Join([]string{
		fmt.Sprintf("User's Budget Goal: $%s (%s).", budget.Amount.String(), period),
		fmt.Sprintf("Current Total Spending in View: $%s.", total.Fixed()),
		fmt.Sprintf("Budget Used: %d%%.", percent),
		"If used > 100%, they are over budget. If > 80%, they are close.",
		"Mention this budget status in your advice.",
	}, "\n")
}

func personaInstruction(p core.Persona, hasBudget bool) string {
	var lines []string
	var budgetLine string
	switch p {
	case core.PersonaMom:
		lines = []string{
			"You are the user's strict but caring mother.",
			"Your tone should be nagging, concerned, yet affectionate.",
			"Scold them for spending too much on useless things (like coffee or dining out).",
			"Tell them to eat at home more.",
			`Use phrases like "Oh my goodness", "Why do you spend so much?", "Save money for your future".`,
		}
		budgetLine = "If they are over budget, scold them! If under, tell them to save it."
	case core.PersonaRobot:
		lines = []string{
			"You are a cold, emotionless, data-driven robot analyzer.",
			"Output must be purely logical, objective, and statistical.",
			"Do not use any emotional words.",
			`Start sentences with "Analysis indicates...", "Data shows...", "Pattern detected...".`,
		}
		budgetLine = "State the exact budget variance percentage."
	case core.PersonaCheerleader:
		lines = []string{
			"You are an overly enthusiastic cheerleader!",
			"Your tone is high-energy, positive, and full of hype.",
			"Even if they spent money, find a positive spin or encourage them to do better next time!",
			"Use lots of exclamation marks! Use emojis!",
			`Phrases like "You got this!", "Let's gooo!", "Great job tracking!".`,
		}
		budgetLine = "If under budget, celebrate! If over, cheer them on to do better next period!"
	case core.PersonaScrooge:
		lines = []string{
			"You are Ebenezer Scrooge. You hate spending money. You love hoarding wealth and gold.",
			"Your tone is grumpy, stingy, and critical of any expense.",
			`Use old-fashioned words like "Bah Humbug!", "Wasteful!", "Penny pinching".`,
			"If they spent money, criticize it harshly. If they saved (or spent little), grudgingly approve but say they could have saved more.",
		}
		budgetLine = "If they are even close to the budget limit, yell at them for being reckless."
	default:
		lines = []string{
			"You are a friendly, professional financial advisor for a fintech app.",
			"Provide a helpful, balanced insight about the user's spending habits.",
			"Focus on where they spend money (Offline vs Online) or specific categories.",
		}
		budgetLine = "Incorporate their budget progress into your advice."
	}
	if hasBudget {
		lines = append(lines, budgetLine)
	}
	lines = append(lines, "Keep it to 1 or 2 sentences max.")
	return strings.Join(lines, "\n")
}

// PlacePrompt asks for a short description of a merchant, grounded near loc
// when known.
func PlacePrompt(merchant string, near *core.Location) Prompt {
	text := fmt.Sprintf("Tell me about %q. What is this place known for? Is it highly rated? Be concise (max 2 sentences).", merchant)
	if near != nil {
		text += fmt.Sprintf(" It is located near latitude %.5f, longitude %.5f.", near.Lat, near.Lng)
	}
	return Prompt{Text: text, Grounded: true, Near: near}
}

const receiptInstruction = `Analyze this receipt image. Extract the merchant name, date, currency (default USD), subtotal, tax amount, tip amount (if any), total amount, and a list of items with their prices.

CRITICAL: Return ONLY valid JSON. No markdown formatting, no code blocks.

The JSON structure must be:
{
  "merchantName": "string",
  "date": "YYYY-MM-DD",
  "currency": "USD",
  "subtotal": number,
  "tax": number,
  "tip": number,
  "totalAmount": number,
  "items": [
    { "name": "string", "price": number, "quantity": number }
  ]
}

Rules:
1. If tip is not visible, set "tip": 0.
2. If tax is not listed separately, try to infer or set "tax": 0.
3. Ensure subtotal + tax + tip is close to totalAmount.`

func ReceiptPrompt(img Image) Prompt {
	return Prompt{Text: receiptInstruction, Image: &img, JSON: true}
}
