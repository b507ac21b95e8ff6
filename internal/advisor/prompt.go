package advisor

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/dealscout/internal/model"
)

// systemPrompt is the fixed instruction for the purchasing-expert persona.
// The output language is fixed to English; the persona mirrors the analyze-
// only, no-marketing framing of the product brief.
const systemPrompt = `You are a global purchasing expert.
Analyze only the data you are given.
Do not assume. Do not market.
Recommend the single best offer with a short, logical justification.`

// printer formats prices with grouped digits ("1,234.50").
var printer = message.NewPrinter(language.English)

// buildUserPrompt serializes the product and the top ranked offers into the
// user message.
func buildUserPrompt(product string, top []model.ScoredOffer) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Product: %s\n\nOffers (ranked best first):\n", product)

	for i, s := range top {
		o := s.Offer
		if s.Failed {
			fmt.Fprintf(&sb, "%d. %s — not scored: %s\n", i+1, o.Store, s.FailReason)
			continue
		}
		returns := "no returns"
		if o.ReturnPolicy {
			returns = "returns accepted"
		}
		printer.Fprintf(&sb, "%d. %s — total price $%.2f (base %.2f + shipping %.2f + tax %.2f), rating %.1f/5 (%d reviews), store age %.0f years, %s, score %.2f\n",
			i+1, o.Store, s.FinalPrice, o.BasePrice, o.Shipping, o.Tax,
			o.Rating, o.Reviews, o.StoreAgeYears, returns, s.Score)
	}

	sb.WriteString("\nAnalyze the offers and recommend the best option.")
	return sb.String()
}
