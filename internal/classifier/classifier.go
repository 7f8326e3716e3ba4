// Package classifier tags page text with a financial-product context and
// provides the rule-based advisor used when no remote endpoint is configured.
package classifier

import (
	"strings"

	"github.com/smartfill/smartfill/internal/domain"
)

// FDKeywords indicate a fixed-deposit page.
var FDKeywords = []string{"fixed deposit", "fd rate", "interest rate", "tenure", "time deposit"}

// CreditCardKeywords indicate a credit-card page.
var CreditCardKeywords = []string{"credit card", "annual fee", "welcome bonus", "reward points", "cashback", "lounge access", "forex markup"}

// Classify returns fd when only FD keywords occur in text, credit_card when
// only card keywords occur, and general otherwise.
func Classify(text string) domain.ContextTag {
	t := strings.ToLower(text)
	hasFD := containsAny(t, FDKeywords)
	hasCC := containsAny(t, CreditCardKeywords)

	switch {
	case hasFD && !hasCC:
		return domain.ContextFD
	case hasCC && !hasFD:
		return domain.ContextCreditCard
	default:
		return domain.ContextGeneral
	}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
