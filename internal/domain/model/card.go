package model

import "strings"

// Card brand names
const (
	CardBrandVisa       = "VISA"
	CardBrandMastercard = "MASTERCARD"
	CardBrandAmex       = "AMEX"
	CardBrandDiscover   = "DISCOVER"
	CardBrandUnknown    = "UNKNOWN"
)

// DetectCardBrand classifies a card number by its leading digits
func DetectCardBrand(cardNumber string) string {
	n := strings.ReplaceAll(strings.TrimSpace(cardNumber), " ", "")
	switch {
	case strings.HasPrefix(n, "4"):
		return CardBrandVisa
	case strings.HasPrefix(n, "34"), strings.HasPrefix(n, "37"):
		return CardBrandAmex
	case strings.HasPrefix(n, "5"), strings.HasPrefix(n, "2"):
		return CardBrandMastercard
	case strings.HasPrefix(n, "6011"), strings.HasPrefix(n, "65"):
		return CardBrandDiscover
	default:
		return CardBrandUnknown
	}
}

// CardLastFour returns the last four digits of a card number
func CardLastFour(cardNumber string) string {
	n := strings.ReplaceAll(strings.TrimSpace(cardNumber), " ", "")
	if len(n) < 4 {
		return n
	}
	return n[len(n)-4:]
}
