package domain

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Currency is the display suffix used for every price.
const Currency = "ر.س"

var pricePrinter = message.NewPrinter(language.English)

// FormatPrice renders an amount with two decimals followed by the currency.
func FormatPrice(amount float64) string {
	return pricePrinter.Sprintf("%.2f %s", amount, Currency)
}
