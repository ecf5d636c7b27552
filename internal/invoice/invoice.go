package invoice

import (
	"fmt"
	"regexp"

	"backoffice-service/internal/models"

	"github.com/shopspring/decimal"
)

// Prefix starts every invoice number
const Prefix = "AFAK-INV-"

var numberPattern = regexp.MustCompile(`^AFAK-INV-\d{5,}$`)

var hundred = decimal.NewFromInt(100)

// FormatNumber renders the seq-th invoice number, zero padded to five digits
func FormatNumber(seq int64) string {
	return fmt.Sprintf("%s%05d", Prefix, seq)
}

// ValidNumber reports whether s is a well-formed invoice number
func ValidNumber(s string) bool {
	return numberPattern.MatchString(s)
}

// Pairs is quantity per package rounded to two places; zero packages yields zero
func Pairs(quantity, packages int) decimal.Decimal {
	if packages <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(quantity)).
		DivRound(decimal.NewFromInt(int64(packages)), 2)
}

// LineGross is price times quantity
func LineGross(item models.LineItem) decimal.Decimal {
	return item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
}

// LineDiscount is the discount percentage applied to the line gross
func LineDiscount(item models.LineItem) decimal.Decimal {
	return LineGross(item).Mul(item.Discount).Div(hundred)
}

// Summarize rolls an export's lines up into gross, discount, net and package totals
func Summarize(items models.LineItems) models.ExportSummary {
	sum := models.ExportSummary{
		Models:   len(items),
		Gross:    decimal.Zero,
		Discount: decimal.Zero,
	}
	for _, item := range items {
		sum.Gross = sum.Gross.Add(LineGross(item))
		sum.Discount = sum.Discount.Add(LineDiscount(item))
		sum.Packages += item.Packages
	}
	sum.Gross = sum.Gross.Round(2)
	sum.Discount = sum.Discount.Round(2)
	sum.Net = sum.Gross.Sub(sum.Discount)
	return sum
}
