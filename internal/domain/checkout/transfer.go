// internal/domain/checkout/transfer.go
package checkout

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/your-org/elearning-storefront/internal/domain/payment"
)

// TransferInstructions tell the shopper how to pay a QR/bank-transfer intent.
// Content is the memo the transfer must carry so the payment can be matched.
type TransferInstructions struct {
	BankCode      string          `json:"bank_code"`
	AccountNumber string          `json:"account_number"`
	AccountName   string          `json:"account_name"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Content       string          `json:"content"`
	QRCodeURL     string          `json:"qr_code_url,omitempty"`
}

// ConvertAmount applies the transfer exchange rate. A zero rate leaves the
// amount and currency unchanged.
func (o Options) ConvertAmount(amount decimal.Decimal, currency string) (decimal.Decimal, string) {
	if o.ExchangeRate.IsZero() || o.TransferCurrency == "" || o.TransferCurrency == currency {
		return amount, currency
	}
	return amount.Mul(o.ExchangeRate).Round(0), o.TransferCurrency
}

func (o Options) transferFor(intent payment.PaymentIntent) TransferInstructions {
	amount, currency := o.ConvertAmount(intent.TotalAmount, intent.Currency)
	instructions := TransferInstructions{
		BankCode:      o.BankCode,
		AccountNumber: o.AccountNumber,
		AccountName:   o.AccountName,
		Amount:        amount,
		Currency:      currency,
		Content:       intent.PaymentID,
	}

	if o.QRBaseURL == "" || o.BankCode == "" || o.AccountNumber == "" {
		return instructions
	}

	query := url.Values{}
	query.Set("amount", amount.String())
	query.Set("addInfo", intent.PaymentID)
	if o.AccountName != "" {
		query.Set("accountName", o.AccountName)
	}
	instructions.QRCodeURL = fmt.Sprintf("%s/%s-%s-compact2.png?%s",
		strings.TrimRight(o.QRBaseURL, "/"), o.BankCode, o.AccountNumber, query.Encode())

	return instructions
}
