package checkout

import (
	"errors"
	"regexp"
	"strings"
)

type PaymentMethod string

const (
	PaymentCard        PaymentMethod = "card"
	PaymentOrangeMoney PaymentMethod = "orange_money"
	PaymentMyZaka      PaymentMethod = "myzaka"
	PaymentSmega       PaymentMethod = "smega"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCard, PaymentOrangeMoney, PaymentMyZaka, PaymentSmega:
		return true
	}
	return false
}

func (m PaymentMethod) IsMobileMoney() bool {
	return m == PaymentOrangeMoney || m == PaymentMyZaka || m == PaymentSmega
}

// PaymentDetails carries whichever fields the chosen method needs. Card
// fields are ignored for mobile money and the other way round.
type PaymentDetails struct {
	CardNumber string `json:"cardNumber"`
	Expiry     string `json:"expiry"`
	CVC        string `json:"cvc"`
	CardName   string `json:"cardName"`

	AccountName string `json:"accountName"`
	Phone       string `json:"phone"`
	Reference   string `json:"reference"`
}

var ErrInvalidDetails = errors.New("invalid payment details")

// FieldError names the first field that failed validation.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *FieldError) Error() string { return e.Message }

func (e *FieldError) Unwrap() error { return ErrInvalidDetails }

var (
	cardNumberRe = regexp.MustCompile(`^\d{16}$`)
	expiryRe     = regexp.MustCompile(`^(0[1-9]|1[0-2])/\d{2}$`)
	cvcRe        = regexp.MustCompile(`^\d{3}$`)
	phoneRe      = regexp.MustCompile(`^\d{8}$`)
)

func stripSpaces(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), " ", "")
}

// ValidateDetails checks d against the rules for method.
func ValidateDetails(method PaymentMethod, d PaymentDetails) error {
	switch {
	case method == PaymentCard:
		if !cardNumberRe.MatchString(stripSpaces(d.CardNumber)) {
			return &FieldError{Field: "cardNumber", Message: "Card number must be 16 digits"}
		}
		if !expiryRe.MatchString(strings.TrimSpace(d.Expiry)) {
			return &FieldError{Field: "expiry", Message: "Expiry must be in MM/YY format"}
		}
		if !cvcRe.MatchString(strings.TrimSpace(d.CVC)) {
			return &FieldError{Field: "cvc", Message: "CVC must be 3 digits"}
		}
		if strings.TrimSpace(d.CardName) == "" {
			return &FieldError{Field: "cardName", Message: "Name on card is required"}
		}
	case method.IsMobileMoney():
		if strings.TrimSpace(d.AccountName) == "" {
			return &FieldError{Field: "accountName", Message: "Account name is required"}
		}
		if !phoneRe.MatchString(stripSpaces(d.Phone)) {
			return &FieldError{Field: "phone", Message: "Phone number must be 8 digits"}
		}
		if strings.TrimSpace(d.Reference) == "" {
			return &FieldError{Field: "reference", Message: "Payment reference is required"}
		}
	default:
		return ErrInvalidPaymentMethod
	}
	return nil
}
