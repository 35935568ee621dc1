package enums

import "fmt"

// SettlementMethod is how the seller wants to be paid out.
type SettlementMethod string

const (
	SettlementMethodBankTransfer SettlementMethod = "bank_transfer"
	SettlementMethodMobileMoney  SettlementMethod = "mobile_money"
	SettlementMethodWallet       SettlementMethod = "wallet"
)

var validSettlementMethods = []SettlementMethod{
	SettlementMethodBankTransfer,
	SettlementMethodMobileMoney,
	SettlementMethodWallet,
}

func (m SettlementMethod) String() string {
	return string(m)
}

func (m SettlementMethod) IsValid() bool {
	for _, candidate := range validSettlementMethods {
		if candidate == m {
			return true
		}
	}
	return false
}

// RequiresBankDetails reports whether account, bank and holder must be supplied.
func (m SettlementMethod) RequiresBankDetails() bool {
	return m == SettlementMethodBankTransfer
}

func ParseSettlementMethod(value string) (SettlementMethod, error) {
	for _, candidate := range validSettlementMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid settlement method %q", value)
}
