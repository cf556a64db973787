package valueobject

import "fmt"

// Provider identifies the payment channel a transaction is routed through.
type Provider struct {
	value string
}

var (
	ProviderCard        = Provider{value: "CARD"}
	ProviderBank        = Provider{value: "BANK_TRANSFER"}
	ProviderMobileMoney = Provider{value: "MOBILE_MONEY"}
	ProviderWallet      = Provider{value: "WALLET"}
	// ProviderVoucher is the cash-equivalent voucher channel.
	ProviderVoucher = Provider{value: "VOUCHER"}
)

// ProviderFromString reconstructs a Provider from its string representation.
func ProviderFromString(s string) (Provider, error) {
	switch s {
	case "CARD":
		return ProviderCard, nil
	case "BANK_TRANSFER":
		return ProviderBank, nil
	case "MOBILE_MONEY":
		return ProviderMobileMoney, nil
	case "WALLET":
		return ProviderWallet, nil
	case "VOUCHER":
		return ProviderVoucher, nil
	default:
		return Provider{}, fmt.Errorf("invalid provider: %s", s)
	}
}

// String returns the string representation.
func (p Provider) String() string {
	return p.value
}

// IsZero returns true if the Provider has not been set.
func (p Provider) IsZero() bool {
	return p.value == ""
}

// Equal checks equality with another Provider.
func (p Provider) Equal(other Provider) bool {
	return p.value == other.value
}

// IsVoucher returns true for the cash-equivalent voucher channel.
func (p Provider) IsVoucher() bool {
	return p.value == "VOUCHER"
}
