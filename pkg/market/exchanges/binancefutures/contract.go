package binancefutures

import (
	"fmt"

	"advisor-api/pkg/market"
)

// Default precision and limits for USDT-margined linear perpetuals. The
// fetch path only reads prices, so representative values are sufficient as
// long as they are internally consistent.
const (
	defaultPricePrecision  = 2
	defaultAmountPrecision = 3
)

// ContractSpec is the minimal market description the client is constructed
// with. It replaces the full exchange-info discovery call, which is slow and
// rate-limited, for the one contract shape this adapter supports: BASE/USDT
// linear perpetuals. Construction fails loudly for any other shape.
type ContractSpec struct {
	Symbol   string // canonical pair, e.g. "BTC/USDT"
	MarketID string // provider-native ticker, e.g. "BTCUSDT"
	Base     string
	Quote    string

	PricePrecision  int
	AmountPrecision int
	MinAmount       float64
	MaxAmount       float64
	MinPrice        float64
	MaxPrice        float64
	MinCost         float64
}

// NewContractSpec derives a spec from a canonical pair symbol. Only
// BASE/USDT pairs are accepted; anything else would route to a contract this
// adapter cannot vouch for.
func NewContractSpec(sym market.Symbol) (ContractSpec, error) {
	if !sym.IsPair() {
		return ContractSpec{}, market.NewFetchError(providerType, market.KindUnsupportedContract,
			fmt.Errorf("symbol %q is not a BASE/QUOTE pair", sym.String()))
	}
	if sym.Quote != "USDT" {
		return ContractSpec{}, market.NewFetchError(providerType, market.KindUnsupportedContract,
			fmt.Errorf("only USDT-margined linear perpetuals are supported, got quote %q", sym.Quote))
	}
	spec := ContractSpec{
		Symbol:          sym.String(),
		MarketID:        sym.Base + sym.Quote,
		Base:            sym.Base,
		Quote:           sym.Quote,
		PricePrecision:  defaultPricePrecision,
		AmountPrecision: defaultAmountPrecision,
		MinAmount:       0.001,
		MaxAmount:       1000,
		MinPrice:        0.01,
		MaxPrice:        1_000_000,
		MinCost:         5,
	}
	if err := spec.validate(); err != nil {
		return ContractSpec{}, err
	}
	return spec, nil
}

// validate enforces the routing invariant: the declared MarketID must match
// the ticker derived from base and quote, or the kline endpoint resolves the
// wrong contract.
func (s ContractSpec) validate() error {
	if s.MarketID != s.Base+s.Quote {
		return market.NewFetchError(providerType, market.KindUnsupportedContract,
			fmt.Errorf("market id %q does not match derived ticker %q", s.MarketID, s.Base+s.Quote))
	}
	return nil
}
