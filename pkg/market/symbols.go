package market

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Symbol is the canonical identifier for an instrument: either a BASE/QUOTE
// pair (crypto) or a bare security code with an optional resolved name
// (equities).
type Symbol struct {
	Base  string
	Quote string
	Code  string
	Name  string
}

// IsZero reports whether the symbol carries no identifier at all.
func (s Symbol) IsZero() bool {
	return s.Base == "" && s.Code == ""
}

// IsPair reports whether the symbol is a BASE/QUOTE pair.
func (s Symbol) IsPair() bool {
	return s.Base != "" && s.Quote != ""
}

// String renders the canonical form, e.g. "BTC/USDT" or "600519".
func (s Symbol) String() string {
	if s.IsPair() {
		return s.Base + "/" + s.Quote
	}
	return s.Code
}

// DisplayName returns the resolved security name when known, falling back to
// the canonical form.
func (s Symbol) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.String()
}

// ParsePair normalizes a slash-delimited pair such as "btc/usdt".
func ParsePair(input string) (Symbol, error) {
	trimmed := strings.TrimSpace(input)
	parts := strings.Split(trimmed, "/")
	if len(parts) != 2 {
		return Symbol{}, fmt.Errorf("market: %q is not a BASE/QUOTE pair", input)
	}
	base := strings.ToUpper(strings.TrimSpace(parts[0]))
	quote := strings.ToUpper(strings.TrimSpace(parts[1]))
	if base == "" || quote == "" {
		return Symbol{}, fmt.Errorf("market: %q is not a BASE/QUOTE pair", input)
	}
	return Symbol{Base: base, Quote: quote}, nil
}

// NormalizeSymbol parses free-form input into a canonical Symbol. Pair inputs
// are normalized directly; anything else is treated as a security code or
// name fragment and, when a resolver is supplied, resolved against the
// provider listing. Without a resolver only exact 6-digit codes are accepted.
func NormalizeSymbol(ctx context.Context, input string, resolver *SecurityResolver) (Symbol, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return Symbol{}, fmt.Errorf("market: empty symbol input")
	}
	if strings.Contains(trimmed, "/") {
		return ParsePair(trimmed)
	}
	if resolver != nil {
		return resolver.Resolve(ctx, trimmed)
	}
	if isSecurityCode(trimmed) {
		return Symbol{Code: trimmed}, nil
	}
	return Symbol{}, NewFetchError("normalizer", KindSymbolNotFound,
		fmt.Errorf("cannot resolve %q without a listing source", input))
}

func isSecurityCode(s string) bool {
	if len(s) != 6 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Security is one entry of a provider listing used for code/name search.
type Security struct {
	Code string
	Name string
}

// ListingSource supplies the universe of known securities, in provider
// listing order.
type ListingSource interface {
	ListSecurities(ctx context.Context) ([]Security, error)
}

const defaultListingTTL = time.Hour

// SecurityResolver maps free-form code or name input to a listed security.
// The listing is cached with a long TTL since the universe of valid symbols
// changes infrequently.
type SecurityResolver struct {
	source ListingSource
	ttl    time.Duration

	mu        sync.Mutex
	listing   []Security
	fetchedAt time.Time
}

// NewSecurityResolver wraps a listing source with caching.
func NewSecurityResolver(source ListingSource, ttl time.Duration) *SecurityResolver {
	if ttl <= 0 {
		ttl = defaultListingTTL
	}
	return &SecurityResolver{source: source, ttl: ttl}
}

// Resolve applies the lookup policy: exact code match first, then substring
// match against names in listing order, then speculative acceptance of a
// 6-digit numeric code (the provider rejects it at fetch time if invalid).
func (r *SecurityResolver) Resolve(ctx context.Context, keyword string) (Symbol, error) {
	keyword = strings.TrimSpace(keyword)
	listing, err := r.securities(ctx)
	if err != nil {
		// Listing unavailable: a plausible numeric code is still accepted so
		// transient catalog failures do not block direct code input.
		if isSecurityCode(keyword) {
			return Symbol{Code: keyword, Name: keyword}, nil
		}
		return Symbol{}, err
	}
	for _, sec := range listing {
		if sec.Code == keyword {
			return Symbol{Code: sec.Code, Name: sec.Name}, nil
		}
	}
	for _, sec := range listing {
		if strings.Contains(sec.Name, keyword) {
			return Symbol{Code: sec.Code, Name: sec.Name}, nil
		}
	}
	if isSecurityCode(keyword) {
		return Symbol{Code: keyword, Name: keyword}, nil
	}
	return Symbol{}, NewFetchError("normalizer", KindSymbolNotFound,
		fmt.Errorf("no security matches %q", keyword))
}

func (r *SecurityResolver) securities(ctx context.Context) ([]Security, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listing != nil && time.Since(r.fetchedAt) < r.ttl {
		return r.listing, nil
	}
	listing, err := r.source.ListSecurities(ctx)
	if err != nil {
		if r.listing != nil {
			// Serve the stale listing rather than failing the lookup.
			return r.listing, nil
		}
		return nil, err
	}
	r.listing = listing
	r.fetchedAt = time.Now()
	return listing, nil
}
