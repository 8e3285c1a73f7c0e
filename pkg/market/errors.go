package market

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrorKind classifies a provider failure. The orchestrator branches on the
// kind, never on message text.
type ErrorKind string

const (
	// KindSymbolNotFound marks bad input: the provider cannot map the symbol.
	KindSymbolNotFound ErrorKind = "symbol_not_found"
	// KindTransient marks network failures and timeouts.
	KindTransient ErrorKind = "transient"
	// KindNoData marks a valid request that returned an empty history,
	// e.g. a delisted or suspended instrument.
	KindNoData ErrorKind = "no_data"
	// KindUnsupportedContract marks an adapter invariant violation. The
	// adapter refuses to proceed rather than silently returning wrong data.
	KindUnsupportedContract ErrorKind = "unsupported_contract"
	// KindProtocol marks a malformed upstream response. Usually an upstream
	// API change; surfaced verbatim so it gets noticed quickly.
	KindProtocol ErrorKind = "protocol"
)

// FetchError wraps a provider failure with its classification.
type FetchError struct {
	Provider string
	Kind     ErrorKind
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError builds a classified provider error.
func NewFetchError(provider string, kind ErrorKind, err error) *FetchError {
	return &FetchError{Provider: provider, Kind: kind, Err: err}
}

// KindOf extracts the classification from an error chain. Unclassified
// context and network failures count as transient; anything else is protocol.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransient
	}
	return KindProtocol
}

// triggersFallback reports whether the orchestrator may move on to the next
// provider after this failure.
func triggersFallback(kind ErrorKind) bool {
	switch kind {
	case KindTransient, KindNoData, KindUnsupportedContract:
		return true
	default:
		return false
	}
}

// Attempt records one provider's failure inside a FetchFailure.
type Attempt struct {
	Provider string
	Kind     ErrorKind
	Err      error
}

// FetchFailure is the terminal error when every provider in the chain failed.
// It carries each attempted provider and its classified error so callers can
// diagnose the root cause instead of seeing only the last failure.
type FetchFailure struct {
	Attempts []Attempt
}

func (f *FetchFailure) Error() string {
	parts := make([]string, 0, len(f.Attempts))
	for _, a := range f.Attempts {
		parts = append(parts, fmt.Sprintf("%s (%s): %v", a.Provider, a.Kind, a.Err))
	}
	return "market: all providers failed: " + strings.Join(parts, "; ")
}

// Kinds returns the error kind per attempted provider, in attempt order.
func (f *FetchFailure) Kinds() []ErrorKind {
	kinds := make([]ErrorKind, len(f.Attempts))
	for i, a := range f.Attempts {
		kinds[i] = a.Kind
	}
	return kinds
}

// ErrSymbolNotFound is a convenience sentinel for adapters that resolve
// symbols through lookup tables.
var ErrSymbolNotFound = errors.New("market: symbol not found")
