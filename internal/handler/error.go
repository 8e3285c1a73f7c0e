package handler

import (
	"errors"
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"advisor-api/internal/logic"
	"advisor-api/pkg/market"
)

type errorBody struct {
	Error string `json:"error"`
}

// writeError maps retrieval failures onto HTTP statuses. Input problems are
// 400, unknown symbols and empty histories 404, upstream trouble 502.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	httpx.WriteJsonCtx(r.Context(), w, statusFor(err), errorBody{Error: err.Error()})
}

func statusFor(err error) int {
	var validation *logic.ValidationError
	if errors.As(err, &validation) {
		return http.StatusBadRequest
	}

	var failure *market.FetchFailure
	if errors.As(err, &failure) {
		return statusForKinds(failure.Kinds())
	}

	var fetchErr *market.FetchError
	if errors.As(err, &fetchErr) {
		return statusForKinds([]market.ErrorKind{fetchErr.Kind})
	}
	if errors.Is(err, market.ErrSymbolNotFound) {
		return http.StatusNotFound
	}

	return http.StatusInternalServerError
}

func statusForKinds(kinds []market.ErrorKind) int {
	notFound := false
	badInput := false
	for _, kind := range kinds {
		switch kind {
		case market.KindTransient, market.KindProtocol:
			return http.StatusBadGateway
		case market.KindSymbolNotFound, market.KindNoData:
			notFound = true
		case market.KindUnsupportedContract:
			badInput = true
		}
	}
	if notFound {
		return http.StatusNotFound
	}
	if badInput {
		return http.StatusBadRequest
	}
	return http.StatusBadGateway
}
