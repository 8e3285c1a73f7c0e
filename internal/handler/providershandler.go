package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"advisor-api/internal/logic"
	"advisor-api/internal/svc"
)

func ProvidersHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := logic.NewProvidersLogic(r.Context(), svcCtx)
		resp, err := l.Providers()
		if err != nil {
			writeError(w, r, err)
			return
		}
		httpx.OkJsonCtx(r.Context(), w, resp)
	}
}
