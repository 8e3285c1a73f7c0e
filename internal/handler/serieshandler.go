package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest/httpx"

	"advisor-api/internal/logic"
	"advisor-api/internal/svc"
	"advisor-api/internal/types"
)

func SeriesHandler(svcCtx *svc.ServiceContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.SeriesReq
		if err := httpx.Parse(r, &req); err != nil {
			httpx.ErrorCtx(r.Context(), w, err)
			return
		}

		l := logic.NewSeriesLogic(r.Context(), svcCtx)
		resp, err := l.Series(&req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		httpx.OkJsonCtx(r.Context(), w, resp)
	}
}
