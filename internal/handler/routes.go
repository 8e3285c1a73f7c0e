package handler

import (
	"net/http"

	"github.com/zeromicro/go-zero/rest"

	"advisor-api/internal/svc"
)

func RegisterHandlers(server *rest.Server, serverCtx *svc.ServiceContext) {
	server.AddRoutes(
		[]rest.Route{
			{
				Method:  http.MethodGet,
				Path:    "/api/v1/series",
				Handler: SeriesHandler(serverCtx),
			},
			{
				Method:  http.MethodPost,
				Path:    "/api/v1/analyze",
				Handler: AnalyzeHandler(serverCtx),
			},
			{
				Method:  http.MethodGet,
				Path:    "/api/v1/providers",
				Handler: ProvidersHandler(serverCtx),
			},
		},
	)
}
