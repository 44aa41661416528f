package reassignmentrouter

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	authhandlers "github.com/kingsroom/venue-engine/app/modules/auth/infrastructure/handlers"
	authjwt "github.com/kingsroom/venue-engine/app/modules/auth/infrastructure/jwt"
	reassignmenthandlers "github.com/kingsroom/venue-engine/app/modules/reassignment/infrastructure/handlers"
)

const (
	// BasePath is the prefix of every venue assignment route.
	BasePath = "/api/venue-assignment"
	// RPCPath accepts {"operation", "arguments"} calls.
	RPCPath = BasePath + "/rpc"
	// RecordsPath accepts queue-shaped batches.
	RecordsPath = BasePath + "/records"
	// SummaryExportPath serves the assignment summary spreadsheet.
	SummaryExportPath = BasePath + "/summary.xlsx"
)

// Router mounts the reassignment HTTP surface.
type Router struct {
	handlers   reassignmenthandlers.Handlers
	provider   authjwt.Provider
	limiter    *authhandlers.IPRateLimiter
	trustProxy bool
	logger     *slog.Logger
}

// NewRouter creates a new reassignment router.
func NewRouter(
	handlers reassignmenthandlers.Handlers,
	provider authjwt.Provider,
	limiter *authhandlers.IPRateLimiter,
	trustProxy bool,
	logger *slog.Logger,
) *Router {
	return &Router{
		handlers:   handlers,
		provider:   provider,
		limiter:    limiter,
		trustProxy: trustProxy,
		logger:     logger,
	}
}

// Register adds the routes to mux. Every route is rate limited and requires a bearer token.
func (r *Router) Register(mux chi.Router) {
	mux.Route(BasePath, func(rt chi.Router) {
		rt.Use(authhandlers.RateLimitMiddleware(r.limiter, r.trustProxy))
		rt.Use(authhandlers.BearerAuthMiddleware(r.provider, r.logger))

		rt.Post("/rpc", r.handlers.HandleRPC)
		rt.Post("/records", r.handlers.HandleRecords)
		rt.Get("/summary.xlsx", r.handlers.HandleSummaryExport)
	})
}
