package routes

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oddspool/oddspool-backend/api/controllers"
	"github.com/oddspool/oddspool-backend/api/middleware"
	"github.com/oddspool/oddspool-backend/internal/activity"
	"github.com/oddspool/oddspool-backend/internal/markets"
	"github.com/oddspool/oddspool-backend/internal/promos"
	"github.com/oddspool/oddspool-backend/internal/settlement"
	"github.com/oddspool/oddspool-backend/internal/stakes"
	"github.com/oddspool/oddspool-backend/pkg/config"
	"github.com/oddspool/oddspool-backend/pkg/logger"
	pkgredis "github.com/oddspool/oddspool-backend/pkg/redis"
)

// RouterParams carries everything the HTTP surface depends on.
type RouterParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         controllers.Pinger
	Redis      controllers.Pinger
	Idempotent pkgredis.IdempotencyStore
	Gatherer   prometheus.Gatherer

	Quotes     *markets.QuoteService
	Stakes     stakes.Service
	Promos     promos.Service
	Settlement settlement.Service
	Activity   activity.Service
}

func NewRouter(params RouterParams) (http.Handler, error) {
	if params.Config == nil || params.Logger == nil {
		return nil, fmt.Errorf("config and logger required")
	}
	if params.Quotes == nil || params.Stakes == nil || params.Promos == nil || params.Settlement == nil || params.Activity == nil {
		return nil, fmt.Errorf("services required")
	}
	cfg, logg := params.Config, params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg.App.Env))
		r.Get("/ready", controllers.HealthReady(cfg.App.Env, logg, map[string]controllers.Pinger{
			"db":    params.DB,
			"redis": params.Redis,
		}))
	})

	if params.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(params.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Idempotency(params.Idempotent, logg))

		r.Route("/markets/{marketId}", func(r chi.Router) {
			r.Get("/quote", controllers.MarketQuote(params.Quotes, logg))
			r.Get("/liquidity", controllers.MarketLiquidity(params.Quotes, logg))
			r.Post("/resolve", controllers.ResolveMarket(params.Settlement, logg))
			r.Post("/cancel", controllers.CancelMarket(params.Settlement, logg))
		})

		r.Post("/stakes", controllers.PlaceStake(params.Stakes, logg))
		r.Get("/promos/{code}", controllers.PromoLookup(params.Promos, logg))

		r.Route("/users/{userId}", func(r chi.Router) {
			r.Get("/stakes", controllers.ListUserStakes(params.Stakes, logg))
			r.Get("/activity", controllers.ListUserActivity(params.Activity, logg))
		})
	})

	return r, nil
}
