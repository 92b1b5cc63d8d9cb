package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/oddspool/oddspool-backend/api/responses"
	"github.com/oddspool/oddspool-backend/api/validators"
	"github.com/oddspool/oddspool-backend/internal/markets"
	"github.com/oddspool/oddspool-backend/internal/pricing"
	"github.com/oddspool/oddspool-backend/internal/settlement"
	"github.com/oddspool/oddspool-backend/pkg/enums"
	pkgerrors "github.com/oddspool/oddspool-backend/pkg/errors"
	"github.com/oddspool/oddspool-backend/pkg/logger"
)

type quoteReader interface {
	Quote(ctx context.Context, input markets.QuoteInput) (*markets.Quote, error)
	Liquidity(ctx context.Context, marketID uuid.UUID) (pricing.MarketLiquidity, error)
}

type marketResolver interface {
	ResolveMarket(ctx context.Context, marketID uuid.UUID, outcome enums.Outcome) (*settlement.Result, error)
	CancelMarket(ctx context.Context, marketID uuid.UUID) (*settlement.Result, error)
}

// MarketQuote handles GET /api/v1/markets/{marketId}/quote?side=yes&amount=100000&promo_code=X.
func MarketQuote(svc quoteReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		marketID, err := validators.ParseUUIDParam(r, "marketId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := logg.WithMarketID(r.Context(), marketID.String())

		side, err := enums.ParseOutcome(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("side"))))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "side must be yes or no").
				WithDetails(map[string]any{"field": "side"}))
			return
		}
		amount, err := validators.ParseQueryInt64(r, "amount")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		quote, err := svc.Quote(ctx, markets.QuoteInput{
			MarketID:  marketID,
			Side:      side,
			Amount:    amount,
			PromoCode: validators.SanitizeString(r.URL.Query().Get("promo_code"), 64),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}

func MarketLiquidity(svc quoteReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		marketID, err := validators.ParseUUIDParam(r, "marketId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := logg.WithMarketID(r.Context(), marketID.String())
		liquidity, err := svc.Liquidity(ctx, marketID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, liquidity)
	}
}

// ResolveMarket records the winning outcome and settles every active stake.
func ResolveMarket(svc marketResolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		marketID, err := validators.ParseUUIDParam(r, "marketId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := logg.WithMarketID(r.Context(), marketID.String())

		var body ResolveMarketRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		outcome, err := enums.ParseOutcome(body.Outcome)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid outcome"))
			return
		}

		result, err := svc.ResolveMarket(ctx, marketID, outcome)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func CancelMarket(svc marketResolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		marketID, err := validators.ParseUUIDParam(r, "marketId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := logg.WithMarketID(r.Context(), marketID.String())
		result, err := svc.CancelMarket(ctx, marketID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
