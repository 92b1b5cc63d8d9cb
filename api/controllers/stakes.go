package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/oddspool/oddspool-backend/api/responses"
	"github.com/oddspool/oddspool-backend/api/validators"
	"github.com/oddspool/oddspool-backend/internal/stakes"
	"github.com/oddspool/oddspool-backend/pkg/db/models"
	"github.com/oddspool/oddspool-backend/pkg/enums"
	pkgerrors "github.com/oddspool/oddspool-backend/pkg/errors"
	"github.com/oddspool/oddspool-backend/pkg/logger"
	"github.com/oddspool/oddspool-backend/pkg/pagination"
)

type activityLister interface {
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.ActivityLog, error)
}

// PlaceStake handles POST /api/v1/stakes. The body is validated before the
// service runs its own bounds checks inside the placement transaction.
func PlaceStake(svc stakes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body PlaceStakeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := uuid.Parse(body.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, invalidField("user_id", err))
			return
		}
		marketID, err := uuid.Parse(body.MarketID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, invalidField("market_id", err))
			return
		}

		ctx := logg.WithUserID(r.Context(), userID.String())
		ctx = logg.WithMarketID(ctx, marketID.String())

		result, err := svc.PlaceStake(ctx, stakes.PlaceStakeInput{
			UserID:    userID,
			MarketID:  marketID,
			Side:      enums.Outcome(strings.ToLower(body.Side)),
			Amount:    body.Amount,
			PromoCode: validators.SanitizeString(body.PromoCode, 64),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newPlaceStakeResponse(result))
	}
}

// ListUserStakes handles GET /api/v1/users/{userId}/stakes?limit=&cursor=.
func ListUserStakes(svc stakes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := validators.ParseUUIDParam(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListByUser(r.Context(), userID, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		resp := StakePageResponse{Stakes: make([]StakeResponse, 0, len(page.Stakes)), NextCursor: page.NextCursor}
		for _, stake := range page.Stakes {
			resp.Stakes = append(resp.Stakes, newStakeResponse(stake))
		}
		responses.WriteSuccess(w, resp)
	}
}

func ListUserActivity(svc activityLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := validators.ParseUUIDParam(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entries, err := svc.ListByUser(r.Context(), userID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entries)
	}
}

func invalidField(field string, err error) error {
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed").
		WithDetails(map[string]string{field: "is invalid"})
}
