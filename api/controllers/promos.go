package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/oddspool/oddspool-backend/api/responses"
	"github.com/oddspool/oddspool-backend/api/validators"
	"github.com/oddspool/oddspool-backend/pkg/db/models"
	"github.com/oddspool/oddspool-backend/pkg/logger"
)

type promoValidator interface {
	Validate(ctx context.Context, tx *gorm.DB, code string) (*models.PromoCode, error)
}

// PromoLookup reports whether a code can currently be applied. It never consumes a use.
func PromoLookup(svc promoValidator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := validators.SanitizeString(chi.URLParam(r, "code"), 64)
		promo, err := svc.Validate(r.Context(), nil, code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newPromoResponse(promo))
	}
}
