package enums

// PromoRejectReason explains why a promo code could not be applied.
type PromoRejectReason string

const (
	PromoRejectNotFound    PromoRejectReason = "not_found"
	PromoRejectInactive    PromoRejectReason = "inactive"
	PromoRejectExpired     PromoRejectReason = "expired"
	PromoRejectExhausted   PromoRejectReason = "exhausted"
	PromoRejectAlreadyUsed PromoRejectReason = "already_used"
)

var validPromoRejectReasons = []PromoRejectReason{
	PromoRejectNotFound,
	PromoRejectInactive,
	PromoRejectExpired,
	PromoRejectExhausted,
	PromoRejectAlreadyUsed,
}

func (r PromoRejectReason) IsValid() bool {
	for _, candidate := range validPromoRejectReasons {
		if candidate == r {
			return true
		}
	}
	return false
}
