package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, detailsOK: true},
		{code: CodeNotFound, status: http.StatusNotFound},
		{code: CodeInsufficientBalance, status: http.StatusPaymentRequired, detailsOK: true},
		{code: CodeMarketNotOpen, status: http.StatusConflict, detailsOK: true},
		{code: CodePromoInvalid, status: http.StatusUnprocessableEntity, detailsOK: true},
		{code: CodeConcurrency, status: http.StatusConflict, retryable: true},
		{code: CodePersistence, status: http.StatusServiceUnavailable, retryable: true},
		{code: CodeInternal, status: http.StatusInternalServerError, retryable: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestRetryableCodesShareGenericMessage(t *testing.T) {
	if MetadataFor(CodeConcurrency).PublicMessage != MetadataFor(CodePersistence).PublicMessage {
		t.Fatalf("expected concurrency and persistence failures to share the public retry message")
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "amount below minimum")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}
	base.WithDetails(map[string]any{"field": "amount"})
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodePersistence, cause, "insert stake")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodePersistence {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestCodeOfAndIsCode(t *testing.T) {
	err := fmt.Errorf("placing stake: %w", New(CodeMarketNotOpen, "market closed"))
	if CodeOf(err) != CodeMarketNotOpen {
		t.Fatalf("expected MARKET_NOT_OPEN, got %s", CodeOf(err))
	}
	if !IsCode(err, CodeMarketNotOpen) {
		t.Fatalf("expected IsCode to match wrapped typed error")
	}
	if CodeOf(stdErrors.New("plain")) != CodeInternal {
		t.Fatalf("untyped errors should map to internal")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}
