package validators

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/oddspool/oddspool-backend/pkg/errors"
)

type stakeBody struct {
	MarketID string `json:"market_id" validate:"required,uuid"`
	Side     string `json:"side" validate:"required,outcome"`
	Amount   int64  `json:"amount" validate:"required,gt=0"`
}

func decode(t *testing.T, body string) (stakeBody, map[string]string, error) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/stakes", strings.NewReader(body))
	var dest stakeBody
	err := DecodeJSONBody(req, &dest)
	var details map[string]string
	var typed *pkgerrors.Error
	if errors.As(err, &typed) {
		details, _ = typed.Details().(map[string]string)
	}
	return dest, details, err
}

func TestDecodeJSONBodyAccepts(t *testing.T) {
	got, _, err := decode(t, `{"market_id":"6f1c2b7e-6b0a-4bb4-9f8e-2d7e3c1a9b10","side":"no","amount":2500}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Side != "no" || got.Amount != 2500 {
		t.Fatalf("unexpected decode %+v", got)
	}
}

func TestDecodeJSONBodyFieldErrors(t *testing.T) {
	_, details, err := decode(t, `{"market_id":"nope","side":"maybe","amount":0}`)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation code, got %v", err)
	}
	want := map[string]string{
		"market_id": "must be a valid uuid",
		"side":      "must be yes or no",
		"amount":    "is required",
	}
	for field, msg := range want {
		if details[field] != msg {
			t.Errorf("field %s: want %q, got %q", field, msg, details[field])
		}
	}
}

func TestDecodeJSONBodyRejectsMalformedInput(t *testing.T) {
	cases := map[string]string{
		"unknown field": `{"market_id":"6f1c2b7e-6b0a-4bb4-9f8e-2d7e3c1a9b10","side":"yes","amount":1,"odds":3}`,
		"trailing data": `{"market_id":"6f1c2b7e-6b0a-4bb4-9f8e-2d7e3c1a9b10","side":"yes","amount":1}{}`,
		"wrong type":    `{"market_id":"6f1c2b7e-6b0a-4bb4-9f8e-2d7e3c1a9b10","side":"yes","amount":"ten"}`,
		"oversized":     `{"market_id":"` + strings.Repeat("a", MaxBodyBytes) + `"}`,
	}
	for name, body := range cases {
		if _, _, err := decode(t, body); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
