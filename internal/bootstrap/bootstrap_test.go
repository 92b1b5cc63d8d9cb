package bootstrap

import (
	"context"
	"os"
	"testing"

	"github.com/oddspool/oddspool-backend/pkg/config"
	"github.com/oddspool/oddspool-backend/pkg/logger"
)

func TestStartReturnsRuntimeOnConfigError(t *testing.T) {
	t.Setenv("ODDSPOOL_APP_ENV", "")
	os.Unsetenv("ODDSPOOL_APP_ENV")

	rt, err := Start(context.Background(), "cron-worker")
	if err == nil {
		t.Fatalf("expected config error")
	}
	if rt == nil || rt.Logger == nil {
		t.Fatalf("runtime must carry a logger to report the failure")
	}
	if rt.DB != nil || rt.Redis != nil {
		t.Fatalf("no connections should be open")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	rt := &Runtime{Logger: logger.Nop(), Config: &config.Config{}}
	rt.Close()
	rt.Close()
}
