package instance

import (
	"os"

	"github.com/oddspool/oddspool-backend/pkg/env"
)

const envInstanceID = "ODDSPOOL_INSTANCE_ID"

// GetID identifies this process in lock owners and logs. It prefers
// ODDSPOOL_INSTANCE_ID, then the hostname.
func GetID() string {
	if id := env.First("", envInstanceID); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "oddspool-0"
}
