package instance

import (
	"os"

	"github.com/angelmondragon/shopledger-backend/pkg/env"
)

const EnvInstanceID = "SHOPLEDGER_INSTANCE_ID"

// GetID names this process in logs and lock leases. It falls back to the
// hostname, then to a fixed default.
func GetID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "shopledger-0"
	}
	return env.Get(EnvInstanceID, host)
}
