package instance

import (
	"fmt"
	"os"

	"github.com/angelmondragon/giftdesk-backend/pkg/env"
)

// GetID identifies this worker process; it names lock owners and consumers.
// GIFTDESK_WORKER_ID wins, then the hostname plus pid.
func GetID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return env.Get("GIFTDESK_WORKER_ID", fmt.Sprintf("%s-%d", host, os.Getpid()))
}
