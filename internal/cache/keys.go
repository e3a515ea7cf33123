package cache

import (
	"fmt"

	"github.com/google/uuid"
)

func RateLimitKey(principalID uuid.UUID) string {
	return fmt.Sprintf("ratelimit:%s", principalID)
}

func LoginRateLimitKey(remoteIP string) string {
	return fmt.Sprintf("ratelimit:login:%s", remoteIP)
}
