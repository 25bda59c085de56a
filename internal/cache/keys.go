package cache

import (
	"context"
	"fmt"
	"time"
)

const RequestKeyPrefix = "request:%s"

// RequestTTL bounds how long a request snapshot is served from cache.
var RequestTTL = 5 * time.Minute

// SetRequestTTL overrides RequestTTL; non-positive values are ignored.
func SetRequestTTL(d time.Duration) {
	if d > 0 {
		RequestTTL = d
	}
}

func RequestKey(id string) string {
	return fmt.Sprintf(RequestKeyPrefix, id)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateRequest(ctx context.Context, id string) {
	Invalidate(ctx, RequestKey(id))
}
