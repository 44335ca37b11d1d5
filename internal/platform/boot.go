package platform

import (
	"context"
	"time"
)

// BootFunc runs one boot attempt: bring-up followed by the supervisor loop.
// It returns when ctx is cancelled or bring-up fails.
type BootFunc func(ctx context.Context, boot uint32) error

// retryDelay separates failed boot attempts.
const retryDelay = 10 * time.Millisecond
