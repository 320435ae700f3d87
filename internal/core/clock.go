package core

import (
	"context"
	"time"
)

type clockKey struct{}

// SetNow makes now the clock of ctx.
func SetNow(ctx context.Context, now func() time.Time) context.Context {
	return context.WithValue(ctx, clockKey{}, now)
}

// Now reads the clock of ctx, wall time in UTC when none is set.
func Now(ctx context.Context) time.Time {
	if now, ok := ctx.Value(clockKey{}).(func() time.Time); ok {
		return now()
	}
	return time.Now().UTC()
}

// Freeze pins the clock of ctx to its current reading. Everything compiled for
// one request must see the same now.
func Freeze(ctx context.Context) (context.Context, time.Time) {
	now := Now(ctx).UTC()
	return SetNow(ctx, func() time.Time { return now }), now
}
