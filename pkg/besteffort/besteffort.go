// Package besteffort runs side work whose failure must not fail the caller.
//
// Anything run here happens after the caller's critical writes are durable.
// Errors and panics are logged at warn level and swallowed.
package besteffort

import (
	"context"
	"fmt"

	"github.com/angelmondragon/giftdesk-backend/pkg/logger"
)

// Run executes fn and logs any failure under "<name>.failed".
func Run(ctx context.Context, logg *logger.Logger, name string, fn func(context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			if logg != nil {
				logg.WarnErr(ctx, name+".panicked", fmt.Errorf("panic: %v", r))
			}
		}
	}()
	if err := fn(ctx); err != nil && logg != nil {
		logg.WarnErr(ctx, name+".failed", err)
	}
}
