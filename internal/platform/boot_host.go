//go:build !rp2040 && !rp2350

package platform

import (
	"context"
	"time"

	"fanmonitor-go/x/logx"
)

// abandonAfter bounds how long a torn-down attempt may take to return. An
// attempt that ignores its context past this is left running and logged.
const abandonAfter = 250 * time.Millisecond

type expirer interface {
	Expired() <-chan struct{}
}

// Boot models power-on followed by watchdog resets. Each attempt runs under
// its own context; when the board's watchdog expires the attempt is torn
// down, as a chip reset would, and bring-up is entered again. An attempt
// that does not return within abandonAfter of being cancelled is left
// behind and may still touch the board. Boot returns the number of attempts
// made once ctx ends.
func Boot(ctx context.Context, b *Board, run BootFunc) uint32 {
	wd, _ := b.Watchdog.(expirer)
	var boot uint32
	var stale <-chan struct{}
	for ctx.Err() == nil {
		boot++
		actx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func(n uint32) { done <- run(actx, n) }(boot)

		fired := waitAttempt(ctx, wd, stale, done)
		cancel()
		if fired != nil {
			stale = fired
			logx.Warn("boot", "watchdog reset", logx.Uint("boot", boot))
			settle(done, boot)
			continue
		}
		select {
		case err := <-done:
			if err != nil && ctx.Err() == nil {
				logx.Error("boot", "bring-up failed", logx.Uint("boot", boot), logx.Err(err))
				select {
				case <-ctx.Done():
				case <-time.After(retryDelay):
				}
			}
		case <-ctx.Done():
			settle(done, boot)
		}
	}
	return boot
}

// settle waits for a cancelled attempt to return. It reports false when the
// attempt was abandoned after abandonAfter.
func settle(done <-chan error, boot uint32) bool {
	t := time.NewTimer(abandonAfter)
	defer t.Stop()
	select {
	case <-done:
		return true
	case <-t.C:
		logx.Warn("boot", "attempt abandoned", logx.Uint("boot", boot))
		return false
	}
}

// waitAttempt returns the expiry channel when the watchdog fired before the
// attempt finished or ctx ended, nil otherwise. stale is the channel of an
// earlier reset and is ignored.
func waitAttempt(ctx context.Context, wd expirer, stale <-chan struct{}, done chan error) <-chan struct{} {
	tick := time.NewTicker(time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-done:
			done <- err
			return nil
		case <-tick.C:
			if wd == nil {
				continue
			}
			if ch := wd.Expired(); ch != nil && ch != stale {
				select {
				case <-ch:
					return ch
				default:
				}
			}
		}
	}
}
