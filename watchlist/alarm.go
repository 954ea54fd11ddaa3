package watchlist

import (
	"context"
	"time"
)

// alarmClock emits an increasing refresh trigger: once immediately, then
// every interval until the context ends.
type alarmClock struct {
	interval time.Duration
	C        chan int
}

func newAlarmClock(interval time.Duration) *alarmClock {
	return &alarmClock{interval, make(chan int)}
}

func (a *alarmClock) Start(ctx context.Context) <-chan int {
	go func() {
		defer close(a.C)
		ticker := time.NewTicker(a.interval)
		defer ticker.Stop()

		for trigger := 1; ; trigger++ {
			select {
			case a.C <- trigger:
			case <-ctx.Done():
				return
			}

			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return a.C
}

// Watch refreshes the list every interval and calls onRefresh after each
// fetch, until ctx is done. Fetch errors are passed to onRefresh and do not
// stop the loop.
func (w *Watchlist) Watch(ctx context.Context, interval time.Duration, onRefresh func(rows []Row, err error)) {
	for trigger := range newAlarmClock(interval).Start(ctx) {
		_, err := w.Refresh(ctx, trigger)
		onRefresh(w.Rows(), err)
	}
}
