// Package watchlist holds the subscriptions shown to a signed-in user.
package watchlist

import (
	"context"
	"sync"

	"github.com/fiffu/stockwatch/lib/models"
)

// API is the subset of client.Client a Watchlist needs.
type API interface {
	ListSubscriptions(ctx context.Context) (*models.SubscriptionsResponse, error)
	DeleteCheck(ctx context.Context, id int64) (*models.DeleteResponse, error)
}

// Watchlist keeps the visible subscriptions of one user. Deleted entries
// are never shown, whatever the server returns.
type Watchlist struct {
	api API

	mu      sync.Mutex
	email   string
	items   models.Subscriptions
	loaded  bool
	trigger int
}

func New(api API) *Watchlist {
	return &Watchlist{api: api}
}

// Load fetches the list unconditionally.
func (w *Watchlist) Load(ctx context.Context) error {
	res, err := w.api.ListSubscriptions(ctx)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.email = res.Email
	w.items = res.Subscriptions.Visible()
	w.loaded = true
	return nil
}

// Refresh fetches the list on first use and whenever trigger differs from
// the last one seen. It reports whether a fetch happened.
func (w *Watchlist) Refresh(ctx context.Context, trigger int) (bool, error) {
	w.mu.Lock()
	stale := !w.loaded || trigger != w.trigger
	w.trigger = trigger
	w.mu.Unlock()

	if !stale {
		return false, nil
	}
	return true, w.Load(ctx)
}

// Delete removes the subscription on the server, then locally. On failure
// the local list is left as it was.
func (w *Watchlist) Delete(ctx context.Context, id int64) error {
	if _, err := w.api.DeleteCheck(ctx, id); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	kept := w.items[:0:0]
	for _, sub := range w.items {
		if sub.ID != id {
			kept = append(kept, sub)
		}
	}
	w.items = kept
	return nil
}

// Items returns a copy of the visible subscriptions.
func (w *Watchlist) Items() models.Subscriptions {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append(models.Subscriptions(nil), w.items...)
}

func (w *Watchlist) Email() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.email
}
