package watchlist

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fiffu/stockwatch/lib/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	mu        sync.Mutex
	subs      models.Subscriptions
	lists     int
	deleted   []int64
	listErr   error
	deleteErr error
}

func (f *fakeAPI) ListSubscriptions(ctx context.Context) (*models.SubscriptionsResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return &models.SubscriptionsResponse{Email: "a@b.com", Subscriptions: append(models.Subscriptions(nil), f.subs...)}, nil
}

func (f *fakeAPI) DeleteCheck(ctx context.Context, id int64) (*models.DeleteResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return &models.DeleteResponse{Message: "Subscription deleted"}, nil
}

func (f *fakeAPI) listCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lists
}

func sub(id int64, status models.Status) models.Subscription {
	return models.Subscription{ID: id, Status: status, URL: "https://shop.amul.com/p", IntervalMinutes: 360}
}

func ids(subs models.Subscriptions) []int64 {
	out := []int64{}
	for _, s := range subs {
		out = append(out, s.ID)
	}
	return out
}

func TestLoad_HidesDeleted(t *testing.T) {
	api := &fakeAPI{subs: models.Subscriptions{
		sub(1, models.StatusActive),
		sub(2, models.StatusDeleted),
		sub(3, models.StatusExpired),
	}}
	w := New(api)

	require.NoError(t, w.Load(context.Background()))
	assert.Equal(t, []int64{1, 3}, ids(w.Items()))
	assert.Equal(t, "a@b.com", w.Email())
}

func TestRefresh_OnlyWhenTriggerChanges(t *testing.T) {
	api := &fakeAPI{subs: models.Subscriptions{sub(1, models.StatusActive)}}
	w := New(api)
	ctx := context.Background()

	fetched, err := w.Refresh(ctx, 0)
	require.NoError(t, err)
	assert.True(t, fetched)

	fetched, err = w.Refresh(ctx, 0)
	require.NoError(t, err)
	assert.False(t, fetched)

	fetched, err = w.Refresh(ctx, 1)
	require.NoError(t, err)
	assert.True(t, fetched)
	assert.Equal(t, 2, api.listCalls())
}

func TestRefresh_RetriesAfterFailedFirstLoad(t *testing.T) {
	api := &fakeAPI{listErr: errors.New("down")}
	w := New(api)
	ctx := context.Background()

	_, err := w.Refresh(ctx, 0)
	require.Error(t, err)

	api.mu.Lock()
	api.listErr = nil
	api.subs = models.Subscriptions{sub(1, models.StatusActive)}
	api.mu.Unlock()

	fetched, err := w.Refresh(ctx, 0)
	require.NoError(t, err)
	assert.True(t, fetched)
	assert.Len(t, w.Items(), 1)
}

func TestDelete(t *testing.T) {
	api := &fakeAPI{subs: models.Subscriptions{sub(1, models.StatusActive), sub(2, models.StatusActive)}}
	w := New(api)
	ctx := context.Background()
	require.NoError(t, w.Load(ctx))

	require.NoError(t, w.Delete(ctx, 1))
	assert.Equal(t, []int64{2}, ids(w.Items()))
	assert.Equal(t, []int64{1}, api.deleted)
}

func TestDelete_FailureLeavesListUnchanged(t *testing.T) {
	api := &fakeAPI{subs: models.Subscriptions{sub(1, models.StatusActive), sub(2, models.StatusActive)}}
	w := New(api)
	ctx := context.Background()
	require.NoError(t, w.Load(ctx))

	api.deleteErr = errors.New("Subscription not found")
	err := w.Delete(ctx, 1)
	assert.EqualError(t, err, "Subscription not found")
	assert.Equal(t, []int64{1, 2}, ids(w.Items()))
}

func TestItems_ReturnsCopy(t *testing.T) {
	api := &fakeAPI{subs: models.Subscriptions{sub(1, models.StatusActive)}}
	w := New(api)
	require.NoError(t, w.Load(context.Background()))

	items := w.Items()
	items[0].ID = 99
	assert.Equal(t, []int64{1}, ids(w.Items()))
}

func TestRowOf(t *testing.T) {
	name := "  Amul High Protein Milk "
	s := sub(7, models.StatusActive)
	s.StatusChangedAt = "2024-05-01T10:30:00.123Z"
	row := RowOf(s)
	assert.Equal(t, "https://shop.amul.com/p", row.Product)
	assert.Equal(t, "6hr", row.Interval)
	assert.Equal(t, "2024-05-01 10:30", row.Since)

	s.ProductName = &name
	s.StatusChangedAt = "yesterday"
	row = RowOf(s)
	assert.Equal(t, "Amul High Protein Milk", row.Product)
	assert.Equal(t, "yesterday", row.Since)
}

func TestWatch(t *testing.T) {
	api := &fakeAPI{subs: models.Subscriptions{sub(1, models.StatusActive)}}
	w := New(api)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var refreshes int
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Watch(ctx, time.Millisecond, func(rows []Row, err error) {
			assert.NoError(t, err)
			assert.Len(t, rows, 1)
			refreshes++
			if refreshes == 3 {
				cancel()
			}
		})
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not stop after cancel")
	}
	assert.GreaterOrEqual(t, refreshes, 3)
	assert.Equal(t, refreshes, api.listCalls())
}
