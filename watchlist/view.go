package watchlist

import (
	"strings"
	"time"

	"github.com/fiffu/stockwatch/lib/models"
)

// Row is a subscription formatted for display.
type Row struct {
	ID       int64
	Product  string
	ImageURL string
	Pincode  string
	Interval string
	Status   string
	Since    string
}

func RowOf(sub models.Subscription) Row {
	row := Row{
		ID:       sub.ID,
		Product:  sub.URL,
		Pincode:  sub.DeliveryPincode,
		Interval: models.Interval(sub.IntervalMinutes).String(),
		Status:   string(sub.Status),
		Since:    formatTimestamp(sub.StatusChangedAt),
	}
	if sub.ProductName != nil && strings.TrimSpace(*sub.ProductName) != "" {
		row.Product = strings.TrimSpace(*sub.ProductName)
	}
	if sub.ImageURL != nil {
		row.ImageURL = *sub.ImageURL
	}
	return row
}

func (w *Watchlist) Rows() []Row {
	items := w.Items()
	rows := make([]Row, len(items))
	for i, sub := range items {
		rows[i] = RowOf(sub)
	}
	return rows
}

// formatTimestamp shortens RFC 3339 timestamps and leaves anything else as is.
func formatTimestamp(ts string) string {
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return ts
	}
	return t.UTC().Format("2006-01-02 15:04")
}
