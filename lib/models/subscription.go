package models

type Status string

const (
	StatusActive  Status = "active"
	StatusExpired Status = "expired"
	StatusDeleted Status = "deleted"
)

// Subscription is owned by the backend; the frontend only displays it.
type Subscription struct {
	ID              int64   `json:"id"`
	ProductID       int64   `json:"product_id"`
	Email           string  `json:"email"`
	PhoneNumber     string  `json:"phone_number"`
	CreatedAt       string  `json:"created_at"`
	Status          Status  `json:"status"`
	StatusChangedAt string  `json:"status_changed_at"`
	URL             string  `json:"url"`
	DeliveryPincode string  `json:"delivery_pincode"`
	IntervalMinutes int     `json:"interval_minutes"`
	ProductName     *string `json:"product_name,omitempty"`
	ImageURL        *string `json:"image_url,omitempty"`
}

type Subscriptions []Subscription

// Visible drops soft-deleted entries. Deleted subscriptions stay fetchable by
// id on the backend, they are only hidden from list views.
func (subs Subscriptions) Visible() Subscriptions {
	out := make(Subscriptions, 0, len(subs))
	for _, sub := range subs {
		if sub.Status == StatusDeleted {
			continue
		}
		out = append(out, sub)
	}
	return out
}

type SubscriptionsResponse struct {
	Email         string        `json:"email"`
	Subscriptions Subscriptions `json:"subscriptions"`
}
