package models

import (
	"fmt"
	"strings"
)

// Interval is a check interval in minutes.
type Interval int

const (
	Interval1h  Interval = 60
	Interval6h  Interval = 360
	Interval12h Interval = 720
	Interval24h Interval = 1440

	DefaultInterval = Interval6h
)

var intervalLabels = []struct {
	label    string
	interval Interval
}{
	{"1hr", Interval1h},
	{"6hr", Interval6h},
	{"12hr", Interval12h},
	{"24hr", Interval24h},
}

func (i Interval) Valid() bool {
	for _, il := range intervalLabels {
		if il.interval == i {
			return true
		}
	}
	return false
}

func (i Interval) String() string {
	for _, il := range intervalLabels {
		if il.interval == i {
			return il.label
		}
	}
	return fmt.Sprintf("%dmin", int(i))
}

// ParseInterval accepts a duration label such as "6hr".
func ParseInterval(label string) (Interval, error) {
	label = strings.ToLower(strings.TrimSpace(label))
	for _, il := range intervalLabels {
		if il.label == label {
			return il.interval, nil
		}
	}
	return 0, fmt.Errorf("unknown interval %q, must be one of %s", label, strings.Join(IntervalLabels(), ", "))
}

func IntervalLabels() []string {
	labels := make([]string, len(intervalLabels))
	for i, il := range intervalLabels {
		labels[i] = il.label
	}
	return labels
}

// CheckRequest is the body forwarded to the backend. Email always comes from
// the session.
type CheckRequest struct {
	ProductURL      string   `json:"productUrl"`
	DeliveryPincode string   `json:"deliveryPincode"`
	PhoneNumber     string   `json:"phoneNumber"`
	IntervalMinutes Interval `json:"intervalMinutes"`
	Email           string   `json:"email"`
}

// NewCheck is what a client submits; it has no email field.
type NewCheck struct {
	ProductURL      string   `json:"productUrl"`
	DeliveryPincode string   `json:"deliveryPincode"`
	PhoneNumber     string   `json:"phoneNumber"`
	IntervalMinutes Interval `json:"intervalMinutes"`
}

type CheckResponse struct {
	Message        string `json:"message"`
	ProductID      int64  `json:"productId"`
	SubscriptionID int64  `json:"subscriptionId"`
	Email          string `json:"email"`
}

type DeleteResponse struct {
	Message string `json:"message"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
