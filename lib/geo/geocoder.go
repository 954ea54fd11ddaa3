package geo

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/carlmjohnson/requests"
)

var errNoPostcode = errors.New("no postcode in response")

type Geocoder interface {
	Postcode(ctx context.Context, lat, lon float64) (string, error)
}

// Nominatim queries an OpenStreetMap Nominatim-compatible reverse endpoint.
type Nominatim struct {
	URL       string
	UserAgent string
	Transport http.RoundTripper
}

type nominatimResponse struct {
	Address struct {
		Postcode string `json:"postcode"`
	} `json:"address"`
}

func (n *Nominatim) Postcode(ctx context.Context, lat, lon float64) (string, error) {
	var resp nominatimResponse
	err := requests.URL(n.URL).
		Transport(n.Transport).
		UserAgent(n.UserAgent).
		Param("format", "json").
		Param("addressdetails", "1").
		Param("lat", formatCoord(lat)).
		Param("lon", formatCoord(lon)).
		ToJSON(&resp).
		Fetch(ctx)
	if err != nil {
		return "", err
	}
	if resp.Address.Postcode == "" {
		return "", errNoPostcode
	}
	return resp.Address.Postcode, nil
}

// OpenCage queries an OpenCage-compatible forward/reverse endpoint, which
// needs an API key.
type OpenCage struct {
	URL       string
	APIKey    string
	Transport http.RoundTripper
}

// postalFields lists every field name a provider has been seen to use for
// the postal code, in order of preference.
type postalFields struct {
	Postcode   string `json:"postcode"`
	PostalCode string `json:"postal_code"`
	Zipcode    string `json:"zipcode"`
	Pincode    string `json:"pincode"`
}

func (f *postalFields) first() string {
	if f == nil {
		return ""
	}
	for _, v := range []string{f.Postcode, f.PostalCode, f.Zipcode, f.Pincode} {
		if v != "" {
			return v
		}
	}
	return ""
}

type openCageResponse struct {
	Results []struct {
		Components *postalFields `json:"components"`
	} `json:"results"`
	Address *postalFields `json:"address"`
}

func (r *openCageResponse) postcode() string {
	if len(r.Results) > 0 {
		if code := r.Results[0].Components.first(); code != "" {
			return code
		}
	}
	return r.Address.first()
}

func (o *OpenCage) Postcode(ctx context.Context, lat, lon float64) (string, error) {
	var resp openCageResponse
	err := requests.URL(o.URL).
		Transport(o.Transport).
		Param("q", formatCoord(lat)+","+formatCoord(lon)).
		Param("key", o.APIKey).
		Param("limit", "1").
		Param("no_annotations", "1").
		ToJSON(&resp).
		Fetch(ctx)
	if err != nil {
		return "", err
	}
	code := resp.postcode()
	if code == "" {
		return "", errNoPostcode
	}
	return code, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
