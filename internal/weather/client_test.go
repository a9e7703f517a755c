// ABOUTME: Tests for the weather provider client against fake HTTP endpoints.
// ABOUTME: Covers geocode hits and misses, conditions decoding, and provider failures.

package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, geocode, forecast http.HandlerFunc) *Client {
	t.Helper()

	mux := http.NewServeMux()
	if geocode != nil {
		mux.HandleFunc("/geocode", geocode)
	}
	if forecast != nil {
		mux.HandleFunc("/forecast", forecast)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return NewClient(
		WithBaseURLs(srv.URL+"/geocode", srv.URL+"/forecast"),
		WithHTTPClient(srv.Client()),
	)
}

func TestGeocode(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Madrid", r.URL.Query().Get("name"))
		w.Write([]byte(`{"results":[{"name":"Madrid","latitude":40.4168,"longitude":-3.7038,"country":"Spain"}]}`))
	}, nil)

	place, err := client.Geocode(context.Background(), "Madrid")
	require.NoError(t, err)
	require.NotNil(t, place)
	assert.Equal(t, "Madrid", place.DisplayName)
	assert.Equal(t, "Spain", place.Country)
	assert.InDelta(t, 40.4168, place.Latitude, 0.0001)
	assert.InDelta(t, -3.7038, place.Longitude, 0.0001)
}

func TestGeocodeNoMatch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{}`))
	}, nil)

	place, err := client.Geocode(context.Background(), "Xyzzytown")
	require.NoError(t, err)
	assert.Nil(t, place)
}

func TestCurrentConditions(t *testing.T) {
	client := newTestClient(t, nil, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "40.4168", r.URL.Query().Get("latitude"))
		assert.Equal(t, "temperature_2m,relative_humidity_2m", r.URL.Query().Get("current"))
		w.Write([]byte(`{"current":{"temperature_2m":21.5,"relative_humidity_2m":48}}`))
	})

	cond, err := client.CurrentConditions(context.Background(), 40.4168, -3.7038)
	require.NoError(t, err)
	assert.InDelta(t, 21.5, cond.Temperature, 0.001)
	assert.InDelta(t, 48, cond.Humidity, 0.001)
}

func TestProviderFailureSurfacesAsError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down for maintenance", http.StatusServiceUnavailable)
	}, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`not json`))
	})

	_, err := client.Geocode(context.Background(), "Madrid")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")

	_, err = client.CurrentConditions(context.Background(), 1, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding response")
}
