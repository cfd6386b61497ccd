package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/config"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/discovery"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestEndpointFromURL(t *testing.T) {
	tests := []struct {
		raw     string
		want    discovery.Endpoint
		wantErr bool
	}{
		{
			raw:  "http://192.168.1.20:8080/orders",
			want: discovery.Endpoint{Instance: "static", Host: "192.168.1.20", Addr: "192.168.1.20", Port: 8080, Path: "/orders"},
		},
		{
			raw:  "http://kitchen.local",
			want: discovery.Endpoint{Instance: "static", Host: "kitchen.local", Addr: "kitchen.local", Port: 80, Path: "/"},
		},
		{raw: "https://kitchen.local/", wantErr: true},
		{raw: "http:///nohost", wantErr: true},
		{raw: "http://kitchen.local:99999/", wantErr: true},
		{raw: "::not a url", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := endpointFromURL(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestServeLocal(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	ep, stop, err := serveLocal(h, quiet)
	require.NoError(t, err)
	defer stop()

	assert.Equal(t, "127.0.0.1", ep.Addr)
	assert.NotZero(t, ep.Port)

	resp, err := http.Post(ep.URL(), "application/json", bytes.NewReader([]byte("{}")))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
}

func TestDiscovererFor(t *testing.T) {
	cfg := config.Default()

	disc, stop, err := discovererFor("http://10.0.0.5:9000/", cfg, nil, quiet)
	require.NoError(t, err)
	stop()

	eps, err := disc.Discover(context.Background(), cfg.Discovery.Service)
	require.NoError(t, err)
	require.Len(t, eps, 1)
	assert.Equal(t, "10.0.0.5:9000", eps[0].HostPort())

	disc, stop, err = discovererFor(receiverMDNS, cfg, nil, quiet)
	require.NoError(t, err)
	stop()
	assert.IsType(t, &discovery.Browser{}, disc)

	_, _, err = discovererFor("ftp://kitchen", cfg, nil, quiet)
	assert.Error(t, err)
}
