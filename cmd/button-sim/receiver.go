package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"

	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/config"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/delivery"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/discovery"
)

// Receiver selections.
const (
	receiverLocal = "local"
	receiverMDNS  = "mdns"
)

// staticDiscoverer always finds the same endpoint.
type staticDiscoverer struct {
	ep discovery.Endpoint
}

func (s staticDiscoverer) Discover(context.Context, string) ([]discovery.Endpoint, error) {
	return []discovery.Endpoint{s.ep}, nil
}

// endpointFromURL turns an http URL into a fixed endpoint.
func endpointFromURL(raw string) (discovery.Endpoint, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return discovery.Endpoint{}, err
	}
	if u.Scheme != "http" {
		return discovery.Endpoint{}, fmt.Errorf("receiver %q: only http is supported", raw)
	}
	if u.Hostname() == "" {
		return discovery.Endpoint{}, fmt.Errorf("receiver %q: missing host", raw)
	}

	port := 80
	if p := u.Port(); p != "" {
		if port, err = strconv.Atoi(p); err != nil || port <= 0 || port > 65535 {
			return discovery.Endpoint{}, fmt.Errorf("receiver %q: bad port", raw)
		}
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return discovery.Endpoint{
		Instance: "static",
		Host:     u.Hostname(),
		Addr:     u.Hostname(),
		Port:     uint16(port),
		Path:     path,
	}, nil
}

// serveLocal starts h on a loopback port and returns its endpoint.
func serveLocal(h http.Handler, logger *slog.Logger) (discovery.Endpoint, func(), error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return discovery.Endpoint{}, nil, err
	}
	srv := &http.Server{Handler: h}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("receiver stopped", "error", err)
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	ep := discovery.Endpoint{
		Instance: "button-sim",
		Host:     "localhost",
		Addr:     addr.IP.String(),
		Port:     uint16(addr.Port),
		Path:     "/",
	}
	return ep, func() { _ = srv.Close() }, nil
}

// discovererFor resolves the -receiver flag.
func discovererFor(sel string, cfg config.Config, local http.Handler, logger *slog.Logger) (delivery.Discoverer, func(), error) {
	switch sel {
	case receiverLocal:
		ep, stop, err := serveLocal(local, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("start receiver: %w", err)
		}
		return staticDiscoverer{ep: ep}, stop, nil

	case receiverMDNS:
		return discovery.NewBrowser(discovery.BrowserConfig{
			Window:    cfg.Timing.DiscoveryWindow.Std(),
			Interface: cfg.Discovery.Interface,
			Logger:    logger,
		}), func() {}, nil

	default:
		ep, err := endpointFromURL(sel)
		if err != nil {
			return nil, nil, err
		}
		return staticDiscoverer{ep: ep}, func() {}, nil
	}
}

var _ delivery.Discoverer = staticDiscoverer{}
