package discovery_test

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/enbility/zeroconf/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/discovery"
)

func entry(instance, host string, port int, v4 []string, v6 []string, txt ...string) *zeroconf.ServiceEntry {
	e := &zeroconf.ServiceEntry{}
	e.Instance = instance
	e.HostName = host
	e.Port = port
	e.Text = txt
	for _, a := range v4 {
		e.AddrIPv4 = append(e.AddrIPv4, net.ParseIP(a))
	}
	for _, a := range v6 {
		e.AddrIPv6 = append(e.AddrIPv6, net.ParseIP(a))
	}
	return e
}

type event struct {
	removed bool
	entry   *zeroconf.ServiceEntry
}

// scripted returns a BrowseFunc that emits events and returns err.
func scripted(t *testing.T, wantService string, err error, events ...event) discovery.BrowseFunc {
	return func(ctx context.Context, service, domain string, entries, removed chan *zeroconf.ServiceEntry) error {
		assert.Equal(t, wantService, service)
		assert.Equal(t, discovery.Domain, domain)
		for _, ev := range events {
			ch := entries
			if ev.removed {
				ch = removed
			}
			select {
			case ch <- ev.entry:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return err
	}
}

func TestDiscoverOrdersEndpoints(t *testing.T) {
	browse := scripted(t, discovery.ServiceTypeReceiver, nil,
		event{entry: entry("kitchen", "kitchen.local.", 8080, []string{"192.168.1.20"}, []string{"fe80::1"})},
		event{entry: entry("office", "office.local.", 9000, []string{"192.168.1.30", "10.0.0.5"}, nil, "path=/order")},
	)
	b := discovery.NewBrowser(discovery.BrowserConfig{Browse: browse})

	eps, err := b.Discover(context.Background(), discovery.ServiceTypeReceiver)
	require.NoError(t, err)
	require.Len(t, eps, 4)

	assert.Equal(t, "192.168.1.20", eps[0].Addr)
	assert.Equal(t, "fe80::1", eps[1].Addr)
	assert.Equal(t, "192.168.1.30", eps[2].Addr)
	assert.Equal(t, "10.0.0.5", eps[3].Addr)

	assert.Equal(t, uint16(8080), eps[0].Port)
	assert.Equal(t, "kitchen", eps[0].Instance)
	assert.Equal(t, "/", eps[0].Path)
	assert.Equal(t, "/order", eps[2].Path)
	assert.Equal(t, "http://192.168.1.30:9000/order", eps[2].URL())
	assert.Equal(t, "http://[fe80::1]:8080/", eps[1].URL())
	assert.Equal(t, 1, b.Lookups())
}

func TestDiscoverMergesAndRemoves(t *testing.T) {
	browse := scripted(t, discovery.ServiceTypeReceiver, nil,
		event{entry: entry("kitchen", "k.local.", 8080, []string{"192.168.1.20"}, nil)},
		event{entry: entry("kitchen", "k.local.", 8080, []string{"192.168.1.20", "10.1.1.1"}, nil)},
		event{removed: true, entry: entry("kitchen", "k.local.", 8080, []string{"192.168.1.20"}, nil)},
	)
	b := discovery.NewBrowser(discovery.BrowserConfig{Browse: browse})

	eps, err := b.Discover(context.Background(), discovery.ServiceTypeReceiver)
	require.NoError(t, err)
	require.Len(t, eps, 1)
	assert.Equal(t, "10.1.1.1", eps[0].Addr)
}

func TestDiscoverDropsInvalidEntries(t *testing.T) {
	browse := scripted(t, discovery.ServiceTypeReceiver, nil,
		event{entry: entry("noport", "a.local.", 0, []string{"192.168.1.2"}, nil)},
		event{entry: entry("badpath", "b.local.", 80, []string{"192.168.1.3"}, nil, "path=order")},
		event{entry: entry("good", "c.local.", 80, []string{"192.168.1.4"}, nil)},
	)
	b := discovery.NewBrowser(discovery.BrowserConfig{Browse: browse})

	eps, err := b.Discover(context.Background(), discovery.ServiceTypeReceiver)
	require.NoError(t, err)
	require.Len(t, eps, 1)
	assert.Equal(t, "good", eps[0].Instance)
}

func TestDiscoverWindowBoundsLookup(t *testing.T) {
	blocking := func(ctx context.Context, _, _ string, entries, _ chan *zeroconf.ServiceEntry) error {
		select {
		case entries <- entry("late", "l.local.", 80, []string{"192.168.1.9"}, nil):
		case <-ctx.Done():
			return ctx.Err()
		}
		<-ctx.Done()
		return ctx.Err()
	}
	b := discovery.NewBrowser(discovery.BrowserConfig{Window: 50 * time.Millisecond, Browse: blocking})

	start := time.Now()
	eps, err := b.Discover(context.Background(), discovery.ServiceTypeReceiver)
	require.NoError(t, err)
	assert.Len(t, eps, 1)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestDiscoverBrowseError(t *testing.T) {
	boom := errors.New("no multicast interface")
	b := discovery.NewBrowser(discovery.BrowserConfig{Browse: scripted(t, discovery.ServiceTypeReceiver, boom)})

	_, err := b.Discover(context.Background(), discovery.ServiceTypeReceiver)
	assert.ErrorIs(t, err, boom)
}

func TestDiscoverBrowseErrorWithResults(t *testing.T) {
	boom := errors.New("interface went away")
	browse := scripted(t, discovery.ServiceTypeReceiver, boom,
		event{entry: entry("kitchen", "k.local.", 8080, []string{"192.168.1.20"}, nil)},
	)
	b := discovery.NewBrowser(discovery.BrowserConfig{Browse: browse})

	eps, err := b.Discover(context.Background(), discovery.ServiceTypeReceiver)
	require.NoError(t, err)
	assert.Len(t, eps, 1)
}

func TestDiscoverInvalidService(t *testing.T) {
	b := discovery.NewBrowser(discovery.BrowserConfig{Browse: scripted(t, "", nil)})

	for _, svc := range []string{"", "pizza-app", "_pizza-app._sctp", "_pizza-app.tcp"} {
		_, err := b.Discover(context.Background(), svc)
		assert.ErrorIs(t, err, discovery.ErrInvalidService, svc)
	}
	assert.Zero(t, b.Lookups())
}

func TestDiscoverCancelledContext(t *testing.T) {
	b := discovery.NewBrowser(discovery.BrowserConfig{Browse: func(ctx context.Context, _, _ string, _, _ chan *zeroconf.ServiceEntry) error {
		<-ctx.Done()
		return ctx.Err()
	}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	eps, err := b.Discover(ctx, discovery.ServiceTypeReceiver)
	assert.NoError(t, err)
	assert.Empty(t, eps)
}
