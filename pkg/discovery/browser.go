package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// BrowseFunc runs one DNS-SD browse until ctx is done, sending resolved
// entries and removals on the given channels. MDNSBrowse is the default.
type BrowseFunc func(ctx context.Context, service, domain string, entries, removed chan *zeroconf.ServiceEntry) error

// BrowserConfig configures a Browser.
type BrowserConfig struct {
	// Window is how long a lookup collects answers.
	// Default: 1 second.
	Window time.Duration

	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string

	// Browse overrides the mDNS browse. Set this in tests to inject
	// entries without touching the network.
	Browse BrowseFunc

	// Logger receives per-entry debug output. Nil disables logging.
	Logger *slog.Logger
}

// DefaultBrowserConfig returns the default browser configuration.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{Window: DefaultWindow}
}

// Browser resolves receiver endpoints by service type.
type Browser struct {
	config BrowserConfig
	browse BrowseFunc

	mu      sync.Mutex
	lookups int
}

// NewBrowser creates a browser.
func NewBrowser(config BrowserConfig) *Browser {
	if config.Window <= 0 {
		config.Window = DefaultWindow
	}
	if config.Window > MaxWindow {
		config.Window = MaxWindow
	}

	browse := config.Browse
	if browse == nil {
		browse = MDNSBrowse(browserOptions(config.Interface)...)
	}
	return &Browser{config: config, browse: browse}
}

// MDNSBrowse returns a BrowseFunc backed by zeroconf.
func MDNSBrowse(opts ...zeroconf.ClientOption) BrowseFunc {
	return func(ctx context.Context, service, domain string, entries, removed chan *zeroconf.ServiceEntry) error {
		return zeroconf.Browse(ctx, service, domain, entries, removed, opts...)
	}
}

// Lookups returns how many lookups were issued.
func (b *Browser) Lookups() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lookups
}

// Discover browses for service for at most the configured window and
// returns the endpoints seen, in the order their instances were first
// received. An empty result is not an error.
func (b *Browser) Discover(ctx context.Context, service string) ([]Endpoint, error) {
	if err := ValidateServiceType(service); err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.lookups++
	b.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, b.config.Window)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)
	done := make(chan error, 1)

	go func() {
		done <- b.browse(ctx, service, Domain, entries, removed)
	}()

	services := make(map[string]*resolved)
	var order []string
	var browseErr error

collect:
	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				entries = nil
				continue
			}
			svc := b.entryToResolved(entry)
			if svc == nil {
				continue
			}
			if existing, found := services[svc.instance]; found {
				existing.addrs = mergeAddresses(existing.addrs, svc.addrs)
				continue
			}
			services[svc.instance] = svc
			order = append(order, svc.instance)

		case entry, ok := <-removed:
			if !ok {
				removed = nil
				continue
			}
			if existing, found := services[entry.Instance]; found {
				existing.addrs = removeAddresses(existing.addrs, entry)
			}

		case err := <-done:
			browseErr = err
			break collect

		case <-ctx.Done():
			break collect
		}
	}

	var out []Endpoint
	for _, name := range order {
		out = append(out, services[name].endpoints()...)
	}

	if browseErr != nil && !errors.Is(browseErr, context.DeadlineExceeded) &&
		!errors.Is(browseErr, context.Canceled) && len(out) == 0 {
		return nil, fmt.Errorf("browse %s: %w", service, browseErr)
	}
	return out, nil
}

// resolved aggregates the addresses of one instance.
type resolved struct {
	instance string
	host     string
	port     uint16
	path     string
	addrs    []string
}

func (r *resolved) endpoints() []Endpoint {
	eps := make([]Endpoint, 0, len(r.addrs))
	for _, a := range r.addrs {
		eps = append(eps, Endpoint{
			Instance: r.instance,
			Host:     r.host,
			Addr:     a,
			Port:     r.port,
			Path:     r.path,
		})
	}
	return eps
}

// entryToResolved converts a zeroconf entry. Entries without a usable port
// or path are dropped.
func (b *Browser) entryToResolved(entry *zeroconf.ServiceEntry) *resolved {
	if entry == nil || entry.Port <= 0 || entry.Port > 65535 {
		return nil
	}

	path, err := ParseTXT(entry.Text).Path()
	if err != nil {
		b.debugLog("ignoring receiver", "instance", entry.Instance, "error", err)
		return nil
	}

	// Collect addresses, IPv4 first
	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}

	b.debugLog("receiver resolved", "instance", entry.Instance, "host", entry.HostName, "port", entry.Port, "addrs", addrs)

	return &resolved{
		instance: entry.Instance,
		host:     entry.HostName,
		port:     uint16(entry.Port),
		path:     path,
		addrs:    addrs,
	}
}

func (b *Browser) debugLog(msg string, args ...any) {
	if b.config.Logger != nil {
		b.config.Logger.Debug(msg, args...)
	}
}

// browserOptions returns zeroconf client options for the interface name.
func browserOptions(ifname string) []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption

	// Select specific interface if configured
	if ifname != "" {
		iface, err := net.InterfaceByName(ifname)
		if err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		}
	}

	return opts
}

// mergeAddresses adds new addresses to existing list, avoiding duplicates.
func mergeAddresses(existing, new []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, addr := range existing {
		seen[addr] = true
	}

	for _, addr := range new {
		if !seen[addr] {
			existing = append(existing, addr)
			seen[addr] = true
		}
	}
	return existing
}

// removeAddresses removes addresses from a zeroconf entry from the list.
func removeAddresses(addresses []string, entry *zeroconf.ServiceEntry) []string {
	toRemove := make(map[string]bool)
	for _, ip := range entry.AddrIPv4 {
		toRemove[ip.String()] = true
	}
	for _, ip := range entry.AddrIPv6 {
		toRemove[ip.String()] = true
	}

	result := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		if !toRemove[addr] {
			result = append(result, addr)
		}
	}
	return result
}
