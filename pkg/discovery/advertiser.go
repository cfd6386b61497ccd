package discovery

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// Registration is a running advertisement.
type Registration interface {
	Shutdown()
}

// RegisterFunc publishes one service instance. MDNSRegister is the default.
type RegisterFunc func(instance, service, domain string, port int, txt []string, ifaces []net.Interface) (Registration, error)

// AdvertiserConfig configures an Advertiser.
type AdvertiserConfig struct {
	// Interface restricts advertising to one interface. Empty means all.
	Interface string

	// TTL is the record TTL. Zero uses the zeroconf default.
	TTL time.Duration

	// Register overrides the mDNS registration. Set this in tests.
	Register RegisterFunc
}

// DefaultAdvertiserConfig returns the default advertiser configuration.
func DefaultAdvertiserConfig() AdvertiserConfig {
	return AdvertiserConfig{}
}

// MDNSRegister returns a RegisterFunc backed by zeroconf.
func MDNSRegister(opts ...zeroconf.ServerOption) RegisterFunc {
	return func(instance, service, domain string, port int, txt []string, ifaces []net.Interface) (Registration, error) {
		server, err := zeroconf.Register(instance, service, domain, port, txt, ifaces, opts...)
		if err != nil {
			return nil, err
		}
		return server, nil
	}
}

// Advertiser publishes device services over mDNS.
type Advertiser struct {
	config   AdvertiserConfig
	register RegisterFunc

	mu      sync.Mutex
	servers map[string]Registration // keyed by service type
}

// NewAdvertiser creates an advertiser.
func NewAdvertiser(config AdvertiserConfig) *Advertiser {
	register := config.Register
	if register == nil {
		var opts []zeroconf.ServerOption
		if config.TTL > 0 {
			opts = append(opts, zeroconf.TTL(uint32(config.TTL.Seconds())))
		}
		register = MDNSRegister(opts...)
	}
	return &Advertiser{
		config:   config,
		register: register,
		servers:  make(map[string]Registration),
	}
}

// getInterfaces returns the network interfaces to use for advertising.
// Returns nil to use all interfaces.
func (a *Advertiser) getInterfaces() []net.Interface {
	if a.config.Interface == "" {
		return nil
	}

	iface, err := net.InterfaceByName(a.config.Interface)
	if err != nil {
		return nil
	}
	return []net.Interface{*iface}
}

// Advertise starts advertising info, replacing an existing advertisement
// of the same service type.
func (a *Advertiser) Advertise(ctx context.Context, info *ServiceInfo) error {
	if err := ValidateServiceType(info.Service); err != nil {
		return err
	}
	if err := ValidateInstanceName(info.Instance); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if server, exists := a.servers[info.Service]; exists {
		server.Shutdown()
		delete(a.servers, info.Service)
	}

	txt := txtFor(info).Strings()
	server, err := a.register(info.Instance, info.Service, Domain, int(info.Port), txt, a.getInterfaces())
	if err != nil {
		return fmt.Errorf("failed to register %s: %w", info.Service, err)
	}

	a.servers[info.Service] = server
	return nil
}

// Advertising reports whether service is currently advertised.
func (a *Advertiser) Advertising(service string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.servers[service]
	return ok
}

// Stop stops advertising service.
func (a *Advertiser) Stop(service string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	server, exists := a.servers[service]
	if !exists {
		return ErrNotAdvertising
	}
	server.Shutdown()
	delete(a.servers, service)
	return nil
}

// StopAll stops all advertisements.
func (a *Advertiser) StopAll() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for service, server := range a.servers {
		server.Shutdown()
		delete(a.servers, service)
	}
}
