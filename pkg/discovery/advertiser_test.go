package discovery_test

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/discovery"
)

type fakeRegistration struct {
	instance string
	service  string
	port     int
	txt      []string
	shutdown bool
}

func (f *fakeRegistration) Shutdown() { f.shutdown = true }

type fakeRegistrar struct {
	regs []*fakeRegistration
	err  error
}

func (f *fakeRegistrar) register(instance, service, domain string, port int, txt []string, _ []net.Interface) (discovery.Registration, error) {
	if f.err != nil {
		return nil, f.err
	}
	r := &fakeRegistration{instance: instance, service: service, port: port, txt: txt}
	f.regs = append(f.regs, r)
	return r, nil
}

func TestAdvertise(t *testing.T) {
	reg := &fakeRegistrar{}
	adv := discovery.NewAdvertiser(discovery.AdvertiserConfig{Register: reg.register})
	defer adv.StopAll()

	info := &discovery.ServiceInfo{
		Instance: "pizza-sms-button",
		Service:  discovery.ServiceTypeUpdate,
		Port:     discovery.DefaultUpdatePort,
		Firmware: "1.0",
		MAC:      "5C:CF:7F:00:BE:EF",
	}
	require.NoError(t, adv.Advertise(context.Background(), info))
	require.Len(t, reg.regs, 1)

	r := reg.regs[0]
	assert.Equal(t, "pizza-sms-button", r.instance)
	assert.Equal(t, discovery.ServiceTypeUpdate, r.service)
	assert.Equal(t, discovery.DefaultUpdatePort, r.port)
	assert.Equal(t, []string{"fw=1.0", "mac=5C:CF:7F:00:BE:EF"}, r.txt)
	assert.True(t, adv.Advertising(discovery.ServiceTypeUpdate))

	// Re-advertising replaces the previous registration.
	require.NoError(t, adv.Advertise(context.Background(), info))
	require.Len(t, reg.regs, 2)
	assert.True(t, reg.regs[0].shutdown)
	assert.False(t, reg.regs[1].shutdown)

	require.NoError(t, adv.Stop(discovery.ServiceTypeUpdate))
	assert.True(t, reg.regs[1].shutdown)
	assert.False(t, adv.Advertising(discovery.ServiceTypeUpdate))
	assert.ErrorIs(t, adv.Stop(discovery.ServiceTypeUpdate), discovery.ErrNotAdvertising)
}

func TestAdvertiseValidation(t *testing.T) {
	reg := &fakeRegistrar{}
	adv := discovery.NewAdvertiser(discovery.AdvertiserConfig{Register: reg.register})

	err := adv.Advertise(context.Background(), &discovery.ServiceInfo{Instance: "x", Service: "bad"})
	assert.ErrorIs(t, err, discovery.ErrInvalidService)

	long := make([]byte, discovery.MaxInstanceNameLen+1)
	for i := range long {
		long[i] = 'a'
	}
	err = adv.Advertise(context.Background(), &discovery.ServiceInfo{Instance: string(long), Service: discovery.ServiceTypeUpdate})
	assert.ErrorIs(t, err, discovery.ErrInstanceNameTooLong)

	assert.Empty(t, reg.regs)
}

func TestAdvertiseRegisterError(t *testing.T) {
	boom := errors.New("bind failed")
	adv := discovery.NewAdvertiser(discovery.AdvertiserConfig{Register: (&fakeRegistrar{err: boom}).register})

	err := adv.Advertise(context.Background(), &discovery.ServiceInfo{Instance: "x", Service: discovery.ServiceTypeUpdate, Port: 1})
	assert.ErrorIs(t, err, boom)
	assert.False(t, adv.Advertising(discovery.ServiceTypeUpdate))
}
