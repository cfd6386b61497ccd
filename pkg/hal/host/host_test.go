package host

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRun struct {
	name string
	args []string
}

type fakeRunner struct {
	mu    sync.Mutex
	runs  []recordedRun
	fail  map[string]error // keyed by the nmcli sub-command verb
	block chan struct{}
}

func (f *fakeRunner) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	f.runs = append(f.runs, recordedRun{name: name, args: args})
	block := f.block
	var err error
	for _, a := range args {
		if e, ok := f.fail[a]; ok {
			err = e
			break
		}
	}
	f.mu.Unlock()

	if block != nil && contains(args, "connect") {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return []byte("Error: " + err.Error()), err
	}
	return nil, nil
}

func (f *fakeRunner) commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, r := range f.runs {
		out = append(out, r.name+" "+strings.Join(r.args, " "))
	}
	return out
}

func contains(args []string, s string) bool {
	for _, a := range args {
		if a == s {
			return true
		}
	}
	return false
}

func writeSysfs(t *testing.T, root, iface, file, content string) {
	t.Helper()
	dir := filepath.Join(root, iface)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte(content), 0644))
}

func TestRadioJoinAndAssociate(t *testing.T) {
	root := t.TempDir()
	writeSysfs(t, root, "wlan0", "operstate", "down\n")
	writeSysfs(t, root, "wlan0", "address", "5c:cf:7f:00:be:ef\n")

	runner := &fakeRunner{}
	r := NewRadio(RadioConfig{Interface: "wlan0", SysfsRoot: root, Run: runner.run})
	defer r.Close()

	assert.Equal(t, "5C:CF:7F:00:BE:EF", r.HardwareAddr())
	require.NoError(t, r.Join("home", "hunter22"))

	require.Eventually(t, func() bool { return len(runner.commands()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "nmcli --wait 0 device wifi connect home password hunter22 ifname wlan0", runner.commands()[0])

	// Joined but the link is not up yet.
	time.Sleep(10 * time.Millisecond)
	assert.False(t, r.Associated())

	writeSysfs(t, root, "wlan0", "operstate", "up\n")
	require.Eventually(t, r.Associated, time.Second, 5*time.Millisecond)

	require.NoError(t, r.Disconnect())
	assert.False(t, r.Associated())
	assert.Contains(t, runner.commands(), "nmcli device disconnect wlan0")
}

func TestRadioJoinFailure(t *testing.T) {
	root := t.TempDir()
	writeSysfs(t, root, "wlan0", "operstate", "up\n")

	runner := &fakeRunner{fail: map[string]error{"connect": errors.New("secrets were required")}}
	r := NewRadio(RadioConfig{Interface: "wlan0", SysfsRoot: root, Run: runner.run})
	defer r.Close()

	require.NoError(t, r.Join("home", ""))
	require.Eventually(t, func() bool { return r.JoinErr() != nil }, time.Second, 5*time.Millisecond)
	assert.False(t, r.Associated())
	assert.Contains(t, r.JoinErr().Error(), "secrets were required")
	assert.NotContains(t, runner.commands()[0], "password", "open networks carry no password")
}

func TestRadioDisconnectCancelsPendingJoin(t *testing.T) {
	root := t.TempDir()
	writeSysfs(t, root, "wlan0", "operstate", "up\n")

	runner := &fakeRunner{block: make(chan struct{})}
	r := NewRadio(RadioConfig{Interface: "wlan0", SysfsRoot: root, Run: runner.run})

	require.NoError(t, r.Join("home", "pw"))
	require.NoError(t, r.Disconnect())
	require.NoError(t, r.Close())

	assert.False(t, r.Associated())
	assert.NoError(t, r.JoinErr(), "a cancelled join does not report its error")
}

func TestRadioJoinRequiresName(t *testing.T) {
	r := NewRadio(RadioConfig{Interface: "wlan0", Run: (&fakeRunner{}).run})
	assert.Error(t, r.Join("", "pw"))
}

func TestRadioStartAccessPoint(t *testing.T) {
	runner := &fakeRunner{}
	r := NewRadio(RadioConfig{Interface: "wlan0", SysfsRoot: t.TempDir(), Run: runner.run})

	require.NoError(t, r.StartAccessPoint("PIZZA BUTTON WIFI"))
	cmds := runner.commands()
	require.Len(t, cmds, 3)
	assert.Equal(t, "nmcli connection delete "+AccessPointConnection, cmds[0])
	assert.Contains(t, cmds[1], "ssid PIZZA BUTTON WIFI 802-11-wireless.mode ap ipv4.method shared")
	assert.Equal(t, "nmcli connection up "+AccessPointConnection, cmds[2])

	failing := &fakeRunner{fail: map[string]error{"up": errors.New("no device")}}
	r = NewRadio(RadioConfig{Interface: "wlan0", Run: failing.run})
	assert.Error(t, r.StartAccessPoint("PIZZA BUTTON WIFI"))
}

func TestIIOSupply(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in_voltage0_raw")
	require.NoError(t, os.WriteFile(path, []byte("3912\n"), 0644))

	v, err := NewIIOSupply(path, 0.001).Voltage()
	require.NoError(t, err)
	assert.InDelta(t, 3.912, v, 1e-9)

	require.NoError(t, os.WriteFile(path, []byte("n/a"), 0644))
	_, err = NewIIOSupply(path, 0.001).Voltage()
	assert.Error(t, err)

	_, err = NewIIOSupply(filepath.Join(t.TempDir(), "absent"), 1).Voltage()
	assert.Error(t, err)
}

func TestReadBootInfo(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sys/kernel/random"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sys/kernel/random/boot_id"), []byte("abcd-1234\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sys/kernel/osrelease"), []byte("6.6.31\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "uptime"), []byte("12.34 40.00\n"), 0644))

	info := ReadBootInfo(root)
	assert.Equal(t, BootInfo{BootID: "abcd-1234", Kernel: "6.6.31", Uptime: "12.34s"}, info)

	assert.Equal(t, BootInfo{}, ReadBootInfo(filepath.Join(root, "missing")))
}
