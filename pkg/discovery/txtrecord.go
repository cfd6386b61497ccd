package discovery

import (
	"fmt"
	"sort"
	"strings"
)

// TXT holds the key/value pairs of a DNS-SD TXT record.
type TXT map[string]string

// ParseTXT reads "key=value" strings as zeroconf reports them. A bare key
// maps to the empty string; empty strings are skipped.
func ParseTXT(strs []string) TXT {
	txt := make(TXT, len(strs))
	for _, s := range strs {
		if s == "" {
			continue
		}
		k, v, _ := strings.Cut(s, "=")
		txt[k] = v
	}
	return txt
}

// Strings returns the record as "key=value" strings sorted by key.
func (t TXT) Strings() []string {
	out := make([]string, 0, len(t))
	for k, v := range t {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

// Path returns the request path a receiver advertises, "/" when it
// advertises none.
func (t TXT) Path() (string, error) {
	p := t[TXTKeyPath]
	switch {
	case p == "":
		return "/", nil
	case p[0] != '/', strings.ContainsAny(p, " \t\r\n"):
		return "", fmt.Errorf("%w: path %q", ErrInvalidTXTRecord, p)
	}
	return p, nil
}

// txtFor builds the record advertised for info.
func txtFor(info *ServiceInfo) TXT {
	txt := TXT{}
	if info.Firmware != "" {
		txt[TXTKeyFirmware] = info.Firmware
	}
	if info.MAC != "" {
		txt[TXTKeyMAC] = info.MAC
	}
	return txt
}

// ValidateInstanceName checks that name fits one DNS label.
func ValidateInstanceName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty", ErrInvalidInstanceName)
	case len(name) > MaxInstanceNameLen:
		return fmt.Errorf("%w: %d bytes", ErrInstanceNameTooLong, len(name))
	}
	return nil
}

// ValidateServiceType checks a "_name._proto" service type.
func ValidateServiceType(service string) error {
	name, proto, ok := strings.Cut(service, ".")
	if !ok || len(name) < 2 || name[0] != '_' || (proto != "_tcp" && proto != "_udp") {
		return fmt.Errorf("%w: %q", ErrInvalidService, service)
	}
	return nil
}
