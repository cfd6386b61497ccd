package message

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/credentials"
)

func TestClampVoltage(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"InRange", 3.7, 3.7},
		{"Low", 2.1, MinVoltage},
		{"Zero", 0, MinVoltage},
		{"Negative", -5, MinVoltage},
		{"High", 5.0, MaxVoltage},
		{"LowerBound", MinVoltage, MinVoltage},
		{"UpperBound", MaxVoltage, MaxVoltage},
		{"Inf", math.Inf(1), MaxVoltage},
		{"NaN", math.NaN(), MinVoltage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClampVoltage(tt.in))
		})
	}
}

func TestNewClamps(t *testing.T) {
	m := New(Buttons{Main: true}, 4.9, "1.0", "AA:BB", false)
	assert.Equal(t, MaxVoltage, m.Voltage)
	assert.True(t, m.Main)
	assert.False(t, m.Left)
	assert.False(t, m.Provisioning)
}

func TestEncode(t *testing.T) {
	m := New(Buttons{Main: true}, 3.95, "1.0", "5C:CF:7F:00:BE:EF", true)
	data, err := m.Encode()
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"main": true,
		"left": false,
		"right": false,
		"voltage": 3.95,
		"button-software-version-device": "1.0",
		"mac": "5C:CF:7F:00:BE:EF",
		"setup-mode": true
	}`, string(data))
}

func TestParseReply(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    credentials.Credentials
		wantErr bool
	}{
		{"Credentials", `{"ssid":"home","password":"pw"}`, credentials.Credentials{NetworkName: "home", NetworkSecret: "pw"}, false},
		{"OpenNetwork", `{"ssid":"cafe"}`, credentials.Credentials{NetworkName: "cafe"}, false},
		{"ExtraFields", `{"ssid":"a","password":"b","ok":true}`, credentials.Credentials{NetworkName: "a", NetworkSecret: "b"}, false},
		{"Empty", ``, credentials.Credentials{}, true},
		{"PlainText", `OK`, credentials.Credentials{}, true},
		{"NoSSID", `{"status":"ordered"}`, credentials.Credentials{}, true},
		{"EmptySSID", `{"ssid":"","password":"x"}`, credentials.Credentials{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseReply([]byte(tt.body))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrReplyParse)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
