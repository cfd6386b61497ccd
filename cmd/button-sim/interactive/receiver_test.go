package interactive

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/credentials"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/message"
)

func post(t *testing.T, r *Receiver, m message.Message) *httptest.ResponseRecorder {
	t.Helper()
	body, err := m.Encode()
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(string(body))))
	return rec
}

func TestReceiverAcceptsReport(t *testing.T) {
	r := NewReceiver()
	m := message.New(message.Buttons{Main: true}, 3.8, "1.0", "AA:BB", false)

	rec := post(t, r, m)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, []message.Message{m}, r.Received())
}

func TestReceiverReplyOnlyInSetupMode(t *testing.T) {
	kitchen := credentials.Credentials{NetworkName: "kitchen", NetworkSecret: "secret"}

	tests := []struct {
		name         string
		status       int
		provisioning bool
		wantReply    bool
	}{
		{"setup mode", http.StatusOK, true, true},
		{"normal mode", http.StatusOK, false, false},
		{"setup mode rejected", http.StatusServiceUnavailable, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReceiver()
			r.SetReply(kitchen)
			r.SetStatus(tt.status)

			rec := post(t, r, message.New(message.Buttons{}, 3.8, "1.0", "AA:BB", tt.provisioning))
			assert.Equal(t, tt.status, rec.Code)

			got, err := message.ParseReply(rec.Body.Bytes())
			if tt.wantReply {
				require.NoError(t, err)
				assert.Equal(t, kitchen, got)
			} else {
				assert.ErrorIs(t, err, message.ErrReplyParse)
			}
		})
	}
}

func TestReceiverRejectsBadRequests(t *testing.T) {
	r := NewReceiver()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{pizza")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Empty(t, r.Received())
}
