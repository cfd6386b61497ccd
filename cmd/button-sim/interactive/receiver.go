package interactive

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/credentials"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/message"
)

// maxBody bounds a status report.
const maxBody = 4096

// Receiver is a stand-in for the kitchen app. It accepts status reports,
// answers with a configurable HTTP status and, for reports sent from the
// provisioning network, with a configurable credential reply.
type Receiver struct {
	mu       sync.Mutex
	status   int
	reply    credentials.Credentials
	received []message.Message
	logger   *slog.Logger
}

// NewReceiver returns a receiver that accepts every report.
func NewReceiver() *Receiver {
	return &Receiver{
		status: http.StatusOK,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// SetLogger sets where reports are logged.
func (r *Receiver) SetLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// SetStatus changes the status returned for every report.
func (r *Receiver) SetStatus(status int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = status
}

// Status returns the configured status.
func (r *Receiver) Status() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// SetReply sets the credentials handed to a device in provisioning mode.
// Empty credentials disable the reply.
func (r *Receiver) SetReply(c credentials.Credentials) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reply = c
}

// Received returns the reports received so far.
func (r *Receiver) Received() []message.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]message.Message(nil), r.received...)
}

// ServeHTTP implements http.Handler.
func (r *Receiver) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	r.mu.Lock()
	logger := r.logger
	r.mu.Unlock()

	var msg message.Message
	if err := json.NewDecoder(io.LimitReader(req.Body, maxBody)).Decode(&msg); err != nil {
		logger.Warn("receiver: bad report", "remote", req.RemoteAddr, "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	r.mu.Lock()
	r.received = append(r.received, msg)
	status, reply := r.status, r.reply
	r.mu.Unlock()

	logger.Info("receiver: report",
		"mac", msg.DeviceID,
		"main", msg.Main,
		"voltage", msg.Voltage,
		"setup_mode", msg.Provisioning,
		"status", status)

	if status != http.StatusOK || !msg.Provisioning || reply.Empty() {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"ssid":     reply.NetworkName,
		"password": reply.NetworkSecret,
	})
}

var _ http.Handler = (*Receiver)(nil)
