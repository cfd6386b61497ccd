package diag

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTT sink defaults.
const (
	DefaultMQTTTopic          = "pizza-button/log"
	DefaultMQTTClientID       = "pizza-button"
	DefaultMQTTPublishTimeout = 2 * time.Second
)

// ErrNoBroker is returned when an MQTT sink is configured without a broker.
var ErrNoBroker = errors.New("mqtt broker not configured")

// MQTTConfig configures an MQTTSink.
type MQTTConfig struct {
	// Broker is the broker URL, e.g. "tcp://192.168.1.10:1883".
	Broker   string
	ClientID string
	Topic    string
	QoS      byte

	Queue          int
	PublishTimeout time.Duration

	Logger *slog.Logger
}

// DefaultMQTTConfig returns the default MQTT sink configuration without a
// broker.
func DefaultMQTTConfig() MQTTConfig {
	return MQTTConfig{
		ClientID:       DefaultMQTTClientID,
		Topic:          DefaultMQTTTopic,
		Queue:          DefaultQueue,
		PublishTimeout: DefaultMQTTPublishTimeout,
	}
}

// MQTTSink publishes log lines to a topic.
type MQTTSink struct {
	client mqtt.Client
	config MQTTConfig

	mu      sync.Mutex
	started bool
	closed  bool
	dropped int

	lines chan []byte
	done  chan struct{}
	wg    sync.WaitGroup
}

// NewMQTTSink creates a sink backed by a paho client. The broker is not
// contacted until Start.
func NewMQTTSink(config MQTTConfig) (*MQTTSink, error) {
	if config.Broker == "" {
		return nil, ErrNoBroker
	}
	config = withMQTTDefaults(config)

	s := &MQTTSink{config: config}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(config.ClientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.SetConnectTimeout(5 * time.Second)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		s.debugLog("mqtt log sink connected", "broker", config.Broker)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		s.debugLog("mqtt log sink connection lost", "error", err)
	})

	s.init(mqtt.NewClient(opts))
	return s, nil
}

func newMQTTSinkWithClient(client mqtt.Client, config MQTTConfig) *MQTTSink {
	s := &MQTTSink{config: withMQTTDefaults(config)}
	s.init(client)
	return s
}

func withMQTTDefaults(config MQTTConfig) MQTTConfig {
	if config.ClientID == "" {
		config.ClientID = DefaultMQTTClientID
	}
	if config.Topic == "" {
		config.Topic = DefaultMQTTTopic
	}
	if config.Queue <= 0 {
		config.Queue = DefaultQueue
	}
	if config.PublishTimeout <= 0 {
		config.PublishTimeout = DefaultMQTTPublishTimeout
	}
	return config
}

func (s *MQTTSink) init(client mqtt.Client) {
	s.client = client
	s.lines = make(chan []byte, s.config.Queue)
	s.done = make(chan struct{})
}

// Start begins connecting in the background and starts the publisher.
// It does not wait for the broker.
func (s *MQTTSink) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrServerClosed
	}
	if s.started {
		return nil
	}
	s.started = true

	// With ConnectRetry the token only completes once connected or closed.
	s.client.Connect()

	s.wg.Add(1)
	go s.publishLoop()
	return nil
}

// Offer queues a line while the client is connected.
func (s *MQTTSink) Offer(line []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started || s.closed || !s.client.IsConnected() {
		return false
	}
	select {
	case s.lines <- line:
		return true
	default:
		s.dropped++
		return false
	}
}

// Dropped returns how many lines were discarded.
func (s *MQTTSink) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Close stops publishing and disconnects.
func (s *MQTTSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	started := s.started
	close(s.done)
	s.mu.Unlock()

	s.wg.Wait()
	if started {
		s.client.Disconnect(250)
	}
	return nil
}

func (s *MQTTSink) publishLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case line := <-s.lines:
			if err := s.publish(line); err != nil {
				s.mu.Lock()
				s.dropped++
				s.mu.Unlock()
			}
		}
	}
}

func (s *MQTTSink) publish(line []byte) error {
	token := s.client.Publish(s.config.Topic, s.config.QoS, false, line)
	if !token.WaitTimeout(s.config.PublishTimeout) {
		return fmt.Errorf("publish timeout for topic %s", s.config.Topic)
	}
	return token.Error()
}

// debugLog writes to the configured logger, which must not route back into
// this sink.
func (s *MQTTSink) debugLog(msg string, args ...any) {
	if s.config.Logger != nil {
		s.config.Logger.Debug(msg, args...)
	}
}

var _ Sink = (*MQTTSink)(nil)
