package diag

import (
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeToken struct {
	err  error
	done chan struct{}
}

func newFakeToken(err error) *fakeToken {
	t := &fakeToken{err: err, done: make(chan struct{})}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

// fakeClient implements the parts of mqtt.Client the sink uses.
type fakeClient struct {
	mqtt.Client

	mu          sync.Mutex
	connected   bool
	connects    int
	disconnects int
	publishErr  error
	published   []string
	topics      []string
}

func (c *fakeClient) Connect() mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connects++
	return newFakeToken(nil)
}

func (c *fakeClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeClient) Disconnect(uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnects++
	c.connected = false
}

func (c *fakeClient) Publish(topic string, _ byte, _ bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.topics = append(c.topics, topic)
	c.published = append(c.published, string(payload.([]byte)))
	return newFakeToken(c.publishErr)
}

func (c *fakeClient) setConnected(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = v
}

func (c *fakeClient) publishedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.published)
}

func TestMQTTSinkPublishes(t *testing.T) {
	client := &fakeClient{}
	s := newMQTTSinkWithClient(client, MQTTConfig{Topic: "pizza/log"})

	assert.False(t, s.Offer([]byte("before start\n")))
	require.NoError(t, s.Start())
	require.NoError(t, s.Start())
	assert.Equal(t, 1, client.connects)

	assert.False(t, s.Offer([]byte("not connected\n")))

	client.setConnected(true)
	require.True(t, s.Offer([]byte("EVENT: hello\n")))
	require.Eventually(t, func() bool { return client.publishedCount() == 1 }, time.Second, 5*time.Millisecond)

	client.mu.Lock()
	assert.Equal(t, []string{"EVENT: hello\n"}, client.published)
	assert.Equal(t, []string{"pizza/log"}, client.topics)
	client.mu.Unlock()

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, 1, client.disconnects)
	assert.False(t, s.Offer([]byte("closed\n")))
}

func TestMQTTSinkCountsPublishFailures(t *testing.T) {
	client := &fakeClient{connected: true, publishErr: errors.New("broker gone")}
	s := newMQTTSinkWithClient(client, MQTTConfig{})
	require.NoError(t, s.Start())
	defer s.Close()

	require.True(t, s.Offer([]byte("ERROR: x\n")))
	require.Eventually(t, func() bool { return s.Dropped() == 1 }, time.Second, 5*time.Millisecond)

	client.mu.Lock()
	assert.Equal(t, []string{DefaultMQTTTopic}, client.topics)
	client.mu.Unlock()
}

func TestMQTTSinkCloseWithoutStart(t *testing.T) {
	client := &fakeClient{}
	s := newMQTTSinkWithClient(client, MQTTConfig{})
	require.NoError(t, s.Close())
	assert.Equal(t, 0, client.disconnects)
	assert.ErrorIs(t, s.Start(), ErrServerClosed)
}

func TestNewMQTTSinkRequiresBroker(t *testing.T) {
	_, err := NewMQTTSink(DefaultMQTTConfig())
	assert.ErrorIs(t, err, ErrNoBroker)

	cfg := DefaultMQTTConfig()
	cfg.Broker = "tcp://127.0.0.1:1883"
	s, err := NewMQTTSink(cfg)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}
