package mqtt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anhkiet307/swapstation/core/model"
	coremon "github.com/anhkiet307/swapstation/core/monitoring"
	"github.com/anhkiet307/swapstation/infra/logger"
)

type published struct {
	topic   string
	qos     byte
	retain  bool
	payload []byte
}

// mockClient implements pahoClient for tests
type mockClient struct {
	mu          sync.Mutex
	opts        *paho.ClientOptions
	published   []published
	publishErrs []error
	connectErr  error
}

func (m *mockClient) IsConnected() bool { return true }
func (m *mockClient) Connect() paho.Token {
	return &dummyToken{err: m.connectErr}
}
func (m *mockClient) Disconnect(uint) {}
func (m *mockClient) Publish(topic string, qos byte, retain bool, payload interface{}) paho.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, _ := payload.([]byte)
	m.published = append(m.published, published{topic, qos, retain, b})
	if len(m.publishErrs) > 0 {
		err := m.publishErrs[0]
		m.publishErrs = m.publishErrs[1:]
		return &dummyToken{err: err}
	}
	return &dummyToken{}
}

type dummyToken struct{ err error }

func (d dummyToken) Wait() bool                     { return true }
func (d dummyToken) WaitTimeout(time.Duration) bool { return true }
func (d dummyToken) Done() <-chan struct{}          { ch := make(chan struct{}); close(ch); return ch }
func (d dummyToken) Error() error                   { return d.err }

func withMockClient(t *testing.T, mc *mockClient) {
	t.Helper()
	orig := newMQTTClient
	newMQTTClient = func(o *paho.ClientOptions) pahoClient { mc.opts = o; return mc }
	t.Cleanup(func() { newMQTTClient = orig })
}

type recordMonitor struct {
	err  error
	tags map[string]string
}

func (r *recordMonitor) CaptureException(err error, tags map[string]string) {
	r.err = err
	r.tags = tags
}
func (r *recordMonitor) Recover()            {}
func (r *recordMonitor) Flush(time.Duration) {}

func testSlot(id, station int64) model.PinSlot {
	return model.PinSlot{ID: id, StationID: station, ChargePercent: 60, HealthPercent: 22, Status: model.SlotActive, Version: 2}
}

func TestNotifySlots_TopicPayloadQoS(t *testing.T) {
	mc := &mockClient{}
	withMockClient(t, mc)
	n, err := NewPahoNotifier(Config{Broker: "tcp://localhost:1883", QoS: 1, Retain: true}, logger.NopLogger{})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(mc.opts.ClientID, "swapstation-"))

	require.NoError(t, n.NotifySlots(context.Background(), testSlot(139, 3), testSlot(140, 3)))
	require.Len(t, mc.published, 2)
	p := mc.published[0]
	assert.Equal(t, "swapstation/stations/3/slots/139/state", p.topic)
	assert.Equal(t, byte(1), p.qos)
	assert.True(t, p.retain)
	var st SlotState
	require.NoError(t, json.Unmarshal(p.payload, &st))
	assert.Equal(t, int64(139), st.SlotID)
	assert.Equal(t, 60.0, st.ChargePercent)
	assert.Equal(t, int64(2), st.Version)
	assert.Equal(t, "swapstation/stations/3/slots/140/state", mc.published[1].topic)
}

func TestNotifySlots_CustomPrefix(t *testing.T) {
	mc := &mockClient{}
	withMockClient(t, mc)
	n, err := NewPahoNotifier(Config{Broker: "tcp://localhost:1883", ClientID: "id", TopicPrefix: "hcm/q1"}, logger.NopLogger{})
	require.NoError(t, err)
	require.NoError(t, n.NotifySlots(context.Background(), testSlot(5, 9)))
	assert.Equal(t, "hcm/q1/9/slots/5/state", mc.published[0].topic)
	assert.Equal(t, "id", mc.opts.ClientID)
}

func TestLWTConfigured(t *testing.T) {
	mc := &mockClient{}
	withMockClient(t, mc)
	n, err := NewPahoNotifier(Config{Broker: "tcp://localhost:1883", ClientID: "id", LWTTopic: "lwt", LWTPayload: "bye", LWTQoS: 1}, logger.NopLogger{})
	require.NoError(t, err)
	if !mc.opts.WillEnabled {
		t.Fatalf("will not enabled")
	}
	if mc.opts.WillTopic != "lwt" || string(mc.opts.WillPayload) != "bye" {
		t.Fatalf("will options incorrect")
	}
	n.Disconnect()
	if len(mc.published) != 0 {
		t.Fatalf("unexpected publish on disconnect")
	}
}

func TestRetryLogic(t *testing.T) {
	mc := &mockClient{publishErrs: []error{fmt.Errorf("net fail"), nil}}
	withMockClient(t, mc)
	n, err := NewPahoNotifier(Config{Broker: "tcp://localhost:1883", ClientID: "id", MaxRetries: 1, BackoffMS: 1}, logger.NopLogger{})
	require.NoError(t, err)
	require.NoError(t, n.NotifySlots(context.Background(), testSlot(1, 1)))
	if len(mc.published) != 2 {
		t.Fatalf("expected retries")
	}
}

func TestNotifyErrorCaptured(t *testing.T) {
	fail := fmt.Errorf("net fail")
	mc := &mockClient{publishErrs: []error{fail, fail}}
	withMockClient(t, mc)
	mon := &recordMonitor{}
	coremon.Init(mon)
	t.Cleanup(func() { coremon.Init(coremon.NopMonitor{}) })

	n, err := NewPahoNotifier(Config{Broker: "tcp://localhost:1883", ClientID: "id", MaxRetries: 1, BackoffMS: 1}, logger.NopLogger{})
	require.NoError(t, err)
	err = n.NotifySlots(context.Background(), testSlot(7, 2), testSlot(8, 2))
	require.Error(t, err)
	assert.ErrorIs(t, err, fail)
	// slot 8 is published after slot 7 exhausted its retries
	assert.Len(t, mc.published, 3)
	require.NotNil(t, mon.err)
	assert.Equal(t, "mqtt", mon.tags["module"])
	assert.Equal(t, "7", mon.tags["slot_id"])
}

func TestNotifyStopsOnCanceledContext(t *testing.T) {
	fail := errors.New("net fail")
	mc := &mockClient{publishErrs: []error{fail, fail, fail, fail}}
	withMockClient(t, mc)
	n, err := NewPahoNotifier(Config{Broker: "tcp://localhost:1883", ClientID: "id", MaxRetries: 3, BackoffMS: 1000}, logger.NopLogger{})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	err = n.NotifySlots(ctx, testSlot(1, 1))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Len(t, mc.published, 1)
}

func TestNewPahoNotifierConnectError(t *testing.T) {
	mc := &mockClient{connectErr: errors.New("refused")}
	withMockClient(t, mc)
	_, err := NewPahoNotifier(Config{Broker: "tcp://localhost:1883"}, logger.NopLogger{})
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, Config{}.Validate())
	assert.NoError(t, Config{Broker: "tcp://b:1883", QoS: 2}.Validate())
	assert.Error(t, Config{Broker: "tcp://b:1883", QoS: 3}.Validate())
	assert.Error(t, Config{Broker: "tcp://b:1883", MaxRetries: -1}.Validate())
	assert.Error(t, Config{Broker: "tcp://b:1883", AuthMethod: "kerberos"}.Validate())
}

func TestMockNotifier(t *testing.T) {
	m := NewMockNotifier()
	require.NoError(t, m.NotifySlots(context.Background(), testSlot(1, 4)))
	s, ok := m.Get("swapstation/stations/4/slots/1/state")
	require.True(t, ok)
	assert.Equal(t, int64(1), s.ID)
	m.FailIDs[2] = true
	assert.Error(t, m.NotifySlots(context.Background(), testSlot(2, 4)))
}
