package mqtt

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"math/big"
	"os"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publishCall struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// mockClient implements pahoClient and paho.Client for tests.
type mockClient struct {
	mu          sync.Mutex
	opts        *paho.ClientOptions
	connected   bool
	subscribed  map[string]paho.MessageHandler
	published   []publishCall
	publishErrs []error
}

func newMockClient() *mockClient {
	return &mockClient{subscribed: map[string]paho.MessageHandler{}}
}

func installMock(t *testing.T, mc *mockClient) {
	t.Helper()
	prev := newMQTTClient
	newMQTTClient = func(o *paho.ClientOptions) pahoClient { mc.opts = o; return mc }
	t.Cleanup(func() { newMQTTClient = prev })
}

func (m *mockClient) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *mockClient) Connect() paho.Token {
	m.mu.Lock()
	m.connected = true
	m.mu.Unlock()
	if m.opts != nil && m.opts.OnConnect != nil {
		m.opts.OnConnect(m)
	}
	return &dummyToken{}
}

func (m *mockClient) Disconnect(uint) {
	m.mu.Lock()
	m.connected = false
	m.mu.Unlock()
}

func (m *mockClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	var b []byte
	switch p := payload.(type) {
	case []byte:
		b = p
	case string:
		b = []byte(p)
	}
	m.published = append(m.published, publishCall{topic: topic, qos: qos, retained: retained, payload: b})
	if len(m.publishErrs) > 0 {
		err := m.publishErrs[0]
		m.publishErrs = m.publishErrs[1:]
		return &dummyToken{err: err}
	}
	return &dummyToken{}
}

func (m *mockClient) Subscribe(topic string, _ byte, h paho.MessageHandler) paho.Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribed[topic] = h
	return &dummyToken{}
}

func (m *mockClient) SubscribeMultiple(map[string]byte, paho.MessageHandler) paho.Token {
	return &dummyToken{}
}
func (m *mockClient) Unsubscribe(...string) paho.Token        { return &dummyToken{} }
func (m *mockClient) AddRoute(string, paho.MessageHandler)    {}
func (m *mockClient) OptionsReader() paho.ClientOptionsReader { return paho.ClientOptionsReader{} }
func (m *mockClient) IsConnectionOpen() bool                  { return m.IsConnected() }

func (m *mockClient) publishes() []publishCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]publishCall(nil), m.published...)
}

func (m *mockClient) handler(topic string) paho.MessageHandler {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.subscribed[topic]
}

type dummyToken struct{ err error }

func (d dummyToken) Wait() bool                     { return true }
func (d dummyToken) WaitTimeout(time.Duration) bool { return true }
func (d dummyToken) Done() <-chan struct{}          { ch := make(chan struct{}); close(ch); return ch }
func (d dummyToken) Error() error                   { return d.err }

type mockMessage struct {
	topic string
	p     []byte
}

func (m mockMessage) Duplicate() bool   { return false }
func (m mockMessage) Qos() byte         { return 0 }
func (m mockMessage) Retained() bool    { return false }
func (m mockMessage) Topic() string     { return m.topic }
func (m mockMessage) MessageID() uint16 { return 0 }
func (m mockMessage) Payload() []byte   { return m.p }
func (m mockMessage) Ack()              {}

// helper to generate self-signed cert
func generateCert(t *testing.T) (certFile, keyFile, caFile string) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	tmpl := x509.Certificate{SerialNumber: big.NewInt(1), Subject: pkix.Name{CommonName: "test"}, NotBefore: time.Now(), NotAfter: time.Now().Add(time.Hour)}
	der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &priv.PublicKey, priv)
	require.NoError(t, err)
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)})

	dir := t.TempDir()
	certFile = dir + "/cert.pem"
	keyFile = dir + "/key.pem"
	caFile = dir + "/ca.pem"
	require.NoError(t, os.WriteFile(certFile, certPEM, 0o600))
	require.NoError(t, os.WriteFile(keyFile, keyPEM, 0o600))
	require.NoError(t, os.WriteFile(caFile, certPEM, 0o600))
	return
}

func TestLoadTLSConfig(t *testing.T) {
	cert, key, ca := generateCert(t)
	cfg := Config{UseTLS: true, ClientCert: cert, ClientKey: key, CABundle: ca}
	tlsCfg, err := cfg.LoadTLSConfig()
	require.NoError(t, err)
	assert.NotEmpty(t, tlsCfg.Certificates)
	assert.NotNil(t, tlsCfg.RootCAs)

	_, err = Config{UseTLS: true}.LoadTLSConfig()
	assert.Error(t, err)
}

func TestConfigDefaultsAndTopics(t *testing.T) {
	cfg := Config{Broker: "tcp://localhost:1883", TopicPrefix: "site/a/"}
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
	assert.Contains(t, cfg.ClientID, "hres-")
	assert.Equal(t, "site/a/state", cfg.StateTopic())
	assert.Equal(t, "site/a/settings/set", cfg.SettingsTopic())
	assert.Equal(t, "site/a/status", cfg.StatusTopic())

	assert.Error(t, Config{Broker: "x", QoS: 3}.Validate())
	assert.Error(t, Config{Broker: "x", TopicPrefix: "a/#"}.Validate())
	assert.Error(t, Config{Broker: "x", UseTLS: true}.Validate())
	assert.NoError(t, Config{QoS: 9}.Validate(), "disabled bridge is not validated")
}

func TestNewClientOptions(t *testing.T) {
	cfg := Config{Broker: "tcp://localhost:1883", ClientID: "id", Username: "u", Password: "p", TopicPrefix: "hres", QoS: 1}
	opts, err := NewClientOptions(cfg)
	require.NoError(t, err)
	assert.Equal(t, "u", opts.Username)
	assert.Equal(t, "p", opts.Password)
	assert.True(t, opts.WillEnabled)
	assert.Equal(t, "hres/status", opts.WillTopic)
	assert.Equal(t, "offline", string(opts.WillPayload))
	assert.True(t, opts.WillRetained)
}

func TestClientPublishesAvailabilityAndRestoresRoutes(t *testing.T) {
	mc := newMockClient()
	installMock(t, mc)
	cli, err := NewClient(Config{Broker: "tcp://localhost:1883", QoS: 1})
	require.NoError(t, err)

	pubs := mc.publishes()
	require.Len(t, pubs, 1)
	assert.Equal(t, "hres/status", pubs[0].topic)
	assert.Equal(t, "online", string(pubs[0].payload))
	assert.True(t, pubs[0].retained)

	called := false
	require.NoError(t, cli.Subscribe("hres/settings/set", func(paho.Client, paho.Message) { called = true }))
	require.NotNil(t, mc.handler("hres/settings/set"))

	mc.subscribed = map[string]paho.MessageHandler{}
	mc.opts.OnConnect(mc)
	h := mc.handler("hres/settings/set")
	require.NotNil(t, h, "route restored on reconnect")
	h(mc, mockMessage{})
	assert.True(t, called)

	cli.Disconnect()
	pubs = mc.publishes()
	assert.Equal(t, "offline", string(pubs[len(pubs)-1].payload))
	assert.False(t, mc.IsConnected())
}

func TestClientPublishRetries(t *testing.T) {
	mc := newMockClient()
	installMock(t, mc)
	cli, err := NewClient(Config{Broker: "tcp://localhost:1883", MaxRetries: 2, BackoffMS: 1})
	require.NoError(t, err)

	mc.mu.Lock()
	mc.publishErrs = []error{errors.New("net fail"), nil}
	mc.mu.Unlock()
	before := len(mc.publishes())
	require.NoError(t, cli.Publish("t", false, []byte("x")))
	assert.Len(t, mc.publishes(), before+2)

	mc.mu.Lock()
	mc.publishErrs = []error{errors.New("a"), errors.New("b"), errors.New("c")}
	mc.mu.Unlock()
	assert.Error(t, cli.Publish("t", false, []byte("x")))
}

func TestClientConnectError(t *testing.T) {
	prev := newMQTTClient
	defer func() { newMQTTClient = prev }()
	newMQTTClient = func(*paho.ClientOptions) pahoClient { return failingClient{} }
	_, err := NewClient(Config{Broker: "tcp://localhost:1883"})
	assert.Error(t, err)
}

type failingClient struct{ *mockClient }

func (failingClient) Connect() paho.Token { return &dummyToken{err: errors.New("refused")} }

func TestPublishWithoutConnection(t *testing.T) {
	var c Client
	assert.ErrorIs(t, c.Publish("t", false, nil), ErrNotConnected)
}
