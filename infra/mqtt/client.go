// Package mqtt bridges the simulation engine to an MQTT broker: state is
// published after every tick and settings or lifecycle commands are
// accepted on a dedicated topic.
package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/kilianp07/hres/infra/logger"
)

// ErrNotConnected is returned when publishing before Connect succeeded.
var ErrNotConnected = errors.New("mqtt client not connected")

// Config defines the connection parameters for the Paho MQTT client.
// An empty Broker disables the MQTT bridge.
type Config struct {
	Broker      string      `json:"broker"`
	ClientID    string      `json:"client_id"`
	Username    string      `json:"username"`
	Password    string      `json:"password"`
	TopicPrefix string      `json:"topic_prefix"`
	QoS         byte        `json:"qos"`
	RetainState bool        `json:"retain_state"`
	UseTLS      bool        `json:"use_tls"`
	ClientCert  string      `json:"client_cert"`
	ClientKey   string      `json:"client_key"`
	CABundle    string      `json:"ca_bundle"`
	MaxRetries  int         `json:"max_retries"`
	BackoffMS   int         `json:"backoff_ms"`
	TLSConfig   *tls.Config `json:"-"`
}

// Enabled reports whether a broker is configured.
func (c Config) Enabled() bool { return c.Broker != "" }

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "hres-" + uuid.NewString()
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = "hres"
	}
	c.TopicPrefix = strings.TrimSuffix(c.TopicPrefix, "/")
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS <= 0 {
		c.BackoffMS = 100
	}
}

// Validate checks the configuration when the bridge is enabled.
func (c Config) Validate() error {
	if !c.Enabled() {
		return nil
	}
	if c.QoS > 2 {
		return fmt.Errorf("mqtt qos must be 0, 1 or 2, got %d", c.QoS)
	}
	if strings.ContainsAny(c.TopicPrefix, "#+") {
		return fmt.Errorf("mqtt topic_prefix %q must not contain wildcards", c.TopicPrefix)
	}
	if c.UseTLS && c.TLSConfig == nil && (c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "") {
		return errors.New("mqtt tls requires client_cert, client_key and ca_bundle")
	}
	return nil
}

// StateTopic carries the JSON state published after each tick.
func (c Config) StateTopic() string { return c.TopicPrefix + "/state" }

// SettingsTopic receives partial settings and lifecycle commands.
func (c Config) SettingsTopic() string { return c.TopicPrefix + "/settings/set" }

// StatusTopic holds the retained online/offline availability flag.
func (c Config) StatusTopic() string { return c.TopicPrefix + "/status" }

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	opts.SetWill(cfg.StatusTopic(), "offline", cfg.QoS, true)
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	return &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

type route struct {
	topic   string
	handler paho.MessageHandler
}

// Client is a reconnecting Paho client that restores its subscriptions
// and availability flag on every connection.
type Client struct {
	cfg     Config
	cli     pahoClient
	log     logger.Logger
	backoff time.Duration

	mu     sync.Mutex
	routes []route
}

// NewClient connects to the broker described by cfg.
func NewClient(cfg Config) (*Client, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	c := &Client{
		cfg:     cfg,
		log:     logger.New("mqtt_client"),
		backoff: time.Duration(cfg.BackoffMS) * time.Millisecond,
	}
	opts.OnConnect = func(pc paho.Client) { c.onConnect(pc) }
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		c.log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		c.log.Warnf("reconnecting to MQTT broker")
	}
	cli := newMQTTClient(opts)
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.Broker, token.Error())
	}
	c.cli = cli
	return c, nil
}

// Config returns the effective configuration.
func (c *Client) Config() Config { return c.cfg }

func (c *Client) onConnect(pc paho.Client) {
	c.log.Infof("MQTT connected to %s", c.cfg.Broker)
	if token := pc.Publish(c.cfg.StatusTopic(), c.cfg.QoS, true, "online"); token.Wait() && token.Error() != nil {
		c.log.Errorf("publish availability: %v", token.Error())
	}
	c.mu.Lock()
	routes := append([]route(nil), c.routes...)
	c.mu.Unlock()
	for _, r := range routes {
		if token := pc.Subscribe(r.topic, c.cfg.QoS, r.handler); token.Wait() && token.Error() != nil {
			c.log.Errorf("subscribe %s: %v", r.topic, token.Error())
		}
	}
}

// Subscribe registers handler on topic and keeps it across reconnects.
func (c *Client) Subscribe(topic string, handler paho.MessageHandler) error {
	c.mu.Lock()
	c.routes = append(c.routes, route{topic: topic, handler: handler})
	c.mu.Unlock()
	if c.cli == nil || !c.cli.IsConnected() {
		return nil
	}
	token := c.cli.Subscribe(topic, c.cfg.QoS, handler)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	return nil
}

// Publish sends payload on topic, retrying with exponential backoff.
func (c *Client) Publish(topic string, retained bool, payload []byte) error {
	if c.cli == nil {
		return ErrNotConnected
	}
	var err error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		token := c.cli.Publish(topic, c.cfg.QoS, retained, payload)
		token.Wait()
		if err = token.Error(); err == nil {
			return nil
		}
		c.log.Warnf("publish %s attempt %d failed: %v", topic, attempt+1, err)
		if attempt < c.cfg.MaxRetries {
			time.Sleep(c.backoff * time.Duration(1<<attempt))
		}
	}
	return fmt.Errorf("publish %s: %w", topic, err)
}

// Disconnect marks the bridge offline and closes the connection.
func (c *Client) Disconnect() {
	if c.cli == nil || !c.cli.IsConnected() {
		return
	}
	token := c.cli.Publish(c.cfg.StatusTopic(), c.cfg.QoS, true, "offline")
	token.WaitTimeout(time.Second)
	c.cli.Disconnect(250)
}
