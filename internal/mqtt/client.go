package mqtt

import (
	"context"
	"net"
	"net/url"
	"path"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/tphakala/epaper-weather/internal/errors"
	"github.com/tphakala/epaper-weather/internal/logger"
	"github.com/tphakala/epaper-weather/internal/observability/metrics"
)

// ErrNotConnected is returned by Publish before Connect succeeded or while
// the connection is down.
var ErrNotConnected = errors.NewStd("not connected to MQTT broker")

// client implements the Client interface on top of paho. Lost connections
// are re-established by paho's auto reconnect.
type client struct {
	config          Config
	internalClient  paho.Client
	lastConnAttempt time.Time
	mu              sync.Mutex
	metrics         *metrics.MQTTMetrics
	log             logger.Logger
}

// NewClient creates a new MQTT client. An empty client ID gets a random
// suffix so two displays never kick each other off the broker.
func NewClient(cfg Config, m *metrics.MQTTMetrics) Client {
	if cfg.ClientID == "" {
		cfg.ClientID = "epaper-weather-" + uuid.NewString()[:8]
	}
	return &client{
		config:  cfg,
		metrics: m,
		log:     logger.Global().Module("mqtt"),
	}
}

// Connect resolves the broker host and connects.
func (c *client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if since := time.Since(c.lastConnAttempt); since < c.config.ReconnectCooldown {
		return errors.Newf("connection attempt too recent, last attempt was %v ago", since).
			Component("mqtt").
			Category(errors.CategoryNetwork).
			Build()
	}
	c.lastConnAttempt = time.Now()

	u, err := url.Parse(c.config.Broker)
	if err != nil || u.Host == "" {
		if err == nil {
			err = errors.NewStd("missing host")
		}
		return errors.New(err).
			Component("mqtt").
			Category(errors.CategoryConfiguration).
			Context("broker", c.config.Broker).
			Build()
	}

	host := u.Hostname()
	if net.ParseIP(host) == nil {
		if _, err := net.DefaultResolver.LookupHost(ctx, host); err != nil {
			c.metrics.RecordError(metrics.MQTTOpResolve)
			return errors.New(err).
				Component("mqtt").
				Category(errors.CategoryNetwork).
				Context("broker_host", host).
				Build()
		}
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(c.config.Broker)
	opts.SetClientID(c.config.ClientID)
	opts.SetUsername(c.config.Username)
	opts.SetPassword(c.config.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(c.config.ConnectTimeout)
	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(c.onConnectionLost)
	opts.SetReconnectingHandler(c.onReconnecting)

	c.internalClient = paho.NewClient(opts)

	token := c.internalClient.Connect()
	if !token.WaitTimeout(c.config.ConnectTimeout) {
		c.metrics.RecordError(metrics.MQTTOpConnect)
		return errors.Newf("connection timeout after %s", c.config.ConnectTimeout).
			Component("mqtt").
			Category(errors.CategoryTimeout).
			Context("broker", c.config.Broker).
			Build()
	}
	if err := token.Error(); err != nil {
		c.metrics.RecordError(metrics.MQTTOpConnect)
		return errors.New(err).
			Component("mqtt").
			Category(errors.CategoryNetwork).
			Context("broker", c.config.Broker).
			Build()
	}

	c.metrics.UpdateConnectionStatus(true)
	return nil
}

// Publish sends payload with QoS 0.
func (c *client) Publish(ctx context.Context, topic string, payload []byte, retain bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.IsConnected() {
		return ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	token := c.internalClient.Publish(topic, 0, retain, payload)
	if !token.WaitTimeout(c.config.PublishTimeout) {
		c.metrics.RecordPublish(path.Base(topic), metrics.StatusError, 0, 0)
		return errors.Newf("publish timeout after %s", c.config.PublishTimeout).
			Component("mqtt").
			Category(errors.CategoryTimeout).
			Context("topic", topic).
			Build()
	}
	if err := token.Error(); err != nil {
		c.metrics.RecordPublish(path.Base(topic), metrics.StatusError, 0, 0)
		return errors.New(err).
			Component("mqtt").
			Category(errors.CategoryMQTTPublish).
			Context("topic", topic).
			Build()
	}

	c.metrics.RecordPublish(path.Base(topic), metrics.StatusSuccess, len(payload), time.Since(start))
	c.log.Debug("published", logger.String("topic", topic), logger.Int("bytes", len(payload)))
	return nil
}

// IsConnected returns true if the client is currently connected to the MQTT broker.
func (c *client) IsConnected() bool {
	return c.internalClient != nil && c.internalClient.IsConnected()
}

// Disconnect closes the connection to the MQTT broker.
func (c *client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.internalClient != nil && c.internalClient.IsConnected() {
		c.internalClient.Disconnect(uint(c.config.DisconnectTimeout.Milliseconds()))
		c.metrics.UpdateConnectionStatus(false)
		c.log.Info("disconnected from broker", logger.String("broker", c.config.Broker))
	}
}

func (c *client) onConnect(paho.Client) {
	c.log.Info("connected to broker", logger.String("broker", c.config.Broker))
	c.metrics.UpdateConnectionStatus(true)
}

func (c *client) onConnectionLost(_ paho.Client, err error) {
	c.log.Warn("connection to broker lost", logger.String("broker", c.config.Broker), logger.Error(err))
	c.metrics.UpdateConnectionStatus(false)
	c.metrics.RecordError(metrics.MQTTOpConnectionLost)
}

func (c *client) onReconnecting(paho.Client, *paho.ClientOptions) {
	c.metrics.IncrementReconnectAttempts()
	c.log.Debug("reconnecting to broker", logger.String("broker", c.config.Broker))
}
