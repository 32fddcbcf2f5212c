package publish

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/dewgenenny/gocoax-stats/internal/logging"
)

// Publisher delivers a batch of messages
type Publisher interface {
	Publish(ctx context.Context, msgs []Message) error
	Close() error
}

// ErrNotConnected is returned when the broker connection is down
var ErrNotConnected = errors.New("mqtt client not connected")

// MQTTConfig holds broker connection settings
type MQTTConfig struct {
	Host           string
	Port           int
	Username       string
	Password       string
	ClientID       string
	QoS            byte
	Retain         bool
	ConnectTimeout time.Duration
	PublishTimeout time.Duration
}

// DefaultClientID returns a client ID unique to this process.
func DefaultClientID() string {
	return "gocoax-stats-" + uuid.NewString()[:8]
}

// BrokerURL returns the tcp:// URL of the broker.
func (c MQTTConfig) BrokerURL() string {
	port := c.Port
	if port == 0 {
		port = 1883
	}
	return fmt.Sprintf("tcp://%s:%d", c.Host, port)
}

// MQTTPublisher publishes over a single Paho client. Writes are serialised.
type MQTTPublisher struct {
	mu     sync.Mutex
	cfg    MQTTConfig
	client mqtt.Client
}

// NewMQTTPublisher connects to the broker and returns a ready publisher.
func NewMQTTPublisher(cfg MQTTConfig) (*MQTTPublisher, error) {
	if cfg.ClientID == "" {
		cfg.ClientID = DefaultClientID()
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.PublishTimeout == 0 {
		cfg.PublishTimeout = 5 * time.Second
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL()).
		SetClientID(cfg.ClientID).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetAutoReconnect(true).
		SetOrderMatters(false).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logging.Warn("MQTT connection lost", "broker", cfg.BrokerURL(), logging.Err(err))
		}).
		SetOnConnectHandler(func(_ mqtt.Client) {
			logging.Info("MQTT connected", "broker", cfg.BrokerURL(), "client_id", cfg.ClientID)
		})
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(cfg.ConnectTimeout) {
		return nil, fmt.Errorf("connect to %s: timed out after %v", cfg.BrokerURL(), cfg.ConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.BrokerURL(), err)
	}

	return &MQTTPublisher{cfg: cfg, client: client}, nil
}

// Publish sends every message and waits for each to be acknowledged. A
// failed message does not stop the rest of the batch.
func (p *MQTTPublisher) Publish(ctx context.Context, msgs []Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.client.IsConnectionOpen() {
		return ErrNotConnected
	}

	var errs []error
	for _, m := range msgs {
		if err := ctx.Err(); err != nil {
			return err
		}
		token := p.client.Publish(m.Topic, p.cfg.QoS, p.cfg.Retain, m.Payload)
		if !token.WaitTimeout(p.cfg.PublishTimeout) {
			logging.Debug("MQTT publish timed out", logging.Topic(m.Topic))
			errs = append(errs, fmt.Errorf("publish %s: timed out", m.Topic))
			continue
		}
		if err := token.Error(); err != nil {
			logging.Debug("MQTT publish failed", logging.Topic(m.Topic), logging.Err(err))
			errs = append(errs, fmt.Errorf("publish %s: %w", m.Topic, err))
		}
	}

	if len(errs) > 0 {
		logging.Warn("MQTT batch had failures", logging.Count("failed", len(errs)), logging.Count("message", len(msgs)))
	}
	return errors.Join(errs...)
}

// Close disconnects from the broker, allowing in-flight work a short grace period.
func (p *MQTTPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.client.Disconnect(250)
	return nil
}
