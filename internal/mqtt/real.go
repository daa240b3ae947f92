package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ClientConfig holds the broker connection settings.
type ClientConfig struct {
	Broker      string
	ClientID    string // empty = "bulb-driver-<random>"
	Username    string
	Password    string
	TopicPrefix string
	BufferSize  int // messages held while disconnected
}

// RealClient talks to an actual MQTT broker.
type RealClient struct {
	client paho.Client
	topics Topics

	mu       sync.Mutex
	outbox   *outbox
	handler  CommandHandler
	connects int
}

// NewRealClient creates a client and starts connecting to the broker.
// If the broker is not reachable within 10 seconds the client keeps retrying
// in the background and buffers outgoing messages meanwhile.
func NewRealClient(cfg ClientConfig) (*RealClient, error) {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "bulb-driver-" + uuid.NewString()[:8]
	}

	c := &RealClient{
		topics: NewTopics(cfg.TopicPrefix),
		outbox: newOutbox(cfg.BufferSize),
	}

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(clientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetMaxReconnectInterval(30 * time.Second).
		SetWill(c.topics.System, string(FormatWillPayload()), 1, true).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Warn().Err(err).Str("broker", cfg.Broker).Msg("mqtt connection lost")
		})
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	c.client = paho.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		log.Warn().Str("broker", cfg.Broker).Msg("mqtt broker not reachable yet, retrying in background")
		return c, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return c, nil
}

// onConnect re-subscribes, replays buffered messages and, after a reconnect,
// announces it on the system topic.
func (c *RealClient) onConnect(client paho.Client) {
	c.mu.Lock()
	c.connects++
	reconnect := c.connects > 1
	handler := c.handler
	pending := c.outbox.drain()
	c.mu.Unlock()

	log.Info().Bool("reconnect", reconnect).Msg("mqtt connected")

	if handler != nil {
		if err := c.subscribe(handler); err != nil {
			log.Error().Err(err).Msg("mqtt resubscribe failed")
		}
	}

	for _, m := range pending {
		if err := c.send(m); err != nil {
			log.Error().Err(err).Str("topic", m.topic).Msg("mqtt replay failed")
		}
	}
	if len(pending) > 0 {
		log.Info().Int("count", len(pending)).Msg("mqtt replayed buffered messages")
	}

	if reconnect {
		payload, _ := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"})
		if err := c.send(pendingMsg{topic: c.topics.System, payload: payload, qos: 1}); err != nil {
			log.Error().Err(err).Msg("mqtt reconnected event failed")
		}
	}
}

// Subscribe registers handler for the command topic. The subscription is
// renewed on every reconnect.
func (c *RealClient) Subscribe(handler CommandHandler) error {
	c.mu.Lock()
	c.handler = handler
	c.mu.Unlock()

	if !c.client.IsConnectionOpen() {
		// onConnect subscribes once the broker is reachable
		return nil
	}
	return c.subscribe(handler)
}

func (c *RealClient) subscribe(handler CommandHandler) error {
	token := c.client.Subscribe(c.topics.Command, 1, func(_ paho.Client, msg paho.Message) {
		handler(msg.Payload())
	})
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("subscribe timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", c.topics.Command, err)
	}
	return nil
}

// PublishState sends the resolved light state, retained, at QoS 1.
func (c *RealClient) PublishState(event StateEvent) error {
	payload, err := FormatStatePayload(event)
	if err != nil {
		return fmt.Errorf("format state payload: %w", err)
	}
	return c.publish(pendingMsg{topic: c.topics.State, payload: payload, qos: 1, retained: true})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (c *RealClient) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	// QoS 1 (at-least-once): lifecycle events must not be lost
	return c.publish(pendingMsg{topic: c.topics.System, payload: payload, qos: 1, retained: event.Retained})
}

// publish sends m, or buffers it while the connection is down. The check and
// the enqueue share c.mu with onConnect's drain, so a message buffered just
// before a connect is always replayed by it.
func (c *RealClient) publish(m pendingMsg) error {
	c.mu.Lock()
	if !c.client.IsConnectionOpen() {
		c.outbox.enqueue(m)
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()
	return c.send(m)
}

func (c *RealClient) send(m pendingMsg) error {
	token := c.client.Publish(m.topic, m.qos, m.retained, m.payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish %s timeout", m.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", m.topic, err)
	}
	return nil
}

// IsConnected reports whether the broker connection is open.
func (c *RealClient) IsConnected() bool {
	return c.client.IsConnectionOpen()
}

// Dropped returns how many buffered messages were discarded while offline.
func (c *RealClient) Dropped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outbox.dropped
}

// Close disconnects from the broker.
func (c *RealClient) Close() error {
	c.client.Disconnect(1000) // 1 second grace period
	return nil
}
