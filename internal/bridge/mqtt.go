package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	connectTimeout    = 10 * time.Second
	disconnectQuiesce = 250 // milliseconds, paho's Disconnect unit
)

// MQTTConsumer owns the broker connection and feeds received messages to the
// Bridge. Reconnects and resubscription are delegated to the paho client.
type MQTTConsumer struct {
	client mqtt.Client
	logger *slog.Logger
}

// NewMQTTConsumer configures a consumer for the three device topic families
// under the given prefix. Command topics are subscribed but intentionally
// unrouted, so devices publishing commands still show up in the logs.
func NewMQTTConsumer(brokerURL, topicPrefix, clientID string, bridge *Bridge, logger *slog.Logger) *MQTTConsumer {
	topics := map[string]byte{
		topicPrefix + "/sensors/#":  0,
		topicPrefix + "/status/#":   0,
		topicPrefix + "/commands/#": 0,
	}

	handler := func(_ mqtt.Client, msg mqtt.Message) {
		bridge.HandleMessage(context.Background(), msg.Topic(), msg.Payload())
	}

	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectTimeout(connectTimeout).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Warn("mqtt connection lost", "error", err)
		}).
		SetOnConnectHandler(func(client mqtt.Client) {
			// Subscriptions live here so they are re-established after a
			// reconnect.
			if token := client.SubscribeMultiple(topics, handler); token.Wait() && token.Error() != nil {
				logger.Error("mqtt subscribe failed", "error", token.Error())
				return
			}
			logger.Info("mqtt connected", "broker", brokerURL, "prefix", topicPrefix)
		})

	return &MQTTConsumer{
		client: mqtt.NewClient(opts),
		logger: logger,
	}
}

// Run connects and blocks until the context is cancelled, then disconnects
// cleanly.
func (c *MQTTConsumer) Run(ctx context.Context) error {
	// With connect-retry enabled the token only completes once a connection
	// is established, so wait with a timeout and let the client keep retrying
	// in the background if the broker is not up yet.
	token := c.client.Connect()
	if token.WaitTimeout(connectTimeout) && token.Error() != nil {
		return fmt.Errorf("mqtt connect: %w", token.Error())
	}

	<-ctx.Done()
	c.client.Disconnect(disconnectQuiesce)
	c.logger.Info("mqtt consumer stopped")
	return nil
}

// Connected reports whether the broker connection is currently open.
func (c *MQTTConsumer) Connected() bool {
	return c.client.IsConnectionOpen()
}
