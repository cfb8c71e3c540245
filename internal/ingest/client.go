// internal/ingest/client.go
package ingest

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	pmqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"amp-monitor/internal/config"
)

const (
	keepAlive      = 5 * time.Second
	retryInterval  = 5 * time.Second
	subscribeWait  = 5 * time.Second
	disconnectWait = 250 // ms
	qosAtMostOnce  = 0
)

// Handler receives every message the client is subscribed to and reports
// how it was classified. Sink.Handle satisfies it.
type Handler func(topic string, payload []byte) Kind

// Client subscribes to amplifier and notification topics and hands each
// message to a Handler.
type Client struct {
	opts   *pmqtt.ClientOptions
	client pmqtt.Client
	topics []string
	handle Handler
	logger zerolog.Logger
}

func NewClient(cfg *config.Config, handle Handler, logger zerolog.Logger) (*Client, error) {
	broker, err := BrokerURL(cfg.MQTTBroker, cfg.MQTTPort)
	if err != nil {
		return nil, err
	}

	c := &Client{
		topics: Subscriptions(cfg),
		handle: handle,
		logger: logger,
	}
	c.opts = pmqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID("amp-monitor-" + uuid.NewString()[:8]).
		SetKeepAlive(keepAlive).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(retryInterval).
		SetMaxReconnectInterval(retryInterval).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(func(_ pmqtt.Client, err error) {
			logger.Warn().Err(err).Msg("connection lost, reconnecting")
		}).
		SetReconnectingHandler(func(_ pmqtt.Client, _ *pmqtt.ClientOptions) {
			logger.Info().Msg("reconnecting to mqtt broker")
		})

	if cfg.MQTTUsername != "" {
		c.opts.SetUsername(cfg.MQTTUsername).SetPassword(cfg.MQTTPassword)
		logger.Info().Str("user", cfg.MQTTUsername).Msg("using mqtt credentials")
	}
	return c, nil
}

// Run connects and blocks until ctx is cancelled. Connection failures are
// retried in the background.
func (c *Client) Run(ctx context.Context) error {
	c.client = pmqtt.NewClient(c.opts)
	c.logger.Info().Strs("brokers", brokerStrings(c.opts)).Msg("starting mqtt client")

	token := c.client.Connect()
	go func() {
		if token.Wait() && token.Error() != nil {
			c.logger.Error().Err(token.Error()).Msg("error connecting to mqtt broker")
		}
	}()

	<-ctx.Done()
	c.client.Disconnect(disconnectWait)
	c.logger.Warn().Msg("mqtt disconnected")
	return nil
}

// Topics returns the filters subscribed on every connect.
func (c *Client) Topics() []string { return c.topics }

// onConnect resubscribes after every (re)connect since sessions are clean.
func (c *Client) onConnect(client pmqtt.Client) {
	c.logger.Info().Msg("connected to mqtt broker")
	for _, t := range c.topics {
		token := client.Subscribe(t, qosAtMostOnce, c.onMessage)
		if !token.WaitTimeout(subscribeWait) {
			c.logger.Error().Str("topic", t).Msg("subscribe timed out")
			continue
		}
		if err := token.Error(); err != nil {
			c.logger.Error().Err(err).Str("topic", t).Msg("failed to subscribe")
			continue
		}
		c.logger.Info().Str("topic", t).Msg("subscribed")
	}
}

func (c *Client) onMessage(_ pmqtt.Client, msg pmqtt.Message) {
	kind := c.handle(msg.Topic(), msg.Payload())
	c.logger.Debug().Str("topic", msg.Topic()).Stringer("kind", kind).Msg("message handled")
}

// BrokerURL builds a paho broker URL from a host or URL and a port. A port
// already present in the URL wins.
func BrokerURL(broker string, port int) (string, error) {
	if broker == "" {
		return "", fmt.Errorf("empty broker")
	}
	if !strings.Contains(broker, "://") {
		broker = "tcp://" + broker
	}
	u, err := url.Parse(broker)
	if err != nil {
		return "", fmt.Errorf("broker %q: %w", broker, err)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("broker %q: missing host", broker)
	}
	if u.Port() == "" {
		u.Host = net.JoinHostPort(u.Hostname(), strconv.Itoa(port))
	}
	return u.String(), nil
}

func brokerStrings(o *pmqtt.ClientOptions) []string {
	out := make([]string, 0, len(o.Servers))
	for _, s := range o.Servers {
		out = append(out, s.String())
	}
	return out
}
