package ingest

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

const DefaultTopic = "polyhouse/temperature"

type MQTTOptions struct {
	BrokerURL string
	ClientID  string
	Topic     string
	QoS       byte
}

// Subscriber feeds readings published by devices over MQTT into an
// Ingestor.
type Subscriber struct {
	raw      mqtt.Client
	opts     MQTTOptions
	ingestor *Ingestor
	log      zerolog.Logger
}

func NewSubscriber(opts MQTTOptions, ing *Ingestor, log zerolog.Logger) *Subscriber {
	if opts.Topic == "" {
		opts.Topic = DefaultTopic
	}
	if opts.ClientID == "" {
		opts.ClientID = "polyhouse-server"
	}
	s := &Subscriber{
		opts:     opts,
		ingestor: ing,
		log:      log.With().Str("component", "mqtt").Str("topic", opts.Topic).Logger(),
	}

	o := mqtt.NewClientOptions()
	o.AddBroker(opts.BrokerURL)
	o.SetClientID(opts.ClientID)
	o.SetConnectRetry(true)
	o.SetConnectRetryInterval(2 * time.Second)
	o.SetAutoReconnect(true)
	// subscriptions are lost on reconnect with a clean session
	o.SetOnConnectHandler(func(c mqtt.Client) {
		token := c.Subscribe(s.opts.Topic, s.opts.QoS, s.handle)
		if token.Wait() && token.Error() != nil {
			s.log.Error().Err(token.Error()).Msg("subscribe")
			return
		}
		s.log.Info().Msg("subscribed")
	})
	o.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		s.log.Warn().Err(err).Msg("connection lost")
	})
	s.raw = mqtt.NewClient(o)
	return s
}

// Run connects and consumes messages until ctx is done.
func (s *Subscriber) Run(ctx context.Context) error {
	// with connect retry enabled the token only completes once connected
	token := s.raw.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		s.raw.Disconnect(0)
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect %s: %w", s.opts.BrokerURL, err)
	}
	s.log.Info().Str("broker", s.opts.BrokerURL).Msg("connected")

	<-ctx.Done()
	s.raw.Disconnect(250)
	s.log.Info().Msg("disconnected")
	return nil
}

func (s *Subscriber) handle(_ mqtt.Client, msg mqtt.Message) {
	s.HandlePayload(context.Background(), msg.Payload())
}

// HandlePayload records one message payload. Malformed payloads are logged
// and dropped.
func (s *Subscriber) HandlePayload(ctx context.Context, payload []byte) {
	r, err := s.ingestor.RecordRaw(ctx, SourceMQTT, payload)
	if err != nil {
		s.log.Warn().Err(err).Bytes("payload", payload).Msg("dropping message")
		return
	}
	s.log.Debug().Str("id", r.ID).Msg("message stored")
}
