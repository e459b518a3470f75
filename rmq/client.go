package rmq

import (
	"fmt"
	"github.com/hoytnotlit/ltr-project/logger"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
)

type Config struct {
	Host       string `envconfig:"CORRUPT_RMQ_HOST" required:"true"`
	Port       string `envconfig:"CORRUPT_RMQ_PORT" required:"true"`
	Username   string `envconfig:"CORRUPT_RMQ_USERNAME" required:"true"`
	Password   string `envconfig:"CORRUPT_RMQ_PASSWORD" required:"true"`
	Exchange   string `envconfig:"CORRUPT_RMQ_EXCHANGE" default:"corrupt-results-exchange"`
	RoutingKey string `envconfig:"CORRUPT_RMQ_ROUTING_KEY" default:"corrupt.results"`
}

// Client publishes corruption records to a durable topic exchange.
type Client struct {
	ChanErrors <-chan *amqp.Error
	config     Config
	conn       *amqp.Connection
	channel    *amqp.Channel
	rmqLogger  *zerolog.Logger
}

func NewClient() (*Client, error) {
	rmqLogger := logger.NewLogger("RMQ client")
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		rmqLogger.Error().Err(err).Msg("Could not read env config")
		return nil, err
	}

	conn, channel, err := setup(getURL(config))
	if err != nil {
		return nil, fmt.Errorf("failed connection: %w", err)
	}
	if err := channel.ExchangeDeclare(
		config.Exchange, // name
		"topic",         // kind
		true,            // durable
		false,           // auto-deleted
		false,           // internal
		false,           // no-wait
		nil,             // arguments
	); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("exchange declare: %w", err)
	}
	chanErrors := channel.NotifyClose(make(chan *amqp.Error, 1))
	rmqLogger.Info().Str("exchange", config.Exchange).Msg("Connected to RMQ")

	return &Client{
		ChanErrors: chanErrors,
		config:     config,
		conn:       conn,
		channel:    channel,
		rmqLogger:  &rmqLogger,
	}, nil
}

func (c *Client) Publish(msg amqp.Publishing) error {
	return c.channel.Publish(
		c.config.Exchange,
		c.config.RoutingKey,
		false,
		false,
		msg)
}

func (c *Client) Close() {
	_ = c.channel.Close()
	_ = c.conn.Close()
}

func getURL(config Config) string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s", config.Username, config.Password, config.Host, config.Port)
}

func setup(url string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	return conn, ch, nil
}
