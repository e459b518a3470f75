package worker

import (
	"encoding/json"
	"github.com/google/uuid"
	"github.com/hoytnotlit/ltr-project/rmq"
	"github.com/hoytnotlit/ltr-project/types"
	"github.com/streadway/amqp"
	"time"
)

const messageSender = "corrupt"

type Message struct {
	RunID  string `json:"run_id"`
	Index  int    `json:"index"`
	Rule   string `json:"rule"`
	Text   string `json:"text"`
	Sender string `json:"sender"`
}

type publishTransactions interface {
	publishCorruption(runID string, corruption types.Corruption) error
	close()
}

type noPublisher struct{}

func (noPublisher) publishCorruption(string, types.Corruption) error { return nil }
func (noPublisher) close()                                           {}

type rmqClientWrapper struct {
	rmqClient *rmq.Client
	connect   func() (*rmq.Client, error)
}

func (wrapper *rmqClientWrapper) close() {
	if wrapper.rmqClient != nil {
		wrapper.rmqClient.Close()
	}
}

func (wrapper *rmqClientWrapper) publishCorruption(runID string, corruption types.Corruption) error {
	b, err := json.Marshal(Message{
		RunID:  runID,
		Index:  corruption.Index,
		Rule:   corruption.Rule,
		Text:   corruption.Text,
		Sender: messageSender,
	})
	if err != nil {
		return err
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Body:         b,
	}
	if wrapper.channelClosed() {
		if err := wrapper.refresh(); err != nil {
			return err
		}
	}
	if err = wrapper.rmqClient.Publish(msg); err == nil {
		return nil
	}
	if refreshErr := wrapper.refresh(); refreshErr != nil {
		return err
	}
	return wrapper.rmqClient.Publish(msg)
}

func (wrapper *rmqClientWrapper) channelClosed() bool {
	if wrapper.rmqClient == nil {
		return true
	}
	select {
	case <-wrapper.rmqClient.ChanErrors:
		return true
	default:
		return false
	}
}

func (wrapper *rmqClientWrapper) refresh() error {
	rmqClient, err := wrapper.connect()
	if err != nil {
		return err
	}
	if oldClient := wrapper.rmqClient; oldClient != nil {
		oldClient.Close()
	}
	wrapper.rmqClient = rmqClient
	return nil
}
