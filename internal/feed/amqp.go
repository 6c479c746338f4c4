package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"divvy/pkg/utils"
)

const chatExchange = "divvy.chat"

// AMQPFeed implements Publisher and Subscriber on a RabbitMQ topic
// exchange, one routing key per group.
type AMQPFeed struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
}

var (
	_ Publisher  = (*AMQPFeed)(nil)
	_ Subscriber = (*AMQPFeed)(nil)
)

func NewAMQPFeed(url string) (*AMQPFeed, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		chatExchange, // name
		"topic",      // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return &AMQPFeed{conn: conn, channel: channel}, nil
}

func groupRoutingKey(groupID int) string {
	return fmt.Sprintf("group.%d", groupID)
}

func (f *AMQPFeed) PublishChatEvent(ctx context.Context, event ChatEvent) error {
	body, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal chat event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = f.channel.PublishWithContext(
		ctx,
		chatExchange,
		groupRoutingKey(event.GroupID),
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    event.EventID,
			Timestamp:    event.Timestamp,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish chat event: %w", err)
	}
	return nil
}

func (f *AMQPFeed) SubscribeGroup(ctx context.Context, groupID int) (<-chan ChatEvent, error) {
	// Exclusive auto-delete queue per subscriber; the broker fans out.
	queue, err := f.channel.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return nil, fmt.Errorf("declare subscriber queue: %w", err)
	}

	if err := f.channel.QueueBind(queue.Name, groupRoutingKey(groupID), chatExchange, false, nil); err != nil {
		return nil, fmt.Errorf("bind subscriber queue: %w", err)
	}

	deliveries, err := f.channel.Consume(queue.Name, "", true, true, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume subscriber queue: %w", err)
	}

	events := make(chan ChatEvent)
	go func() {
		defer close(events)
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				event, err := ChatEventFromJSON(d.Body)
				if err != nil {
					utils.Logger.Errorf("failed to decode chat event: %v", err)
					continue
				}
				select {
				case events <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return events, nil
}

func (f *AMQPFeed) Close() error {
	if err := f.channel.Close(); err != nil {
		f.conn.Close()
		return err
	}
	return f.conn.Close()
}
