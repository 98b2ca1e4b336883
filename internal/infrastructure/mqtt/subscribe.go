package mqtt

import (
	"fmt"
)

// Subscribe registers a handler for messages matching topic, which may
// use MQTT wildcards (the bridge listens on syncbridge/command/+).
// Handlers run on paho's delivery goroutines and should return
// quickly; returned errors are logged, not redelivered.
//
// The subscription is tracked so it survives a broker reconnect.
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if handler == nil {
		return fmt.Errorf("%w: handler cannot be nil", ErrSubscribeFailed)
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	// Tracked first so a reconnect racing the broker ack still restores it.
	c.subMu.Lock()
	c.subscriptions[topic] = subscription{
		topic:   topic,
		qos:     qos,
		handler: handler,
	}
	c.subMu.Unlock()

	token := c.client.Subscribe(topic, qos, c.wrapHandler(handler))
	if !token.WaitTimeout(defaultPublishTimeout) {
		c.forgetSubscription(topic)
		return fmt.Errorf("%w: timeout after %v", ErrSubscribeFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		c.forgetSubscription(topic)
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}

	return nil
}

func (c *Client) forgetSubscription(topic string) {
	c.subMu.Lock()
	delete(c.subscriptions, topic)
	c.subMu.Unlock()
}
