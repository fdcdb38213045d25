package events

import "github.com/okian/highlights/pkg/logger"

// Option applies a configuration option to the Kafka publisher.
type Option func(*Kafka)

// WithTopic sets the destination topic.
func WithTopic(topic string) Option {
	return func(k *Kafka) {
		if topic != "" {
			k.topic = topic
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(k *Kafka) {
		if l != nil {
			k.log = l
		}
	}
}
