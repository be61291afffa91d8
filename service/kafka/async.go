package kafka

import (
	"SaChat/logger"

	"github.com/Shopify/sarama"
)

func InitAsyncProducerFromClient() error {
	p, err := sarama.NewAsyncProducerFromClient(KafkaClient)
	if err != nil {
		return err
	}
	AsyncProd = p

	go func() {
		for {
			select {
			case msg, ok := <-AsyncProd.Successes():
				if !ok {
					return
				}
				logger.Debugf("[kafka] async sent topic=%s partition=%d offset=%d", msg.Topic, msg.Partition, msg.Offset)
			case err, ok := <-AsyncProd.Errors():
				if !ok {
					return
				}
				logger.Errorf("[kafka] async error: %v", err)
			}
		}
	}()

	return nil
}

// SendAsync 非阻塞投递；producer 未初始化时直接丢弃（通知是尽力而为的）。
func SendAsync(topic, key string, value []byte) {
	if AsyncProd == nil {
		return
	}
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(value),
	}
	AsyncProd.Input() <- msg
}
