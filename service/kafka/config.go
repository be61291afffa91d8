package kafka

import (
	"os"
	"strings"

	"github.com/Shopify/sarama"
)

// In-code 配置（不读 YAML），broker 列表可用环境变量覆盖
type AppConfig struct {
	Brokers             []string
	NotifyTopic         string
	ProducerRetries     int
	ProducerCompression string // none/snappy/lz4/zstd
	KafkaVersion        sarama.KafkaVersion
}

var Cfg = AppConfig{
	Brokers:             brokersFromEnv(),
	NotifyTopic:         "sachat.notify",
	ProducerRetries:     5,
	ProducerCompression: "snappy",
	KafkaVersion:        sarama.V2_1_0_0,
}

func brokersFromEnv() []string {
	if v := os.Getenv("SACHAT_KAFKA_BROKERS"); v != "" {
		return strings.Split(v, ",")
	}
	return []string{"127.0.0.1:9092"}
}
