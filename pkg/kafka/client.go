// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"finrag-go/internal/config"
	"finrag-go/pkg/log"
	"finrag-go/pkg/tasks"
)

// TaskProcessor defines the interface for any service that can process a task.
// This decouples the Kafka consumer from the concrete pipeline implementation.
type TaskProcessor interface {
	Process(ctx context.Context, task tasks.IngestTask) error
}

// AttemptCounter 记录每个任务的失败次数。
type AttemptCounter interface {
	IncrAttempts(ctx context.Context, taskID string) (int64, error)
	ResetAttempts(ctx context.Context, taskID string) error
}

const (
	retryBackoff = 5 * time.Second
	maxBackoff   = time.Minute
)

// Producer 发送入库任务。
type Producer struct {
	writer *kafka.Writer
}

// NewProducer 初始化 Kafka 生产者。
func NewProducer(cfg config.KafkaConfig) *Producer {
	w := &kafka.Writer{
		Addr:     kafka.TCP(brokers(cfg)...),
		Topic:    cfg.Topic,
		Balancer: &kafka.LeastBytes{},
	}
	log.Info("Kafka 生产者初始化成功")
	return &Producer{writer: w}
}

// ProduceIngestTask 发送一个文件处理任务到 Kafka，以 TaskID 作为消息 key。
func (p *Producer) ProduceIngestTask(ctx context.Context, task tasks.IngestTask) error {
	taskBytes, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(task.TaskID),
		Value: taskBytes,
	})
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// Consumer 逐条同步处理入库任务，失败的任务在达到最大次数前不提交 offset。
type Consumer struct {
	reader      *kafka.Reader
	processor   TaskProcessor
	attempts    AttemptCounter
	maxAttempts int64
}

// NewConsumer 创建一个消费者组成员。
func NewConsumer(cfg config.KafkaConfig, maxAttempts int, processor TaskProcessor, attempts AttemptCounter) *Consumer {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers(cfg),
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{reader: r, processor: processor, attempts: attempts, maxAttempts: int64(maxAttempts)}
}

// Run 阻塞直到 ctx 结束或读取失败。
func (c *Consumer) Run(ctx context.Context) {
	log.Infof("Kafka 消费者已启动，正在监听主题 '%s'", c.reader.Config().Topic)
	defer func() {
		if err := c.reader.Close(); err != nil {
			log.Errorf("关闭 Kafka 消费者失败: %v", err)
		}
	}()

	fetchFailures := 0
	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("Kafka 消费者已停止")
				return
			}
			// broker 短暂不可用时按退避重试，直到 ctx 结束
			fetchFailures++
			log.Error("从 Kafka 读取消息失败", err)
			if !sleep(ctx, backoff(fetchFailures)) {
				log.Info("Kafka 消费者已停止")
				return
			}
			continue
		}
		fetchFailures = 0
		log.Infof("收到 Kafka 消息: offset %d", m.Offset)

		// FetchMessage 不会重新投递未提交的消息，失败时在本地按退避重试
		for attempt := 1; !c.handle(ctx, m.Value, attempt); attempt++ {
			if !sleep(ctx, backoff(attempt)) {
				log.Info("Kafka 消费者已停止")
				return
			}
		}
		if err := c.reader.CommitMessages(ctx, m); err != nil {
			log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
		}
	}
}

// handle 处理一条消息，返回是否应当提交 offset。attempt 是本地第几次尝试，
// 计数器不可用时以它为准，避免无限重试阻塞分区。
func (c *Consumer) handle(ctx context.Context, value []byte, attempt int) bool {
	var task tasks.IngestTask
	if err := json.Unmarshal(value, &task); err != nil {
		// 消息格式错误，直接提交，避免阻塞队列
		log.Errorf("无法解析 Kafka 消息: %v, value: %s", err, string(value))
		return true
	}

	log.Infof("开始处理入库任务: TaskID=%s, FileName=%s, 本地尝试: %d", task.TaskID, task.FileName, attempt)
	if err := c.processor.Process(ctx, task); err != nil {
		log.Errorf("处理入库任务失败: TaskID=%s, Error: %v", task.TaskID, err)
		attempts, incErr := c.attempts.IncrAttempts(ctx, task.TaskID)
		if incErr != nil {
			log.Warnf("读取任务失败次数失败，使用本地计数: TaskID=%s, Error: %v", task.TaskID, incErr)
			attempts = int64(attempt)
		}
		if attempts >= c.maxAttempts {
			log.Errorf("入库任务多次失败(>=%d)，提交 offset 终止重试: TaskID=%s", c.maxAttempts, task.TaskID)
			return true
		}
		return false
	}

	log.Infof("入库任务处理成功: TaskID=%s", task.TaskID)
	_ = c.attempts.ResetAttempts(ctx, task.TaskID)
	return true
}

// backoff 随失败次数线性增长，最长 maxBackoff。
func backoff(failures int) time.Duration {
	d := retryBackoff * time.Duration(failures)
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

// sleep 等待 d，ctx 先结束时返回 false。
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func brokers(cfg config.KafkaConfig) []string {
	var out []string
	for _, b := range strings.Split(cfg.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
