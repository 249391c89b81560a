package mq

import (
	"context"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"mix-router-sol/pkg/logger"
)

// Producer 是 *kafka.Producer 用到的子集
type Producer interface {
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error
}

// KafkaJob 一条回执消息，Key 为 payer 公钥
type KafkaJob struct {
	Topic     string
	Partition int32
	Key       []byte
	Value     []byte
	Signature string
}

// KafkaSendResult 表示每条消息的发送结果
type KafkaSendResult struct {
	Job *KafkaJob
	Err error
}

// SendKafkaJobs 投递一批回执，共用一个投递通道和截止时间，不做重试。
// 通道容量等于消息数，截止后迟到的回执留在缓冲区，不会阻塞 librdkafka。
func SendKafkaJobs(
	ctx context.Context,
	producer Producer,
	jobs []*KafkaJob,
	timeout time.Duration,
) (ok []*KafkaJob, failed []KafkaSendResult) {
	if len(jobs) == 0 {
		return nil, nil
	}

	deliveryChan := make(chan kafka.Event, len(jobs))
	pending := make(map[int]*KafkaJob, len(jobs))
	for i, job := range jobs {
		err := producer.Produce(&kafka.Message{
			TopicPartition: kafka.TopicPartition{
				Topic:     &job.Topic,
				Partition: job.Partition,
			},
			Key:    job.Key,
			Value:  job.Value,
			Opaque: i,
		}, deliveryChan)
		if err != nil {
			failed = append(failed, KafkaSendResult{Job: job, Err: fmt.Errorf("produce %s: %w", job.Signature, err)})
			continue
		}
		pending[i] = job
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for len(pending) > 0 {
		select {
		case e := <-deliveryChan:
			msg, isMsg := e.(*kafka.Message)
			if !isMsg {
				logger.Warnf("[mq] unexpected delivery event: %T", e)
				continue
			}
			idx, _ := msg.Opaque.(int)
			job, found := pending[idx]
			if !found {
				continue
			}
			delete(pending, idx)
			if msg.TopicPartition.Error != nil {
				failed = append(failed, KafkaSendResult{Job: job, Err: fmt.Errorf("deliver %s: %w", job.Signature, msg.TopicPartition.Error)})
			} else {
				ok = append(ok, job)
			}
		case <-waitCtx.Done():
			for _, job := range pending {
				failed = append(failed, KafkaSendResult{Job: job, Err: fmt.Errorf("deliver %s: %w", job.Signature, waitCtx.Err())})
			}
			pending = nil
		}
	}
	return ok, failed
}
