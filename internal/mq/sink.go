package mq

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mix-router-sol/internal/logic/receipt"
	"mix-router-sol/internal/utils"
	"mix-router-sol/pkg/logger"
)

// KafkaSink 把回执按 payer 分区发送到 Kafka，同一 payer 的回执保持有序
type KafkaSink struct {
	topic      string
	partitions uint32
	timeout    time.Duration
	producer   Producer
}

func NewKafkaSink(producer Producer, topic string, partitions int, timeout time.Duration) *KafkaSink {
	if partitions <= 0 {
		partitions = 1
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &KafkaSink{
		topic:      topic,
		partitions: uint32(partitions),
		timeout:    timeout,
		producer:   producer,
	}
}

func (s *KafkaSink) buildJobs(receipts []*receipt.MixReceipt) ([]*KafkaJob, error) {
	jobs := make([]*KafkaJob, 0, len(receipts))
	for _, r := range receipts {
		value, err := receipt.Encode(r)
		if err != nil {
			return nil, err
		}
		key := r.Payer
		jobs = append(jobs, &KafkaJob{
			Topic:     s.topic,
			Partition: int32(utils.PartitionHashBytes(key[:], s.partitions)),
			Key:       key[:],
			Value:     value,
			Signature: r.Signature,
		})
	}
	return jobs, nil
}

// Publish 发送全部回执，任一失败返回聚合错误
func (s *KafkaSink) Publish(ctx context.Context, receipts ...*receipt.MixReceipt) error {
	if len(receipts) == 0 {
		return nil
	}
	jobs, err := s.buildJobs(receipts)
	if err != nil {
		return err
	}

	ok, failed := SendKafkaJobs(ctx, s.producer, jobs, s.timeout)
	if len(failed) == 0 {
		logger.Debugf("[KafkaSink] published %d receipts to %s", len(ok), s.topic)
		return nil
	}

	errs := make([]error, 0, len(failed))
	for _, f := range failed {
		errs = append(errs, fmt.Errorf("partition %d: %w", f.Job.Partition, f.Err))
	}
	logger.Warnf("[KafkaSink] %d/%d receipts failed to publish", len(failed), len(jobs))
	return errors.Join(errs...)
}
