package svc

import (
	"context"
	"fmt"
	"time"

	"github.com/blocto/solana-go-sdk/client"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/redis/go-redis/v9"

	"mix-router-sol/internal/config"
	"mix-router-sol/internal/logic/seedguard"
	"mix-router-sol/internal/mq"
	"mix-router-sol/internal/service"
	"mix-router-sol/internal/types"
	"mix-router-sol/pkg/logger"
)

// ServiceContext 进程级共享资源
type ServiceContext struct {
	Config    config.MixerConfig
	ProgramID types.Pubkey
	Rpc       *client.Client
	Redis     *redis.Client
	Producer  *kafka.Producer
	Guard     *seedguard.Guard
	Sink      service.ReceiptSink
}

// NewServiceContext 按配置初始化资源。Redis、Kafka 未配置时退化为内存存储与日志输出。
func NewServiceContext(c config.MixerConfig) (*ServiceContext, error) {
	programID, err := c.Program()
	if err != nil {
		return nil, err
	}

	sc := &ServiceContext{
		Config:    c,
		ProgramID: programID,
		Rpc:       client.NewClient(c.Rpc.Endpoint),
		Sink:      service.LogSink{},
	}

	// 1. 种子占用记录
	if c.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("redis ping %s: %w", c.Redis.Addr, err)
		}
		sc.Redis = rdb
		sc.Guard = seedguard.NewGuard(seedguard.NewRedisSeedStore(rdb, programID))
	} else {
		logger.Warnf("redis not configured, seed guard falls back to memory")
		sc.Guard = seedguard.NewGuard(seedguard.NewMemorySeedStore())
	}

	// 2. 回执发布
	if c.KafkaProducerConf.Enabled() {
		producer, err := mq.NewKafkaProducer(c.KafkaProducerConf.ToKafkaOption())
		if err != nil {
			sc.Close()
			logger.Errorf("Kafka producer 初始化失败: %v", err)
			return nil, err
		}
		sc.Producer = producer
		sc.Sink = mq.NewKafkaSink(producer, c.KafkaProducerConf.Topic, c.KafkaProducerConf.Partitions, c.KafkaProducerConf.SendTimeout())
	}

	logger.Infof("service context ready: program=%s rpc=%s", programID, c.Rpc.Endpoint)
	return sc, nil
}

func (sc *ServiceContext) Close() {
	if sc.Producer != nil {
		sc.Producer.Flush(3000)
		sc.Producer.Close()
		sc.Producer = nil
	}
	if sc.Redis != nil {
		_ = sc.Redis.Close()
		sc.Redis = nil
	}
}
