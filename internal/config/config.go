package config

import (
	"fmt"
	"time"

	"mix-router-sol/internal/mq"
	"mix-router-sol/internal/types"
	"mix-router-sol/pkg/logger"
)

// go-zero conf 按 json tag 映射 yaml 字段

type LogConfig struct {
	Format   string `json:"format,default=console"` // console / json
	LogDir   string `json:"log_dir,optional"`       // 为空只输出到 stderr
	Level    string `json:"level,default=info"`     // debug / info / warn / error
	Compress bool   `json:"compress,optional"`      // 是否压缩旧日志
}

func (c *LogConfig) ToLogOption() logger.LogOption {
	return logger.LogOption{
		Format:   c.Format,
		LogDir:   c.LogDir,
		Level:    c.Level,
		Compress: c.Compress,
	}
}

// KafkaProducerConfig 回执发布配置，Brokers 为空时不发布
type KafkaProducerConfig struct {
	Brokers       string `json:"brokers,optional"`
	BatchSize     int    `json:"batch_size,optional"`
	LingerMs      int    `json:"linger_ms,default=5"`
	Topic         string `json:"topic,default=mix_receipts"`
	Partitions    int    `json:"partitions,default=1"`
	SendTimeoutMs int    `json:"send_timeout_ms,default=5000"` // 单条消息等待 ack 的超时
}

func (c *KafkaProducerConfig) Enabled() bool {
	return c.Brokers != ""
}

func (c *KafkaProducerConfig) ToKafkaOption() mq.KafkaProducerOption {
	return mq.KafkaProducerOption{
		Brokers:   c.Brokers,
		BatchSize: c.BatchSize,
		LingerMs:  c.LingerMs,
		Topics:    []mq.TopicSpec{{Topic: c.Topic, Partitions: c.Partitions}},
	}
}

func (c *KafkaProducerConfig) SendTimeout() time.Duration {
	return time.Duration(c.SendTimeoutMs) * time.Millisecond
}

// RpcConfig Solana JSON-RPC
type RpcConfig struct {
	Endpoint   string `json:"endpoint,default=http://127.0.0.1:8899"`
	TimeoutSec int    `json:"timeout_sec,default=30"`
}

// RedisConfig 种子占用记录，Addr 为空时使用内存存储
type RedisConfig struct {
	Addr     string `json:"addr,optional"`
	Password string `json:"password,optional"`
	DB       int    `json:"db,optional"`
}

// RequestConfig 命令行未指定时的默认请求参数
type RequestConfig struct {
	FeePayerKeypair string `json:"fee_payer_keypair,optional"` // solana-keygen JSON 文件
	PayerKeypair    string `json:"payer_keypair,optional"`
	Recipient       string `json:"recipient,optional"`
	Amount          uint64 `json:"amount,optional"`    // lamports
	MixLayers       uint8  `json:"mix_layers,default=2"`
	Seed            uint64 `json:"seed,optional"` // 0 表示随机
}

// GrpcConfig Yellowstone Geyser 订阅配置
type GrpcConfig struct {
	Endpoint string `json:"endpoint,optional"`
	XToken   string `json:"x_token,optional"`
	Insecure bool   `json:"insecure,optional"` // 本地节点不走 TLS

	StreamPingIntervalSec int `json:"stream_ping_interval_sec,default=10"` // 应用层 ping 间隔

	KeepalivePingIntervalSec int `json:"keepalive_ping_interval_sec,default=30"`
	KeepalivePingTimeoutSec  int `json:"keepalive_ping_timeout_sec,default=10"`

	InitialWindowSize     int `json:"initial_window_size,default=1048576"`
	InitialConnWindowSize int `json:"initial_conn_window_size,default=4194304"`
	MaxCallSendMsgSize    int `json:"max_call_send_msg_size,default=4194304"`
	MaxCallRecvMsgSize    int `json:"max_call_recv_msg_size,default=67108864"`

	ReconnectIntervalSec int `json:"reconnect_interval_sec,default=3"`
	ConnectTimeoutSec    int `json:"connect_timeout_sec,default=10"`
	SendTimeoutSec       int `json:"send_timeout_sec,default=5"`
	IdleTimeoutSec       int `json:"idle_timeout_sec,default=120"` // 超过该时长没有任何推送则重连
}

// MixerConfig 主配置
type MixerConfig struct {
	LogConf           LogConfig           `json:"logger,optional"`
	ProgramID         string              `json:"program_id,default=C1Yxk3ZBmMKD9c9exQH5GrMyQaUfmESFBtVnqjGtVaVX"`
	Rpc               RpcConfig           `json:"rpc,optional"`
	Grpc              GrpcConfig          `json:"grpc,optional"`
	KafkaProducerConf KafkaProducerConfig `json:"kafka_producer,optional"`
	Redis             RedisConfig         `json:"redis,optional"`
	GenesisFile       string              `json:"genesis_file,optional"` // simulate 使用的初始账户
	Request           RequestConfig       `json:"request,optional"`
}

func (c *MixerConfig) Program() (types.Pubkey, error) {
	p, err := types.TryPubkeyFromBase58(c.ProgramID)
	if err != nil {
		return types.Pubkey{}, fmt.Errorf("invalid program_id: %w", err)
	}
	return p, nil
}
