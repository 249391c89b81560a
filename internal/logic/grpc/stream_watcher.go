package grpc

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
	"github.com/zeromicro/go-zero/core/logx"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/metadata"

	"mix-router-sol/internal/config"
	"mix-router-sol/internal/types"
)

// StreamWatcher 订阅涉及转发程序的成功交易，推送到 out
type StreamWatcher struct {
	mu                sync.Mutex
	conn              *grpc.ClientConn
	client            pb.GeyserClient
	stream            pb.Geyser_SubscribeClient
	stopped           bool
	reconnectAttempts int
	reconnectInterval time.Duration
	xToken            string
	programID         types.Pubkey
	pingInterval      time.Duration
	sendTimeout       time.Duration
	idleTimeout       time.Duration
	out               chan<- *pb.SubscribeUpdateTransaction
	connCtx           context.Context
	connCancel        context.CancelFunc
	logx.Logger
}

func dialOptions(conf config.GrpcConfig) []grpc.DialOption {
	creds := credentials.NewTLS(&tls.Config{InsecureSkipVerify: true})
	if conf.Insecure {
		creds = insecure.NewCredentials()
	}
	return []grpc.DialOption{
		grpc.WithTransportCredentials(creds),
		grpc.WithInitialWindowSize(int32(conf.InitialWindowSize)),
		grpc.WithInitialConnWindowSize(int32(conf.InitialConnWindowSize)),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallSendMsgSize(conf.MaxCallSendMsgSize),
			grpc.MaxCallRecvMsgSize(conf.MaxCallRecvMsgSize),
		),
		grpc.WithBlock(),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                time.Duration(conf.KeepalivePingIntervalSec) * time.Second,
			Timeout:             time.Duration(conf.KeepalivePingTimeoutSec) * time.Second,
			PermitWithoutStream: true,
		}),
	}
}

func NewStreamWatcher(conf config.GrpcConfig, programID types.Pubkey, out chan<- *pb.SubscribeUpdateTransaction) (*StreamWatcher, error) {
	if conf.Endpoint == "" {
		return nil, errors.New("grpc endpoint is empty")
	}

	dialCtx, cancel := context.WithTimeout(context.Background(), time.Duration(conf.ConnectTimeoutSec)*time.Second)
	defer cancel()

	conn, err := grpc.DialContext(dialCtx, conf.Endpoint, dialOptions(conf)...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect %s: %w", conf.Endpoint, err)
	}

	return newStreamWatcher(conn, pb.NewGeyserClient(conn), conf, programID, out), nil
}

func newStreamWatcher(conn *grpc.ClientConn, client pb.GeyserClient, conf config.GrpcConfig, programID types.Pubkey, out chan<- *pb.SubscribeUpdateTransaction) *StreamWatcher {
	return &StreamWatcher{
		conn:              conn,
		client:            client,
		reconnectInterval: time.Duration(conf.ReconnectIntervalSec) * time.Second,
		xToken:            conf.XToken,
		programID:         programID,
		pingInterval:      time.Duration(max(conf.StreamPingIntervalSec, 1)) * time.Second,
		sendTimeout:       time.Duration(max(conf.SendTimeoutSec, 1)) * time.Second,
		idleTimeout:       time.Duration(max(conf.IdleTimeoutSec, 1)) * time.Second,
		out:               out,
		Logger:            logx.WithContext(context.Background()).WithFields(logx.Field("service", "stream_watcher")),
	}
}

func (w *StreamWatcher) Start() {
	w.mustConnect()
}

func (w *StreamWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.stopped = true
	if w.connCancel != nil {
		w.connCancel()
		w.connCancel = nil
	}
	if w.conn != nil {
		_ = w.conn.Close()
	}
}

func (w *StreamWatcher) isStopped() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stopped
}

// mustConnect 循环直到连接成功或被停止
func (w *StreamWatcher) mustConnect() {
	for {
		if w.isStopped() {
			return
		}

		if w.reconnectAttempts > 0 {
			if w.reconnectAttempts > 3 {
				time.Sleep(w.reconnectInterval * 2)
			} else {
				time.Sleep(w.reconnectInterval)
			}
		}
		w.reconnectAttempts++
		w.Infof("connecting, attempt %d", w.reconnectAttempts)
		err := w.connect()
		if err == nil {
			return
		}
		w.Errorf("connect failed: %v, will retry", err)
	}
}

// buildSubscribeRequest 只订阅调用了转发程序且执行成功的非投票交易
func buildSubscribeRequest(programID types.Pubkey) *pb.SubscribeRequest {
	txs := map[string]*pb.SubscribeRequestFilterTransactions{
		"mix": {
			Vote:           boolPtr(false),
			Failed:         boolPtr(false),
			AccountInclude: []string{programID.String()},
		},
	}
	commitment := pb.CommitmentLevel_CONFIRMED
	return &pb.SubscribeRequest{
		Transactions: txs,
		Commitment:   &commitment,
	}
}

// connect 只尝试一次
func (w *StreamWatcher) connect() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return errors.New("watcher is stopped")
	}

	if w.connCancel != nil {
		w.connCancel()
		w.connCancel = nil
	}
	w.connCtx, w.connCancel = context.WithCancel(context.Background())

	metaCtx := metadata.NewOutgoingContext(
		w.connCtx,
		metadata.New(map[string]string{"x-token": w.xToken}),
	)
	stream, err := w.client.Subscribe(metaCtx)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	if err := sendWithTimeout(w.connCtx, stream.Send, buildSubscribeRequest(w.programID), w.sendTimeout); err != nil {
		return fmt.Errorf("send subscribe request: %w", err)
	}

	w.stream = stream
	w.reconnectAttempts = 0
	w.Infof("subscribed to program %s", w.programID)

	go w.pingLoop(w.connCtx, stream)
	go w.recvLoop(w.connCtx, stream)
	return nil
}

// recvLoop 每收到一条更新（含 pong）都重置空闲计时，超时则重连
func (w *StreamWatcher) recvLoop(ctx context.Context, stream pb.Geyser_SubscribeClient) {
	idle := time.AfterFunc(w.idleTimeout, func() {
		if ctx.Err() != nil {
			return
		}
		w.Infof("no update for %v, reconnecting", w.idleTimeout)
		w.reconnect(ctx)
	})
	defer idle.Stop()

	for {
		if ctx.Err() != nil {
			return
		}

		update, err := stream.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, io.EOF) {
				w.Infof("stream closed by server (EOF), will reconnect")
				w.reconnect(ctx)
				return
			}
			w.Errorf("stream error: %v", err)
			time.Sleep(100 * time.Millisecond)
			continue
		}
		idle.Reset(w.idleTimeout)

		if u, ok := update.GetUpdateOneof().(*pb.SubscribeUpdate_Transaction); ok {
			select {
			case w.out <- u.Transaction:
			case <-ctx.Done():
				return
			}
		}
	}
}

func sendWithTimeout[T any](ctx context.Context, sendFunc func(T) error, req T, timeout time.Duration) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- sendFunc(req)
	}()

	select {
	case <-timeoutCtx.Done():
		return timeoutCtx.Err()
	case err := <-done:
		return err
	}
}

// pingLoop 应用层心跳，服务端回 pong 也会刷新空闲计时
func (w *StreamWatcher) pingLoop(ctx context.Context, stream pb.Geyser_SubscribeClient) {
	ticker := time.NewTicker(w.pingInterval)
	defer ticker.Stop()
	var id int32
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			id++
			req := &pb.SubscribeRequest{Ping: &pb.SubscribeRequestPing{Id: id}}
			if err := sendWithTimeout(ctx, stream.Send, req, w.sendTimeout); err != nil {
				w.Errorf("ping failed: %v", err)
			}
		}
	}
}

// reconnect 只处理 ctx 所属的连接，旧连接的迟到触发不会打断新连接
func (w *StreamWatcher) reconnect(ctx context.Context) {
	w.mu.Lock()
	if w.stopped || w.connCtx != ctx {
		w.mu.Unlock()
		return
	}
	if w.connCancel != nil {
		w.connCancel()
		w.connCancel = nil
	}
	w.mu.Unlock()

	go w.mustConnect()
}

func boolPtr(b bool) *bool {
	return &b
}
