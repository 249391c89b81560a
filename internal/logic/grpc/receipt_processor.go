package grpc

import (
	"context"
	"errors"
	"time"

	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
	"github.com/zeromicro/go-zero/core/logx"

	"mix-router-sol/internal/service"
	"mix-router-sol/internal/types"
)

// ReceiptProcessor 消费 StreamWatcher 推送的交易，还原回执后发布
type ReceiptProcessor struct {
	programID      types.Pubkey
	txChan         <-chan *pb.SubscribeUpdateTransaction
	sink           service.ReceiptSink
	publishTimeout time.Duration
	ctx            context.Context
	cancel         func(err error)
	logx.Logger
}

func NewReceiptProcessor(programID types.Pubkey, txChan <-chan *pb.SubscribeUpdateTransaction, sink service.ReceiptSink, publishTimeout time.Duration) *ReceiptProcessor {
	ctx, cancel := context.WithCancelCause(context.Background())
	if publishTimeout <= 0 {
		publishTimeout = 5 * time.Second
	}
	return &ReceiptProcessor{
		programID:      programID,
		txChan:         txChan,
		sink:           sink,
		publishTimeout: publishTimeout,
		ctx:            ctx,
		cancel:         cancel,
		Logger:         logx.WithContext(ctx).WithFields(logx.Field("service", "receipt_processor")),
	}
}

func (p *ReceiptProcessor) Start() {
	for {
		select {
		case <-p.ctx.Done():
			return
		case update, ok := <-p.txChan:
			if !ok {
				return
			}
			p.procTx(update)
		}
	}
}

func (p *ReceiptProcessor) Stop() {
	p.cancel(errors.New("service stop"))
}

func (p *ReceiptProcessor) procTx(update *pb.SubscribeUpdateTransaction) {
	if update == nil {
		return
	}
	receipts, err := ReceiptsFromUpdate(p.programID, update.Transaction, update.Slot)
	if err != nil {
		p.Errorf("skip tx at slot %d: %v", update.Slot, err)
		return
	}
	if len(receipts) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(p.ctx, p.publishTimeout)
	defer cancel()
	if err := p.sink.Publish(ctx, receipts...); err != nil {
		p.Errorf("publish %d receipts at slot %d failed: %v", len(receipts), update.Slot, err)
		return
	}
	for _, r := range receipts {
		p.Infof("mix confirmed: sig=%s slot=%d payer=%s layers=%d amount=%d",
			r.Signature, r.Slot, r.Payer, r.MixLayers, r.Amount)
	}
}
