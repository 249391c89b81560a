package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdktypes "github.com/blocto/solana-go-sdk/types"
	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
	"github.com/zeromicro/go-zero/core/logx"
	zerosvc "github.com/zeromicro/go-zero/core/service"

	"mix-router-sol/internal/config"
	"mix-router-sol/internal/logic/client"
	"mix-router-sol/internal/logic/grpc"
	"mix-router-sol/internal/logic/ledger"
	"mix-router-sol/internal/service"
	"mix-router-sol/internal/svc"
	"mix-router-sol/internal/types"
)

// requestFlags 各子命令共用的请求参数，未指定时取配置文件中的默认值
type requestFlags struct {
	amount    uint64
	layers    uint
	seed      uint64
	recipient string
}

func bindRequestFlags(fs *flag.FlagSet, d config.RequestConfig) *requestFlags {
	f := &requestFlags{}
	fs.Uint64Var(&f.amount, "amount", d.Amount, "lamports to forward")
	fs.UintVar(&f.layers, "layers", uint(d.MixLayers), "number of intermediate accounts (1-4)")
	fs.Uint64Var(&f.seed, "seed", d.Seed, "derivation seed, 0 for random")
	fs.StringVar(&f.recipient, "recipient", d.Recipient, "recipient address (base58)")
	return f
}

func (f *requestFlags) resolveSeed() (uint64, error) {
	if f.seed != 0 {
		return f.seed, nil
	}
	return client.RandomSeed()
}

func (f *requestFlags) mixLayers() (uint8, error) {
	if f.layers > 255 {
		return 0, fmt.Errorf("invalid layers: %d", f.layers)
	}
	return uint8(f.layers), nil
}

func runDerive(c config.MixerConfig, args []string) error {
	fs := flag.NewFlagSet("derive", flag.ExitOnError)
	f := bindRequestFlags(fs, c.Request)
	if err := fs.Parse(args); err != nil {
		return err
	}

	programID, err := c.Program()
	if err != nil {
		return err
	}
	seed, err := f.resolveSeed()
	if err != nil {
		return err
	}
	layers, err := f.mixLayers()
	if err != nil {
		return err
	}

	pdas, err := client.PreviewPDAs(programID, seed, layers)
	if err != nil {
		return err
	}
	fmt.Printf("program: %s\nseed:    %d\n", programID, seed)
	for layer, d := range pdas {
		fmt.Printf("layer %d: %s (bump %d)\n", layer, d.Address, d.Bump)
	}
	return nil
}

func runSimulate(c config.MixerConfig, args []string) error {
	fs := flag.NewFlagSet("simulate", flag.ExitOnError)
	f := bindRequestFlags(fs, c.Request)
	genesisFile := fs.String("genesis", c.GenesisFile, "genesis yaml with initial balances")
	payerStr := fs.String("payer", "", "payer address (base58)")
	feePayerStr := fs.String("fee-payer", "", "fee payer address (base58), defaults to payer")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sc, err := svc.NewServiceContext(c)
	if err != nil {
		return err
	}
	defer sc.Close()

	bank := ledger.NewBank()
	if *genesisFile != "" {
		genesis, err := ledger.LoadGenesis(*genesisFile)
		if err != nil {
			return err
		}
		if err := genesis.Apply(bank); err != nil {
			return err
		}
	}

	payer, err := types.TryPubkeyFromBase58(*payerStr)
	if err != nil {
		return fmt.Errorf("payer: %w", err)
	}
	feePayer := payer
	if *feePayerStr != "" {
		if feePayer, err = types.TryPubkeyFromBase58(*feePayerStr); err != nil {
			return fmt.Errorf("fee-payer: %w", err)
		}
	}
	recipient, err := types.TryPubkeyFromBase58(f.recipient)
	if err != nil {
		return fmt.Errorf("recipient: %w", err)
	}
	seed, err := f.resolveSeed()
	if err != nil {
		return err
	}
	layers, err := f.mixLayers()
	if err != nil {
		return err
	}

	mixService := service.NewMixService(ledger.NewRuntime(bank), sc.ProgramID, sc.Guard, sc.Sink)
	r, err := mixService.Forward(context.Background(), client.MixParams{
		FeePayer:  feePayer,
		Payer:     payer,
		Recipient: recipient,
		Amount:    f.amount,
		MixLayers: layers,
		Seed:      seed,
	})
	if err != nil {
		return err
	}

	fmt.Printf("signature: %s\nslot:      %d\nseed:      %d\n", r.Signature, r.Slot, r.Seed)
	for i, h := range r.Hops {
		fmt.Printf("hop %d: %s -> %s (%d)\n", i, h.From, h.To, h.Amount)
	}
	fmt.Printf("payer balance:     %d\nrecipient balance: %d\n", bank.Balance(payer), bank.Balance(recipient))
	return nil
}

func loadSigner(path, name string) (sdktypes.Account, error) {
	if path == "" {
		return sdktypes.Account{}, fmt.Errorf("%s keypair not configured", name)
	}
	return client.LoadKeypair(path)
}

func runSubmit(c config.MixerConfig, args []string) error {
	fs := flag.NewFlagSet("submit", flag.ExitOnError)
	f := bindRequestFlags(fs, c.Request)
	payerPath := fs.String("payer-keypair", c.Request.PayerKeypair, "payer keypair json")
	feePayerPath := fs.String("fee-payer-keypair", c.Request.FeePayerKeypair, "fee payer keypair json, defaults to payer")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sc, err := svc.NewServiceContext(c)
	if err != nil {
		return err
	}
	defer sc.Close()

	payer, err := loadSigner(*payerPath, "payer")
	if err != nil {
		return err
	}
	feePayer := payer
	if *feePayerPath != "" {
		if feePayer, err = loadSigner(*feePayerPath, "fee payer"); err != nil {
			return err
		}
	}
	recipient, err := types.TryPubkeyFromBase58(f.recipient)
	if err != nil {
		return fmt.Errorf("recipient: %w", err)
	}
	seed, err := f.resolveSeed()
	if err != nil {
		return err
	}
	layers, err := f.mixLayers()
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := sc.Guard.Acquire(ctx, seed); err != nil {
		return err
	}
	submitter := client.NewSubmitter(sc.Rpc, sc.ProgramID, time.Duration(c.Rpc.TimeoutSec)*time.Second)
	res, err := submitter.Submit(ctx, client.SubmitRequest{
		FeePayer:  feePayer,
		Payer:     payer,
		Recipient: recipient,
		Amount:    f.amount,
		MixLayers: layers,
		Seed:      seed,
	})
	sc.Guard.Release(ctx, seed, err == nil)
	if err != nil {
		return err
	}

	fmt.Printf("signature: %s\nseed:      %d\n", res.Signature, res.Seed)
	for layer, addr := range res.PDAs {
		fmt.Printf("layer %d: %s\n", layer, addr)
	}
	return nil
}

func runWatch(c config.MixerConfig, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	sc, err := svc.NewServiceContext(c)
	if err != nil {
		return err
	}
	defer sc.Close()

	txChan := make(chan *pb.SubscribeUpdateTransaction, 200)
	watcher, err := grpc.NewStreamWatcher(c.Grpc, sc.ProgramID, txChan)
	if err != nil {
		return err
	}
	processor := grpc.NewReceiptProcessor(sc.ProgramID, txChan, sc.Sink, c.KafkaProducerConf.SendTimeout())

	sg := zerosvc.NewServiceGroup()
	sg.Add(watcher)
	sg.Add(processor)

	logx.Infof("Starting mix watcher for program %s", sc.ProgramID)
	go sg.Start()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logx.Info("Shutting down services...")
	sg.Stop()
	return nil
}
