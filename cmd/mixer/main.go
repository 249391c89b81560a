package main

import (
	"flag"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/zeromicro/go-zero/core/conf"
	"github.com/zeromicro/go-zero/core/logx"

	"mix-router-sol/internal/config"
	"mix-router-sol/pkg/logger"
)

var configFile = flag.String("f", "etc/mixer.yaml", "the config file")

type command struct {
	name  string
	usage string
	run   func(c config.MixerConfig, args []string) error
}

var commands = []command{
	{"derive", "print intermediate accounts for a seed", runDerive},
	{"simulate", "run one forward on the local ledger", runSimulate},
	{"submit", "send InitializeMix to the rpc endpoint", runSubmit},
	{"watch", "subscribe to confirmed forwards and publish receipts", runWatch},
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: mixer [-f config] <command> [flags]\n\ncommands:\n")
	for _, cmd := range commands {
		fmt.Fprintf(os.Stderr, "  %-9s %s\n", cmd.name, cmd.usage)
	}
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			logx.Errorf("panic: %+v\nstack: %s", r, debug.Stack())
			os.Exit(2)
		}
	}()

	flag.Usage = usage
	flag.Parse()
	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	var c config.MixerConfig
	conf.MustLoad(*configFile, &c)

	if err := logger.Init(c.LogConf.ToLogOption()); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	name, args := flag.Arg(0), flag.Args()[1:]
	for _, cmd := range commands {
		if cmd.name != name {
			continue
		}
		if err := cmd.run(c, args); err != nil {
			logger.Errorf("%s failed: %v", name, err)
			logger.Sync()
			os.Exit(1)
		}
		return
	}
	usage()
	os.Exit(2)
}
