package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/johejo/referral"
)

var (
	rootOpts struct {
		configFile string
		genKey     bool
	}
)

func init() {
	flag.StringVar(&rootOpts.configFile, "config", "", "referral config file (defaults apply when empty)")
	flag.BoolVar(&rootOpts.genKey, "gen-key", false, "print a random file storage key and exit")
}

func main() {
	flag.Parse()
	if rootOpts.genKey {
		fmt.Println(referral.GenerateSnapshotKey())
		return
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	log.SetFlags(log.Lmicroseconds | log.LstdFlags | log.Lshortfile)
	if err := run(ctx); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context) error {
	config, err := referral.LoadConfig(rootOpts.configFile)
	if err != nil {
		return err
	}
	s, err := referral.NewServerWithConfig(ctx, config)
	if err != nil {
		return err
	}
	return s.Run(ctx)
}
