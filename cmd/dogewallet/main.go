package main

import (
	"fmt"
	"os"

	"github.com/btcsuite/btclog/v2"
	"github.com/urfave/cli"

	"github.com/alamshafil/libdogecoin/keychain"
	"github.com/alamshafil/libdogecoin/tx"
)

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "[dogewallet] %v\n", err)
	os.Exit(1)
}

func main() {
	app := cli.NewApp()
	app.Name = "dogewallet"
	app.Version = "0.1.0"
	app.Usage = "key, address and transaction tooling for Dogecoin"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "testnet",
			Usage: "use the test network parameters",
		},
		cli.BoolFlag{
			Name:  "debug",
			Usage: "enable debug logging to stderr",
		},
	}
	app.Before = func(ctx *cli.Context) error {
		if !ctx.GlobalBool("debug") {
			return nil
		}
		logger := btclog.NewSLogger(
			btclog.NewDefaultHandler(os.Stderr),
		)
		logger.SetLevel(btclog.LevelDebug)
		tx.UseLogger(logger)
		keychain.UseLogger(logger)
		return nil
	}
	app.Commands = []cli.Command{
		generateCommand,
		generateHDCommand,
		deriveCommand,
		fromMnemonicCommand,
		verifyKeypairCommand,
		verifyAddressCommand,
		signMessageCommand,
		verifyMessageCommand,
		createTxCommand,
		decodeTxCommand,
		signTxCommand,
	}

	if err := app.Run(os.Args); err != nil {
		fatal(err)
	}
}
