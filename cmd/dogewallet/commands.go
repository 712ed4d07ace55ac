package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/urfave/cli"

	"github.com/alamshafil/libdogecoin/keychain"
	"github.com/alamshafil/libdogecoin/netparams"
	"github.com/alamshafil/libdogecoin/tx"
)

func activeParams(ctx *cli.Context) *chaincfg.Params {
	return netparams.ByTestnetFlag(ctx.GlobalBool("testnet"))
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(out))
	return nil
}

var generateCommand = cli.Command{
	Name:  "generate",
	Usage: "Generate a new private key and address.",
	Action: func(ctx *cli.Context) error {
		wif, address, err := keychain.NewKeypair(activeParams(ctx))
		if err != nil {
			return err
		}
		return printJSON(struct {
			PrivateKeyWIF string `json:"private_key_wif"`
			Address       string `json:"address"`
		}{wif, address})
	},
}

var generateHDCommand = cli.Command{
	Name:  "generatehd",
	Usage: "Generate a new hierarchical deterministic master key.",
	Action: func(ctx *cli.Context) error {
		masterKey, address, err := keychain.NewHDMasterKeypair(
			activeParams(ctx),
		)
		if err != nil {
			return err
		}
		return printJSON(struct {
			MasterKey string `json:"master_key"`
			Address   string `json:"address"`
		}{masterKey, address})
	},
}

var deriveCommand = cli.Command{
	Name:      "derive",
	Usage:     "Derive a child key or address from an extended key.",
	ArgsUsage: "master_key",
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "path",
			Usage: "explicit derivation path, e.g. m/44'/3'/0'/0/0",
		},
		cli.Uint64Flag{
			Name:  "account",
			Usage: "BIP44 account for the standard path",
		},
		cli.Uint64Flag{
			Name:  "change",
			Usage: "BIP44 change level (0 or 1)",
		},
		cli.Uint64Flag{
			Name:  "index",
			Usage: "BIP44 address index",
		},
		cli.BoolFlag{
			Name:  "priv",
			Usage: "serialize the derived private key instead of the public one",
		},
	},
	Action: func(ctx *cli.Context) error {
		if !ctx.Args().Present() {
			return errors.New("master_key argument required")
		}
		masterKey := ctx.Args().First()

		if path := ctx.String("path"); path != "" {
			derived, err := keychain.DeriveExtendedKeyByPath(
				masterKey, path, ctx.Bool("priv"),
			)
			if err != nil {
				return err
			}
			return printJSON(struct {
				Path       string `json:"path"`
				DerivedKey string `json:"derived_key"`
			}{path, derived})
		}

		account := uint32(ctx.Uint64("account"))
		change := uint32(ctx.Uint64("change"))
		index := uint32(ctx.Uint64("index"))

		derived, err := keychain.DeriveBip44ExtendedKey(
			masterKey, account, change, index, ctx.Bool("priv"),
		)
		if err != nil {
			return err
		}
		address, err := keychain.DeriveBip44Address(
			masterKey, account, change, index,
		)
		if err != nil {
			return err
		}
		return printJSON(struct {
			DerivedKey string `json:"derived_key"`
			Address    string `json:"address"`
		}{derived, address})
	},
}

var fromMnemonicCommand = cli.Command{
	Name:  "frommnemonic",
	Usage: "Derive a master key or address from a BIP39 mnemonic.",
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "mnemonic",
			Usage: "the BIP39 mnemonic words",
		},
		cli.StringFlag{
			Name:  "passphrase",
			Usage: "optional BIP39 passphrase",
		},
		cli.Uint64Flag{
			Name:  "account",
			Usage: "BIP44 account of the derived address",
		},
		cli.Uint64Flag{
			Name:  "change",
			Usage: "BIP44 change level of the derived address",
		},
		cli.Uint64Flag{
			Name:  "index",
			Usage: "BIP44 index of the derived address",
		},
	},
	Action: func(ctx *cli.Context) error {
		mnemonic := ctx.String("mnemonic")
		if mnemonic == "" {
			return errors.New("mnemonic flag required")
		}
		params := activeParams(ctx)

		masterKey, masterAddr, err := keychain.MasterKeypairFromMnemonic(
			mnemonic, ctx.String("passphrase"), params,
		)
		if err != nil {
			return err
		}
		derivedAddr, err := keychain.DerivedAddressFromMnemonic(
			uint32(ctx.Uint64("account")),
			uint32(ctx.Uint64("index")),
			uint32(ctx.Uint64("change")),
			mnemonic, ctx.String("passphrase"), params,
		)
		if err != nil {
			return err
		}
		return printJSON(struct {
			MasterKey      string `json:"master_key"`
			MasterAddress  string `json:"master_address"`
			DerivedAddress string `json:"derived_address"`
		}{masterKey, masterAddr, derivedAddr})
	},
}

var verifyKeypairCommand = cli.Command{
	Name:      "verifykeypair",
	Usage:     "Check that a WIF private key matches an address.",
	ArgsUsage: "wif address",
	Action: func(ctx *cli.Context) error {
		args := ctx.Args()
		if len(args) != 2 {
			return errors.New("wif and address arguments required")
		}
		ok := keychain.VerifyKeypair(args[0], args[1], activeParams(ctx))
		return printJSON(struct {
			Valid bool `json:"valid"`
		}{ok})
	},
}

var verifyAddressCommand = cli.Command{
	Name:      "verifyaddress",
	Usage:     "Check the base58 checksum of a P2PKH address.",
	ArgsUsage: "address",
	Action: func(ctx *cli.Context) error {
		if !ctx.Args().Present() {
			return errors.New("address argument required")
		}
		ok := keychain.VerifyP2PKHAddress(ctx.Args().First())
		return printJSON(struct {
			Valid bool `json:"valid"`
		}{ok})
	},
}

var signMessageCommand = cli.Command{
	Name:      "signmessage",
	Usage:     "Sign a message with a WIF private key.",
	ArgsUsage: "wif message",
	Action: func(ctx *cli.Context) error {
		args := ctx.Args()
		if len(args) != 2 {
			return errors.New("wif and message arguments required")
		}
		wif, err := btcutil.DecodeWIF(args[0])
		if err != nil {
			return fmt.Errorf("decode WIF: %w", err)
		}
		defer wif.PrivKey.Zero()

		signature, err := keychain.SignMessage(wif.PrivKey, args[1])
		if err != nil {
			return err
		}
		return printJSON(struct {
			Signature string `json:"signature"`
		}{signature})
	},
}

var verifyMessageCommand = cli.Command{
	Name:      "verifymessage",
	Usage:     "Verify a signed message against an address.",
	ArgsUsage: "address signature message",
	Action: func(ctx *cli.Context) error {
		args := ctx.Args()
		if len(args) != 3 {
			return errors.New("address, signature and message " +
				"arguments required")
		}
		ok := keychain.VerifyMessage(args[0], args[1], args[2])
		return printJSON(struct {
			Valid bool `json:"valid"`
		}{ok})
	},
}

var createTxCommand = cli.Command{
	Name:  "createtx",
	Usage: "Build an unsigned transaction from outpoints and address outputs.",
	Flags: []cli.Flag{
		cli.StringSliceFlag{
			Name:  "in",
			Usage: "input outpoint as txid:vout, may be repeated",
		},
		cli.StringSliceFlag{
			Name:  "out",
			Usage: "output as address:amount in koinu, may be repeated",
		},
	},
	Action: func(ctx *cli.Context) error {
		ins := ctx.StringSlice("in")
		outs := ctx.StringSlice("out")
		if len(ins) == 0 || len(outs) == 0 {
			return errors.New("at least one --in and one --out required")
		}
		params := activeParams(ctx)

		t := tx.NewTx()
		for _, in := range ins {
			prevOut, err := parseOutPoint(in)
			if err != nil {
				return err
			}
			t.AddTxIn(tx.NewTxIn(prevOut, nil))
		}
		for _, out := range outs {
			address, amount, err := parseAddressOut(out)
			if err != nil {
				return err
			}
			err = t.AddAddressOut(params, amount, address)
			if err != nil {
				return err
			}
		}

		return printJSON(struct {
			TxID  string `json:"txid"`
			RawTx string `json:"rawtx"`
		}{
			t.TxHash().String(),
			hex.EncodeToString(t.Serialize(true)),
		})
	},
}

var decodeTxCommand = cli.Command{
	Name:      "decodetx",
	Usage:     "Decode a raw transaction hex into a readable dump.",
	ArgsUsage: "rawtx",
	Action: func(ctx *cli.Context) error {
		if !ctx.Args().Present() {
			return errors.New("rawtx argument required")
		}
		serialized, err := hex.DecodeString(ctx.Args().First())
		if err != nil {
			return fmt.Errorf("decode hex: %w", err)
		}

		var t tx.Tx
		if _, err := t.Deserialize(serialized, true); err != nil {
			return err
		}

		type jsonIn struct {
			PrevTxID  string `json:"prev_txid"`
			PrevIndex uint32 `json:"prev_index"`
			ScriptSig string `json:"script_sig"`
			Sequence  uint32 `json:"sequence"`
		}
		type jsonOut struct {
			Value       int64  `json:"value"`
			ScriptClass string `json:"script_class"`
			PkScript    string `json:"pk_script"`
		}

		dump := struct {
			TxID     string    `json:"txid"`
			Version  int32     `json:"version"`
			Inputs   []jsonIn  `json:"inputs"`
			Outputs  []jsonOut `json:"outputs"`
			LockTime uint32    `json:"locktime"`
		}{
			TxID:     t.TxHash().String(),
			Version:  t.Version,
			LockTime: t.LockTime,
		}
		for _, ti := range t.TxIn {
			dump.Inputs = append(dump.Inputs, jsonIn{
				PrevTxID:  ti.PreviousOutPoint.Hash.String(),
				PrevIndex: ti.PreviousOutPoint.Index,
				ScriptSig: hex.EncodeToString(ti.SignatureScript),
				Sequence:  ti.Sequence,
			})
		}
		for _, to := range t.TxOut {
			dump.Outputs = append(dump.Outputs, jsonOut{
				Value:       to.Value,
				ScriptClass: tx.ClassifyScript(to.PkScript).String(),
				PkScript:    hex.EncodeToString(to.PkScript),
			})
		}
		return printJSON(dump)
	},
}

var signTxCommand = cli.Command{
	Name:      "signtx",
	Usage:     "Sign one input of a raw transaction with a WIF private key.",
	ArgsUsage: "rawtx",
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "script",
			Usage: "hex of the previous output script being spent",
		},
		cli.StringFlag{
			Name:  "wif",
			Usage: "WIF private key to sign with",
		},
		cli.IntFlag{
			Name:  "index",
			Usage: "index of the input to sign",
		},
		cli.Int64Flag{
			Name:  "amount",
			Usage: "value of the spent output in koinu",
		},
	},
	Action: func(ctx *cli.Context) error {
		if !ctx.Args().Present() {
			return errors.New("rawtx argument required")
		}
		serialized, err := hex.DecodeString(ctx.Args().First())
		if err != nil {
			return fmt.Errorf("decode hex: %w", err)
		}
		prevoutScript, err := hex.DecodeString(ctx.String("script"))
		if err != nil {
			return fmt.Errorf("decode script hex: %w", err)
		}
		wif, err := btcutil.DecodeWIF(ctx.String("wif"))
		if err != nil {
			return fmt.Errorf("decode WIF: %w", err)
		}
		defer wif.PrivKey.Zero()

		var t tx.Tx
		if _, err := t.Deserialize(serialized, true); err != nil {
			return err
		}

		sig, result := t.SignInput(
			prevoutScript, ctx.Int64("amount"), wif.PrivKey,
			ctx.Int("index"), tx.SigHashAll,
		)
		if result != tx.SignOK && result != tx.SignNoKeyMatch {
			return fmt.Errorf("signing failed: %v", result)
		}

		return printJSON(struct {
			Result    string `json:"result"`
			Signature string `json:"signature_der"`
			RawTx     string `json:"rawtx"`
		}{
			result.String(),
			hex.EncodeToString(sig.DER),
			hex.EncodeToString(t.Serialize(true)),
		})
	},
}

func parseOutPoint(s string) (*tx.OutPoint, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return nil, fmt.Errorf("outpoint %q is not txid:vout", s)
	}
	hash, err := chainhash.NewHashFromStr(parts[0])
	if err != nil {
		return nil, fmt.Errorf("outpoint txid: %w", err)
	}
	vout, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("outpoint index: %w", err)
	}
	return tx.NewOutPoint(hash, uint32(vout)), nil
}

func parseAddressOut(s string) (string, int64, error) {
	idx := strings.LastIndex(s, ":")
	if idx < 0 {
		return "", 0, fmt.Errorf("output %q is not address:amount", s)
	}
	amount, err := strconv.ParseInt(s[idx+1:], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("output amount: %w", err)
	}
	return s[:idx], amount, nil
}
