package tx

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
)

var (
	// ErrScriptSize is returned by the data and puzzle output builders
	// when the payload exceeds the maximum size a single script push may
	// carry.
	ErrScriptSize = errors.New("script payload exceeds maximum push size")

	// ErrUnsupportedAddress is returned when an address decodes correctly
	// but does not map to a known output script kind.
	ErrUnsupportedAddress = errors.New("address type unsupported for output script")
)

// ScriptClass is a closed set of recognized output script templates.
type ScriptClass byte

const (
	// NonStandardTy marks a script that matches none of the recognized
	// templates.
	NonStandardTy ScriptClass = iota

	// PubKeyTy is a pay-to-pubkey script.
	PubKeyTy

	// PubKeyHashTy is a pay-to-pubkey-hash script.
	PubKeyHashTy

	// ScriptHashTy is a pay-to-script-hash script.
	ScriptHashTy

	// NullDataTy is an unspendable null data carrying script.
	NullDataTy
)

var scriptClassToName = []string{
	NonStandardTy: "nonstandard",
	PubKeyTy:      "pubkey",
	PubKeyHashTy:  "pubkeyhash",
	ScriptHashTy:  "scripthash",
	NullDataTy:    "nulldata",
}

// String returns the name of the script class.
func (c ScriptClass) String() string {
	if int(c) >= len(scriptClassToName) {
		return "invalid"
	}
	return scriptClassToName[c]
}

// isPubKeyHashScript returns whether the script is in the canonical
// pay-to-pubkey-hash form:
// OP_DUP OP_HASH160 <20 byte hash> OP_EQUALVERIFY OP_CHECKSIG.
func isPubKeyHashScript(script []byte) bool {
	return len(script) == 25 &&
		script[0] == txscript.OP_DUP &&
		script[1] == txscript.OP_HASH160 &&
		script[2] == txscript.OP_DATA_20 &&
		script[23] == txscript.OP_EQUALVERIFY &&
		script[24] == txscript.OP_CHECKSIG
}

// isScriptHashScript returns whether the script is in the canonical
// pay-to-script-hash form: OP_HASH160 <20 byte hash> OP_EQUAL.
func isScriptHashScript(script []byte) bool {
	return len(script) == 23 &&
		script[0] == txscript.OP_HASH160 &&
		script[1] == txscript.OP_DATA_20 &&
		script[22] == txscript.OP_EQUAL
}

// isPubKeyScript returns whether the script is in the canonical
// pay-to-pubkey form: a single pushed compressed or uncompressed public key
// followed by OP_CHECKSIG.
func isPubKeyScript(script []byte) bool {
	switch {
	case len(script) == 35 &&
		script[0] == txscript.OP_DATA_33 &&
		script[34] == txscript.OP_CHECKSIG &&
		(script[1] == 0x02 || script[1] == 0x03):

		return true

	case len(script) == 67 &&
		script[0] == txscript.OP_DATA_65 &&
		script[66] == txscript.OP_CHECKSIG &&
		script[1] == 0x04:

		return true
	}

	return false
}

// ClassifyScript pattern matches the script against the recognized output
// templates and returns its class, or NonStandardTy when no template
// matches.
func ClassifyScript(script []byte) ScriptClass {
	switch {
	case isPubKeyHashScript(script):
		return PubKeyHashTy
	case isScriptHashScript(script):
		return ScriptHashTy
	case isPubKeyScript(script):
		return PubKeyTy
	case len(script) > 0 && script[0] == txscript.OP_RETURN:
		return NullDataTy
	}
	return NonStandardTy
}

// ExtractHash160 returns the 20 byte hash embedded in a pay-to-pubkey-hash
// or pay-to-script-hash script, or nil for any other class.
func ExtractHash160(script []byte) []byte {
	switch {
	case isPubKeyHashScript(script):
		return script[3:23]
	case isScriptHashScript(script):
		return script[2:22]
	}
	return nil
}

// ExtractPubKey returns the serialized public key embedded in a
// pay-to-pubkey script, or nil for any other class.
func ExtractPubKey(script []byte) []byte {
	if !isPubKeyScript(script) {
		return nil
	}
	return script[1 : len(script)-1]
}

// PayToPubKeyHashScript builds the canonical pay-to-pubkey-hash script for
// the given 20 byte hash.
func PayToPubKeyHashScript(pkHash []byte) ([]byte, error) {
	return txscript.NewScriptBuilder().
		AddOp(txscript.OP_DUP).
		AddOp(txscript.OP_HASH160).
		AddData(pkHash).
		AddOp(txscript.OP_EQUALVERIFY).
		AddOp(txscript.OP_CHECKSIG).
		Script()
}

// PayToScriptHashScript builds the canonical pay-to-script-hash script for
// the given 20 byte script hash.
func PayToScriptHashScript(scriptHash []byte) ([]byte, error) {
	return txscript.NewScriptBuilder().
		AddOp(txscript.OP_HASH160).
		AddData(scriptHash).
		AddOp(txscript.OP_EQUAL).
		Script()
}

// AddAddressOut appends an output paying to the given base58check encoded
// address. The address prefix table of the provided network decides whether
// the resulting script is pay-to-pubkey-hash or pay-to-script-hash. A
// checksum failure or an address kind with no known script template is an
// error and leaves the transaction unchanged.
func (t *Tx) AddAddressOut(params *chaincfg.Params, amount int64,
	address string) error {

	addr, err := btcutil.DecodeAddress(address, params)
	if err != nil {
		return fmt.Errorf("decode address %q: %w", address, err)
	}
	if !addr.IsForNet(params) {
		return fmt.Errorf("address %q is not valid for network %v",
			address, params.Name)
	}

	switch a := addr.(type) {
	case *btcutil.AddressPubKeyHash:
		return t.AddP2PKHHash160Out(amount, a.Hash160()[:])

	case *btcutil.AddressScriptHash:
		return t.AddP2SHHash160Out(amount, a.Hash160()[:])

	default:
		return ErrUnsupportedAddress
	}
}

// AddP2PKHHash160Out appends a pay-to-pubkey-hash output built directly
// from a 20 byte public key hash.
func (t *Tx) AddP2PKHHash160Out(amount int64, pkHash []byte) error {
	script, err := PayToPubKeyHashScript(pkHash)
	if err != nil {
		return err
	}
	t.AddTxOut(NewTxOut(amount, script))
	return nil
}

// AddP2SHHash160Out appends a pay-to-script-hash output built directly from
// a 20 byte script hash.
func (t *Tx) AddP2SHHash160Out(amount int64, scriptHash []byte) error {
	script, err := PayToScriptHashScript(scriptHash)
	if err != nil {
		return err
	}
	t.AddTxOut(NewTxOut(amount, script))
	return nil
}

// AddP2PKHOut appends a pay-to-pubkey-hash output paying to the hash160 of
// the given serialized public key.
func (t *Tx) AddP2PKHOut(amount int64, pubKey []byte) error {
	return t.AddP2PKHHash160Out(amount, btcutil.Hash160(pubKey))
}

// AddDataOut appends an unspendable null data output carrying the given
// bytes. Payloads larger than the maximum script push size are rejected, as
// no such script could ever be relayed.
func (t *Tx) AddDataOut(amount int64, data []byte) error {
	if len(data) > txscript.MaxScriptElementSize {
		return ErrScriptSize
	}

	script, err := txscript.NewScriptBuilder().
		AddOp(txscript.OP_RETURN).
		AddData(data).
		Script()
	if err != nil {
		return err
	}
	t.AddTxOut(NewTxOut(amount, script))
	return nil
}

// AddPuzzleOut appends an output spendable by whoever can provide a
// preimage whose double SHA-256 matches the embedded puzzle bytes. The same
// push size ceiling as data outputs applies.
func (t *Tx) AddPuzzleOut(amount int64, puzzle []byte) error {
	if len(puzzle) > txscript.MaxScriptElementSize {
		return ErrScriptSize
	}

	script, err := txscript.NewScriptBuilder().
		AddOp(txscript.OP_HASH256).
		AddData(puzzle).
		AddOp(txscript.OP_EQUAL).
		Script()
	if err != nil {
		return err
	}
	t.AddTxOut(NewTxOut(amount, script))
	return nil
}
