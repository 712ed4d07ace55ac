package keychain

import (
	"bytes"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// p2pkhPayloadLen is the decoded length of a base58check pay-to-pubkey-hash
// address: version byte + 20 byte hash + 4 byte checksum.
const p2pkhPayloadLen = 25

// VerifyKeypair re-derives the address belonging to a WIF encoded private
// key and reports whether it matches the supplied address exactly. Any
// decode failure, a key for the wrong network or an address mismatch all
// collapse to false; callers needing the reason use the individual
// operations directly.
func VerifyKeypair(wifKey, address string, params *chaincfg.Params) bool {
	wif, err := btcutil.DecodeWIF(wifKey)
	if err != nil {
		log.Debugf("Keypair verification failed: %v", err)
		return false
	}
	if !wif.IsForNet(params) {
		return false
	}

	derived, err := AddressFromPubKey(wif.SerializePubKey(), params)
	if err != nil {
		return false
	}
	return derived == address
}

// VerifyHDMasterKeypair re-derives the address of the master node encoded
// in an extended private key and reports whether it matches the supplied
// address exactly.
func VerifyHDMasterKeypair(masterKey, address string,
	params *chaincfg.Params) bool {

	key, err := hdkeychain.NewKeyFromString(masterKey)
	if err != nil {
		log.Debugf("Master keypair verification failed: %v", err)
		return false
	}
	if !key.IsForNet(params) {
		return false
	}

	derived, err := nodeAddress(key, params)
	if err != nil {
		return false
	}
	return derived == address
}

// VerifyP2PKHAddress reports whether a string is a well formed
// base58check pay-to-pubkey-hash address: it must decode to the expected
// payload length and the double SHA-256 checksum recomputed over the
// version byte and hash must match the trailing four bytes.
func VerifyP2PKHAddress(address string) bool {
	decoded := base58.Decode(address)
	if len(decoded) != p2pkhPayloadLen {
		return false
	}

	payload := decoded[:p2pkhPayloadLen-4]
	checksum := chainhash.DoubleHashB(payload)[:4]
	return bytes.Equal(checksum, decoded[p2pkhPayloadLen-4:])
}
