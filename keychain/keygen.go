package keychain

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/alamshafil/libdogecoin/netparams"
)

// ErrInvalidPrivateKey is returned when private key bytes are zero or not
// within the valid range of the curve order.
var ErrInvalidPrivateKey = errors.New("invalid private key")

// NewKeypair generates a fresh random private key and returns it in WIF
// form together with the pay-to-pubkey-hash address of its compressed
// public key on the given network. The scratch key object is wiped before
// returning; the WIF string is the only remaining copy and is owned by the
// caller.
func NewKeypair(params *chaincfg.Params) (string, string, error) {
	privKey, err := btcec.NewPrivateKey()
	if err != nil {
		return "", "", fmt.Errorf("generate private key: %w", err)
	}
	defer privKey.Zero()

	wif, err := btcutil.NewWIF(privKey, params, true)
	if err != nil {
		return "", "", fmt.Errorf("encode WIF: %w", err)
	}

	address, err := AddressFromPubKey(
		privKey.PubKey().SerializeCompressed(), params,
	)
	if err != nil {
		return "", "", err
	}

	log.Debugf("Generated keypair with address %v on %v", address,
		params.Name)

	return wif.String(), address, nil
}

// NewHDMasterKeypair seeds a hierarchical deterministic master node from
// fresh entropy and returns its serialized extended private key together
// with the pay-to-pubkey-hash address of the master public key. The seed
// and the scratch node are wiped before returning.
func NewHDMasterKeypair(params *chaincfg.Params) (string, string, error) {
	seed, err := hdkeychain.GenerateSeed(hdkeychain.RecommendedSeedLen)
	if err != nil {
		return "", "", fmt.Errorf("generate seed: %w", err)
	}
	defer zeroBytes(seed)

	master, err := hdkeychain.NewMaster(seed, params)
	if err != nil {
		return "", "", fmt.Errorf("derive master node: %w", err)
	}
	defer master.Zero()

	address, err := nodeAddress(master, params)
	if err != nil {
		return "", "", err
	}

	return master.String(), address, nil
}

// DerivedAddressFromMaster returns the pay-to-pubkey-hash address of the
// node encoded in the given extended key string. The network is inferred
// from the key's base58 prefix, so this works for both private and public
// extended keys on either network.
func DerivedAddressFromMaster(masterKey string) (string, error) {
	params := netparams.FromExtendedKeyPrefix(masterKey)

	key, err := hdkeychain.NewKeyFromString(masterKey)
	if err != nil {
		return "", fmt.Errorf("decode extended key: %w", err)
	}

	return nodeAddress(key, params)
}

// AddressFromPubKey returns the pay-to-pubkey-hash address of a serialized
// public key on the given network.
func AddressFromPubKey(pubKey []byte, params *chaincfg.Params) (string, error) {
	addr, err := btcutil.NewAddressPubKeyHash(
		btcutil.Hash160(pubKey), params,
	)
	if err != nil {
		return "", fmt.Errorf("derive address: %w", err)
	}
	return addr.EncodeAddress(), nil
}

// AddressFromPrivKeyHex derives the pay-to-pubkey-hash address belonging to
// a hex encoded 32 byte private key. Keys outside the valid curve range are
// rejected. The scratch key is wiped before returning.
func AddressFromPrivKeyHex(privKeyHex string,
	params *chaincfg.Params) (string, error) {

	keyBytes, err := hex.DecodeString(privKeyHex)
	if err != nil {
		return "", fmt.Errorf("decode private key hex: %w", err)
	}
	defer zeroBytes(keyBytes)

	if len(keyBytes) != 32 {
		return "", fmt.Errorf("%w: length %d", ErrInvalidPrivateKey,
			len(keyBytes))
	}

	var privKey secp256k1.PrivateKey
	overflow := privKey.Key.SetByteSlice(keyBytes)
	if overflow || privKey.Key.IsZero() {
		return "", ErrInvalidPrivateKey
	}
	defer privKey.Zero()

	return AddressFromPubKey(
		privKey.PubKey().SerializeCompressed(), params,
	)
}
