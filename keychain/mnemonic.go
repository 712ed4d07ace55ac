package keychain

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/tyler-smith/go-bip39"
)

// MasterKeypairFromMnemonic converts a BIP39 mnemonic and optional
// passphrase into the root node of the wallet hierarchy, returning the
// serialized extended private key and the address of the root public key.
// The intermediate seed is wiped before returning.
func MasterKeypairFromMnemonic(mnemonic, passphrase string,
	params *chaincfg.Params) (string, string, error) {

	master, err := masterFromMnemonic(mnemonic, passphrase, params)
	if err != nil {
		return "", "", err
	}
	defer master.Zero()

	address, err := nodeAddress(master, params)
	if err != nil {
		return "", "", err
	}

	return master.String(), address, nil
}

// DerivedAddressFromMnemonic derives the address at the standard wallet
// path m/44'/coin'/account'/change/index from a BIP39 mnemonic and
// optional passphrase.
func DerivedAddressFromMnemonic(account uint32, index uint32, change uint32,
	mnemonic, passphrase string,
	params *chaincfg.Params) (string, error) {

	master, err := masterFromMnemonic(mnemonic, passphrase, params)
	if err != nil {
		return "", err
	}
	defer master.Zero()

	path := Bip44DerivationPath(params, account, change, index)
	indices, err := ParseDerivationPath(path)
	if err != nil {
		return "", err
	}

	node, err := deriveNode(master, indices)
	if err != nil {
		return "", err
	}

	return nodeAddress(node, params)
}

// VerifyMasterKeypairFromMnemonic re-derives the root node from the
// mnemonic and reports whether both the extended private key and the
// address match the supplied values exactly. Any failure collapses to
// false.
func VerifyMasterKeypairFromMnemonic(masterKey, address, mnemonic,
	passphrase string, params *chaincfg.Params) bool {

	derivedKey, derivedAddr, err := MasterKeypairFromMnemonic(
		mnemonic, passphrase, params,
	)
	if err != nil {
		log.Debugf("Mnemonic verification failed: %v", err)
		return false
	}

	return derivedKey == masterKey && derivedAddr == address
}

// masterFromMnemonic validates the mnemonic against the BIP39 wordlist and
// checksum, stretches it into the binary seed and seeds the root node from
// it. The seed is wiped before returning.
func masterFromMnemonic(mnemonic, passphrase string,
	params *chaincfg.Params) (*hdkeychain.ExtendedKey, error) {

	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return nil, fmt.Errorf("mnemonic to seed: %w", err)
	}
	defer zeroBytes(seed)

	master, err := hdkeychain.NewMaster(seed, params)
	if err != nil {
		return nil, fmt.Errorf("derive master node: %w", err)
	}
	return master, nil
}
