package keychain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"

	"github.com/alamshafil/libdogecoin/netparams"
)

const (
	// Bip44Purpose is the BIP43 purpose field used for the standard
	// wallet derivation scheme: m/44'/coin'/account'/change/index.
	Bip44Purpose uint32 = 44

	// maxDerivationPathDepth bounds the number of segments a path string
	// may carry. Anything deeper than this is a malformed path, not a
	// legitimate wallet hierarchy.
	maxDerivationPathDepth = 255
)

var (
	// ErrMalformedPath is returned when a derivation path string cannot
	// be parsed.
	ErrMalformedPath = errors.New("malformed derivation path")

	// ErrPrivateDerivation is returned when private key material is
	// required, either by a hardened derivation step or by a request for
	// a private extended key, but the node only carries a public key.
	ErrPrivateDerivation = errors.New("private key required for derivation")
)

// ParseDerivationPath parses a BIP32 style path of the form
// m/44'/3'/0'/0/0 into its child indices. An apostrophe marks a hardened
// index and adds the hardened offset. Malformed paths are rejected rather
// than truncated: wrong shape, non numeric segments and out of range
// indices are all hard errors.
func ParseDerivationPath(path string) ([]uint32, error) {
	segments := strings.Split(strings.TrimSpace(path), "/")
	if segments[0] != "m" {
		return nil, fmt.Errorf("%w: path must start with m/",
			ErrMalformedPath)
	}
	segments = segments[1:]

	if len(segments) > maxDerivationPathDepth {
		return nil, fmt.Errorf("%w: depth %d exceeds maximum %d",
			ErrMalformedPath, len(segments), maxDerivationPathDepth)
	}

	indices := make([]uint32, 0, len(segments))
	for _, segment := range segments {
		hardened := false
		if strings.HasSuffix(segment, "'") ||
			strings.HasSuffix(segment, "h") {

			hardened = true
			segment = segment[:len(segment)-1]
		}
		if segment == "" {
			return nil, fmt.Errorf("%w: empty segment",
				ErrMalformedPath)
		}

		index, err := strconv.ParseUint(segment, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: segment %q: %v",
				ErrMalformedPath, segment, err)
		}
		if index >= hdkeychain.HardenedKeyStart {
			return nil, fmt.Errorf("%w: index %d out of range",
				ErrMalformedPath, index)
		}

		if hardened {
			index += hdkeychain.HardenedKeyStart
		}
		indices = append(indices, uint32(index))
	}

	return indices, nil
}

// Bip44DerivationPath renders the standard wallet path
// m/44'/coin'/account'/change/index for the given network's coin type.
func Bip44DerivationPath(params *chaincfg.Params, account uint32,
	change uint32, index uint32) string {

	return fmt.Sprintf("m/%d'/%d'/%d'/%d/%d", Bip44Purpose,
		params.HDCoinType, account, change, index)
}

// DeriveExtendedKeyByPath walks the given derivation path starting from the
// serialized extended key and returns the resulting node as an extended key
// string. When wantPriv is set the derived private key is serialized, which
// requires the starting key to be private. A public only starting key may
// still walk non hardened steps; a hardened step without private key
// material is a hard failure, never a silent downgrade to public
// derivation.
func DeriveExtendedKeyByPath(masterKey, path string,
	wantPriv bool) (string, error) {

	indices, err := ParseDerivationPath(path)
	if err != nil {
		return "", err
	}

	key, err := hdkeychain.NewKeyFromString(masterKey)
	if err != nil {
		return "", fmt.Errorf("decode extended key: %w", err)
	}
	if wantPriv && !key.IsPrivate() {
		return "", ErrPrivateDerivation
	}

	node, err := deriveNode(key, indices)
	if err != nil {
		return "", err
	}

	if wantPriv {
		return node.String(), nil
	}
	neutered, err := node.Neuter()
	if err != nil {
		return "", fmt.Errorf("neuter derived key: %w", err)
	}
	return neutered.String(), nil
}

// DeriveBip44ExtendedKey derives the standard wallet path for the network
// the master key belongs to, inferred from its base58 prefix.
func DeriveBip44ExtendedKey(masterKey string, account uint32, change uint32,
	index uint32, wantPriv bool) (string, error) {

	params := netparams.FromExtendedKeyPrefix(masterKey)
	path := Bip44DerivationPath(params, account, change, index)
	return DeriveExtendedKeyByPath(masterKey, path, wantPriv)
}

// DeriveBip44Address derives the pay-to-pubkey-hash address at the standard
// wallet path m/44'/coin'/account'/change/index below the given master key.
func DeriveBip44Address(masterKey string, account uint32, change uint32,
	index uint32) (string, error) {

	params := netparams.FromExtendedKeyPrefix(masterKey)

	key, err := hdkeychain.NewKeyFromString(masterKey)
	if err != nil {
		return "", fmt.Errorf("decode extended key: %w", err)
	}

	path := Bip44DerivationPath(params, account, change, index)
	indices, err := ParseDerivationPath(path)
	if err != nil {
		return "", err
	}

	node, err := deriveNode(key, indices)
	if err != nil {
		return "", err
	}

	return nodeAddress(node, params)
}

// deriveNode walks the child indices from the starting key. Every step
// produces a new node; parents are never mutated. Hardened steps on a
// public only key surface hdkeychain's derivation error.
func deriveNode(key *hdkeychain.ExtendedKey,
	indices []uint32) (*hdkeychain.ExtendedKey, error) {

	node := key
	for depth, index := range indices {
		child, err := node.Derive(index)
		if err != nil {
			if errors.Is(err, hdkeychain.ErrDeriveHardFromPublic) {
				return nil, fmt.Errorf("%w: hardened step at "+
					"depth %d", ErrPrivateDerivation,
					depth+1)
			}
			return nil, fmt.Errorf("derive depth %d: %w",
				depth+1, err)
		}
		node = child
	}
	return node, nil
}

// nodeAddress renders the pay-to-pubkey-hash address of a node's public
// key on the given network.
func nodeAddress(node *hdkeychain.ExtendedKey,
	params *chaincfg.Params) (string, error) {

	addr, err := node.Address(params)
	if err != nil {
		return "", fmt.Errorf("derive address: %w", err)
	}
	return addr.EncodeAddress(), nil
}
