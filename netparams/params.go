package netparams

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"
)

// CoinTypeDogecoin is the SLIP-0044 registered coin type used for BIP44
// derivation on the Dogecoin main network.
const CoinTypeDogecoin uint32 = 3

// CoinTypeTestnet is the coin type used for BIP44 derivation on any test
// network.
const CoinTypeTestnet uint32 = 1

// MainNetParams contains the parameters for the Dogecoin main network. Only
// the fields consumed by the address, WIF and extended key codecs are
// populated, which is the full surface a wallet engine needs.
var MainNetParams = chaincfg.Params{
	Name: "doge",
	Net:  wire.BitcoinNet(0xc0c0c0c0),

	// Human-readable part for Bech32 encoded segwit addresses.
	Bech32HRPSegwit: "doge",

	// Address encoding magics.
	PubKeyHashAddrID: 0x1e, // starts with D
	ScriptHashAddrID: 0x16, // starts with 9 or A
	PrivateKeyID:     0x9e, // starts with 6 (uncompressed) or Q (compressed)

	// BIP32 hierarchical deterministic extended key magics.
	HDPrivateKeyID: [4]byte{0x02, 0xfa, 0xc3, 0x98}, // starts with dgpv
	HDPublicKeyID:  [4]byte{0x02, 0xfa, 0xca, 0xfd}, // starts with dgub

	// BIP44 coin type used in the hierarchical deterministic path for
	// address generation.
	HDCoinType: CoinTypeDogecoin,
}

// TestNet3Params contains the parameters for the Dogecoin test network
// (version 3).
var TestNet3Params = chaincfg.Params{
	Name: "dogetestnet3",
	Net:  wire.BitcoinNet(0xdcb7c1fc),

	Bech32HRPSegwit: "tdge",

	// Address encoding magics.
	PubKeyHashAddrID: 0x71, // starts with n
	ScriptHashAddrID: 0xc4, // starts with 2
	PrivateKeyID:     0xf1,

	// BIP32 hierarchical deterministic extended key magics.
	HDPrivateKeyID: [4]byte{0x04, 0x35, 0x83, 0x94},
	HDPublicKeyID:  [4]byte{0x04, 0x35, 0x87, 0xcf},

	HDCoinType: CoinTypeTestnet,
}

// Register the networks with the btcsuite address and extended key
// registries so that btcutil address decoding and hdkeychain neutering
// resolve Dogecoin prefixes. Dogecoin regtest is deliberately absent: it
// shares its network magic with Bitcoin regtest and the registry rejects
// duplicates.
func init() {
	mustRegister(&MainNetParams)
	mustRegister(&TestNet3Params)
}

func mustRegister(params *chaincfg.Params) {
	if err := chaincfg.Register(params); err != nil {
		panic(fmt.Sprintf("unable to register network %v: %v",
			params.Name, err))
	}
}

// ByTestnetFlag returns the main network parameters when testnet is false and
// the test network parameters otherwise.
func ByTestnetFlag(testnet bool) *chaincfg.Params {
	if testnet {
		return &TestNet3Params
	}
	return &MainNetParams
}

// FromExtendedKeyPrefix infers the network an extended key string belongs to
// from its human readable prefix. An unknown prefix maps to the main network
// parameters, matching the permissive behavior of the original chain lookup
// used by wallet tooling.
func FromExtendedKeyPrefix(xkey string) *chaincfg.Params {
	switch {
	case strings.HasPrefix(xkey, "dgpv"), strings.HasPrefix(xkey, "dgub"):
		return &MainNetParams
	case strings.HasPrefix(xkey, "tprv"), strings.HasPrefix(xkey, "tpub"),
		strings.HasPrefix(xkey, "tgpv"), strings.HasPrefix(xkey, "tgub"):
		return &TestNet3Params
	default:
		return &MainNetParams
	}
}
