package netparams

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/require"
)

func TestByTestnetFlag(t *testing.T) {
	require.Equal(t, &MainNetParams, ByTestnetFlag(false))
	require.Equal(t, &TestNet3Params, ByTestnetFlag(true))
}

func TestNetworksAreRegistered(t *testing.T) {
	// Registration happens in init; a second attempt must report the
	// duplicate.
	require.ErrorIs(t,
		chaincfg.Register(&MainNetParams), chaincfg.ErrDuplicateNet)
	require.ErrorIs(t,
		chaincfg.Register(&TestNet3Params), chaincfg.ErrDuplicateNet)

	// The address magics resolve through the registry.
	require.True(t, chaincfg.IsPubKeyHashAddrID(
		MainNetParams.PubKeyHashAddrID))
	require.True(t, chaincfg.IsScriptHashAddrID(
		MainNetParams.ScriptHashAddrID))
	require.True(t, chaincfg.IsPubKeyHashAddrID(
		TestNet3Params.PubKeyHashAddrID))
}

func TestHDKeyMagics(t *testing.T) {
	pub, err := chaincfg.HDPrivateKeyToPublicKeyID(
		MainNetParams.HDPrivateKeyID[:])
	require.NoError(t, err)
	require.Equal(t, MainNetParams.HDPublicKeyID[:], pub)

	pub, err = chaincfg.HDPrivateKeyToPublicKeyID(
		TestNet3Params.HDPrivateKeyID[:])
	require.NoError(t, err)
	require.Equal(t, TestNet3Params.HDPublicKeyID[:], pub)
}

func TestFromExtendedKeyPrefix(t *testing.T) {
	tests := []struct {
		xkey   string
		params *chaincfg.Params
	}{
		{"dgpv51eADS3spNJh...", &MainNetParams},
		{"dgub8kXBZ7ymNWy2...", &MainNetParams},
		{"tprv8ZgxMBicQKsPd...", &TestNet3Params},
		{"tpub661MyMwAqRbcF...", &TestNet3Params},
		{"tgpv1...", &TestNet3Params},
		{"", &MainNetParams},
		{"xprv unknown prefix", &MainNetParams},
	}

	for _, test := range tests {
		require.Equal(t, test.params, FromExtendedKeyPrefix(test.xkey),
			"prefix %q", test.xkey)
	}
}

func TestCoinTypes(t *testing.T) {
	require.Equal(t, CoinTypeDogecoin, MainNetParams.HDCoinType)
	require.Equal(t, CoinTypeTestnet, TestNet3Params.HDCoinType)
}
