package keychain

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/stretchr/testify/require"

	"github.com/alamshafil/libdogecoin/netparams"
)

const (
	// fixturePubKeyHex pays to fixtureAddress on the main network.
	fixturePubKeyHex = "039ca1fdedbe160cb7b14df2a798c8fed41ad4ed30b06a85" +
		"ad23e03abe43c413b2"
	fixtureAddress = "DTwqVfB7tbwca2PzwBvPV1g1xDB2YPrCYh"

	// fixtureWIF encodes the private key behind fixtureWIFPubKeyHex.
	fixtureWIF       = "QUaohmokNWroj71dRtmPSses5eRw5SGLKsYSRSVisJHyZdxhdDCZ"
	fixtureWIFPubKey = "024c33fbb2f6accde1db907e88ebf5dd1693e31433c62aae" +
		"ef42f7640974f602ba"
)

func mustDecodeHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func TestAddressFromPubKeyFixture(t *testing.T) {
	pubKey := mustDecodeHex(t, fixturePubKeyHex)

	addr, err := AddressFromPubKey(pubKey, netparams.ByTestnetFlag(false))
	require.NoError(t, err)
	require.Equal(t, fixtureAddress, addr)
}

func TestWIFFixture(t *testing.T) {
	wif, err := btcutil.DecodeWIF(fixtureWIF)
	require.NoError(t, err)
	require.True(t, wif.IsForNet(netparams.ByTestnetFlag(false)))
	require.Equal(t,
		mustDecodeHex(t, fixtureWIFPubKey), wif.SerializePubKey())
}

func TestNewKeypairRoundTrip(t *testing.T) {
	for _, testnet := range []bool{false, true} {
		params := netparams.ByTestnetFlag(testnet)

		wif, addr, err := NewKeypair(params)
		require.NoError(t, err)
		require.True(t, VerifyP2PKHAddress(addr))
		require.True(t, VerifyKeypair(wif, addr, params))

		// Fresh entropy every call.
		wif2, addr2, err := NewKeypair(params)
		require.NoError(t, err)
		require.NotEqual(t, wif, wif2)
		require.NotEqual(t, addr, addr2)
	}
}

func TestNewKeypairNetworkPrefix(t *testing.T) {
	_, mainAddr, err := NewKeypair(netparams.ByTestnetFlag(false))
	require.NoError(t, err)
	require.Equal(t, "D", mainAddr[:1])

	_, testAddr, err := NewKeypair(netparams.ByTestnetFlag(true))
	require.NoError(t, err)
	require.Contains(t, "nm", testAddr[:1])
}

func TestVerifyKeypairRejects(t *testing.T) {
	mainnet := netparams.ByTestnetFlag(false)
	testnet := netparams.ByTestnetFlag(true)

	wif, addr, err := NewKeypair(mainnet)
	require.NoError(t, err)

	// Wrong network.
	require.False(t, VerifyKeypair(wif, addr, testnet))

	// Mismatched pairing.
	_, otherAddr, err := NewKeypair(mainnet)
	require.NoError(t, err)
	require.False(t, VerifyKeypair(wif, otherAddr, mainnet))

	// Garbage key.
	require.False(t, VerifyKeypair("not a wif", addr, mainnet))
}

func TestNewHDMasterKeypair(t *testing.T) {
	params := netparams.ByTestnetFlag(false)

	masterKey, addr, err := NewHDMasterKeypair(params)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(masterKey, "dgpv"))
	require.True(t, VerifyP2PKHAddress(addr))
	require.True(t, VerifyHDMasterKeypair(masterKey, addr, params))

	// The address is recoverable from the key string alone.
	derived, err := DerivedAddressFromMaster(masterKey)
	require.NoError(t, err)
	require.Equal(t, addr, derived)
}

func TestVerifyHDMasterKeypairRejects(t *testing.T) {
	mainnet := netparams.ByTestnetFlag(false)

	masterKey, addr, err := NewHDMasterKeypair(mainnet)
	require.NoError(t, err)

	// One corrupted character in the key must not verify. A corrupted
	// base58 payload fails the checksum, so decoding itself rejects it.
	corrupted := []byte(masterKey)
	if corrupted[10] == 'a' {
		corrupted[10] = 'b'
	} else {
		corrupted[10] = 'a'
	}
	require.False(t, VerifyHDMasterKeypair(string(corrupted), addr, mainnet))

	// Wrong network and wrong address.
	require.False(t, VerifyHDMasterKeypair(
		masterKey, addr, netparams.ByTestnetFlag(true)))
	require.False(t, VerifyHDMasterKeypair(masterKey, fixtureAddress, mainnet))
}

func TestVerifyP2PKHAddress(t *testing.T) {
	require.True(t, VerifyP2PKHAddress(fixtureAddress))

	// Each single character corruption must fail the checksum.
	for i := range fixtureAddress {
		corrupted := []byte(fixtureAddress)
		if corrupted[i] == 'X' {
			corrupted[i] = 'Y'
		} else {
			corrupted[i] = 'X'
		}
		require.False(t, VerifyP2PKHAddress(string(corrupted)),
			"corruption at %d", i)
	}

	require.False(t, VerifyP2PKHAddress(""))
	require.False(t, VerifyP2PKHAddress("D"))
	require.False(t, VerifyP2PKHAddress("0OIl+/"))
}

func TestAddressFromPrivKeyHex(t *testing.T) {
	params := netparams.ByTestnetFlag(false)

	// A WIF decoded key and the raw hex path agree on the address.
	wif, err := btcutil.DecodeWIF(fixtureWIF)
	require.NoError(t, err)
	keyHex := hex.EncodeToString(wif.PrivKey.Serialize())

	addr, err := AddressFromPrivKeyHex(keyHex, params)
	require.NoError(t, err)

	wifAddr, err := AddressFromPubKey(wif.SerializePubKey(), params)
	require.NoError(t, err)
	require.Equal(t, wifAddr, addr)
}

func TestAddressFromPrivKeyHexRejects(t *testing.T) {
	params := netparams.ByTestnetFlag(false)

	tests := []struct {
		name   string
		keyHex string
	}{
		{"not hex", "zz"},
		{"short", "0102"},
		{"zero key", strings.Repeat("00", 32)},
		{"over curve order", strings.Repeat("ff", 32)},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := AddressFromPrivKeyHex(test.keyHex, params)
			require.Error(t, err)
		})
	}
}
