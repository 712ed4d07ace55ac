package keychain

import (
	"encoding/base64"
	"errors"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/alamshafil/libdogecoin/netparams"
)

// compactSigSize is the byte size of a recoverable compact signature:
// header byte + 32 byte R + 32 byte S.
const compactSigSize = 65

// compactHeaderMagic is the base value of the compact signature header
// byte; the recovery id is added to it and compactHeaderCompressed marks a
// compressed public key.
const (
	compactHeaderMagic      = 27
	compactHeaderCompressed = 4
)

// ErrSignMessage is returned when the signing key is missing or invalid.
var ErrSignMessage = errors.New("cannot sign message")

// SignMessage signs the double SHA-256 digest of the message with the given
// private key and returns the DER encoded signature in a base64 envelope.
// A recoverable compact signature is produced alongside to pin down the
// recovery id of the key.
func SignMessage(privKey *btcec.PrivateKey, message string) (string, error) {
	if privKey == nil || privKey.Key.IsZero() {
		return "", ErrSignMessage
	}

	digest := chainhash.DoubleHashB([]byte(message))

	der := ecdsa.Sign(privKey, digest).Serialize()

	// Deterministic signing yields the same R and S for the compact
	// form, so the recovery id applies to the DER signature as well.
	compact := ecdsa.SignCompact(privKey, digest, true)
	recID := (compact[0] - compactHeaderMagic) & 3
	log.Tracef("Message signature recovery id %d", recID)
	zeroBytes(compact)

	return base64.StdEncoding.EncodeToString(der), nil
}

// VerifyMessage checks a base64 enveloped DER signature against a message
// and a claimed pay-to-pubkey-hash address. The public key is recovered
// from the signature's compact form, the signature is verified against it
// and the address re-derived from the recovered key must match the claimed
// address exactly. Any failing stage collapses to false.
func VerifyMessage(address, signature, message string) bool {
	der, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		log.Debugf("Message verification failed: %v", err)
		return false
	}

	sig, err := ecdsa.ParseDERSignature(der)
	if err != nil {
		return false
	}

	r, s, ok := derScalars(der)
	if !ok {
		return false
	}

	digest := chainhash.DoubleHashB([]byte(message))
	params := paramsForAddress(address)

	// The envelope does not carry the recovery id, so each candidate id
	// is tried against the claimed address.
	var compact [compactSigSize]byte
	copy(compact[1:33], r)
	copy(compact[33:], s)
	for recID := byte(0); recID < 4; recID++ {
		compact[0] = compactHeaderMagic + compactHeaderCompressed + recID

		pubKey, _, err := ecdsa.RecoverCompact(compact[:], digest)
		if err != nil {
			continue
		}
		if !sig.Verify(digest, pubKey) {
			continue
		}

		derived, err := AddressFromPubKey(
			pubKey.SerializeCompressed(), params,
		)
		if err != nil {
			continue
		}
		if derived == address {
			return true
		}
	}

	return false
}

// derScalars extracts the R and S values of a DER encoded ECDSA signature
// as left padded 32 byte buffers. The envelope structure is checked but
// range validation is left to the signature parser.
func derScalars(der []byte) ([]byte, []byte, bool) {
	// Sequence tag, length, and at least two minimal integer elements.
	if len(der) < 8 || der[0] != 0x30 || int(der[1]) != len(der)-2 {
		return nil, nil, false
	}

	r, rest, ok := derInteger(der[2:])
	if !ok {
		return nil, nil, false
	}
	s, rest, ok := derInteger(rest)
	if !ok || len(rest) != 0 {
		return nil, nil, false
	}
	return r, s, true
}

// derInteger reads one DER integer element and returns its value left
// padded to 32 bytes along with the remaining bytes.
func derInteger(b []byte) ([]byte, []byte, bool) {
	if len(b) < 2 || b[0] != 0x02 {
		return nil, nil, false
	}
	length := int(b[1])
	if length == 0 || len(b) < 2+length {
		return nil, nil, false
	}

	value := b[2 : 2+length]
	// Strip the sign padding byte of a value with the high bit set.
	if len(value) > 1 && value[0] == 0x00 {
		value = value[1:]
	}
	if len(value) > 32 {
		return nil, nil, false
	}

	padded := make([]byte, 32)
	copy(padded[32-len(value):], value)
	return padded, b[2+length:], true
}

// paramsForAddress infers the network an address belongs to from its
// version byte, defaulting to the main network.
func paramsForAddress(address string) *chaincfg.Params {
	decoded := base58.Decode(address)
	if len(decoded) == p2pkhPayloadLen &&
		decoded[0] == netparams.TestNet3Params.PubKeyHashAddrID {

		return &netparams.TestNet3Params
	}
	return &netparams.MainNetParams
}
