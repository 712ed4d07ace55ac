package tx

import (
	"bytes"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
)

// SignResult enumerates the outcomes of a single input signing attempt.
type SignResult uint8

const (
	// SignUnknown is the zero value outcome, reported when a signing
	// primitive fails in a way the taxonomy does not name.
	SignUnknown SignResult = iota

	// SignInvalidKey reports that the supplied private key failed
	// validation.
	SignInvalidKey

	// SignNoKeyMatch reports that the previous output script embeds a
	// hash or key that does not belong to the supplied private key. A
	// signature is still produced and installed; the caller decides
	// whether it is acceptable, e.g. for multisig partial signing.
	SignNoKeyMatch

	// SignSighashFailed reports that the signature hash could not be
	// computed.
	SignSighashFailed

	// SignUnknownScriptType reports that the previous output script
	// matches no known template.
	SignUnknownScriptType

	// SignInvalidTxOrScript reports a missing transaction or a malformed
	// subscript.
	SignInvalidTxOrScript

	// SignInputIndexOutOfRange reports that the input index does not name
	// an input of the transaction.
	SignInputIndexOutOfRange

	// SignOK reports a fully successful signing attempt.
	SignOK
)

var signResultToName = map[SignResult]string{
	SignUnknown:              "sign_unknown_error",
	SignInvalidKey:           "sign_invalid_key",
	SignNoKeyMatch:           "sign_no_key_match",
	SignSighashFailed:        "sign_sighash_failed",
	SignUnknownScriptType:    "sign_unknown_script_type",
	SignInvalidTxOrScript:    "sign_invalid_tx_or_script",
	SignInputIndexOutOfRange: "sign_inputindex_out_of_range",
	SignOK:                   "sign_ok",
}

// String returns a stable name for the sign result.
func (r SignResult) String() string {
	if name, ok := signResultToName[r]; ok {
		return name
	}
	return "sign_unknown_error"
}

// InputSignature carries the signature material produced by a successful
// (or key mismatched) signing attempt.
type InputSignature struct {
	// Compact is the fixed size recoverable signature: a header byte
	// encoding the recovery id followed by the 32 byte R and S values.
	Compact [65]byte

	// DER is the DER encoded signature without the trailing hash type
	// byte.
	DER []byte

	// HashType is the hash type the signature commits to. The script
	// push installed into the transaction is DER with this appended as a
	// single byte.
	HashType SigHashType
}

// SignInput signs the input at the given index against prevoutScript, the
// previous output's script. On SignOK and SignNoKeyMatch the produced
// signature script is installed into the target input and the signature
// material is returned; every other result leaves the transaction untouched
// and returns a nil signature.
//
// The amount feeds the witness digest variant only and is ignored for
// legacy signing.
func (t *Tx) SignInput(prevoutScript []byte, amount int64,
	privKey *btcec.PrivateKey, idx int,
	hashType SigHashType) (*InputSignature, SignResult) {

	if t == nil || len(prevoutScript) == 0 {
		return nil, SignInvalidTxOrScript
	}
	if idx < 0 || idx >= len(t.TxIn) {
		return nil, SignInputIndexOutOfRange
	}
	if privKey == nil || privKey.Key.IsZero() {
		return nil, SignInvalidKey
	}

	class := ClassifyScript(prevoutScript)
	switch class {
	case PubKeyHashTy, ScriptHashTy, PubKeyTy:
	default:
		return nil, SignUnknownScriptType
	}

	digest, err := CalcSignatureHash(
		t, prevoutScript, idx, hashType, amount, SigVersionBase,
	)
	if err != nil {
		return nil, SignSighashFailed
	}

	pubKey := privKey.PubKey()
	keyMatch := scriptMatchesKey(class, prevoutScript, pubKey)

	// Produce the signature regardless of a key mismatch. A signature by
	// a non matching key is still reported to the caller, never silently
	// dropped.
	sig := &InputSignature{
		DER:      ecdsa.Sign(privKey, digest).Serialize(),
		HashType: hashType,
	}
	copy(sig.Compact[:], ecdsa.SignCompact(privKey, digest, true))

	scriptSig, err := buildSignatureScript(class, sig, pubKey)
	if err != nil {
		return nil, SignUnknown
	}
	t.TxIn[idx].SignatureScript = scriptSig

	if !keyMatch {
		log.Debugf("Input %d signed with non matching key %x", idx,
			pubKey.SerializeCompressed())
		return sig, SignNoKeyMatch
	}
	return sig, SignOK
}

// scriptMatchesKey reports whether the hash or key embedded in the previous
// output script belongs to the given public key. A pay-to-script-hash
// script embeds a redeem script hash, which can never match a bare key.
func scriptMatchesKey(class ScriptClass, script []byte,
	pubKey *btcec.PublicKey) bool {

	switch class {
	case PubKeyHashTy:
		embedded := ExtractHash160(script)
		return bytes.Equal(
			embedded, btcutil.Hash160(pubKey.SerializeCompressed()),
		) || bytes.Equal(
			embedded, btcutil.Hash160(pubKey.SerializeUncompressed()),
		)

	case PubKeyTy:
		embedded := ExtractPubKey(script)
		return bytes.Equal(embedded, pubKey.SerializeCompressed()) ||
			bytes.Equal(embedded, pubKey.SerializeUncompressed())

	default:
		return false
	}
}

// buildSignatureScript assembles the signature script installed into the
// signed input. The pushed signature is the DER form with the hash type
// appended as a single trailing byte.
func buildSignatureScript(class ScriptClass, sig *InputSignature,
	pubKey *btcec.PublicKey) ([]byte, error) {

	sigPush := append(
		sig.DER[:len(sig.DER):len(sig.DER)], byte(sig.HashType),
	)

	builder := txscript.NewScriptBuilder().AddData(sigPush)
	if class != PubKeyTy {
		builder.AddData(pubKey.SerializeCompressed())
	}
	return builder.Script()
}
