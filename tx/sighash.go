package tx

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// SigHashType is the hash type flag appended to signatures. It controls
// which parts of the transaction the signature commits to.
type SigHashType uint32

const (
	// SigHashAll commits to all inputs and all outputs.
	SigHashAll SigHashType = 0x1

	// SigHashNone commits to all inputs and no outputs.
	SigHashNone SigHashType = 0x2

	// SigHashSingle commits to all inputs and the single output paired
	// with the signed input.
	SigHashSingle SigHashType = 0x3

	// SigHashAnyOneCanPay is a modifier flag restricting the commitment
	// to the signed input alone.
	SigHashAnyOneCanPay SigHashType = 0x80

	// sigHashMask masks out the base hash type from the modifier flags.
	sigHashMask = 0x1f
)

// SigVersion selects between the legacy and the segregated witness
// signature hash preimages.
type SigVersion int

const (
	// SigVersionBase is the original pre-witness signature hash
	// algorithm.
	SigVersionBase SigVersion = iota

	// SigVersionWitnessV0 is the BIP143 version 0 witness signature hash
	// algorithm, which additionally commits to the spent amount.
	SigVersionWitnessV0
)

var (
	// ErrInputIndexOutOfRange is returned when the signed input index
	// does not name an input of the transaction.
	ErrInputIndexOutOfRange = errors.New("input index out of range")

	// ErrSigHashSingleOutput is returned when SigHashSingle is requested
	// for an input index with no matching output.
	ErrSigHashSingleOutput = errors.New("no matching output for SigHashSingle")
)

// CalcSignatureHash computes the digest a signature over the given input
// commits to. The subScript is the script being satisfied (for
// pay-to-pubkey-hash inputs, the previous output script). The transaction
// is never mutated; the hash type dependent substitutions are applied to an
// internal view only. The amount is consumed only by the witness variant.
func CalcSignatureHash(t *Tx, subScript []byte, idx int,
	hashType SigHashType, amount int64,
	sigVersion SigVersion) ([]byte, error) {

	if idx < 0 || idx >= len(t.TxIn) {
		return nil, fmt.Errorf("%w: %d of %d inputs",
			ErrInputIndexOutOfRange, idx, len(t.TxIn))
	}

	if sigVersion == SigVersionWitnessV0 {
		return calcWitnessSignatureHash(
			t, subScript, idx, hashType, amount,
		), nil
	}

	// SigHashSingle without a matching output is a hard failure rather
	// than the degenerate one-hash of the legacy consensus quirk.
	if hashType&sigHashMask == SigHashSingle && idx >= len(t.TxOut) {
		return nil, fmt.Errorf("%w: input %d, %d outputs",
			ErrSigHashSingleOutput, idx, len(t.TxOut))
	}

	// Build the modified view: the target input carries the subscript,
	// every other input an empty signature script.
	txCopy := t.Copy()
	for i, ti := range txCopy.TxIn {
		if i == idx {
			ti.SignatureScript = subScript
		} else {
			ti.SignatureScript = nil
		}
	}

	switch hashType & sigHashMask {
	case SigHashNone:
		// Commit to no outputs, and let other inputs' sequence
		// numbers float.
		txCopy.TxOut = nil
		for i, ti := range txCopy.TxIn {
			if i != idx {
				ti.Sequence = 0
			}
		}

	case SigHashSingle:
		// Commit only to the output at the signed index. Earlier
		// outputs are blanked, later ones dropped, and other inputs'
		// sequence numbers float.
		txCopy.TxOut = txCopy.TxOut[:idx+1]
		for i := 0; i < idx; i++ {
			txCopy.TxOut[i].Value = -1
			txCopy.TxOut[i].PkScript = nil
		}
		for i, ti := range txCopy.TxIn {
			if i != idx {
				ti.Sequence = 0
			}
		}
	}

	if hashType&SigHashAnyOneCanPay != 0 {
		txCopy.TxIn = txCopy.TxIn[idx : idx+1]
	}

	preimage := txCopy.Serialize(false)
	var htBytes [4]byte
	binary.LittleEndian.PutUint32(htBytes[:], uint32(hashType))
	preimage = append(preimage, htBytes[:]...)

	digest := chainhash.DoubleHashB(preimage)
	return digest, nil
}

// calcWitnessSignatureHash computes the BIP143 version 0 witness digest.
// The input index is validated by the caller.
func calcWitnessSignatureHash(t *Tx, subScript []byte, idx int,
	hashType SigHashType, amount int64) []byte {

	var zeroHash chainhash.Hash

	hashPrevouts := zeroHash
	if hashType&SigHashAnyOneCanPay == 0 {
		var b bytes.Buffer
		for _, ti := range t.TxIn {
			b.Write(ti.PreviousOutPoint.Hash[:])
			var idxBytes [4]byte
			binary.LittleEndian.PutUint32(
				idxBytes[:], ti.PreviousOutPoint.Index,
			)
			b.Write(idxBytes[:])
		}
		hashPrevouts = chainhash.DoubleHashH(b.Bytes())
	}

	hashSequence := zeroHash
	if hashType&SigHashAnyOneCanPay == 0 &&
		hashType&sigHashMask != SigHashSingle &&
		hashType&sigHashMask != SigHashNone {

		var b bytes.Buffer
		for _, ti := range t.TxIn {
			var seqBytes [4]byte
			binary.LittleEndian.PutUint32(seqBytes[:], ti.Sequence)
			b.Write(seqBytes[:])
		}
		hashSequence = chainhash.DoubleHashH(b.Bytes())
	}

	hashOutputs := zeroHash
	switch {
	case hashType&sigHashMask != SigHashSingle &&
		hashType&sigHashMask != SigHashNone:

		var b bytes.Buffer
		for _, to := range t.TxOut {
			writeTxOut(&b, to)
		}
		hashOutputs = chainhash.DoubleHashH(b.Bytes())

	case hashType&sigHashMask == SigHashSingle && idx < len(t.TxOut):
		var b bytes.Buffer
		writeTxOut(&b, t.TxOut[idx])
		hashOutputs = chainhash.DoubleHashH(b.Bytes())
	}

	var preimage bytes.Buffer
	var scratch [8]byte

	binary.LittleEndian.PutUint32(scratch[:4], uint32(t.Version))
	preimage.Write(scratch[:4])
	preimage.Write(hashPrevouts[:])
	preimage.Write(hashSequence[:])

	ti := t.TxIn[idx]
	preimage.Write(ti.PreviousOutPoint.Hash[:])
	binary.LittleEndian.PutUint32(scratch[:4], ti.PreviousOutPoint.Index)
	preimage.Write(scratch[:4])

	_ = wire.WriteVarInt(&preimage, 0, uint64(len(subScript)))
	preimage.Write(subScript)

	binary.LittleEndian.PutUint64(scratch[:], uint64(amount))
	preimage.Write(scratch[:])

	binary.LittleEndian.PutUint32(scratch[:4], ti.Sequence)
	preimage.Write(scratch[:4])

	preimage.Write(hashOutputs[:])

	binary.LittleEndian.PutUint32(scratch[:4], t.LockTime)
	preimage.Write(scratch[:4])
	binary.LittleEndian.PutUint32(scratch[:4], uint32(hashType))
	preimage.Write(scratch[:4])

	return chainhash.DoubleHashB(preimage.Bytes())
}

func writeTxOut(b *bytes.Buffer, to *TxOut) {
	var scratch [8]byte
	binary.LittleEndian.PutUint64(scratch[:], uint64(to.Value))
	b.Write(scratch[:])
	_ = wire.WriteVarInt(b, 0, uint64(len(to.PkScript)))
	b.Write(to.PkScript)
}
