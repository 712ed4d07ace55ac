package tx

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

const (
	// TxVersion is the current default transaction version.
	TxVersion int32 = 1

	// MaxTxInSequenceNum is the maximum sequence number a transaction
	// input can carry.
	MaxTxInSequenceNum uint32 = 0xffffffff

	// maxTxPayload is a sane ceiling on the byte size of a serialized
	// transaction. Counts declared by the wire encoding are checked
	// against ceilings derived from this value before any allocation is
	// performed, since every count is attacker controlled.
	maxTxPayload = 1024 * 1024 * 32

	// minTxInPayload is the minimum byte size of a serialized transaction
	// input: previous outpoint hash (32) + output index (4) + varint for
	// the signature script length (1) + sequence (4).
	minTxInPayload = 41

	// minTxOutPayload is the minimum byte size of a serialized
	// transaction output: value (8) + varint for the pk script length
	// (1).
	minTxOutPayload = 9

	// maxTxInPerTx is the maximum number of inputs a serialized
	// transaction can declare before the decoder rejects it.
	maxTxInPerTx = maxTxPayload / minTxInPayload

	// maxTxOutPerTx is the maximum number of outputs a serialized
	// transaction can declare before the decoder rejects it.
	maxTxOutPerTx = maxTxPayload / minTxOutPayload

	// maxWitnessItemsPerInput is the maximum number of witness stack
	// items a single input can declare.
	maxWitnessItemsPerInput = 500

	// witnessMarkerByte and witnessFlagByte follow the transaction
	// version field when the encoding carries witness data.
	witnessMarkerByte = 0x00
	witnessFlagByte   = 0x01
)

// OutPoint identifies a previous transaction output being spent.
type OutPoint struct {
	Hash  chainhash.Hash
	Index uint32
}

// NewOutPoint returns a new outpoint with the provided hash and index.
func NewOutPoint(hash *chainhash.Hash, index uint32) *OutPoint {
	return &OutPoint{
		Hash:  *hash,
		Index: index,
	}
}

// IsNull returns whether the outpoint is the null outpoint found in the
// single input of a coinbase transaction, meaning an all zero hash and a
// maximum value index.
func (o *OutPoint) IsNull() bool {
	if o.Index != math.MaxUint32 {
		return false
	}
	for _, b := range o.Hash {
		if b != 0 {
			return false
		}
	}
	return true
}

// String returns the outpoint in hash:index form.
func (o OutPoint) String() string {
	return fmt.Sprintf("%v:%d", o.Hash, o.Index)
}

// TxWitness is the witness stack of a single input, interpreted as an
// ordered sequence of opaque byte buffers.
type TxWitness [][]byte

// TxIn is a single transaction input. It is owned exclusively by its
// containing transaction.
type TxIn struct {
	PreviousOutPoint OutPoint
	SignatureScript  []byte
	Witness          TxWitness
	Sequence         uint32
}

// NewTxIn returns a new transaction input with the provided previous
// outpoint and signature script, and the default sequence.
func NewTxIn(prevOut *OutPoint, signatureScript []byte) *TxIn {
	return &TxIn{
		PreviousOutPoint: *prevOut,
		SignatureScript:  signatureScript,
		Sequence:         MaxTxInSequenceNum,
	}
}

// TxOut is a single transaction output. It is owned exclusively by its
// containing transaction.
type TxOut struct {
	Value    int64
	PkScript []byte
}

// NewTxOut returns a new transaction output with the provided value and
// public key script.
func NewTxOut(value int64, pkScript []byte) *TxOut {
	return &TxOut{
		Value:    value,
		PkScript: pkScript,
	}
}

// Tx is the in-memory model of a transaction. Input and output order is
// preserved as inserted since the order is part of the signed content.
type Tx struct {
	Version  int32
	TxIn     []*TxIn
	TxOut    []*TxOut
	LockTime uint32
}

// NewTx returns an empty transaction with the default version.
func NewTx() *Tx {
	return &Tx{
		Version: TxVersion,
	}
}

// AddTxIn appends a transaction input to the transaction.
func (t *Tx) AddTxIn(ti *TxIn) {
	t.TxIn = append(t.TxIn, ti)
}

// AddTxOut appends a transaction output to the transaction.
func (t *Tx) AddTxOut(to *TxOut) {
	t.TxOut = append(t.TxOut, to)
}

// IsCoinbase returns whether the transaction is coinbase-like: it either has
// no inputs at all or a single input spending the null outpoint.
func (t *Tx) IsCoinbase() bool {
	if len(t.TxIn) == 0 {
		return true
	}
	if len(t.TxIn) != 1 {
		return false
	}
	return t.TxIn[0].PreviousOutPoint.IsNull()
}

// HasWitness returns whether any input carries a non-empty witness stack,
// which marks the whole transaction as witness-bearing for encoding
// purposes.
func (t *Tx) HasWitness() bool {
	for _, ti := range t.TxIn {
		if len(ti.Witness) != 0 {
			return true
		}
	}
	return false
}

// Copy performs a deep copy of the transaction. No variable length buffer is
// aliased between the original and the copy.
func (t *Tx) Copy() *Tx {
	newTx := &Tx{
		Version:  t.Version,
		TxIn:     make([]*TxIn, 0, len(t.TxIn)),
		TxOut:    make([]*TxOut, 0, len(t.TxOut)),
		LockTime: t.LockTime,
	}

	for _, oldIn := range t.TxIn {
		newIn := &TxIn{
			PreviousOutPoint: oldIn.PreviousOutPoint,
			Sequence:         oldIn.Sequence,
		}
		if len(oldIn.SignatureScript) != 0 {
			newIn.SignatureScript = make(
				[]byte, len(oldIn.SignatureScript),
			)
			copy(newIn.SignatureScript, oldIn.SignatureScript)
		}
		if len(oldIn.Witness) != 0 {
			newIn.Witness = make(TxWitness, len(oldIn.Witness))
			for i, item := range oldIn.Witness {
				newItem := make([]byte, len(item))
				copy(newItem, item)
				newIn.Witness[i] = newItem
			}
		}
		newTx.TxIn = append(newTx.TxIn, newIn)
	}

	for _, oldOut := range t.TxOut {
		newOut := &TxOut{
			Value: oldOut.Value,
		}
		if len(oldOut.PkScript) != 0 {
			newOut.PkScript = make([]byte, len(oldOut.PkScript))
			copy(newOut.PkScript, oldOut.PkScript)
		}
		newTx.TxOut = append(newTx.TxOut, newOut)
	}

	return newTx
}

// TxHash computes the transaction id: the double SHA-256 of the non-witness
// serialization. The returned chainhash.Hash renders in the reversed display
// order used by outpoints and explorers.
func (t *Tx) TxHash() chainhash.Hash {
	return chainhash.DoubleHashH(t.Serialize(false))
}

// SerializeSize returns the number of bytes the transaction occupies on the
// wire. Witness marker, flag and stacks are only counted when allowWitness
// is set and the transaction actually carries witness data.
func (t *Tx) SerializeSize(allowWitness bool) int {
	doWitness := allowWitness && t.HasWitness()

	// Version 4 bytes + LockTime 4 bytes + the varints for the number of
	// inputs and outputs.
	n := 8 + wire.VarIntSerializeSize(uint64(len(t.TxIn))) +
		wire.VarIntSerializeSize(uint64(len(t.TxOut)))

	if doWitness {
		// Marker and flag bytes.
		n += 2
	}

	for _, ti := range t.TxIn {
		n += 40 + wire.VarIntSerializeSize(uint64(len(ti.SignatureScript))) +
			len(ti.SignatureScript)
		if doWitness {
			n += wire.VarIntSerializeSize(uint64(len(ti.Witness)))
			for _, item := range ti.Witness {
				n += wire.VarIntSerializeSize(uint64(len(item))) +
					len(item)
			}
		}
	}

	for _, to := range t.TxOut {
		n += 8 + wire.VarIntSerializeSize(uint64(len(to.PkScript))) +
			len(to.PkScript)
	}

	return n
}

// Serialize encodes the transaction into its canonical wire format. The
// witness marker, flag and per-input stacks are emitted only when
// allowWitness is set and at least one input carries witness data. The
// non-witness form (allowWitness false) is the serialization committed to by
// the transaction hash and the legacy signature hash.
func (t *Tx) Serialize(allowWitness bool) []byte {
	doWitness := allowWitness && t.HasWitness()

	buf := bytes.NewBuffer(make([]byte, 0, t.SerializeSize(allowWitness)))

	var scratch [8]byte
	binary.LittleEndian.PutUint32(scratch[:4], uint32(t.Version))
	buf.Write(scratch[:4])

	if doWitness {
		buf.WriteByte(witnessMarkerByte)
		buf.WriteByte(witnessFlagByte)
	}

	// Writes into a bytes.Buffer cannot fail.
	_ = wire.WriteVarInt(buf, 0, uint64(len(t.TxIn)))
	for _, ti := range t.TxIn {
		buf.Write(ti.PreviousOutPoint.Hash[:])
		binary.LittleEndian.PutUint32(scratch[:4], ti.PreviousOutPoint.Index)
		buf.Write(scratch[:4])
		_ = wire.WriteVarInt(buf, 0, uint64(len(ti.SignatureScript)))
		buf.Write(ti.SignatureScript)
		binary.LittleEndian.PutUint32(scratch[:4], ti.Sequence)
		buf.Write(scratch[:4])
	}

	_ = wire.WriteVarInt(buf, 0, uint64(len(t.TxOut)))
	for _, to := range t.TxOut {
		binary.LittleEndian.PutUint64(scratch[:], uint64(to.Value))
		buf.Write(scratch[:])
		_ = wire.WriteVarInt(buf, 0, uint64(len(to.PkScript)))
		buf.Write(to.PkScript)
	}

	if doWitness {
		for _, ti := range t.TxIn {
			_ = wire.WriteVarInt(buf, 0, uint64(len(ti.Witness)))
			for _, item := range ti.Witness {
				_ = wire.WriteVarInt(buf, 0, uint64(len(item)))
				buf.Write(item)
			}
		}
	}

	binary.LittleEndian.PutUint32(scratch[:4], t.LockTime)
	buf.Write(scratch[:4])

	return buf.Bytes()
}

// Deserialize decodes a transaction from its wire format, returning the
// number of bytes consumed. When allowWitness is set a witness marker
// following the version field switches the decoder to the extended encoding
// with per-input witness stacks. On any parse error the receiver is left
// untouched; a partially populated transaction is never exposed.
func (t *Tx) Deserialize(serialized []byte, allowWitness bool) (int, error) {
	r := bytes.NewReader(serialized)

	var decoded Tx
	if err := decoded.decode(r, allowWitness); err != nil {
		return 0, err
	}

	consumed := len(serialized) - r.Len()
	*t = decoded
	return consumed, nil
}

func (t *Tx) decode(r *bytes.Reader, allowWitness bool) error {
	var scratch [8]byte

	if _, err := io.ReadFull(r, scratch[:4]); err != nil {
		return fmt.Errorf("short version field: %w", err)
	}
	t.Version = int32(binary.LittleEndian.Uint32(scratch[:4]))

	count, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return fmt.Errorf("input count: %w", err)
	}

	// A zero input count marks the extended encoding: the zero is the
	// witness marker and must be followed by the flag byte and the real
	// input count.
	hasWitnessEncoding := false
	if count == witnessMarkerByte && allowWitness {
		flag, err := r.ReadByte()
		if err != nil {
			return fmt.Errorf("short witness flag: %w", err)
		}
		if flag != witnessFlagByte {
			return fmt.Errorf("witness flag 0x%02x is invalid", flag)
		}
		hasWitnessEncoding = true

		count, err = wire.ReadVarInt(r, 0)
		if err != nil {
			return fmt.Errorf("input count: %w", err)
		}
	}

	if count > maxTxInPerTx {
		return fmt.Errorf("declared input count %d exceeds maximum %d",
			count, maxTxInPerTx)
	}

	t.TxIn = make([]*TxIn, 0, count)
	for i := uint64(0); i < count; i++ {
		ti := new(TxIn)
		if _, err := io.ReadFull(r, ti.PreviousOutPoint.Hash[:]); err != nil {
			return fmt.Errorf("input %d outpoint hash: %w", i, err)
		}
		if _, err := io.ReadFull(r, scratch[:4]); err != nil {
			return fmt.Errorf("input %d outpoint index: %w", i, err)
		}
		ti.PreviousOutPoint.Index = binary.LittleEndian.Uint32(scratch[:4])

		ti.SignatureScript, err = readScript(r, "signature script")
		if err != nil {
			return fmt.Errorf("input %d: %w", i, err)
		}

		if _, err := io.ReadFull(r, scratch[:4]); err != nil {
			return fmt.Errorf("input %d sequence: %w", i, err)
		}
		ti.Sequence = binary.LittleEndian.Uint32(scratch[:4])

		t.TxIn = append(t.TxIn, ti)
	}

	count, err = wire.ReadVarInt(r, 0)
	if err != nil {
		return fmt.Errorf("output count: %w", err)
	}
	if count > maxTxOutPerTx {
		return fmt.Errorf("declared output count %d exceeds maximum %d",
			count, maxTxOutPerTx)
	}

	t.TxOut = make([]*TxOut, 0, count)
	for i := uint64(0); i < count; i++ {
		to := new(TxOut)
		if _, err := io.ReadFull(r, scratch[:]); err != nil {
			return fmt.Errorf("output %d value: %w", i, err)
		}
		to.Value = int64(binary.LittleEndian.Uint64(scratch[:]))

		to.PkScript, err = readScript(r, "pk script")
		if err != nil {
			return fmt.Errorf("output %d: %w", i, err)
		}

		t.TxOut = append(t.TxOut, to)
	}

	if hasWitnessEncoding {
		for i, ti := range t.TxIn {
			items, err := wire.ReadVarInt(r, 0)
			if err != nil {
				return fmt.Errorf("input %d witness count: %w",
					i, err)
			}
			if items > maxWitnessItemsPerInput {
				return fmt.Errorf("declared witness count %d "+
					"exceeds maximum %d", items,
					maxWitnessItemsPerInput)
			}
			if items == 0 {
				continue
			}

			ti.Witness = make(TxWitness, 0, items)
			for j := uint64(0); j < items; j++ {
				item, err := readScript(r, "witness item")
				if err != nil {
					return fmt.Errorf("input %d: %w", i, err)
				}
				ti.Witness = append(ti.Witness, item)
			}
		}
	}

	if _, err := io.ReadFull(r, scratch[:4]); err != nil {
		return fmt.Errorf("short lock time: %w", err)
	}
	t.LockTime = binary.LittleEndian.Uint32(scratch[:4])

	return nil
}

// readScript reads a length prefixed byte buffer. The declared length is
// checked against the remaining reader size before the buffer is allocated
// so a hostile length cannot trigger an unbounded allocation.
func readScript(r *bytes.Reader, fieldName string) ([]byte, error) {
	count, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return nil, fmt.Errorf("%s length: %w", fieldName, err)
	}
	if count > uint64(r.Len()) {
		return nil, fmt.Errorf("declared %s length %d exceeds %d "+
			"remaining bytes", fieldName, count, r.Len())
	}
	if count == 0 {
		return nil, nil
	}

	b := make([]byte, count)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, fmt.Errorf("%s body: %w", fieldName, err)
	}
	return b, nil
}
