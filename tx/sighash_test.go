package tx

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCalcSignatureHashDeterminism(t *testing.T) {
	subScript, err := PayToPubKeyHashScript(make([]byte, 20))
	require.NoError(t, err)

	for _, sigVersion := range []SigVersion{
		SigVersionBase, SigVersionWitnessV0,
	} {
		first, err := CalcSignatureHash(
			testTx(), subScript, 0, SigHashAll, 5000000, sigVersion,
		)
		require.NoError(t, err)
		require.Len(t, first, 32)

		second, err := CalcSignatureHash(
			testTx(), subScript, 0, SigHashAll, 5000000, sigVersion,
		)
		require.NoError(t, err)
		require.Equal(t, first, second)
	}
}

func TestCalcSignatureHashSensitivity(t *testing.T) {
	subScript, err := PayToPubKeyHashScript(make([]byte, 20))
	require.NoError(t, err)

	base := testTx()
	baseline, err := CalcSignatureHash(
		base, subScript, 0, SigHashAll, 0, SigVersionBase,
	)
	require.NoError(t, err)

	mutations := []struct {
		name   string
		mutate func(*Tx)
	}{
		{"output value", func(m *Tx) { m.TxOut[0].Value++ }},
		{"output script", func(m *Tx) { m.TxOut[1].PkScript = []byte{0x00} }},
		{"locktime", func(m *Tx) { m.LockTime++ }},
		{"prevout index", func(m *Tx) { m.TxIn[1].PreviousOutPoint.Index++ }},
		{"sequence", func(m *Tx) { m.TxIn[1].Sequence = 0 }},
	}

	for _, test := range mutations {
		t.Run(test.name, func(t *testing.T) {
			mutated := testTx()
			test.mutate(mutated)

			digest, err := CalcSignatureHash(
				mutated, subScript, 0, SigHashAll, 0,
				SigVersionBase,
			)
			require.NoError(t, err)
			require.NotEqual(t, baseline, digest)
		})
	}

	// A different hash type also moves the digest.
	digest, err := CalcSignatureHash(
		base, subScript, 0, SigHashNone, 0, SigVersionBase,
	)
	require.NoError(t, err)
	require.NotEqual(t, baseline, digest)
}

func TestCalcSignatureHashDoesNotMutate(t *testing.T) {
	subScript, err := PayToPubKeyHashScript(make([]byte, 20))
	require.NoError(t, err)

	target := testTx()
	before := target.Copy()

	_, err = CalcSignatureHash(
		target, subScript, 1, SigHashSingle|SigHashAnyOneCanPay, 0,
		SigVersionBase,
	)
	require.NoError(t, err)
	require.Equal(t, before, target)
}

func TestCalcSignatureHashNone(t *testing.T) {
	subScript, err := PayToPubKeyHashScript(make([]byte, 20))
	require.NoError(t, err)

	base := testTx()
	baseline, err := CalcSignatureHash(
		base, subScript, 0, SigHashNone, 0, SigVersionBase,
	)
	require.NoError(t, err)

	// With SigHashNone the outputs are not committed to.
	mutated := testTx()
	mutated.TxOut[0].Value = 1
	mutated.TxOut[1].PkScript = []byte{0x6a, 0x01, 0xff}

	digest, err := CalcSignatureHash(
		mutated, subScript, 0, SigHashNone, 0, SigVersionBase,
	)
	require.NoError(t, err)
	require.Equal(t, baseline, digest)

	// Neither are other inputs' sequence numbers.
	mutated.TxIn[1].Sequence = 12345
	digest, err = CalcSignatureHash(
		mutated, subScript, 0, SigHashNone, 0, SigVersionBase,
	)
	require.NoError(t, err)
	require.Equal(t, baseline, digest)
}

func TestCalcSignatureHashSingle(t *testing.T) {
	subScript, err := PayToPubKeyHashScript(make([]byte, 20))
	require.NoError(t, err)

	base := testTx()
	baseline, err := CalcSignatureHash(
		base, subScript, 1, SigHashSingle, 0, SigVersionBase,
	)
	require.NoError(t, err)

	// Only the paired output is committed to; the earlier output may
	// change freely.
	mutated := testTx()
	mutated.TxOut[0].Value = 99
	digest, err := CalcSignatureHash(
		mutated, subScript, 1, SigHashSingle, 0, SigVersionBase,
	)
	require.NoError(t, err)
	require.Equal(t, baseline, digest)

	// Changing the paired output changes the digest.
	mutated.TxOut[1].Value = 99
	digest, err = CalcSignatureHash(
		mutated, subScript, 1, SigHashSingle, 0, SigVersionBase,
	)
	require.NoError(t, err)
	require.NotEqual(t, baseline, digest)
}

func TestCalcSignatureHashSingleNoOutput(t *testing.T) {
	subScript, err := PayToPubKeyHashScript(make([]byte, 20))
	require.NoError(t, err)

	// Input index 2 but only two outputs: a hard failure, not the
	// degenerate one-hash of the legacy consensus quirk.
	target := testTx()
	target.AddTxIn(NewTxIn(NewOutPoint(
		&target.TxIn[0].PreviousOutPoint.Hash, 9), nil))

	_, err = CalcSignatureHash(
		target, subScript, 2, SigHashSingle, 0, SigVersionBase,
	)
	require.ErrorIs(t, err, ErrSigHashSingleOutput)
}

func TestCalcSignatureHashAnyOneCanPay(t *testing.T) {
	subScript, err := PayToPubKeyHashScript(make([]byte, 20))
	require.NoError(t, err)

	for _, sigVersion := range []SigVersion{
		SigVersionBase, SigVersionWitnessV0,
	} {
		base := testTx()
		baseline, err := CalcSignatureHash(
			base, subScript, 0, SigHashAll|SigHashAnyOneCanPay, 0,
			sigVersion,
		)
		require.NoError(t, err)

		// With the anyone-can-pay modifier other inputs are not
		// committed to.
		mutated := testTx()
		mutated.TxIn[1].PreviousOutPoint.Index = 77
		mutated.TxIn[1].Sequence = 5

		digest, err := CalcSignatureHash(
			mutated, subScript, 0, SigHashAll|SigHashAnyOneCanPay, 0,
			sigVersion,
		)
		require.NoError(t, err)
		require.Equal(t, baseline, digest)

		// Without it they are.
		withoutFlag, err := CalcSignatureHash(
			base, subScript, 0, SigHashAll, 0, sigVersion,
		)
		require.NoError(t, err)
		require.NotEqual(t, baseline, withoutFlag)
	}
}

func TestCalcSignatureHashIndexOutOfRange(t *testing.T) {
	subScript, err := PayToPubKeyHashScript(make([]byte, 20))
	require.NoError(t, err)

	for _, idx := range []int{-1, 2, 100} {
		_, err := CalcSignatureHash(
			testTx(), subScript, idx, SigHashAll, 0, SigVersionBase,
		)
		require.ErrorIs(t, err, ErrInputIndexOutOfRange, "idx %d", idx)
	}
}

func TestCalcWitnessSignatureHashAmount(t *testing.T) {
	subScript, err := PayToPubKeyHashScript(make([]byte, 20))
	require.NoError(t, err)

	// The witness digest commits to the spent amount, the legacy digest
	// does not.
	witnessA, err := CalcSignatureHash(
		testTx(), subScript, 0, SigHashAll, 1000, SigVersionWitnessV0,
	)
	require.NoError(t, err)
	witnessB, err := CalcSignatureHash(
		testTx(), subScript, 0, SigHashAll, 2000, SigVersionWitnessV0,
	)
	require.NoError(t, err)
	require.NotEqual(t, witnessA, witnessB)

	legacyA, err := CalcSignatureHash(
		testTx(), subScript, 0, SigHashAll, 1000, SigVersionBase,
	)
	require.NoError(t, err)
	legacyB, err := CalcSignatureHash(
		testTx(), subScript, 0, SigHashAll, 2000, SigVersionBase,
	)
	require.NoError(t, err)
	require.Equal(t, legacyA, legacyB)
}
