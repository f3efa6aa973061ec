package zktx

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

func TestSigningHashRoundTripsThroughRecover(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	from := crypto.PubkeyToAddress(key.PublicKey)

	to := common.Address{0xaa}
	env := &Envelope{
		ChainID:            big.NewInt(260),
		Nonce:              7,
		GasFeeCap:          big.NewInt(1000),
		GasTipCap:          big.NewInt(1000),
		Gas:                90000,
		To:                 &to,
		Value:              big.NewInt(1),
		Data:               []byte{0xde, 0xad},
		From:               from,
		GasPerPubdataLimit: big.NewInt(800),
	}

	hash := env.SigningHash()
	sig, err := crypto.Sign(hash.Bytes(), key)
	require.NoError(t, err)

	recovered, err := RecoverSender(env, sig)
	require.NoError(t, err)
	require.Equal(t, from, recovered)
}

func TestSigningHashChangesWithFactoryDeps(t *testing.T) {
	base := &Envelope{
		ChainID:            big.NewInt(260),
		Nonce:              1,
		GasFeeCap:          big.NewInt(1),
		Gas:                50000,
		Value:              big.NewInt(0),
		GasPerPubdataLimit: big.NewInt(800),
	}
	withDeps := *base
	withDeps.FactoryDeps = [][]byte{make([]byte, 32)}

	require.NotEqual(t, base.SigningHash(), withDeps.SigningHash())
}

func TestDecodeRejectsWrongEnvelopeType(t *testing.T) {
	_, err := Decode([]byte{0x02, 0x01, 0x02})
	require.Error(t, err)
}

func TestDecodeRejectsEmptyInput(t *testing.T) {
	_, err := Decode(nil)
	require.Error(t, err)
}
