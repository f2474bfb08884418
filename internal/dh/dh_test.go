package dh

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSharedSecret_BothSidesAgree(t *testing.T) {
	provider, err := New(DefaultModulus, DefaultGen)
	require.NoError(t, err)
	consumer, err := New(DefaultModulus, DefaultGen)
	require.NoError(t, err)

	fromProvider, err := provider.SharedSecret(consumer.PublicValue())
	require.NoError(t, err)
	fromConsumer, err := consumer.SharedSecret(provider.PublicValue())
	require.NoError(t, err)

	assert.Zero(t, fromProvider.Cmp(fromConsumer))
}

func TestSharedSecret_DegeneratePublicValues(t *testing.T) {
	kx, err := New(DefaultModulus, DefaultGen)
	require.NoError(t, err)

	pMinus1 := new(big.Int).Sub(DefaultModulus, big.NewInt(1))
	for _, peer := range []*big.Int{big.NewInt(0), big.NewInt(1), pMinus1} {
		_, err := kx.SharedSecret(peer)
		assert.ErrorIs(t, err, ErrDegeneratePublic, "peer=%s", peer)
	}

	_, err = kx.SharedSecret(new(big.Int).Add(DefaultModulus, big.NewInt(1)))
	assert.ErrorIs(t, err, ErrDegeneratePublic)

	_, err = kx.SharedSecret(big.NewInt(-2))
	assert.ErrorIs(t, err, ErrNegativeValue)
}

func TestNew_ParameterBounds(t *testing.T) {
	huge := new(big.Int).Lsh(big.NewInt(1), MaxModulusBits)
	huge.Add(huge, big.NewInt(1))
	_, err := New(huge, big.NewInt(2))
	assert.ErrorIs(t, err, ErrModulusTooLarge)

	_, err = New(big.NewInt(23), big.NewInt(2))
	assert.ErrorIs(t, err, ErrModulusTooSmall)

	even := new(big.Int).Lsh(big.NewInt(1), 128)
	_, err = New(even, big.NewInt(2))
	assert.ErrorIs(t, err, ErrModulusEven)

	_, err = New(DefaultModulus, big.NewInt(1))
	assert.ErrorIs(t, err, ErrBadGenerator)

	_, err = New(DefaultModulus, new(big.Int).Add(DefaultModulus, big.NewInt(1)))
	assert.ErrorIs(t, err, ErrBadGenerator)
}

func TestMaskSecret_Involution(t *testing.T) {
	secret := make([]byte, 20)
	_, err := rand.Read(secret)
	require.NoError(t, err)

	shared := big.NewInt(987654321)

	masked, err := MaskSecret(secret, shared)
	require.NoError(t, err)
	assert.NotEqual(t, secret, masked)

	unmasked, err := MaskSecret(masked, shared)
	require.NoError(t, err)
	assert.Equal(t, secret, unmasked)
}

func TestMaskSecret_WrongLength(t *testing.T) {
	_, err := MaskSecret(make([]byte, 16), big.NewInt(1234))
	assert.Error(t, err)
}

func TestBase64Int_RoundTrip(t *testing.T) {
	for _, n := range []*big.Int{big.NewInt(0), big.NewInt(2), big.NewInt(128), DefaultModulus} {
		decoded, err := Base64ToInt(IntToBase64(n))
		require.NoError(t, err)
		assert.Zero(t, n.Cmp(decoded), "n=%s", n)
	}
}

func TestBase64ToInt_Rejects(t *testing.T) {
	_, err := Base64ToInt("!!! not base64")
	assert.Error(t, err)

	_, err = Base64ToInt("")
	assert.Error(t, err)

	// high bit set without a sign byte encodes a negative number
	_, err = Base64ToInt("gA==")
	assert.ErrorIs(t, err, ErrNegativeValue)
}

func TestFromBase64(t *testing.T) {
	kx, err := FromBase64(IntToBase64(DefaultModulus), IntToBase64(DefaultGen))
	require.NoError(t, err)

	pub := kx.PublicValue()
	assert.True(t, pub.Sign() > 0)
	assert.True(t, pub.Cmp(DefaultModulus) < 0)
}
