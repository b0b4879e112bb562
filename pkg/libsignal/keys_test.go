package libsignal_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/david-perez/libsignal-service-go/pkg/libsignal"
)

func TestPublicKeySerializeRoundTrip(t *testing.T) {
	priv, err := libsignal.GeneratePrivateKey()
	require.NoError(t, err)

	serialized := priv.GetPublicKey().Serialize()
	require.Len(t, serialized, libsignal.SerializedPublicKeyLen)
	assert.EqualValues(t, libsignal.KeyTypeDJB, serialized[0])

	parsed, err := libsignal.DeserializePublicKey(serialized)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(priv.GetPublicKey()))
	assert.Equal(t, serialized[1:], parsed.Bytes())
}

func TestDeserializePublicKeyRejectsBadInput(t *testing.T) {
	_, err := libsignal.DeserializePublicKey(make([]byte, 32))
	assert.ErrorIs(t, err, libsignal.ErrBadKeyLength)

	_, err = libsignal.DeserializePublicKey(make([]byte, 34))
	assert.ErrorIs(t, err, libsignal.ErrBadKeyLength)

	badType := make([]byte, libsignal.SerializedPublicKeyLen)
	badType[0] = 0x04
	_, err = libsignal.DeserializePublicKey(badType)
	assert.ErrorIs(t, err, libsignal.ErrBadKeyType)
}

func TestDeserializePrivateKeyClamps(t *testing.T) {
	raw := bytes.Repeat([]byte{0xFF}, libsignal.PrivateKeyLen)
	priv, err := libsignal.DeserializePrivateKey(raw)
	require.NoError(t, err)

	serialized := priv.Serialize()
	assert.EqualValues(t, 0, serialized[0]&0b0000_0111)
	assert.EqualValues(t, 0, serialized[31]&0b1000_0000)
	assert.EqualValues(t, 0b0100_0000, serialized[31]&0b0100_0000)
}

func TestDeserializePrivateKeyRejectsBadLength(t *testing.T) {
	_, err := libsignal.DeserializePrivateKey(make([]byte, 31))
	assert.ErrorIs(t, err, libsignal.ErrBadKeyLength)
}

func TestSignVerify(t *testing.T) {
	priv, err := libsignal.GeneratePrivateKey()
	require.NoError(t, err)
	message := []byte("message to be signed")

	signature, err := priv.Sign(message)
	require.NoError(t, err)
	require.Len(t, signature, libsignal.SignatureLen)

	pub := priv.GetPublicKey()
	assert.True(t, pub.Verify(message, signature))

	tampered := append([]byte(nil), message...)
	tampered[0] ^= 0x01
	assert.False(t, pub.Verify(tampered, signature))

	badSig := append([]byte(nil), signature...)
	badSig[17] ^= 0x01
	assert.False(t, pub.Verify(message, badSig))

	assert.False(t, pub.Verify(message, signature[:32]))

	other, err := libsignal.GeneratePrivateKey()
	require.NoError(t, err)
	assert.False(t, other.GetPublicKey().Verify(message, signature))
}

func TestSignaturesAreRandomized(t *testing.T) {
	priv, err := libsignal.GeneratePrivateKey()
	require.NoError(t, err)
	message := []byte("same bytes twice")

	first, err := priv.Sign(message)
	require.NoError(t, err)
	second, err := priv.Sign(message)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, priv.GetPublicKey().Verify(message, first))
	assert.True(t, priv.GetPublicKey().Verify(message, second))
}

func TestAgree(t *testing.T) {
	alice, err := libsignal.GeneratePrivateKey()
	require.NoError(t, err)
	bob, err := libsignal.GeneratePrivateKey()
	require.NoError(t, err)

	aliceShared, err := alice.Agree(bob.GetPublicKey())
	require.NoError(t, err)
	bobShared, err := bob.Agree(alice.GetPublicKey())
	require.NoError(t, err)

	assert.Equal(t, aliceShared, bobShared)
	assert.Len(t, aliceShared, 32)
}
