package crypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKey(t *testing.T) *SecretKey {
	t.Helper()
	raw, err := GenerateKey()
	require.NoError(t, err)
	k, err := NewSecretKey(raw)
	require.NoError(t, err)
	return k
}

func TestSealOpen_RoundTrip(t *testing.T) {
	k := newKey(t)
	for _, size := range []int{0, 1, 17, 4096, 1 << 20} {
		plain := bytes.Repeat([]byte{byte(size % 251)}, size)
		sealed, err := k.Seal(plain)
		require.NoError(t, err)

		got, err := k.Open(sealed)
		require.NoError(t, err)
		assert.Equal(t, len(plain), len(got), "size=%d", size)
		assert.True(t, bytes.Equal(plain, got), "size=%d", size)
	}
}

func TestOpen_WrongKeyFails(t *testing.T) {
	a, b := newKey(t), newKey(t)
	sealed, err := a.Seal([]byte("tenant A document"))
	require.NoError(t, err)

	_, err = b.Open(sealed)
	assert.Error(t, err)
}

func TestOpen_TamperedAndShort(t *testing.T) {
	k := newKey(t)
	sealed, err := k.Seal([]byte("hello"))
	require.NoError(t, err)

	sealed[len(sealed)-1] ^= 0xff
	_, err = k.Open(sealed)
	assert.Error(t, err)

	_, err = k.Open([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrSealedTooShort)
}

func TestNewSecretKey_LengthAndCopy(t *testing.T) {
	_, err := NewSecretKey([]byte("short"))
	assert.ErrorIs(t, err, ErrKeyLength)

	raw := bytes.Repeat([]byte{7}, KeyLen)
	k, err := NewSecretKey(raw)
	require.NoError(t, err)
	sealed, err := k.Seal([]byte("x"))
	require.NoError(t, err)

	// изменение исходного буфера не влияет на ключ
	raw[0] = 8
	_, err = k.Open(sealed)
	assert.NoError(t, err)
}

func TestWipe(t *testing.T) {
	k := newKey(t)
	k.Wipe()
	_, err := k.Seal([]byte("x"))
	assert.ErrorIs(t, err, ErrWiped)
	_, err = k.Open(make([]byte, 64))
	assert.ErrorIs(t, err, ErrWiped)
}

func TestEncodeDecodePart(t *testing.T) {
	data := []byte{0xfb, 0xff, 0x00, 0x10}
	enc := EncodePart(data)
	assert.NotContains(t, enc, "+")
	assert.NotContains(t, enc, "/")
	got, err := DecodePart(enc)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	_, err = DecodePart("###")
	assert.Error(t, err)
}

func TestWrapUnwrap(t *testing.T) {
	kek, err := NewSecretKey(DeriveKey([]byte("master"), []byte("docvault-salt")))
	require.NoError(t, err)

	tenantRaw, err := GenerateKey()
	require.NoError(t, err)
	wrapped, err := Wrap(kek, tenantRaw)
	require.NoError(t, err)

	tk, err := Unwrap(kek, wrapped)
	require.NoError(t, err)
	sealed, err := tk.Seal([]byte("doc"))
	require.NoError(t, err)

	direct, err := NewSecretKey(tenantRaw)
	require.NoError(t, err)
	plain, err := direct.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "doc", string(plain))

	other, err := NewSecretKey(DeriveKey([]byte("other"), []byte("docvault-salt")))
	require.NoError(t, err)
	_, err = Unwrap(other, wrapped)
	assert.Error(t, err)

	_, err = Wrap(kek, []byte("short"))
	assert.ErrorIs(t, err, ErrKeyLength)
}

func TestDeriveKey_Deterministic(t *testing.T) {
	a := DeriveKey([]byte("p"), []byte("salt-salt"))
	b := DeriveKey([]byte("p"), []byte("salt-salt"))
	c := DeriveKey([]byte("q"), []byte("salt-salt"))
	assert.Len(t, a, KeyLen)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
