package pipeline

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"DocVault/internal/crypto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sealParts(t *testing.T, key *crypto.SecretKey, chunks [][]byte) map[int]string {
	t.Helper()
	out := make(map[int]string, len(chunks))
	for i, c := range chunks {
		sealed, err := key.Seal(c)
		require.NoError(t, err)
		out[i] = crypto.EncodePart(sealed)
	}
	return out
}

func TestDecryptor_RoundTripAllWorkerCounts(t *testing.T) {
	key := testKey(t)
	chunks := make([][]byte, 22)
	for i := range chunks {
		chunks[i] = randomBytes(10+i, int64(i))
	}
	parts := sealParts(t, key, chunks)

	for _, workers := range []int{1, 3, 5, 22, 40} {
		d := NewDecryptor(NewPool(4), workers, nopLogger)
		plain, results := d.DecryptAll(context.Background(), key, parts)
		require.NoError(t, FailedRanges(results))
		require.Len(t, plain, 22)
		for i, c := range chunks {
			assert.True(t, bytes.Equal(c, plain[i]), "workers=%d part=%d", workers, i)
		}
		assert.Len(t, results, min(workers, 22))
	}
}

func TestDecryptor_RangesFollowPartition(t *testing.T) {
	key := testKey(t)
	parts := sealParts(t, key, make([][]byte, 22))

	_, results := NewDecryptor(NewPool(2), 5, nopLogger).DecryptAll(context.Background(), key, parts)
	require.Len(t, results, 5)
	want := [][2]int{{0, 4}, {5, 9}, {10, 13}, {14, 17}, {18, 21}}
	for i, r := range results {
		assert.Equal(t, i, r.Worker)
		assert.Equal(t, want[i][0], r.First)
		assert.Equal(t, want[i][1], r.Last)
	}
}

func TestDecryptor_CorruptPartFailsWholeRangeOnly(t *testing.T) {
	key := testKey(t)
	chunks := make([][]byte, 10)
	for i := range chunks {
		chunks[i] = []byte{byte(i)}
	}
	parts := sealParts(t, key, chunks)
	parts[6] = "not base64 !!"

	plain, results := NewDecryptor(NewPool(4), 2, nopLogger).DecryptAll(context.Background(), key, parts)

	// диапазон [5..9] провален целиком, [0..4] расшифрован
	assert.Len(t, plain, 5)
	for i := 0; i < 5; i++ {
		assert.Equal(t, chunks[i], plain[i])
	}
	err := FailedRanges(results)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCrypto)
	var re *RangeError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, 5, re.First)
	assert.Equal(t, 9, re.Last)

	_, err = Merge(plain, 10)
	assert.ErrorIs(t, err, ErrMissingPart)
}

func TestDecryptor_WrongTenantKeyFails(t *testing.T) {
	keyA, keyB := testKey(t), testKey(t)
	parts := sealParts(t, keyA, [][]byte{[]byte("secret of tenant A"), []byte("more")})

	plain, results := NewDecryptor(NewPool(2), 2, nopLogger).DecryptAll(context.Background(), keyB, parts)
	assert.Empty(t, plain)
	assert.ErrorIs(t, FailedRanges(results), ErrCrypto)
}

func TestDecryptor_EmptyInput(t *testing.T) {
	plain, results := NewDecryptor(NewPool(1), 3, nopLogger).DecryptAll(context.Background(), testKey(t), map[int]string{})
	assert.Empty(t, plain)
	assert.Empty(t, results)
}

func TestDecryptor_GapInPartNumbers(t *testing.T) {
	key := testKey(t)
	chunks := make([][]byte, 10)
	for i := range chunks {
		chunks[i] = []byte{byte(i)}
	}
	parts := sealParts(t, key, chunks)
	delete(parts, 3)

	plain, results := NewDecryptor(NewPool(3), 3, nopLogger).DecryptAll(context.Background(), key, parts)
	assert.NoError(t, FailedRanges(results))
	assert.Len(t, plain, 9)

	out, err := Merge(plain, 10)
	assert.Nil(t, out)
	var mp *MissingPartError
	require.True(t, errors.As(err, &mp))
	assert.Equal(t, 3, mp.Part)
}
