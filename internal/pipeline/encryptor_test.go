package pipeline

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"DocVault/internal/crypto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encryptStream(t *testing.T, pool *Pool, w PartWriter, key *crypto.SecretKey, data []byte, c Chunker) (Summary, []BatchResult) {
	t.Helper()
	ctx := context.Background()
	enc := NewEncryptor(pool, w, key, 42, nopLogger)
	sum, err := c.Run(ctx, bytes.NewReader(data), func(b Batch) error { return enc.Dispatch(ctx, b) })
	require.NoError(t, err)
	return sum, enc.Wait()
}

func TestEncryptor_PersistsEveryBlockEncrypted(t *testing.T) {
	w := newMemWriter()
	key := testKey(t)
	data := randomBytes(1000, 3)

	sum, results := encryptStream(t, NewPool(4), w, key, data, NewChunker(64, 3))

	assert.Equal(t, 16, sum.Blocks)
	require.Len(t, results, 6) // 3+3+3+3+3+1
	assert.NoError(t, FailedBatches(results))
	assert.Equal(t, 16, Persisted(results))
	assert.Equal(t, 0, results[0].First)
	assert.Equal(t, 15, results[5].Last)

	require.Len(t, w.parts, 16)
	for n := 0; n < 16; n++ {
		p := w.parts[n]
		assert.True(t, p.IsEncrypted)
		assert.Equal(t, int64(42), p.FileReferenceID)
		assert.Equal(t, n, p.PartNumber)

		sealed, err := crypto.DecodePart(p.PartData)
		require.NoError(t, err)
		plain, err := key.Open(sealed)
		require.NoError(t, err)
		end := min((n+1)*64, len(data))
		assert.True(t, bytes.Equal(data[n*64:end], plain), "part %d", n)
	}
}

func TestEncryptor_FailedBatchDoesNotStopSiblings(t *testing.T) {
	w := newMemWriter()
	w.failOn[3] = true // второй батч [3..5]

	sum, results := encryptStream(t, NewPool(2), w, testKey(t), randomBytes(90, 4), NewChunker(10, 3))

	assert.Equal(t, 9, sum.Blocks)
	assert.Equal(t, 6, Persisted(results))

	err := FailedBatches(results)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStorage)
	var be *BatchError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, 3, be.First)
	assert.Equal(t, 5, be.Last)

	// части сбойного батча не сохранены, остальные — на месте
	for n := 0; n < 9; n++ {
		_, ok := w.parts[n]
		assert.Equal(t, n < 3 || n > 5, ok, "part %d", n)
	}
}

func TestEncryptor_CryptoFailureAbortsBatch(t *testing.T) {
	w := newMemWriter()
	key := testKey(t)
	key.Wipe()

	_, results := encryptStream(t, NewPool(2), w, key, randomBytes(30, 5), NewChunker(10, 10))
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, ErrCrypto)
	assert.Empty(t, w.parts)
	assert.Equal(t, 0, Persisted(results))
}

func TestEncryptor_PoolBoundsConcurrency(t *testing.T) {
	w := newMemWriter()
	w.delay = 20 * time.Millisecond

	_, results := encryptStream(t, NewPool(2), w, testKey(t), randomBytes(200, 6), NewChunker(10, 1))
	assert.Len(t, results, 20)
	assert.NoError(t, FailedBatches(results))
	assert.LessOrEqual(t, w.peak.Load(), int32(2))
}

func TestEncryptor_DispatchCancelled(t *testing.T) {
	pool := NewPool(1)
	w := newMemWriter()
	w.delay = 50 * time.Millisecond
	enc := NewEncryptor(pool, w, testKey(t), 1, nopLogger)

	require.NoError(t, enc.Dispatch(context.Background(), Batch{Blocks: []Block{{Number: 0, Data: []byte("a")}}}))

	// пул занят, отменённый контекст не получает слот
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := enc.Dispatch(ctx, Batch{Blocks: []Block{{Number: 1, Data: []byte("b")}}})
	assert.ErrorIs(t, err, context.Canceled)

	results := enc.Wait()
	require.Len(t, results, 2)
	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, context.Canceled)
}
