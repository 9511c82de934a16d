package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"DocVault/internal/crypto"
	"DocVault/internal/model"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var nopLogger = zap.NewNop().Sugar()

// memWriter — in-memory PartWriter; батч сохраняется целиком или не сохраняется.
type memWriter struct {
	mu      sync.Mutex
	parts   map[int]model.FilePart
	failOn  map[int]bool // номер первого блока батча → ошибка
	delay   time.Duration
	running atomic.Int32
	peak    atomic.Int32
}

func newMemWriter() *memWriter {
	return &memWriter{parts: map[int]model.FilePart{}, failOn: map[int]bool{}}
}

func (w *memWriter) InsertParts(ctx context.Context, parts []model.FilePart) error {
	cur := w.running.Add(1)
	defer w.running.Add(-1)
	for {
		p := w.peak.Load()
		if cur <= p || w.peak.CompareAndSwap(p, cur) {
			break
		}
	}
	if w.delay > 0 {
		time.Sleep(w.delay)
	}
	if len(parts) > 0 && w.failOn[parts[0].PartNumber] {
		return errors.New("insert failed")
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, p := range parts {
		if _, dup := w.parts[p.PartNumber]; dup {
			return errors.New("duplicate part number")
		}
		w.parts[p.PartNumber] = p
	}
	return nil
}

func (w *memWriter) encoded() map[int]string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[int]string, len(w.parts))
	for n, p := range w.parts {
		out[n] = p.PartData
	}
	return out
}

func testKey(t *testing.T) *crypto.SecretKey {
	t.Helper()
	raw, err := crypto.GenerateKey()
	require.NoError(t, err)
	k, err := crypto.NewSecretKey(raw)
	require.NoError(t, err)
	return k
}
