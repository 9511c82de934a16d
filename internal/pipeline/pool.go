package pipeline

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Pool ограничивает число одновременно выполняемых крипто-задач во всём процессе.
// Один Pool разделяется всеми загрузками и скачиваниями.
type Pool struct {
	sem  *semaphore.Weighted
	size int
}

// NewPool создаёт пул на size слотов (минимум 1).
func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size)), size: size}
}

// Size возвращает ёмкость пула.
func (p *Pool) Size() int { return p.size }

// Group создаёт барьер ожидания для задач одного запроса.
func (p *Pool) Group() *Group {
	return &Group{pool: p}
}

// Group — набор задач одного запроса поверх общего Pool.
type Group struct {
	pool *Pool
	wg   sync.WaitGroup
}

// Go ждёт свободный слот и запускает fn. Если ctx отменён до получения слота,
// задача не запускается и возвращается ошибка контекста.
func (g *Group) Go(ctx context.Context, fn func()) error {
	if err := g.pool.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer g.pool.sem.Release(1)
		fn()
	}()
	return nil
}

// Wait блокируется до завершения всех запущенных задач.
func (g *Group) Wait() {
	g.wg.Wait()
}
