package publish

import "sync"

// postLocks serialises work per post id. Entries are dropped once no caller
// holds or waits for them.
type postLocks struct {
	mu    sync.Mutex
	locks map[int64]*postLock
}

type postLock struct {
	sync.Mutex
	refs int
}

func (l *postLocks) lock(id int64) (unlock func()) {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[int64]*postLock)
	}
	pl, ok := l.locks[id]
	if !ok {
		pl = &postLock{}
		l.locks[id] = pl
	}
	pl.refs++
	l.mu.Unlock()

	pl.Lock()
	return func() {
		pl.Unlock()
		l.mu.Lock()
		if pl.refs--; pl.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
