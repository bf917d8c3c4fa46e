package room

import "sync"

// roomLocks serializes mutations per room. Two near-simultaneous writes to
// the same room must not clobber each other; writes to different rooms never
// block each other.
type roomLocks struct {
	mu    sync.Mutex
	locks map[string]*roomLock
}

type roomLock struct {
	mu   sync.Mutex
	refs int
}

func newRoomLocks() *roomLocks {
	return &roomLocks{locks: make(map[string]*roomLock)}
}

func (l *roomLocks) lock(roomCode string) {
	l.mu.Lock()
	rl, ok := l.locks[roomCode]
	if !ok {
		rl = &roomLock{}
		l.locks[roomCode] = rl
	}
	rl.refs++
	l.mu.Unlock()

	rl.mu.Lock()
}

func (l *roomLocks) unlock(roomCode string) {
	l.mu.Lock()
	rl := l.locks[roomCode]
	rl.refs--
	if rl.refs == 0 {
		delete(l.locks, roomCode)
	}
	l.mu.Unlock()

	rl.mu.Unlock()
}
