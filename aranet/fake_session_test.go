package aranet

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

type fakeWrite struct {
	uuid string
	data []byte
}

// fakeSession serves characteristic reads from per-uuid queues. The last
// queued value of a characteristic is repeated once the queue drains.
type fakeSession struct {
	mu sync.Mutex

	chars  map[string]bool
	reads  map[string][][]byte
	notify map[string][][]byte

	writes       []fakeWrite
	onWrite      func(uuid string, data []byte)
	unsubscribed []string
	readErr      error
	closed       bool
}

func newFakeSession(uuids ...string) *fakeSession {
	s := &fakeSession{
		chars:  make(map[string]bool),
		reads:  make(map[string][][]byte),
		notify: make(map[string][][]byte),
	}
	for _, u := range uuids {
		s.chars[u] = true
	}
	return s
}

func (s *fakeSession) queue(uuid string, values ...[]byte) *fakeSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chars[uuid] = true
	s.reads[uuid] = append(s.reads[uuid], values...)
	return s
}

// serve replaces whatever is queued for uuid.
func (s *fakeSession) serve(uuid string, values ...[]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chars[uuid] = true
	s.reads[uuid] = values
}

func (s *fakeSession) queueNotify(uuid string, packets ...[]byte) *fakeSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chars[uuid] = true
	s.notify[uuid] = append(s.notify[uuid], packets...)
	return s
}

func (s *fakeSession) ReadCharacteristic(_ context.Context, uuid string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return nil, s.readErr
	}
	if !s.chars[uuid] {
		return nil, errors.Errorf("no characteristic %s", uuid)
	}
	q := s.reads[uuid]
	if len(q) == 0 {
		return nil, errors.Errorf("nothing queued for %s", uuid)
	}
	v := q[0]
	if len(q) > 1 {
		s.reads[uuid] = q[1:]
	}
	return v, nil
}

func (s *fakeSession) WriteCharacteristic(_ context.Context, uuid string, data []byte, _ bool) error {
	s.mu.Lock()
	s.writes = append(s.writes, fakeWrite{uuid: uuid, data: append([]byte(nil), data...)})
	hook := s.onWrite
	s.mu.Unlock()
	if hook != nil {
		hook(uuid, data)
	}
	return nil
}

func (s *fakeSession) Subscribe(_ context.Context, uuid string, onNotify func([]byte)) error {
	s.mu.Lock()
	packets := s.notify[uuid]
	s.notify[uuid] = nil
	s.mu.Unlock()
	go func() {
		for _, p := range packets {
			onNotify(p)
		}
	}()
	return nil
}

func (s *fakeSession) Unsubscribe(_ context.Context, uuid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unsubscribed = append(s.unsubscribed, uuid)
	return nil
}

func (s *fakeSession) HasCharacteristic(uuid string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chars[uuid]
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSession) written() []fakeWrite {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]fakeWrite(nil), s.writes...)
}

func (s *fakeSession) setOnWrite(hook func(uuid string, data []byte)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onWrite = hook
}

func u16(v int) []byte {
	return []byte{byte(v), byte(v >> 8)}
}
