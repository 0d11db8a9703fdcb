package overwatch

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockService struct {
	name    string
	hash    string
	stop    chan struct{}
	once    sync.Once
	started chan struct{}
}

func newMockService(name, hash string) *mockService {
	return &mockService{
		name:    name,
		hash:    hash,
		stop:    make(chan struct{}),
		started: make(chan struct{}),
	}
}

func (s *mockService) String() string { return s.name }
func (s *mockService) Hash() string   { return s.hash }

func (s *mockService) Start() error {
	close(s.started)
	<-s.stop
	return nil
}

func (s *mockService) Stop() error {
	s.once.Do(func() { close(s.stop) })
	return nil
}

func (s *mockService) stopped() bool {
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}

func TestAppManager_AddRestartsOnHashChange(t *testing.T) {
	finished := make(chan string, 4)
	m := NewAppManager(func(name, hash string, err error) {
		finished <- name + "@" + hash
	})

	first := newMockService("porkbun:example.com/A", "h1")
	m.Add(first)
	<-first.started

	same := newMockService("porkbun:example.com/A", "h1")
	m.Add(same)
	assert.False(t, first.stopped(), "same hash keeps the running service")
	require.Len(t, m.Services(), 1)
	assert.Same(t, first, m.Services()[0])

	second := newMockService("porkbun:example.com/A", "h2")
	m.Add(second)
	<-second.started
	assert.True(t, first.stopped())
	select {
	case got := <-finished:
		assert.Equal(t, "porkbun:example.com/A@h1", got)
	case <-time.After(5 * time.Second):
		t.Fatal("callback not called")
	}
	assert.Same(t, second, m.Services()[0])

	m.Remove("porkbun:example.com/A")
	assert.True(t, second.stopped())
	assert.Empty(t, m.Services())
}

func TestAppManager_ServicesSorted(t *testing.T) {
	m := NewAppManager(nil)
	b := newMockService("b", "1")
	a := newMockService("a", "1")
	m.Add(b)
	m.Add(a)
	<-a.started
	<-b.started

	services := m.Services()
	require.Len(t, services, 2)
	assert.Equal(t, "a", services[0].String())
	assert.Equal(t, "b", services[1].String())

	m.Remove("a")
	m.Remove("b")
	m.Remove("missing")
}
