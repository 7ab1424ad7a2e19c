package storefakes

import (
	"sync"

	"github.com/pkg/errors"

	"agentdash/session"
)

var _ session.Store = (*FakeStore)(nil)

// FakeStore is an in-memory session.Store for tests. Errors can be forced
// per operation, and writes/clears are counted.
type FakeStore struct {
	slots map[string]string
	lock  sync.RWMutex

	GetErr     error
	SetPairErr error
	ClearErr   error

	SetPairCalls int
	ClearCalls   int
}

func NewFakeStore() *FakeStore {
	return &FakeStore{slots: make(map[string]string)}
}

func (fs *FakeStore) Get(slot string) (string, error) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	if fs.GetErr != nil {
		return "", fs.GetErr
	}
	return fs.slots[slot], nil
}

func (fs *FakeStore) SetPair(accessToken, refreshToken string) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	fs.SetPairCalls++
	if fs.SetPairErr != nil {
		return fs.SetPairErr
	}
	fs.slots[session.SlotAccessToken] = accessToken
	fs.slots[session.SlotRefreshToken] = refreshToken
	return nil
}

func (fs *FakeStore) Clear() error {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	fs.ClearCalls++
	if fs.ClearErr != nil {
		return fs.ClearErr
	}
	fs.slots = make(map[string]string)
	return nil
}

// SeedPair pre-populates both slots, bypassing error injection.
func (fs *FakeStore) SeedPair(accessToken, refreshToken string) {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	fs.slots[session.SlotAccessToken] = accessToken
	fs.slots[session.SlotRefreshToken] = refreshToken
}

// SeedSlot sets a single slot, for exercising half-present pairs.
func (fs *FakeStore) SeedSlot(slot, value string) {
	fs.lock.Lock()
	defer fs.lock.Unlock()
	fs.slots[slot] = value
}

// Pair returns both slots for assertions.
func (fs *FakeStore) Pair() (string, string) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()
	return fs.slots[session.SlotAccessToken], fs.slots[session.SlotRefreshToken]
}

// Empty reports whether both slots are unset.
func (fs *FakeStore) Empty() bool {
	access, refresh := fs.Pair()
	return access == "" && refresh == ""
}

// ErrForced is a convenience error for injection in tests.
var ErrForced = errors.New("forced store failure")
