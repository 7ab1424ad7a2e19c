package session

// The durable token slot names. Both are written and cleared together; a
// half-present pair is treated as absent.
const (
	SlotAccessToken  = "access_token"
	SlotRefreshToken = "refresh_token"
)

// Store abstracts the two durable token slots so the manager is testable
// without a real storage backend. Get returns "" for an empty slot. SetPair
// replaces both slots as one operation; Clear removes both.
type Store interface {
	Get(slot string) (string, error)
	SetPair(accessToken, refreshToken string) error
	Clear() error
}

// StoreTokenSource adapts a Store into the gateway's read-only token
// capability. The slot is read at call construction time, so the
// Authorization header always reflects the latest persisted pair.
type StoreTokenSource struct {
	store Store
}

// NewStoreTokenSource wraps store as a token source for the gateway.
func NewStoreTokenSource(store Store) *StoreTokenSource {
	return &StoreTokenSource{store: store}
}

// AccessToken returns the stored access token, or "" when absent or the
// store is unreadable (no token means no Authorization header).
func (s *StoreTokenSource) AccessToken() string {
	token, err := s.store.Get(SlotAccessToken)
	if err != nil {
		return ""
	}
	return token
}
