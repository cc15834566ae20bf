package session

import (
	"errors"
	"sync"
	"time"

	"github.com/phillip-england/maintreq/internal/security"
)

var ErrNotFound = errors.New("session not found")

// FlashKind drives how a one-shot message is styled.
type FlashKind string

const (
	FlashInfo    FlashKind = "info"
	FlashSuccess FlashKind = "success"
	FlashWarning FlashKind = "warning"
	FlashError   FlashKind = "error"
)

type Flash struct {
	Kind    FlashKind
	Message string
}

// Download is a generated file waiting to be fetched once.
type Download struct {
	FileName    string
	ContentType string
	Data        []byte
}

// Session is the whole per-browser state. It is passed by value out of the
// store and changed only through Store.Update.
type Session struct {
	ID        string
	CSRFToken string
	Identity  Identity

	// PendingDelete is the request id awaiting confirmation, 0 when none.
	PendingDelete int64
	Download      *Download
	Flashes       []Flash

	expiresAt time.Time
}

func (s *Session) AddFlash(kind FlashKind, message string) {
	s.Flashes = append(s.Flashes, Flash{Kind: kind, Message: message})
}

// Store keeps sessions in memory. Sessions live for ttl since last use and
// vanish on restart.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	gated    bool
	now      func() time.Time
}

func NewStore(ttl time.Duration, gated bool) *Store {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Store{
		sessions: map[string]*Session{},
		ttl:      ttl,
		gated:    gated,
		now:      time.Now,
	}
}

func (st *Store) TTL() time.Duration { return st.ttl }

func (st *Store) Create() (Session, error) {
	id, err := security.RandomToken(32)
	if err != nil {
		return Session{}, err
	}
	csrf, err := security.RandomToken(32)
	if err != nil {
		return Session{}, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	st.sweepLocked()
	sess := &Session{
		ID:        id,
		CSRFToken: csrf,
		Identity:  NewIdentity(st.gated),
		expiresAt: st.now().Add(st.ttl),
	}
	st.sessions[id] = sess
	return *sess, nil
}

func (st *Store) Get(id string) (Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	sess, err := st.liveLocked(id)
	if err != nil {
		return Session{}, err
	}
	out := *sess
	out.Flashes = append([]Flash(nil), sess.Flashes...)
	return out, nil
}

// Update applies fn to the stored session atomically. When fn fails nothing
// is written back.
func (st *Store) Update(id string, fn func(*Session) error) (Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	sess, err := st.liveLocked(id)
	if err != nil {
		return Session{}, err
	}
	working := *sess
	working.Flashes = append([]Flash(nil), sess.Flashes...)
	if err := fn(&working); err != nil {
		return *sess, err
	}
	working.ID = sess.ID
	working.expiresAt = sess.expiresAt
	*sess = working
	return working, nil
}

// TakeFlashes returns and clears the pending messages.
func (st *Store) TakeFlashes(id string) []Flash {
	var out []Flash
	_, _ = st.Update(id, func(s *Session) error {
		out = s.Flashes
		s.Flashes = nil
		return nil
	})
	return out
}

// TakeDownload returns and clears the pending download.
func (st *Store) TakeDownload(id string) *Download {
	var out *Download
	_, _ = st.Update(id, func(s *Session) error {
		out = s.Download
		s.Download = nil
		return nil
	})
	return out
}

func (st *Store) Delete(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

func (st *Store) liveLocked(id string) (*Session, error) {
	sess, ok := st.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	now := st.now()
	if now.After(sess.expiresAt) {
		delete(st.sessions, id)
		return nil, ErrNotFound
	}
	sess.expiresAt = now.Add(st.ttl)
	return sess, nil
}

func (st *Store) sweepLocked() {
	now := st.now()
	for id, sess := range st.sessions {
		if now.After(sess.expiresAt) {
			delete(st.sessions, id)
		}
	}
}
