package conversation

import (
	"sync"
	"time"

	"finquery-workers/internal/common/logger"
	"finquery-workers/internal/common/metrics"
	"finquery-workers/internal/models"

	"github.com/patrickmn/go-cache"
)

// Session owns one ConversationContext. Turn serializes all reads and writes of it.
type Session struct {
	mu   sync.Mutex
	info models.SessionInfo
	cc   models.ConversationContext
	now  func() time.Time
}

func NewSession(id string, now func() time.Time) *Session {
	if now == nil {
		now = time.Now
	}
	t := now()
	return &Session{
		info: models.SessionInfo{ID: id, CreatedAt: t, LastActivity: t},
		now:  now,
	}
}

func (s *Session) ID() string {
	return s.info.ID
}

// Turn runs fn with exclusive access to the context.
func (s *Session) Turn(fn func(cc *models.ConversationContext)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(&s.cc)
	s.info.UpdateActivity(s.now())
}

// Context returns a copy of the current context.
func (s *Session) Context() models.ConversationContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cc.Snapshot()
}

func (s *Session) Info() models.SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

// Store keeps live sessions in memory. Sessions expire after idleTTL without a lookup.
type Store struct {
	mu    sync.Mutex
	cache *cache.Cache
	log   logger.Logger
	now   func() time.Time
}

func NewStore(idleTTL, cleanupInterval time.Duration, log logger.Logger) *Store {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	s := &Store{
		cache: cache.New(idleTTL, cleanupInterval),
		log:   log,
		now:   time.Now,
	}
	s.cache.OnEvicted(func(id string, _ interface{}) {
		s.log.Debug("Session ended", map[string]interface{}{"sessionId": id})
		s.publish()
	})
	return s
}

// GetOrCreate returns the session for id, creating it on first use. Every call refreshes
// the idle expiry.
func (s *Store) GetOrCreate(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, found := s.cache.Get(id); found {
		sess := v.(*Session)
		s.cache.SetDefault(id, sess)
		return sess, false
	}

	sess := NewSession(id, s.now)
	s.cache.SetDefault(id, sess)
	s.publish()
	s.log.Debug("Session started", map[string]interface{}{"sessionId": id})
	return sess, true
}

func (s *Store) Get(id string) (*Session, bool) {
	v, found := s.cache.Get(id)
	if !found {
		return nil, false
	}
	return v.(*Session), true
}

// End discards a session and its context.
func (s *Store) End(id string) {
	s.cache.Delete(id)
}

func (s *Store) Count() int {
	return s.cache.ItemCount()
}

func (s *Store) publish() {
	metrics.QuerySessionsActive.Set(float64(s.cache.ItemCount()))
}
