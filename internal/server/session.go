package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"

	"github.com/ppiankov/claimaudit/internal/view"
)

const (
	sessionCookie = "claimaudit_session"
	sessionKey    = "session"
)

// session is one browser's pair of views. Nothing outlives the session:
// it is held in memory only and dropped on expiry or eviction.
type session struct {
	id       string
	worklist *view.Worklist
	detail   *view.Detail
}

type sessionStore struct {
	cache  *expirable.LRU[string, *session]
	ttl    time.Duration
	logger *logrus.Logger
}

func newSessionStore(size int, ttl time.Duration, logger *logrus.Logger) *sessionStore {
	onEvict := func(id string, s *session) {
		s.detail.Close()
		logger.WithField("session", id).Debug("Session dropped")
	}
	return &sessionStore{
		cache:  expirable.NewLRU[string, *session](size, onEvict, ttl),
		ttl:    ttl,
		logger: logger,
	}
}

// get returns a live session and extends its lifetime
func (st *sessionStore) get(id string) (*session, bool) {
	s, ok := st.cache.Get(id)
	if !ok {
		return nil, false
	}
	st.cache.Add(id, s)
	return s, true
}

func (st *sessionStore) create() *session {
	s := &session{
		id:       uuid.NewString(),
		worklist: view.NewWorklist(),
		detail:   view.NewDetail(st.logger),
	}
	st.cache.Add(s.id, s)
	return s
}

// Len reports the number of live sessions
func (st *sessionStore) Len() int {
	return st.cache.Len()
}

// sessionMiddleware attaches the caller's session, starting a new one when
// the cookie is missing or the session expired
func (s *Server) sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		var sess *session
		if id, err := c.Cookie(sessionCookie); err == nil {
			sess, _ = s.sessions.get(id)
		}
		if sess == nil {
			sess = s.sessions.create()
		}

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(sessionCookie, sess.id, int(s.sessions.ttl.Seconds()), "/", "", false, true)
		c.Set(sessionKey, sess)
		c.Next()
	}
}

func sessionFrom(c *gin.Context) *session {
	return c.MustGet(sessionKey).(*session)
}
