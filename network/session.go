package network

import (
	"encoding/json"

	"github.com/charmbracelet/log"
	"github.com/quasilyte/gdata"
)

const sessionKey = "session"

// Session is what the client remembers between runs.
type Session struct {
	PlayerName     string `json:"playerName"`
	Server         string `json:"server"`
	ReconnectToken string `json:"reconnectToken"`
}

// SessionStore persists the Session with gdata. When storage is unavailable
// it keeps working and remembers nothing.
type SessionStore struct {
	manager *gdata.Manager
	logger  *log.Logger
}

func OpenSessionStore(appName string, logger *log.Logger) *SessionStore {
	if logger == nil {
		logger = log.Default().WithPrefix("session")
	}
	s := &SessionStore{logger: logger}

	m, err := gdata.Open(gdata.Config{AppName: appName})
	if err != nil {
		logger.Warn("could not initialize persistence", "err", err)
		return s
	}
	s.manager = m
	return s
}

// Load returns the saved session, if any.
func (s *SessionStore) Load() (Session, bool) {
	if s.manager == nil {
		return Session{}, false
	}

	data, err := s.manager.LoadItem(sessionKey)
	if err != nil {
		s.logger.Warn("could not load session", "err", err)
		return Session{}, false
	}
	if data == nil {
		return Session{}, false
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		s.logger.Warn("could not parse saved session", "err", err)
		return Session{}, false
	}
	return sess, true
}

func (s *SessionStore) Save(sess Session) error {
	if s.manager == nil {
		return nil
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	if err := s.manager.SaveItem(sessionKey, data); err != nil {
		s.logger.Warn("could not save session", "err", err)
		return err
	}
	return nil
}
