package recipe

import (
	"context"
	"sync"

	"github.com/shaiso/SpiderChef/internal/transport"
)

// SessionFactory создаёт сетевую сессию по настройкам рецепта.
type SessionFactory func(cfg transport.Config) (transport.Session, error)

// defaultSessionFactory создаёт resty сессию.
func defaultSessionFactory(cfg transport.Config) (transport.Session, error) {
	return transport.NewSession(cfg)
}

// lazySession создаёт сессию при первом запросе и закрывает её один раз.
type lazySession struct {
	cfg     transport.Config
	factory SessionFactory

	mu      sync.Mutex
	session transport.Session
	closed  bool
}

// Session реализует engine.SessionSource.
func (l *lazySession) Session(context.Context) (transport.Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil, transport.ErrSessionClosed
	}
	if l.session == nil {
		s, err := l.factory(l.cfg)
		if err != nil {
			return nil, err
		}
		l.session = s
	}
	return l.session, nil
}

// Opened сообщает, была ли создана сессия.
func (l *lazySession) Opened() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.session != nil
}

// Close закрывает сессию, если она была создана.
func (l *lazySession) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	if l.session == nil {
		return nil
	}
	return l.session.Close()
}
