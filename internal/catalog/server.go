package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sadopc/dbnav/internal/adapter"
)

// ConnState is the server connection state machine:
// disconnected → connecting → connected | error.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateError
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	default:
		return "disconnected"
	}
}

// LoadPolicy selects how schema-based databases fetch their objects.
type LoadPolicy int

const (
	// PolicyLazy loads only the requested (or default) schema.
	PolicyLazy LoadPolicy = iota
	// PolicyEager bulk-loads each object type across all schemas at once.
	PolicyEager
)

// Server is the root of an entity subtree. It owns the session and the
// databases collection; Parent is always nil.
type Server struct {
	node

	DriverName string
	DSN        string

	// Policy and SchemaFilter seed every Database created under this
	// server.
	Policy       LoadPolicy
	SchemaFilter string

	Databases     []*Database
	LastConnected time.Time

	// mu guards Databases: synonym resolution reads the collection from a
	// background goroutine while the update loop may be rebuilding it.
	mu sync.Mutex

	state   ConnState
	connErr string
	sess    adapter.Session
}

// NewServer creates a disconnected server root.
func NewServer(name, driverName, dsn string) *Server {
	return &Server{
		node:       newNode(name, KindServer),
		DriverName: driverName,
		DSN:        dsn,
	}
}

// NewServerWithSession creates a server bound to an existing session,
// bypassing the connect step. Used by tests and by callers that manage
// connections themselves.
func NewServerWithSession(name string, sess adapter.Session) *Server {
	s := NewServer(name, sess.DBType(), "")
	s.sess = sess
	s.state = StateConnected
	return s
}

// State returns the connection state.
func (s *Server) State() ConnState { return s.state }

// ConnError returns the message recorded by the last failed connect.
func (s *Server) ConnError() string { return s.connErr }

// Session returns the active session, or nil while disconnected.
func (s *Server) Session() adapter.Session { return s.sess }

// dial opens and pings a session without touching server state, so it can
// run off the update goroutine.
func (s *Server) dial(ctx context.Context) (adapter.Session, error) {
	d, ok := adapter.Registry[s.DriverName]
	if !ok {
		return nil, fmt.Errorf("connect %s: unknown driver %q", s.name, s.DriverName)
	}
	sess, err := d.Connect(ctx, s.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", s.name, err)
	}
	if err := sess.Ping(ctx); err != nil {
		sess.Close()
		return nil, fmt.Errorf("connect %s: ping: %w", s.name, err)
	}
	return sess, nil
}

func (s *Server) adoptSession(sess adapter.Session) {
	s.sess = sess
	s.state = StateConnected
	s.connErr = ""
	s.LastConnected = time.Now()
}

// Connect establishes the session. A server already connected is left
// alone. Failures leave the server in the error state; no further attempts
// happen until the caller retries explicitly.
func (s *Server) Connect(ctx context.Context) error {
	if s.state == StateConnected && s.sess != nil {
		return nil
	}
	s.state = StateConnecting
	sess, err := s.dial(ctx)
	if err != nil {
		s.state = StateError
		s.connErr = err.Error()
		return err
	}
	s.adoptSession(sess)
	return nil
}

// Disconnect closes the session and returns to the disconnected state.
func (s *Server) Disconnect() error {
	if s.sess == nil {
		s.state = StateDisconnected
		return nil
	}
	err := s.sess.Close()
	s.sess = nil
	s.state = StateDisconnected
	s.mu.Lock()
	for _, db := range s.Databases {
		db.connected = false
	}
	s.mu.Unlock()
	return err
}

// stageLoad runs the connect and database listing on the calling goroutine
// and defers every state change to the returned function, so a background
// load never mutates the tree while the update loop reads it.
func (s *Server) stageLoad(ctx context.Context) func() error {
	sess := s.sess
	if sess == nil {
		dialed, err := s.dial(ctx)
		if err != nil {
			return func() error {
				s.state = StateError
				s.connErr = err.Error()
				s.ui.Err = err.Error()
				return err
			}
		}
		sess = dialed
	}
	names, err := sess.Databases(ctx)
	if err != nil {
		err = fmt.Errorf("load %s: databases: %w", s.name, err)
		return func() error {
			if s.sess != sess {
				s.adoptSession(sess)
			}
			s.ui.Err = err.Error()
			return err
		}
	}
	return func() error {
		if s.sess != sess {
			s.adoptSession(sess)
		}
		s.applyDatabases(names)
		s.loaded = true
		s.ui.Err = ""
		return nil
	}
}

// Load connects if needed and populates the databases collection.
func (s *Server) Load(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	return s.stageLoad(ctx)()
}

// applyDatabases rebuilds the databases collection from names. Existing
// Database entities are kept by name so their loaded subtrees survive a
// server refresh.
func (s *Server) applyDatabases(names []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing := make(map[string]*Database, len(s.Databases))
	for _, db := range s.Databases {
		existing[db.Name()] = db
	}
	s.Databases = s.Databases[:0]
	detachChildren(s)
	for _, name := range names {
		db, ok := existing[name]
		if !ok {
			db = newDatabase(name, s)
		}
		s.Databases = append(s.Databases, db)
		addUIChild(s, db)
	}
}

func (s *Server) reset() {
	s.node.reset()
	s.mu.Lock()
	s.Databases = nil
	s.mu.Unlock()
}

// FindDatabase returns the database with the exact name, or nil.
func (s *Server) FindDatabase(name string) *Database {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, db := range s.Databases {
		if db.Name() == name {
			return db
		}
	}
	return nil
}

// ConnectedDatabase returns the database currently flagged as connected,
// or nil.
func (s *Server) ConnectedDatabase() *Database {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, db := range s.Databases {
		if db.connected {
			return db
		}
	}
	return nil
}
