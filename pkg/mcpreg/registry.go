package mcpreg

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Options configure a Registry instance.
type Options struct {
	// ConnectTimeout bounds the connect+initialize phase of CreateSession when
	// the caller does not supply an explicit timeout. Defaults to 30s.
	ConnectTimeout time.Duration
	// CloseTimeout bounds every session teardown so a stuck transport close
	// cannot wedge the registry. Defaults to 5s.
	CloseTimeout time.Duration
	// Logger receives structured diagnostics, notably close failures that do
	// not surface as return values. Defaults to slog.Default().
	Logger *slog.Logger
}

func (o *Options) normalized() Options {
	var opts Options
	if o != nil {
		opts = *o
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 30 * time.Second
	}
	if opts.CloseTimeout <= 0 {
		opts.CloseTimeout = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return opts
}

// Registry owns the mapping from server name to configuration and from server
// name to live session, and coordinates connector construction, connection
// establishment, and teardown. Construct one with New; there is no package
// default instance.
//
// All bookkeeping operations are safe for concurrent use. Connection
// establishment is serialized per name: a CreateSession call racing against
// another for the same name waits and observes the first caller's session
// instead of double-connecting.
type Registry struct {
	mu      sync.Mutex
	factory ConnectorFactory
	opts    Options
	entries map[string]*entry
}

// entry tracks one registered name. A session exists only while config does;
// connecting/connectCh serialize establishment per name.
type entry struct {
	config     *ServerConfig
	session    *Session
	connecting bool
	connectCh  chan struct{}
}

// New constructs a Registry backed by the given connector factory. Pass nil
// options to fall back to defaults.
func New(factory ConnectorFactory, opts *Options) *Registry {
	if factory == nil {
		panic("mcpreg: factory is required")
	}
	return &Registry{
		factory: factory,
		opts:    opts.normalized(),
		entries: make(map[string]*entry),
	}
}

// AddServer registers cfg under name, replacing any previous configuration
// for that name wholesale. If a live session exists for the name it is closed
// first; a replaced configuration never keeps a stale session bound to it.
// The close failure, if any, is logged and does not fail the call. No network
// I/O happens here.
func (r *Registry) AddServer(name string, cfg *ServerConfig) error {
	if name == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if err := cfg.validate(); err != nil {
		return err
	}

	r.mu.Lock()
	old := r.entries[name]
	var stale *Session
	if old != nil {
		stale = old.session
	}
	r.entries[name] = &entry{config: cfg.Clone()}
	r.mu.Unlock()

	if stale != nil {
		if cerr := r.closeBounded(name, stale); cerr != nil {
			r.opts.Logger.Warn("closing replaced session failed", "server", name, "error", cerr)
		}
	}
	return nil
}

// RemoveServer forgets the configuration for name and closes any session
// bound to it. It returns a NotFoundError when name was never registered (or
// was already removed); a teardown failure is returned as a CloseError after
// the entry is already gone.
func (r *Registry) RemoveServer(name string) error {
	r.mu.Lock()
	e, ok := r.entries[name]
	if !ok {
		r.mu.Unlock()
		return &NotFoundError{Name: name}
	}
	session := e.session
	delete(r.entries, name)
	r.mu.Unlock()

	if session != nil {
		if cerr := r.closeBounded(name, session); cerr != nil {
			r.opts.Logger.Warn("closing removed session failed", "server", name, "error", cerr)
			return cerr
		}
	}
	return nil
}

// CreateSession connects and initializes a session for name using the
// registry's default connect timeout. If a live session already exists it is
// returned as-is; reconnecting is never implicit.
func (r *Registry) CreateSession(ctx context.Context, name string) (*Session, error) {
	return r.CreateSessionWithTimeout(ctx, name, 0)
}

// CreateSessionWithTimeout behaves like CreateSession with an explicit bound
// on the connect+initialize phase. A non-positive timeout selects the
// registry default. On failure no partial session remains registered and the
// connector, if constructed, has been closed best-effort.
func (r *Registry) CreateSessionWithTimeout(ctx context.Context, name string, connectTimeout time.Duration) (*Session, error) {
	if connectTimeout <= 0 {
		connectTimeout = r.opts.ConnectTimeout
	}
	for {
		r.mu.Lock()
		e, ok := r.entries[name]
		if !ok {
			r.mu.Unlock()
			return nil, &NotFoundError{Name: name}
		}
		if e.session != nil {
			session := e.session
			r.mu.Unlock()
			return session, nil
		}
		if e.connecting {
			ch := e.connectCh
			r.mu.Unlock()
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-ch:
				continue
			}
		}
		e.connecting = true
		e.connectCh = make(chan struct{})
		cfg := e.config.Clone()
		r.mu.Unlock()

		session, err := r.establish(ctx, name, cfg, connectTimeout)

		r.mu.Lock()
		e.connecting = false
		close(e.connectCh)
		if err != nil {
			r.mu.Unlock()
			return nil, err
		}
		if r.entries[name] != e {
			// The name was removed or replaced while we were connecting; the
			// fresh session has no entry to live in.
			r.mu.Unlock()
			if cerr := r.closeBounded(name, session); cerr != nil {
				r.opts.Logger.Warn("closing orphaned session failed", "server", name, "error", cerr)
			}
			return nil, &ConnectionError{Name: name, Kind: ConnectionFailed, Err: errors.New("server was removed or replaced during connect")}
		}
		e.session = session
		r.mu.Unlock()
		return session, nil
	}
}

func (r *Registry) establish(ctx context.Context, name string, cfg *ServerConfig, timeout time.Duration) (*Session, error) {
	connector, err := r.factory.CreateConnector(cfg)
	if err != nil {
		return nil, &ConnectionError{Name: name, Kind: ConnectionFailed, Err: err}
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := connector.Connect(connectCtx); err != nil {
		r.discard(name, connector)
		return nil, r.connectionError(name, connectCtx, err)
	}
	initResult, err := connector.Initialize(connectCtx)
	if err != nil {
		r.discard(name, connector)
		return nil, r.connectionError(name, connectCtx, err)
	}
	return newSession(name, connector, initResult), nil
}

func (r *Registry) connectionError(name string, ctx context.Context, err error) *ConnectionError {
	kind := ConnectionFailed
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		kind = ConnectionTimeout
	}
	return &ConnectionError{Name: name, Kind: kind, Err: err}
}

// discard closes a connector that never became a session.
func (r *Registry) discard(name string, connector Connector) {
	done := make(chan error, 1)
	go func() { done <- connector.Close() }()
	timer := time.NewTimer(r.opts.CloseTimeout)
	defer timer.Stop()
	select {
	case err := <-done:
		if err != nil {
			r.opts.Logger.Warn("closing failed connector", "server", name, "error", err)
		}
	case <-timer.C:
		r.opts.Logger.Warn("closing failed connector timed out", "server", name)
	}
}

// CloseSession disconnects name while keeping its configuration registered,
// distinguishing "disconnect" from "forget". It returns a NotFoundError when
// name has no configuration at all and succeeds as a no-op when a
// configuration exists without a live session. A teardown failure is returned
// as a CloseError after the session is already unregistered.
func (r *Registry) CloseSession(name string) error {
	r.mu.Lock()
	e, ok := r.entries[name]
	if !ok {
		r.mu.Unlock()
		return &NotFoundError{Name: name}
	}
	session := e.session
	e.session = nil
	r.mu.Unlock()

	if session == nil {
		return nil
	}
	if cerr := r.closeBounded(name, session); cerr != nil {
		r.opts.Logger.Warn("closing session failed", "server", name, "error", cerr)
		return cerr
	}
	return nil
}

// GetSession returns the live session for name, or a NotFoundError when the
// name is unregistered or currently disconnected.
func (r *Registry) GetSession(name string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[name]
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	if e.session == nil {
		return nil, &NotFoundError{Name: name, Reason: "no active session"}
	}
	return e.session, nil
}

// GetServerConfig returns a copy of the configuration registered under name.
func (r *Registry) GetServerConfig(name string) (*ServerConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[name]
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	return e.config.Clone(), nil
}

// GetServerNames returns every registered identifier in sorted order,
// regardless of connection state.
func (r *Registry) GetServerNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasServer reports whether name is registered.
func (r *Registry) HasServer(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[name]
	return ok
}

// CloseAllSessions closes every live session, keeping all configurations
// registered. Per-name close failures are collected and returned joined
// rather than aborting on the first; a nil return means every teardown
// succeeded.
func (r *Registry) CloseAllSessions() error {
	r.mu.Lock()
	stale := make(map[string]*Session)
	for name, e := range r.entries {
		if e.session != nil {
			stale[name] = e.session
			e.session = nil
		}
	}
	r.mu.Unlock()

	names := make([]string, 0, len(stale))
	for name := range stale {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		if cerr := r.closeBounded(name, stale[name]); cerr != nil {
			r.opts.Logger.Warn("closing session failed", "server", name, "error", cerr)
			errs = append(errs, cerr)
		}
	}
	return errors.Join(errs...)
}

// closeBounded tears a session down with a defensive timeout so a hung
// transport close cannot block registry bookkeeping. The table entry has
// already been cleared by the time this runs.
func (r *Registry) closeBounded(name string, session *Session) *CloseError {
	done := make(chan error, 1)
	go func() { done <- session.close() }()
	timer := time.NewTimer(r.opts.CloseTimeout)
	defer timer.Stop()
	select {
	case err := <-done:
		if err != nil {
			return &CloseError{Name: name, Err: err}
		}
		return nil
	case <-timer.C:
		return &CloseError{Name: name, Err: errors.New("close timed out")}
	}
}
