package notify

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"boss-server-go/internal/platform/logging"
)

const logTag = "Notify"

// ErrNotConnected is returned when a push targets a user without a live
// connection. Callers treating pushes as best-effort ignore it.
var ErrNotConnected = errors.New("user has no active connection")

// Channel is the transport half of a realtime connection. The registry only
// writes and closes; reading is the transport's job.
type Channel interface {
	SendText(data []byte) error
	Close(code int, reason string) error
	IsClosed() bool
}

// SessionEnder force-closes a user's sessions when their connection expires.
type SessionEnder interface {
	SignOutUser(ctx context.Context, userID uint) error
}

// Config carries the inactivity policy for realtime connections.
type Config struct {
	// InactivityBudget is the total silent duration before disconnect.
	InactivityBudget time.Duration
	// WarningLead is how long before disconnect the client is warned.
	WarningLead time.Duration
}

type connection struct {
	userID  uint
	channel Channel
	// activity is a level-triggered wakeup for the watchdog. Buffer of one:
	// coalescing bursts of activity is exactly what we want.
	activity chan struct{}
	done     chan struct{}
	doneOnce sync.Once
}

func (c *connection) stop() {
	c.doneOnce.Do(func() {
		close(c.done)
	})
}

// Registry tracks at most one realtime connection per user and enforces the
// inactivity policy: after a silent period the client is warned, and if it
// stays silent through the warning lead the session is force-closed.
type Registry struct {
	mu    sync.Mutex
	conns map[uint]*connection

	ender  SessionEnder
	logger *logging.Logger
	cfg    Config

	wg sync.WaitGroup
}

func NewRegistry(cfg Config, ender SessionEnder, logger *logging.Logger) *Registry {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Registry{
		conns:  make(map[uint]*connection),
		ender:  ender,
		logger: logger,
		cfg:    cfg,
	}
}

// Register tracks a connection for userID. A user holds at most one
// connection: registering a new one closes the old one.
func (r *Registry) Register(userID uint, ch Channel) {
	conn := &connection{
		userID:   userID,
		channel:  ch,
		activity: make(chan struct{}, 1),
		done:     make(chan struct{}),
	}

	r.mu.Lock()
	old := r.conns[userID]
	r.conns[userID] = conn
	r.mu.Unlock()

	if old != nil {
		old.stop()
		_ = old.channel.Close(CloseNormal, "connection superseded")
		r.logger.InfoTag(logTag, "user %d reconnected, previous connection closed", userID)
	} else {
		r.logger.InfoTag(logTag, "user %d connected", userID)
	}

	r.wg.Add(1)
	go r.watch(conn)
}

// Unregister drops the connection if it is still the current one for the
// user. The channel argument guards against a stale transport goroutine
// removing a successor connection.
func (r *Registry) Unregister(userID uint, ch Channel) {
	r.mu.Lock()
	conn, ok := r.conns[userID]
	if ok && conn.channel == ch {
		delete(r.conns, userID)
	} else {
		conn = nil
	}
	r.mu.Unlock()

	if conn != nil {
		conn.stop()
		r.logger.InfoTag(logTag, "user %d disconnected", userID)
	}
}

// CloseConnection tears down the user's connection, whatever its state.
// Safe to call for users without one.
func (r *Registry) CloseConnection(userID uint) {
	r.mu.Lock()
	conn := r.conns[userID]
	delete(r.conns, userID)
	r.mu.Unlock()

	if conn == nil {
		return
	}
	conn.stop()
	_ = conn.channel.Close(CloseNormal, "")
	r.logger.InfoTag(logTag, "user %d disconnected", userID)
}

// RecordActivity resets the user's inactivity clock. Called for traffic on
// the realtime connection and for authenticated HTTP requests, so ordinary
// API usage keeps the connection alive.
func (r *Registry) RecordActivity(userID uint) {
	r.mu.Lock()
	conn := r.conns[userID]
	r.mu.Unlock()
	if conn == nil {
		return
	}
	select {
	case conn.activity <- struct{}{}:
	default:
	}
}

// HandleMessage processes an inbound frame. Commands arrive either as a JSON
// envelope or as a bare text frame ("ping"). Pings are answered with a pong
// and refreshes acknowledged silently; both reset the inactivity clock.
// Unrecognized messages are dropped without resetting anything, so a
// misbehaving client cannot stay alive by spamming garbage.
func (r *Registry) HandleMessage(userID uint, data []byte) {
	raw := strings.TrimSpace(string(data))
	if !strings.HasPrefix(raw, "{") {
		r.handleCommand(userID, raw)
		return
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		r.logger.DebugTag(logTag, "user %d sent an unparsable frame", userID)
		return
	}
	if env.Type != TypeCommand {
		return
	}
	r.handleCommand(userID, env.Command)
}

func (r *Registry) handleCommand(userID uint, command string) {
	switch command {
	case CommandPing:
		r.RecordActivity(userID)
		if err := r.send(userID, Envelope{Type: TypeCommand, Command: CommandPong}); err != nil {
			r.logger.DebugTag(logTag, "pong to user %d failed: %v", userID, err)
		}
	case CommandRefresh:
		r.RecordActivity(userID)
	default:
		r.logger.DebugTag(logTag, "user %d sent unknown command %q", userID, command)
	}
}

// SendNotifications pushes notifications to the user's connection, if any.
func (r *Registry) SendNotifications(userID uint, notifications []Notification) error {
	return r.send(userID, Envelope{Type: TypeNotifications, Notifications: notifications})
}

// SendToMany fans a batch out per recipient. Offline recipients are skipped;
// delivery is attempted once and never queued.
func (r *Registry) SendToMany(batches map[uint][]Notification) {
	for userID, notifications := range batches {
		if err := r.SendNotifications(userID, notifications); err != nil && !errors.Is(err, ErrNotConnected) {
			r.logger.DebugTag(logTag, "push to user %d failed: %v", userID, err)
		}
	}
}

func (r *Registry) send(userID uint, env Envelope) error {
	r.mu.Lock()
	conn := r.conns[userID]
	r.mu.Unlock()
	if conn == nil || conn.channel.IsClosed() {
		return ErrNotConnected
	}

	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return conn.channel.SendText(data)
}

// Connected reports whether the user currently holds a live connection.
func (r *Registry) Connected(userID uint) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.conns[userID]
	return ok && !conn.channel.IsClosed()
}

// Count returns the number of tracked connections.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// CloseAll disconnects every client and waits for the watchdogs to stop.
// Used during server shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	conns := make([]*connection, 0, len(r.conns))
	for _, conn := range r.conns {
		conns = append(conns, conn)
	}
	r.conns = make(map[uint]*connection)
	r.mu.Unlock()

	for _, conn := range conns {
		conn.stop()
		_ = conn.channel.Close(CloseGoingAway, "server shutting down")
	}
	r.wg.Wait()
}

// watch runs the two-phase inactivity watchdog for one connection. Phase
// one waits out the silent budget minus the warning lead, then pushes a
// sessionExpiring warning. Phase two waits out the lead; any activity in
// either phase restarts phase one.
func (r *Registry) watch(conn *connection) {
	defer r.wg.Done()

	warnAfter := r.cfg.InactivityBudget - r.cfg.WarningLead
	timer := time.NewTimer(warnAfter)
	defer timer.Stop()

	warned := false
	for {
		select {
		case <-conn.done:
			return

		case <-conn.activity:
			warned = false
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(warnAfter)

		case <-timer.C:
			if !r.isCurrent(conn) {
				return
			}
			if !warned {
				warned = true
				r.pushExpiryWarning(conn)
				timer.Reset(r.cfg.WarningLead)
				continue
			}
			r.expire(conn)
			return
		}
	}
}

func (r *Registry) isCurrent(conn *connection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conns[conn.userID] == conn
}

// pushExpiryWarning tells the client how long it has left. Best effort: a
// client that cannot receive the warning is about to be disconnected anyway.
func (r *Registry) pushExpiryWarning(conn *connection) {
	env := Envelope{
		Type:      TypeSessionExpiring,
		ExpiresIn: int(r.cfg.WarningLead.Seconds()),
	}
	data, err := json.Marshal(env)
	if err == nil {
		err = conn.channel.SendText(data)
	}
	if err != nil {
		r.logger.DebugTag(logTag, "expiry warning to user %d failed: %v", conn.userID, err)
	} else {
		r.logger.InfoTag(logTag, "warned user %d of session expiry", conn.userID)
	}
}

// expire tears down an idle connection: the user is signed out, the socket
// closed and the table entry removed. Sign-out failures are logged and
// swallowed; the disconnect happens regardless.
func (r *Registry) expire(conn *connection) {
	r.mu.Lock()
	if r.conns[conn.userID] == conn {
		delete(r.conns, conn.userID)
	}
	r.mu.Unlock()

	if r.ender != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := r.ender.SignOutUser(ctx, conn.userID); err != nil {
			r.logger.WarnTag(logTag, "forced sign-out for user %d failed: %v", conn.userID, err)
		}
		cancel()
	}

	_ = conn.channel.Close(ClosePolicyViolation, "session expired")
	r.logger.InfoTag(logTag, "user %d disconnected after inactivity", conn.userID)
}
