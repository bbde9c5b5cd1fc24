package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/panelnav/panelnav/pkg/client"
	"github.com/panelnav/panelnav/pkg/metrics"
	"github.com/panelnav/panelnav/pkg/panel"
	"github.com/panelnav/panelnav/pkg/session"
)

// Daemon event names.
const (
	EventAuth                   = "auth"
	EventAuthSuccess            = "auth success"
	EventInstallStarted         = "install started"
	EventInstallCompleted       = "install completed"
	EventTransferStatus         = "transfer status"
	EventBackupRestoreCompleted = "backup restore completed"
	EventTokenExpiring          = "token expiring"
	EventTokenExpired           = "token expired"
	EventDaemonError            = "daemon error"
	EventJWTError               = "jwt error"
)

// Transfer status arguments.
const (
	TransferStarting = "starting"
	TransferFailure  = "failure"
	TransferSuccess  = "success"
)

var (
	// ErrNotReady is returned by Run when the session has no loaded server.
	ErrNotReady = errors.New("events: session has no loaded server")

	// ErrSuperseded is returned once the session has moved to another server.
	ErrSuperseded = errors.New("events: session moved to another server")

	// ErrTokenExpired is returned when the daemon closes the stream because
	// the token ran out before it could be renewed.
	ErrTokenExpired = errors.New("events: websocket token expired")
)

// Message is one daemon websocket frame.
type Message struct {
	Event string   `json:"event"`
	Args  []string `json:"args,omitempty"`
}

// CredentialSource issues daemon websocket credentials. *client.Client
// implements it.
type CredentialSource interface {
	WebsocketCredentials(ctx context.Context, id string) (client.Credentials, error)
}

// Listener applies daemon events to a session.
type Listener struct {
	sess    *session.Session
	creds   CredentialSource
	dialer  *websocket.Dialer
	origin  string
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Listener.
type Option func(*Listener)

// WithDialer replaces the websocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(l *Listener) {
		if d != nil {
			l.dialer = d
		}
	}
}

// WithOrigin sets the Origin header sent to the daemon, normally the panel
// URL. The daemon rejects connections from origins it does not know.
func WithOrigin(origin string) Option {
	return func(l *Listener) {
		l.origin = origin
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Listener) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithMetrics counts received events.
func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Listener) {
		l.metrics = m
	}
}

// NewListener creates a listener for sess.
func NewListener(sess *session.Session, creds CredentialSource, opts ...Option) *Listener {
	l := &Listener{
		sess:   sess,
		creds:  creds,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run connects to the daemon of the session's loaded server and applies
// events until ctx is done, the session moves on, or the connection fails.
func (l *Listener) Run(ctx context.Context) error {
	snap := l.sess.Snapshot()
	if snap.State != session.StateReady {
		return ErrNotReady
	}
	b := binding{gen: snap.Generation, id: snap.Server.ID}

	creds, err := l.creds.WebsocketCredentials(ctx, b.id)
	if err != nil {
		return fmt.Errorf("events: credentials for %s: %w", b.id, err)
	}

	header := http.Header{}
	if l.origin != "" {
		header.Set("Origin", l.origin)
	}
	conn, _, err := l.dialer.DialContext(ctx, creds.Socket, header)
	if err != nil {
		return fmt.Errorf("events: dial %s: %w", creds.Socket, err)
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	if err := authenticate(conn, creds.Token); err != nil {
		return err
	}
	l.logger.Debug("daemon listener connected", "server", b.id, "generation", b.gen)

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("events: read: %w", err)
		}
		if err := l.handle(ctx, conn, b, msg); err != nil {
			if errors.Is(err, ErrSuperseded) {
				l.logger.Debug("daemon listener superseded", "server", b.id, "generation", b.gen)
			}
			return err
		}
	}
}

// binding is the session generation and server a listener serves.
type binding struct {
	gen uint64
	id  string
}

func authenticate(conn *websocket.Conn, token string) error {
	if err := conn.WriteJSON(Message{Event: EventAuth, Args: []string{token}}); err != nil {
		return fmt.Errorf("events: send auth: %w", err)
	}
	return nil
}

func (l *Listener) handle(ctx context.Context, conn *websocket.Conn, b binding, msg Message) error {
	l.metrics.ObserveDaemonEvent(msg.Event)

	switch msg.Event {
	case EventInstallStarted:
		return l.update(b, func(s *panel.Server) { s.Status = panel.StatusInstalling })

	case EventInstallCompleted:
		return l.reload(ctx, b)

	case EventTransferStatus:
		switch arg(msg, 0) {
		case TransferStarting:
			return l.update(b, func(s *panel.Server) { s.IsTransferring = true })
		case TransferFailure:
			return l.update(b, func(s *panel.Server) { s.IsTransferring = false })
		case TransferSuccess:
			return l.reload(ctx, b)
		}

	case EventBackupRestoreCompleted:
		return l.update(b, func(s *panel.Server) { s.Status = panel.StatusNone })

	case EventTokenExpiring:
		creds, err := l.creds.WebsocketCredentials(ctx, b.id)
		if err != nil {
			return fmt.Errorf("events: renew credentials for %s: %w", b.id, err)
		}
		return authenticate(conn, creds.Token)

	case EventTokenExpired:
		return ErrTokenExpired

	case EventDaemonError, EventJWTError:
		l.logger.Warn("daemon reported an error", "server", b.id, "event", msg.Event, "detail", arg(msg, 0))
	}
	return nil
}

func (l *Listener) update(b binding, fn func(*panel.Server)) error {
	if !l.sess.Update(b.gen, fn) {
		return ErrSuperseded
	}
	return nil
}

func (l *Listener) reload(ctx context.Context, b binding) error {
	if _, ok := l.sess.ReloadIfCurrent(ctx, b.gen); !ok {
		return ErrSuperseded
	}
	return nil
}

func arg(msg Message, i int) string {
	if i < len(msg.Args) {
		return msg.Args[i]
	}
	return ""
}
