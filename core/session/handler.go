package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/dmitrymomot/messenger/core/logger"
	"github.com/dmitrymomot/messenger/core/metrics"
	"github.com/dmitrymomot/messenger/core/protocol"
	"github.com/dmitrymomot/messenger/core/subscription"
	"github.com/dmitrymomot/messenger/pkg/broadcast"
)

// IdleTimeout is how long a connection may stay silent in both directions
// before it is closed. It also bounds the name announcement.
const IdleTimeout = 5 * time.Second

// DefaultMaxPayloadSize caps inbound payloads unless WithMaxPayloadSize says otherwise.
const DefaultMaxPayloadSize = 16 << 20

// Conn is the byte stream a Handler serves. *net.TCPConn, *tls.Conn and the
// websocket adapter all satisfy it.
type Conn interface {
	io.ReadWriteCloser
	RemoteAddr() net.Addr
}

type writeDeadliner interface {
	SetWriteDeadline(t time.Time) error
}

var heartbeatFrame = protocol.MustPack(protocol.HeartbeatMessage())

// Handler runs the per-connection protocol: name announcement, then a loop
// multiplexing client frames, bus messages and the idle window.
type Handler struct {
	bus           broadcast.Broadcaster[protocol.Message]
	directory     *Directory
	clock         clockwork.Clock
	logger        *slog.Logger
	metrics       *metrics.Metrics
	idleTimeout   time.Duration
	writeTimeout  time.Duration
	maxPayload    int
	publishEvents bool
}

// NewHandler creates a Handler publishing to and subscribing on bus.
func NewHandler(bus broadcast.Broadcaster[protocol.Message], opts ...Option) (*Handler, error) {
	if bus == nil {
		return nil, ErrNilBroadcaster
	}

	h := &Handler{
		bus:          bus,
		directory:    NewDirectory(),
		clock:        clockwork.NewRealClock(),
		logger:       logger.NewNop(),
		idleTimeout:  IdleTimeout,
		writeTimeout: IdleTimeout,
		maxPayload:   DefaultMaxPayloadSize,
	}
	for _, opt := range opts {
		opt(h)
	}

	return h, nil
}

// Directory returns the directory of announced clients.
func (h *Handler) Directory() *Directory {
	return h.directory
}

// ServeConn serves conn until it terminates. The outcome is logged by Serve.
func (h *Handler) ServeConn(ctx context.Context, conn net.Conn) {
	_ = h.Serve(ctx, conn)
}

// Serve runs the protocol on conn and closes it before returning.
// A nil error means the client sent _Disconnect.
func (h *Handler) Serve(ctx context.Context, conn Conn) error {
	defer conn.Close()

	c := &connection{
		h:        h,
		conn:     conn,
		id:       uuid.New(),
		registry: subscription.New(),
		started:  h.clock.Now(),
	}
	c.log = h.logger.With(logger.ConnID(c.id), logger.RemoteAddr(conn.RemoteAddr()))

	h.metrics.ConnectionOpened()

	// Subscribing before the announcement keeps the bus position of the accept.
	sub := h.bus.Subscribe(ctx)
	defer sub.Close()

	done := make(chan struct{})
	defer close(done)

	announced := make(chan announcement)
	frames := make(chan inbound)
	go c.read(done, announced, frames)

	err := c.serve(ctx, sub, announced, frames)
	c.finish(err)
	return err
}

type announcement struct {
	name string
	err  error
}

type inbound struct {
	msg protocol.Message
	err error
}

type connection struct {
	h        *Handler
	conn     Conn
	id       uuid.UUID
	name     string
	registry *subscription.Registry
	log      *slog.Logger
	started  time.Time
}

func (c *connection) serve(
	ctx context.Context,
	sub broadcast.Subscriber[protocol.Message],
	announced <-chan announcement,
	frames <-chan inbound,
) error {
	if err := c.announce(ctx, announced); err != nil {
		return err
	}

	c.h.directory.Add(ClientInfo{
		ID:          c.id,
		Name:        c.name,
		RemoteAddr:  addrString(c.conn.RemoteAddr()),
		ConnectedAt: c.started,
	})
	defer c.h.directory.Remove(c.id)

	c.log.InfoContext(ctx, "Client connected", logger.Event("client_connected"))
	c.event(ctx, "Connected: "+c.name)
	defer c.event(context.WithoutCancel(ctx), "Disconnected: "+c.name)

	for {
		if err := c.next(ctx, sub, frames); err != nil {
			if errors.Is(err, errDisconnect) {
				return nil
			}
			return err
		}
	}
}

// announce waits for the length-prefixed client name.
func (c *connection) announce(ctx context.Context, announced <-chan announcement) error {
	timer := c.h.clock.NewTimer(c.h.idleTimeout)
	defer timer.Stop()

	select {
	case a := <-announced:
		if a.err != nil {
			return readError(a.err)
		}
		c.name = a.name
		c.log = c.log.With(logger.Client(a.name))
		return nil
	case <-timer.Chan():
		return ErrIdleTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// next handles exactly one event. The idle window restarts on every call.
func (c *connection) next(ctx context.Context, sub broadcast.Subscriber[protocol.Message], frames <-chan inbound) error {
	timer := c.h.clock.NewTimer(c.h.idleTimeout)
	defer timer.Stop()

	select {
	case <-sub.Ready():
		return c.deliver(ctx, sub)
	case in := <-frames:
		if in.err != nil {
			return readError(in.err)
		}
		return c.dispatch(ctx, in.msg)
	case <-timer.Chan():
		return ErrIdleTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *connection) deliver(ctx context.Context, sub broadcast.Subscriber[protocol.Message]) error {
	msg, err := sub.TryReceive()

	var lag *broadcast.LagError
	switch {
	case err == nil:
		if !c.registry.IsListening(msg.Data.Topic) {
			return nil
		}
		frame, err := protocol.Pack(msg.Data)
		if err != nil {
			return err
		}
		if err := c.write(frame); err != nil {
			return err
		}
		c.h.metrics.Delivered()
		return nil
	case errors.Is(err, broadcast.ErrEmpty):
		return nil
	case errors.As(err, &lag):
		c.log.WarnContext(ctx, "Client lagging behind, messages dropped", logger.Skipped(lag.Skipped))
		c.h.metrics.Skipped(lag.Skipped)
		return nil
	case errors.Is(err, broadcast.ErrBroadcasterClosed):
		return ErrBusClosed
	default:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %w", ErrBusClosed, err)
	}
}

func (c *connection) dispatch(ctx context.Context, msg protocol.Message) error {
	cmd, err := protocol.Parse(msg)
	if err != nil {
		c.log.WarnContext(ctx, "Ignoring malformed control message", logger.Topic(msg.Topic), logger.Error(err))
		return nil
	}

	switch cmd := cmd.(type) {
	case protocol.Heartbeat:
		c.h.metrics.Control("heartbeat")
		return c.write(heartbeatFrame)

	case protocol.Listen:
		c.h.metrics.Control("listen")
		before := c.registry.Len()
		c.registry.Listen(cmd.Topic)
		c.h.metrics.SubscriptionsChanged(c.registry.Len() - before)
		c.log.DebugContext(ctx, "Client listening", logger.Topic(cmd.Topic))
		return nil

	case protocol.Unlisten:
		c.h.metrics.Control("unlisten")
		before := c.registry.Len()
		c.registry.Unlisten(cmd.Topic)
		c.h.metrics.SubscriptionsChanged(c.registry.Len() - before)
		c.log.DebugContext(ctx, "Client stopped listening", logger.Topic(cmd.Topic))
		return nil

	case protocol.Disconnect:
		c.h.metrics.Control("disconnect")
		return errDisconnect

	case protocol.GetClients:
		c.h.metrics.Control("get_clients")
		reply, err := protocol.ClientsMessage(c.h.directory.Names())
		if err != nil {
			return err
		}
		frame, err := protocol.Pack(reply)
		if err != nil {
			return err
		}
		if err := c.write(frame); err != nil {
			return err
		}
		// The request is an ordinary topic too; listeners still get it.
		return c.publish(ctx, msg)

	case protocol.Publish:
		return c.publish(ctx, cmd.Message)
	}

	return nil
}

func (c *connection) publish(ctx context.Context, msg protocol.Message) error {
	if err := c.h.bus.Broadcast(ctx, broadcast.Message[protocol.Message]{Data: msg}); err != nil {
		if errors.Is(err, broadcast.ErrBroadcasterClosed) {
			return ErrBusClosed
		}
		return err
	}
	c.h.metrics.Published(len(msg.Payload))
	return nil
}

func (c *connection) write(frame []byte) error {
	if d, ok := c.conn.(writeDeadliner); ok && c.h.writeTimeout > 0 {
		_ = d.SetWriteDeadline(time.Now().Add(c.h.writeTimeout))
	}
	if _, err := c.conn.Write(frame); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// event publishes a Messenger:Event message when events are enabled.
func (c *connection) event(ctx context.Context, text string) {
	if !c.h.publishEvents {
		return
	}
	msg, err := protocol.EventMessage(text)
	if err != nil {
		return
	}
	_ = c.h.bus.Broadcast(ctx, broadcast.Message[protocol.Message]{Data: msg})
}

// read owns the inbound half of the stream: the name first, then frames.
// It stops on the first error or when done is closed.
func (c *connection) read(done <-chan struct{}, announced chan<- announcement, frames chan<- inbound) {
	name, err := protocol.ReadString(c.conn)
	select {
	case announced <- announcement{name: name, err: err}:
	case <-done:
		return
	}
	if err != nil {
		return
	}

	r := protocol.NewReader(c.conn, protocol.WithMaxPayloadSize(c.h.maxPayload))
	for {
		msg, err := r.ReadMessage()
		select {
		case frames <- inbound{msg: msg, err: err}:
		case <-done:
			return
		}
		if err != nil {
			return
		}
	}
}

func (c *connection) finish(err error) {
	reason, level, msg := classify(err)

	attrs := []slog.Attr{
		logger.Event("client_disconnected"),
		logger.Reason(reason),
		logger.Duration(c.h.clock.Since(c.started)),
		logger.Count("subscriptions", c.registry.Len()),
	}
	if c.name == "" {
		msg = "Connection closed before announcement"
	}
	if err != nil {
		attrs = append(attrs, logger.Error(err))
	}

	c.log.LogAttrs(context.Background(), level, msg, attrs...)
	c.h.metrics.ConnectionClosed(reason, c.registry.Len())
}

func classify(err error) (reason string, level slog.Level, msg string) {
	switch {
	case err == nil:
		return metrics.ReasonDisconnect, slog.LevelInfo, "Client disconnected"
	case errors.Is(err, ErrIdleTimeout):
		return metrics.ReasonTimeout, slog.LevelWarn, "Client timed out"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return metrics.ReasonShutdown, slog.LevelInfo, "Connection closed on shutdown"
	case errors.Is(err, ErrBusClosed):
		return metrics.ReasonBusClosed, slog.LevelWarn, "Connection closed, bus shut down"
	case errors.Is(err, ErrConnectionClosed):
		return metrics.ReasonClosed, slog.LevelError, "Connection lost"
	case errors.Is(err, ErrProtocol):
		return metrics.ReasonProtocol, slog.LevelError, "Protocol error"
	default:
		return metrics.ReasonIO, slog.LevelError, "Connection failed"
	}
}

func readError(err error) error {
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return fmt.Errorf("%w: %w", ErrConnectionClosed, err)
	case errors.Is(err, protocol.ErrInvalidUTF8),
		errors.Is(err, protocol.ErrNegativeLength),
		errors.Is(err, protocol.ErrPayloadTooLarge):
		return fmt.Errorf("%w: %w", ErrProtocol, err)
	default:
		return fmt.Errorf("read: %w", err)
	}
}

func addrString(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	return addr.String()
}
