package client

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/dmitrymomot/messenger/core/logger"
	"github.com/dmitrymomot/messenger/core/protocol"
)

// DefaultHeartbeat keeps a client well inside the broker's 5 second idle window.
const DefaultHeartbeat = 2 * time.Second

// Client speaks the broker protocol over one connection.
// Writes are safe for concurrent use; Receive must be called from one goroutine.
type Client struct {
	conn net.Conn
	r    *protocol.Reader
	name string

	tlsConfig   *tls.Config
	dialTimeout time.Duration
	heartbeat   time.Duration
	maxPayload  int
	logger      *slog.Logger

	wmu    sync.Mutex
	closed chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

// Dial connects to addr and announces name.
func Dial(ctx context.Context, addr, name string, opts ...Option) (*Client, error) {
	c := newClient(name, opts...)

	var d net.Dialer
	if c.dialTimeout > 0 {
		d.Timeout = c.dialTimeout
	}

	var conn net.Conn
	var err error
	if c.tlsConfig != nil {
		td := tls.Dialer{NetDialer: &d, Config: c.tlsConfig}
		conn, err = td.DialContext(ctx, "tcp", addr)
	} else {
		conn, err = d.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	if err := c.start(conn); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return c, nil
}

// New announces name over an established conn, e.g. one end of net.Pipe.
func New(conn net.Conn, name string, opts ...Option) (*Client, error) {
	c := newClient(name, opts...)
	if err := c.start(conn); err != nil {
		return nil, err
	}
	return c, nil
}

func newClient(name string, opts ...Option) *Client {
	c := &Client{
		name:      name,
		heartbeat: DefaultHeartbeat,
		logger:    logger.NewNop(),
		closed:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) start(conn net.Conn) error {
	c.conn = conn
	c.r = protocol.NewReader(conn, protocol.WithMaxPayloadSize(c.maxPayload))

	preamble, err := protocol.PackString(c.name)
	if err != nil {
		return err
	}
	if err := c.write(preamble); err != nil {
		return fmt.Errorf("announce: %w", err)
	}

	if c.heartbeat > 0 {
		c.wg.Add(1)
		go c.keepAlive()
	}
	return nil
}

// Name returns the announced name.
func (c *Client) Name() string {
	return c.name
}

// Publish sends payload on topic.
func (c *Client) Publish(topic string, payload []byte) error {
	return c.Send(protocol.Message{Topic: topic, Payload: payload})
}

// Listen subscribes to topic. A leading "*" subscribes by prefix.
func (c *Client) Listen(topic string) error {
	msg, err := protocol.ListenMessage(topic)
	if err != nil {
		return err
	}
	return c.Send(msg)
}

// Unlisten removes a subscription.
func (c *Client) Unlisten(topic string) error {
	msg, err := protocol.UnlistenMessage(topic)
	if err != nil {
		return err
	}
	return c.Send(msg)
}

// Heartbeat sends one _Heartbeat. Its echo is skipped by Receive.
func (c *Client) Heartbeat() error {
	return c.Send(protocol.HeartbeatMessage())
}

// RequestClients asks for the connected client names. The reply arrives
// through Receive on protocol.TopicClients; decode it with ParseClients.
func (c *Client) RequestClients() error {
	return c.Send(protocol.Message{Topic: protocol.TopicGetClients})
}

// Send writes one frame.
func (c *Client) Send(msg protocol.Message) error {
	frame, err := protocol.Pack(msg)
	if err != nil {
		return err
	}
	return c.write(frame)
}

func (c *Client) write(b []byte) error {
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()
	_, err := c.conn.Write(b)
	return err
}

// Receive returns the next message, skipping heartbeat echoes.
// Cancelling ctx interrupts a blocked read.
func (c *Client) Receive(ctx context.Context) (protocol.Message, error) {
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetReadDeadline(time.Unix(1, 0))
	})
	defer stop()

	for {
		msg, err := c.r.ReadMessage()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				_ = c.conn.SetReadDeadline(time.Time{})
				return protocol.Message{}, ctxErr
			}
			return protocol.Message{}, err
		}
		if msg.Topic == protocol.TopicHeartbeat {
			continue
		}
		return msg, nil
	}
}

// ParseClients decodes a Messenger:Clients reply.
func ParseClients(msg protocol.Message) ([]string, error) {
	if msg.Topic != protocol.TopicClients {
		return nil, fmt.Errorf("%w: topic %q", ErrUnexpectedReply, msg.Topic)
	}
	names, err := protocol.ParseClients(msg.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnexpectedReply, err)
	}
	return names, nil
}

// Disconnect asks the broker to close the connection gracefully, then closes it.
func (c *Client) Disconnect() error {
	err := c.Send(protocol.DisconnectMessage())
	return errors.Join(err, c.Close())
}

// Close closes the connection without notifying the broker.
func (c *Client) Close() error {
	var err error
	c.once.Do(func() {
		close(c.closed)
		err = c.conn.Close()
		c.wg.Wait()
	})
	return err
}

func (c *Client) keepAlive() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-c.closed:
			return
		case <-ticker.C:
			if err := c.Heartbeat(); err != nil {
				if !errors.Is(err, ErrClosed) {
					c.logger.Warn("Heartbeat failed", logger.Client(c.name), logger.Error(err))
				}
				return
			}
		}
	}
}
