package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"respondo/internal/logging"

	"github.com/nats-io/nats.go"
)

// Subject suffixes under the configured prefix.
const (
	subjectTab      = ".tab"
	subjectMessages = ".messages"
)

// ConnectNATS dials the NATS server with reconnect handling.
func ConnectNATS(url, token string) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("respondo"),
		nats.RetryOnFailedConnect(false),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logging.BridgeWarn("nats disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logging.Bridge("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return nc, nil
}

// NATSChannel reaches a remote Responder over NATS request/reply.
type NATSChannel struct {
	conn    *nats.Conn
	prefix  string
	timeout time.Duration
}

// NewNATSChannel creates a channel on subjects <prefix>.tab and <prefix>.messages.
// Requests without a context deadline are bounded by timeout.
func NewNATSChannel(conn *nats.Conn, prefix string, timeout time.Duration) *NATSChannel {
	return &NATSChannel{conn: conn, prefix: prefix, timeout: timeout}
}

// ActiveTab implements Channel.
func (c *NATSChannel) ActiveTab(ctx context.Context) (Tab, error) {
	var reply tabReply
	if err := c.request(ctx, c.prefix+subjectTab, struct{}{}, &reply); err != nil {
		return Tab{}, err
	}
	return reply.result()
}

// Send implements Channel.
func (c *NATSChannel) Send(ctx context.Context, _ Tab, req Request) (Response, error) {
	var resp Response
	if err := c.request(ctx, c.prefix+subjectMessages, req, &resp); err != nil {
		return Response{}, err
	}
	return resp, nil
}

func (c *NATSChannel) request(ctx context.Context, subject string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	if _, ok := ctx.Deadline(); !ok && c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	msg, err := c.conn.RequestWithContext(ctx, subject, payload)
	if err != nil {
		if errors.Is(err, nats.ErrNoResponders) || errors.Is(err, nats.ErrTimeout) ||
			errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w on %s: %v", ErrNoResponder, subject, err)
		}
		return fmt.Errorf("request %s: %w", subject, err)
	}
	if err := json.Unmarshal(msg.Data, out); err != nil {
		return fmt.Errorf("decode reply from %s: %w", subject, err)
	}
	return nil
}

// ServeNATS answers page-context requests on <prefix>.tab and <prefix>.messages until
// ctx is cancelled.
func ServeNATS(ctx context.Context, conn *nats.Conn, prefix string, r *Responder) error {
	tabSub, err := conn.Subscribe(prefix+subjectTab, func(msg *nats.Msg) {
		respond(msg, r.answerTab(ctx))
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", prefix+subjectTab, err)
	}
	defer func() { _ = tabSub.Unsubscribe() }()

	msgSub, err := conn.Subscribe(prefix+subjectMessages, func(msg *nats.Msg) {
		resp, err := r.answerMessages(ctx, msg.Data)
		if err != nil {
			logging.BridgeWarn("nats %s: %v", msg.Subject, err)
			resp = Response{Error: err.Error()}
		}
		respond(msg, resp)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", prefix+subjectMessages, err)
	}
	defer func() { _ = msgSub.Unsubscribe() }()

	if err := conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}
	logging.Bridge("serving page context on nats %s.{tab,messages}", prefix)

	<-ctx.Done()
	return nil
}

func respond(msg *nats.Msg, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.BridgeWarn("marshal nats reply: %v", err)
		return
	}
	if err := msg.Respond(data); err != nil {
		logging.BridgeWarn("nats respond on %s: %v", msg.Subject, err)
	}
}
