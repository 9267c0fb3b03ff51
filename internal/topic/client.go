// Package topic implements the client side of the game server "topic"
// protocol: a single request frame over a fresh TCP connection answered by a
// single typed response frame.
package topic

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/stationlink/stationlink/internal/metrics"
	"github.com/stationlink/stationlink/internal/observability"
)

// DefaultTimeout bounds one whole query, from dial to the last payload byte.
const DefaultTimeout = 5 * time.Second

// StatusQuery asks a server for its status record.
const StatusQuery = "?status"

// Client issues topic queries. The zero value is ready to use.
type Client struct {
	// Timeout bounds each query. Zero means DefaultTimeout.
	Timeout time.Duration

	// Dialer opens connections. Nil means a default net.Dialer.
	Dialer *net.Dialer
}

// NewClient returns a client with the given per-query timeout.
func NewClient(timeout time.Duration) *Client {
	return &Client{Timeout: timeout}
}

// Query sends query to address and decodes the reply. Every call uses its own
// connection, closed before Query returns. Nothing is retried.
func (c *Client) Query(ctx context.Context, address, query string) (Response, error) {
	start := time.Now()
	resp, err := c.query(ctx, address, query)
	metrics.RecordTopicQuery(queryResult(err), time.Since(start))
	return resp, err
}

func (c *Client) query(ctx context.Context, address, query string) (Response, error) {
	frame, err := EncodeRequest(query)
	if err != nil {
		return Response{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()

	conn, err := c.dialer().DialContext(ctx, "tcp", address)
	if err != nil {
		return Response{}, &OpError{Op: "dial", Addr: address, Err: err}
	}
	defer conn.Close() // nolint:errcheck // connection is single-use

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return Response{}, &OpError{Op: "deadline", Addr: address, Err: err}
		}
	}

	// Unblock pending I/O if the caller cancels before the deadline.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	if _, err := conn.Write(frame); err != nil {
		return Response{}, &OpError{Op: "write", Addr: address, Err: ctxErr(ctx, err)}
	}

	var header [HeaderSize]byte
	if _, err := io.ReadFull(conn, header[:]); err != nil {
		return Response{}, &OpError{Op: "read header", Addr: address, Err: ctxErr(ctx, err)}
	}
	h := DecodeHeader(header[:])

	payload := make([]byte, h.Size)
	if _, err := io.ReadFull(conn, payload); err != nil {
		return Response{}, &OpError{Op: "read payload", Addr: address, Err: ctxErr(ctx, err)}
	}

	resp, err := DecodePayload(payload)
	if err != nil {
		if logger := observability.Logger(); logger != nil {
			logger.Debug("Topic server replied with malformed payload",
				zap.String("address", address),
				zap.Uint16("type", h.Type),
				zap.Int("size", len(payload)),
				zap.Error(err))
		}
		return Response{}, err
	}
	return resp, nil
}

// Status queries address for its status record.
func (c *Client) Status(ctx context.Context, address string) (*Status, error) {
	resp, err := c.Query(ctx, address, StatusQuery)
	if err != nil {
		return nil, err
	}

	text, ok := resp.AsString()
	if !ok {
		return nil, &UnexpectedResponseError{Response: resp}
	}
	return DecodeStatus(text)
}

func (c *Client) timeout() time.Duration {
	if c != nil && c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultTimeout
}

func (c *Client) dialer() *net.Dialer {
	if c != nil && c.Dialer != nil {
		return c.Dialer
	}
	return &net.Dialer{}
}

// ctxErr prefers the context error when the context ended, so a caller
// cancellation is not reported as a plain I/O failure.
func ctxErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

func queryResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsTimeout(err):
		return "timeout"
	case errors.Is(err, ErrInvalidResponse):
		return "invalid_response"
	default:
		return "error"
	}
}
