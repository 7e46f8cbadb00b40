package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/jathurchan/seatlicense/protocol"
)

// Dialer opens connections to the license server. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// roundTrip sends one command over a fresh connection and returns the
// trimmed response. The connection is closed before returning.
func (c *licenseClient) roundTrip(ctx context.Context, cmd protocol.Command) (string, error) {
	payload, err := protocol.EncodeRequest(cmd)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	dialCtx, cancel := context.WithTimeout(ctx, c.config.ConnectTimeout)
	conn, err := c.dialer.DialContext(dialCtx, "tcp", c.config.Address)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if isTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: connect to %s: %w", ErrTimeout, c.config.Address, err)
		}
		return "", fmt.Errorf("connect to %s: %w", c.config.Address, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	if err := conn.SetDeadline(time.Now().Add(c.config.IOTimeout)); err != nil {
		return "", fmt.Errorf("set deadline: %w", err)
	}

	if _, err := conn.Write(payload); err != nil {
		return "", c.ioError(ctx, "write request", err)
	}

	resp, err := protocol.ReadFrame(conn, c.config.MaxResponseSize)
	if err != nil {
		if errors.Is(err, protocol.ErrFrameTooLarge) {
			return "", fmt.Errorf("%w: more than %d bytes", ErrResponseTooLarge, c.config.MaxResponseSize)
		}
		return "", c.ioError(ctx, "read response", err)
	}

	text := strings.TrimSpace(string(resp))
	if text == "" {
		return "", ErrConnectionClosed
	}
	return text, nil
}

func (c *licenseClient) ioError(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if isTimeout(err) {
		return fmt.Errorf("%w: %s: %w", ErrTimeout, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
