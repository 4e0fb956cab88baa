// Package authz answers role queries such as "is this user an admin".
package authz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/papercomputeco/mentor/pkg/remote"
)

// RoleAdmin is the role granting access to the mentor back office.
const RoleAdmin = "admin"

// HasRolePath is the remote procedure answering role queries.
const HasRolePath = "/rest/v1/rpc/has_role"

// RoleChecker reports whether a user holds a role.
type RoleChecker interface {
	HasRole(ctx context.Context, userID, role string) (bool, error)
}

// RPCChecker asks the remote has_role procedure.
type RPCChecker struct {
	client *remote.Client
	logger *slog.Logger

	retries    int
	retryDelay time.Duration
}

// RPCOption configures an RPCChecker.
type RPCOption func(*RPCChecker)

// WithRetries sets how many times a transient failure is retried and the
// delay before the first retry. Each following retry waits twice as long.
func WithRetries(n int, delay time.Duration) RPCOption {
	return func(c *RPCChecker) {
		c.retries = max(n, 0)
		c.retryDelay = delay
	}
}

// NewRPCChecker creates a checker calling the remote procedure.
func NewRPCChecker(client *remote.Client, logger *slog.Logger, opts ...RPCOption) *RPCChecker {
	c := &RPCChecker{
		client:     client,
		logger:     logger,
		retries:    2,
		retryDelay: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type hasRoleRequest struct {
	UserID string `json:"_user_id"`
	Role   string `json:"_role"`
}

// HasRole queries the remote procedure. An empty user never holds a role.
func (c *RPCChecker) HasRole(ctx context.Context, userID, role string) (bool, error) {
	if userID == "" {
		return false, nil
	}

	req := hasRoleRequest{UserID: userID, Role: role}

	query := func() (bool, error) {
		var ok bool
		err := c.client.DecodeJSON(ctx, HasRolePath, req, &ok)
		if err != nil && !retryable(ctx, err) {
			return false, backoff.Permanent(err)
		}
		return ok, err
	}

	ok, err := backoff.Retry(ctx, query,
		backoff.WithBackOff(c.backOff()),
		backoff.WithMaxTries(uint(c.retries)+1),
		backoff.WithNotify(func(err error, delay time.Duration) {
			c.logger.Debug("retrying role check",
				"user_id", userID,
				"role", role,
				"delay", delay,
				"error", err,
			)
		}),
	)
	if err != nil {
		return false, fmt.Errorf("checking role %s: %w", role, err)
	}
	return ok, nil
}

// backOff doubles retryDelay between attempts without jitter, capped at a
// minute.
func (c *RPCChecker) backOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryDelay
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = time.Minute
	b.Reset()
	return b
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}

	var upErr *remote.UpstreamError
	if errors.As(err, &upErr) {
		return upErr.Temporary()
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
