package authz

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

const defaultCacheSize = 4096

// CachedChecker remembers answers of another RoleChecker for a while.
// Failed lookups are never cached and leave earlier answers untouched.
type CachedChecker struct {
	next    RoleChecker
	answers *expirable.LRU[string, bool]
	group   singleflight.Group
}

var _ RoleChecker = (*CachedChecker)(nil)

// NewCachedChecker wraps next with a cache holding answers for ttl. A ttl of
// zero or less disables caching and every query goes to next.
func NewCachedChecker(next RoleChecker, ttl time.Duration) *CachedChecker {
	c := &CachedChecker{next: next}
	if ttl > 0 {
		c.answers = expirable.NewLRU[string, bool](defaultCacheSize, nil, ttl)
	}
	return c
}

// HasRole answers from the cache or asks the wrapped checker once per key,
// even under concurrent load. The shared lookup does not inherit the
// cancellation of whichever caller started it; each caller stops waiting when
// its own ctx is done.
func (c *CachedChecker) HasRole(ctx context.Context, userID, role string) (bool, error) {
	if c.answers == nil {
		return c.next.HasRole(ctx, userID, role)
	}

	key := cacheKey(userID, role)
	if ok, found := c.answers.Get(key); found {
		return ok, nil
	}

	flightCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		ok, err := c.next.HasRole(flightCtx, userID, role)
		if err != nil {
			return false, err
		}
		c.answers.Add(key, ok)
		return ok, nil
	})

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return false, res.Err
		}
		return res.Val.(bool), nil
	}
}

// Invalidate drops the cached answer for a user and role.
func (c *CachedChecker) Invalidate(userID, role string) {
	if c.answers != nil {
		c.answers.Remove(cacheKey(userID, role))
	}
}

func cacheKey(userID, role string) string {
	return userID + "\x00" + role
}
