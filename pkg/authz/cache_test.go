package authz_test

import (
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/mentor/pkg/authz"
)

type scriptedChecker struct {
	mu      sync.Mutex
	answers []bool
	errs    []error
	calls   int
}

func (s *scriptedChecker) HasRole(context.Context, string, string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return false, s.errs[i]
	}
	if i < len(s.answers) {
		return s.answers[i], nil
	}
	return false, nil
}

func (s *scriptedChecker) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// gatedChecker blocks until release is closed and then fails with the
// context's error if its context was cancelled meanwhile.
type gatedChecker struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedChecker) HasRole(ctx context.Context, _, _ string) (bool, error) {
	g.once.Do(func() { close(g.started) })
	<-g.release
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return true, nil
}

var _ = Describe("CachedChecker", func() {
	ctx := context.Background()

	It("serves repeated queries from the cache", func() {
		next := &scriptedChecker{answers: []bool{true}}
		c := authz.NewCachedChecker(next, time.Minute)

		for range 3 {
			ok, err := c.HasRole(ctx, "user-1", authz.RoleAdmin)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
		}
		Expect(next.Calls()).To(Equal(1))
	})

	It("caches per user and role", func() {
		next := &scriptedChecker{answers: []bool{true, false}}
		c := authz.NewCachedChecker(next, time.Minute)

		ok, _ := c.HasRole(ctx, "user-1", authz.RoleAdmin)
		Expect(ok).To(BeTrue())
		ok, _ = c.HasRole(ctx, "user-2", authz.RoleAdmin)
		Expect(ok).To(BeFalse())
		Expect(next.Calls()).To(Equal(2))
	})

	It("caches negative answers", func() {
		next := &scriptedChecker{answers: []bool{false, true}}
		c := authz.NewCachedChecker(next, time.Minute)

		ok, _ := c.HasRole(ctx, "user-1", authz.RoleAdmin)
		Expect(ok).To(BeFalse())
		ok, _ = c.HasRole(ctx, "user-1", authz.RoleAdmin)
		Expect(ok).To(BeFalse())
	})

	It("never caches errors", func() {
		next := &scriptedChecker{
			errs:    []error{errors.New("timeout")},
			answers: []bool{false, true},
		}
		c := authz.NewCachedChecker(next, time.Minute)

		_, err := c.HasRole(ctx, "user-1", authz.RoleAdmin)
		Expect(err).To(MatchError("timeout"))

		ok, err := c.HasRole(ctx, "user-1", authz.RoleAdmin)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
	})

	It("asks again once the answer expires", func() {
		next := &scriptedChecker{answers: []bool{true, false}}
		c := authz.NewCachedChecker(next, 20*time.Millisecond)

		ok, _ := c.HasRole(ctx, "user-1", authz.RoleAdmin)
		Expect(ok).To(BeTrue())

		Eventually(func() bool {
			ok, _ := c.HasRole(ctx, "user-1", authz.RoleAdmin)
			return ok
		}).WithTimeout(time.Second).WithPolling(10 * time.Millisecond).Should(BeFalse())
	})

	It("asks again after invalidation", func() {
		next := &scriptedChecker{answers: []bool{true, false}}
		c := authz.NewCachedChecker(next, time.Minute)

		_, _ = c.HasRole(ctx, "user-1", authz.RoleAdmin)
		c.Invalidate("user-1", authz.RoleAdmin)

		ok, _ := c.HasRole(ctx, "user-1", authz.RoleAdmin)
		Expect(ok).To(BeFalse())
		Expect(next.Calls()).To(Equal(2))
	})

	It("passes every query through when the ttl is zero", func() {
		next := &scriptedChecker{answers: []bool{true, false}}
		c := authz.NewCachedChecker(next, 0)

		ok, err := c.HasRole(ctx, "user-1", authz.RoleAdmin)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())

		ok, err = c.HasRole(ctx, "user-1", authz.RoleAdmin)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())
		Expect(next.Calls()).To(Equal(2))

		c.Invalidate("user-1", authz.RoleAdmin)
	})

	It("keeps a shared lookup alive when the first caller gives up", func() {
		next := &gatedChecker{started: make(chan struct{}), release: make(chan struct{})}
		c := authz.NewCachedChecker(next, time.Minute)

		firstCtx, cancel := context.WithCancel(context.Background())
		firstErr := make(chan error, 1)
		go func() {
			_, err := c.HasRole(firstCtx, "user-1", authz.RoleAdmin)
			firstErr <- err
		}()
		Eventually(next.started).Should(BeClosed())

		type answer struct {
			ok  bool
			err error
		}
		second := make(chan answer, 1)
		go func() {
			ok, err := c.HasRole(context.Background(), "user-1", authz.RoleAdmin)
			second <- answer{ok, err}
		}()

		cancel()
		Eventually(firstErr).Should(Receive(MatchError(context.Canceled)))

		close(next.release)
		var got answer
		Eventually(second).Should(Receive(&got))
		Expect(got.err).NotTo(HaveOccurred())
		Expect(got.ok).To(BeTrue())
	})
})
