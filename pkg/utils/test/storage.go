package testutils

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/mentor/pkg/llm"
	"github.com/papercomputeco/mentor/pkg/storage"
)

// DriverBehaviors registers the specs every storage.Driver must pass.
// newDriver is called before each spec; the driver is closed after it.
func DriverBehaviors(newDriver func() storage.Driver) {
	var (
		driver storage.Driver
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = nil
		driver = newDriver()
	})

	AfterEach(func() {
		if driver != nil {
			Expect(driver.Close()).To(Succeed())
		}
	})

	Describe("seen notifications", func() {
		It("reports unseen stages as not seen", func() {
			seen, err := driver.HasSeen(ctx, "user-1", 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(seen).To(BeFalse())
		})

		It("records a seen stage per user", func() {
			Expect(driver.MarkSeen(ctx, "user-1", 3)).To(Succeed())

			seen, err := driver.HasSeen(ctx, "user-1", 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(seen).To(BeTrue())

			seen, err = driver.HasSeen(ctx, "user-2", 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(seen).To(BeFalse())
		})

		It("treats marking twice as a no-op", func() {
			Expect(driver.MarkSeen(ctx, "user-1", 5)).To(Succeed())
			Expect(driver.MarkSeen(ctx, "user-1", 5)).To(Succeed())
			Expect(driver.MarkSeen(ctx, "user-1", 1)).To(Succeed())

			stages, err := driver.SeenStages(ctx, "user-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(stages).To(Equal([]int{1, 5}))
		})

		It("rejects an empty user", func() {
			Expect(driver.MarkSeen(ctx, "", 1)).To(MatchError(storage.ErrEmptyUser))
		})
	})

	Describe("progress", func() {
		It("returns NotFoundError for a missing row", func() {
			_, err := driver.GetProgress(ctx, "user-1", 2)
			Expect(err).To(BeAssignableToTypeOf(storage.NotFoundError{}))
		})

		It("inserts a completed row at step 1", func() {
			at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
			p, err := driver.UpsertProgress(ctx, "user-1", 2, at)
			Expect(err).NotTo(HaveOccurred())
			Expect(p.UserID).To(Equal("user-1"))
			Expect(p.Stage).To(Equal(2))
			Expect(p.CurrentStep).To(Equal(1))
			Expect(p.Completed).To(BeTrue())
			Expect(p.UpdatedAt.Equal(at)).To(BeTrue())
		})

		It("updates the timestamp of an existing row", func() {
			first := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
			second := first.Add(time.Hour)

			_, err := driver.UpsertProgress(ctx, "user-1", 2, first)
			Expect(err).NotTo(HaveOccurred())
			p, err := driver.UpsertProgress(ctx, "user-1", 2, second)
			Expect(err).NotTo(HaveOccurred())
			Expect(p.UpdatedAt.Equal(second)).To(BeTrue())

			all, err := driver.ListProgress(ctx, "user-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(1))
		})

		It("lists progress ordered by stage", func() {
			now := time.Now()
			for _, stage := range []int{5, 1, 3} {
				_, err := driver.UpsertProgress(ctx, "user-1", stage, now)
				Expect(err).NotTo(HaveOccurred())
			}
			_, err := driver.UpsertProgress(ctx, "user-2", 4, now)
			Expect(err).NotTo(HaveOccurred())

			all, err := driver.ListProgress(ctx, "user-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(3))
			Expect(all[0].Stage).To(Equal(1))
			Expect(all[1].Stage).To(Equal(3))
			Expect(all[2].Stage).To(Equal(5))
		})
	})

	Describe("messages", func() {
		message := func(user string, role llm.Role, content string) storage.ChatMessage {
			return storage.ChatMessage{
				UserID:  user,
				Context: llm.ContextCV,
				Role:    role,
				Content: content,
			}
		}

		It("keeps append order and assigns ids", func() {
			Expect(driver.AppendMessages(ctx,
				message("user-1", llm.RoleUser, "oi"),
				message("user-1", llm.RoleAssistant, "Olá! Como posso ajudar?"),
			)).To(Succeed())
			Expect(driver.AppendMessages(ctx,
				message("user-1", llm.RoleUser, "revise meu CV"),
			)).To(Succeed())

			msgs, err := driver.ListMessages(ctx, "user-1", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(msgs).To(HaveLen(3))
			Expect(msgs[0].Content).To(Equal("oi"))
			Expect(msgs[1].Role).To(Equal(llm.RoleAssistant))
			Expect(msgs[2].Content).To(Equal("revise meu CV"))
			Expect(msgs[0].ID).NotTo(BeEmpty())
			Expect(msgs[0].Context).To(Equal(llm.ContextCV))
		})

		It("returns the latest messages oldest first when limited", func() {
			for _, c := range []string{"a", "b", "c", "d"} {
				Expect(driver.AppendMessages(ctx, message("user-1", llm.RoleUser, c))).To(Succeed())
			}

			msgs, err := driver.ListMessages(ctx, "user-1", 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(msgs).To(HaveLen(2))
			Expect(msgs[0].Content).To(Equal("c"))
			Expect(msgs[1].Content).To(Equal("d"))
		})

		It("separates users", func() {
			Expect(driver.AppendMessages(ctx, message("user-2", llm.RoleUser, "x"))).To(Succeed())

			msgs, err := driver.ListMessages(ctx, "user-1", 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(msgs).To(BeEmpty())
		})

		It("rejects messages without a user", func() {
			err := driver.AppendMessages(ctx, message("", llm.RoleUser, "x"))
			Expect(err).To(MatchError(storage.ErrEmptyUser))
		})
	})
}
