package dotdir_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/mentor/pkg/dotdir"
	"github.com/papercomputeco/mentor/pkg/llm"
)

var _ = Describe("dotdir.Manager session", func() {
	var tmpDir string
	var m *dotdir.Manager

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "dotdir-session-*")
		Expect(err).NotTo(HaveOccurred())
		m = dotdir.NewManager()
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("returns nil when no session was saved", func() {
		state, err := m.LoadSession(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(state).To(BeNil())
	})

	It("saves and loads a session", func() {
		saved := &dotdir.SessionState{
			Context: llm.ContextInterview,
			Messages: []llm.Message{
				llm.NewUserMessage("simule uma entrevista"),
				llm.NewAssistantMessage("Vamos lá! Fale sobre você."),
			},
			SavedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		}
		Expect(m.SaveSession(saved, tmpDir)).To(Succeed())

		state, err := m.LoadSession(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(state.Context).To(Equal(llm.ContextInterview))
		Expect(state.Messages).To(Equal(saved.Messages))
		Expect(state.SavedAt.Equal(saved.SavedAt)).To(BeTrue())
	})

	It("normalizes an unknown context", func() {
		data := `{"context":"astrology","messages":[{"role":"user","content":"oi"}]}`
		Expect(os.WriteFile(filepath.Join(tmpDir, "session.json"), []byte(data), 0o600)).To(Succeed())

		state, err := m.LoadSession(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(state.Context).To(Equal(llm.ContextGeneral))
	})

	It("returns error for invalid JSON", func() {
		Expect(os.WriteFile(filepath.Join(tmpDir, "session.json"), []byte("not json"), 0o600)).To(Succeed())

		state, err := m.LoadSession(tmpDir)
		Expect(err).To(HaveOccurred())
		Expect(state).To(BeNil())
	})

	It("rejects a nil session", func() {
		Expect(m.SaveSession(nil, tmpDir)).To(MatchError("cannot save nil session"))
	})

	It("clears the session and tolerates clearing twice", func() {
		Expect(m.SaveSession(&dotdir.SessionState{}, tmpDir)).To(Succeed())
		Expect(m.ClearSession(tmpDir)).To(Succeed())
		Expect(m.ClearSession(tmpDir)).To(Succeed())

		state, err := m.LoadSession(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(state).To(BeNil())
	})
})
