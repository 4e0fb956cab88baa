package sse_test

import (
	"bytes"
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/mentor/pkg/deltastream"
	"github.com/papercomputeco/mentor/pkg/sse"
)

var _ = Describe("Writer", func() {
	var (
		buf *bytes.Buffer
		w   *sse.Writer
	)

	BeforeEach(func() {
		buf = &bytes.Buffer{}
		w = sse.NewWriter(buf)
	})

	It("writes deltas as chat completion chunks", func() {
		Expect(w.WriteDelta("Olá")).To(Succeed())
		Expect(buf.String()).To(Equal("data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"Olá\"}}]}\n\n"))
	})

	It("writes the done sentinel", func() {
		Expect(w.WriteDone()).To(Succeed())
		Expect(buf.String()).To(Equal("data: [DONE]\n\n"))
	})

	It("writes typed error events", func() {
		Expect(w.WriteError("upstream closed")).To(Succeed())
		Expect(buf.String()).To(Equal("event: error\ndata: {\"error\":\"upstream closed\"}\n\n"))
	})

	It("writes comments", func() {
		Expect(w.WriteComment("keep-alive")).To(Succeed())
		Expect(buf.String()).To(Equal(": keep-alive\n\n"))
	})

	It("rejects multi-line data", func() {
		Expect(w.WriteEvent(sse.Event{Data: "a\nb"})).To(MatchError(sse.ErrMultiline))
		Expect(buf.Len()).To(BeZero())
	})

	It("escapes newlines inside delta content", func() {
		Expect(w.WriteDelta("linha 1\nlinha 2")).To(Succeed())
		Expect(bytes.Count(buf.Bytes(), []byte("\n"))).To(Equal(2))
	})

	It("produces a stream the delta decoder reads back", func() {
		for _, f := range []string{"Seu ", "currículo\n", "está 🚀 pronto"} {
			Expect(w.WriteDelta(f)).To(Succeed())
		}
		Expect(w.WriteComment("keep-alive")).To(Succeed())
		Expect(w.WriteDone()).To(Succeed())
		Expect(w.WriteDelta("ignored")).To(Succeed())

		text, err := deltastream.Collect(context.Background(), buf)
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("Seu currículo\nestá 🚀 pronto"))
	})
})
