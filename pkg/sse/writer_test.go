package sse

import (
	"bytes"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Writer", func() {
	var (
		buf *bytes.Buffer
		w   *Writer
	)

	BeforeEach(func() {
		buf = &bytes.Buffer{}
		w = NewWriter(buf)
	})

	It("frames data events", func() {
		Expect(w.WriteData([]byte(`{"x":1}`))).To(Succeed())
		Expect(buf.String()).To(Equal("data: {\"x\":1}\n\n"))
	})

	It("splits embedded newlines into data lines", func() {
		Expect(w.WriteData([]byte("a\nb"))).To(Succeed())
		Expect(buf.String()).To(Equal("data: a\ndata: b\n\n"))
	})

	It("writes the done sentinel", func() {
		Expect(w.WriteDone()).To(Succeed())
		Expect(buf.String()).To(Equal("data: [DONE]\n\n"))
	})

	It("writes comments that readers skip", func() {
		Expect(w.WriteComment("ping")).To(Succeed())
		Expect(w.WriteData([]byte("after"))).To(Succeed())
		Expect(buf.String()).To(HavePrefix(": ping\n\n"))

		ev, err := NewReader(strings.NewReader(buf.String())).Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.Data).To(Equal("after"))
	})

	It("round-trips through the Reader", func() {
		Expect(w.WriteData([]byte("one\ntwo"))).To(Succeed())
		Expect(w.WriteDone()).To(Succeed())

		r := NewReader(strings.NewReader(buf.String()))
		ev, err := r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.Data).To(Equal("one\ntwo"))

		ev, err = r.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(ev.IsDone()).To(BeTrue())
	})
})
