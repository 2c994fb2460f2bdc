package relay_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/chatrelay/pkg/relay"
)

func texts(msgs []relay.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Text)
	}
	return out
}

var _ = Describe("Buffer", func() {
	var b *relay.Buffer

	BeforeEach(func() {
		b = relay.NewBuffer("oc_123", 3000)
	})

	It("flushes a completed paragraph and keeps the tail", func() {
		a := strings.Repeat("A", 1500)
		msgs := b.Absorb(a + "\n\n" + strings.Repeat("B", 10))
		Expect(texts(msgs)).To(Equal([]string{a}))
		Expect(msgs[0].TargetID).To(Equal("oc_123"))
		Expect(b.Pending()).To(Equal(10))

		last, ok := b.Drain()
		Expect(ok).To(BeTrue())
		Expect(last.Text).To(Equal(strings.Repeat("B", 10)))
	})

	It("detects separators split across deltas", func() {
		Expect(b.Absorb("first\n")).To(BeEmpty())
		Expect(texts(b.Absorb("\nsecond"))).To(Equal([]string{"first"}))
	})

	It("flushes several paragraphs from one delta and skips blank parts", func() {
		msgs := b.Absorb("one\n\n  \n\ntwo\n\n\n\nthree")
		Expect(texts(msgs)).To(Equal([]string{"one", "two"}))

		last, ok := b.Drain()
		Expect(ok).To(BeTrue())
		Expect(last.Text).To(Equal("three"))
	})

	It("flushes everything once the threshold is reached", func() {
		text := strings.Repeat("x", 3050)
		Expect(texts(b.Absorb(text))).To(Equal([]string{text}))
		Expect(b.Pending()).To(BeZero())

		_, ok := b.Drain()
		Expect(ok).To(BeFalse())
	})

	It("counts the threshold in runes", func() {
		b = relay.NewBuffer("t", 5)
		Expect(b.Absorb("日本語")).To(BeEmpty())
		Expect(b.Pending()).To(Equal(3))
		Expect(texts(b.Absorb("です"))).To(Equal([]string{"日本語です"}))
	})

	It("never delivers the same text twice", func() {
		b = relay.NewBuffer("t", 20)
		var all []string
		for _, delta := range []string{"alpha\n\nbe", "ta gamma delta ", "epsilon\n\nzeta"} {
			all = append(all, texts(b.Absorb(delta))...)
		}
		if last, ok := b.Drain(); ok {
			all = append(all, last.Text)
		}

		Expect(all).To(Equal([]string{"alpha", "beta gamma delta epsilon", "zeta"}))
	})

	It("ignores input after Drain", func() {
		b.Absorb("tail")
		_, ok := b.Drain()
		Expect(ok).To(BeTrue())
		Expect(b.Closed()).To(BeTrue())

		Expect(b.Absorb("late\n\nmore")).To(BeNil())
		_, ok = b.Drain()
		Expect(ok).To(BeFalse())
	})

	It("does not drain blank remainders", func() {
		b.Absorb("  \n")
		_, ok := b.Drain()
		Expect(ok).To(BeFalse())
	})

	It("falls back to the default threshold", func() {
		b = relay.NewBuffer("t", 0)
		Expect(b.Absorb(strings.Repeat("y", relay.DefaultFlushThreshold-1))).To(BeEmpty())
		Expect(b.Absorb("y")).To(HaveLen(1))
	})
})
