package servecmder_test

import (
	"io"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	servecmder "github.com/papercomputeco/chatrelay/cmd/chatrelay/serve"
)

var _ = Describe("NewServeCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := servecmder.NewServeCmd()
		Expect(cmd.Use).To(Equal("serve"))
	})

	It("registers the gateway flags with their defaults", func() {
		cmd := servecmder.NewServeCmd()

		listen := cmd.Flags().Lookup("listen")
		Expect(listen).NotTo(BeNil())
		Expect(listen.Shorthand).To(Equal("l"))
		Expect(listen.DefValue).To(Equal(":8080"))

		threshold := cmd.Flags().Lookup("flush-threshold")
		Expect(threshold).NotTo(BeNil())
		Expect(threshold.DefValue).To(Equal("3000"))

		for _, name := range []string{"region", "profile", "relay", "events", "brokers", "topic", "workers", "log-file"} {
			Expect(cmd.Flags().Lookup(name)).NotTo(BeNil(), name)
		}
	})

	Describe("PreRunE", func() {
		BeforeEach(func() {
			dir, err := os.MkdirTemp("", "chatrelay-serve-test-*")
			Expect(err).NotTo(HaveOccurred())
			origDir, err := os.Getwd()
			Expect(err).NotTo(HaveOccurred())
			Expect(os.Chdir(dir)).To(Succeed())
			DeferCleanup(func() {
				Expect(os.Chdir(origDir)).To(Succeed())
				os.RemoveAll(dir)
			})
		})

		It("rejects a flush threshold that cannot fit one message", func() {
			cmd := servecmder.NewServeCmd()
			cmd.SetOut(io.Discard)
			cmd.SetErr(io.Discard)
			Expect(cmd.ParseFlags([]string{"--flush-threshold", "100000"})).To(Succeed())
			Expect(cmd.PreRunE(cmd, nil)).To(MatchError(ContainSubstring("relay.max_message_bytes")))
		})

		It("rejects kafka events without brokers", func() {
			cmd := servecmder.NewServeCmd()
			Expect(cmd.ParseFlags([]string{"--events", "kafka"})).To(Succeed())
			Expect(cmd.PreRunE(cmd, nil)).To(MatchError(ContainSubstring("events.brokers")))
		})

		It("accepts the defaults", func() {
			cmd := servecmder.NewServeCmd()
			Expect(cmd.ParseFlags(nil)).To(Succeed())
			Expect(cmd.PreRunE(cmd, nil)).To(Succeed())
		})
	})
})
