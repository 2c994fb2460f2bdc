package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/chatrelay/pkg/config"
)

var _ = Describe("Configer config", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "config-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	writeConfig := func(data string) {
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())
	}

	Describe("LoadConfig", func() {
		It("returns default config when no config file exists", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg).To(Equal(config.NewDefaultConfig()))
		})

		It("loads all config fields", func() {
			writeConfig(`version = 0

[server]
listen = ":9090"
heartbeat = "30s"

[backend]
region = "eu-west-1"
profile = "inference"
bedrock_endpoint = "http://localhost:4566"
hosted_endpoint = "http://localhost:4567"

[relay]
provider = "lark"
base_url = "https://open.larksuite.com"
app_id = "cli_a1"
app_secret = "s3cret"
receive_id_type = "open_id"
flush_threshold = 2000
max_message_bytes = 100000
timeout = "5s"

[events]
provider = "kafka"
brokers = "kafka-1:9092,kafka-2:9092"
topic = "completions"
workers = 8
queue_size = 1024

[client]
gateway_target = "http://gateway:9090"

[log]
level = "warn"
`)

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Server.Listen).To(Equal(":9090"))
			Expect(cfg.Server.HeartbeatDuration()).To(Equal(30 * time.Second))
			Expect(cfg.Log.Level).To(Equal("warn"))
			Expect(cfg.Backend).To(Equal(config.BackendConfig{
				Region:          "eu-west-1",
				Profile:         "inference",
				BedrockEndpoint: "http://localhost:4566",
				HostedEndpoint:  "http://localhost:4567",
			}))
			Expect(cfg.Relay.Provider).To(Equal("lark"))
			Expect(cfg.Relay.BaseURL).To(Equal("https://open.larksuite.com"))
			Expect(cfg.Relay.AppID).To(Equal("cli_a1"))
			Expect(cfg.Relay.AppSecret).To(Equal("s3cret"))
			Expect(cfg.Relay.ReceiveIDType).To(Equal("open_id"))
			Expect(cfg.Relay.FlushThreshold).To(Equal(2000))
			Expect(cfg.Relay.MaxMessageBytes).To(Equal(100000))
			Expect(cfg.Relay.Timeout).To(Equal("5s"))
			Expect(cfg.Events.BrokerList()).To(Equal([]string{"kafka-1:9092", "kafka-2:9092"}))
			Expect(cfg.Events.Topic).To(Equal("completions"))
			Expect(cfg.Events.Workers).To(Equal(uint(8)))
			Expect(cfg.Events.QueueSize).To(Equal(uint(1024)))
			Expect(cfg.Client.GatewayTarget).To(Equal("http://gateway:9090"))
			Expect(cfg.Validate()).To(Succeed())
		})

		It("fills in defaults for unset fields in a partial config", func() {
			writeConfig(`[relay]
flush_threshold = 1000
`)

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())

			defaults := config.NewDefaultConfig()
			Expect(cfg.Relay.FlushThreshold).To(Equal(1000))
			Expect(cfg.Relay.MaxMessageBytes).To(Equal(defaults.Relay.MaxMessageBytes))
			Expect(cfg.Relay.Timeout).To(Equal(defaults.Relay.Timeout))
			Expect(cfg.Server.Listen).To(Equal(defaults.Server.Listen))
			Expect(cfg.Events.Provider).To(Equal(defaults.Events.Provider))
			Expect(cfg.Events.Workers).To(Equal(defaults.Events.Workers))
			Expect(cfg.Server.Heartbeat).To(Equal("15s"))
			Expect(cfg.Log.Level).To(Equal("info"))
		})

		It("rejects an unsupported version", func() {
			writeConfig("version = 7\n")

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.LoadConfig()
			Expect(err).To(MatchError(ContainSubstring("unsupported config version 7")))
		})

		It("returns an error for invalid TOML", func() {
			writeConfig("[relay\nprovider = ")

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.LoadConfig()
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("SaveConfig", func() {
		It("writes a file LoadConfig reads back", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg := config.NewDefaultConfig()
			cfg.Relay.Provider = config.RelayNone
			cfg.Events.Topic = "audit"
			Expect(c.SaveConfig(cfg)).To(Succeed())

			loaded, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(cfg))
		})

		It("rejects nil", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.SaveConfig(nil)).To(HaveOccurred())
		})
	})

	Describe("SetConfigValue and GetConfigValue", func() {
		var c *config.Configer

		BeforeEach(func() {
			var err error
			c, err = config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
		})

		It("persists string keys", func() {
			Expect(c.SetConfigValue("backend.region", "ap-southeast-1")).To(Succeed())

			v, err := c.GetConfigValue("backend.region")
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal("ap-southeast-1"))

			data, err := os.ReadFile(filepath.Join(tmpDir, "config.toml"))
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring(`region = "ap-southeast-1"`))
		})

		It("parses numeric keys", func() {
			Expect(c.SetConfigValue("relay.flush_threshold", "1200")).To(Succeed())

			v, err := c.GetConfigValue("relay.flush_threshold")
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal("1200"))
		})

		It("rejects non-numeric values for numeric keys", func() {
			Expect(c.SetConfigValue("events.workers", "many")).To(MatchError(ContainSubstring("events.workers")))
		})

		It("rejects an unparseable timeout", func() {
			Expect(c.SetConfigValue("relay.timeout", "soon")).To(MatchError(ContainSubstring("relay.timeout")))
		})

		It("rejects a threshold the transport limit cannot hold", func() {
			err := c.SetConfigValue("relay.flush_threshold", "40000")
			Expect(err).To(MatchError(ContainSubstring("relay.max_message_bytes")))

			v, err := c.GetConfigValue("relay.flush_threshold")
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal("3000"))
		})

		It("validates the log level before saving", func() {
			Expect(c.SetConfigValue("log.level", "loud")).To(MatchError(ContainSubstring("unknown log level")))
			Expect(c.SetConfigValue("log.level", "DEBUG")).To(Succeed())

			v, err := c.GetConfigValue("log.level")
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal("DEBUG"))
		})

		It("rejects unknown keys", func() {
			Expect(c.SetConfigValue("proxy.upstream", "x")).To(MatchError(ContainSubstring("unknown config key")))
			_, err := c.GetConfigValue("proxy.upstream")
			Expect(err).To(HaveOccurred())
		})
	})
})

var _ = Describe("Config keys", func() {
	It("lists every key in section order", func() {
		keys := config.ValidConfigKeys()
		Expect(keys[0]).To(Equal("server.listen"))
		Expect(keys[len(keys)-1]).To(Equal("log.level"))
		for _, k := range keys {
			Expect(config.IsValidConfigKey(k)).To(BeTrue(), k)
		}
	})

	It("returns a copy", func() {
		keys := config.ValidConfigKeys()
		keys[0] = "mutated"
		Expect(config.ValidConfigKeys()[0]).To(Equal("server.listen"))
	})

	It("rejects unknown keys", func() {
		Expect(config.IsValidConfigKey("embedding.model")).To(BeFalse())
	})
})

var _ = Describe("Validate", func() {
	var cfg *config.Config

	BeforeEach(func() {
		cfg = config.NewDefaultConfig()
	})

	It("accepts the defaults", func() {
		Expect(cfg.Validate()).To(Succeed())
	})

	It("rejects an unknown log level", func() {
		cfg.Log.Level = "chatty"
		Expect(cfg.Validate()).To(MatchError(ContainSubstring(`unknown log level "chatty"`)))
	})

	It("rejects a negative heartbeat", func() {
		cfg.Server.Heartbeat = "-1s"
		Expect(cfg.Validate()).To(MatchError(ContainSubstring("server.heartbeat must not be negative")))
	})

	It("accepts a threshold exactly at the worst-case limit", func() {
		cfg.Relay.FlushThreshold = 37500
		Expect(cfg.Validate()).To(Succeed())
	})

	It("rejects a threshold one rune past the worst-case limit", func() {
		cfg.Relay.FlushThreshold = 37501
		Expect(cfg.Validate()).To(MatchError(ContainSubstring("at most 37500 runes fit")))
	})

	It("rejects non-positive limits", func() {
		cfg.Relay.FlushThreshold = 0
		cfg.Relay.MaxMessageBytes = -1
		err := cfg.Validate()
		Expect(err).To(MatchError(ContainSubstring("relay.flush_threshold must be positive")))
		Expect(err).To(MatchError(ContainSubstring("relay.max_message_bytes must be positive")))
	})

	It("requires lark credentials", func() {
		cfg.Relay.Provider = config.RelayLark
		Expect(cfg.Validate()).To(MatchError(ContainSubstring("relay.app_id")))

		cfg.Relay.AppID = "cli_a1"
		cfg.Relay.AppSecret = "secret"
		Expect(cfg.Validate()).To(Succeed())
	})

	It("rejects unknown providers", func() {
		cfg.Relay.Provider = "smtp"
		cfg.Events.Provider = "nats"
		err := cfg.Validate()
		Expect(err).To(MatchError(ContainSubstring(`relay.provider "smtp"`)))
		Expect(err).To(MatchError(ContainSubstring(`events.provider "nats"`)))
	})

	It("requires brokers for kafka", func() {
		cfg.Events.Provider = config.EventsKafka
		cfg.Events.Brokers = " , "
		Expect(cfg.Validate()).To(MatchError(ContainSubstring("events.brokers")))
	})

	It("rejects a negative timeout", func() {
		cfg.Relay.Timeout = "-1s"
		Expect(cfg.Validate()).To(MatchError(ContainSubstring("relay.timeout")))
	})
})
