package servecmder

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/consolechat/pkg/eventstream/kafka"
	"github.com/papercomputeco/consolechat/pkg/eventstream/nop"
	"github.com/papercomputeco/consolechat/pkg/logger"
	"github.com/papercomputeco/consolechat/pkg/storage/inmemory"
	"github.com/papercomputeco/consolechat/pkg/storage/sqlite"
)

func freeAddr() string {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	Expect(err).NotTo(HaveOccurred())
	addr := l.Addr().String()
	Expect(l.Close()).To(Succeed())
	return addr
}

var _ = Describe("NewServeCmd", func() {
	It("registers the server flags", func() {
		cmd := NewServeCmd()
		for _, name := range []string{"listen", "ws-listen", "jwt-secret", "workers", "sqlite", "postgres", "default-platform", "upstream", "kafka-brokers", "kafka-topic", "env-file", "log-file"} {
			Expect(cmd.Flags().Lookup(name)).NotTo(BeNil(), name)
		}
	})

	It("resolves settings through flags, env and defaults", func() {
		GinkgoT().Setenv("CONSOLECHAT_SERVER_WORKERS", "9")

		c := &serveCommander{}
		cmd := newServeCmd(c)
		cmd.PersistentFlags().String("config-dir", GinkgoT().TempDir(), "")
		Expect(cmd.ParseFlags([]string{"--listen", ":7000"})).To(Succeed())
		Expect(cmd.PreRunE(cmd, nil)).To(Succeed())

		Expect(c.listen).To(Equal(":7000"))
		Expect(c.workers).To(Equal(uint(9)))
		Expect(c.defaultPlatform).To(Equal("deepseek"))
		Expect(c.kafkaTopic).To(Equal("consolechat.messages"))
		Expect(c.wsListen).To(BeEmpty())
	})
})

var _ = Describe("loadEnvFile", func() {
	AfterEach(func() {
		_ = os.Unsetenv("CONSOLECHAT_TEST_FROM_DOTENV")
	})

	It("loads variables from the given file", func() {
		Expect(loadEnvFile(writeEnvFile("CONSOLECHAT_TEST_FROM_DOTENV=yes"))).To(Succeed())
		Expect(os.Getenv("CONSOLECHAT_TEST_FROM_DOTENV")).To(Equal("yes"))
	})

	It("does not override variables already set", func() {
		GinkgoT().Setenv("CONSOLECHAT_TEST_FROM_DOTENV", "shell")
		Expect(loadEnvFile(writeEnvFile("CONSOLECHAT_TEST_FROM_DOTENV=file"))).To(Succeed())
		Expect(os.Getenv("CONSOLECHAT_TEST_FROM_DOTENV")).To(Equal("shell"))
	})

	It("fails on a missing explicit file", func() {
		Expect(loadEnvFile(filepath.Join(GinkgoT().TempDir(), "missing.env"))).To(HaveOccurred())
	})

	It("tolerates a missing ./.env", func() {
		orig, err := os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(GinkgoT().TempDir())).To(Succeed())
		DeferCleanup(os.Chdir, orig)

		Expect(loadEnvFile("")).To(Succeed())
	})
})

var _ = Describe("serveCommander", func() {
	var c *serveCommander

	BeforeEach(func() {
		c = &serveCommander{logger: logger.Nop()}
	})

	Describe("newStorageDriver", func() {
		It("defaults to memory", func() {
			d, err := c.newStorageDriver(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(d).To(BeAssignableToTypeOf(&inmemory.Driver{}))
		})

		It("opens SQLite when a path is set", func() {
			c.sqlitePath = filepath.Join(GinkgoT().TempDir(), "chat.db")
			d, err := c.newStorageDriver(context.Background())
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(d.Close)
			Expect(d).To(BeAssignableToTypeOf(&sqlite.Driver{}))
		})
	})

	Describe("newPublisher", func() {
		It("is a no-op without brokers", func() {
			p, err := c.newPublisher()
			Expect(err).NotTo(HaveOccurred())
			Expect(p).To(BeAssignableToTypeOf(&nop.Publisher{}))
		})

		It("uses Kafka when brokers are set", func() {
			c.kafkaBrokers = "127.0.0.1:9092"
			c.kafkaTopic = "chat.messages"
			p, err := c.newPublisher()
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(p.Close)
			Expect(p).To(BeAssignableToTypeOf(&kafka.Publisher{}))
		})
	})

	Describe("run", func() {
		It("refuses to start without a JWT secret", func() {
			c.stdout = io.Discard
			err := c.run(context.Background())
			Expect(err).To(MatchError(ContainSubstring("jwt secret is required")))
		})

		It("serves until the context is cancelled", func() {
			out := &bytes.Buffer{}
			c.stdout = out
			c.jwtSecret = "s3cret"
			c.configDir = GinkgoT().TempDir()
			c.listen = freeAddr()
			c.logFile = filepath.Join(GinkgoT().TempDir(), "serve.log")

			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- c.run(ctx) }()

			Eventually(func() (int, error) {
				resp, err := http.Get("http://" + c.listen + "/ping")
				if err != nil {
					return 0, err
				}
				defer resp.Body.Close()
				return resp.StatusCode, nil
			}).Should(Equal(http.StatusOK))

			cancel()
			Eventually(done).Should(Receive(BeNil()))

			data, err := os.ReadFile(c.logFile)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring(`"msg":"using in-memory storage"`))
		})
	})
})

func writeEnvFile(content string) string {
	path := filepath.Join(GinkgoT().TempDir(), "test.env")
	Expect(os.WriteFile(path, []byte(content+"\n"), 0o600)).To(Succeed())
	return path
}
