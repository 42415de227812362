package api

import (
	"context"
	"errors"
	"net"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/consolechat/pkg/client"
)

var _ = Describe("End to end over TCP", func() {
	var (
		env  *testEnv
		base string
		done chan error
	)

	BeforeEach(func() {
		env = newTestEnv()
		env.streamer.deltas = []string{"第一", "段", "done"}

		ln, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).NotTo(HaveOccurred())
		base = "http://" + ln.Addr().String()

		done = make(chan error, 1)
		go func() { done <- env.server.RunWithListener(ln) }()
	})

	AfterEach(func() {
		Expect(env.server.Shutdown()).To(Succeed())
		Eventually(done, 5*time.Second).Should(Receive())
	})

	It("creates a conversation, streams a reply and lists it", func() {
		ctx := context.Background()
		c, err := client.New(base, client.WithToken(env.token))
		Expect(err).NotTo(HaveOccurred())

		id, err := c.CreateConversation(ctx, "deepseek")
		Expect(err).NotTo(HaveOccurred())

		dec, err := c.Stream(ctx, client.StreamRequest{Content: "hello", Platform: "deepseek", ConversationID: &id})
		Expect(err).NotTo(HaveOccurred())

		var payloads []string
		for p, err := range dec.Payloads() {
			Expect(err).NotTo(HaveOccurred())
			payloads = append(payloads, p)
		}
		Expect(payloads).To(Equal([]string{"第一", "段", "done"}))

		// The assistant reply is stored asynchronously.
		Eventually(func() ([]client.Message, error) {
			return c.ListMessages(ctx, id)
		}, 5*time.Second, 20*time.Millisecond).Should(HaveLen(2))

		msgs, err := c.ListMessages(ctx, id)
		Expect(err).NotTo(HaveOccurred())
		Expect(msgs[1].Content).To(Equal("第一段done"))
		Expect(msgs[1].Type).To(Equal("assistant"))

		convs, err := c.ListConversations(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(convs).To(HaveLen(1))
		Expect(convs[0].Title).To(Equal("hello"))
		Expect(*convs[0].LastMessage).To(Equal("第一段done"))
	})

	It("cuts the streamed reply at a delta ending in a newline", func() {
		env.streamer.deltas = []string{"第一", "段\n", "done"}

		ctx := context.Background()
		c, err := client.New(base, client.WithToken(env.token))
		Expect(err).NotTo(HaveOccurred())

		id, err := c.CreateConversation(ctx, "deepseek")
		Expect(err).NotTo(HaveOccurred())

		dec, err := c.Stream(ctx, client.StreamRequest{Content: "hello", Platform: "deepseek", ConversationID: &id})
		Expect(err).NotTo(HaveOccurred())

		// "data: 段\n\n\n" ends the record early; the following
		// "\ndata: done" record has no prefix and is dropped.
		var payloads []string
		for p, err := range dec.Payloads() {
			Expect(err).NotTo(HaveOccurred())
			payloads = append(payloads, p)
		}
		Expect(payloads).To(Equal([]string{"第一", "段"}))

		// The backend still stores the full reply.
		Eventually(func() ([]client.Message, error) {
			return c.ListMessages(ctx, id)
		}, 5*time.Second, 20*time.Millisecond).Should(HaveLen(2))
		msgs, err := c.ListMessages(ctx, id)
		Expect(err).NotTo(HaveOccurred())
		Expect(msgs[1].Content).To(Equal("第一段\ndone"))
	})

	It("stops waiting for open streams when the shutdown context ends", func() {
		hold := make(chan struct{})
		env.streamer.hold = hold
		defer close(hold)

		ctx := context.Background()
		c, err := client.New(base, client.WithToken(env.token))
		Expect(err).NotTo(HaveOccurred())

		dec, err := c.StreamContent(ctx, "hello")
		Expect(err).NotTo(HaveOccurred())
		defer dec.Close()

		p, err := dec.Next()
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(Equal("第一"))

		shutdownCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
		defer cancel()

		start := time.Now()
		Expect(env.server.ShutdownWithContext(shutdownCtx)).NotTo(Succeed())
		Expect(time.Since(start)).To(BeNumerically("<", 3*time.Second))
	})

	It("surfaces auth failures as status errors", func() {
		c, err := client.New(base, client.WithToken("not-a-jwt"))
		Expect(err).NotTo(HaveOccurred())

		_, err = c.StreamContent(context.Background(), "hi")
		var se *client.StatusError
		Expect(errors.As(err, &se)).To(BeTrue())
		Expect(se.StatusCode).To(Equal(401))
	})
})
