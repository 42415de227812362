package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/consolechat/pkg/llm"
	"github.com/papercomputeco/consolechat/pkg/sse"
	"github.com/papercomputeco/consolechat/pkg/storage"
)

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

// readPayloads decodes a stream response body the way clients do.
func readPayloads(resp *http.Response) []string {
	dec, err := sse.NewDecoder(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	var out []string
	for p, err := range dec.Payloads() {
		Expect(err).NotTo(HaveOccurred())
		out = append(out, p)
	}
	return out
}

var _ = Describe("POST /chat/stream", func() {
	var (
		env  *testEnv
		conv *storage.Conversation
		ctx  context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		env = newTestEnv()
		var err error
		conv, err = env.driver.CreateConversation(ctx, &storage.Conversation{UserID: 7, Title: NewConversationTitle})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		_ = env.server.Shutdown()
	})

	body := func(content string, id int64) string {
		return `{"content":` + strconv.Quote(content) + `,"platform":"deepseek","conversation_id":` + itoa(id) + `}`
	}

	It("streams deltas as data records", func() {
		resp := env.do(http.MethodPost, "/chat/stream", body("Say hello", conv.ID))
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(resp.Header.Get("Content-Type")).To(HavePrefix("text/event-stream"))
		Expect(readPayloads(resp)).To(Equal([]string{"Hello", " world", "!"}))
		Expect(env.platform).To(Equal(llm.DeepSeek))
	})

	It("stores the user message, sets the title and persists the reply", func() {
		resp := env.do(http.MethodPost, "/chat/stream", body("Say hello", conv.ID))
		_, _ = io.ReadAll(resp.Body)
		resp.Body.Close()

		// Drain the worker pool so the assistant reply is stored.
		Expect(env.server.Shutdown()).To(Succeed())

		history, err := env.driver.History(ctx, conv.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(history).To(HaveLen(2))
		Expect(history[0].Type).To(Equal(storage.MessageTypeUser))
		Expect(history[0].Content).To(Equal("Say hello"))
		Expect(history[1].Type).To(Equal(storage.MessageTypeAssistant))
		Expect(history[1].Content).To(Equal("Hello world!"))
		Expect(history[1].Model).To(Equal("deepseek-chat"))

		stored, err := env.driver.GetConversation(ctx, conv.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(stored.Title).To(Equal("Say hello"))
	})

	It("sends the system prompt followed by the history", func() {
		_, err := env.driver.AddMessage(ctx, &storage.Message{ConversationID: conv.ID, UserID: 7, Type: storage.MessageTypeUser, Content: "earlier"})
		Expect(err).NotTo(HaveOccurred())
		_, err = env.driver.AddMessage(ctx, &storage.Message{ConversationID: conv.ID, UserID: 7, Type: storage.MessageTypeAssistant, Content: "reply"})
		Expect(err).NotTo(HaveOccurred())

		resp := env.do(http.MethodPost, "/chat/stream", body("now", conv.ID))
		_, _ = io.ReadAll(resp.Body)
		resp.Body.Close()
		Expect(env.server.Shutdown()).To(Succeed())

		Expect(env.streamer.messages()).To(Equal([]llm.Message{
			{Role: llm.RoleSystem, Content: DefaultSystemPrompt},
			{Role: llm.RoleUser, Content: "earlier"},
			{Role: llm.RoleAssistant, Content: "reply"},
			{Role: llm.RoleUser, Content: "now"},
		}))

		stored, _ := env.driver.GetConversation(ctx, conv.ID)
		Expect(stored.Title).To(Equal(NewConversationTitle))
	})

	It("truncates long titles", func() {
		long := strings.Repeat("長", 300)
		resp := env.do(http.MethodPost, "/chat/stream", body(long, conv.ID))
		_, _ = io.ReadAll(resp.Body)
		resp.Body.Close()
		Expect(env.server.Shutdown()).To(Succeed())

		stored, _ := env.driver.GetConversation(ctx, conv.ID)
		Expect([]rune(stored.Title)).To(HaveLen(storage.MaxTitleLength))
	})

	It("rejects empty content", func() {
		resp := env.do(http.MethodPost, "/chat/stream", body("  ", conv.ID))
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		Expect(decodeEnvelope(resp).Error).NotTo(BeNil())
	})

	It("rejects unknown conversations", func() {
		resp := env.do(http.MethodPost, "/chat/stream", body("hi", 999))
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		Expect(*decodeEnvelope(resp).Error).To(ContainSubstring("conversation not found"))
	})

	It("rejects conversations owned by someone else", func() {
		other, _ := env.driver.CreateConversation(ctx, &storage.Conversation{UserID: 8})
		resp := env.do(http.MethodPost, "/chat/stream", body("hi", other.ID))
		resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

		history, _ := env.driver.History(ctx, other.ID)
		Expect(history).To(BeEmpty())
	})

	It("does not store a reply when the upstream fails", func() {
		env.streamer.deltas = []string{"partial"}
		env.streamer.err = errUpstream

		req := body("hi", conv.ID)
		if resp, err := env.server.app.Test(newAuthedRequest(env, req), -1); err == nil {
			_, _ = io.ReadAll(resp.Body)
			resp.Body.Close()
		}
		Expect(env.server.Shutdown()).To(Succeed())

		history, err := env.driver.History(ctx, conv.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(history).To(HaveLen(1))
		Expect(history[0].Type).To(Equal(storage.MessageTypeUser))
	})
})

var _ = Describe("POST /ai/stream", func() {
	var env *testEnv

	BeforeEach(func() {
		env = newTestEnv()
	})

	AfterEach(func() {
		Expect(env.server.Shutdown()).To(Succeed())
	})

	It("streams a stateless reply on the default platform", func() {
		resp := env.do(http.MethodPost, "/ai/stream", `{"content":"ping"}`)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(readPayloads(resp)).To(Equal([]string{"Hello", " world", "!"}))
		Expect(env.platform).To(Equal(llm.DefaultPlatform))
		Expect(env.streamer.messages()).To(Equal([]llm.Message{
			{Role: llm.RoleSystem, Content: DefaultSystemPrompt},
			{Role: llm.RoleUser, Content: "ping"},
		}))
		convs, err := env.driver.ListConversations(context.Background(), 7)
		Expect(err).NotTo(HaveOccurred())
		Expect(convs).To(BeEmpty())
	})

	It("rejects empty content", func() {
		resp := env.do(http.MethodPost, "/ai/stream", `{"content":""}`)
		resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
	})
})

func newAuthedRequest(env *testEnv, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/chat/stream", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+env.token)
	return req
}
