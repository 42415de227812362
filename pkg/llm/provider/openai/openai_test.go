package openai_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/consolechat/pkg/llm"
	"github.com/papercomputeco/consolechat/pkg/llm/provider/openai"
)

var _ = Describe("OpenAI-compatible streamer", func() {
	var (
		server   *httptest.Server
		lastBody map[string]any
		lastAuth string
		lastPath string
		respond  func(w http.ResponseWriter)
	)

	BeforeEach(func() {
		lastBody = nil
		respond = func(w http.ResponseWriter) {
			w.Header().Set("Content-Type", "text/event-stream")
			_, _ = io.WriteString(w, `data: {"choices":[{"delta":{"role":"assistant","content":""}}]}`+"\n\n")
			_, _ = io.WriteString(w, `data: {"choices":[{"delta":{"content":"Hel"}}]}`+"\n\n")
			_, _ = io.WriteString(w, ": keep-alive\n\n")
			_, _ = io.WriteString(w, `data: {"choices":[{"delta":{"content":"lo"},"finish_reason":"stop"}]}`+"\n\n")
			_, _ = io.WriteString(w, "data: [DONE]\n\n")
			_, _ = io.WriteString(w, `data: {"choices":[{"delta":{"content":"ignored"}}]}`+"\n\n")
		}
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lastAuth = r.Header.Get("Authorization")
			lastPath = r.URL.Path
			_ = json.NewDecoder(r.Body).Decode(&lastBody)
			respond(w)
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	It("requires an API key", func() {
		_, err := openai.New(llm.DeepSeek, llm.Options{})
		Expect(err).To(MatchError(ContainSubstring("DEEPSEEK_API_KEY")))
	})

	It("defaults the model from the platform", func() {
		s, err := openai.New(llm.Tongyi, llm.Options{APIKey: "k"})
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Name()).To(Equal("tongyi"))
		Expect(s.Model()).To(Equal("qwen-plus"))
	})

	It("streams content deltas until [DONE]", func() {
		s, err := openai.New(llm.DeepSeek, llm.Options{APIKey: "sk-test", Upstream: server.URL + "/"})
		Expect(err).NotTo(HaveOccurred())

		reply, err := collect(s.StreamChat(context.Background(), []llm.Message{
			llm.NewTextMessage(llm.RoleSystem, "You are a helpful assistant"),
			llm.NewTextMessage(llm.RoleUser, "hi"),
		}))
		Expect(err).NotTo(HaveOccurred())
		Expect(reply).To(Equal("Hello"))

		Expect(lastPath).To(Equal("/v1/chat/completions"))
		Expect(lastAuth).To(Equal("Bearer sk-test"))
		Expect(lastBody).To(HaveKeyWithValue("model", "deepseek-chat"))
		Expect(lastBody).To(HaveKeyWithValue("stream", true))
		Expect(lastBody["messages"]).To(HaveLen(2))
	})

	It("stops reading when the consumer stops", func() {
		s, err := openai.New(llm.OpenAI, llm.Options{APIKey: "k", Upstream: server.URL})
		Expect(err).NotTo(HaveOccurred())

		var got []string
		for delta, err := range s.StreamChat(context.Background(), nil) {
			Expect(err).NotTo(HaveOccurred())
			got = append(got, delta)
			break
		}
		Expect(got).To(Equal([]string{"Hel"}))
	})

	It("surfaces upstream status errors", func() {
		respond = func(w http.ResponseWriter) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"error":{"message":"bad key"}}`)
		}
		s, err := openai.New(llm.DeepSeek, llm.Options{APIKey: "k", Upstream: server.URL})
		Expect(err).NotTo(HaveOccurred())

		_, err = collect(s.StreamChat(context.Background(), nil))
		var statusErr *llm.StatusError
		Expect(err).To(BeAssignableToTypeOf(statusErr))
		Expect(err.(*llm.StatusError).StatusCode).To(Equal(http.StatusUnauthorized))
		Expect(err).To(MatchError(ContainSubstring("bad key")))
	})

	It("surfaces in-stream errors", func() {
		respond = func(w http.ResponseWriter) {
			_, _ = io.WriteString(w, `data: {"choices":[{"delta":{"content":"par"}}]}`+"\n\n")
			_, _ = io.WriteString(w, `data: {"error":{"message":"overloaded"}}`+"\n\n")
		}
		s, err := openai.New(llm.DeepSeek, llm.Options{APIKey: "k", Upstream: server.URL})
		Expect(err).NotTo(HaveOccurred())

		reply, err := collect(s.StreamChat(context.Background(), nil))
		Expect(reply).To(Equal("par"))
		Expect(err).To(MatchError(ContainSubstring("overloaded")))
	})

	It("rejects malformed chunks", func() {
		respond = func(w http.ResponseWriter) {
			_, _ = io.WriteString(w, "data: {nope\n\n")
		}
		s, err := openai.New(llm.DeepSeek, llm.Options{APIKey: "k", Upstream: server.URL})
		Expect(err).NotTo(HaveOccurred())

		_, err = collect(s.StreamChat(context.Background(), nil))
		Expect(err).To(MatchError(ContainSubstring("decoding deepseek chunk")))
	})
})
