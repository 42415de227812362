// Package storagetest holds the behaviour every storage.Driver must show,
// written as ginkgo specs so each driver package can run them.
package storagetest

import (
	"context"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/consolechat/pkg/storage"
)

// DriverSpecs registers the shared driver specs. newDriver is called before
// each spec and must return an empty store; the specs close it.
func DriverSpecs(newDriver func(ctx context.Context) storage.Driver) bool {
	return Describe("storage.Driver", func() {
		var (
			d   storage.Driver
			ctx context.Context
		)

		BeforeEach(func() {
			ctx = context.Background()
			d = newDriver(ctx)
			DeferCleanup(func() { _ = d.Close() })
		})

		newConversation := func(userID int64, title string) *storage.Conversation {
			conv, err := d.CreateConversation(ctx, &storage.Conversation{
				UserID:   userID,
				Title:    title,
				Platform: "deepseek",
				Model:    "deepseek-chat",
			})
			Expect(err).NotTo(HaveOccurred())
			return conv
		}

		addMessage := func(conv *storage.Conversation, typ, content string) *storage.Message {
			msg, err := d.AddMessage(ctx, &storage.Message{
				ConversationID: conv.ID,
				UserID:         conv.UserID,
				Type:           typ,
				Content:        content,
			})
			Expect(err).NotTo(HaveOccurred())
			return msg
		}

		Describe("CreateConversation and GetConversation", func() {
			It("assigns ids and timestamps", func() {
				conv := newConversation(1, "New conversation")
				Expect(conv.ID).To(BeNumerically(">", 0))
				Expect(conv.CreateTime).NotTo(BeZero())
				Expect(conv.UpdateTime).To(Equal(conv.CreateTime))

				got, err := d.GetConversation(ctx, conv.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(got.ID).To(Equal(conv.ID))
				Expect(got.UserID).To(Equal(int64(1)))
				Expect(got.Title).To(Equal("New conversation"))
				Expect(got.Platform).To(Equal("deepseek"))
				Expect(got.Model).To(Equal("deepseek-chat"))
			})

			It("returns NotFoundError for unknown ids", func() {
				_, err := d.GetConversation(ctx, 999)
				Expect(storage.IsNotFound(err)).To(BeTrue())
				Expect(err).To(MatchError("conversation not found: 999"))
			})

			It("rejects nil records", func() {
				_, err := d.CreateConversation(ctx, nil)
				Expect(err).To(MatchError(storage.ErrNilRecord))
				_, err = d.AddMessage(ctx, nil)
				Expect(err).To(MatchError(storage.ErrNilRecord))
			})
		})

		Describe("UpdateConversationTitle", func() {
			It("truncates to the maximum title length", func() {
				conv := newConversation(1, "")
				long := strings.Repeat("标", storage.MaxTitleLength+20)

				Expect(d.UpdateConversationTitle(ctx, conv.ID, long)).To(Succeed())

				got, err := d.GetConversation(ctx, conv.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect([]rune(got.Title)).To(HaveLen(storage.MaxTitleLength))
			})

			It("returns NotFoundError for unknown ids", func() {
				err := d.UpdateConversationTitle(ctx, 404, "x")
				Expect(storage.IsNotFound(err)).To(BeTrue())
			})
		})

		Describe("AddMessage and History", func() {
			It("returns messages in insertion order", func() {
				conv := newConversation(1, "c")
				first := addMessage(conv, storage.MessageTypeUser, "hi")
				second := addMessage(conv, storage.MessageTypeAssistant, "hello")
				Expect(second.ID).To(BeNumerically(">", first.ID))

				history, err := d.History(ctx, conv.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(history).To(HaveLen(2))
				Expect(history[0].Content).To(Equal("hi"))
				Expect(history[0].Type).To(Equal(storage.MessageTypeUser))
				Expect(history[1].Content).To(Equal("hello"))
				Expect(history[1].Type).To(Equal(storage.MessageTypeAssistant))
			})

			It("bumps the conversation update time", func() {
				conv := newConversation(1, "c")
				msg := addMessage(conv, storage.MessageTypeUser, "hi")

				got, err := d.GetConversation(ctx, conv.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(got.UpdateTime).To(BeTemporally("~", msg.CreateTime))
				Expect(got.UpdateTime).To(BeTemporally(">=", conv.CreateTime))
			})

			It("rejects messages for unknown conversations", func() {
				_, err := d.AddMessage(ctx, &storage.Message{ConversationID: 77, UserID: 1, Type: storage.MessageTypeUser, Content: "x"})
				Expect(storage.IsNotFound(err)).To(BeTrue())
			})

			It("returns an empty history for a new conversation", func() {
				conv := newConversation(1, "c")
				history, err := d.History(ctx, conv.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(history).To(BeEmpty())
			})
		})

		Describe("ListConversations", func() {
			It("lists only the user's conversations, most recently updated first", func() {
				older := newConversation(1, "older")
				newer := newConversation(1, "newer")
				newConversation(2, "someone else")

				addMessage(older, storage.MessageTypeUser, "bump")

				list, err := d.ListConversations(ctx, 1)
				Expect(err).NotTo(HaveOccurred())
				Expect(list).To(HaveLen(2))
				Expect(list[0].ID).To(Equal(older.ID))
				Expect(list[0].LastMessage).To(Equal("bump"))
				Expect(list[1].ID).To(Equal(newer.ID))
				Expect(list[1].LastMessage).To(BeEmpty())
			})

			It("returns an empty list for users without conversations", func() {
				list, err := d.ListConversations(ctx, 42)
				Expect(err).NotTo(HaveOccurred())
				Expect(list).To(BeEmpty())
			})
		})

		Describe("ListMessages", func() {
			It("hides conversations owned by other users", func() {
				conv := newConversation(1, "c")
				addMessage(conv, storage.MessageTypeUser, "secret")

				_, err := d.ListMessages(ctx, conv.ID, 2)
				Expect(storage.IsNotFound(err)).To(BeTrue())

				msgs, err := d.ListMessages(ctx, conv.ID, 1)
				Expect(err).NotTo(HaveOccurred())
				Expect(msgs).To(HaveLen(1))
			})
		})
	})
}
