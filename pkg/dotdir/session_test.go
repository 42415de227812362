package dotdir_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/consolechat/pkg/dotdir"
)

var _ = Describe("Manager session", func() {
	var (
		tmpDir string
		m      *dotdir.Manager
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "dotdir-session-*")
		Expect(err).NotTo(HaveOccurred())
		m = dotdir.NewManager()
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("returns nil when no session exists", func() {
		state, err := m.LoadSession(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(state).To(BeNil())
	})

	It("round-trips a session", func() {
		in := &dotdir.SessionState{
			APITarget:      "http://localhost:8081",
			Platform:       "tongyi",
			ConversationID: 42,
		}
		Expect(m.SaveSession(in, tmpDir)).To(Succeed())

		out, err := m.LoadSession(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(in))
	})

	It("rejects a nil session", func() {
		Expect(m.SaveSession(nil, tmpDir)).NotTo(Succeed())
	})

	It("reports malformed session files", func() {
		Expect(os.WriteFile(filepath.Join(tmpDir, "session.json"), []byte("{nope"), 0o600)).To(Succeed())

		_, err := m.LoadSession(tmpDir)
		Expect(err).To(MatchError(ContainSubstring("parsing session state")))
	})

	It("clears an existing session and tolerates clearing twice", func() {
		Expect(m.SaveSession(&dotdir.SessionState{ConversationID: 1}, tmpDir)).To(Succeed())

		Expect(m.ClearSession(tmpDir)).To(Succeed())
		Expect(m.ClearSession(tmpDir)).To(Succeed())

		state, err := m.LoadSession(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(state).To(BeNil())
	})
})
