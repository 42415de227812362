package credentials_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/consolechat/pkg/credentials"
)

var _ = Describe("Manager", func() {
	var (
		tmpDir string
		mgr    *credentials.Manager
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()

		var err error
		mgr, err = credentials.NewManager(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	It("targets credentials.toml in the override directory", func() {
		Expect(mgr.GetTarget()).To(Equal(filepath.Join(tmpDir, "credentials.toml")))
	})

	Describe("Load", func() {
		It("returns empty credentials when no file exists", func() {
			creds, err := mgr.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(creds.Platforms).To(BeEmpty())
		})

		It("loads existing credentials", func() {
			data := "version = 0\n\n[platforms.deepseek]\napi_key = \"sk-test-key\"\n"
			Expect(os.WriteFile(mgr.GetTarget(), []byte(data), 0o600)).To(Succeed())

			creds, err := mgr.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(creds.Platforms).To(HaveKeyWithValue("deepseek", credentials.PlatformCredential{APIKey: "sk-test-key"}))
		})

		It("returns error for malformed TOML", func() {
			Expect(os.WriteFile(mgr.GetTarget(), []byte("not valid [[["), 0o600)).To(Succeed())

			creds, err := mgr.Load()
			Expect(err).To(HaveOccurred())
			Expect(creds).To(BeNil())
		})
	})

	Describe("Save", func() {
		It("writes with restricted permissions", func() {
			Expect(mgr.SetKey("tongyi", "sk-test")).To(Succeed())

			info, err := os.Stat(mgr.GetTarget())
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o600)))
		})

		It("rejects nil credentials", func() {
			Expect(mgr.Save(nil)).To(HaveOccurred())
		})
	})

	Describe("keys", func() {
		It("overwrites and preserves per platform", func() {
			Expect(mgr.SetKey("deepseek", "sk-old")).To(Succeed())
			Expect(mgr.SetKey("tongyi", "sk-tongyi")).To(Succeed())
			Expect(mgr.SetKey("deepseek", "sk-new")).To(Succeed())

			key, err := mgr.GetKey("deepseek")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(Equal("sk-new"))

			key, err = mgr.GetKey("tongyi")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(Equal("sk-tongyi"))
		})

		It("returns an empty key for unknown platforms", func() {
			key, err := mgr.GetKey("nonexistent")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(BeEmpty())
		})

		It("removes keys", func() {
			Expect(mgr.SetKey("openai", "sk-test")).To(Succeed())
			Expect(mgr.RemoveKey("openai")).To(Succeed())
			Expect(mgr.RemoveKey("nonexistent")).To(Succeed())

			platforms, err := mgr.ListPlatforms()
			Expect(err).NotTo(HaveOccurred())
			Expect(platforms).To(BeEmpty())
		})

		It("lists platforms in sorted order", func() {
			Expect(mgr.SetKey("tongyi", "sk-1")).To(Succeed())
			Expect(mgr.SetKey("deepseek", "sk-2")).To(Succeed())

			platforms, err := mgr.ListPlatforms()
			Expect(err).NotTo(HaveOccurred())
			Expect(platforms).To(Equal([]string{"deepseek", "tongyi"}))
		})
	})

	Describe("ExportEnv", func() {
		BeforeEach(func() {
			for _, name := range []string{"DEEPSEEK_API_KEY", "DASHSCOPE_API_KEY"} {
				if prev, ok := os.LookupEnv(name); ok {
					DeferCleanup(os.Setenv, name, prev)
				} else {
					DeferCleanup(os.Unsetenv, name)
				}
				Expect(os.Unsetenv(name)).To(Succeed())
			}
		})

		It("exports stored keys", func() {
			Expect(mgr.SetKey("deepseek", "sk-deep")).To(Succeed())

			exported, err := mgr.ExportEnv()
			Expect(err).NotTo(HaveOccurred())
			Expect(exported).To(Equal([]string{"DEEPSEEK_API_KEY"}))
			Expect(os.Getenv("DEEPSEEK_API_KEY")).To(Equal("sk-deep"))
		})

		It("leaves variables that are already set", func() {
			Expect(os.Setenv("DASHSCOPE_API_KEY", "from-shell")).To(Succeed())
			Expect(mgr.SetKey("tongyi", "from-file")).To(Succeed())

			exported, err := mgr.ExportEnv()
			Expect(err).NotTo(HaveOccurred())
			Expect(exported).To(BeEmpty())
			Expect(os.Getenv("DASHSCOPE_API_KEY")).To(Equal("from-shell"))
		})

		It("skips platforms it does not know", func() {
			Expect(mgr.SetKey("anthropic", "sk-x")).To(Succeed())

			exported, err := mgr.ExportEnv()
			Expect(err).NotTo(HaveOccurred())
			Expect(exported).To(BeEmpty())
		})
	})
})

var _ = Describe("platform lookups", func() {
	It("maps platforms onto their key variables", func() {
		Expect(credentials.EnvVarForPlatform("deepseek")).To(Equal("DEEPSEEK_API_KEY"))
		Expect(credentials.EnvVarForPlatform("tongyi")).To(Equal("DASHSCOPE_API_KEY"))
		Expect(credentials.EnvVarForPlatform("ollama")).To(BeEmpty())
		Expect(credentials.EnvVarForPlatform("unknown")).To(BeEmpty())
	})

	It("lists only platforms that take a key", func() {
		Expect(credentials.SupportedPlatforms()).To(ConsistOf("deepseek", "tongyi", "openai", "google-genai"))
		Expect(credentials.IsSupportedPlatform("ollama")).To(BeFalse())
	})
})
