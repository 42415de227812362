package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dagger/consolechat/internal/dagger"
)

// Build returns a directory holding the consolechat binary for linux on the
// host architecture. go-sqlite3 needs CGO, so there is no cross-compile matrix.
func (c *ConsoleChat) Build(
	ctx context.Context,

	// Linker flags for go build
	// +optional
	// +default="-s -w"
	ldflags string,
) *dagger.Directory {
	const out = "/out/"

	return c.goContainer().
		WithExec([]string{"go", "build", "-ldflags", ldflags, "-o", out, "./cli/consolechat"}).
		Directory(out)
}

// BuildRelease compiles a versioned binary with embedded version info
func (c *ConsoleChat) BuildRelease(
	ctx context.Context,

	// Version string of build
	version string,

	// Git commit SHA of build
	commit string,
) *dagger.Directory {
	buildtime := time.Now().UTC().Format(time.RFC3339)

	ldflags := []string{
		"-s",
		"-w",
		fmt.Sprintf("-X 'github.com/papercomputeco/consolechat/pkg/utils.Version=%s'", version),
		fmt.Sprintf("-X 'github.com/papercomputeco/consolechat/pkg/utils.Sha=%s'", commit),
		fmt.Sprintf("-X 'github.com/papercomputeco/consolechat/pkg/utils.Buildtime=%s'", buildtime),
	}

	return c.Build(ctx, strings.Join(ldflags, " "))
}
