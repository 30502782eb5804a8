// Package version holds build information injected at link time.
//
// Release builds set these via -ldflags, e.g.:
//
//	go build -ldflags "-X github.com/vellum-md/vellum/version.GitRelease=v0.3.0 \
//	  -X github.com/vellum-md/vellum/version.GitCommit=$(git rev-parse HEAD) \
//	  -X github.com/vellum-md/vellum/version.GitCommitDate=$(git show -s --format=%cI HEAD)"
package version

import (
	"fmt"
	"runtime"
)

var (
	// GitRelease is the release tag, or "dev" for local builds.
	GitRelease = "dev"

	// GitCommit is the commit hash the binary was built from.
	GitCommit = "unknown"

	// GitCommitDate is the commit date of GitCommit.
	GitCommitDate = "unknown"

	// GoInfo describes the toolchain and platform.
	GoInfo = fmt.Sprintf("%s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH)
)
