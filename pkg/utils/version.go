// Package utils provides bespoke, one off utils that don't make sense to be
// their own package
package utils

// Set at build time with -ldflags "-X".
var (
	Version   = "dev"
	Sha       = "HEAD"
	Buildtime = "dev"
)

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version   string `json:"version"`
	Sha       string `json:"sha"`
	Buildtime string `json:"built_at"`
}

// Info returns the build information of the running binary.
func Info() BuildInfo {
	return BuildInfo{Version: Version, Sha: Sha, Buildtime: Buildtime}
}

// UserAgent is the User-Agent mentor sends to upstream services.
func UserAgent() string {
	return "mentor/" + Version
}
