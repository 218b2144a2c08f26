// Package buildconfig exposes version metadata stamped at build time, for
// example:
//
//	go build -ldflags "-X .../internal/buildconfig.version=v1.2.0"
package buildconfig

var (
	version = "dev"
	commit  = "unknown"
)

func Version() string {
	return version
}

func Commit() string {
	return commit
}
