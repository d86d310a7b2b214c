// Package buildinfo carries build-time metadata injected through ldflags
package buildinfo

import "fmt"

// Context contains build-time metadata that is not user-configurable
type Context struct {
	// Version holds the Git version tag from build
	Version string

	// BuildDate is the time when the binary was built
	BuildDate string
}

// New returns build metadata. Empty values read back as "unknown".
func New(version, buildDate string) *Context {
	return &Context{Version: version, BuildDate: buildDate}
}

// GetVersion returns the build version or "unknown"
func (c *Context) GetVersion() string {
	if c == nil || c.Version == "" {
		return "unknown"
	}
	return c.Version
}

// GetBuildDate returns the build date or "unknown"
func (c *Context) GetBuildDate() string {
	if c == nil || c.BuildDate == "" {
		return "unknown"
	}
	return c.BuildDate
}

// String formats the metadata for the version command
func (c *Context) String() string {
	return fmt.Sprintf("birdobs %s (built %s)", c.GetVersion(), c.GetBuildDate())
}
