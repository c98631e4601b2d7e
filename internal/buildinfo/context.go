// Package buildinfo carries build-time metadata injected via ldflags.
package buildinfo

import "fmt"

// Set by -ldflags "-X github.com/tphakala/epaper-weather/internal/buildinfo.version=..."
var (
	version   = ""
	buildDate = ""
)

// Context contains build-time metadata that is not user-configurable.
type Context struct {
	Version   string
	BuildDate string
}

// Current returns the metadata linked into this binary.
func Current() *Context {
	return &Context{Version: version, BuildDate: buildDate}
}

// GetVersion returns the version or "unknown".
func (c *Context) GetVersion() string {
	if c == nil || c.Version == "" {
		return "unknown"
	}
	return c.Version
}

func (c *Context) GetBuildDate() string {
	if c == nil || c.BuildDate == "" {
		return "unknown"
	}
	return c.BuildDate
}

// Release is the Sentry release name.
func (c *Context) Release() string {
	return fmt.Sprintf("epaper-weather@%s", c.GetVersion())
}
