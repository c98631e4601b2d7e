package buildinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContext(t *testing.T) {
	var nilCtx *Context
	assert.Equal(t, "unknown", nilCtx.GetVersion())
	assert.Equal(t, "unknown", nilCtx.GetBuildDate())

	c := &Context{Version: "v1.2.0", BuildDate: "2026-10-01"}
	assert.Equal(t, "v1.2.0", c.GetVersion())
	assert.Equal(t, "2026-10-01", c.GetBuildDate())
	assert.Equal(t, "epaper-weather@v1.2.0", c.Release())
	assert.Equal(t, "epaper-weather@unknown", (&Context{}).Release())
}
