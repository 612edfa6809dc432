package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromFlags(t *testing.T) {
	ScriptTimeout = "2m"
	MaxOutputBytes = 1024
	Python = "python3"
	t.Cleanup(func() {
		ScriptTimeout = ""
		MaxOutputBytes = 0
		Python = ""
	})
	cfg := FromFlags()
	assert.Equal(t, 2*time.Minute, cfg.ScriptTimeout)
	assert.Equal(t, 1024, cfg.MaxOutputBytes)
	assert.Equal(t, "python3", cfg.Python)
}

func TestFromFlagsDefaults(t *testing.T) {
	ScriptTimeout = "soon"
	MaxOutputBytes = -1
	t.Cleanup(func() {
		ScriptTimeout = ""
		MaxOutputBytes = 0
	})
	cfg := FromFlags()
	assert.Equal(t, DefaultScriptTimeout, cfg.ScriptTimeout)
	assert.Equal(t, DefaultMaxOutputBytes, cfg.MaxOutputBytes)
}

func TestContext(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))
	cfg := &Config{Python: "python"}
	assert.Same(t, cfg, FromContext(NewContext(context.Background(), cfg)))
}
