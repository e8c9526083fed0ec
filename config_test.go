package stepwise

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfigInTestdata(t *testing.T) {
	filepath.WalkDir("testdata", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !strings.HasSuffix(path, ".toml") {
			return nil
		}
		name := filepath.Base(path)
		t.Run(name, testParseConfig(path))
		return nil
	})
}

func testParseConfig(path string) func(t *testing.T) {
	return func(t *testing.T) {
		f, err := os.Open(path)
		require.NoError(t, err)
		defer f.Close()
		c, err := parseConfig(f)
		require.NoError(t, err)
		t.Logf("%#v\n", c)
	}
}

func TestLoadConfigDefaultsFile(t *testing.T) {
	c, err := LoadConfigFromFile(filepath.Join("testdata", "counter.toml"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("testdata", "counter.py"), c.Trace.File)
	assert.Equal(t, []string{"x", "total"}, c.Trace.Variables)
	assert.True(t, c.Display.NoColor)
	assert.Equal(t, 16, c.Display.CacheSize)
}

func TestLoadConfigExplicitFile(t *testing.T) {
	c, err := LoadConfigFromFile(filepath.Join("testdata", "explicit.toml"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("testdata", "programs", "loop.py"), c.Trace.File)
	assert.Empty(t, c.Trace.Variables)
}

func TestLoadConfigMinimal(t *testing.T) {
	c, err := LoadConfigFromFile(filepath.Join("testdata", "minimal.toml"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("testdata", "minimal.py"), c.Trace.File)
	assert.False(t, c.Display.NoColor)
	assert.Zero(t, c.Display.CacheSize)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfigFromFile(filepath.Join("testdata", "nope.toml"))
	require.Error(t, err)
}
