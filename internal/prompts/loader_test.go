package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_KnownPrompts(t *testing.T) {
	prompt, err := Get("analysis.json", "analyze-website")
	require.NoError(t, err)
	assert.Contains(t, prompt, "{{.URL}}")
	assert.Contains(t, prompt, "{{.Description}}")

	for _, key := range []string{"generate-static", "generate-dynamic", "refine"} {
		prompt, err := Get("generation.json", key)
		require.NoError(t, err, "key %s", key)
		assert.NotEmpty(t, prompt)
	}
}

func TestGet_Missing(t *testing.T) {
	_, err := Get("analysis.json", "no-such-key")
	assert.Error(t, err)

	_, err = Get("no-such-file.json", "analyze-website")
	assert.Error(t, err)
}

func TestFormat(t *testing.T) {
	out := Format("scrape {{.URL}} for {{.Description}}", map[string]string{
		"URL":         "https://example.com",
		"Description": "prices",
	})
	assert.Equal(t, "scrape https://example.com for prices", out)
}

func TestFormat_LeavesUnknownPlaceholders(t *testing.T) {
	out := Format("hello {{.Name}}", map[string]string{"Other": "x"})
	assert.Equal(t, "hello {{.Name}}", out)
}

func TestList(t *testing.T) {
	ClearCache()
	keys, err := List("generation.json")
	require.NoError(t, err)
	assert.Contains(t, keys, "generate-static")
	assert.Contains(t, keys, "generate-dynamic")
	assert.Contains(t, keys, "refine")
}
