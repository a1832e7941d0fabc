package mcpreg

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerConfigEqual(t *testing.T) {
	t.Parallel()

	a := &ServerConfig{
		URL:       "http://api.example.com",
		AuthToken: "tok",
		Headers:   map[string]string{"X-A": "1"},
		Extra:     map[string]any{"retries": 3},
	}
	assert.True(t, a.Equal(a.Clone()))

	b := a.Clone()
	b.AuthToken = "other"
	assert.False(t, a.Equal(b))

	c := a.Clone()
	c.Headers["X-A"] = "2"
	assert.False(t, a.Equal(c))

	var nilCfg *ServerConfig
	assert.False(t, a.Equal(nilCfg))
	assert.True(t, nilCfg.Equal(nil))
}

func TestServerConfigCloneIsolation(t *testing.T) {
	t.Parallel()

	orig := &ServerConfig{
		URL:     "http://api.example.com",
		Headers: map[string]string{"X-A": "1"},
		Extra:   map[string]any{"k": "v"},
	}
	clone := orig.Clone()
	clone.Headers["X-A"] = "mutated"
	clone.Extra["k"] = "mutated"

	assert.Equal(t, "1", orig.Headers["X-A"])
	assert.Equal(t, "v", orig.Extra["k"])
}

func TestServerConfigJSONRoundTripKeepsExtras(t *testing.T) {
	t.Parallel()

	in := []byte(`{"url":"http://x.example.com","auth":"t","transport":"http","headers":{"X-A":"1"},"pool":5}`)
	var cfg ServerConfig
	require.NoError(t, json.Unmarshal(in, &cfg))
	assert.Equal(t, TransportStreamableHTTP, cfg.Transport)
	assert.Equal(t, float64(5), cfg.Extra["pool"])

	out, err := json.Marshal(&cfg)
	require.NoError(t, err)
	var decoded ServerConfig
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.True(t, cfg.Equal(&decoded))
}

func TestServerConfigRejectsWrongFieldTypes(t *testing.T) {
	t.Parallel()

	var cfg ServerConfig
	assert.Error(t, json.Unmarshal([]byte(`{"url": 42}`), &cfg))
	assert.Error(t, json.Unmarshal([]byte(`{"url":"http://x","headers":{"a": 1}}`), &cfg))
	assert.Error(t, json.Unmarshal([]byte(`{"url":"http://x","headers":"nope"}`), &cfg))
}
