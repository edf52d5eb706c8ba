package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type summary struct {
	Rules int `json:"rules"`
}

func (s summary) Text() string { return "rules: 3" }

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]OutputFormat{"": FormatText, "text": FormatText, "json": FormatJSON, "JSON": FormatJSON} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("csv")
	assert.Error(t, err)
}

func TestTextFormatter(t *testing.T) {
	f := &TextFormatter{}

	out, err := f.Format("test message")
	require.NoError(t, err)
	assert.Equal(t, "test message\n", string(out))

	buf := &bytes.Buffer{}
	require.NoError(t, f.FormatTo(buf, summary{Rules: 3}))
	assert.Equal(t, "rules: 3\n", buf.String())
}

func TestJSONFormatter(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, NewFormatter(FormatJSON).FormatTo(buf, summary{Rules: 3}))

	var got summary
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 3, got.Rules)
	assert.Contains(t, buf.String(), "\n  \"rules\"")

	compact, err := (&JSONFormatter{}).Format(summary{Rules: 1})
	require.NoError(t, err)
	assert.Equal(t, `{"rules":1}`, string(compact))
}

func TestNewFormatter_DefaultsToText(t *testing.T) {
	assert.IsType(t, &TextFormatter{}, NewFormatter("yaml"))
}
