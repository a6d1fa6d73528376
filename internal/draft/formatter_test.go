package draft_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hal9000y/gmail-agent/internal/draft"
)

func TestFormatterWithoutSignature(t *testing.T) {
	f := draft.NewFormatter("")

	html, plain, err := f.Format("Hi Anna,\n\nTuesday works for me.")
	require.NoError(t, err)

	assert.Equal(t, "Hi Anna,\n\nTuesday works for me.", plain)
	assert.Contains(t, html, `<p style="margin: 0 0 1em 0;">Hi Anna,</p>`)
	assert.Contains(t, html, `<p style="margin: 0 0 1em 0;">Tuesday works for me.</p>`)
	assert.Contains(t, html, "<!DOCTYPE html>")
}

func TestFormatterWithSignature(t *testing.T) {
	f := draft.NewFormatter(`<p>John Smith - Acme&nbsp;Corp</p>`)

	html, plain, err := f.Format("Sounds good.")
	require.NoError(t, err)

	assert.Equal(t, "Sounds good.\n\n--\nJohn Smith - Acme Corp", plain)
	assert.Contains(t, html, "<p>John Smith - Acme&nbsp;Corp</p>")
}

func TestTextToHTML(t *testing.T) {
	cases := []struct {
		name     string
		in       string
		expected string
	}{
		{
			name:     "escapes markup",
			in:       "a < b & c",
			expected: `<p style="margin: 0 0 1em 0;">a &lt; b &amp; c</p>`,
		},
		{
			name:     "single newline becomes br",
			in:       "line one\nline two",
			expected: "<p style=\"margin: 0 0 1em 0;\">line one<br>\nline two</p>",
		},
		{
			name:     "empty",
			in:       "",
			expected: "",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, draft.TextToHTML(tc.in))
		})
	}
}
