package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAndExtract(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expectOK    bool
		expectID    string
		expectMsg   string
	}{
		{
			name:      "standard watch URL",
			input:     "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			expectOK:  true,
			expectID:  "dQw4w9WgXcQ",
			expectMsg: MsgValidURL,
		},
		{
			name:      "short URL",
			input:     "https://youtu.be/dQw4w9WgXcQ",
			expectOK:  true,
			expectID:  "dQw4w9WgXcQ",
			expectMsg: MsgValidURL,
		},
		{
			name:      "shorts URL",
			input:     "https://www.youtube.com/shorts/abc123DEF45",
			expectOK:  true,
			expectID:  "abc123DEF45",
			expectMsg: MsgValidURL,
		},
		{
			name:      "embed URL",
			input:     "https://www.youtube.com/embed/abc123DEF45",
			expectOK:  true,
			expectID:  "abc123DEF45",
			expectMsg: MsgValidURL,
		},
		{
			name:      "mobile URL",
			input:     "https://m.youtube.com/watch?v=dQw4w9WgXcQ",
			expectOK:  true,
			expectID:  "dQw4w9WgXcQ",
			expectMsg: MsgValidURL,
		},
		{
			name:      "no scheme",
			input:     "youtube.com/watch?v=dQw4w9WgXcQ",
			expectOK:  true,
			expectID:  "dQw4w9WgXcQ",
			expectMsg: MsgValidURL,
		},
		{
			name:      "watch URL with extra query parameters",
			input:     "https://www.youtube.com/watch?list=PL123&v=dQw4w9WgXcQ&t=42",
			expectOK:  true,
			expectID:  "dQw4w9WgXcQ",
			expectMsg: MsgValidURL,
		},
		{
			name:      "uppercase host",
			input:     "HTTPS://WWW.YOUTUBE.COM/watch?v=dQw4w9WgXcQ",
			expectOK:  true,
			expectID:  "dQw4w9WgXcQ",
			expectMsg: MsgValidURL,
		},
		{
			name:      "surrounding whitespace",
			input:     "  https://youtu.be/dQw4w9WgXcQ  ",
			expectOK:  true,
			expectID:  "dQw4w9WgXcQ",
			expectMsg: MsgValidURL,
		},
		{
			name:      "empty input",
			input:     "",
			expectOK:  false,
			expectMsg: MsgEmptyURL,
		},
		{
			name:      "whitespace only",
			input:     "   ",
			expectOK:  false,
			expectMsg: MsgEmptyURL,
		},
		{
			name:      "not a url",
			input:     "not a url",
			expectOK:  false,
			expectMsg: MsgInvalidURL,
		},
		{
			name:      "other video site",
			input:     "https://vimeo.com/123456789",
			expectOK:  false,
			expectMsg: MsgInvalidURL,
		},
		{
			name:      "channel URL has no video id",
			input:     "https://www.youtube.com/@SomeChannel",
			expectOK:  false,
			expectMsg: MsgInvalidURL,
		},
		{
			name:      "video id too short",
			input:     "https://youtu.be/short",
			expectOK:  false,
			expectMsg: MsgInvalidURL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, id, msg := ValidateAndExtract(tt.input)

			require.Equal(t, tt.expectOK, ok)
			assert.Equal(t, tt.expectID, id)
			assert.Equal(t, tt.expectMsg, msg)
		})
	}
}

func TestIsYouTubeURL(t *testing.T) {
	assert.True(t, IsYouTubeURL("https://www.youtube.com/watch?v=dQw4w9WgXcQ"))
	assert.False(t, IsYouTubeURL("https://example.com/watch?v=dQw4w9WgXcQ"))
}

func TestVarWithYouTubeURLTag(t *testing.T) {
	require.NoError(t, Var("https://youtu.be/dQw4w9WgXcQ", "required,youtube_url"))
	require.Error(t, Var("not a url", "required,youtube_url"))
	require.Error(t, Var("", "required,youtube_url"))
}
