package validate

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validation messages surfaced to the caller.
const (
	MsgEmptyURL   = "URL must not be empty"
	MsgInvalidURL = "Not a valid recognized video URL"
	MsgValidURL   = "Valid video URL"
)

// Recognized URL shapes, tried in order. Each captures the 11-character
// video identifier.
var patterns = []*regexp.Regexp{
	// Standard watch URL: https://www.youtube.com/watch?v=VIDEO_ID
	regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?youtube\.com/watch\?.*v=([a-zA-Z0-9_-]{11})`),
	// Short URL: https://youtu.be/VIDEO_ID
	regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?youtu\.be/([a-zA-Z0-9_-]{11})`),
	// Shorts URL: https://www.youtube.com/shorts/VIDEO_ID
	regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?youtube\.com/shorts/([a-zA-Z0-9_-]{11})`),
	// Embed URL: https://www.youtube.com/embed/VIDEO_ID
	regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?youtube\.com/embed/([a-zA-Z0-9_-]{11})`),
	// Mobile URL: https://m.youtube.com/watch?v=VIDEO_ID
	regexp.MustCompile(`(?i)(?:https?://)?m\.youtube\.com/watch\?.*v=([a-zA-Z0-9_-]{11})`),
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("youtube_url", func(fl validator.FieldLevel) bool {
		return IsYouTubeURL(fl.Field().String())
	})
}

// ValidateAndExtract classifies the input and extracts the video identifier.
// The message explains the outcome in either case.
func ValidateAndExtract(input string) (bool, string, string) {
	url := strings.TrimSpace(input)
	if url == "" {
		return false, "", MsgEmptyURL
	}

	if id := ExtractVideoID(url); id != "" {
		return true, id, MsgValidURL
	}

	return false, "", MsgInvalidURL
}

// ExtractVideoID returns the 11-character video identifier embedded in the
// URL, or an empty string when no recognized shape matches.
func ExtractVideoID(url string) string {
	url = strings.TrimSpace(url)

	for _, pattern := range patterns {
		if m := pattern.FindStringSubmatch(url); m != nil {
			return m[1]
		}
	}

	return ""
}

// IsYouTubeURL reports whether the input matches any recognized URL shape.
func IsYouTubeURL(url string) bool {
	return ExtractVideoID(url) != ""
}

// Var checks a single value against validator tags. The custom youtube_url
// rule is registered for request binding in the HTTP layer.
func Var(value string, tag string) error {
	return validate.Var(value, tag)
}
