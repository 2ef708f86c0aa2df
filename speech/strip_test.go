package speech_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/threadcast/threadcast/speech"
)

func TestStripMarkdown(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"bold", "This is **important** news.", "This is important news."},
		{"italic", "This is *subtle* news.", "This is subtle news."},
		{"underscore bold", "__loud__ and _quiet_", "loud and quiet"},
		{"strikethrough", "It was ~~wrong~~ right.", "It was wrong right."},
		{"code span", "Run `go build` now.", "Run go build now."},
		{"plain", "Nothing to strip here.", "Nothing to strip here."},
		{"snake_case untouched", "the variable user_id stays", "the variable user_id stays"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, speech.StripMarkdown(tc.in))
		})
	}
}
