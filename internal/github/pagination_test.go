package github

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLinks(t *testing.T) {
	header := `<https://api.github.com/repos/o/r/pulls?page=2>; rel="next", ` +
		`<https://api.github.com/repos/o/r/pulls?page=9>; rel="last", ` +
		`<https://api.github.com/repos/o/r/pulls?page=1>; rel="first"`

	links := parseLinks(header)
	assert.Len(t, links, 3)
	assert.Equal(t, "https://api.github.com/repos/o/r/pulls?page=2", links["next"])
	assert.Equal(t, "https://api.github.com/repos/o/r/pulls?page=9", links["last"])

	assert.Empty(t, parseLinks(""))
}

func TestLastPage(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   int
		ok     bool
	}{
		{
			name: "last among other relations",
			header: `<https://api.github.com/repos/o/r/pulls?state=open&per_page=1&page=2>; rel="next", ` +
				`<https://api.github.com/repos/o/r/pulls?state=open&per_page=1&page=4>; rel="last"`,
			want: 4,
			ok:   true,
		},
		{
			name:   "single page has no last relation",
			header: `<https://api.github.com/repos/o/r/pulls?page=1>; rel="first"`,
			ok:     false,
		},
		{
			name:   "empty header",
			header: "",
			ok:     false,
		},
		{
			name:   "last url missing page parameter",
			header: `<https://api.github.com/repos/o/r/pulls>; rel="last"`,
			ok:     false,
		},
		{
			name:   "malformed header",
			header: `not a link header`,
			ok:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := lastPage(tt.header)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
