package http

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseVersion(t *testing.T) {
	testcases := []struct {
		desc     string
		input    []byte
		expected Version
		wantErr  bool
	}{
		{
			desc:     "http 1.1",
			input:    []byte("HTTP/1.1"),
			expected: Version{1, 1},
		},
		{
			desc:     "http 1.0",
			input:    []byte("HTTP/1.0"),
			expected: Version{1, 0},
		},
		{
			desc:    "missing prefix",
			input:   []byte("1.1"),
			wantErr: true,
		},
		{
			desc:    "missing prefix (partial)",
			input:   []byte("HTTP1.1"),
			wantErr: true,
		},
		{
			desc:    "lowercase prefix",
			input:   []byte("http/1.1"),
			wantErr: true,
		},
		{
			desc:    "missing seperator",
			input:   []byte("HTTP/1"),
			wantErr: true,
		},
		{
			desc:    "two seperators",
			input:   []byte("HTTP/1.1.1"),
			wantErr: true,
		},
		{
			desc:    "version not convertable to int",
			input:   []byte("HTTP/ayo.2"),
			wantErr: true,
		},
		{
			desc:    "negative version",
			input:   []byte("HTTP/1.-1"),
			wantErr: true,
		},
		{
			desc:    "plus sign",
			input:   []byte("HTTP/+1.1"),
			wantErr: true,
		},
	}
	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			ver, err := ParseVersion(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tc.expected, ver)
		})
	}
}

func TestVersionText(t *testing.T) {
	testcases := []struct {
		input    Version
		expected string
	}{
		{input: Version1_1, expected: "HTTP/1.1"},
		{input: Version1_0, expected: "HTTP/1.0"},
		{input: Version{20, 1}, expected: "HTTP/20.1"},
	}
	for _, tc := range testcases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, string(tc.input.Text()))
			assert.Equal(t, tc.expected, tc.input.String())
		})
	}
}

func TestParseField(t *testing.T) {
	testcases := []struct {
		desc     string
		input    string
		expected Field
		wantErr  bool
	}{
		{
			desc:     "leading and trailing whitespace on value",
			input:    "Content-Type:   text/html\t  ",
			expected: Field{[]byte("Content-Type"), []byte("text/html")},
		},
		{
			desc:     "field name is not a valid token",
			input:    "content type: text/html",
			expected: Field{[]byte("content type"), []byte("text/html")},
		},
		{
			desc:     "trailing whitespace on field name",
			input:    "Content-Type : text/html",
			expected: Field{[]byte("Content-Type"), []byte("text/html")},
		},
		{
			desc:     "empty value",
			input:    "X-Empty:",
			expected: Field{[]byte("X-Empty"), []byte{}},
		},
		{
			desc:     "colon in value",
			input:    "Location: http://example.com:8080/",
			expected: Field{[]byte("Location"), []byte("http://example.com:8080/")},
		},
		{
			desc:    "no colon seperator",
			input:   "content type text/html",
			wantErr: true,
		},
		{
			desc:    "empty name",
			input:   ": value",
			wantErr: true,
		},
		{
			desc:    "whitespace name",
			input:   "  : value",
			wantErr: true,
		},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			field, err := ParseField([]byte(tc.input))
			if tc.wantErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, string(tc.expected.Name), string(field.Name))
			assert.Equal(t, string(tc.expected.Value), string(field.Value))
		})
	}
}

func TestFieldText(t *testing.T) {
	field := Field{[]byte("Host"), []byte("example.com")}
	assert.Equal(t, "Host: example.com", string(field.Text()))
}
