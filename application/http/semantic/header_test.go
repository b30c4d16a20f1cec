package semantic

import (
	"testing"

	"nano-get/application/http"
	"nano-get/application/util/rule"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHeaders(t *testing.T) {
	headers := NewHeaders(
		[2]string{"Hello", "world!"},
		[2]string{"some-word", "A"},
		[2]string{"not a token", "B"},
	)

	assert.Equal(t, [][2]string{
		{"Hello", "world!"},
		{"Some-Word", "A"},
		{"not a token", "B"},
	}, headers.Fields())
}

func TestHeadersFrom(t *testing.T) {
	input := []http.Field{
		{Name: []byte("content-type"), Value: []byte("text/html; charset=utf-8")},
		{Name: []byte("Set-Cookie"), Value: []byte("a=1")},
		{Name: []byte("Date"), Value: []byte("Sun, 06 Nov 1994 08:49:37 GMT")},
		{Name: []byte("set-cookie"), Value: []byte("b=2")},
	}

	headers := HeadersFrom(input)

	assert.Equal(t, 4, headers.Len())

	v, ok := headers.Get("Content-Type")
	assert.True(t, ok)
	assert.Equal(t, "text/html; charset=utf-8", v)

	// Values with commas are kept whole.
	v, _ = headers.Get("date")
	assert.Equal(t, "Sun, 06 Nov 1994 08:49:37 GMT", v)

	values, ok := headers.Values("SET-COOKIE")
	assert.True(t, ok)
	assert.Equal(t, []string{"a=1", "b=2"}, values)

	assert.Equal(t, "Set-Cookie", headers.Fields()[3][0])
}

func TestHeaderToRawFields(t *testing.T) {
	headers := NewHeaders([2]string{"host", "example.com"}, [2]string{"Accept", "*/*"})

	expected := []http.Field{
		{Name: []byte("Host"), Value: []byte("example.com")},
		{Name: []byte("Accept"), Value: []byte("*/*")},
	}
	assert.Equal(t, expected, headers.ToRawFields())
}

func TestHeaderGet(t *testing.T) {
	headers := NewHeaders([2]string{"Via", "a"}, [2]string{"Via", "b"})

	v, ok := headers.Get("via")
	assert.True(t, ok)
	assert.Equal(t, "a", v)

	_, ok = headers.Get("Missing")
	assert.False(t, ok)
	assert.False(t, headers.Has("Missing"))
	assert.True(t, headers.Has("VIA"))
}

func TestHeaderValues(t *testing.T) {
	var headers Headers

	_, ok := headers.Values("Via")
	assert.False(t, ok)

	headers.Add("Via", "a")
	headers.Add("via", "b")

	values, ok := headers.Values("Via")
	assert.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, values)
}

func TestHeaderSet(t *testing.T) {
	headers := NewHeaders(
		[2]string{"Host", "a"},
		[2]string{"Accept", "*/*"},
		[2]string{"host", "b"},
		[2]string{"Connection", "close"},
	)

	headers.Set("HOST", "c")

	// Overwritten in place, duplicates dropped.
	assert.Equal(t, [][2]string{
		{"Host", "c"},
		{"Accept", "*/*"},
		{"Connection", "close"},
	}, headers.Fields())

	headers.Set("x-new", "1")
	assert.Equal(t, [2]string{"X-New", "1"}, headers.Fields()[3])
}

func TestHeaderDel(t *testing.T) {
	headers := NewHeaders([2]string{"A", "1"}, [2]string{"B", "2"}, [2]string{"a", "3"})
	headers.Del("a")

	assert.Equal(t, [][2]string{{"B", "2"}}, headers.Fields())
}

func TestHeaderClone(t *testing.T) {
	headers := NewHeaders([2]string{"A", "1"})
	clone := headers.Clone()
	clone.Set("A", "2")
	clone.Add("B", "3")

	v, _ := headers.Get("A")
	assert.Equal(t, "1", v)
	assert.Equal(t, 1, headers.Len())
}

func TestHeaderValueCopy(t *testing.T) {
	headers := NewHeaders([2]string{"A", "1"}, [2]string{"B", "2"}, [2]string{"C", "3"})
	headers.Add("D", "4")

	copied := headers
	copied.Del("A")
	copied.Set("B", "changed")
	copied.Add("E", "5")
	headers.Add("F", "6")

	assert.Equal(t, [][2]string{{"A", "1"}, {"B", "2"}, {"C", "3"}, {"D", "4"}, {"F", "6"}}, headers.Fields())
	assert.Equal(t, [][2]string{{"B", "changed"}, {"C", "3"}, {"D", "4"}, {"E", "5"}}, copied.Fields())
}

func TestHeaderTokens(t *testing.T) {
	headers := NewHeaders(
		[2]string{"Transfer-Encoding", "gzip, \"chunked\""},
		[2]string{"transfer-encoding", "identity"},
	)

	require.Equal(t, []string{"gzip", "chunked", "identity"}, headers.Tokens("Transfer-Encoding"))
	assert.Empty(t, headers.Tokens("Missing"))
}

func TestToCanonicalFieldName(t *testing.T) {
	testcases := []struct {
		desc     string
		input    string
		expected string
	}{
		{
			desc:     "all lowercase",
			input:    "content-type",
			expected: "Content-Type",
		},
		{
			desc:     "all uppercase",
			input:    "CONTENT-TYPE",
			expected: "Content-Type",
		},
		{
			desc:     "mixed case",
			input:    "cOnTeNt-TyPe",
			expected: "Content-Type",
		},
		{
			desc:     "single word",
			input:    "contenttype",
			expected: "Contenttype",
		},
		{
			desc:     "empty string",
			input:    "",
			expected: "",
		},
		{
			desc:     "already canonical",
			input:    "Content-Type",
			expected: "Content-Type",
		},
	}
	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			result := toCanonicalFieldName(tc.input)
			assert.Equal(t, tc.expected, result)
		})
	}
}

func TestTokenizeFieldValues(t *testing.T) {
	testcases := []struct {
		desc     string
		input    []byte
		expected []string
	}{
		{
			desc:     "single value",
			input:    []byte("hello world"),
			expected: []string{"hello world"},
		},
		{
			desc:     "multiple values with comma",
			input:    []byte("foo, bar,baz"),
			expected: []string{"foo", "bar", "baz"},
		},
		{
			desc:     "quoted value",
			input:    []byte("\"foo\""),
			expected: []string{"foo"},
		},
		{
			desc:     "quoted values with comma",
			input:    []byte("\"foo\", \"bar\""),
			expected: []string{"foo", "bar"},
		},
		{
			desc:     "comma inside quoted string",
			input:    []byte("foo \",bar\""),
			expected: []string{"foo \",bar\""},
		},
		{
			desc:     "escaped characters",
			input:    []byte("\"foo is \\\"bar\\\"\""),
			expected: []string{"foo is \"bar\""},
		},
		{
			desc:     "empty values",
			input:    []byte("foo, , , bar, "),
			expected: []string{"foo", "bar"},
		},
		{
			desc:     "malformed quote",
			input:    []byte("\"foo, bar"),
			expected: []string{"\"foo, bar"},
		},
	}
	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			output := tokenizeFieldValues(tc.input)
			assert.Equal(t, tc.expected, output)
		})
	}
}

func TestAddToken(t *testing.T) {
	testcases := []struct {
		desc     string
		input    []byte
		expected []string
	}{
		{
			desc:     "empty token",
			input:    []byte(""),
			expected: []string{},
		},
		{
			desc:     "only whitespaces",
			input:    rule.Whitespaces,
			expected: []string{},
		},
		{
			desc:     "normal value",
			input:    []byte("Hello"),
			expected: []string{"Hello"},
		},
		{
			desc:     "quoted value",
			input:    []byte("\"Hello\""),
			expected: []string{"Hello"},
		},
		{
			desc:     "quoted value (not entirely wrapped)",
			input:    []byte("He\"llo\""),
			expected: []string{"He\"llo\""},
		},
	}
	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			initial := []string{}
			output := addToken(initial, tc.input)
			assert.Equal(t, tc.expected, output)
		})
	}

}
