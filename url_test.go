package coap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitURLExactOptionSequence(t *testing.T) {
	tests := []struct {
		name string
		host string
		url  string
		want []Option
	}{
		{
			name: "simple-path",
			host: "192.168.1.1",
			url:  "/a/b",
			want: []Option{
				{ID: URIHost, Value: []byte("192.168.1.1")},
				{ID: URIPath, Value: []byte("a")},
				{ID: URIPath, Value: []byte("b")},
			},
		},
		{
			name: "path-and-query",
			host: "10.0.0.1",
			url:  "/a/b?x=1&y=2",
			want: []Option{
				{ID: URIHost, Value: []byte("10.0.0.1")},
				{ID: URIPath, Value: []byte("a")},
				{ID: URIPath, Value: []byte("b")},
				{ID: URIQuery, Value: []byte("x=1")},
				{ID: URIQuery, Value: []byte("y=2")},
			},
		},
		{
			name: "no-leading-slash",
			host: "10.0.0.1",
			url:  "temp",
			want: []Option{
				{ID: URIHost, Value: []byte("10.0.0.1")},
				{ID: URIPath, Value: []byte("temp")},
			},
		},
		{
			name: "root-only",
			host: "10.0.0.1",
			url:  "/",
			want: []Option{
				{ID: URIHost, Value: []byte("10.0.0.1")},
			},
		},
		{
			name: "second-question-mark-is-literal",
			host: "10.0.0.1",
			url:  "/a?x=1?y=2",
			want: []Option{
				{ID: URIHost, Value: []byte("10.0.0.1")},
				{ID: URIPath, Value: []byte("a")},
				{ID: URIQuery, Value: []byte("x=1?y=2")},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitURL(tt.host, tt.url)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestHostOptionValueNormalisesLiteralIP(t *testing.T) {
	require.Equal(t, "192.168.1.1", hostOptionValue("192.168.1.1"))
}

func TestHostOptionValuePassesThroughNonIP(t *testing.T) {
	require.Equal(t, "my-gateway", hostOptionValue("my-gateway"))
}
