package querystring

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr[T any](v T) *T { return &v }

func TestSerialize(t *testing.T) {
	var nilString *string

	tests := []struct {
		name   string
		params Params
		want   string
	}{
		{
			name:   "empty",
			params: nil,
			want:   "",
		},
		{
			name: "keeps insertion order",
			params: Params{}.
				Add("zeta", "1").
				Add("alpha", "2").
				Add("mid", "3"),
			want: "zeta=1&alpha=2&mid=3",
		},
		{
			name: "drops nil values and nil pointers",
			params: Params{}.
				Add("a", "x").
				Add("k", nil).
				Add("p", nilString).
				Add("b", "y"),
			want: "a=x&b=y",
		},
		{
			name: "keeps empty strings and zero values",
			params: Params{}.
				Add("s", "").
				Add("n", 0).
				Add("f", false),
			want: "s=&n=0&f=false",
		},
		{
			name: "formats scalars",
			params: Params{}.
				Add("int", 42).
				Add("float", 19.99).
				Add("whole", float64(10)).
				Add("bool", true).
				Add("number", json.Number("7.5")).
				Add("ptr", ptr("v")).
				Add("uint", uint8(3)),
			want: "int=42&float=19.99&whole=10&bool=true&number=7.5&ptr=v&uint=3",
		},
		{
			name: "encodes like encodeURIComponent",
			params: Params{}.
				Add("url", "https://example.com/a b?x=1&y=2").
				Add("marks", "it's (fine)!*~").
				Add("email key", "a+b@example.com"),
			want: "url=https%3A%2F%2Fexample.com%2Fa%20b%3Fx%3D1%26y%3D2&marks=it's%20(fine)!*~&email%20key=a%2Bb%40example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Serialize(tt.params))
		})
	}
}

func TestSerialize_NullKeyNeverAppears(t *testing.T) {
	params := Params{}.Add("a", "1").Add("k", nil).Add("c", "3")

	first := Serialize(params)
	second := Serialize(params)

	assert.Equal(t, first, second)
	for _, pair := range strings.Split(first, "&") {
		assert.False(t, strings.HasPrefix(pair, "k="), "unexpected pair %q", pair)
	}
}

func TestAdd_DoesNotMutateReceiverValues(t *testing.T) {
	base := Params{}.Add("a", "1")
	extended := base.Add("b", "2")

	assert.Equal(t, "a=1", Serialize(base))
	assert.Equal(t, "a=1&b=2", Serialize(extended))
}
