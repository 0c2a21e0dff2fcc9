package nodes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCombine(t *testing.T) {
	tests := []struct {
		name   string
		mode   string
		input1 any
		input2 any
		want   any
	}{
		{name: "concat strings", mode: "concat", input1: "foo", input2: "bar", want: "foobar"},
		{name: "concat missing first", mode: "concat", input1: nil, input2: "bar", want: "bar"},
		{name: "concat both missing", mode: "concat", want: ""},
		{name: "concat numbers", mode: "concat", input1: 4, input2: 2.5, want: "42.5"},
		{name: "nonempty first", mode: "nonempty", input1: "a", input2: "b", want: "a"},
		{name: "nonempty falls back", mode: "nonempty", input1: "", input2: "b", want: "b"},
		{name: "nonempty nil first", mode: "nonempty", input1: nil, input2: []string{"x"}, want: []string{"x"}},
		{name: "nonempty false first", mode: "nonempty", input1: false, input2: "b", want: "b"},
		{name: "unknown mode", mode: "zip", input1: "a", input2: "b", want: nil},
	}

	f := newFixture(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := f.node(TypeCombine, map[string]any{"mode": tt.mode})
			n.Set("input1", tt.input1)
			n.Set("input2", tt.input2)

			_, err := f.exec(n, keys())
			require.NoError(t, err)
			assert.Equal(t, tt.want, n.Value("result"))
		})
	}
}
