package emit

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferedEmitter_History(t *testing.T) {
	b := NewBufferedEmitter()
	b.Emit(Event{RunID: "r1", Msg: MsgRunStart})
	b.Emit(Event{RunID: "r1", Step: 1, NodeID: "req", NodeType: "request", Msg: MsgNodeStart})
	b.Emit(Event{RunID: "r2", Msg: MsgRunStart})
	b.Emit(Event{RunID: "r1", Step: 1, NodeID: "req", NodeType: "request", Msg: MsgNodeEnd})

	history := b.GetHistory("r1")
	require.Len(t, history, 3)
	assert.Equal(t, MsgRunStart, history[0].Msg)
	assert.Equal(t, MsgNodeEnd, history[2].Msg)

	assert.Len(t, b.GetHistory("r2"), 1)
	assert.Empty(t, b.GetHistory("missing"))
}

func TestBufferedEmitter_Filter(t *testing.T) {
	b := NewBufferedEmitter()
	b.Emit(Event{RunID: "r", NodeID: "a", NodeType: "text", Msg: MsgNodeStart})
	b.Emit(Event{RunID: "r", NodeID: "a", NodeType: "text", Msg: MsgNodeEnd})
	b.Emit(Event{RunID: "r", NodeID: "b", NodeType: "ai", Msg: MsgNodeSkipped})
	b.Emit(Event{RunID: "r", NodeID: "c", NodeType: "ai", Msg: MsgNodeStart})

	tests := []struct {
		name   string
		filter HistoryFilter
		want   int
	}{
		{"by node", HistoryFilter{NodeID: "a"}, 2},
		{"by type", HistoryFilter{NodeType: "ai"}, 2},
		{"by msg", HistoryFilter{Msg: MsgNodeStart}, 2},
		{"combined", HistoryFilter{NodeType: "ai", Msg: MsgNodeSkipped}, 1},
		{"no match", HistoryFilter{NodeID: "zzz"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, b.GetHistoryWithFilter("r", tt.filter), tt.want)
		})
	}

	assert.Equal(t, []string{"a", "c"}, b.NodeOrder("r"))
}

func TestBufferedEmitter_Clear(t *testing.T) {
	b := NewBufferedEmitter()
	b.Emit(Event{RunID: "r1", Msg: MsgRunStart})
	b.Emit(Event{RunID: "r2", Msg: MsgRunStart})

	b.Clear("r1")
	assert.Empty(t, b.GetHistory("r1"))
	assert.Len(t, b.GetHistory("r2"), 1)

	b.Clear("")
	assert.Empty(t, b.GetHistory("r2"))
}

func TestBufferedEmitter_Concurrent(t *testing.T) {
	b := NewBufferedEmitter()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				b.Emit(Event{RunID: "r", Msg: MsgNodeEnd})
			}
		}()
	}
	wg.Wait()
	assert.Len(t, b.GetHistory("r"), 1000)
}

func TestMulti(t *testing.T) {
	a, b := NewBufferedEmitter(), NewBufferedEmitter()
	m := Multi{a, nil, b, NewNullEmitter()}
	m.Emit(Event{RunID: "r", Msg: MsgRunEnd})
	assert.Len(t, a.GetHistory("r"), 1)
	assert.Len(t, b.GetHistory("r"), 1)
}
