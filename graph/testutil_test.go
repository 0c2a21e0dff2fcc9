package graph

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cast"
)

// Test node types:
//
//	source:   output "out" from param "value"
//	relay:    input "in" -> output "out"; optional condition input "when"
//	join:     inputs "a","b" -> output "out" = a + b
//	sink:     terminal; input "input" -> output "output"
//	fail:     returns an error
//	fatal:    records a fatal error in GlobalParameters
//	panic:    panics
//	slow:     blocks until its context ends or "release" closes
func newTestRegistry(release <-chan struct{}, calls *callLog) *Registry {
	r := NewRegistry()
	r.MustRegister(Descriptor{
		Type: "source",
		Create: func(*Graph) *Node {
			return NewNode("", "source", Out("out", TypeUnknown))
		},
		Behavior: BehaviorFunc(func(_ context.Context, n *Node, _ *GlobalParameters) error {
			calls.add(n.ID)
			n.Set("out", n.Param("value"))
			return nil
		}),
	})
	r.MustRegister(Descriptor{
		Type: "relay",
		Create: func(*Graph) *Node {
			return NewNode("", "relay",
				In("in", TypeUnknown),
				In("when", TypeBoolean).AsCondition(),
				Out("out", TypeUnknown))
		},
		Behavior: BehaviorFunc(func(_ context.Context, n *Node, _ *GlobalParameters) error {
			calls.add(n.ID)
			n.Set("out", n.Value("in"))
			return nil
		}),
	})
	r.MustRegister(Descriptor{
		Type: "join",
		Create: func(*Graph) *Node {
			return NewNode("", "join",
				In("a", TypeUnknown).AsOptional(),
				In("b", TypeUnknown).AsOptional(),
				Out("out", TypeString))
		},
		Behavior: BehaviorFunc(func(_ context.Context, n *Node, _ *GlobalParameters) error {
			calls.add(n.ID)
			n.Set("out", cast.ToString(n.Value("a"))+cast.ToString(n.Value("b")))
			return nil
		}),
	})
	r.MustRegister(Descriptor{
		Type:     "sink",
		Terminal: true,
		Create: func(*Graph) *Node {
			return NewNode("", "sink", In("input", TypeUnknown), Out("output", TypeUnknown))
		},
		Behavior: BehaviorFunc(func(_ context.Context, n *Node, _ *GlobalParameters) error {
			calls.add(n.ID)
			n.Set("output", n.Value("input"))
			return nil
		}),
	})
	r.MustRegister(Descriptor{
		Type:   "fail",
		Create: func(*Graph) *Node { return NewNode("", "fail", In("in", TypeUnknown), Out("out", TypeUnknown)) },
		Behavior: BehaviorFunc(func(_ context.Context, n *Node, _ *GlobalParameters) error {
			calls.add(n.ID)
			return errBoom
		}),
	})
	r.MustRegister(Descriptor{
		Type:   "fatal",
		Create: func(*Graph) *Node { return NewNode("", "fatal", In("in", TypeUnknown), Out("out", TypeUnknown)) },
		Behavior: BehaviorFunc(func(_ context.Context, n *Node, p *GlobalParameters) error {
			calls.add(n.ID)
			p.Fail("no model selected")
			return nil
		}),
	})
	r.MustRegister(Descriptor{
		Type:   "panic",
		Create: func(*Graph) *Node { return NewNode("", "panic", Out("out", TypeUnknown)) },
		Behavior: BehaviorFunc(func(_ context.Context, n *Node, _ *GlobalParameters) error {
			calls.add(n.ID)
			panic("kaboom")
		}),
	})
	r.MustRegister(Descriptor{
		Type:   "slow",
		Create: func(*Graph) *Node { return NewNode("", "slow", In("in", TypeUnknown), Out("out", TypeUnknown)) },
		Behavior: BehaviorFunc(func(ctx context.Context, n *Node, _ *GlobalParameters) error {
			calls.add(n.ID)
			select {
			case <-release:
			case <-time.After(5 * time.Second):
			}
			n.Set("out", "late")
			return nil
		}),
	})
	return r
}

type testErr string

func (e testErr) Error() string { return string(e) }

const errBoom = testErr("boom")

type callLog struct {
	mu  sync.Mutex
	ids []string
}

func (c *callLog) add(id string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.ids = append(c.ids, id)
	c.mu.Unlock()
}

func (c *callLog) list() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.ids...)
}

// builder assembles a graph from registry types with readable IDs.
type builder struct {
	t   testing.TB
	reg *Registry
	g   *Graph
}

func newBuilder(t testing.TB, reg *Registry) *builder {
	return &builder{t: t, reg: reg, g: New()}
}

func (b *builder) node(id, nodeType string, params map[string]any) *Node {
	b.t.Helper()
	n, err := b.reg.Create(b.g, nodeType)
	if err != nil {
		b.t.Fatalf("create %s: %v", nodeType, err)
	}
	n.ID = id
	for k, v := range params {
		n.SetParam(k, v)
	}
	if err := b.g.AddNode(n); err != nil {
		b.t.Fatalf("add %s: %v", id, err)
	}
	return n
}

func (b *builder) wire(src, srcHandle, dst, dstHandle string) {
	b.t.Helper()
	if _, err := b.g.Connect(src, srcHandle, dst, dstHandle); err != nil {
		b.t.Fatalf("connect %s.%s -> %s.%s: %v", src, srcHandle, dst, dstHandle, err)
	}
}
