package module

import "testing"

type counter interface{ Count() int }

type countPort struct{ n int }

func (c countPort) Count() int { return c.n }

type fakeModule struct {
	name  string
	ports any
}

func (m fakeModule) Ports() any   { return m.ports }
func (m fakeModule) Name() string { return m.name }

func TestPortsOf_DirectImplement(t *testing.T) {
	t.Parallel()
	m := fakeModule{name: "split", ports: countPort{n: 3}}
	got, ok := PortsOf[counter](m)
	if !ok || got.Count() != 3 {
		t.Fatalf("PortsOf = (%v, %v)", got, ok)
	}
}

func TestPortsOf_StructFieldImplement(t *testing.T) {
	t.Parallel()
	type bundle struct {
		Batches counter
	}
	m := fakeModule{name: "split", ports: bundle{Batches: countPort{n: 7}}}
	got, ok := PortsOf[counter](m)
	if !ok || got.Count() != 7 {
		t.Fatalf("PortsOf = (%v, %v)", got, ok)
	}
}

func TestPortsOf_MissingReturnsFalse(t *testing.T) {
	t.Parallel()
	m := fakeModule{name: "status", ports: nil}
	if _, ok := PortsOf[counter](m); ok {
		t.Fatal("expected ok=false for nil ports")
	}
}

func TestMustPortsOf_PanicsWhenMissing(t *testing.T) {
	t.Parallel()
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	_ = MustPortsOf[counter](fakeModule{name: "status"})
}
