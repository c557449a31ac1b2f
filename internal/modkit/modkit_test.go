package modkit

import (
	"testing"

	"cverelease/internal/platform/config"
)

type stub struct{ ports any }

func (s *stub) Ports() any   { return s.ports }
func (s *stub) Name() string { return "stub" }

var _ Module = (*stub)(nil)

type fooPort interface{ Foo() string }

type foo string

func (f foo) Foo() string { return string(f) }

func TestDeps_ZeroValue_IsOK(t *testing.T) {
	t.Parallel()
	var d Deps
	if !d.ZeroOK() {
		t.Fatal("zero-value Deps should be safe in tests (ZeroOK == true)")
	}
	d = Deps{Cfg: config.New()}
	if !d.ZeroOK() {
		t.Fatal("non-zero Deps should also report ZeroOK == true")
	}
}

func TestPortsOf(t *testing.T) {
	t.Parallel()

	m := &stub{ports: 42}
	if v, ok := PortsOf[int](m); !ok || v != 42 {
		t.Fatalf("PortsOf[int] = %v %v", v, ok)
	}
	if _, ok := PortsOf[string](m); ok {
		t.Fatal("PortsOf[string] should not match an int port set")
	}
}

func TestBuilder_TypeSignatureAndUse(t *testing.T) {
	t.Parallel()

	var b Builder = func(_ Deps, _ ...Option) (Module, error) {
		return &stub{ports: "ok"}, nil
	}
	m, err := b(Deps{})
	if err != nil || m == nil {
		t.Fatalf("builder returned %v %v", m, err)
	}
	if p := m.Ports(); p != "ok" {
		t.Fatalf("unexpected Ports value from built module: got=%v want=ok", p)
	}
}

func TestBuild_Defaults(t *testing.T) {
	t.Parallel()

	b := Build()
	if b.Name != "" {
		t.Fatalf("default Name = %q, want empty", b.Name)
	}
	if len(b.Ports) != 0 {
		t.Fatalf("default Ports length = %d, want 0", len(b.Ports))
	}
	if _, ok := Port[fooPort](b); ok {
		t.Fatal("Port on empty Built should miss")
	}
}

func TestBuild_WithOptions(t *testing.T) {
	t.Parallel()

	b := Build(
		WithName("release"),
		WithPorts[fooPort](foo("first")),
		nil,
		WithPorts(7),
		WithPorts[fooPort](foo("second")),
	)
	if b.Name != "release" {
		t.Fatalf("Name = %q, want release", b.Name)
	}
	got, ok := Port[fooPort](b)
	if !ok || got.Foo() != "second" {
		t.Fatalf("Port[fooPort] = %v %v, want second", got, ok)
	}
	if n, ok := Port[int](b); !ok || n != 7 {
		t.Fatalf("Port[int] = %v %v", n, ok)
	}
}
