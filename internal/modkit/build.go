package modkit

// Built is a plain struct with the fields modules care about
type Built struct {
	Name  string
	Ports []any
}

// Build applies Option funcs to an internal buildCfg and returns a plain struct
func Build(opts ...Option) Built {
	var c buildCfg
	for _, o := range opts {
		if o != nil {
			o(&c)
		}
	}
	return Built{
		Name:  c.name,
		Ports: append([]any(nil), c.ports...),
	}
}

// Port returns the last injected port assignable to T
func Port[T any](b Built) (T, bool) {
	for i := len(b.Ports) - 1; i >= 0; i-- {
		if v, ok := b.Ports[i].(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}
