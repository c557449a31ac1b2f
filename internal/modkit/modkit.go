package modkit

// Module is the common surface for modules that expose ports
// keep this tiny so modules stay decoupled
type Module interface {
	// Ports returns a module specific port set for cross wiring
	Ports() any

	// Name returns the module name
	Name() string
}

// Builder constructs a Module from shared deps and options
type Builder func(Deps, ...Option) (Module, error)

// PortsOf pulls a port set of type T out of a module
func PortsOf[T any](m Module) (T, bool) {
	v, ok := m.Ports().(T)
	return v, ok
}
