package sim

// Event is the unit exchanged along a coupling: a value on a port at a time.
// Models leave Time zero when emitting; the engine stamps it.
type Event struct {
	Port  string
	Value any
	Time  Time
}

// Bag is a multiset of events delivered or emitted in one instant.
// Multiplicity is preserved; order follows execution order but carries no meaning.
type Bag []Event

// Values returns the values carried on port, in bag order.
func (b Bag) Values(port string) []any {
	var out []any
	for _, ev := range b {
		if ev.Port == port {
			out = append(out, ev.Value)
		}
	}
	return out
}

// Has reports whether any event in the bag is on port.
func (b Bag) Has(port string) bool {
	for _, ev := range b {
		if ev.Port == port {
			return true
		}
	}
	return false
}

// Emit is shorthand for a single-event bag.
func Emit(port string, value any) Bag {
	return Bag{{Port: port, Value: value}}
}
