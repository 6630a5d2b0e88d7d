package data

// Builder reconstructs an entity from its decoded field mapping. Nested
// values have already been decoded, so an entity-valued field arrives as a
// live Entity, not as a tagged mapping.
type Builder func(fields map[string]any) (Entity, error)

// registry maps a class tag to its builder. It is populated from the init
// functions next to each entity definition and never written afterwards,
// so decode-time reads need no locking.
var registry = map[string]Builder{}

func register(class string, b Builder) {
	if _, dup := registry[class]; dup {
		panic("data: duplicate entity registration: " + class)
	}
	registry[class] = b
}

// Lookup returns the builder registered for class, if any.
func Lookup(class string) (Builder, bool) {
	b, ok := registry[class]
	return b, ok
}
