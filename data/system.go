package data

// System identifies one array or storage appliance.
type System struct {
	ID   string
	Name string
}

func NewSystem(id, name string) *System {
	return &System{ID: id, Name: name}
}

func (s *System) Class() string { return "System" }

func (s *System) fields() []field {
	return []field{
		{"id", s.ID},
		{"name", s.Name},
	}
}

// Pool is an allocatable chunk of array capacity.
type Pool struct {
	ID         string
	Name       string
	TotalSpace uint64
	FreeSpace  uint64
	SystemID   string
}

func NewPool(id, name string, totalSpace, freeSpace uint64, systemID string) *Pool {
	return &Pool{
		ID:         id,
		Name:       name,
		TotalSpace: totalSpace,
		FreeSpace:  freeSpace,
		SystemID:   systemID,
	}
}

func (p *Pool) Class() string { return "Pool" }

func (p *Pool) fields() []field {
	return []field{
		{"id", p.ID},
		{"name", p.Name},
		{"total_space", p.TotalSpace},
		{"free_space", p.FreeSpace},
		{"system_id", p.SystemID},
	}
}

func init() {
	register("System", func(m map[string]any) (Entity, error) {
		f := newFieldSet("System", m)
		s := NewSystem(f.str("id"), f.str("name"))
		if err := f.done(); err != nil {
			return nil, err
		}
		return s, nil
	})

	register("Pool", func(m map[string]any) (Entity, error) {
		f := newFieldSet("Pool", m)
		p := NewPool(
			f.str("id"),
			f.str("name"),
			f.uint64("total_space"),
			f.uint64("free_space"),
			f.str("system_id"),
		)
		if err := f.done(); err != nil {
			return nil, err
		}
		return p, nil
	})
}
