package data

// FileSystem is a filesystem carved out of a pool.
type FileSystem struct {
	ID         string
	Name       string
	TotalSpace uint64
	FreeSpace  uint64
	PoolID     string
	SystemID   string
}

func NewFileSystem(id, name string, totalSpace, freeSpace uint64, poolID, systemID string) *FileSystem {
	return &FileSystem{
		ID:         id,
		Name:       name,
		TotalSpace: totalSpace,
		FreeSpace:  freeSpace,
		PoolID:     poolID,
		SystemID:   systemID,
	}
}

func (f *FileSystem) Class() string { return "FileSystem" }

func (f *FileSystem) fields() []field {
	return []field{
		{"id", f.ID},
		{"name", f.Name},
		{"total_space", f.TotalSpace},
		{"free_space", f.FreeSpace},
		{"pool_id", f.PoolID},
		{"system_id", f.SystemID},
	}
}

// Snapshot is a point-in-time copy of a filesystem.
type Snapshot struct {
	ID   string
	Name string
	TS   int64
}

func NewSnapshot(id, name string, ts int64) *Snapshot {
	return &Snapshot{ID: id, Name: name, TS: ts}
}

func (s *Snapshot) Class() string { return "Snapshot" }

func (s *Snapshot) fields() []field {
	return []field{
		{"id", s.ID},
		{"name", s.Name},
		{"ts", s.TS},
	}
}

func init() {
	register("FileSystem", func(m map[string]any) (Entity, error) {
		f := newFieldSet("FileSystem", m)
		fs := NewFileSystem(
			f.str("id"),
			f.str("name"),
			f.uint64("total_space"),
			f.uint64("free_space"),
			f.str("pool_id"),
			f.str("system_id"),
		)
		if err := f.done(); err != nil {
			return nil, err
		}
		return fs, nil
	})

	register("Snapshot", func(m map[string]any) (Entity, error) {
		f := newFieldSet("Snapshot", m)
		s := NewSnapshot(f.str("id"), f.str("name"), f.int64("ts"))
		if err := f.done(); err != nil {
			return nil, err
		}
		return s, nil
	})
}
