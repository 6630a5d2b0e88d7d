package data

// Sentinels for NFS anonymous uid/gid mapping.
const (
	// AnonUIDGIDNA means no anonymous uid/gid mapping applies.
	AnonUIDGIDNA uint64 = 1<<64 - 1
	// AnonUIDGIDError marks a mapping the array could not report.
	AnonUIDGIDError uint64 = AnonUIDGIDNA - 1
)

// NfsExport describes one exported filesystem path and its client access
// lists.
type NfsExport struct {
	ID         string
	FsID       string
	ExportPath string
	Auth       string
	Root       []string
	RW         []string
	RO         []string
	AnonUID    uint64
	AnonGID    uint64
	Options    string
}

// NewNfsExport builds an NfsExport. fsID and exportPath are required; an
// export without them is meaningless.
func NewNfsExport(id, fsID, exportPath, auth string, root, rw, ro []string, anonUID, anonGID uint64, options string) (*NfsExport, error) {
	if fsID == "" {
		return nil, errf(ErrInvalid, "NfsExport: fs_id is required")
	}
	if exportPath == "" {
		return nil, errf(ErrInvalid, "NfsExport: export_path is required")
	}
	return &NfsExport{
		ID:         id,
		FsID:       fsID,
		ExportPath: exportPath,
		Auth:       auth,
		Root:       root,
		RW:         rw,
		RO:         ro,
		AnonUID:    anonUID,
		AnonGID:    anonGID,
		Options:    options,
	}, nil
}

func (n *NfsExport) Class() string { return "NfsExport" }

func (n *NfsExport) fields() []field {
	return []field{
		{"id", n.ID},
		{"fs_id", n.FsID},
		{"export_path", n.ExportPath},
		{"auth", n.Auth},
		{"root", n.Root},
		{"rw", n.RW},
		{"ro", n.RO},
		{"anonuid", n.AnonUID},
		{"anongid", n.AnonGID},
		{"options", n.Options},
	}
}

func init() {
	register("NfsExport", func(m map[string]any) (Entity, error) {
		f := newFieldSet("NfsExport", m)
		id := f.str("id")
		fsID := f.str("fs_id")
		exportPath := f.str("export_path")
		auth := f.str("auth")
		root := f.strList("root")
		rw := f.strList("rw")
		ro := f.strList("ro")
		anonUID := f.uint64("anonuid")
		anonGID := f.uint64("anongid")
		options := f.str("options")
		if err := f.done(); err != nil {
			return nil, err
		}
		e, err := NewNfsExport(id, fsID, exportPath, auth, root, rw, ro, anonUID, anonGID, options)
		if err != nil {
			return nil, errf(ErrConstruct, "%s", err.Error())
		}
		return e, nil
	})
}
