package data

// Volume status bits. A volume can carry several bits at once.
const (
	VolumeStatusUnknown  uint64 = 0x0
	VolumeStatusOK       uint64 = 0x1
	VolumeStatusDegraded uint64 = 0x2
	VolumeStatusErr      uint64 = 0x4
	VolumeStatusStarting uint64 = 0x8
	VolumeStatusDormant  uint64 = 0x10
)

// Replication types.
const (
	ReplicateUnknown     int64 = -1
	ReplicateSnapshot    int64 = 1
	ReplicateClone       int64 = 2
	ReplicateCopy        int64 = 3
	ReplicateMirrorSync  int64 = 4
	ReplicateMirrorAsync int64 = 5
)

// Provisioning types.
const (
	ProvisionUnknown int64 = -1
	ProvisionThin    int64 = 1
	ProvisionFull    int64 = 2
	ProvisionDefault int64 = 3
)

// Initiator access to a volume.
const (
	AccessReadOnly  int64 = 1
	AccessReadWrite int64 = 2
	AccessNone      int64 = 3
)

// ProvisionFromString maps a human label to a provisioning type.
// Unrecognized input maps to ProvisionUnknown.
func ProvisionFromString(s string) int64 {
	switch s {
	case "DEFAULT":
		return ProvisionDefault
	case "FULL":
		return ProvisionFull
	case "THIN":
		return ProvisionThin
	default:
		return ProvisionUnknown
	}
}

// ReplicateFromString maps a human label to a replication type.
// Unrecognized input maps to ReplicateUnknown.
func ReplicateFromString(s string) int64 {
	switch s {
	case "SNAPSHOT":
		return ReplicateSnapshot
	case "CLONE":
		return ReplicateClone
	case "COPY":
		return ReplicateCopy
	case "MIRROR_SYNC":
		return ReplicateMirrorSync
	case "MIRROR_ASYNC":
		return ReplicateMirrorAsync
	default:
		return ReplicateUnknown
	}
}

// AccessFromString maps a human label to an access type. Anything other
// than "RW" maps to AccessReadOnly: unrecognized access requests fall back
// to the restrictive side.
func AccessFromString(s string) int64 {
	if s == "RW" {
		return AccessReadWrite
	}
	return AccessReadOnly
}

// Volume is a block device exposed by an array.
type Volume struct {
	ID          string
	Name        string
	VPD83       string
	BlockSize   uint64
	NumOfBlocks uint64
	Status      uint64
	SystemID    string
}

// NewVolume builds a Volume. No domain-level validation happens here; the
// array that produced the values is authoritative.
func NewVolume(id, name, vpd83 string, blockSize, numOfBlocks, status uint64, systemID string) *Volume {
	return &Volume{
		ID:          id,
		Name:        name,
		VPD83:       vpd83,
		BlockSize:   blockSize,
		NumOfBlocks: numOfBlocks,
		Status:      status,
		SystemID:    systemID,
	}
}

// SizeBytes is the volume size derived from its block geometry.
func (v *Volume) SizeBytes() uint64 { return v.BlockSize * v.NumOfBlocks }

func (v *Volume) Class() string { return "Volume" }

func (v *Volume) fields() []field {
	return []field{
		{"id", v.ID},
		{"name", v.Name},
		{"vpd83", v.VPD83},
		{"block_size", v.BlockSize},
		{"num_of_blocks", v.NumOfBlocks},
		{"status", v.Status},
		{"system_id", v.SystemID},
	}
}

func init() {
	register("Volume", func(m map[string]any) (Entity, error) {
		f := newFieldSet("Volume", m)
		v := NewVolume(
			f.str("id"),
			f.str("name"),
			f.str("vpd83"),
			f.uint64("block_size"),
			f.uint64("num_of_blocks"),
			f.uint64("status"),
			f.str("system_id"),
		)
		if err := f.done(); err != nil {
			return nil, err
		}
		return v, nil
	})
}
