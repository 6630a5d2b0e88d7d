package data

import "encoding/hex"

// Capability levels.
const (
	CapUnsupported      uint8 = 0
	CapSupported        uint8 = 1
	CapSupportedOffline uint8 = 2
	CapNotImplemented   uint8 = 3
	CapUnknown          uint8 = 4
)

// CapCount is the fixed slot count of a capability set. The wire form is
// always exactly two hex digits per slot.
const CapCount = 512

// Capability identifiers, one slot each.
const (
	// Array wide
	CapBlockSupport = 0
	CapFsSupport    = 1

	// Block operations
	CapVolumes      = 20
	CapVolumeCreate = 21
	CapVolumeResize = 22

	CapVolumeReplicate            = 23
	CapVolumeReplicateClone       = 24
	CapVolumeReplicateCopy        = 25
	CapVolumeReplicateMirrorAsync = 26
	CapVolumeReplicateMirrorSync  = 27

	CapVolumeCopyRangeBlockSize = 28
	CapVolumeCopyRange          = 39 // historical clash with CapAccessGroupCreate
	CapVolumeCopyRangeClone     = 30
	CapVolumeCopyRangeCopy      = 31

	CapVolumeDelete = 33

	CapVolumeOnline  = 34
	CapVolumeOffline = 35

	CapAccessGroupGrant        = 36
	CapAccessGroupRevoke       = 37
	CapAccessGroupList         = 38
	CapAccessGroupCreate       = 39
	CapAccessGroupDelete       = 40
	CapAccessGroupAddInitiator = 41
	CapAccessGroupDelInitiator = 42

	CapVolumesAccessibleByAccessGroup = 43
	CapAccessGroupsGrantedToVolume    = 44

	CapVolumeChildDependency   = 45
	CapVolumeChildDependencyRm = 46

	// File system
	CapFs                               = 100
	CapFsDelete                         = 101
	CapFsResize                         = 102
	CapFsCreate                         = 103
	CapFsClone                          = 104
	CapFileClone                        = 105
	CapSnapshots                        = 106
	CapSnapshotCreate                   = 107
	CapSnapshotCreateSpecificFiles      = 108
	CapSnapshotDelete                   = 109
	CapSnapshotRevert                   = 110
	CapSnapshotRevertSpecificFiles      = 111
	CapFsChildDependency                = 112
	CapFsChildDependencyRm              = 113
	CapFsChildDependencyRmSpecificFiles = 114

	// NFS
	CapExportAuth   = 120
	CapExports      = 121
	CapExportFs     = 122
	CapExportRemove = 123
)

// Capabilities is a fixed-size bitmap describing which operations an array
// supports. Unlike the other entities it serializes its whole slot array as
// one compact hex string rather than a field per slot.
type Capabilities struct {
	cap []byte
}

// NewCapabilities returns a set with every slot at CapUnsupported.
func NewCapabilities() *Capabilities {
	return &Capabilities{cap: make([]byte, CapCount)}
}

// NewCapabilitiesFromHex rebuilds a set from its encoded form: lowercase
// hex, two digits per slot, exactly CapCount slots.
func NewCapabilitiesFromHex(s string) (*Capabilities, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, errf(ErrCapability, "Capabilities: invalid hex payload: %v", err)
	}
	if len(raw) != CapCount {
		return nil, errf(ErrCapability, "Capabilities: expected %d slots, got %d", CapCount, len(raw))
	}
	return &Capabilities{cap: raw}, nil
}

// Get returns the level stored for id, or CapUnknown when id is out of
// range.
func (c *Capabilities) Get(id int) uint8 {
	if id < 0 || id >= len(c.cap) {
		return CapUnknown
	}
	return c.cap[id]
}

// Set stores level at id. Writes are bounds-checked symmetrically with Get;
// an out-of-range id is rejected instead of panicking.
func (c *Capabilities) Set(id int, level uint8) error {
	if id < 0 || id >= len(c.cap) {
		return errf(ErrInvalid, "Capabilities: id %d out of range", id)
	}
	c.cap[id] = level
	return nil
}

// EnableAll marks every slot CapSupported.
func (c *Capabilities) EnableAll() {
	for i := range c.cap {
		c.cap[i] = CapSupported
	}
}

func (c *Capabilities) Class() string { return "Capabilities" }

func (c *Capabilities) fields() []field {
	return []field{
		{"cap", hex.EncodeToString(c.cap)},
	}
}

func init() {
	register("Capabilities", func(m map[string]any) (Entity, error) {
		f := newFieldSet("Capabilities", m)
		payload := f.str("cap")
		if err := f.done(); err != nil {
			return nil, err
		}
		return NewCapabilitiesFromHex(payload)
	})
}
