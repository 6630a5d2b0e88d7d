package data

// Initiator types.
const (
	InitiatorTypeOther    int64 = 1
	InitiatorTypePortWWN  int64 = 2
	InitiatorTypeNodeWWN  int64 = 3
	InitiatorTypeHostname int64 = 4
	InitiatorTypeISCSI    int64 = 5
)

// Initiator identifies a host-side endpoint that can be granted access to
// volumes.
type Initiator struct {
	ID   string
	Type int64
	Name string
}

// NewInitiator builds an Initiator. Arrays that cannot report a friendly
// name leave it empty; the sentinel keeps downstream display code simple.
func NewInitiator(id string, typ int64, name string) *Initiator {
	if name == "" {
		name = "Unsupported"
	}
	return &Initiator{ID: id, Type: typ, Name: name}
}

func (i *Initiator) Class() string { return "Initiator" }

func (i *Initiator) fields() []field {
	return []field{
		{"id", i.ID},
		{"type", i.Type},
		{"name", i.Name},
	}
}

// AccessGroup is a named set of initiators that share volume access. It
// owns its initiator list; the nested entities serialize inline.
type AccessGroup struct {
	ID         string
	Name       string
	Initiators []*Initiator
	SystemID   string
}

// NewAccessGroup builds an AccessGroup. An empty systemID means the array
// did not scope the group to a system and is recorded as "NA".
func NewAccessGroup(id, name string, initiators []*Initiator, systemID string) *AccessGroup {
	if systemID == "" {
		systemID = "NA"
	}
	return &AccessGroup{ID: id, Name: name, Initiators: initiators, SystemID: systemID}
}

func (g *AccessGroup) Class() string { return "AccessGroup" }

func (g *AccessGroup) fields() []field {
	return []field{
		{"id", g.ID},
		{"name", g.Name},
		{"initiators", initiatorValues(g.Initiators)},
		{"system_id", g.SystemID},
	}
}

// initiatorValues widens the typed list for the encoder while keeping a
// nil list nil, so empty and absent lists survive a round trip unchanged.
func initiatorValues(list []*Initiator) []any {
	if list == nil {
		return nil
	}
	out := make([]any, len(list))
	for i, ini := range list {
		out[i] = ini
	}
	return out
}

// BlockRange names a span of blocks for a ranged replication.
type BlockRange struct {
	SrcBlock   uint64
	DestBlock  uint64
	BlockCount uint64
}

func NewBlockRange(srcBlock, destBlock, blockCount uint64) *BlockRange {
	return &BlockRange{SrcBlock: srcBlock, DestBlock: destBlock, BlockCount: blockCount}
}

func (b *BlockRange) Class() string { return "BlockRange" }

func (b *BlockRange) fields() []field {
	return []field{
		{"src_block", b.SrcBlock},
		{"dest_block", b.DestBlock},
		{"block_count", b.BlockCount},
	}
}

func init() {
	register("Initiator", func(m map[string]any) (Entity, error) {
		f := newFieldSet("Initiator", m)
		i := NewInitiator(f.str("id"), f.int64("type"), f.str("name"))
		if err := f.done(); err != nil {
			return nil, err
		}
		return i, nil
	})

	register("AccessGroup", func(m map[string]any) (Entity, error) {
		f := newFieldSet("AccessGroup", m)
		g := NewAccessGroup(
			f.str("id"),
			f.str("name"),
			f.initiators("initiators"),
			f.optStr("system_id", "NA"),
		)
		if err := f.done(); err != nil {
			return nil, err
		}
		return g, nil
	})

	register("BlockRange", func(m map[string]any) (Entity, error) {
		f := newFieldSet("BlockRange", m)
		b := NewBlockRange(
			f.uint64("src_block"),
			f.uint64("dest_block"),
			f.uint64("block_count"),
		)
		if err := f.done(); err != nil {
			return nil, err
		}
		return b, nil
	})
}
