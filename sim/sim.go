// Package sim is an in-memory storage array. It implements the full plugin
// operation set against simulated pools, so the interchange stack can be
// exercised end to end without hardware.
package sim

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sanlink/sanlink/data"

	"github.com/google/uuid"
)

const blockSize = 512

// Array holds the simulated state. All public methods are safe for
// concurrent use; state lives behind one mutex since nothing here blocks.
type Array struct {
	mu          sync.Mutex
	system      *data.System
	pools       map[string]*data.Pool
	volumes     map[string]*data.Volume
	volumePool  map[string]string
	filesystems map[string]*data.FileSystem
	snapshots   map[string][]*data.Snapshot
	exports     map[string]*data.NfsExport
	groups      map[string]*data.AccessGroup
	grants      map[string]map[string]int64
	caps        *data.Capabilities
	timeoutMS   uint64

	now func() int64
}

// New seeds a single-system array with two pools.
func New() *Array {
	caps := data.NewCapabilities()
	caps.EnableAll()
	// Ranged reverts are the one thing the simulator does not pretend to do.
	_ = caps.Set(data.CapSnapshotRevertSpecificFiles, data.CapNotImplemented)
	_ = caps.Set(data.CapSnapshotCreateSpecificFiles, data.CapNotImplemented)

	sysID := "sim-" + uuid.NewString()[:8]
	return &Array{
		system: data.NewSystem(sysID, "sanlink simulated array"),
		pools: map[string]*data.Pool{
			"pool-01": data.NewPool("pool-01", "tier1", 1<<40, 1<<40, sysID),
			"pool-02": data.NewPool("pool-02", "tier2", 4<<40, 4<<40, sysID),
		},
		volumes:     make(map[string]*data.Volume),
		volumePool:  make(map[string]string),
		filesystems: make(map[string]*data.FileSystem),
		snapshots:   make(map[string][]*data.Snapshot),
		exports:     make(map[string]*data.NfsExport),
		groups:      make(map[string]*data.AccessGroup),
		grants:      make(map[string]map[string]int64),
		caps:        caps,
		timeoutMS:   30000,
		now:         func() int64 { return time.Now().Unix() },
	}
}

func newID(prefix string) string { return prefix + "-" + uuid.NewString() }

// vpd83 fakes a page-83 identifier from a fresh uuid.
func vpd83() string {
	return "6001405" + strings.ReplaceAll(uuid.NewString(), "-", "")[:25]
}

func (a *Array) TimeoutSet(ms uint64) { a.mu.Lock(); a.timeoutMS = ms; a.mu.Unlock() }

func (a *Array) TimeoutGet() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.timeoutMS
}

func (a *Array) Systems() []*data.System {
	a.mu.Lock()
	defer a.mu.Unlock()
	return []*data.System{a.system}
}

func (a *Array) Pools() []*data.Pool {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*data.Pool, 0, len(a.pools))
	for _, p := range a.pools {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Capabilities reports what this array supports. The system must be one of
// ours.
func (a *Array) Capabilities(systemID string) (*data.Capabilities, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if systemID != a.system.ID {
		return nil, errf(ErrNotFound, "system %q not found", systemID)
	}
	return a.caps, nil
}

// --- Volume operations ---

func (a *Array) Volumes() []*data.Volume {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*data.Volume, 0, len(a.volumes))
	for _, v := range a.volumes {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (a *Array) VolumeCreate(poolID, name string, sizeBytes uint64, provisioning int64) (*data.Volume, error) {
	if name == "" {
		return nil, errf(ErrInvalid, "volume name is required")
	}
	if sizeBytes == 0 {
		return nil, errf(ErrInvalid, "size_bytes must be greater than zero")
	}
	switch provisioning {
	case data.ProvisionDefault, data.ProvisionFull, data.ProvisionThin, data.ProvisionUnknown:
	default:
		return nil, errf(ErrInvalid, "invalid provisioning type %d", provisioning)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	return a.volumeCreateLocked(poolID, name, sizeBytes)
}

// volumeCreateLocked allocates a volume. The caller holds a.mu.
func (a *Array) volumeCreateLocked(poolID, name string, sizeBytes uint64) (*data.Volume, error) {
	pool, ok := a.pools[poolID]
	if !ok {
		return nil, errf(ErrNotFound, "pool %q not found", poolID)
	}
	for _, v := range a.volumes {
		if v.Name == name {
			return nil, errf(ErrExists, "volume %q already exists", name)
		}
	}

	numBlocks := (sizeBytes + blockSize - 1) / blockSize
	allocated := numBlocks * blockSize
	if allocated > pool.FreeSpace {
		return nil, errf(ErrNoSpace, "pool %q has %d bytes free, need %d", poolID, pool.FreeSpace, allocated)
	}

	vol := data.NewVolume(newID("vol"), name, vpd83(), blockSize, numBlocks, data.VolumeStatusOK, a.system.ID)
	pool.FreeSpace -= allocated
	a.volumes[vol.ID] = vol
	a.volumePool[vol.ID] = pool.ID
	volumesGauge.Inc()
	return vol, nil
}

func (a *Array) VolumeDelete(volumeID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	vol, ok := a.volumes[volumeID]
	if !ok {
		return errf(ErrNotFound, "volume %q not found", volumeID)
	}
	for groupID, vols := range a.grants {
		if _, granted := vols[volumeID]; granted {
			return errf(ErrInvalid, "volume %q is granted to access group %q", volumeID, groupID)
		}
	}

	if pool, ok := a.pools[a.volumePool[volumeID]]; ok {
		pool.FreeSpace += vol.SizeBytes()
	}
	delete(a.volumes, volumeID)
	delete(a.volumePool, volumeID)
	volumesGauge.Dec()
	return nil
}

func (a *Array) VolumeReplicate(poolID string, repType int64, srcVolumeID, name string) (*data.Volume, error) {
	switch repType {
	case data.ReplicateSnapshot, data.ReplicateClone, data.ReplicateCopy,
		data.ReplicateMirrorSync, data.ReplicateMirrorAsync:
	default:
		return nil, errf(ErrInvalid, "invalid replication type %d", repType)
	}

	if name == "" {
		return nil, errf(ErrInvalid, "volume name is required")
	}

	// Hold the lock across the source read and the allocation so a
	// concurrent delete cannot slip in between.
	a.mu.Lock()
	defer a.mu.Unlock()

	src, ok := a.volumes[srcVolumeID]
	if !ok {
		return nil, errf(ErrNotFound, "volume %q not found", srcVolumeID)
	}
	return a.volumeCreateLocked(poolID, name, src.SizeBytes())
}

func (a *Array) VolumeReplicateRange(repType int64, srcVolumeID, destVolumeID string, ranges []*data.BlockRange) error {
	if repType != data.ReplicateClone && repType != data.ReplicateCopy {
		return errf(ErrInvalid, "ranged replication supports CLONE and COPY only")
	}
	if len(ranges) == 0 {
		return errf(ErrInvalid, "at least one block range is required")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	src, ok := a.volumes[srcVolumeID]
	if !ok {
		return errf(ErrNotFound, "volume %q not found", srcVolumeID)
	}
	dest, ok := a.volumes[destVolumeID]
	if !ok {
		return errf(ErrNotFound, "volume %q not found", destVolumeID)
	}

	for _, r := range ranges {
		if r.BlockCount == 0 {
			return errf(ErrInvalid, "block range count must be greater than zero")
		}
		if r.SrcBlock+r.BlockCount > src.NumOfBlocks {
			return errf(ErrInvalid, "source range [%d,%d) exceeds volume %q", r.SrcBlock, r.SrcBlock+r.BlockCount, srcVolumeID)
		}
		if r.DestBlock+r.BlockCount > dest.NumOfBlocks {
			return errf(ErrInvalid, "dest range [%d,%d) exceeds volume %q", r.DestBlock, r.DestBlock+r.BlockCount, destVolumeID)
		}
	}
	return nil
}

// --- File system operations ---

func (a *Array) FileSystems() []*data.FileSystem {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*data.FileSystem, 0, len(a.filesystems))
	for _, fs := range a.filesystems {
		out = append(out, fs)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (a *Array) FsCreate(poolID, name string, sizeBytes uint64) (*data.FileSystem, error) {
	if name == "" {
		return nil, errf(ErrInvalid, "filesystem name is required")
	}
	if sizeBytes == 0 {
		return nil, errf(ErrInvalid, "size_bytes must be greater than zero")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	pool, ok := a.pools[poolID]
	if !ok {
		return nil, errf(ErrNotFound, "pool %q not found", poolID)
	}
	for _, fs := range a.filesystems {
		if fs.Name == name {
			return nil, errf(ErrExists, "filesystem %q already exists", name)
		}
	}
	if sizeBytes > pool.FreeSpace {
		return nil, errf(ErrNoSpace, "pool %q has %d bytes free, need %d", poolID, pool.FreeSpace, sizeBytes)
	}

	fs := data.NewFileSystem(newID("fs"), name, sizeBytes, sizeBytes, poolID, a.system.ID)
	pool.FreeSpace -= sizeBytes
	a.filesystems[fs.ID] = fs
	return fs, nil
}

func (a *Array) FsDelete(fsID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	fs, ok := a.filesystems[fsID]
	if !ok {
		return errf(ErrNotFound, "filesystem %q not found", fsID)
	}
	for _, e := range a.exports {
		if e.FsID == fsID {
			return errf(ErrInvalid, "filesystem %q is exported at %q", fsID, e.ExportPath)
		}
	}

	if pool, ok := a.pools[fs.PoolID]; ok {
		pool.FreeSpace += fs.TotalSpace
	}
	delete(a.filesystems, fsID)
	delete(a.snapshots, fsID)
	return nil
}

// --- Snapshot operations ---

func (a *Array) Snapshots(fsID string) ([]*data.Snapshot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.filesystems[fsID]; !ok {
		return nil, errf(ErrNotFound, "filesystem %q not found", fsID)
	}
	out := make([]*data.Snapshot, len(a.snapshots[fsID]))
	copy(out, a.snapshots[fsID])
	return out, nil
}

func (a *Array) SnapshotCreate(fsID, name string) (*data.Snapshot, error) {
	if name == "" {
		return nil, errf(ErrInvalid, "snapshot name is required")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.filesystems[fsID]; !ok {
		return nil, errf(ErrNotFound, "filesystem %q not found", fsID)
	}
	for _, s := range a.snapshots[fsID] {
		if s.Name == name {
			return nil, errf(ErrExists, "snapshot %q already exists", name)
		}
	}

	snap := data.NewSnapshot(newID("snap"), name, a.now())
	a.snapshots[fsID] = append(a.snapshots[fsID], snap)
	return snap, nil
}

func (a *Array) SnapshotDelete(fsID, snapshotID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.filesystems[fsID]; !ok {
		return errf(ErrNotFound, "filesystem %q not found", fsID)
	}
	list := a.snapshots[fsID]
	for i, s := range list {
		if s.ID == snapshotID {
			a.snapshots[fsID] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return errf(ErrNotFound, "snapshot %q not found", snapshotID)
}

// --- NFS export operations ---

func (a *Array) Exports() []*data.NfsExport {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*data.NfsExport, 0, len(a.exports))
	for _, e := range a.exports {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (a *Array) ExportFs(fsID, exportPath string, root, rw, ro []string, anonUID, anonGID uint64, options string) (*data.NfsExport, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.filesystems[fsID]; !ok {
		return nil, errf(ErrNotFound, "filesystem %q not found", fsID)
	}
	for _, e := range a.exports {
		if e.ExportPath == exportPath {
			return nil, errf(ErrExists, "path %q is already exported", exportPath)
		}
	}

	exp, err := data.NewNfsExport(newID("exp"), fsID, exportPath, "sys", root, rw, ro, anonUID, anonGID, options)
	if err != nil {
		return nil, errf(ErrInvalid, "%s", err.Error())
	}
	a.exports[exp.ID] = exp
	exportsGauge.Inc()
	return exp, nil
}

func (a *Array) ExportRemove(exportID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.exports[exportID]; !ok {
		return errf(ErrNotFound, "export %q not found", exportID)
	}
	delete(a.exports, exportID)
	exportsGauge.Dec()
	return nil
}

// --- Access group operations ---

func (a *Array) AccessGroups() []*data.AccessGroup {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*data.AccessGroup, 0, len(a.groups))
	for _, g := range a.groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (a *Array) AccessGroupCreate(name, initiatorID string, initiatorType int64, systemID string) (*data.AccessGroup, error) {
	if name == "" {
		return nil, errf(ErrInvalid, "access group name is required")
	}
	if initiatorID == "" {
		return nil, errf(ErrInvalid, "initiator id is required")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if systemID != "" && systemID != a.system.ID {
		return nil, errf(ErrNotFound, "system %q not found", systemID)
	}
	for _, g := range a.groups {
		if g.Name == name {
			return nil, errf(ErrExists, "access group %q already exists", name)
		}
	}

	group := data.NewAccessGroup(newID("ag"), name,
		[]*data.Initiator{data.NewInitiator(initiatorID, initiatorType, "")}, a.system.ID)
	a.groups[group.ID] = group
	a.grants[group.ID] = make(map[string]int64)
	return group, nil
}

func (a *Array) AccessGroupDelete(groupID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.groups[groupID]; !ok {
		return errf(ErrNotFound, "access group %q not found", groupID)
	}
	if len(a.grants[groupID]) > 0 {
		return errf(ErrInvalid, "access group %q still has volume grants", groupID)
	}
	delete(a.groups, groupID)
	delete(a.grants, groupID)
	return nil
}

func (a *Array) AccessGroupAddInitiator(groupID, initiatorID string, initiatorType int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	group, ok := a.groups[groupID]
	if !ok {
		return errf(ErrNotFound, "access group %q not found", groupID)
	}
	for _, i := range group.Initiators {
		if i.ID == initiatorID {
			return errf(ErrExists, "initiator %q is already in group %q", initiatorID, groupID)
		}
	}
	group.Initiators = append(group.Initiators, data.NewInitiator(initiatorID, initiatorType, ""))
	return nil
}

func (a *Array) AccessGroupDelInitiator(groupID, initiatorID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	group, ok := a.groups[groupID]
	if !ok {
		return errf(ErrNotFound, "access group %q not found", groupID)
	}
	for i, ini := range group.Initiators {
		if ini.ID == initiatorID {
			group.Initiators = append(group.Initiators[:i], group.Initiators[i+1:]...)
			return nil
		}
	}
	return errf(ErrNotFound, "initiator %q not found in group %q", initiatorID, groupID)
}

func (a *Array) AccessGroupGrant(groupID, volumeID string, access int64) error {
	if access != data.AccessReadOnly && access != data.AccessReadWrite {
		return errf(ErrInvalid, "invalid access type %d", access)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.groups[groupID]; !ok {
		return errf(ErrNotFound, "access group %q not found", groupID)
	}
	if _, ok := a.volumes[volumeID]; !ok {
		return errf(ErrNotFound, "volume %q not found", volumeID)
	}
	if _, granted := a.grants[groupID][volumeID]; granted {
		return errf(ErrExists, "volume %q is already granted to group %q", volumeID, groupID)
	}
	a.grants[groupID][volumeID] = access
	return nil
}

func (a *Array) AccessGroupRevoke(groupID, volumeID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.groups[groupID]; !ok {
		return errf(ErrNotFound, "access group %q not found", groupID)
	}
	if _, granted := a.grants[groupID][volumeID]; !granted {
		return errf(ErrNotFound, "volume %q is not granted to group %q", volumeID, groupID)
	}
	delete(a.grants[groupID], volumeID)
	return nil
}

func (a *Array) VolumesAccessibleByAccessGroup(groupID string) ([]*data.Volume, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.groups[groupID]; !ok {
		return nil, errf(ErrNotFound, "access group %q not found", groupID)
	}
	out := make([]*data.Volume, 0, len(a.grants[groupID]))
	for volumeID := range a.grants[groupID] {
		if v, ok := a.volumes[volumeID]; ok {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (a *Array) AccessGroupsGrantedToVolume(volumeID string) ([]*data.AccessGroup, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.volumes[volumeID]; !ok {
		return nil, errf(ErrNotFound, "volume %q not found", volumeID)
	}
	out := make([]*data.AccessGroup, 0)
	for groupID, vols := range a.grants {
		if _, granted := vols[volumeID]; granted {
			out = append(out, a.groups[groupID])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
