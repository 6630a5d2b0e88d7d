package sim

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/sanlink/sanlink/data"

	"github.com/rs/zerolog"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

func simError(t *testing.T, err error, code string) {
	t.Helper()
	var se *Error
	if !errors.As(err, &se) {
		t.Fatalf("expected *sim.Error, got %v", err)
	}
	if se.Code != code {
		t.Errorf("code = %s, want %s", se.Code, code)
	}
}

func TestVolumeCreate(t *testing.T) {
	a := New()
	pool := a.Pools()[0]
	before := pool.FreeSpace

	t.Run("success", func(t *testing.T) {
		vol, err := a.VolumeCreate(pool.ID, "db01", 1<<20, data.ProvisionDefault)
		if err != nil {
			t.Fatalf("VolumeCreate() error: %v", err)
		}
		if vol.SizeBytes() != 1<<20 {
			t.Errorf("SizeBytes() = %d, want %d", vol.SizeBytes(), 1<<20)
		}
		if vol.Status != data.VolumeStatusOK {
			t.Errorf("Status = %d, want %d", vol.Status, data.VolumeStatusOK)
		}
		if got := pool.FreeSpace; got != before-1<<20 {
			t.Errorf("pool free space = %d, want %d", got, before-1<<20)
		}
	})

	t.Run("odd size rounds up to block", func(t *testing.T) {
		vol, err := a.VolumeCreate(pool.ID, "odd", 1000, data.ProvisionDefault)
		if err != nil {
			t.Fatalf("VolumeCreate() error: %v", err)
		}
		if vol.NumOfBlocks != 2 || vol.SizeBytes() != 1024 {
			t.Errorf("blocks = %d size = %d, want 2/1024", vol.NumOfBlocks, vol.SizeBytes())
		}
	})

	t.Run("duplicate name", func(t *testing.T) {
		_, err := a.VolumeCreate(pool.ID, "db01", 1<<20, data.ProvisionDefault)
		simError(t, err, ErrExists)
	})

	t.Run("unknown pool", func(t *testing.T) {
		_, err := a.VolumeCreate("pool-99", "x", 1<<20, data.ProvisionDefault)
		simError(t, err, ErrNotFound)
	})

	t.Run("no space", func(t *testing.T) {
		_, err := a.VolumeCreate(pool.ID, "huge", 2<<40, data.ProvisionDefault)
		simError(t, err, ErrNoSpace)
	})

	t.Run("zero size", func(t *testing.T) {
		_, err := a.VolumeCreate(pool.ID, "empty", 0, data.ProvisionDefault)
		simError(t, err, ErrInvalid)
	})
}

func TestVolumeDelete(t *testing.T) {
	a := New()
	pool := a.Pools()[0]
	before := pool.FreeSpace

	vol, err := a.VolumeCreate(pool.ID, "db01", 1<<20, data.ProvisionDefault)
	if err != nil {
		t.Fatalf("VolumeCreate() error: %v", err)
	}

	t.Run("granted volume is protected", func(t *testing.T) {
		group, err := a.AccessGroupCreate("g1", "iqn.2001-04.com.example:h1", data.InitiatorTypeISCSI, "")
		if err != nil {
			t.Fatalf("AccessGroupCreate() error: %v", err)
		}
		if err := a.AccessGroupGrant(group.ID, vol.ID, data.AccessReadWrite); err != nil {
			t.Fatalf("AccessGroupGrant() error: %v", err)
		}

		simError(t, a.VolumeDelete(vol.ID), ErrInvalid)

		if err := a.AccessGroupRevoke(group.ID, vol.ID); err != nil {
			t.Fatalf("AccessGroupRevoke() error: %v", err)
		}
	})

	t.Run("delete refunds pool space", func(t *testing.T) {
		if err := a.VolumeDelete(vol.ID); err != nil {
			t.Fatalf("VolumeDelete() error: %v", err)
		}
		if pool.FreeSpace != before {
			t.Errorf("pool free space = %d, want %d", pool.FreeSpace, before)
		}
	})

	t.Run("missing volume", func(t *testing.T) {
		simError(t, a.VolumeDelete(vol.ID), ErrNotFound)
	})
}

func TestVolumeReplicate(t *testing.T) {
	a := New()
	pool := a.Pools()[0]

	src, err := a.VolumeCreate(pool.ID, "src", 1<<20, data.ProvisionDefault)
	if err != nil {
		t.Fatalf("VolumeCreate() error: %v", err)
	}

	t.Run("clone copies geometry", func(t *testing.T) {
		clone, err := a.VolumeReplicate(pool.ID, data.ReplicateClone, src.ID, "clone01")
		if err != nil {
			t.Fatalf("VolumeReplicate() error: %v", err)
		}
		if clone.SizeBytes() != src.SizeBytes() {
			t.Errorf("clone size = %d, want %d", clone.SizeBytes(), src.SizeBytes())
		}
		if clone.ID == src.ID || clone.VPD83 == src.VPD83 {
			t.Error("clone must get fresh identifiers")
		}
	})

	t.Run("bad replication type", func(t *testing.T) {
		_, err := a.VolumeReplicate(pool.ID, data.ReplicateUnknown, src.ID, "x")
		simError(t, err, ErrInvalid)
	})

	t.Run("missing source", func(t *testing.T) {
		_, err := a.VolumeReplicate(pool.ID, data.ReplicateClone, "vol-gone", "x")
		simError(t, err, ErrNotFound)
	})
}

func TestVolumeReplicateConcurrentDelete(t *testing.T) {
	a := New()
	pool := a.Pools()[0]

	// Race replicate against delete of the source. Whichever order wins,
	// the pool's space accounting must stay exact.
	for i := 0; i < 50; i++ {
		src, err := a.VolumeCreate(pool.ID, fmt.Sprintf("src%02d", i), 1<<20, data.ProvisionDefault)
		if err != nil {
			t.Fatalf("VolumeCreate() error: %v", err)
		}

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = a.VolumeReplicate(pool.ID, data.ReplicateClone, src.ID, fmt.Sprintf("clone%02d", i))
		}()
		go func() {
			defer wg.Done()
			_ = a.VolumeDelete(src.ID)
		}()
		wg.Wait()
	}

	var used uint64
	for _, v := range a.Volumes() {
		used += v.SizeBytes()
	}
	if pool.FreeSpace+used != pool.TotalSpace {
		t.Errorf("pool accounting drifted: free=%d used=%d total=%d",
			pool.FreeSpace, used, pool.TotalSpace)
	}
}

func TestVolumeReplicateRange(t *testing.T) {
	a := New()
	pool := a.Pools()[0]

	src, _ := a.VolumeCreate(pool.ID, "src", 1<<20, data.ProvisionDefault)
	dest, _ := a.VolumeCreate(pool.ID, "dest", 1<<20, data.ProvisionDefault)

	t.Run("success", func(t *testing.T) {
		err := a.VolumeReplicateRange(data.ReplicateCopy, src.ID, dest.ID, []*data.BlockRange{
			data.NewBlockRange(0, 0, 128),
		})
		if err != nil {
			t.Fatalf("VolumeReplicateRange() error: %v", err)
		}
	})

	t.Run("range past end of volume", func(t *testing.T) {
		err := a.VolumeReplicateRange(data.ReplicateCopy, src.ID, dest.ID, []*data.BlockRange{
			data.NewBlockRange(src.NumOfBlocks-1, 0, 2),
		})
		simError(t, err, ErrInvalid)
	})

	t.Run("unsupported type", func(t *testing.T) {
		err := a.VolumeReplicateRange(data.ReplicateMirrorSync, src.ID, dest.ID, []*data.BlockRange{
			data.NewBlockRange(0, 0, 1),
		})
		simError(t, err, ErrInvalid)
	})

	t.Run("empty ranges", func(t *testing.T) {
		simError(t, a.VolumeReplicateRange(data.ReplicateCopy, src.ID, dest.ID, nil), ErrInvalid)
	})
}

func TestFilesystemsAndSnapshots(t *testing.T) {
	a := New()
	pool := a.Pools()[0]

	fs, err := a.FsCreate(pool.ID, "home", 1<<30)
	if err != nil {
		t.Fatalf("FsCreate() error: %v", err)
	}

	snap, err := a.SnapshotCreate(fs.ID, "nightly")
	if err != nil {
		t.Fatalf("SnapshotCreate() error: %v", err)
	}
	if snap.TS == 0 {
		t.Error("snapshot timestamp not set")
	}

	snaps, err := a.Snapshots(fs.ID)
	if err != nil || len(snaps) != 1 {
		t.Fatalf("Snapshots() = %v, %v", snaps, err)
	}

	t.Run("duplicate snapshot name", func(t *testing.T) {
		_, err := a.SnapshotCreate(fs.ID, "nightly")
		simError(t, err, ErrExists)
	})

	t.Run("exported fs cannot be deleted", func(t *testing.T) {
		exp, err := a.ExportFs(fs.ID, "/exports/home", nil, []string{"10.0.0.0/24"}, nil,
			data.AnonUIDGIDNA, data.AnonUIDGIDNA, "")
		if err != nil {
			t.Fatalf("ExportFs() error: %v", err)
		}
		simError(t, a.FsDelete(fs.ID), ErrInvalid)

		if err := a.ExportRemove(exp.ID); err != nil {
			t.Fatalf("ExportRemove() error: %v", err)
		}
	})

	t.Run("delete drops snapshots", func(t *testing.T) {
		if err := a.FsDelete(fs.ID); err != nil {
			t.Fatalf("FsDelete() error: %v", err)
		}
		if _, err := a.Snapshots(fs.ID); err == nil {
			t.Error("expected error listing snapshots of deleted fs")
		}
	})
}

func TestExportPathUnique(t *testing.T) {
	a := New()
	pool := a.Pools()[0]
	fs, _ := a.FsCreate(pool.ID, "home", 1<<30)

	if _, err := a.ExportFs(fs.ID, "/exports/home", nil, nil, nil, data.AnonUIDGIDNA, data.AnonUIDGIDNA, ""); err != nil {
		t.Fatalf("ExportFs() error: %v", err)
	}
	_, err := a.ExportFs(fs.ID, "/exports/home", nil, nil, nil, data.AnonUIDGIDNA, data.AnonUIDGIDNA, "")
	simError(t, err, ErrExists)
}

func TestAccessGroups(t *testing.T) {
	a := New()
	pool := a.Pools()[0]
	vol, _ := a.VolumeCreate(pool.ID, "db01", 1<<20, data.ProvisionDefault)

	group, err := a.AccessGroupCreate("dbhosts", "iqn.2001-04.com.example:h1", data.InitiatorTypeISCSI, "")
	if err != nil {
		t.Fatalf("AccessGroupCreate() error: %v", err)
	}
	if group.SystemID != a.Systems()[0].ID {
		t.Errorf("group system = %q, want %q", group.SystemID, a.Systems()[0].ID)
	}

	t.Run("initiator membership", func(t *testing.T) {
		if err := a.AccessGroupAddInitiator(group.ID, "iqn.2001-04.com.example:h2", data.InitiatorTypeISCSI); err != nil {
			t.Fatalf("AccessGroupAddInitiator() error: %v", err)
		}
		simError(t, a.AccessGroupAddInitiator(group.ID, "iqn.2001-04.com.example:h2", data.InitiatorTypeISCSI), ErrExists)

		if err := a.AccessGroupDelInitiator(group.ID, "iqn.2001-04.com.example:h2"); err != nil {
			t.Fatalf("AccessGroupDelInitiator() error: %v", err)
		}
		simError(t, a.AccessGroupDelInitiator(group.ID, "iqn.2001-04.com.example:h2"), ErrNotFound)
	})

	t.Run("grant and lookup both directions", func(t *testing.T) {
		if err := a.AccessGroupGrant(group.ID, vol.ID, data.AccessReadWrite); err != nil {
			t.Fatalf("AccessGroupGrant() error: %v", err)
		}
		simError(t, a.AccessGroupGrant(group.ID, vol.ID, data.AccessReadOnly), ErrExists)

		vols, err := a.VolumesAccessibleByAccessGroup(group.ID)
		if err != nil || len(vols) != 1 || vols[0].ID != vol.ID {
			t.Errorf("VolumesAccessibleByAccessGroup() = %v, %v", vols, err)
		}
		groups, err := a.AccessGroupsGrantedToVolume(vol.ID)
		if err != nil || len(groups) != 1 || groups[0].ID != group.ID {
			t.Errorf("AccessGroupsGrantedToVolume() = %v, %v", groups, err)
		}
	})

	t.Run("group with grants is protected", func(t *testing.T) {
		simError(t, a.AccessGroupDelete(group.ID), ErrInvalid)
	})

	t.Run("revoke then delete", func(t *testing.T) {
		if err := a.AccessGroupRevoke(group.ID, vol.ID); err != nil {
			t.Fatalf("AccessGroupRevoke() error: %v", err)
		}
		simError(t, a.AccessGroupRevoke(group.ID, vol.ID), ErrNotFound)
		if err := a.AccessGroupDelete(group.ID); err != nil {
			t.Fatalf("AccessGroupDelete() error: %v", err)
		}
	})

	t.Run("invalid access type", func(t *testing.T) {
		simError(t, a.AccessGroupGrant("ag-x", vol.ID, 99), ErrInvalid)
	})
}

func TestCapabilities(t *testing.T) {
	a := New()
	sys := a.Systems()[0]

	caps, err := a.Capabilities(sys.ID)
	if err != nil {
		t.Fatalf("Capabilities() error: %v", err)
	}
	if caps.Get(data.CapVolumes) != data.CapSupported {
		t.Error("expected volume support")
	}
	if caps.Get(data.CapSnapshotRevertSpecificFiles) != data.CapNotImplemented {
		t.Error("expected snapshot ranged revert to be not implemented")
	}

	_, err = a.Capabilities("sys-bogus")
	simError(t, err, ErrNotFound)
}
