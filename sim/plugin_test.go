package sim

import (
	"context"
	"errors"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/sanlink/sanlink/data"
	"github.com/sanlink/sanlink/rpc"
)

// startArray serves a fresh simulator on a throwaway unix socket and
// returns a connected client.
func startArray(t *testing.T) *rpc.Client {
	t.Helper()

	s := rpc.NewServer(false)
	New().Bind(s)

	socket := filepath.Join(t.TempDir(), "sim.sock")
	ln, err := net.Listen("unix", socket)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := s.Serve(ctx, ln); err != nil {
			t.Errorf("Serve() error: %v", err)
		}
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	c, err := rpc.Connect(socket, 5*time.Second)
	if err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	return c
}

func TestPluginLifecycle(t *testing.T) {
	c := startArray(t)
	ctx := context.Background()

	if err := c.Startup(ctx, "sim://", ""); err != nil {
		t.Fatalf("Startup() error: %v", err)
	}

	desc, version, err := c.PluginInfo(ctx)
	if err != nil {
		t.Fatalf("PluginInfo() error: %v", err)
	}
	if desc != pluginDescription || version != pluginVersion {
		t.Errorf("PluginInfo() = %q %q", desc, version)
	}

	if err := c.TimeoutSet(ctx, 12345); err != nil {
		t.Fatalf("TimeoutSet() error: %v", err)
	}
	if ms, err := c.TimeoutGet(ctx); err != nil || ms != 12345 {
		t.Errorf("TimeoutGet() = %d, %v", ms, err)
	}

	systems, err := c.Systems(ctx)
	if err != nil || len(systems) != 1 {
		t.Fatalf("Systems() = %v, %v", systems, err)
	}
	pools, err := c.Pools(ctx)
	if err != nil || len(pools) != 2 {
		t.Fatalf("Pools() = %v, %v", pools, err)
	}

	vol, err := c.VolumeCreate(ctx, pools[0].ID, "db01", 1<<20, data.ProvisionDefault)
	if err != nil {
		t.Fatalf("VolumeCreate() error: %v", err)
	}
	if vol.SizeBytes() != 1<<20 || vol.SystemID != systems[0].ID {
		t.Errorf("volume came back wrong: %+v", vol)
	}

	group, err := c.AccessGroupCreate(ctx, "dbhosts", "iqn.2001-04.com.example:h1", data.InitiatorTypeISCSI, systems[0].ID)
	if err != nil {
		t.Fatalf("AccessGroupCreate() error: %v", err)
	}
	if err := c.AccessGroupGrant(ctx, group.ID, vol.ID, data.AccessReadWrite); err != nil {
		t.Fatalf("AccessGroupGrant() error: %v", err)
	}
	if err := c.AccessGroupRevoke(ctx, group.ID, vol.ID); err != nil {
		t.Fatalf("AccessGroupRevoke() error: %v", err)
	}

	fs, err := c.FsCreate(ctx, pools[1].ID, "home", 1<<30)
	if err != nil {
		t.Fatalf("FsCreate() error: %v", err)
	}
	exp, err := c.ExportFs(ctx, fs.ID, "/exports/home", nil, []string{"10.0.0.0/24"}, nil,
		data.AnonUIDGIDNA, data.AnonUIDGIDNA, "")
	if err != nil {
		t.Fatalf("ExportFs() error: %v", err)
	}
	if exp.AnonUID != data.AnonUIDGIDNA {
		t.Errorf("anonuid = %d, want %d", exp.AnonUID, uint64(data.AnonUIDGIDNA))
	}

	snap, err := c.SnapshotCreate(ctx, fs.ID, "nightly")
	if err != nil {
		t.Fatalf("SnapshotCreate() error: %v", err)
	}
	snaps, err := c.Snapshots(ctx, fs.ID)
	if err != nil || len(snaps) != 1 || snaps[0].ID != snap.ID {
		t.Errorf("Snapshots() = %v, %v", snaps, err)
	}

	caps, err := c.Capabilities(ctx, systems[0].ID)
	if err != nil {
		t.Fatalf("Capabilities() error: %v", err)
	}
	if caps.Get(data.CapFs) != data.CapSupported {
		t.Error("expected filesystem support")
	}

	if err := c.VolumeDelete(ctx, vol.ID); err != nil {
		t.Fatalf("VolumeDelete() error: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
}

func TestPluginErrorCodes(t *testing.T) {
	c := startArray(t)
	t.Cleanup(func() { c.Close() })
	ctx := context.Background()

	cases := []struct {
		name string
		call func() error
		code int
	}{
		{"missing volume", func() error { return c.VolumeDelete(ctx, "vol-nope") }, rpc.CodeNotFound},
		{"bad access type", func() error { return c.AccessGroupGrant(ctx, "ag-x", "vol-x", 99) }, rpc.CodeInvalidArgument},
		{"oversized volume", func() error {
			_, err := c.VolumeCreate(ctx, "pool-01", "huge", 8<<40, data.ProvisionDefault)
			return err
		}, rpc.CodeNoSpace},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.call()
			var ce *rpc.CallError
			if !errors.As(err, &ce) {
				t.Fatalf("expected *rpc.CallError, got %v", err)
			}
			if ce.Code != tc.code {
				t.Errorf("code = %d, want %d", ce.Code, tc.code)
			}
		})
	}
}

func TestPluginDuplicateNameAcrossWire(t *testing.T) {
	c := startArray(t)
	t.Cleanup(func() { c.Close() })
	ctx := context.Background()

	if _, err := c.VolumeCreate(ctx, "pool-01", "db01", 1<<20, data.ProvisionDefault); err != nil {
		t.Fatalf("VolumeCreate() error: %v", err)
	}
	_, err := c.VolumeCreate(ctx, "pool-01", "db01", 1<<20, data.ProvisionDefault)
	var ce *rpc.CallError
	if !errors.As(err, &ce) || ce.Code != rpc.CodeExists {
		t.Fatalf("expected EXISTS, got %v", err)
	}
}
