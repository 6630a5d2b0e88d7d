package rpc

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sanlink/sanlink/data"

	"github.com/rs/zerolog"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

// startTestPlugin serves a minimal handler set on a throwaway unix socket
// and returns a connected client.
func startTestPlugin(t *testing.T, configure func(*Server)) *Client {
	t.Helper()

	s := NewServer(false)
	configure(s)

	socket := filepath.Join(t.TempDir(), "plugin.sock")
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

	c, err := Connect(socket, 5*time.Second)
	if err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	t.Cleanup(func() { c.conn.Close() })
	return c
}

func TestClientServerEntities(t *testing.T) {
	pool := data.NewPool("pool-001", "tier1", 1000, 500, "sys-01")
	caps := data.NewCapabilities()
	caps.EnableAll()

	c := startTestPlugin(t, func(s *Server) {
		s.Handle("pools", func(ctx context.Context, p Params) (any, error) {
			return []any{pool}, nil
		})
		s.Handle("capabilities", func(ctx context.Context, p Params) (any, error) {
			if _, err := p.Str("system_id"); err != nil {
				return nil, err
			}
			return caps, nil
		})
	})

	ctx := context.Background()

	got, err := c.Pools(ctx)
	if err != nil {
		t.Fatalf("Pools() error: %v", err)
	}
	if len(got) != 1 || *got[0] != *pool {
		t.Errorf("Pools() = %+v, want %+v", got, pool)
	}

	gotCaps, err := c.Capabilities(ctx, "sys-01")
	if err != nil {
		t.Fatalf("Capabilities() error: %v", err)
	}
	if gotCaps.Get(data.CapVolumes) != data.CapSupported {
		t.Error("Capabilities() lost the enabled slots in transit")
	}
}

func TestClientParamsCrossTheWire(t *testing.T) {
	c := startTestPlugin(t, func(s *Server) {
		s.Handle("volume_create", func(ctx context.Context, p Params) (any, error) {
			name, err := p.Str("name")
			if err != nil {
				return nil, err
			}
			size, err := p.Uint64("size_bytes")
			if err != nil {
				return nil, err
			}
			prov, err := p.Int64("provisioning")
			if err != nil {
				return nil, err
			}
			if prov != data.ProvisionThin {
				t.Errorf("provisioning = %d, want %d", prov, data.ProvisionThin)
			}
			return data.NewVolume("vol-001", name, "", 512, size/512, data.VolumeStatusOK, "sys-01"), nil
		})
		s.Handle("volume_replicate_range", func(ctx context.Context, p Params) (any, error) {
			ranges, err := p.BlockRanges("ranges")
			if err != nil {
				return nil, err
			}
			if len(ranges) != 2 || ranges[1].BlockCount != 64 {
				t.Errorf("ranges arrived mangled: %+v", ranges)
			}
			return nil, nil
		})
	})

	ctx := context.Background()

	vol, err := c.VolumeCreate(ctx, "pool-001", "db01", 1<<20, data.ProvisionThin)
	if err != nil {
		t.Fatalf("VolumeCreate() error: %v", err)
	}
	if vol.Name != "db01" || vol.SizeBytes() != 1<<20 {
		t.Errorf("VolumeCreate() = %+v", vol)
	}

	err = c.VolumeReplicateRange(ctx, data.ReplicateCopy, "vol-001", "vol-002", []*data.BlockRange{
		data.NewBlockRange(0, 0, 128),
		data.NewBlockRange(256, 512, 64),
	})
	if err != nil {
		t.Fatalf("VolumeReplicateRange() error: %v", err)
	}
}

func TestUnknownMethod(t *testing.T) {
	c := startTestPlugin(t, func(s *Server) {})

	_, err := c.call(context.Background(), "no_such_method", nil)
	ce, ok := err.(*CallError)
	if !ok {
		t.Fatalf("expected *CallError, got %v", err)
	}
	if ce.Code != CodeUnknownMethod {
		t.Errorf("code = %d, want %d", ce.Code, CodeUnknownMethod)
	}
}

func TestHandlerErrorCodes(t *testing.T) {
	c := startTestPlugin(t, func(s *Server) {
		s.Handle("boom", func(ctx context.Context, p Params) (any, error) {
			return nil, &CallError{Code: CodeNotFound, Message: "volume missing"}
		})
	})

	_, err := c.call(context.Background(), "boom", nil)
	ce, ok := err.(*CallError)
	if !ok {
		t.Fatalf("expected *CallError, got %v", err)
	}
	if ce.Code != CodeNotFound || ce.Message != "volume missing" {
		t.Errorf("unexpected error: %+v", ce)
	}
}

func TestTaggedParamsRejected(t *testing.T) {
	c := startTestPlugin(t, func(s *Server) {
		s.Handle("noop", func(ctx context.Context, p Params) (any, error) {
			return nil, nil
		})
	})

	// Hand-built frame whose params object is itself a tagged entity
	// mapping: it decodes to an entity, not a mapping, and the server
	// must refuse it instead of dying.
	raw := []byte(`{"method":"noop","params":{"class":"System","id":"a","name":"b"},"id":99}`)
	if err := writeFrame(c.conn, raw); err != nil {
		t.Fatalf("writeFrame() error: %v", err)
	}
	payload, err := readFrame(c.conn)
	if err != nil {
		t.Fatalf("readFrame() error: %v", err)
	}
	var resp Response
	if err := json.Unmarshal(payload, &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != CodeInvalidArgument {
		t.Fatalf("error = %+v, want code %d", resp.Error, CodeInvalidArgument)
	}

	// The connection stays usable after the rejected frame.
	if _, err := c.call(context.Background(), "noop", nil); err != nil {
		t.Errorf("call after rejected frame: %v", err)
	}
}

func TestShutdownClosesConnection(t *testing.T) {
	c := startTestPlugin(t, func(s *Server) {})

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	// The server side hangs up after shutdown; further calls fail fast.
	if _, err := c.call(context.Background(), "systems", nil); err == nil {
		t.Error("expected error calling after shutdown")
	}
}

func TestDuplicateHandlerPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	s := NewServer(false)
	h := func(ctx context.Context, p Params) (any, error) { return nil, nil }
	s.Handle("x", h)
	s.Handle("x", h)
}
