package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/sanlink/sanlink/data"
)

// Client talks to one plugin over a unix socket. A client serializes its
// calls: one request is in flight at a time, matching the plugin's
// per-connection dispatch.
type Client struct {
	mu      sync.Mutex
	conn    net.Conn
	nextID  uint64
	timeout time.Duration
}

// Connect dials the plugin socket. timeout bounds the dial and is the
// default per-call deadline when the caller's context has none.
func Connect(socket string, timeout time.Duration) (*Client, error) {
	conn, err := net.DialTimeout("unix", socket, timeout)
	if err != nil {
		return nil, fmt.Errorf("rpc: connect %s: %w", socket, err)
	}
	return &Client{conn: conn, timeout: timeout}, nil
}

// Close tells the plugin this session is done, then drops the connection.
func (c *Client) Close() error {
	_, _ = c.call(context.Background(), "shutdown", nil)
	return c.conn.Close()
}

func (c *Client) call(ctx context.Context, method string, params map[string]any) (any, error) {
	tree, err := data.Encode(params)
	if err != nil {
		return nil, err
	}
	var encoded map[string]any
	if tree != nil {
		encoded = tree.(map[string]any)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	req := Request{Method: method, Params: encoded, ID: c.nextID}
	payload, err := json.Marshal(&req)
	if err != nil {
		return nil, fmt.Errorf("rpc: marshal request: %w", err)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.timeout)
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("rpc: set deadline: %w", err)
	}

	if err := writeFrame(c.conn, payload); err != nil {
		return nil, err
	}
	raw, err := readFrame(c.conn)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var resp Response
	if err := dec.Decode(&resp); err != nil {
		return nil, fmt.Errorf("rpc: invalid response envelope: %w", err)
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	if resp.ID != req.ID {
		return nil, fmt.Errorf("rpc: response id %d does not match request id %d", resp.ID, req.ID)
	}
	return data.Decode(resp.Result)
}

// entityList narrows a decoded sequence to one entity type.
func entityList[T data.Entity](v any) ([]T, error) {
	if v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("rpc: expected entity list, got %T", v)
	}
	out := make([]T, len(list))
	for i, e := range list {
		t, ok := e.(T)
		if !ok {
			return nil, fmt.Errorf("rpc: list element %d: expected %T, got %T", i, out[i], e)
		}
		out[i] = t
	}
	return out, nil
}

// Startup performs the session handshake. Plugins that need credentials
// take them here; password may be empty.
func (c *Client) Startup(ctx context.Context, uri, password string) error {
	_, err := c.call(ctx, "startup", map[string]any{"uri": uri, "password": password})
	return err
}

// PluginInfo returns the plugin's description and version.
func (c *Client) PluginInfo(ctx context.Context) (string, string, error) {
	v, err := c.call(ctx, "plugin_info", nil)
	if err != nil {
		return "", "", err
	}
	info, ok := v.([]any)
	if !ok || len(info) != 2 {
		return "", "", fmt.Errorf("rpc: unexpected plugin_info result %v", v)
	}
	desc, dok := info[0].(string)
	version, vok := info[1].(string)
	if !dok || !vok {
		return "", "", fmt.Errorf("rpc: unexpected plugin_info result %v", v)
	}
	return desc, version, nil
}

// TimeoutSet tells the plugin how long its array operations may take, in
// milliseconds.
func (c *Client) TimeoutSet(ctx context.Context, ms uint64) error {
	_, err := c.call(ctx, "time_out_set", map[string]any{"ms": ms})
	return err
}

// TimeoutGet reports the plugin's current operation timeout in milliseconds.
func (c *Client) TimeoutGet(ctx context.Context) (uint64, error) {
	v, err := c.call(ctx, "time_out_get", nil)
	if err != nil {
		return 0, err
	}
	ms, ok := asUint64(v)
	if !ok {
		return 0, fmt.Errorf("rpc: unexpected time_out_get result %v", v)
	}
	return ms, nil
}

func (c *Client) Systems(ctx context.Context) ([]*data.System, error) {
	v, err := c.call(ctx, "systems", nil)
	if err != nil {
		return nil, err
	}
	return entityList[*data.System](v)
}

func (c *Client) Pools(ctx context.Context) ([]*data.Pool, error) {
	v, err := c.call(ctx, "pools", nil)
	if err != nil {
		return nil, err
	}
	return entityList[*data.Pool](v)
}

func (c *Client) Volumes(ctx context.Context) ([]*data.Volume, error) {
	v, err := c.call(ctx, "volumes", nil)
	if err != nil {
		return nil, err
	}
	return entityList[*data.Volume](v)
}

func (c *Client) FileSystems(ctx context.Context) ([]*data.FileSystem, error) {
	v, err := c.call(ctx, "fs", nil)
	if err != nil {
		return nil, err
	}
	return entityList[*data.FileSystem](v)
}

func (c *Client) Snapshots(ctx context.Context, fsID string) ([]*data.Snapshot, error) {
	v, err := c.call(ctx, "snapshots", map[string]any{"fs_id": fsID})
	if err != nil {
		return nil, err
	}
	return entityList[*data.Snapshot](v)
}

func (c *Client) Exports(ctx context.Context) ([]*data.NfsExport, error) {
	v, err := c.call(ctx, "exports", nil)
	if err != nil {
		return nil, err
	}
	return entityList[*data.NfsExport](v)
}

func (c *Client) AccessGroups(ctx context.Context) ([]*data.AccessGroup, error) {
	v, err := c.call(ctx, "access_groups", nil)
	if err != nil {
		return nil, err
	}
	return entityList[*data.AccessGroup](v)
}

// Capabilities reports what the array behind systemID can do.
func (c *Client) Capabilities(ctx context.Context, systemID string) (*data.Capabilities, error) {
	v, err := c.call(ctx, "capabilities", map[string]any{"system_id": systemID})
	if err != nil {
		return nil, err
	}
	caps, ok := v.(*data.Capabilities)
	if !ok {
		return nil, fmt.Errorf("rpc: expected Capabilities, got %T", v)
	}
	return caps, nil
}

func (c *Client) VolumeCreate(ctx context.Context, poolID, name string, sizeBytes uint64, provisioning int64) (*data.Volume, error) {
	v, err := c.call(ctx, "volume_create", map[string]any{
		"pool_id":      poolID,
		"name":         name,
		"size_bytes":   sizeBytes,
		"provisioning": provisioning,
	})
	if err != nil {
		return nil, err
	}
	vol, ok := v.(*data.Volume)
	if !ok {
		return nil, fmt.Errorf("rpc: expected Volume, got %T", v)
	}
	return vol, nil
}

func (c *Client) VolumeDelete(ctx context.Context, volumeID string) error {
	_, err := c.call(ctx, "volume_delete", map[string]any{"volume_id": volumeID})
	return err
}

// VolumeReplicate copies or clones src into a new volume named name.
func (c *Client) VolumeReplicate(ctx context.Context, poolID string, repType int64, srcVolumeID, name string) (*data.Volume, error) {
	v, err := c.call(ctx, "volume_replicate", map[string]any{
		"pool_id":   poolID,
		"rep_type":  repType,
		"volume_id": srcVolumeID,
		"name":      name,
	})
	if err != nil {
		return nil, err
	}
	vol, ok := v.(*data.Volume)
	if !ok {
		return nil, fmt.Errorf("rpc: expected Volume, got %T", v)
	}
	return vol, nil
}

// VolumeReplicateRange replicates specific block spans between volumes.
func (c *Client) VolumeReplicateRange(ctx context.Context, repType int64, srcVolumeID, destVolumeID string, ranges []*data.BlockRange) error {
	list := make([]any, len(ranges))
	for i, r := range ranges {
		list[i] = r
	}
	_, err := c.call(ctx, "volume_replicate_range", map[string]any{
		"rep_type":       repType,
		"volume_id":      srcVolumeID,
		"dest_volume_id": destVolumeID,
		"ranges":         list,
	})
	return err
}

func (c *Client) FsCreate(ctx context.Context, poolID, name string, sizeBytes uint64) (*data.FileSystem, error) {
	v, err := c.call(ctx, "fs_create", map[string]any{
		"pool_id":    poolID,
		"name":       name,
		"size_bytes": sizeBytes,
	})
	if err != nil {
		return nil, err
	}
	fs, ok := v.(*data.FileSystem)
	if !ok {
		return nil, fmt.Errorf("rpc: expected FileSystem, got %T", v)
	}
	return fs, nil
}

func (c *Client) SnapshotCreate(ctx context.Context, fsID, name string) (*data.Snapshot, error) {
	v, err := c.call(ctx, "snapshot_create", map[string]any{"fs_id": fsID, "name": name})
	if err != nil {
		return nil, err
	}
	snap, ok := v.(*data.Snapshot)
	if !ok {
		return nil, fmt.Errorf("rpc: expected Snapshot, got %T", v)
	}
	return snap, nil
}

func (c *Client) ExportFs(ctx context.Context, fsID, exportPath string, root, rw, ro []string, anonUID, anonGID uint64, options string) (*data.NfsExport, error) {
	v, err := c.call(ctx, "export_fs", map[string]any{
		"fs_id":       fsID,
		"export_path": exportPath,
		"root":        root,
		"rw":          rw,
		"ro":          ro,
		"anonuid":     anonUID,
		"anongid":     anonGID,
		"options":     options,
	})
	if err != nil {
		return nil, err
	}
	exp, ok := v.(*data.NfsExport)
	if !ok {
		return nil, fmt.Errorf("rpc: expected NfsExport, got %T", v)
	}
	return exp, nil
}

func (c *Client) AccessGroupCreate(ctx context.Context, name, initiatorID string, initiatorType int64, systemID string) (*data.AccessGroup, error) {
	v, err := c.call(ctx, "access_group_create", map[string]any{
		"name":           name,
		"initiator_id":   initiatorID,
		"initiator_type": initiatorType,
		"system_id":      systemID,
	})
	if err != nil {
		return nil, err
	}
	group, ok := v.(*data.AccessGroup)
	if !ok {
		return nil, fmt.Errorf("rpc: expected AccessGroup, got %T", v)
	}
	return group, nil
}

func (c *Client) AccessGroupGrant(ctx context.Context, groupID, volumeID string, access int64) error {
	_, err := c.call(ctx, "access_group_grant", map[string]any{
		"group_id":  groupID,
		"volume_id": volumeID,
		"access":    access,
	})
	return err
}

func (c *Client) AccessGroupRevoke(ctx context.Context, groupID, volumeID string) error {
	_, err := c.call(ctx, "access_group_revoke", map[string]any{
		"group_id":  groupID,
		"volume_id": volumeID,
	})
	return err
}
