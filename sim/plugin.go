package sim

import (
	"context"
	"errors"

	"github.com/sanlink/sanlink/rpc"
)

const (
	pluginDescription = "sanlink in-memory array simulator"
	pluginVersion     = "1.0.0"
)

var codeMap = map[string]int{
	ErrInvalid:  rpc.CodeInvalidArgument,
	ErrNotFound: rpc.CodeNotFound,
	ErrExists:   rpc.CodeExists,
	ErrNoSpace:  rpc.CodeNoSpace,
}

// wireErr maps simulator failures to wire codes before they leave the
// process.
func wireErr(err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		if code, ok := codeMap[se.Code]; ok {
			return &rpc.CallError{Code: code, Message: se.Message}
		}
	}
	return &rpc.CallError{Code: rpc.CodeInternal, Message: err.Error()}
}

func anyList[T any](list []T) []any {
	out := make([]any, len(list))
	for i, e := range list {
		out[i] = e
	}
	return out
}

// Bind registers the full plugin method set against s.
func (a *Array) Bind(s *rpc.Server) {
	s.Handle("startup", func(ctx context.Context, p rpc.Params) (any, error) {
		// The simulator accepts any uri/password pair.
		return nil, nil
	})

	s.Handle("plugin_info", func(ctx context.Context, p rpc.Params) (any, error) {
		return []any{pluginDescription, pluginVersion}, nil
	})

	s.Handle("time_out_set", func(ctx context.Context, p rpc.Params) (any, error) {
		ms, err := p.Uint64("ms")
		if err != nil {
			return nil, err
		}
		a.TimeoutSet(ms)
		return nil, nil
	})

	s.Handle("time_out_get", func(ctx context.Context, p rpc.Params) (any, error) {
		return a.TimeoutGet(), nil
	})

	s.Handle("systems", func(ctx context.Context, p rpc.Params) (any, error) {
		return anyList(a.Systems()), nil
	})

	s.Handle("pools", func(ctx context.Context, p rpc.Params) (any, error) {
		return anyList(a.Pools()), nil
	})

	s.Handle("capabilities", func(ctx context.Context, p rpc.Params) (any, error) {
		systemID, err := p.Str("system_id")
		if err != nil {
			return nil, err
		}
		caps, err := a.Capabilities(systemID)
		if err != nil {
			return nil, wireErr(err)
		}
		return caps, nil
	})

	s.Handle("volumes", func(ctx context.Context, p rpc.Params) (any, error) {
		return anyList(a.Volumes()), nil
	})

	s.Handle("volume_create", func(ctx context.Context, p rpc.Params) (any, error) {
		poolID, err := p.Str("pool_id")
		if err != nil {
			return nil, err
		}
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
		vol, err := a.VolumeCreate(poolID, name, size, prov)
		if err != nil {
			return nil, wireErr(err)
		}
		return vol, nil
	})

	s.Handle("volume_delete", func(ctx context.Context, p rpc.Params) (any, error) {
		volumeID, err := p.Str("volume_id")
		if err != nil {
			return nil, err
		}
		return nil, wireErr(a.VolumeDelete(volumeID))
	})

	s.Handle("volume_replicate", func(ctx context.Context, p rpc.Params) (any, error) {
		poolID, err := p.Str("pool_id")
		if err != nil {
			return nil, err
		}
		repType, err := p.Int64("rep_type")
		if err != nil {
			return nil, err
		}
		volumeID, err := p.Str("volume_id")
		if err != nil {
			return nil, err
		}
		name, err := p.Str("name")
		if err != nil {
			return nil, err
		}
		vol, err := a.VolumeReplicate(poolID, repType, volumeID, name)
		if err != nil {
			return nil, wireErr(err)
		}
		return vol, nil
	})

	s.Handle("volume_replicate_range", func(ctx context.Context, p rpc.Params) (any, error) {
		repType, err := p.Int64("rep_type")
		if err != nil {
			return nil, err
		}
		volumeID, err := p.Str("volume_id")
		if err != nil {
			return nil, err
		}
		destID, err := p.Str("dest_volume_id")
		if err != nil {
			return nil, err
		}
		ranges, err := p.BlockRanges("ranges")
		if err != nil {
			return nil, err
		}
		return nil, wireErr(a.VolumeReplicateRange(repType, volumeID, destID, ranges))
	})

	s.Handle("fs", func(ctx context.Context, p rpc.Params) (any, error) {
		return anyList(a.FileSystems()), nil
	})

	s.Handle("fs_create", func(ctx context.Context, p rpc.Params) (any, error) {
		poolID, err := p.Str("pool_id")
		if err != nil {
			return nil, err
		}
		name, err := p.Str("name")
		if err != nil {
			return nil, err
		}
		size, err := p.Uint64("size_bytes")
		if err != nil {
			return nil, err
		}
		fs, err := a.FsCreate(poolID, name, size)
		if err != nil {
			return nil, wireErr(err)
		}
		return fs, nil
	})

	s.Handle("fs_delete", func(ctx context.Context, p rpc.Params) (any, error) {
		fsID, err := p.Str("fs_id")
		if err != nil {
			return nil, err
		}
		return nil, wireErr(a.FsDelete(fsID))
	})

	s.Handle("snapshots", func(ctx context.Context, p rpc.Params) (any, error) {
		fsID, err := p.Str("fs_id")
		if err != nil {
			return nil, err
		}
		snaps, err := a.Snapshots(fsID)
		if err != nil {
			return nil, wireErr(err)
		}
		return anyList(snaps), nil
	})

	s.Handle("snapshot_create", func(ctx context.Context, p rpc.Params) (any, error) {
		fsID, err := p.Str("fs_id")
		if err != nil {
			return nil, err
		}
		name, err := p.Str("name")
		if err != nil {
			return nil, err
		}
		snap, err := a.SnapshotCreate(fsID, name)
		if err != nil {
			return nil, wireErr(err)
		}
		return snap, nil
	})

	s.Handle("snapshot_delete", func(ctx context.Context, p rpc.Params) (any, error) {
		fsID, err := p.Str("fs_id")
		if err != nil {
			return nil, err
		}
		snapshotID, err := p.Str("snapshot_id")
		if err != nil {
			return nil, err
		}
		return nil, wireErr(a.SnapshotDelete(fsID, snapshotID))
	})

	s.Handle("exports", func(ctx context.Context, p rpc.Params) (any, error) {
		return anyList(a.Exports()), nil
	})

	s.Handle("export_fs", func(ctx context.Context, p rpc.Params) (any, error) {
		fsID, err := p.Str("fs_id")
		if err != nil {
			return nil, err
		}
		exportPath, err := p.Str("export_path")
		if err != nil {
			return nil, err
		}
		root, err := p.StrList("root")
		if err != nil {
			return nil, err
		}
		rw, err := p.StrList("rw")
		if err != nil {
			return nil, err
		}
		ro, err := p.StrList("ro")
		if err != nil {
			return nil, err
		}
		anonUID, err := p.Uint64("anonuid")
		if err != nil {
			return nil, err
		}
		anonGID, err := p.Uint64("anongid")
		if err != nil {
			return nil, err
		}
		options, err := p.OptStr("options", "")
		if err != nil {
			return nil, err
		}
		exp, err := a.ExportFs(fsID, exportPath, root, rw, ro, anonUID, anonGID, options)
		if err != nil {
			return nil, wireErr(err)
		}
		return exp, nil
	})

	s.Handle("export_remove", func(ctx context.Context, p rpc.Params) (any, error) {
		exportID, err := p.Str("export_id")
		if err != nil {
			return nil, err
		}
		return nil, wireErr(a.ExportRemove(exportID))
	})

	s.Handle("access_groups", func(ctx context.Context, p rpc.Params) (any, error) {
		return anyList(a.AccessGroups()), nil
	})

	s.Handle("access_group_create", func(ctx context.Context, p rpc.Params) (any, error) {
		name, err := p.Str("name")
		if err != nil {
			return nil, err
		}
		initiatorID, err := p.Str("initiator_id")
		if err != nil {
			return nil, err
		}
		initiatorType, err := p.Int64("initiator_type")
		if err != nil {
			return nil, err
		}
		systemID, err := p.OptStr("system_id", "")
		if err != nil {
			return nil, err
		}
		group, err := a.AccessGroupCreate(name, initiatorID, initiatorType, systemID)
		if err != nil {
			return nil, wireErr(err)
		}
		return group, nil
	})

	s.Handle("access_group_delete", func(ctx context.Context, p rpc.Params) (any, error) {
		groupID, err := p.Str("group_id")
		if err != nil {
			return nil, err
		}
		return nil, wireErr(a.AccessGroupDelete(groupID))
	})

	s.Handle("access_group_add_initiator", func(ctx context.Context, p rpc.Params) (any, error) {
		groupID, err := p.Str("group_id")
		if err != nil {
			return nil, err
		}
		initiatorID, err := p.Str("initiator_id")
		if err != nil {
			return nil, err
		}
		initiatorType, err := p.Int64("initiator_type")
		if err != nil {
			return nil, err
		}
		return nil, wireErr(a.AccessGroupAddInitiator(groupID, initiatorID, initiatorType))
	})

	s.Handle("access_group_del_initiator", func(ctx context.Context, p rpc.Params) (any, error) {
		groupID, err := p.Str("group_id")
		if err != nil {
			return nil, err
		}
		initiatorID, err := p.Str("initiator_id")
		if err != nil {
			return nil, err
		}
		return nil, wireErr(a.AccessGroupDelInitiator(groupID, initiatorID))
	})

	s.Handle("access_group_grant", func(ctx context.Context, p rpc.Params) (any, error) {
		groupID, err := p.Str("group_id")
		if err != nil {
			return nil, err
		}
		volumeID, err := p.Str("volume_id")
		if err != nil {
			return nil, err
		}
		access, err := p.Int64("access")
		if err != nil {
			return nil, err
		}
		return nil, wireErr(a.AccessGroupGrant(groupID, volumeID, access))
	})

	s.Handle("access_group_revoke", func(ctx context.Context, p rpc.Params) (any, error) {
		groupID, err := p.Str("group_id")
		if err != nil {
			return nil, err
		}
		volumeID, err := p.Str("volume_id")
		if err != nil {
			return nil, err
		}
		return nil, wireErr(a.AccessGroupRevoke(groupID, volumeID))
	})

	s.Handle("volumes_accessible_by_access_group", func(ctx context.Context, p rpc.Params) (any, error) {
		groupID, err := p.Str("group_id")
		if err != nil {
			return nil, err
		}
		vols, err := a.VolumesAccessibleByAccessGroup(groupID)
		if err != nil {
			return nil, wireErr(err)
		}
		return anyList(vols), nil
	})

	s.Handle("access_groups_granted_to_volume", func(ctx context.Context, p rpc.Params) (any, error) {
		volumeID, err := p.Str("volume_id")
		if err != nil {
			return nil, err
		}
		groups, err := a.AccessGroupsGrantedToVolume(volumeID)
		if err != nil {
			return nil, wireErr(err)
		}
		return anyList(groups), nil
	})
}
