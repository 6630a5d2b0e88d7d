package gateway

import (
	"context"
	"errors"
	"net/http"

	"github.com/sanlink/sanlink/data"
	"github.com/sanlink/sanlink/rpc"

	"github.com/labstack/echo/v5"
)

// Backend is the slice of the plugin client the gateway proxies to.
type Backend interface {
	Systems(ctx context.Context) ([]*data.System, error)
	Pools(ctx context.Context) ([]*data.Pool, error)
	Volumes(ctx context.Context) ([]*data.Volume, error)
	FileSystems(ctx context.Context) ([]*data.FileSystem, error)
	Exports(ctx context.Context) ([]*data.NfsExport, error)
	AccessGroups(ctx context.Context) ([]*data.AccessGroup, error)
	Capabilities(ctx context.Context, systemID string) (*data.Capabilities, error)
	VolumeCreate(ctx context.Context, poolID, name string, sizeBytes uint64, provisioning int64) (*data.Volume, error)
	VolumeDelete(ctx context.Context, volumeID string) error
	FsCreate(ctx context.Context, poolID, name string, sizeBytes uint64) (*data.FileSystem, error)
	AccessGroupCreate(ctx context.Context, name, initiatorID string, initiatorType int64, systemID string) (*data.AccessGroup, error)
}

type Handler struct {
	Plugin Backend
}

var codeStatus = map[int]int{
	rpc.CodeInvalidArgument: http.StatusBadRequest,
	rpc.CodeUnknownMethod:   http.StatusNotImplemented,
	rpc.CodeUnknownType:     http.StatusBadGateway,
	rpc.CodeNotFound:        http.StatusNotFound,
	rpc.CodeExists:          http.StatusConflict,
	rpc.CodeNoSpace:         http.StatusInsufficientStorage,
}

var codeName = map[int]string{
	rpc.CodeInvalidArgument: "INVALID_ARGUMENT",
	rpc.CodeUnknownMethod:   "UNKNOWN_METHOD",
	rpc.CodeUnknownType:     "UNKNOWN_TYPE",
	rpc.CodeNotFound:        "NOT_FOUND",
	rpc.CodeExists:          "ALREADY_EXISTS",
	rpc.CodeNoSpace:         "NO_SPACE",
}

// PluginError translates a plugin call failure into an HTTP error body.
func PluginError(c *echo.Context, err error) error {
	var ce *rpc.CallError
	if errors.As(err, &ce) {
		status, found := codeStatus[ce.Code]
		if !found {
			status = http.StatusInternalServerError
		}
		name, found := codeName[ce.Code]
		if !found {
			name = "INTERNAL_ERROR"
		}
		return c.JSON(status, ErrorResponse{Error: ce.Message, Code: name})
	}
	return c.JSON(http.StatusBadGateway, ErrorResponse{Error: err.Error(), Code: "PLUGIN_UNAVAILABLE"})
}

// listResponse encodes entities into their tagged document form.
func listResponse[T data.Entity](items []T) (ListResponse, error) {
	out := make([]any, len(items))
	for i, item := range items {
		enc, err := data.Encode(item)
		if err != nil {
			return ListResponse{}, err
		}
		out[i] = enc
	}
	return ListResponse{Items: out, Total: len(out)}, nil
}

func respondList[T data.Entity](c *echo.Context, items []T, err error) error {
	if err != nil {
		return PluginError(c, err)
	}
	resp, err := listResponse(items)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "ENCODE_FAILED"})
	}
	return c.JSON(http.StatusOK, resp)
}

func respondEntity(c *echo.Context, status int, e data.Entity) error {
	enc, err := data.Encode(e)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "ENCODE_FAILED"})
	}
	return c.JSON(status, enc)
}

// --- Read endpoints ---

func (h *Handler) ListSystems(c *echo.Context) error {
	systems, err := h.Plugin.Systems(c.Request().Context())
	return respondList(c, systems, err)
}

func (h *Handler) ListPools(c *echo.Context) error {
	pools, err := h.Plugin.Pools(c.Request().Context())
	return respondList(c, pools, err)
}

func (h *Handler) ListVolumes(c *echo.Context) error {
	vols, err := h.Plugin.Volumes(c.Request().Context())
	return respondList(c, vols, err)
}

func (h *Handler) ListFileSystems(c *echo.Context) error {
	filesystems, err := h.Plugin.FileSystems(c.Request().Context())
	return respondList(c, filesystems, err)
}

func (h *Handler) ListExports(c *echo.Context) error {
	exports, err := h.Plugin.Exports(c.Request().Context())
	return respondList(c, exports, err)
}

func (h *Handler) ListAccessGroups(c *echo.Context) error {
	groups, err := h.Plugin.AccessGroups(c.Request().Context())
	return respondList(c, groups, err)
}

func (h *Handler) SystemCapabilities(c *echo.Context) error {
	caps, err := h.Plugin.Capabilities(c.Request().Context(), c.Param("id"))
	if err != nil {
		return PluginError(c, err)
	}
	return respondEntity(c, http.StatusOK, caps)
}

// --- Write endpoints ---

func (h *Handler) CreateVolume(c *echo.Context) error {
	var req VolumeCreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: "BAD_REQUEST"})
	}
	if req.PoolID == "" || req.Name == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "pool_id and name are required", Code: "BAD_REQUEST"})
	}

	provisioning := data.ProvisionDefault
	if req.Provisioning != "" {
		provisioning = data.ProvisionFromString(req.Provisioning)
	}

	vol, err := h.Plugin.VolumeCreate(c.Request().Context(), req.PoolID, req.Name, req.SizeBytes, provisioning)
	if err != nil {
		return PluginError(c, err)
	}
	return respondEntity(c, http.StatusCreated, vol)
}

func (h *Handler) DeleteVolume(c *echo.Context) error {
	if err := h.Plugin.VolumeDelete(c.Request().Context(), c.Param("id")); err != nil {
		return PluginError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) CreateFileSystem(c *echo.Context) error {
	var req FsCreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: "BAD_REQUEST"})
	}
	if req.PoolID == "" || req.Name == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "pool_id and name are required", Code: "BAD_REQUEST"})
	}

	fs, err := h.Plugin.FsCreate(c.Request().Context(), req.PoolID, req.Name, req.SizeBytes)
	if err != nil {
		return PluginError(c, err)
	}
	return respondEntity(c, http.StatusCreated, fs)
}

func (h *Handler) CreateAccessGroup(c *echo.Context) error {
	var req AccessGroupCreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: "BAD_REQUEST"})
	}
	if req.Name == "" || req.InitiatorID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "name and initiator_id are required", Code: "BAD_REQUEST"})
	}

	group, err := h.Plugin.AccessGroupCreate(c.Request().Context(), req.Name, req.InitiatorID, req.InitiatorType, req.SystemID)
	if err != nil {
		return PluginError(c, err)
	}
	return respondEntity(c, http.StatusCreated, group)
}
