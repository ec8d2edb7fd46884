package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/gammasurf/gamma/internal/assets"
	"github.com/gammasurf/gamma/internal/config"
	"github.com/gammasurf/gamma/internal/dataset"
	"github.com/gammasurf/gamma/internal/errors"
	"github.com/gammasurf/gamma/internal/ops"
	"github.com/gammasurf/gamma/internal/structure"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	store  dataset.Store
	db     *sql.DB
	cfg    *config.Config
	oracle structure.Oracle
	logger *slog.Logger
}

// NewHandlers creates a new Handlers instance. Asset references resolve
// against the configured asset root.
func NewHandlers(store dataset.Store, database *sql.DB, cfg *config.Config, logger *slog.Logger) *Handlers {
	return &Handlers{
		store:  store,
		db:     database,
		cfg:    cfg,
		oracle: assets.NewFS(cfg.ResolveAssetRoot()),
		logger: logger,
	}
}

// Request types for each tool

// ListRequest represents the arguments for structure_list.
type ListRequest struct {
	Prefix string `json:"prefix,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// GetRequest represents the arguments for structure_get.
type GetRequest struct {
	Filename string `json:"filename"`
}

// StatusRequest represents the arguments for structure_status.
type StatusRequest struct {
	Status string `json:"status,omitempty"`
}

// AddRequest represents the arguments for structure_add.
type AddRequest struct {
	Filename string            `json:"filename"`
	SMILES   string            `json:"smiles,omitempty"`
	Path     string            `json:"path,omitempty"`
	HKLs     []structure.Plane `json:"hkls,omitempty"`
}

// DeleteRequest represents the arguments for structure_delete.
type DeleteRequest struct {
	Filenames []string `json:"filenames"`
}

// SetSMILESRequest represents the arguments for structure_set_smiles.
type SetSMILESRequest struct {
	Filename string `json:"filename"`
	SMILES   string `json:"smiles"`
}

// SetInfoRequest represents the arguments for structure_set_info.
type SetInfoRequest struct {
	Filename string `json:"filename"`
	Key      string `json:"key"`
	Value    string `json:"value"`
}

// AddHKLRequest represents the arguments for hkl_add.
type AddHKLRequest struct {
	Filename string              `json:"filename"`
	Plane    json.RawMessage     `json:"plane"`
	DSpacing *structure.DSpacing `json:"d_spacing,omitempty"`
	Distance []float64           `json:"distance,omitempty"`
	Image    string              `json:"image,omitempty"`
	Merge    bool                `json:"merge,omitempty"`
}

// DryRunRequest represents the arguments for dataset_normalize and dataset_strip_ext.
type DryRunRequest struct {
	DryRun bool `json:"dry_run,omitempty"`
}

// FixImagesRequest represents the arguments for dataset_fix_images.
type FixImagesRequest struct {
	ImagesDir   string `json:"images_dir,omitempty"`
	ImageExt    string `json:"image_ext,omitempty"`
	OnlyMissing bool   `json:"only_missing,omitempty"`
	DryRun      bool   `json:"dry_run,omitempty"`
}

// InventoryRequest represents the arguments for dataset_inventory.
type InventoryRequest struct {
	Status string          `json:"status,omitempty"`
	Prefix string          `json:"prefix,omitempty"`
	Plane  json.RawMessage `json:"plane,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// BuildRequest represents the arguments for report_build.
type BuildRequest struct {
	OutputPath string `json:"output_path,omitempty"`
}

// HistoryRequest represents the arguments for report_history.
type HistoryRequest struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// Handler implementations

// HandleList handles the structure_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.List(h.store, ops.ListInput{
		Prefix: input.Prefix,
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleGet handles the structure_get tool call.
func (h *Handlers) HandleGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[GetRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Get(h.store, h.oracle, ops.GetInput{Filename: input.Filename})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleStatus handles the structure_status tool call.
func (h *Handlers) HandleStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[StatusRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Status(h.store, h.oracle, ops.StatusInput{Status: input.Status})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleAdd handles the structure_add tool call.
func (h *Handlers) HandleAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[AddRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Add(h.store, ops.AddInput{
		Filename: input.Filename,
		SMILES:   input.SMILES,
		Path:     input.Path,
		HKLs:     input.HKLs,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleDelete handles the structure_delete tool call.
func (h *Handlers) HandleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DeleteRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Delete(h.store, ops.DeleteInput{Filenames: input.Filenames})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleSetSMILES handles the structure_set_smiles tool call.
func (h *Handlers) HandleSetSMILES(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SetSMILESRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.UpdateSMILES(h.store, ops.UpdateSMILESInput{
		Filename: input.Filename,
		SMILES:   input.SMILES,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleSetInfo handles the structure_set_info tool call.
func (h *Handlers) HandleSetInfo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SetInfoRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.SetInfo(h.store, ops.SetInfoInput{
		Filename: input.Filename,
		Key:      input.Key,
		Value:    input.Value,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleAddHKL handles the hkl_add tool call.
func (h *Handlers) HandleAddHKL(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[AddHKLRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	plane, err := decodePlane(input.Plane)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if plane == nil {
		return errorResult(errors.NewInvalidRequest("plane is required")), nil
	}

	result, err := ops.AddHKL(h.store, ops.AddHKLInput{
		Filename: input.Filename,
		Plane:    *plane,
		DSpacing: input.DSpacing,
		Distance: input.Distance,
		Image:    input.Image,
		Merge:    input.Merge,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleNormalize handles the dataset_normalize tool call.
func (h *Handlers) HandleNormalize(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DryRunRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Normalize(h.store, ops.NormalizeInput{DryRun: input.DryRun})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleFixImages handles the dataset_fix_images tool call.
func (h *Handlers) HandleFixImages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[FixImagesRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.FixImagePaths(h.store, h.cfg, ops.FixImagePathsInput{
		ImagesDir:   input.ImagesDir,
		ImageExt:    input.ImageExt,
		OnlyMissing: input.OnlyMissing,
		DryRun:      input.DryRun,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleStripExt handles the dataset_strip_ext tool call.
func (h *Handlers) HandleStripExt(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DryRunRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.StripExtensions(h.store, ops.StripExtensionsInput{DryRun: input.DryRun})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleIndex handles the dataset_index tool call.
func (h *Handlers) HandleIndex(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.Index(ctx, h.store, h.oracle, h.db, ops.IndexInput{})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleInventory handles the dataset_inventory tool call.
func (h *Handlers) HandleInventory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[InventoryRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	plane, err := decodePlane(input.Plane)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Inventory(h.db, ops.InventoryInput{
		Status: input.Status,
		Prefix: input.Prefix,
		Plane:  plane,
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleBuild handles the report_build tool call.
func (h *Handlers) HandleBuild(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[BuildRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Build(ctx, h.store, h.oracle, h.db, h.cfg, ops.BuildInput{
		OutputPath:  input.OutputPath,
		DatasetPath: h.cfg.Dataset,
		Logger:      h.logger,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleHistory handles the report_history tool call.
func (h *Handlers) HandleHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[HistoryRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.History(h.db, ops.HistoryInput{
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are not exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var gErr *errors.GammaError
	if stderrors.As(err, &gErr) {
		message := gErr.Message
		// Keep the context added by wrappers, e.g. "files[2]: ...".
		if full := err.Error(); full != gErr.Error() {
			message = strings.TrimSuffix(full, gErr.Error()) + gErr.Message
		}
		errorObj := map[string]any{
			"code":    gErr.Code,
			"message": message,
			"status":  gErr.Status,
		}
		if gErr.Code != errors.ErrInternal && gErr.Details != nil {
			errorObj["details"] = gErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    string(errors.ErrInternal),
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
