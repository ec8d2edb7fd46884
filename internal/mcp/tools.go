package mcp

import "github.com/mark3labs/mcp-go/mcp"

var planeItems = mcp.Items(map[string]any{"type": "integer"})

var listToolDef = mcp.NewTool("structure_list",
	mcp.WithDescription("List dataset records in file order with their descriptor and plane count."),
	mcp.WithString("prefix", mcp.Description("Only records whose filename starts with this prefix")),
	mcp.WithNumber("limit", mcp.Description("Page size (default 50, max 500)")),
	mcp.WithNumber("offset", mcp.Description("Records to skip")),
)

var getToolDef = mcp.NewTool("structure_get",
	mcp.WithDescription("Fetch one record with the availability of each plane image."),
	mcp.WithString("filename", mcp.Required(), mcp.Description("Record identifier")),
)

var statusToolDef = mcp.NewTool("structure_status",
	mcp.WithDescription("Classify every record as All Available, Partial or Bad by checking its plane images on disk."),
	mcp.WithString("status", mcp.Description("Only return records with this label: all-available, partial or bad")),
)

var addToolDef = mcp.NewTool("structure_add",
	mcp.WithDescription("Append a new record. Fails with ALREADY_EXISTS when the filename is taken."),
	mcp.WithString("filename", mcp.Required(), mcp.Description("Record identifier")),
	mcp.WithString("smiles", mcp.Description("SMILES descriptor")),
	mcp.WithString("path", mcp.Description("Source structure file, stored as the record's path key")),
	mcp.WithArray("hkls",
		mcp.Description(`Plane observations: objects with "plane" [h,k,l], optional "d_spacing", "distance" list and "image"`),
		mcp.Items(map[string]any{"type": "object"}),
	),
)

var deleteToolDef = mcp.NewTool("structure_delete",
	mcp.WithDescription("Remove records by filename. Unknown names are reported, not fatal, unless nothing matched."),
	mcp.WithArray("filenames", mcp.Required(), mcp.Description("Records to remove"), mcp.Items(map[string]any{"type": "string"})),
)

var setSMILESToolDef = mcp.NewTool("structure_set_smiles",
	mcp.WithDescription("Replace the SMILES descriptor of a record."),
	mcp.WithString("filename", mcp.Required(), mcp.Description("Record identifier")),
	mcp.WithString("smiles", mcp.Required(), mcp.Description("New descriptor")),
)

var setInfoToolDef = mcp.NewTool("structure_set_info",
	mcp.WithDescription("Set an extra key on a record. Values that parse as JSON are stored as JSON, anything else as a string."),
	mcp.WithString("filename", mcp.Required(), mcp.Description("Record identifier")),
	mcp.WithString("key", mcp.Required(), mcp.Description("Key to set (filename, smiles and hkls are reserved)")),
	mcp.WithString("value", mcp.Required(), mcp.Description("Value to store")),
)

var addHKLToolDef = mcp.NewTool("hkl_add",
	mcp.WithDescription("Append a plane observation to a record."),
	mcp.WithString("filename", mcp.Required(), mcp.Description("Record identifier")),
	mcp.WithArray("plane", mcp.Required(), mcp.Description("Miller indices [h, k, l]"), planeItems),
	mcp.WithNumber("d_spacing", mcp.Description("Lattice spacing")),
	mcp.WithArray("distance", mcp.Description("Measured distances"), mcp.Items(map[string]any{"type": "number"})),
	mcp.WithString("image", mcp.Description("Image reference relative to the asset root")),
	mcp.WithBoolean("merge", mcp.Description("Fold into an existing observation of the same plane")),
)

var normalizeToolDef = mcp.NewTool("dataset_normalize",
	mcp.WithDescription("Merge duplicate planes in every record: distances are unioned in first-seen order and the first image wins."),
	mcp.WithBoolean("dry_run", mcp.Description("Report what would change without saving")),
)

var fixImagesToolDef = mcp.NewTool("dataset_fix_images",
	mcp.WithDescription("Rewrite plane image references to the canonical <images_dir>/<filename>/plane_h_k_l.<ext> form."),
	mcp.WithString("images_dir", mcp.Description("Images directory (default from config)")),
	mcp.WithString("image_ext", mcp.Description("Image extension (default from config)")),
	mcp.WithBoolean("only_missing", mcp.Description("Only fill planes without an image")),
	mcp.WithBoolean("dry_run", mcp.Description("Report what would change without saving")),
)

var stripExtToolDef = mcp.NewTool("dataset_strip_ext",
	mcp.WithDescription("Remove a trailing .cif extension from every filename."),
	mcp.WithBoolean("dry_run", mcp.Description("Report what would change without saving")),
)

var indexToolDef = mcp.NewTool("dataset_index",
	mcp.WithDescription("Rebuild the SQLite index of records, planes and availability."),
)

var inventoryToolDef = mcp.NewTool("dataset_inventory",
	mcp.WithDescription("Query the SQLite index built by dataset_index."),
	mcp.WithString("status", mcp.Description("Filter by label: all-available, partial or bad")),
	mcp.WithString("prefix", mcp.Description("Filter by filename prefix")),
	mcp.WithArray("plane", mcp.Description("Only records observing this plane [h, k, l]"), planeItems),
	mcp.WithNumber("limit", mcp.Description("Page size (default 100, max 500)")),
	mcp.WithNumber("offset", mcp.Description("Rows to skip")),
)

var buildToolDef = mcp.NewTool("report_build",
	mcp.WithDescription("Render the HTML status report to a file and record the run."),
	mcp.WithString("output_path", mcp.Description("Destination .html file (default from config)")),
)

var historyToolDef = mcp.NewTool("report_history",
	mcp.WithDescription("List recorded report builds, newest first."),
	mcp.WithNumber("limit", mcp.Description("Page size (default 20, max 200)")),
	mcp.WithNumber("offset", mcp.Description("Rows to skip")),
)
