package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldError       = "error"
	FieldAccountID   = "account_id"
	FieldAccountName = "account_name"
	FieldCategoryID  = "category_id"
	FieldCategory    = "category"
	FieldSnapshotID  = "snapshot_id"
	FieldAmount      = "amount"
	FieldBalance     = "balance"
	FieldDate        = "date"
	FieldImportRun   = "import_run"
	FieldRowLine     = "row_line"
	FieldInserted    = "inserted"
	FieldSkipped     = "skipped"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentStorage  = "storage"
	ComponentSnapshot = "snapshot"
	ComponentImport   = "import"
	ComponentSeed     = "seed"
	ComponentCache    = "cache"
)
