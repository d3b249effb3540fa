package export

import "errors"

// Error constants
var (
	ErrExport      = errors.New("parquet export failed")
	ErrCompression = errors.New("unsupported compression codec")
)
