package config

import "errors"

// Error definitions for config package.
var (
	// Configuration file errors.
	ErrConfigFileParse = errors.New("failed to parse config file")
	// Configuration validation errors.
	ErrSourceEmpty        = errors.New("source cannot be empty")
	ErrOutputEmpty        = errors.New("output cannot be empty")
	ErrInvalidDuplicates  = errors.New("duplicates must be \"keep\" or \"error\"")
	ErrInvalidMaxFileSize = errors.New("max_file_size cannot be negative")
)
