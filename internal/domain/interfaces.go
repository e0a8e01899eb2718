package domain

import "context"

// Extractor produces raw biomarker readings from one uploaded source file.
// Implementations live outside the core engine; the engine only sees the
// resulting name/value pairs.
type Extractor interface {
	// Extract parses the source file and returns the raw readings found in
	// it. A file that parses but contains no recognizable readings returns
	// an empty slice and no error.
	Extract(ctx context.Context, src SourceFile) ([]BiomarkerReading, error)
}

// ReferenceLookup resolves a biomarker identifier to its reference range.
type ReferenceLookup interface {
	// Lookup returns the reference range for the given raw label and sex.
	// Returns ErrRangeNotFound for unrecognized biomarkers; callers must
	// treat that as Status UNKNOWN, never as a request failure.
	Lookup(name string, sex Sex) (*ReferenceRange, error)

	// Canonicalize maps a raw label to its canonical biomarker identifier.
	Canonicalize(name string) (string, bool)
}

// ConfigManager provides access to application configuration
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetUploadConfig() *UploadConfig
	Validate() error
}
