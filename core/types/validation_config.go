package types

// ValidationConfig bounds the argument schemas a registry may declare and
// how many compiled validators a Validator keeps.
type ValidationConfig struct {
	MaxSchemaBytes int  // Encoded JSON Schema size of one argument
	MaxSchemaDepth int  // Nesting of element schemas
	CacheSize      int  // Compiled validators kept; 0 compiles on every call
	StrictFormats  bool // Format mismatches fail validation instead of being ignored
}

// DefaultValidationConfig returns the limits used by the built-in catalog.
func DefaultValidationConfig() *ValidationConfig {
	return &ValidationConfig{
		MaxSchemaBytes: 16 << 10,
		MaxSchemaDepth: 8,
		CacheSize:      128,
		StrictFormats:  true,
	}
}
