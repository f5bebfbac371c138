package ir

// Version constants for the compiled IR and the compiler.
const (
	// IRVersion is the compiled select IR schema version.
	IRVersion = "1"

	// CompilerVersion is the selectir compiler version.
	CompilerVersion = "0.1.0"
)
