package ir

// Version constants for the query language and engine.
const (
	// LanguageVersion is the statement grammar version.
	LanguageVersion = "1"

	// EngineVersion is the equery engine version.
	EngineVersion = "0.1.0"
)
