package config

const (
	// DefaultDatabasePath is the default path for the application database
	DefaultDatabasePath = "./librarian.db"

	// DefaultGeminiModel is the vision model used for cover extraction
	DefaultGeminiModel = "gemini-2.0-flash"
)
