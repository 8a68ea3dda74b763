package main

// CLIResult is the top-level JSON envelope for every command.
type CLIResult struct {
	Command string `json:"command"`
	Results any    `json:"results"`
	Error   string `json:"error,omitempty"`
}

// CLIVersion is the result of the version command.
type CLIVersion struct {
	Version  string `json:"version"`
	Table    string `json:"table"`
	Features int    `json:"features"`
}

// CLICacheChange is the result of cache forget and cache clear.
type CLICacheChange struct {
	Removed []string `json:"removed"`
}
