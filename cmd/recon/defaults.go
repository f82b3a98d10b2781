package cmd

// Default flag values.
// Set in build using -ldflags "-X github.com/recon/recon/cmd/recon.<name>=<value>"
var (
	DefaultEndpoint = "https://api.recon.dev" // Remote API endpoint
)
