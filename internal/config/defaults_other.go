//go:build !windows

package config

// DefaultScript is resolved against the working directory.
const DefaultScript = "server.js"
