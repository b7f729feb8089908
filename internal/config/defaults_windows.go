//go:build windows

package config

// DefaultScript is the server script location of the original deployment.
const DefaultScript = `D:\System\Both\backend\server.js`
