// Package utils contains small internal helpers shared across the module:
// SSE stream scanning, JSON body merging, string truncation, and pointer
// construction. Nothing here is part of the public API.
package utils
