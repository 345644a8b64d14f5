//go:build js && wasm

package config

import "github.com/syumai/workers/cloudflare"

// Workers expose vars and secrets as bindings rather than process env.
func getenv(name string) string {
	return cloudflare.Getenv(name)
}
