//go:build !js || !wasm

package config

import "os"

func getenv(name string) string {
	return os.Getenv(name)
}
