package cli

import (
	"bytes"
	_ "embed"
)

// defaultConfigurationDocument is both the lowest configuration layer and the file written by init.
//
//go:embed default_config.yaml
var defaultConfigurationDocument []byte

// EmbeddedDefaultConfiguration returns a copy of the commented default config.yaml and its format.
func EmbeddedDefaultConfiguration() ([]byte, string) {
	return bytes.Clone(defaultConfigurationDocument), configurationTypeConstant
}
