package utils

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	configurationKeyDelimiterConstant          = "."
	environmentKeyDelimiterConstant            = "_"
	listValueSeparatorConstant                 = ","
	embeddedLayerErrorTemplateConstant         = "failed to merge embedded configuration: %w"
	fileLayerErrorTemplateConstant             = "failed to read configuration: %w"
	decodeConfigurationErrorTemplateConstant   = "failed to parse configuration: %w"
	defaultEmbeddedConfigurationFormatConstant = "yaml"
)

// ConfigurationLoader layers repocheck settings with viper. From lowest to highest
// precedence: programmatic defaults, the embedded default document, a config file,
// and REPOCHECK_* style environment variables.
type ConfigurationLoader struct {
	fileName             string
	fileFormat           string
	environmentPrefix    string
	searchDirectories    []string
	embeddedDocument     []byte
	embeddedDocumentType string
}

// LoadedConfiguration describes where the effective configuration came from.
type LoadedConfiguration struct {
	ConfigFileUsed string
}

// NewConfigurationLoader returns a loader for fileName.fileFormat searched in searchDirectories.
func NewConfigurationLoader(fileName string, fileFormat string, environmentPrefix string, searchDirectories []string) *ConfigurationLoader {
	return &ConfigurationLoader{
		fileName:          fileName,
		fileFormat:        fileFormat,
		environmentPrefix: environmentPrefix,
		searchDirectories: append([]string(nil), searchDirectories...),
	}
}

// SetEmbeddedConfiguration registers the document merged underneath any config file.
// An empty document clears it.
func (loader *ConfigurationLoader) SetEmbeddedConfiguration(document []byte, documentType string) {
	if loader == nil {
		return
	}
	loader.embeddedDocument = nil
	if len(document) > 0 {
		loader.embeddedDocument = append([]byte(nil), document...)
	}
	loader.embeddedDocumentType = strings.TrimSpace(documentType)
}

// LoadConfiguration decodes the layered settings into target. An explicit
// configurationFilePath must exist; otherwise the search directories are tried and a
// missing file is not an error. Durations accept strings such as "30s" and lists accept
// comma separated strings, so REPOCHECK_TOOLS_SCAN_SCAN_PATHS=~/src,~/work works.
func (loader *ConfigurationLoader) LoadConfiguration(configurationFilePath string, defaultValues map[string]any, target any) (LoadedConfiguration, error) {
	settings := viper.New()
	for key, value := range defaultValues {
		settings.SetDefault(key, value)
	}

	if embeddedError := loader.mergeEmbeddedDocument(settings); embeddedError != nil {
		return LoadedConfiguration{}, fmt.Errorf(embeddedLayerErrorTemplateConstant, embeddedError)
	}
	loader.bindEnvironment(settings)
	if fileError := loader.mergeConfigurationFile(settings, configurationFilePath); fileError != nil {
		return LoadedConfiguration{}, fmt.Errorf(fileLayerErrorTemplateConstant, fileError)
	}

	decodeHooks := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(listValueSeparatorConstant),
	))
	if decodeError := settings.Unmarshal(target, decodeHooks); decodeError != nil {
		return LoadedConfiguration{}, fmt.Errorf(decodeConfigurationErrorTemplateConstant, decodeError)
	}
	return LoadedConfiguration{ConfigFileUsed: settings.ConfigFileUsed()}, nil
}

func (loader *ConfigurationLoader) mergeEmbeddedDocument(settings *viper.Viper) error {
	if len(loader.embeddedDocument) == 0 {
		return nil
	}
	documentType := loader.embeddedDocumentType
	if len(documentType) == 0 {
		documentType = loader.fileFormat
	}
	if len(documentType) == 0 {
		documentType = defaultEmbeddedConfigurationFormatConstant
	}
	settings.SetConfigType(documentType)
	return settings.MergeConfig(bytes.NewReader(loader.embeddedDocument))
}

func (loader *ConfigurationLoader) bindEnvironment(settings *viper.Viper) {
	settings.SetEnvPrefix(loader.environmentPrefix)
	settings.SetEnvKeyReplacer(strings.NewReplacer(configurationKeyDelimiterConstant, environmentKeyDelimiterConstant))
	settings.AutomaticEnv()
}

func (loader *ConfigurationLoader) mergeConfigurationFile(settings *viper.Viper, configurationFilePath string) error {
	settings.SetConfigType(loader.fileFormat)
	if len(configurationFilePath) > 0 {
		settings.SetConfigFile(configurationFilePath)
	} else {
		settings.SetConfigName(loader.fileName)
		for _, searchDirectory := range loader.searchDirectories {
			settings.AddConfigPath(searchDirectory)
		}
	}

	mergeError := settings.MergeInConfig()
	var notFoundError viper.ConfigFileNotFoundError
	if mergeError != nil && !errors.As(mergeError, &notFoundError) {
		return mergeError
	}
	return nil
}
