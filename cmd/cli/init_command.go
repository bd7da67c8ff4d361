package cli

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/temirov/repocheck/internal/repos/dependencies"
	"github.com/temirov/repocheck/internal/repos/shared"
	pathutils "github.com/temirov/repocheck/internal/utils/path"
)

const (
	initUseConstant                     = "init [path]"
	initShortDescriptionConstant        = "Write the default configuration file"
	initLongDescriptionConstant         = "init writes the commented default configuration to ~/.config/repocheck/config.yaml, or to the given path. Existing files are never overwritten."
	defaultConfigurationPathConstant    = "~/.config/repocheck/config.yaml"
	configurationFilePermissionsConst   = 0o644
	configurationDirPermissionsConstant = 0o755
	configurationCreatedTemplate        = "Created configuration: %s\n"
	configurationExistsTemplateConstant = "%w: %s"
	configurationWriteTemplateConstant  = "unable to write configuration %s: %w"
)

// ErrConfigurationExists indicates init would overwrite an existing configuration file.
var ErrConfigurationExists = errors.New("configuration file already exists")

// InitCommandBuilder assembles the init command.
type InitCommandBuilder struct {
	FileSystem   shared.FileSystem
	HomeExpander *pathutils.HomeExpander
}

// Build constructs the init command.
func (builder *InitCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   initUseConstant,
		Short: initShortDescriptionConstant,
		Long:  initLongDescriptionConstant,
		Args:  cobra.MaximumNArgs(1),
		RunE:  builder.run,
	}
	return command, nil
}

func (builder *InitCommandBuilder) run(command *cobra.Command, arguments []string) error {
	targetPath := defaultConfigurationPathConstant
	if len(arguments) > 0 {
		targetPath = arguments[0]
	}

	homeExpander := builder.HomeExpander
	if homeExpander == nil {
		homeExpander = pathutils.NewHomeExpander()
	}
	resolvedPath := homeExpander.ResolveAbsolute(targetPath, "")

	fileSystem := dependencies.ResolveFileSystem(builder.FileSystem)
	if _, statError := fileSystem.Lstat(resolvedPath); statError == nil {
		return fmt.Errorf(configurationExistsTemplateConstant, ErrConfigurationExists, resolvedPath)
	}
	if mkdirError := fileSystem.MkdirAll(filepath.Dir(resolvedPath), configurationDirPermissionsConstant); mkdirError != nil {
		return fmt.Errorf(configurationWriteTemplateConstant, resolvedPath, mkdirError)
	}

	configurationContent, _ := EmbeddedDefaultConfiguration()
	if writeError := fileSystem.WriteFile(resolvedPath, configurationContent, configurationFilePermissionsConst); writeError != nil {
		return fmt.Errorf(configurationWriteTemplateConstant, resolvedPath, writeError)
	}

	_, printError := fmt.Fprintf(command.OutOrStdout(), configurationCreatedTemplate, resolvedPath)
	return printError
}
