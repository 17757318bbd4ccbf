package main

import (
	"errors"
	"io"

	"github.com/heimdex/heimdex-clips/internal/metadata"
	"github.com/spf13/cobra"
)

var errInvalidMetadata = errors.New("metadata is invalid")

var (
	validateName        string
	validateDescription string
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check clip metadata against the form rules",
	Long: `Validate a clip name and description the same way the crop form does and
print each field with its error.

Example:
  clips-agent validate --name "My Clip" --description "A short clip."`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate(cmd.OutOrStdout(), validateName, validateDescription)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringVar(&validateName, "name", "", "Clip name")
	validateCmd.Flags().StringVar(&validateDescription, "description", "", "Clip description")
}

func runValidate(w io.Writer, name, description string) error {
	form := metadata.NewForm(name, description)
	errs := form.Submit()
	if err := form.Render(w); err != nil {
		return err
	}
	if !errs.Empty() {
		return errInvalidMetadata
	}
	return nil
}
