package subcmd

import (
	"github.com/openkiss/kiss/kernel/loader"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(NewApplyCommand())
}

func NewApplyCommand() *cobra.Command {
	applyCmd := &ApplyCommand{}

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Validate a YAML manifest and summarize its resources",
		RunE:  applyCmd.apply,
	}

	cmd.Flags().StringVarP(&applyCmd.ManifestPath, "manifest", "f", "", "path to YAML manifest file")
	_ = cmd.MarkFlagRequired("manifest")

	return cmd
}

type ApplyCommand struct {
	ManifestPath string
}

func (a *ApplyCommand) apply(cmd *cobra.Command, args []string) error {
	resources, err := loader.LoadFile(a.ManifestPath)
	if err != nil {
		return err
	}

	logrus.Infof("manifest '%s' is valid with %d resource(s)", a.ManifestPath, len(resources))
	for _, resource := range resources {
		logrus.Infof("  %s '%s'", resource.Kind, resource.Name)
	}
	return nil
}
