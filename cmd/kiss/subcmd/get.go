package subcmd

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/openkiss/kiss/kernel/loader"
	"github.com/openkiss/kiss/kernel/model"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(NewGetCommand())
}

func NewGetCommand() *cobra.Command {
	getCmd := &GetCommand{}

	cmd := &cobra.Command{
		Use:   "get <kind>",
		Short: "Render the resources of a kind from a manifest as a table",
		Args:  cobra.ExactArgs(1),
		RunE:  getCmd.get,
	}

	cmd.Flags().StringVarP(&getCmd.ManifestPath, "manifest", "f", "", "path to YAML manifest file")
	_ = cmd.MarkFlagRequired("manifest")

	return cmd
}

type GetCommand struct {
	ManifestPath string
}

func (g *GetCommand) get(cmd *cobra.Command, args []string) error {
	kind := model.Kind(args[0])
	switch kind {
	case model.KindContainer, model.KindReplicaSet, model.KindService:
	default:
		return errors.Errorf("unknown kind '%s'", args[0])
	}

	resources, err := loader.LoadFile(g.ManifestPath)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"KIND", "NAME", "DETAIL"})
	for _, resource := range resources {
		if resource.Kind != kind {
			continue
		}
		t.AppendRow(table.Row{resource.Kind, resource.Name, detail(resource)})
	}
	t.Render()
	return nil
}

func detail(resource *model.Resource) string {
	switch resource.Kind {
	case model.KindContainer:
		spec := resource.Container()
		if spec.Image() != "" {
			return "image=" + spec.Image()
		}
		return "workload=" + spec.Workload()
	case model.KindReplicaSet:
		return fmt.Sprintf("replicas=%d", resource.ReplicaSet().Replicas())
	case model.KindService:
		spec := resource.Service()
		return fmt.Sprintf("selector=%s port=%d targetPort=%d",
			spec.Selector(), spec.SourcePort(), spec.TargetPort())
	}
	return ""
}
