package subcmd

import (
	"github.com/openkiss/kiss/kernel/cluster"
	"github.com/openkiss/kiss/kernel/loader"
	"github.com/openkiss/kiss/kernel/mcp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(NewServeCommand())
}

func NewServeCommand() *cobra.Command {
	serveCmd := &ServeCommand{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start a cluster and expose it as an MCP server on stdio",
		RunE:  serveCmd.serve,
	}

	cmd.Flags().StringVarP(&serveCmd.ManifestPath, "manifest", "f", "", "optional YAML manifest to apply at startup")
	cmd.Flags().BoolVar(&serveCmd.Docker, "docker", false, "back image specs with docker containers")

	return cmd
}

type ServeCommand struct {
	ManifestPath string
	Docker       bool
}

func (s *ServeCommand) serve(cmd *cobra.Command, args []string) error {
	c, err := cluster.New(cluster.Options{UseDocker: s.Docker})
	if err != nil {
		return err
	}
	if err := c.Start(); err != nil {
		return err
	}
	defer func() {
		if err := c.Stop(); err != nil {
			logrus.WithError(err).Error("stopping cluster")
		}
	}()

	if s.ManifestPath != "" {
		resources, err := loader.LoadFile(s.ManifestPath)
		if err != nil {
			return err
		}
		if err := c.Apply(resources); err != nil {
			logrus.WithError(err).Error("applying manifest")
		}
	}

	logrus.Info("starting Kiss MCP server on stdio...")
	return mcp.NewKissMCPServer(c).ServeStdio()
}
