package subcmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/openkiss/kiss/kernel/cluster"
	"github.com/openkiss/kiss/kernel/loader"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(NewUpCommand())
}

func NewUpCommand() *cobra.Command {
	upCmd := &UpCommand{}

	cmd := &cobra.Command{
		Use:   "up",
		Short: "Start a cluster, apply a manifest, and run until interrupted",
		RunE:  upCmd.up,
	}

	cmd.Flags().StringVarP(&upCmd.ManifestPath, "manifest", "f", "", "path to YAML manifest file")
	cmd.Flags().BoolVar(&upCmd.Docker, "docker", false, "back image specs with docker containers")
	_ = cmd.MarkFlagRequired("manifest")

	return cmd
}

type UpCommand struct {
	ManifestPath string
	Docker       bool
}

func (u *UpCommand) up(cmd *cobra.Command, args []string) error {
	resources, err := loader.LoadFile(u.ManifestPath)
	if err != nil {
		return err
	}

	c, err := cluster.New(cluster.Options{UseDocker: u.Docker})
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

	if err := c.Apply(resources); err != nil {
		logrus.WithError(err).Error("applying manifest")
	}

	logrus.Infof("cluster up with %d resource(s), ctrl-c to stop", len(resources))
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	<-ch

	return nil
}
