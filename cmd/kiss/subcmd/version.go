package subcmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var Version = "dev"

func init() {
	RootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the kiss version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(Version)
	},
}
