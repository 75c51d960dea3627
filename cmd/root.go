package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/yeremiapane/table-reservation/utils"
)

var (
	Version   = "dev"
	CommitSHA = "none"
	BuildDate = "unknown"
)

func NewRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "tablebook",
		Short:         "Restaurant table and table-group reservation service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// .env opsional, environment asli tetap menang
			if err := godotenv.Load(envFile); err != nil && envFile != ".env" {
				utils.ErrorLogger.Warnf("could not load %s: %v", envFile, err)
			}
			utils.InitLogger()
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading configuration")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newServerCmd())
	root.AddCommand(newSweepCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newTokenCmd())

	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		utils.ErrorLogger.Error(err)
		os.Exit(1)
	}
}
