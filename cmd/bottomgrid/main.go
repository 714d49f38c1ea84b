// Command bottomgrid builds gridded near-seafloor temperature and salinity
// products from hydrographic casts and serves them over HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"go.azmp.io/bottom-fields/internal/config"
)

const version = "0.1.0"

var (
	// Cfg holds the configuration of the current invocation.
	Cfg = viper.New()

	log = logrus.New()
)

// Root is the main command.
var Root = &cobra.Command{
	Use:   "bottomgrid",
	Short: "Gridded bottom temperature and salinity.",
	Long: `bottomgrid bins hydrographic casts onto depth levels, aggregates them
onto a regular longitude/latitude grid, interpolates each depth layer and
extracts the value nearest the seafloor. Climatologies are saved as NetCDF
records that single-year runs and the HTTP server reuse.

Every option can be given as a flag, in a configuration file (--config) or
as a BOTTOMGRID_* environment variable.`,
	DisableAutoGenTag: true,
	SilenceUsage:      true,
	PersistentPreRunE: func(*cobra.Command, []string) error {
		if err := config.ReadFile(Cfg); err != nil {
			return err
		}
		lvl, err := config.LogLevel(Cfg)
		if err != nil {
			return err
		}
		log.SetLevel(lvl)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "bottomgrid v%s\n", version)
	},
}

func init() {
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log.SetOutput(os.Stderr)

	Root.AddCommand(versionCmd, climatologyCmd, yearCmd, statsCmd, serveCmd)

	sets := map[string]*pflag.FlagSet{
		config.CmdRoot:        Root.PersistentFlags(),
		config.CmdClimatology: climatologyCmd.Flags(),
		config.CmdYear:        yearCmd.Flags(),
		config.CmdStats:       statsCmd.Flags(),
		config.CmdServe:       serveCmd.Flags(),
	}
	if err := config.BindFlags(Cfg, sets); err != nil {
		panic(err)
	}
}

func main() {
	if err := Root.Execute(); err != nil {
		os.Exit(1)
	}
}
