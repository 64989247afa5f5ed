package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "SPMFGEN"

var (
	globalConfig Config
	configFile   string
)

func init() {

	logLevel, ok := os.LookupEnv("LOG_LEVEL")

	if ok {
		// If the environment variable is set, parse it to set the log level
		level, err := log.ParseLevel(logLevel)
		if err == nil {
			log.SetLevel(level)
		} else {
			log.Warn("Invalid log level. Defaulting to Info level.")
			log.SetLevel(log.InfoLevel)
		}
	} else {
		// If the environment variable is not set, default to Info level
		log.SetLevel(log.InfoLevel)
	}

	rootCmd.PersistentFlags().StringVar(&configFile,
		"config", "", "Config file (yaml, json or toml) with flag values")

	initGenerate()
	initStats()
	initExporter()
}

var rootCmd = &cobra.Command{
	Use:   "spmfgen",
	Short: "SPMF sequence dataset generator",
	Long:  `Generate random datasets of itemset sequences in the SPMF format and report their statistics`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return applyConfig(cmd.Flags(), configFile)
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("running the root command, see help or -h for available commands\n")
	},
}

// applyConfig fills every flag the user did not set on the command line from
// SPMFGEN_* environment variables, then from the config file.
func applyConfig(flags *pflag.FlagSet, file string) error {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "read config file %q", file)
		}
		log.WithFields(log.Fields{"file": v.ConfigFileUsed()}).Debug("Loaded config file")
	}

	var err error
	flags.VisitAll(func(f *pflag.Flag) {
		if err != nil || f.Changed || f.Name == "config" || !v.IsSet(f.Name) {
			return
		}

		if setErr := flags.Set(f.Name, v.GetString(f.Name)); setErr != nil {
			err = errors.Wrapf(setErr, "invalid value for %q", f.Name)
		}
	})

	return err
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
