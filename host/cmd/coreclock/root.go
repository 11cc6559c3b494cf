package main

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"coreclock/core"
	"coreclock/host/config"
)

// rootOptions is shared by every subcommand
type rootOptions struct {
	v          *viper.Viper
	verbose    bool
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{v: config.New()}

	cmd := &cobra.Command{
		Use:   "coreclock",
		Short: "STM32H7RS core clock calculator and monitor",
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			opts.configureVerbosity()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")
	flags.StringVarP(&opts.configPath, "config", "c", "", "YAML config file")

	// Flag defaults mirror the config defaults so --help shows real values
	osc := core.DefaultOscillators()
	flags.Uint32("hse", osc.HSE, "HSE oscillator frequency in Hz")
	flags.Uint32("hsi", osc.HSI, "HSI oscillator frequency in Hz")
	flags.Uint32("csi", osc.CSI, "CSI oscillator frequency in Hz")
	mustBind(opts.v, "oscillators.hse", flags, "hse")
	mustBind(opts.v, "oscillators.hsi", flags, "hsi")
	mustBind(opts.v, "oscillators.csi", flags, "csi")

	cmd.AddCommand(newCalcCmd(opts))
	cmd.AddCommand(newMonitorCmd(opts))
	return cmd
}

// configureVerbosity sets the log level from the parsed flags
func (o *rootOptions) configureVerbosity() {
	log.SetLevel(log.InfoLevel)
	if o.verbose {
		log.SetLevel(log.DebugLevel)
	}
}

// load reads the configuration after flags have been parsed
func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.v, o.configPath)
	if err != nil {
		return nil, err
	}
	log.Debugf("oscillators: hse=%d hsi=%d csi=%d", cfg.Oscillators.HSE, cfg.Oscillators.HSI, cfg.Oscillators.CSI)
	return cfg, nil
}

func mustBind(v *viper.Viper, key string, flags *pflag.FlagSet, name string) {
	if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
		panic(fmt.Sprintf("binding --%s: %v", name, err))
	}
}
