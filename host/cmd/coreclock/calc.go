package main

import (
	"fmt"
	"io"
	"os"

	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"coreclock/core"
	"coreclock/host/regdump"
)

// registerFlags maps word flags to their RCC offsets
var registerFlags = []struct {
	name   string
	offset uint32
}{
	{"cr", core.RCC_CR},
	{"cfgr", core.RCC_CFGR},
	{"cdcfgr", core.RCC_CDCFGR},
	{"pllckselr", core.RCC_PLLCKSELR},
	{"pllcfgr", core.RCC_PLLCFGR},
	{"pll1divr1", core.RCC_PLL1DIVR1},
	{"pll1fracr", core.RCC_PLL1FRACR},
}

type calcOptions struct {
	regsPath string
	savePath string
}

func newCalcCmd(root *rootOptions) *cobra.Command {
	opts := &calcOptions{}

	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Derive the core clock from RCC register values",
		Long: "Derive the core clock from RCC register values, read from a YAML dump (--regs) " +
			"and/or given per register. Register flags accept hex, e.g. --cfgr 0x18.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCalc(cmd, root, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.regsPath, "regs", "r", "", "YAML register dump")
	cmd.Flags().StringVar(&opts.savePath, "save", "", "write the registers and oscillators used to this YAML file")
	for _, rf := range registerFlags {
		cmd.Flags().Uint32(rf.name, 0, fmt.Sprintf("RCC_%s word, overrides the dump", rf.name))
	}
	return cmd
}

func runCalc(cmd *cobra.Command, root *rootOptions, opts *calcOptions) error {
	cfg, err := root.load()
	if err != nil {
		return err
	}
	osc := cfg.Oscillators

	var snap core.Snapshot
	if opts.regsPath != "" {
		dump, err := regdump.Load(opts.regsPath)
		if err != nil {
			return err
		}
		snap = dump.Snapshot()
		if dump.Oscillators != nil && !oscillatorFlagsChanged(cmd) {
			log.Debugf("using oscillators from %s", opts.regsPath)
			osc = *dump.Oscillators
		}
	}
	for _, rf := range registerFlags {
		if !cmd.Flags().Changed(rf.name) {
			continue
		}
		word, err := cmd.Flags().GetUint32(rf.name)
		if err != nil {
			return err
		}
		snap.Set(rf.offset, word)
	}

	tree := core.NewClockDeriver(core.NewRCCBank(&snap), osc).Derive()
	if tree.PLLDisabled {
		log.Warning("PLL1 is the system clock but DIVM1 is 0, the PLL is stopped")
	}
	printClockTree(cmd.OutOrStdout(), &tree)

	if opts.savePath != "" {
		dump := regdump.FromSnapshot(&snap)
		dump.Oscillators = &osc
		data, err := regdump.Marshal(dump)
		if err != nil {
			return fmt.Errorf("encoding register dump: %w", err)
		}
		if err := os.WriteFile(opts.savePath, data, 0o644); err != nil {
			return fmt.Errorf("writing register dump: %w", err)
		}
	}
	return nil
}

func oscillatorFlagsChanged(cmd *cobra.Command) bool {
	for _, name := range []string{"hse", "hsi", "csi"} {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}

func printClockTree(w io.Writer, tree *core.ClockTree) {
	table := tablewriter.NewWriter(w)
	table.Header("stage", "value")

	table.Append([]string{"source", fmt.Sprintf("%s (SWS=%d)", tree.SourceName, tree.Source)})
	if tree.Source == core.SysClkPLL1 {
		if tree.PLLDisabled {
			table.Append([]string{"pll1", "disabled (DIVM1=0)"})
		} else {
			table.Append([]string{"pll input", fmt.Sprintf("%s %d Hz", tree.PLLSource, tree.PLLInput)})
			table.Append([]string{"divm1", fmt.Sprintf("%d", tree.DivM)})
			table.Append([]string{"divn1", fmt.Sprintf("%d", tree.DivN)})
			table.Append([]string{"fracn1", fmt.Sprintf("%d", tree.FracN)})
			table.Append([]string{"vco", fmt.Sprintf("%.0f Hz", tree.VCO)})
			table.Append([]string{"divp1", fmt.Sprintf("%d", tree.DivP)})
		}
	}
	table.Append([]string{"sysclk", fmt.Sprintf("%d Hz", tree.SysClk)})
	table.Append([]string{"cpre", fmt.Sprintf("%d (>>%d)", tree.Prescaler, tree.CoreShift)})
	table.Append([]string{"core", fmt.Sprintf("%d Hz", tree.Core)})
	table.Render()
}
