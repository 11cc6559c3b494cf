package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"coreclock/host/mcu"
	"coreclock/host/monitor"
	"coreclock/host/serial"
)

type monitorOptions struct {
	once bool
}

func newMonitorCmd(root *rootOptions) *cobra.Command {
	opts := &monitorOptions{}

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Check clock reports streamed by the firmware",
		Long: "Read clock reports from the firmware serial port, re-derive each one from " +
			"the reported RCC words and export the results as Prometheus metrics.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMonitor(cmd, root, opts)
		},
	}

	defaults := serial.DefaultConfig("/dev/ttyACM0")
	flags := cmd.Flags()
	flags.StringP("device", "d", defaults.Device, "serial device")
	flags.IntP("baud", "b", defaults.Baud, "baud rate")
	flags.Duration("read-timeout", defaults.ReadTimeout, "serial read timeout")
	flags.String("metrics-addr", "", "listen address for /metrics, empty disables it")
	flags.BoolVar(&opts.once, "once", false, "exit after the first report")
	mustBind(root.v, "serial.device", flags, "device")
	mustBind(root.v, "serial.baud", flags, "baud")
	mustBind(root.v, "serial.read_timeout", flags, "read-timeout")
	mustBind(root.v, "metrics.addr", flags, "metrics-addr")
	return cmd
}

func runMonitor(cmd *cobra.Command, root *rootOptions, opts *monitorOptions) error {
	cfg, err := root.load()
	if err != nil {
		return err
	}

	conn, err := mcu.Connect(&cfg.Serial)
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Infof("connected to %s at %d baud", cfg.Serial.Device, cfg.Serial.Baud)

	mon := monitor.New(cfg.Oscillators, monitor.NewMetrics())
	out := cmd.OutOrStdout()
	mon.OnResult = func(res monitor.Result) {
		status := "ok"
		if res.Mismatch {
			status = fmt.Sprintf("MISMATCH host=%d", res.Tree.Core)
		}
		fmt.Fprintf(out, "seq=%-2d core=%d Hz source=%s %s\n", res.Seq, res.Reported, res.Tree.SourceName, status)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return mon.Serve(ctx, conn, cfg.Metrics.Addr, opts.once)
}
