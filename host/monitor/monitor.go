// Package monitor checks clock reports streamed by the firmware against a host
// side derivation from the same register words.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"coreclock/core"
	"coreclock/host/mcu"
	"coreclock/protocol"
)

// ErrStopped is returned by Run when --once saw its first report
var ErrStopped = errors.New("monitor stopped after first report")

// Result is the outcome of checking one report
type Result struct {
	Seq      uint8
	Reported uint32
	Tree     core.ClockTree
	Mismatch bool
}

// Source is the report stream, implemented by *mcu.MCU
type Source interface {
	Run(ctx context.Context, onReport mcu.ReportHandler) error
	GetDictionary() *mcu.Dictionary
	FrameErrors() uint32
	Dropped() uint32
}

// Monitor re-derives every reported clock with the configured oscillators
type Monitor struct {
	osc     core.Oscillators
	metrics *Metrics

	// OnResult is called after each checked report
	OnResult func(Result)

	dictChecked     bool
	lastFrameErrors uint32
	lastDropped     uint32
}

// New creates a monitor; metrics may be nil
func New(osc core.Oscillators, metrics *Metrics) *Monitor {
	return &Monitor{osc: osc, metrics: metrics}
}

// Check derives the clock tree from the report registers and compares it
func (m *Monitor) Check(seq uint8, report *protocol.ClockReport) Result {
	regs := report.Regs
	tree := core.NewClockDeriver(core.NewRCCBank(&regs), m.osc).Derive()

	res := Result{
		Seq:      seq,
		Reported: report.CoreClock,
		Tree:     tree,
		Mismatch: tree.Core != report.CoreClock,
	}
	if res.Mismatch {
		log.Warningf("seq=%d: firmware reports %d Hz, registers give %d Hz (%s)", seq, report.CoreClock, tree.Core, tree.SourceName)
	} else {
		log.Debugf("seq=%d: core=%d sysclk=%d source=%s", seq, tree.Core, tree.SysClk, tree.SourceName)
	}
	if tree.PLLDisabled {
		log.Warningf("seq=%d: PLL1 selected with DIVM1=0, core clock is 0", seq)
	}
	if m.metrics != nil {
		m.metrics.observe(report.CoreClock, &tree, res.Mismatch)
	}
	return res
}

// checkDictionary warns once when the firmware was built for other oscillators
func (m *Monitor) checkDictionary(dict *mcu.Dictionary) {
	if m.dictChecked || dict == nil {
		return
	}
	m.dictChecked = true

	fwOsc, err := dict.Oscillators()
	if err != nil {
		log.Warningf("dictionary: %v", err)
		return
	}
	if fwOsc != m.osc {
		log.Warningf("firmware oscillators %+v differ from configured %+v", fwOsc, m.osc)
	}
}

// syncCounters forwards the source's running totals as counter deltas
func (m *Monitor) syncCounters(src Source) {
	if m.metrics == nil {
		return
	}
	frameErrors := src.FrameErrors()
	m.metrics.addFrameErrors(frameErrors - m.lastFrameErrors)
	m.lastFrameErrors = frameErrors

	dropped := src.Dropped()
	m.metrics.addDropped(dropped - m.lastDropped)
	m.lastDropped = dropped
}

// Run consumes reports from src until ctx ends. With once set it returns
// ErrStopped after the first report.
func (m *Monitor) Run(ctx context.Context, src Source, once bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stopped := false
	err := src.Run(ctx, func(seq uint8, report *protocol.ClockReport) {
		m.checkDictionary(src.GetDictionary())
		res := m.Check(seq, report)
		m.syncCounters(src)
		if m.OnResult != nil {
			m.OnResult(res)
		}
		if once {
			stopped = true
			cancel()
		}
	})
	if stopped {
		return ErrStopped
	}
	return err
}

// Serve runs the monitor and, when addr is set, the metrics endpoint until
// either fails or ctx ends
func (m *Monitor) Serve(ctx context.Context, src Source, addr string, once bool) error {
	eg, ctx := errgroup.WithContext(ctx)

	if addr != "" && m.metrics != nil {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("listening on %s: %w", addr, err)
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.metrics.Handler())
		server := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		log.Infof("serving metrics on %s/metrics", ln.Addr())

		eg.Go(func() error {
			if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		eg.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	eg.Go(func() error {
		err := m.Run(ctx, src, once)
		if errors.Is(err, ErrStopped) {
			return ErrStopped
		}
		return err
	})

	err := eg.Wait()
	if errors.Is(err, ErrStopped) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
