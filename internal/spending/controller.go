package spending

import (
	"context"
	"fmt"
	"sync"

	"receipts/internal/core"
	"receipts/internal/stream"
)

// PeriodState is the selection a controller currently reports on.
type PeriodState struct {
	Period    core.Period
	Dimension core.Dimension
}

// ReportUpdate is a report emission tagged with the state it was computed
// for.
type ReportUpdate = stream.Keyed[PeriodState, stream.Update[Report]]

// PeriodController owns the selected period and the one live report that
// follows it. It starts on the default period. Switching replaces the
// live report; once a switch returns, no report computed for an earlier
// selection is delivered.
type PeriodController struct {
	mu    sync.Mutex
	state PeriodState
	sw    *stream.Switcher[PeriodState, stream.Update[Report]]
}

func NewPeriodController(ctx context.Context, svc *Service, dim core.Dimension) (*PeriodController, error) {
	c := &PeriodController{
		sw: stream.NewSwitcher(ctx, func(ctx context.Context, st PeriodState) <-chan stream.Update[Report] {
			return svc.WatchReport(ctx, st.Dimension, st.Period)
		}),
	}
	if err := c.switchTo(PeriodState{Period: core.DefaultPeriod, Dimension: dim}); err != nil {
		return nil, err
	}
	return c, nil
}

// SwitchPeriod selects p. Concurrent calls are serialized and the last one
// wins.
func (c *PeriodController) SwitchPeriod(p core.Period) error {
	if !p.IsValid() {
		return fmt.Errorf("invalid period %d", int(p))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.switchLocked(PeriodState{Period: p, Dimension: c.state.Dimension})
}

// SwitchDimension keeps the period and reports on dim instead.
func (c *PeriodController) SwitchDimension(dim core.Dimension) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.switchLocked(PeriodState{Period: c.state.Period, Dimension: dim})
}

func (c *PeriodController) switchTo(st PeriodState) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.switchLocked(st)
}

func (c *PeriodController) switchLocked(st PeriodState) error {
	if err := c.sw.Switch(st); err != nil {
		return err
	}
	c.state = st
	return nil
}

func (c *PeriodController) State() PeriodState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Updates is closed by Close.
func (c *PeriodController) Updates() <-chan ReportUpdate {
	return c.sw.Updates()
}

func (c *PeriodController) Close() {
	c.sw.Close()
}
