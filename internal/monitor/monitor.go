package monitor

import (
	"context"
	"fmt"
	"log"

	"strategy-core/internal/events"
	"strategy-core/internal/risk"
)

// Monitor subscribes to the event bus, keeps the counters current and
// forwards alert-worthy events to the sink.
type Monitor struct {
	Bus     *events.Bus
	Metrics *SystemMetrics
	Sink    AlertSink

	// MaxDrawdown triggers a risk alert once realized drawdown exceeds it.
	// Zero disables the check.
	MaxDrawdown float64

	drawdownAlerted bool
}

// Start wires the bus subscriptions. Goroutines exit when ctx is cancelled.
func (m *Monitor) Start(ctx context.Context) {
	if m.Bus == nil || m.Metrics == nil {
		log.Println("monitor not fully configured; skipping")
		return
	}

	m.watch(ctx, events.EventPriceTick, func(any) { m.Metrics.IncrementTicks() })
	m.watch(ctx, events.EventSignal, func(any) { m.Metrics.IncrementSignals() })
	m.watch(ctx, events.EventActionEmitted, func(any) { m.Metrics.IncrementActions() })
	m.watch(ctx, events.EventTradeExecuted, func(any) { m.Metrics.IncrementFills() })
	m.watch(ctx, events.EventActionRejected, func(msg any) {
		m.Metrics.IncrementRejections()
		m.alert(fmt.Sprintf("action rejected: %v", msg))
	})
	m.watch(ctx, events.EventRiskAlert, func(msg any) {
		m.Metrics.IncrementErrors()
		m.alert(fmt.Sprintf("risk alert: %v", msg))
	})
}

// CheckRisk inspects realized metrics and raises a one-shot drawdown alert.
func (m *Monitor) CheckRisk(metrics risk.Metrics) {
	if m.MaxDrawdown <= 0 || m.drawdownAlerted {
		return
	}
	if metrics.MaxDrawdown >= m.MaxDrawdown {
		m.drawdownAlerted = true
		m.alert(fmt.Sprintf("drawdown %.2f exceeds limit %.2f", metrics.MaxDrawdown, m.MaxDrawdown))
		if m.Bus != nil {
			m.Bus.Publish(events.EventRiskAlert, "drawdown limit breached")
		}
	}
}

func (m *Monitor) watch(ctx context.Context, ev events.Event, handle func(any)) {
	stream, unsub := m.Bus.Subscribe(ev, 64)
	go func() {
		defer unsub()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-stream:
				if !ok {
					return
				}
				handle(msg)
			}
		}
	}()
}

func (m *Monitor) alert(message string) {
	if m.Sink == nil {
		return
	}
	if err := m.Sink.Send(message); err != nil {
		log.Printf("monitor: alert delivery failed: %v", err)
	}
}
