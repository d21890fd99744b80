package events

// Event enumerates high-level topics inside the strategy core.
type Event string

const (
	// EventMarketData carries raw feed batches; EventPriceTick carries the
	// same batch after the engine ingested it.
	EventMarketData     Event = "market_data"
	EventPriceTick      Event = "price_tick"
	EventSignal         Event = "signal"
	EventActionEmitted  Event = "action.emitted"
	EventActionRejected Event = "action.rejected"
	EventTradeExecuted  Event = "trade.executed"
	EventPositionChange Event = "position_change"
	EventCooldownStart  Event = "cooldown.start"
	EventRiskAlert      Event = "risk_alert"
)
