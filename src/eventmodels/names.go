package eventmodels

type EventName string

const (
	CandleEventName               EventName = "candle"
	AdviceEventName               EventName = "advice"
	TradeCompletedEventName       EventName = "tradeCompleted"
	RoundTripEventName            EventName = "roundtrip"
	PortfolioValueEventName       EventName = "portfolioValue"
	StratWarmupCompletedEventName EventName = "stratWarmupCompleted"
)
