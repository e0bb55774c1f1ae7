package common

const (
	// RedisStreamSentimentPending stages validated items awaiting analysis.
	RedisStreamSentimentPending = "sentiment.pending"
	// RedisStreamSentimentDeadLetter holds failed items for manual replay.
	RedisStreamSentimentDeadLetter = "sentiment.deadletter"
)
