package contracts

// Exchanges
const (
	ExchangeNotifyTopic = "notify_topic"
)

// Queues
const (
	QueueNotifications = "notifications"
)

// Routing patterns
const (
	RouteNotifyPrefix = "notify." // {kind}
)
