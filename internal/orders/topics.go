package orders

const (
	TopicOrderPlaced        = "order.placed"
	TopicOrderStatusChanged = "order.status.changed"
	TopicOrderCancelled     = "order.cancelled"
	TopicOrderDeleted       = "order.deleted"
)

// Topics is every topic the order service publishes to.
var Topics = []string{TopicOrderPlaced, TopicOrderStatusChanged, TopicOrderCancelled, TopicOrderDeleted}

// Partition key = order_id so all events of one order stay ordered.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
