package orders

const (
	TopicOrderCreated     = "order.created"
	TopicStatusChanged    = "order.status.changed"
	TopicDeliveryReminder = "order.delivery.reminder"
)

// Partition key = order_id so all events of one order keep their order.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
