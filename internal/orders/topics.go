package orders

const (
	TopicOrderSynced    = "saddle.order.synced"
	TopicOrderCancelled = "saddle.order.cancelled"
	TopicReviewRequired = "saddle.review.required"
	TopicSerialsSaved   = "saddle.serials.saved"
)

// Partition key = shopify order id, so all events for one order keep their
// relative order.
func PartitionKey(shopifyOrderID string) []byte { return []byte(shopifyOrderID) }
