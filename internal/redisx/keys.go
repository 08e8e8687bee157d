package redisx

import "time"

const (
	// Webhook delivery dedupe: dedup:webhook:{webhook_id} -> 1
	KeyWebhookDedup = "dedup:webhook:%s"

	// Event consumer dedupe: dedup:{service}:{event_id} -> 1
	KeyEventDedup = "dedup:%s:%s"

	// Last sync result per shop: sync_result:{shop} -> JSON of sync.Result
	KeySyncResult = "sync_result:%s"
)

var (
	TTLWebhookDedup = 7 * 24 * time.Hour
	TTLEventDedup   = 48 * time.Hour
	TTLSyncResult   = 24 * time.Hour
)
