package patterns

import "time"

// WebhookTimeout bounds outbound webhook deliveries.
const WebhookTimeout = 3 * time.Second

// PublishTimeout bounds best-effort event publishing after a run commits.
const PublishTimeout = 5 * time.Second
