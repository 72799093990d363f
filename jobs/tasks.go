package jobs

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskCacheWarmup pre-populates permission sets for active actors.
	TaskCacheWarmup = "authz:cache_warmup"
	// TaskAuditRetention prunes audit entries past the retention window.
	TaskAuditRetention = "audit:retention"
)
