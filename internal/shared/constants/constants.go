package constants

const (
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"

	HeaderAuthorization   = "Authorization"
	HeaderXRequestID      = "X-Request-ID"
	HeaderStripeSignature = "Stripe-Signature"
	HeaderAdminKey        = "X-Admin-Key"
	HeaderPluginVersion   = "X-Plugin-Version"

	// Context keys
	ContextKeySubject   = "subject"
	ContextKeyToken     = "access_token"
	ContextKeyRequestID = "request_id"

	TableUsers         = "users"
	TableAccessTokens  = "access_tokens"
	TablePlans         = "plans"
	TableSubscriptions = "subscriptions"
	TableUsageCounters = "usage_counters"
	TableUsageEvents   = "usage_events"

	// DefaultPlanSlug names the plan every subject falls back to.
	DefaultPlanSlug = "free"

	ErrMsgInternalServerError = "Internal server error occurred"
	ErrMsgInvalidToken        = "Invalid token"
	ErrMsgUsageLimitExceeded  = "Usage limit exceeded"
)
