package constants

// Machine-readable reasons sent as error_code next to the HTTP status.
const (
	CodeUnauthenticated     = "UNAUTHENTICATED"
	CodeInvalidToken        = "INVALID_TOKEN"
	CodeAccountNotFound     = "ACCOUNT_NOT_FOUND"
	CodeAccountInactive     = "ACCOUNT_INACTIVE"
	CodeSubscriptionExpired = "SUBSCRIPTION_EXPIRED"
	CodeTenantInactive      = "TENANT_INACTIVE"
	CodeForbiddenRole       = "FORBIDDEN_ROLE"
	CodeNotOwner            = "NOT_OWNER"
	CodeUserLimitReached    = "USER_LIMIT_REACHED"
	CodeBatchCommitFailed   = "BATCH_COMMIT_FAILED"
	CodeBatchTooLarge       = "BATCH_TOO_LARGE"
)
