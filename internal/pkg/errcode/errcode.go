package errcode

const (
	Unknown         = "unknown"
	Unauthorized    = "unauthorized"
	Forbidden       = "forbidden"
	CSRFFailed      = "csrf_failed"
	NotFound        = "not_found"
	Invalid         = "invalid"
	Conflict        = "conflict"
	TooMany         = "too_many_requests"
	Internal        = "internal"
	QuotaExceeded   = "quota_exceeded"
	RetrievalFailed = "retrieval_failed"
	UnsupportedType = "unsupported_type"
	ExtractFailed   = "extraction_failed"
	AIFailed        = "ai_failed"
	UploadFailed    = "upload_failed"
	InvalidFile     = "invalid_file"
)
