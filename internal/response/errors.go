package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Session tokens ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"
	ErrForbidden     ErrCode = "FORBIDDEN"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Sources ───────────────────────────────────────────────────────
	ErrSourceNotFound ErrCode = "SOURCE_NOT_FOUND"
	ErrSourceInvalid  ErrCode = "SOURCE_INVALID"
	ErrAccessCode     ErrCode = "INVALID_ACCESS_CODE"
	ErrNoQuestions    ErrCode = "NO_QUESTIONS"

	// ─── Sessions ──────────────────────────────────────────────────────
	ErrSessionNotFound ErrCode = "SESSION_NOT_FOUND"
	ErrUnknownQuestion ErrCode = "QUESTION_UNKNOWN"
	ErrBadSelection    ErrCode = "INVALID_SELECTION"
	ErrResultNotReady  ErrCode = "RESULT_NOT_READY"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Session tokens ────────────────────────────────────────────────
	case ErrTokenRequired:
		return "A session token is required."
	case ErrTokenInvalid:
		return "The session token is invalid or has expired."
	case ErrForbidden:
		return "The session token does not match this session."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid id format."
	case ErrInvalidPayload:
		return "The request payload is invalid."

	// ─── Sources ───────────────────────────────────────────────────────
	case ErrSourceNotFound:
		return "The requested paper could not be found."
	case ErrSourceInvalid:
		return "The requested paper could not be loaded."
	case ErrAccessCode:
		return "The access code is incorrect."
	case ErrNoQuestions:
		return "No questions match the requested topics."

	// ─── Sessions ──────────────────────────────────────────────────────
	case ErrSessionNotFound:
		return "The session does not exist or has ended."
	case ErrUnknownQuestion:
		return "The question is not part of this paper."
	case ErrBadSelection:
		return "The selected value is not a valid option."
	case ErrResultNotReady:
		return "The session is still in progress; no result has been published yet."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "The resource could not be found."
	case ErrConflict:
		return "The resource already exists."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
