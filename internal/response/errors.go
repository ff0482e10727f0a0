package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionActive      ErrCode = "SESSION_ALREADY_ACTIVE"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden         ErrCode = "FORBIDDEN"
	ErrStudentAccessOnly ErrCode = "STUDENT_ACCESS_ONLY"
	ErrAdminAccessOnly   ErrCode = "ADMIN_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Scoring ───────────────────────────────────────────────────────
	ErrEmptyTest           ErrCode = "EMPTY_TEST"
	ErrAnswerOutOfRange    ErrCode = "ANSWER_INDEX_OUT_OF_RANGE"
	ErrAlreadySubmitted    ErrCode = "ALREADY_SUBMITTED"
	ErrResultsNotDeclared  ErrCode = "RESULTS_NOT_DECLARED"
	ErrCorrectAnswerBounds ErrCode = "CORRECT_ANSWER_OUT_OF_RANGE"

	// ─── Proctoring ────────────────────────────────────────────────────
	ErrSessionClosed    ErrCode = "SESSION_CLOSED"
	ErrUploadFailed     ErrCode = "UPLOAD_FAILED"
	ErrPersistenceError ErrCode = "PERSISTENCE_ERROR"
	ErrChunkTooLarge    ErrCode = "CHUNK_TOO_LARGE"

	// ─── Media ─────────────────────────────────────────────────────────
	ErrFileRequired    ErrCode = "FILE_REQUIRED"
	ErrUnsupportedFile ErrCode = "UNSUPPORTED_FILE_TYPE"
	ErrFileTooLarge    ErrCode = "FILE_TOO_LARGE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Email or password is incorrect."
	case ErrSessionActive:
		return "You are already logged in on another device."
	case ErrSessionInvalidated:
		return "Your session has ended. Please log in again."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid or expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrStudentAccessOnly:
		return "This resource is restricted to students."
	case ErrAdminAccessOnly:
		return "This resource is restricted to administrators."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."

	// ─── Scoring ───────────────────────────────────────────────────────
	case ErrEmptyTest:
		return "This test has no questions and cannot be graded."
	case ErrAnswerOutOfRange:
		return "More answers were supplied than the test has questions."
	case ErrAlreadySubmitted:
		return "You have already submitted this test."
	case ErrResultsNotDeclared:
		return "Results for this test have not been declared yet."
	case ErrCorrectAnswerBounds:
		return "A question's correct answer index is outside its options."

	// ─── Proctoring ────────────────────────────────────────────────────
	case ErrSessionClosed:
		return "The exam session for this test is closed."
	case ErrUploadFailed:
		return "The media upload was rejected by storage."
	case ErrPersistenceError:
		return "The upload succeeded but recording it failed. Please retry."
	case ErrChunkTooLarge:
		return "The video chunk exceeds the size limit."

	// ─── Media ─────────────────────────────────────────────────────────
	case ErrFileRequired:
		return "A file upload is required."
	case ErrUnsupportedFile:
		return "Unsupported file type."
	case ErrFileTooLarge:
		return "File size exceeds the limit."

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
