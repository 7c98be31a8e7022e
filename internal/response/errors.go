package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrAccountInactive    ErrCode = "ACCOUNT_INACTIVE"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrPermissionDenied  ErrCode = "PERMISSION_DENIED"
	ErrProtectedResource ErrCode = "PROTECTED_RESOURCE"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation ErrCode = "VALIDATION_ERROR"
	ErrInvalidID  ErrCode = "INVALID_ID"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound         ErrCode = "NOT_FOUND"
	ErrDependencyExists ErrCode = "DEPENDENCY_EXISTS"

	// ─── Access control ────────────────────────────────────────────────
	ErrRoleNotFound       ErrCode = "ROLE_NOT_FOUND"
	ErrUserNotFound       ErrCode = "USER_NOT_FOUND"
	ErrGrantNotFound      ErrCode = "GRANT_NOT_FOUND"
	ErrRoleNameTaken      ErrCode = "ROLE_NAME_TAKEN"
	ErrUsernameTaken      ErrCode = "USERNAME_TAKEN"
	ErrPermissionExists   ErrCode = "PERMISSION_EXISTS"
	ErrUnknownPermissions ErrCode = "UNKNOWN_PERMISSIONS"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal           ErrCode = "INTERNAL_ERROR"
	ErrServiceUnavailable ErrCode = "SERVICE_UNAVAILABLE"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Invalid username or password."
	case ErrAccountInactive:
		return "This account has been deactivated."
	case ErrSessionInvalidated:
		return "Your session has ended. Please log in again."
	case ErrTokenRequired:
		return "Authentication token is required."
	case ErrTokenInvalid:
		return "Authentication token is invalid."
	case ErrTokenExpired:
		return "Authentication token has expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrPermissionDenied:
		return "Permission denied."
	case ErrProtectedResource:
		return "System roles cannot be deleted, renamed or deactivated."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrDependencyExists:
		return "The record is still referenced by other data."

	// ─── Access control ────────────────────────────────────────────────
	case ErrRoleNotFound:
		return "Role not found."
	case ErrUserNotFound:
		return "User not found."
	case ErrGrantNotFound:
		return "The user does not hold this role."
	case ErrRoleNameTaken:
		return "A role with this name already exists."
	case ErrUsernameTaken:
		return "This username is already taken."
	case ErrPermissionExists:
		return "This permission already exists."
	case ErrUnknownPermissions:
		return "One or more permission ids do not exist."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Internal server error."
	case ErrServiceUnavailable:
		return "A required service is unavailable."
	default:
		return "An unexpected error occurred."
	}
}
