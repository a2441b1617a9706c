// Package errors provides structured error handling for the table service.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Auth errors
	CodeUnauthenticated Code = "UNAUTHENTICATED"
	CodeAccessDenied    Code = "ACCESS_DENIED"

	// Lookup errors
	CodeNotFound Code = "NOT_FOUND"

	// Validation errors
	CodeValidationFailed Code = "VALIDATION_FAILED"

	// Campaign errors
	CodeCampaignNameEmpty Code = "CAMPAIGN_NAME_EMPTY"
	CodeMemberIsOwner     Code = "MEMBER_IS_OWNER"

	// Token errors
	CodeTokenIDEmpty       Code = "TOKEN_ID_EMPTY"
	CodeTokenInvalidSize   Code = "TOKEN_INVALID_SIZE"
	CodeTokenNotMovable    Code = "TOKEN_NOT_MOVABLE"
	CodeTokenListMalformed Code = "TOKEN_LIST_MALFORMED"

	// Dice errors
	CodeDiceNoGroups     Code = "DICE_NO_GROUPS"
	CodeDiceTooManyDice  Code = "DICE_TOO_MANY_DICE"
	CodeDiceInvalidSides Code = "DICE_INVALID_SIDES"

	// State errors
	CodeRevisionConflict Code = "REVISION_CONFLICT"
	CodeAlreadyFrozen    Code = "ALREADY_FROZEN"
	CodeNotFrozen        Code = "NOT_FROZEN"

	// Storage errors
	CodeStoreUnavailable Code = "STORE_UNAVAILABLE"
)

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeUnauthenticated:
		return http.StatusUnauthorized

	case CodeAccessDenied:
		return http.StatusForbidden

	case CodeNotFound:
		return http.StatusNotFound

	// Bad request - validation failures, malformed input
	case CodeValidationFailed,
		CodeCampaignNameEmpty,
		CodeTokenIDEmpty,
		CodeTokenInvalidSize,
		CodeTokenListMalformed,
		CodeDiceNoGroups,
		CodeDiceTooManyDice,
		CodeDiceInvalidSides:
		return http.StatusBadRequest

	// Conflict - state doesn't allow the operation
	case CodeRevisionConflict,
		CodeAlreadyFrozen,
		CodeNotFrozen,
		CodeMemberIsOwner,
		CodeTokenNotMovable:
		return http.StatusConflict

	default:
		return http.StatusInternalServerError
	}
}
