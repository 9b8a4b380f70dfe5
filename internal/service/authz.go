package service

import (
	"github.com/google/uuid"

	"social-graph/internal/apperror"
)

// RequireSelf enforces the self-scope rule: only the owner of a user
// resource may mutate it.
func RequireSelf(callerID, targetID, message string) error {
	if callerID == "" || callerID != targetID {
		return apperror.Forbidden(message)
	}
	return nil
}

// ValidateID reports an apperror.ErrBadRequest when id is not a store identifier.
func ValidateID(id, message string) error {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return apperror.Wrap(err, apperror.CodeBadRequest, message)
	}
	if parsed.String() != id {
		return apperror.BadRequest(message)
	}
	return nil
}
