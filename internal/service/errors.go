package service

import (
	"errors"

	"github.com/sakif/voyage/internal/apperror"
)

// appErr extracts a typed application error from anywhere in err's chain.
// Services use it to decide whether to pass an error through untouched
// (NotFound, Unauthorized — already meaningful to the handler) or wrap it
// with context as an internal fault.
func appErr(err error) (*apperror.AppError, bool) {
	var ae *apperror.AppError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
