package service

import (
	"errors"
	"fmt"
)

// ActionStatus reports whether an engine operation went through.
type ActionStatus string

const (
	ActionStatusOK   ActionStatus = "OK"
	ActionStatusFail ActionStatus = "FAIL"
)

// ActionResult is returned by every engine operation. A FAIL result means a
// precondition rejected the call and nothing was written.
type ActionResult struct {
	Status  ActionStatus `json:"status"`
	Message string       `json:"message"`
}

// OK reports whether the operation succeeded.
func (r ActionResult) OK() bool {
	return r.Status == ActionStatusOK
}

func succeeded(format string, args ...interface{}) ActionResult {
	return ActionResult{Status: ActionStatusOK, Message: fmt.Sprintf(format, args...)}
}

func failed(format string, args ...interface{}) ActionResult {
	return ActionResult{Status: ActionStatusFail, Message: fmt.Sprintf(format, args...)}
}

// preconditionError carries a FAIL result out of a transaction so the
// transaction rolls back without the caller seeing an error.
type preconditionError struct {
	result ActionResult
}

func (e *preconditionError) Error() string {
	return e.result.Message
}

func rejectWith(result ActionResult) error {
	return &preconditionError{result: result}
}

// resolveOutcome turns the error returned by a transaction into the value
// pair handed back to callers.
func resolveOutcome(result ActionResult, err error) (ActionResult, error) {
	var precondition *preconditionError
	if errors.As(err, &precondition) {
		return precondition.result, nil
	}
	if err != nil {
		return ActionResult{}, err
	}
	return result, nil
}
