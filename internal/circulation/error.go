package circulation

import (
	"errors"
	"fmt"
)

// ===== Error model (same shape as borrowers) =====

type Code string

const (
	CodeInvalidArgument       Code = "INVALID_ARGUMENT"
	CodeBorrowerNotFound      Code = "BORROWER_NOT_FOUND"
	CodeItemAlreadyCheckedOut Code = "ITEM_ALREADY_CHECKED_OUT"
	CodeLoanNotFound          Code = "LOAN_NOT_FOUND"
	CodeLoanNotActive         Code = "LOAN_NOT_ACTIVE"
	CodeInternal              Code = "INTERNAL"
)

type APIError struct {
	Code    Code
	Message string
}

func (e *APIError) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

func ErrInvalid(msg string) *APIError { return &APIError{Code: CodeInvalidArgument, Message: msg} }
func ErrInternal(msg string) *APIError { return &APIError{Code: CodeInternal, Message: msg} }

func ErrBorrowerNotFound() *APIError {
	return &APIError{Code: CodeBorrowerNotFound, Message: "borrower not found"}
}

func ErrItemAlreadyCheckedOut() *APIError {
	return &APIError{Code: CodeItemAlreadyCheckedOut, Message: "item already checked out"}
}

func ErrLoanNotFound() *APIError {
	return &APIError{Code: CodeLoanNotFound, Message: "loan not found"}
}

func ErrLoanNotActive() *APIError {
	return &APIError{Code: CodeLoanNotActive, Message: "loan is not active"}
}

func toHTTPStatus(err error) int {
	var api *APIError
	if errors.As(err, &api) {
		switch api.Code {
		case CodeInvalidArgument:
			return 400
		case CodeBorrowerNotFound, CodeLoanNotFound:
			return 404
		case CodeItemAlreadyCheckedOut, CodeLoanNotActive:
			return 409
		default:
			return 500
		}
	}
	return 500
}
