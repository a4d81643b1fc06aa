package errors

import (
	stderrors "errors"

	"saffaucet/jsonx"
)

// FaucetErrorCode represents standardized error codes for faucet operations
type FaucetErrorCode string

const (
	// General errors
	ErrCodeInternal FaucetErrorCode = "internal_error"

	// Configuration errors
	ErrCodeConfigMissing FaucetErrorCode = "config_missing"
	ErrCodeConfigInvalid FaucetErrorCode = "config_invalid"

	// Validation errors
	ErrCodeInvalidRequest FaucetErrorCode = "invalid_request"
	ErrCodeInvalidAddress FaucetErrorCode = "invalid_address"
	ErrCodeUnknownIP      FaucetErrorCode = "unknown_ip"

	// Quota errors
	ErrCodeQuotaIP      FaucetErrorCode = "quota_ip"
	ErrCodeQuotaAddress FaucetErrorCode = "quota_address"
	ErrCodeQuotaBoth    FaucetErrorCode = "quota_both"

	// Dispatch errors
	ErrCodeSequenceConflict FaucetErrorCode = "sequence_conflict"
	ErrCodeTransport        FaucetErrorCode = "transport_error"
	ErrCodeDispatchFailed   FaucetErrorCode = "dispatch_failed"
)

// FaucetError is a standardized faucet error. Retryable marks errors the
// dispatcher may retry within its bounded attempt loop.
type FaucetError struct {
	Code      FaucetErrorCode `json:"code"`
	Message   string          `json:"message"`
	Retryable bool            `json:"-"`
}

// Error implements the error interface
func (e *FaucetError) Error() string {
	out, _ := jsonx.Marshal(FaucetError{
		Code:    e.Code,
		Message: e.Message,
	})
	return string(out)
}

func NewConfigError(message string) *FaucetError {
	return &FaucetError{Code: ErrCodeConfigInvalid, Message: message}
}

func NewValidationError(code FaucetErrorCode, message string) *FaucetError {
	return &FaucetError{Code: code, Message: message}
}

func NewQuotaError(code FaucetErrorCode, message string) *FaucetError {
	return &FaucetError{Code: code, Message: message}
}

func NewSequenceConflictError(message string) *FaucetError {
	return &FaucetError{Code: ErrCodeSequenceConflict, Message: message, Retryable: true}
}

func NewTransportError(message string) *FaucetError {
	return &FaucetError{Code: ErrCodeTransport, Message: message, Retryable: true}
}

func NewDispatchFailedError(message string) *FaucetError {
	return &FaucetError{Code: ErrCodeDispatchFailed, Message: message}
}

// CodeOf extracts the faucet error code from err, unwrapping as needed.
// Unclassified errors map to internal_error.
func CodeOf(err error) FaucetErrorCode {
	var fe *FaucetError
	if stderrors.As(err, &fe) {
		return fe.Code
	}
	return ErrCodeInternal
}

// IsSequenceConflict reports whether err was classified as a stale-sequence
// rejection by the chain gateway.
func IsSequenceConflict(err error) bool {
	return CodeOf(err) == ErrCodeSequenceConflict
}

// IsRetryable reports whether the dispatcher may retry after err.
func IsRetryable(err error) bool {
	var fe *FaucetError
	if stderrors.As(err, &fe) {
		return fe.Retryable
	}
	return false
}

// Error message constants - user-friendly and concise
const (
	ErrMsgInvalidRequest   = "Request format is invalid"
	ErrMsgInvalidAddress   = "Recipient address is invalid"
	ErrMsgUnknownIP        = "Requester IP could not be determined"
	ErrMsgQuotaIP          = "Daily faucet limit reached for this IP"
	ErrMsgQuotaAddress     = "Daily faucet limit reached for this address"
	ErrMsgQuotaBoth        = "Daily faucet limit reached for this IP and address"
	ErrMsgDispatchFailed   = "Token dispatch failed, please retry later"
	ErrMsgConfigIncomplete = "Faucet is not fully configured"
)
