package router

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/Cogwheel-Validator/spectra-sender/sender/models"
)

var (
	ErrMissingNetwork   = errors.New("a network is undefined")
	ErrWrongNetwork     = errors.New("wrong network connected")
	ErrInvalidRecipient = errors.New("custom recipient address is invalid")
	ErrNoSigner         = errors.New("cannot send: signer does not exist")
	ErrNoToken          = errors.New("no from token selected")
	ErrFeeExceedsAmount = errors.New("amount must be greater than bonder fee")
	ErrUserCancelled    = errors.New("transaction cancelled by user")
	ErrMissingBound     = errors.New("minimum output bound is required")
	ErrMissingFee       = errors.New("total fee is required")
	ErrInvalidAmount    = errors.New("invalid source amount")
)

// ExecutorError wraps anything returned by the bridge executor.
type ExecutorError struct {
	Path Path
	Err  error
}

func (e *ExecutorError) Error() string {
	return fmt.Sprintf("bridge send (%s) failed: %v", e.Path, e.Err)
}

func (e *ExecutorError) Unwrap() error {
	return e.Err
}

// ErrorKind classifies a send failure for logs and metrics.
type ErrorKind string

const (
	KindNone             ErrorKind = ""
	KindMissingNetwork   ErrorKind = "missing_network"
	KindWrongNetwork     ErrorKind = "wrong_network"
	KindInvalidRecipient ErrorKind = "invalid_recipient"
	KindNoSigner         ErrorKind = "no_signer"
	KindNoToken          ErrorKind = "no_token"
	KindFeeExceedsAmount ErrorKind = "fee_exceeds_amount"
	KindUserCancelled    ErrorKind = "user_cancelled"
	KindMissingBound     ErrorKind = "missing_bound"
	KindInvalidAmount    ErrorKind = "invalid_amount"
	KindExecutorFailure  ErrorKind = "executor_failure"
	KindUnknown          ErrorKind = "unknown"
)

// cancelledPattern matches the cancellation signal of confirmation dialogs.
var cancelledPattern = regexp.MustCompile(`(?i)cancelled`)

// IsCancelled reports whether err is a user cancellation.
func IsCancelled(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrUserCancelled) || cancelledPattern.MatchString(err.Error())
}

// KindOf maps an error to its ErrorKind.
func KindOf(err error) ErrorKind {
	var execErr *ExecutorError
	switch {
	case err == nil:
		return KindNone
	case IsCancelled(err):
		return KindUserCancelled
	case errors.Is(err, ErrMissingNetwork):
		return KindMissingNetwork
	case errors.Is(err, ErrWrongNetwork):
		return KindWrongNetwork
	case errors.Is(err, ErrInvalidRecipient):
		return KindInvalidRecipient
	case errors.Is(err, ErrNoSigner):
		return KindNoSigner
	case errors.Is(err, ErrNoToken):
		return KindNoToken
	case errors.Is(err, ErrFeeExceedsAmount):
		return KindFeeExceedsAmount
	case errors.Is(err, ErrMissingBound), errors.Is(err, ErrMissingFee):
		return KindMissingBound
	case errors.Is(err, ErrInvalidAmount):
		return KindInvalidAmount
	case errors.As(err, &execErr):
		return KindExecutorFailure
	default:
		return KindUnknown
	}
}

// ErrorFormatter turns a send failure into a user facing message.
type ErrorFormatter interface {
	Format(err error, source *models.Network) string
}

// defaultFormatter prefixes the message with the source network name.
type defaultFormatter struct{}

func (defaultFormatter) Format(err error, source *models.Network) string {
	if source == nil || source.Name == "" {
		return err.Error()
	}
	return fmt.Sprintf("%s: %s", source.Name, err.Error())
}
