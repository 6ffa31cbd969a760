package presale

import (
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// Error is a presale rejection. Message is the user-visible text; Code is stable across releases.
type Error struct {
	Code    uint32
	Name    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Account validation failures
var (
	ErrHasOneViolated     = &Error{Code: 141, Name: "ConstraintHasOne", Message: "A has_one constraint was violated"}
	ErrConstraintViolated = &Error{Code: 143, Name: "ConstraintRaw", Message: "A raw constraint was violated"}
)

// Presale rejections
var (
	ErrNotEnoughTokensInAccount  = &Error{Code: 300, Name: "NotEnoughTokensInAccount", Message: "The user doesn't have enough tokens in their account"}
	ErrNotEnoughTokensInTreasury = &Error{Code: 301, Name: "NotEnoughTokensInFractionTreasury", Message: "There are not enough tokens in the fraction treasury to satisfy the request"}
	ErrPresaleAlreadyStarted     = &Error{Code: 302, Name: "PresaleAlreadyStarted", Message: "The presale cannot be started more than once"}
	ErrAmountIsZero              = &Error{Code: 303, Name: "AmountIsZero", Message: "Amount must be greater than zero"}
	ErrPresaleNotStarted         = &Error{Code: 304, Name: "PresaleHasNotStarted", Message: "The presale has not yet started"}
	ErrPresaleFinished           = &Error{Code: 305, Name: "PresaleIsFinished", Message: "The presale has already finished"}
	ErrMissingAccessToken        = &Error{Code: 306, Name: "MissingAccessToken", Message: "The user is missing a valid access token"}
	ErrAmountTooLarge            = &Error{Code: 307, Name: "AmountTooLarge", Message: "The user requested to purchase an amount greater than the maximum allowed"}
	ErrInsufficientFunds         = &Error{Code: 308, Name: "InsufficientFunds", Message: "The user doesn't have enough funds in their account to make the purchase"}
	ErrVestingPeriodNotFinished  = &Error{Code: 309, Name: "VestingPeriodNotFinished", Message: "The vesting period has not finished"}
	ErrVestingAccountEmpty       = &Error{Code: 310, Name: "VestingAccountIsEmpty", Message: "There are no tokens vested in the account"}
	ErrNumericalOverflow         = &Error{Code: 311, Name: "NumericalOverflowError", Message: "Numerical Overflow Error"}
	ErrVestingAlreadyInitialized = &Error{Code: 312, Name: "VestingAlreadyInitialized", Message: "The vesting account has already been initialized"}
)

func reject(op string, err *Error, fields ...zap.Field) *Error {
	zap.L().Warn("Presale operation rejected",
		append([]zap.Field{zap.String("operation", op), zap.String("reason", err.Name)}, fields...)...)
	return err
}

// requireHasOne rejects a passed account that differs from the one bound in stored state
func requireHasOne(op, field string, bound, passed solana.PublicKey) error {
	if bound.Equals(passed) {
		return nil
	}
	return reject(op, ErrHasOneViolated,
		zap.String("field", field),
		zap.String("expected", bound.String()),
		zap.String("got", passed.String()))
}

// requireConstraint rejects an account whose shape (mint, owner) does not fit the operation
func requireConstraint(op string, ok bool, what string) error {
	if ok {
		return nil
	}
	return reject(op, ErrConstraintViolated, zap.String("constraint", what))
}
