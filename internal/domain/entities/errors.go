package entities

import (
	"errors"
	"strings"
)

var (
	ErrInvalidPair         = errors.New("input and output tokens are identical")
	ErrInvalidEstimate     = errors.New("estimate must be greater than zero")
	ErrOracleUnavailable   = errors.New("oracle unavailable")
	ErrDeadlineExceeded    = errors.New("swap deadline exceeded")
	ErrSlippageExceeded    = errors.New("realized output below minimum")
	ErrUnauthorized        = errors.New("caller is not authorized")
	ErrUnexpectedSender    = errors.New("unexpected value transfer")
	ErrUnsupportedToken    = errors.New("token not supported")
	ErrInvalidRoute        = errors.New("route not available")
	ErrInvalidTolerance    = errors.New("tolerance fraction must be in (0, 1)")
	ErrNegativeAmount      = errors.New("amount must not be negative")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// Revert reasons emitted by the swap contract and the router it calls.
const (
	ReasonNotGovernor        = "not the governor"
	ReasonNotPendingGovernor = "not the pending governor"
	ReasonUnexpectedSender   = "unexpected-eth-sender"
	ReasonExpired            = "UniswapV2Router: EXPIRED"
	ReasonInsufficientOutput = "UniswapV2Router: INSUFFICIENT_OUTPUT_AMOUNT"
	ReasonUnsupportedToken   = "ib token not supported"
	ReasonSameToken          = "same ib token"
	ReasonNoRoute            = "UniswapV2Library: INVALID_PATH"
	ReasonInsufficientInput  = "UniswapV2Library: INSUFFICIENT_INPUT_AMOUNT"
	ReasonInsufficientFunds  = "insufficient balance"
)

var revertKinds = []struct {
	fragment string
	kind     error
}{
	{"not the governor", ErrUnauthorized},
	{"not the pending governor", ErrUnauthorized},
	{"unexpected-eth-sender", ErrUnexpectedSender},
	{"EXPIRED", ErrDeadlineExceeded},
	{"INSUFFICIENT_OUTPUT_AMOUNT", ErrSlippageExceeded},
	{"not supported", ErrUnsupportedToken},
	{"same ib token", ErrInvalidPair},
	{"INVALID_PATH", ErrInvalidRoute},
	{"insufficient balance", ErrInsufficientBalance},
}

// RevertError is a rejection reported by the swap collaborator. It unwraps to
// the matching sentinel when the reason is recognised.
type RevertError struct {
	Reason string
	kind   error
}

// NewRevertError classifies a revert reason
func NewRevertError(reason string) *RevertError {
	e := &RevertError{Reason: reason}
	for _, rk := range revertKinds {
		if strings.Contains(reason, rk.fragment) {
			e.kind = rk.kind
			break
		}
	}
	return e
}

func (e *RevertError) Error() string {
	if e.Reason == "" {
		return "execution reverted"
	}
	return "execution reverted: " + e.Reason
}

func (e *RevertError) Unwrap() error {
	return e.kind
}

// RevertReason extracts the revert reason from err, if any
func RevertReason(err error) (string, bool) {
	var re *RevertError
	if errors.As(err, &re) {
		return re.Reason, true
	}
	return "", false
}
