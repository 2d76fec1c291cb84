package rpc

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/example/abacus/internal/ledger"
)

// toStatus maps ledger errors onto gRPC status codes. Unknown failures are
// reported without their cause.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	var code codes.Code
	switch {
	case errors.Is(err, ledger.ErrAccountNotFound),
		errors.Is(err, ledger.ErrTransactionNotFound),
		errors.Is(err, ledger.ErrEmptyResult):
		code = codes.NotFound
	case errors.Is(err, ledger.ErrTransferAccountNotFound):
		code = codes.FailedPrecondition
	case errors.Is(err, ledger.ErrInvalidFieldValue):
		code = codes.InvalidArgument
	case errors.Is(err, ledger.ErrAccountExists):
		code = codes.AlreadyExists
	case errors.Is(err, ledger.ErrConcurrentModification):
		code = codes.Aborted
	default:
		return status.Error(codes.Internal, "internal error")
	}
	return status.Error(code, err.Error())
}
