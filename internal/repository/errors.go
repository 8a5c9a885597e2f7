package repository

import (
	"errors"

	"github.com/lib/pq"
)

// Sentinel outcomes of the conditional writes. Services translate them into API errors.
var (
	ErrAlreadyReversed     = errors.New("ledger entry already reversed")
	ErrInsufficientBalance = errors.New("insufficient crystal balance")
	ErrOutOfStock          = errors.New("item out of stock")
	ErrMembershipChanged   = errors.New("student is not on the origin team")
	ErrCrossRoom           = errors.New("teams belong to different rooms")
	ErrTransferLimit       = errors.New("transfer limit reached for phase")
	ErrDuplicateLeaderCode = errors.New("leader code already in use")
	ErrGrantIDReused       = errors.New("grant id already used for a different grant")
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
