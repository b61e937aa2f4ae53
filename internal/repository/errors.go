// Package repository holds the MySQL data access layer.  Lookups that find
// nothing return the sentinel errors below so services can translate them
// without inspecting SQL errors.
package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/cinema-booking/internal/database"
)

var (
	ErrHallNotFound    = errors.New("hall not found")
	ErrHallNameExists  = errors.New("hall name already exists")
	ErrMovieNotFound   = errors.New("movie not found")
	ErrShowingNotFound = errors.New("showing not found")
	ErrBookingNotFound = errors.New("booking not found")
	ErrUsernameExists  = errors.New("username already exists")

	// ErrStaleShowing means the showing row changed between read and write;
	// the conditional update matched nothing.
	ErrStaleShowing = errors.New("showing was modified concurrently")

	// ErrDuplicate signals a unique-key violation, e.g. a second active
	// booking for the same seat.
	ErrDuplicate = errors.New("duplicate entry")
)

var errForeignTx = errors.New("repository: transaction was not started by database.SQLTxManager")

func unwrap(tx database.Tx) error {
	if database.UnwrapTx(tx) == nil {
		return errForeignTx
	}
	return nil
}

// likePrefix escapes s for use inside a LIKE pattern.
func likePrefix(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func wrapf(err error, format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, err)...)
}
