package datastores

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type (
	ContactID = int
	Contact   struct {
		ID         ContactID
		Firstname  string
		Lastname   string
		Phone      string
		Email      string
		Address    string
		CreatedAt  time.Time
		ModifiedAt time.Time
	}
)

// Stats aggregates a directory. MostRecent is nil when the directory is empty.
type Stats struct {
	Total       int
	WithEmail   int
	WithAddress int
	MostRecent  *Contact
}

type ContactsStore interface {
	Insert(context.Context, *Contact) (*Contact, error)
	FindByName(context.Context, string) ([]*Contact, error)
	FindByPhone(context.Context, string) (*Contact, error)
	FindByID(context.Context, ContactID) (*Contact, error)
	Update(context.Context, ContactID, *Contact) (*Contact, error)
	Patch(context.Context, ContactID, *Contact) (*Contact, error)
	Delete(context.Context, ContactID) error
	List(context.Context) ([]*Contact, error)
	Stats(context.Context) (*Stats, error)
}

// ContactsPersister reads and writes a whole directory at once.
type ContactsPersister interface {
	Load(context.Context) ([]*Contact, error)
	SaveAll(context.Context, []*Contact) error
}

var (
	ErrObjectNotFound = errors.New("store: object not found")
	ErrInvalidObject  = errors.New("store: invalid object")
	ErrDuplicatePhone = errors.New("store: duplicate phone number")
	ErrPersist        = errors.New("store: persist failed")
)

// ValidationError reports the first field of a candidate that cannot be accepted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidObject, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidObject }

// PersistError is returned along with the result of a mutation that was
// applied in memory but could not be written to the backing medium.
type PersistError struct{ Err error }

func (e *PersistError) Error() string { return ErrPersist.Error() + ": " + e.Err.Error() }

func (e *PersistError) Unwrap() []error { return []error{ErrPersist, e.Err} }
