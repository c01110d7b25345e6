package datastores

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"
)

// ContactsDirectory implements [ContactsStore].
//
// Every successful mutation rewrites the whole directory through its
// [ContactsPersister] while the lock is held, so a phone uniqueness check and
// the write that follows it cannot interleave with another mutation.
type ContactsDirectory struct {
	persister ContactsPersister
	logger    *slog.Logger
	now       func() time.Time
	loadErr   error // set when hydration failed; the persisted file is then left untouched

	mu       sync.Mutex
	fold     cases.Caser
	nextID   ContactID
	byID     map[ContactID]*Contact
	byPhone  map[string]*Contact
	contacts []*Contact // insertion order, which is also file order
}

var _ ContactsStore = (*ContactsDirectory)(nil)

type DirectoryOption func(*ContactsDirectory)

// WithClock replaces [time.Now] as the source of record timestamps.
func WithClock(now func() time.Time) DirectoryOption {
	return func(d *ContactsDirectory) { d.now = now }
}

// NewContactsDirectory hydrates a directory from persister. A load failure is
// logged and yields an empty directory that never saves, so whatever the
// persister holds is not overwritten.
func NewContactsDirectory(
	ctx context.Context,
	persister ContactsPersister,
	logger *slog.Logger,
	opts ...DirectoryOption,
) *ContactsDirectory {
	d := &ContactsDirectory{
		persister: persister,
		logger:    logger,
		now:       time.Now,
		fold:      cases.Fold(),
		nextID:    1,
		byID:      make(map[ContactID]*Contact),
		byPhone:   make(map[string]*Contact),
	}
	for _, opt := range opts {
		opt(d)
	}

	contacts, err := persister.Load(ctx)
	if err != nil {
		logger.LogAttrs(ctx, slog.LevelWarn, "could not load contacts, starting empty", slog.Any("err", err))
		d.loadErr = err
		return d
	}
	for _, c := range contacts {
		if err := d.admit(c); err != nil {
			logger.LogAttrs(ctx, slog.LevelWarn, "skipping loaded contact", slog.Int("id", c.ID), slog.Any("err", err))
		}
	}
	logger.LogAttrs(ctx, slog.LevelDebug, "contacts loaded", slog.Int("count", len(d.contacts)), slog.Int("next_id", d.nextID))
	return d
}

// admit adds a loaded record as is, timestamps and identifier included.
func (d *ContactsDirectory) admit(c *Contact) error {
	if err := validate(c); err != nil {
		return err
	}
	if c.ID <= 0 {
		return &ValidationError{Field: "id", Reason: "is not positive"}
	}
	if _, ok := d.byID[c.ID]; ok {
		return &ValidationError{Field: "id", Reason: "is already used"}
	}
	if _, ok := d.byPhone[c.Phone]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicatePhone, c.Phone)
	}
	if c.ModifiedAt.Before(c.CreatedAt) {
		c.ModifiedAt = c.CreatedAt
	}
	d.add(c)
	d.nextID = max(d.nextID, c.ID+1)
	return nil
}

func (d *ContactsDirectory) add(c *Contact) {
	d.contacts = append(d.contacts, c)
	d.byID[c.ID] = c
	d.byPhone[c.Phone] = c
}

// persist must be called with the lock held.
func (d *ContactsDirectory) persist(ctx context.Context) error {
	if d.loadErr != nil {
		return &PersistError{Err: fmt.Errorf("not saving over contacts that failed to load: %w", d.loadErr)}
	}
	err := d.persister.SaveAll(ctx, d.contacts)
	if err != nil {
		return &PersistError{Err: err}
	}
	return nil
}

func (d *ContactsDirectory) Insert(ctx context.Context, c *Contact) (*Contact, error) {
	if err := validate(c); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.byPhone[c.Phone]; ok {
		return nil, fmt.Errorf("%w: %q", ErrDuplicatePhone, c.Phone)
	}

	now := d.now()
	record := &Contact{
		ID:         d.nextID,
		Firstname:  c.Firstname,
		Lastname:   c.Lastname,
		Phone:      c.Phone,
		Email:      c.Email,
		Address:    c.Address,
		CreatedAt:  now,
		ModifiedAt: now,
	}
	d.nextID++
	d.add(record)
	return record.clone(), d.persist(ctx)
}

func (d *ContactsDirectory) FindByName(_ context.Context, query string) ([]*Contact, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	query = d.fold.String(query)
	found := []*Contact{}
	for _, c := range d.contacts {
		if strings.Contains(d.fold.String(c.Firstname), query) ||
			strings.Contains(d.fold.String(c.Lastname), query) {
			found = append(found, c.clone())
		}
	}
	return found, nil
}

func (d *ContactsDirectory) FindByPhone(_ context.Context, phone string) (*Contact, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.byPhone[phone]
	if !ok {
		return nil, fmt.Errorf("%w: phone %q", ErrObjectNotFound, phone)
	}
	return c.clone(), nil
}

func (d *ContactsDirectory) FindByID(_ context.Context, id ContactID) (*Contact, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrObjectNotFound, id)
	}
	return c.clone(), nil
}

func (d *ContactsDirectory) Update(ctx context.Context, id ContactID, c *Contact) (*Contact, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	record, ok := d.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrObjectNotFound, id)
	}
	return d.update(ctx, record, c)
}

// Patch is Update where blank fields of c keep their current value. The merge
// happens under the same lock as the write.
func (d *ContactsDirectory) Patch(ctx context.Context, id ContactID, c *Contact) (*Contact, error) {
	if c == nil {
		return nil, &ValidationError{Field: "contact", Reason: "is missing"}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	record, ok := d.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrObjectNotFound, id)
	}
	keep := func(s, current string) string {
		if blank(s) {
			return current
		}
		return s
	}
	return d.update(ctx, record, &Contact{
		Firstname: keep(c.Firstname, record.Firstname),
		Lastname:  keep(c.Lastname, record.Lastname),
		Phone:     keep(c.Phone, record.Phone),
		Email:     keep(c.Email, record.Email),
		Address:   keep(c.Address, record.Address),
	})
}

// update must be called with the lock held.
func (d *ContactsDirectory) update(ctx context.Context, record, c *Contact) (*Contact, error) {
	if err := validate(c); err != nil {
		return nil, err
	}
	if other, ok := d.byPhone[c.Phone]; ok && other.ID != record.ID {
		return nil, fmt.Errorf("%w: %q", ErrDuplicatePhone, c.Phone)
	}

	delete(d.byPhone, record.Phone)
	record.Firstname = c.Firstname
	record.Lastname = c.Lastname
	record.Phone = c.Phone
	record.Email = c.Email
	record.Address = c.Address
	record.ModifiedAt = latest(d.now(), record.CreatedAt)
	d.byPhone[record.Phone] = record
	return record.clone(), d.persist(ctx)
}

func (d *ContactsDirectory) Delete(ctx context.Context, id ContactID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	record, ok := d.byID[id]
	if !ok {
		return fmt.Errorf("%w: id %d", ErrObjectNotFound, id)
	}
	delete(d.byID, id)
	delete(d.byPhone, record.Phone)
	d.contacts = slices.DeleteFunc(d.contacts, func(c *Contact) bool { return c.ID == id })
	return d.persist(ctx)
}

// List returns every contact ordered by last name then first name. Contacts
// with equal names keep their insertion order.
func (d *ContactsDirectory) List(_ context.Context) ([]*Contact, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	contacts := make([]*Contact, 0, len(d.contacts))
	for _, c := range d.contacts {
		contacts = append(contacts, c.clone())
	}
	slices.SortStableFunc(contacts, func(a, b *Contact) int {
		return cmp.Or(
			strings.Compare(d.fold.String(a.Lastname), d.fold.String(b.Lastname)),
			strings.Compare(d.fold.String(a.Firstname), d.fold.String(b.Firstname)),
		)
	})
	return contacts, nil
}

func (d *ContactsDirectory) Stats(_ context.Context) (*Stats, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	stats := &Stats{Total: len(d.contacts)}
	var recent *Contact
	for _, c := range d.contacts {
		if !blank(c.Email) {
			stats.WithEmail++
		}
		if !blank(c.Address) {
			stats.WithAddress++
		}
		if recent == nil || c.CreatedAt.After(recent.CreatedAt) ||
			(c.CreatedAt.Equal(recent.CreatedAt) && c.ID > recent.ID) {
			recent = c
		}
	}
	if recent != nil {
		stats.MostRecent = recent.clone()
	}
	return stats, nil
}

// Len returns the number of contacts in the directory.
func (d *ContactsDirectory) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.contacts)
}

func (c *Contact) clone() *Contact { cc := *c; return &cc }

func latest(a, b time.Time) time.Time {
	if a.Before(b) {
		return b
	}
	return a
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

// validate checks the fields a caller controls. Separators and line breaks
// are refused because records are stored one per line, pipe-separated.
func validate(c *Contact) error {
	if c == nil {
		return &ValidationError{Field: "contact", Reason: "is missing"}
	}
	fields := []struct {
		name, value string
		required    bool
	}{
		{"firstname", c.Firstname, true},
		{"lastname", c.Lastname, true},
		{"phone", c.Phone, true},
		{"email", c.Email, false},
		{"address", c.Address, false},
	}
	for _, f := range fields {
		if f.required && blank(f.value) {
			return &ValidationError{Field: f.name, Reason: "is blank"}
		}
		if strings.ContainsAny(f.value, fieldSeparator+"\r\n") {
			return &ValidationError{Field: f.name, Reason: "contains a reserved character"}
		}
	}
	return nil
}
