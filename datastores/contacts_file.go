package datastores

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	fieldSeparator  = "|"
	fieldCount      = 8
	timestampLayout = time.DateTime // yyyy-MM-dd HH:mm:ss
)

// ContactsFile implements [ContactsPersister] over a flat file holding one
// contact per line:
//
//	id|firstname|lastname|phone|email|address|created|modified
type ContactsFile struct {
	Path   string
	Logger *slog.Logger
}

var _ ContactsPersister = (*ContactsFile)(nil)

// Load reads the file. A missing file is an empty directory. Lines that cannot
// be parsed are skipped.
func (f *ContactsFile) Load(ctx context.Context) ([]*Contact, error) {
	file, err := os.Open(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("contacts file: opening %s: %w", f.Path, err)
	}
	defer file.Close()

	contacts, err := f.decode(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("contacts file: reading %s: %w", f.Path, err)
	}
	return contacts, nil
}

// decode reads whole lines with no length limit, so a long record never fails
// the load.
func (f *ContactsFile) decode(ctx context.Context, r io.Reader) ([]*Contact, error) {
	var contacts []*Contact
	br := bufio.NewReader(r)
	for lineno := 1; ; lineno++ {
		line, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if strings.TrimSpace(line) != "" {
			c, perr := parseLine(line)
			if perr != nil {
				f.logger().LogAttrs(ctx, slog.LevelWarn, "skipping malformed contacts line",
					slog.String("path", f.Path), slog.Int("line", lineno), slog.Any("err", perr))
			} else {
				contacts = append(contacts, c)
			}
		}
		if err != nil {
			return contacts, nil
		}
	}
}

// SaveAll replaces the file content with contacts, in the given order. The new
// content is written aside and renamed over the previous file.
func (f *ContactsFile) SaveAll(_ context.Context, contacts []*Contact) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(f.Path), "."+filepath.Base(f.Path)+".*")
	if err != nil {
		return fmt.Errorf("contacts file: creating temporary file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	w := bufio.NewWriter(tmp)
	for _, c := range contacts {
		w.WriteString(formatLine(c))
		w.WriteByte('\n')
	}
	if err = w.Flush(); err != nil {
		return fmt.Errorf("contacts file: writing %s: %w", tmp.Name(), err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("contacts file: syncing %s: %w", tmp.Name(), err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("contacts file: closing %s: %w", tmp.Name(), err)
	}
	if err = os.Chmod(tmp.Name(), 0o600); err != nil {
		return fmt.Errorf("contacts file: chmod %s: %w", tmp.Name(), err)
	}
	if err = os.Rename(tmp.Name(), f.Path); err != nil {
		return fmt.Errorf("contacts file: replacing %s: %w", f.Path, err)
	}
	return nil
}

func (f *ContactsFile) logger() *slog.Logger {
	if f.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return f.Logger
}

func formatLine(c *Contact) string {
	return strings.Join([]string{
		strconv.Itoa(c.ID),
		c.Firstname,
		c.Lastname,
		c.Phone,
		c.Email,
		c.Address,
		c.CreatedAt.Format(timestampLayout),
		c.ModifiedAt.Format(timestampLayout),
	}, fieldSeparator)
}

// parseLine accepts extra trailing fields and ignores them.
func parseLine(line string) (*Contact, error) {
	fields := strings.Split(line, fieldSeparator)
	if len(fields) < fieldCount {
		return nil, fmt.Errorf("got %d fields, want %d", len(fields), fieldCount)
	}
	id, err := strconv.Atoi(fields[0])
	if err != nil {
		return nil, fmt.Errorf("id: %w", err)
	}
	// Wall times carry no offset, so one repeated by a daylight saving
	// fall-back may reload an hour off.
	created, err := time.ParseInLocation(timestampLayout, fields[6], time.Local)
	if err != nil {
		return nil, fmt.Errorf("created: %w", err)
	}
	modified, err := time.ParseInLocation(timestampLayout, fields[7], time.Local)
	if err != nil {
		return nil, fmt.Errorf("modified: %w", err)
	}
	return &Contact{
		ID:         id,
		Firstname:  fields[1],
		Lastname:   fields[2],
		Phone:      fields[3],
		Email:      fields[4],
		Address:    fields[5],
		CreatedAt:  created,
		ModifiedAt: modified,
	}, nil
}

// NopPersister implements [ContactsPersister] for memory-only directories.
type NopPersister struct{}

var _ ContactsPersister = NopPersister{}

func (NopPersister) Load(context.Context) ([]*Contact, error) { return nil, nil }

func (NopPersister) SaveAll(context.Context, []*Contact) error { return nil }
