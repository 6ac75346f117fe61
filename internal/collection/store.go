// Package collection implements the operations on a launch document: list,
// add, update, remove and duplicate entries, keyed by name.
//
// Every operation re-reads the document; nothing is cached between calls.
// Mutations run a full read-modify-write cycle under an in-process mutex
// and the provider's cross-process lock, and rewrite only the changed
// elements when the existing text allows it. Subscribers of the store's
// Signal are notified after each successful mutation.
package collection

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/joeycumines/launchman/internal/launch"
	"github.com/joeycumines/launchman/internal/notify"
	"github.com/joeycumines/launchman/internal/storage"
)

// Store manages the launch document at a single path.
type Store struct {
	mu       sync.Mutex // Serializes mutations within this process
	provider storage.Provider
	path     string
	signal   *notify.Signal
	logger   *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithSignal makes the store fire s instead of a private signal, so that
// several producers (e.g. a file watcher) can share one.
func WithSignal(s *notify.Signal) Option {
	return func(st *Store) { st.signal = s }
}

// WithLogger sets the logger used for warnings. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(st *Store) { st.logger = l }
}

// NewStore creates a store for the document at path.
func NewStore(provider storage.Provider, path string, opts ...Option) (*Store, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}
	if path == "" {
		return nil, fmt.Errorf("document path cannot be empty")
	}
	s := &Store{provider: provider, path: path}
	for _, opt := range opts {
		opt(s)
	}
	if s.signal == nil {
		s.signal = new(notify.Signal)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s, nil
}

// Path returns the document path.
func (s *Store) Path() string { return s.path }

// Signal returns the change signal fired by this store.
func (s *Store) Signal() *notify.Signal { return s.signal }

// Refresh fires the change signal without touching the document.
func (s *Store) Refresh() { s.signal.Notify() }

// List returns the configurations in document order. An absent document
// yields an empty list; a malformed one yields a *launch.ParseError.
// Compounds are not decoded.
func (s *Store) List(ctx context.Context) ([]launch.Configuration, error) {
	text, err := s.provider.ReadText(ctx, s.path)
	if err != nil {
		if storage.IsNotExist(err) {
			return []launch.Configuration{}, nil
		}
		return nil, err
	}
	return launch.DecodeConfigurations(text)
}

// Load returns the full document. An absent document yields a new empty
// one, with exists false.
func (s *Store) Load(ctx context.Context) (doc *launch.Document, exists bool, err error) {
	text, err := s.provider.ReadText(ctx, s.path)
	if err != nil {
		if storage.IsNotExist(err) {
			return launch.NewDocument(), false, nil
		}
		return nil, false, err
	}
	doc, err = launch.Decode(text)
	if err != nil {
		return nil, true, err
	}
	return doc, true, nil
}

// Get returns the configuration, or failing that the compound, named name.
func (s *Store) Get(ctx context.Context, name string) (launch.Entry, error) {
	doc, exists, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, &NotFoundError{Name: name, Err: storage.ErrNotExist}
	}
	if i := doc.ConfigurationIndex(name); i >= 0 {
		return doc.Configurations[i], nil
	}
	if i := doc.CompoundIndex(name); i >= 0 {
		return doc.Compounds[i], nil
	}
	return nil, &NotFoundError{Name: name}
}

// Init creates an empty document. It fails with ErrDocumentExists when one
// is already present, malformed or not.
func (s *Store) Init(ctx context.Context) error {
	err := s.withLock(ctx, func() error {
		_, err := s.provider.ReadText(ctx, s.path)
		switch {
		case err == nil:
			return ErrDocumentExists
		case !storage.IsNotExist(err):
			return err
		}
		return s.provider.WriteText(ctx, s.path, launch.Encode(launch.NewDocument()))
	})
	if err != nil {
		return err
	}
	s.signal.Notify()
	return nil
}

// Add appends a configuration or compound, creating the document (and its
// directory) when absent. A name already used by any entry is rejected
// with *DuplicateNameError.
func (s *Store) Add(ctx context.Context, entry launch.Entry) error {
	err := s.mutate(ctx, func(doc *launch.Document, _ bool) error {
		return addEntry(doc, entry)
	})
	if err != nil {
		return err
	}
	s.signal.Notify()
	return nil
}

// Update replaces the entry named oldName in place, searching the
// configurations first and then the compounds. The replacement must be of
// the same kind. Renaming onto another entry's name is rejected with
// *DuplicateNameError. Compound references to a renamed configuration are
// not rewritten.
func (s *Store) Update(ctx context.Context, oldName string, entry launch.Entry) error {
	if err := s.requireDocument(ctx, oldName); err != nil {
		return err
	}
	err := s.mutate(ctx, func(doc *launch.Document, exists bool) error {
		if !exists {
			return &NotFoundError{Name: oldName, Err: storage.ErrNotExist}
		}
		return updateEntry(doc, oldName, entry)
	})
	if err != nil {
		return err
	}
	s.signal.Notify()
	return nil
}

// Remove deletes the first configuration named name, or failing that the
// first compound, and drops name from every compound's references. When
// nothing matches it returns *NotFoundError and leaves the document
// untouched.
func (s *Store) Remove(ctx context.Context, name string) error {
	if err := s.requireDocument(ctx, name); err != nil {
		return err
	}
	err := s.mutate(ctx, func(doc *launch.Document, exists bool) error {
		if !exists {
			return &NotFoundError{Name: name, Err: storage.ErrNotExist}
		}
		return removeEntry(doc, name)
	})
	if err != nil {
		return err
	}
	s.signal.Notify()
	return nil
}

// Duplicate appends a copy of entry named by CopyName, to the
// configurations or the compounds depending on its kind, and returns the
// copy. entry need not be present in the document.
func (s *Store) Duplicate(ctx context.Context, entry launch.Entry) (launch.Entry, error) {
	var created launch.Entry
	err := s.mutate(ctx, func(doc *launch.Document, _ bool) error {
		var err error
		created, err = duplicateEntry(doc, entry)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.signal.Notify()
	return created, nil
}

// requireDocument fails with *NotFoundError when the document is absent,
// without taking the provider lock (which may create the directory).
func (s *Store) requireDocument(ctx context.Context, name string) error {
	_, err := s.provider.ReadText(ctx, s.path)
	if storage.IsNotExist(err) {
		return &NotFoundError{Name: name, Err: storage.ErrNotExist}
	}
	return nil
}

// mutate runs one read-modify-write cycle. fn edits a copy of the current
// document (a new empty one when absent); nothing is written when fn fails
// or leaves an existing document unchanged.
func (s *Store) mutate(ctx context.Context, fn func(doc *launch.Document, exists bool) error) error {
	return s.withLock(ctx, func() error {
		return s.mutateInternal(ctx, fn)
	})
}

// withLock runs fn holding s.mu and the provider lock for the document.
func (s *Store) withLock(ctx context.Context, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	release, err := s.provider.Lock(ctx, s.path)
	if err != nil {
		return err
	}
	defer func() {
		if err := release(); err != nil {
			s.logger.Warn("failed to release launch document lock", "path", s.path, "error", err)
		}
	}()

	return fn()
}

// mutateInternal ASSUMES that s.mu and the provider lock are held.
func (s *Store) mutateInternal(ctx context.Context, fn func(doc *launch.Document, exists bool) error) error {
	original, err := s.provider.ReadText(ctx, s.path)
	exists := true
	var before *launch.Document
	switch {
	case err == nil:
		if before, err = launch.Decode(original); err != nil {
			return err
		}
	case storage.IsNotExist(err):
		exists = false
		original = nil
		before = launch.NewDocument()
	default:
		return err
	}

	after := before.Clone()
	if err := fn(after, exists); err != nil {
		return err
	}
	if exists && after.Equal(before) {
		return nil
	}

	text, patched := launch.Rewrite(original, before, after)
	if exists && !patched && !bytes.Equal(launch.StripComments(original), original) {
		s.logger.Warn("launch document rewritten in full; comments were not preserved", "path", s.path)
	}

	// Past this point the write is issued and not abandoned.
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.provider.WriteText(ctx, s.path, text); err != nil {
		return err
	}
	s.logger.Debug("launch document written", "path", s.path, "patched", patched, "bytes", len(text))
	return nil
}

func addEntry(doc *launch.Document, entry launch.Entry) error {
	if entry == nil || entry.EntryName() == "" {
		return ErrEmptyName
	}
	if doc.HasName(entry.EntryName()) {
		return &DuplicateNameError{Name: entry.EntryName()}
	}
	if c, ok := asConfiguration(entry); ok {
		doc.Configurations = append(doc.Configurations, c.Clone())
		return nil
	}
	if c, ok := asCompound(entry); ok {
		doc.Compounds = append(doc.Compounds, c.Clone())
		doc.HasCompounds = true
		return nil
	}
	return fmt.Errorf("unsupported entry type %T", entry)
}

func updateEntry(doc *launch.Document, oldName string, entry launch.Entry) error {
	if entry == nil || entry.EntryName() == "" {
		return ErrEmptyName
	}
	newName := entry.EntryName()
	if newName != oldName && doc.HasName(newName) {
		return &DuplicateNameError{Name: newName}
	}

	if i := doc.ConfigurationIndex(oldName); i >= 0 {
		c, ok := asConfiguration(entry)
		if !ok {
			return fmt.Errorf("update %q: %w", oldName, ErrKindMismatch)
		}
		doc.Configurations[i] = c.Clone()
		return nil
	}
	if i := doc.CompoundIndex(oldName); i >= 0 {
		c, ok := asCompound(entry)
		if !ok {
			return fmt.Errorf("update %q: %w", oldName, ErrKindMismatch)
		}
		doc.Compounds[i] = c.Clone()
		return nil
	}
	return &NotFoundError{Name: oldName}
}

func removeEntry(doc *launch.Document, name string) error {
	if i := doc.ConfigurationIndex(name); i >= 0 {
		doc.Configurations = append(doc.Configurations[:i], doc.Configurations[i+1:]...)
	} else if i := doc.CompoundIndex(name); i >= 0 {
		doc.Compounds = append(doc.Compounds[:i], doc.Compounds[i+1:]...)
	} else {
		return &NotFoundError{Name: name}
	}
	for i := range doc.Compounds {
		doc.Compounds[i].RemoveReference(name)
	}
	return nil
}

func duplicateEntry(doc *launch.Document, entry launch.Entry) (launch.Entry, error) {
	if entry == nil || entry.EntryName() == "" {
		return nil, ErrEmptyName
	}
	name := CopyName(doc, entry.EntryName())
	if c, ok := asConfiguration(entry); ok {
		dup := c.Clone()
		dup.Name = name
		doc.Configurations = append(doc.Configurations, dup)
		return dup.Clone(), nil
	}
	if c, ok := asCompound(entry); ok {
		dup := c.Clone()
		dup.Name = name
		doc.Compounds = append(doc.Compounds, dup)
		doc.HasCompounds = true
		return dup.Clone(), nil
	}
	return nil, fmt.Errorf("unsupported entry type %T", entry)
}
