package dictionary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/JakeFAU/safescrape/internal/domainguard"
	"github.com/JakeFAU/safescrape/internal/hash/sha256"
	"github.com/JakeFAU/safescrape/internal/metrics"
)

// ErrEmptyList is returned when a block-list resource holds no entries.
var ErrEmptyList = errors.New("block-list is empty")

// Source opens the named flat text resources that back the block-lists.
type Source interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// Config names the three resources and tunes the set prefilter.
type Config struct {
	TermsFile   string
	NamesFile   string
	DomainsFile string
	BloomFPRate float64
}

// Dictionaries is one immutable generation of loaded block-lists.
type Dictionaries struct {
	Terms    *Lexicon
	Names    *Lexicon
	Domains  *domainguard.List
	LoadedAt time.Time
	// Fingerprint digests the entries of all three lists.
	Fingerprint string
}

// Store loads Dictionaries lazily and at most once. Concurrent first callers
// share a single in-flight load; a failed load is retried by the next call.
type Store struct {
	source  Source
	cfg     Config
	logger  *zap.Logger
	group   singleflight.Group
	current atomic.Pointer[Dictionaries]
}

// NewStore creates a Store reading from source.
func NewStore(source Source, cfg Config, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{source: source, cfg: cfg, logger: logger}
}

// Loaded reports whether a generation is available.
func (s *Store) Loaded() bool {
	return s.current.Load() != nil
}

// Load returns the cached generation, loading it on first use.
func (s *Store) Load(ctx context.Context) (*Dictionaries, error) {
	if d := s.current.Load(); d != nil {
		return d, nil
	}
	v, err, _ := s.group.Do("load", func() (any, error) {
		if d := s.current.Load(); d != nil {
			return d, nil
		}
		return s.refresh(context.WithoutCancel(ctx))
	})
	if err != nil {
		return nil, err
	}
	return v.(*Dictionaries), nil
}

// Reload reads every resource again and swaps the new generation in whole.
// On failure the previous generation stays in place.
func (s *Store) Reload(ctx context.Context) (*Dictionaries, error) {
	v, err, _ := s.group.Do("reload", func() (any, error) {
		return s.refresh(context.WithoutCancel(ctx))
	})
	if err != nil {
		return nil, err
	}
	return v.(*Dictionaries), nil
}

func (s *Store) refresh(ctx context.Context) (*Dictionaries, error) {
	start := time.Now()
	terms, err := s.readList(ctx, "terms", s.cfg.TermsFile)
	if err != nil {
		return nil, err
	}
	names, err := s.readList(ctx, "names", s.cfg.NamesFile)
	if err != nil {
		return nil, err
	}
	domains, err := s.readList(ctx, "domains", s.cfg.DomainsFile)
	if err != nil {
		return nil, err
	}

	d := &Dictionaries{
		Terms:       NewLexicon("terms", terms, s.cfg.BloomFPRate),
		Names:       NewLexicon("names", names, s.cfg.BloomFPRate),
		Domains:     domainguard.NewList(domains),
		LoadedAt:    time.Now().UTC(),
		Fingerprint: sha256.Fingerprint(terms, names, domains),
	}
	prev := s.current.Swap(d)

	metrics.SetDictionaryEntries("terms", d.Terms.Len())
	metrics.SetDictionaryEntries("names", d.Names.Len())
	metrics.SetDictionaryEntries("domains", d.Domains.Len())
	s.logger.Info("block-lists loaded",
		zap.Int("terms", d.Terms.Len()),
		zap.Int("names", d.Names.Len()),
		zap.Int("domains", d.Domains.Len()),
		zap.String("fingerprint", d.Fingerprint),
		zap.Bool("changed", prev == nil || prev.Fingerprint != d.Fingerprint),
		zap.Duration("duration", time.Since(start)),
	)
	return d, nil
}

func (s *Store) readList(ctx context.Context, kind, name string) ([]string, error) {
	if s.source == nil {
		return nil, fmt.Errorf("load %s list %q: no source configured", kind, name)
	}
	rc, err := s.source.Open(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("load %s list %q: %w", kind, name, err)
	}
	defer func() {
		if cerr := rc.Close(); cerr != nil {
			s.logger.Debug("Failed to close block-list reader", zap.String("list", name), zap.Error(cerr))
		}
	}()
	words, err := ParseWords(rc)
	if err != nil {
		return nil, fmt.Errorf("load %s list %q: %w", kind, name, err)
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("load %s list %q: %w", kind, name, ErrEmptyList)
	}
	return words, nil
}
