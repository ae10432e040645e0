package snapshot

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/gowebpki/jcs"
	"golang.org/x/sync/errgroup"

	"github.com/finops-claw-gang/snapdrift/internal/document"
	"github.com/finops-claw-gang/snapdrift/internal/faults"
)

// Waiter gates each document read. *ratelimit.ReadLimiter satisfies it.
type Waiter interface {
	Wait(ctx context.Context, root string) error
}

// LoadOptions configures a Loader.
type LoadOptions struct {
	Strategy        Strategy
	Pattern         string
	Separator       string
	IdentifierField string
	Ambiguity       AmbiguityPolicy
	Filter          *document.Filter
	Concurrency     int
	Limiter         Waiter
	// AssociationSuffixes lists file-stem suffixes (e.g. "_instanceView") of
	// association documents; such files are left out of base sets.
	AssociationSuffixes []string
	// Exclude lists file names never loaded, such as a summary document.
	Exclude []string
}

const (
	DefaultPattern         = "*.json"
	DefaultSeparator       = "-"
	DefaultIdentifierField = "id"
	DefaultConcurrency     = 8
)

func (o LoadOptions) withDefaults() LoadOptions {
	if o.Strategy == "" {
		o.Strategy = StrategyIdentifier
	}
	if o.Pattern == "" {
		o.Pattern = DefaultPattern
	}
	if o.Separator == "" {
		o.Separator = DefaultSeparator
	}
	if o.IdentifierField == "" {
		o.IdentifierField = DefaultIdentifierField
	}
	if o.Ambiguity == "" {
		o.Ambiguity = AmbiguityPickFirst
	}
	if o.Concurrency < 1 {
		o.Concurrency = DefaultConcurrency
	}
	return o
}

// Loader builds resource sets from snapshot directories.
type Loader struct {
	opts   LoadOptions
	logger *slog.Logger
}

// NewLoader returns a Loader. A nil logger uses slog.Default().
func NewLoader(opts LoadOptions, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{opts: opts.withDefaults(), logger: logger}
}

// Options returns the effective options.
func (l *Loader) Options() LoadOptions { return l.opts }

// candidate is a parsed file waiting for a key.
type candidate struct {
	res    Resource
	failed bool
}

// Load reads every matching base document in dir and keys it with the configured
// strategy. dir must exist. Unparsable files and identity collisions become warnings.
func (l *Loader) Load(ctx context.Context, dir, category string, side Side) (*ResourceSet, []Warning, error) {
	names, err := ListNames(dir, l.opts.Pattern)
	if err != nil {
		return nil, nil, err
	}
	names = filterNames(names, func(name string) bool {
		return l.associationSuffix(name) == "" && !l.excluded(name)
	})

	cands, warnings, err := l.readAll(ctx, dir, category, side, names)
	if err != nil {
		return nil, nil, err
	}

	keyed := make([]Resource, 0, len(cands))
	for _, c := range cands {
		if c.failed {
			continue
		}
		key, ok := l.keyFor(c.res)
		if !ok {
			l.logger.Warn("document has no identifier, excluded",
				"category", category, "side", side, "path", c.res.Path, "field", l.opts.IdentifierField)
			continue
		}
		c.res.Key = key
		keyed = append(keyed, c.res)
	}

	resources, ambiguity := l.resolveCollisions(keyed, category, side)
	warnings = append(warnings, ambiguity...)
	l.logWarnings(warnings)
	return newResourceSet(category, side, resources), warnings, nil
}

// LoadAssociations reads association documents named <base><suffix>.json in dir.
// With the identifier strategy they are keyed by the identifier of the sibling base
// document <base>.json; a missing sibling is a warning and the association is skipped.
func (l *Loader) LoadAssociations(ctx context.Context, dir, category string, side Side, suffix string) (*ResourceSet, []Warning, error) {
	names, err := ListNames(dir, l.opts.Pattern)
	if err != nil {
		return nil, nil, err
	}
	names = filterNames(names, func(name string) bool { return l.associationSuffix(name) == suffix })

	cands, warnings, err := l.readAll(ctx, dir, category, side, names)
	if err != nil {
		return nil, nil, err
	}

	parents := make(map[string]parentLookup)
	keyed := make([]Resource, 0, len(cands))
	for _, c := range cands {
		if c.failed {
			continue
		}

		if l.opts.Strategy != StrategyIdentifier {
			key, _ := l.keyFor(c.res)
			c.res.Key = key
			keyed = append(keyed, c.res)
			continue
		}

		ext := filepath.Ext(c.res.Name)
		baseName := strings.TrimSuffix(strings.TrimSuffix(c.res.Name, ext), suffix) + ext
		p, seen := parents[baseName]
		if !seen {
			p = l.lookupParent(ctx, dir, baseName)
			parents[baseName] = p
		}
		if p.err != nil {
			return nil, nil, p.err
		}
		if p.missing {
			warnings = append(warnings, Warning{
				Kind:     WarnMissingBase,
				Category: category,
				Side:     side,
				Path:     c.res.Path,
				Message:  fmt.Sprintf("base document %s not found, association skipped", baseName),
			})
			continue
		}
		if p.key == "" {
			l.logger.Debug("base document has no identifier, association excluded",
				"category", category, "side", side, "path", c.res.Path, "base", baseName)
			continue
		}
		c.res.Key = p.key
		keyed = append(keyed, c.res)
	}

	resources, ambiguity := l.resolveCollisions(keyed, category, side)
	warnings = append(warnings, ambiguity...)
	l.logWarnings(warnings)
	return newResourceSet(category, side, resources), warnings, nil
}

type parentLookup struct {
	key     string
	missing bool
	err     error
}

func (l *Loader) lookupParent(ctx context.Context, dir, baseName string) parentLookup {
	path := filepath.Join(dir, baseName)
	if l.opts.Limiter != nil {
		if err := l.opts.Limiter.Wait(ctx, dir); err != nil {
			return parentLookup{err: err}
		}
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return parentLookup{missing: true}
	}
	if err != nil {
		// Unreadable or unparsable parents behave as documents without identifier.
		return parentLookup{}
	}
	doc, err := l.opts.Filter.Apply(raw)
	if err != nil {
		return parentLookup{}
	}
	key, _ := identifierOf(doc, l.opts.IdentifierField)
	return parentLookup{key: key}
}

// readAll reads and parses names concurrently. Results keep the order of names.
func (l *Loader) readAll(ctx context.Context, dir, category string, side Side, names []string) ([]candidate, []Warning, error) {
	cands := make([]candidate, len(names))
	warns := make([]*Warning, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.opts.Concurrency)
	for i, name := range names {
		g.Go(func() error {
			if l.opts.Limiter != nil {
				if err := l.opts.Limiter.Wait(gctx, dir); err != nil {
					return err
				}
			}
			res, err := l.readOne(filepath.Join(dir, name), name)
			if err != nil {
				cands[i].failed = true
				warns[i] = &Warning{
					Kind:     WarnParseError,
					Category: category,
					Side:     side,
					Path:     filepath.Join(dir, name),
					Message:  err.Error(),
				}
				return nil
			}
			cands[i].res = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("snapshot: load %s: %w", dir, err)
	}

	var warnings []Warning
	for _, w := range warns {
		if w != nil {
			warnings = append(warnings, *w)
		}
	}
	return cands, warnings, nil
}

func (l *Loader) readOne(path, name string) (Resource, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Resource{}, faults.Wrap(faults.ParseError, "read document", "", err)
	}
	doc, err := l.opts.Filter.Apply(raw)
	if err != nil {
		return Resource{}, err
	}

	text := raw
	if l.opts.Filter != nil {
		var buf bytes.Buffer
		if err := json.Indent(&buf, doc.JSON(), "", "  "); err == nil {
			text = buf.Bytes()
		}
	}

	canonical, digest := Canonicalize(doc)
	return Resource{
		Name:      name,
		Path:      path,
		Digest:    digest,
		Text:      text,
		Doc:       doc,
		Canonical: canonical,
	}, nil
}

// Canonicalize returns the RFC 8785 form of doc and its hex sha256 digest.
func Canonicalize(doc document.Node) ([]byte, string) {
	serialized := doc.JSON()
	canonical, err := jcs.Transform(serialized)
	if err != nil {
		canonical = serialized
	}
	sum := sha256.Sum256(canonical)
	return canonical, hex.EncodeToString(sum[:])
}

func (l *Loader) keyFor(r Resource) (string, bool) {
	switch l.opts.Strategy {
	case StrategyExactName:
		return r.Name, true
	case StrategyPrefix:
		return PrefixKey(r.Name, l.opts.Separator), true
	default:
		return identifierOf(r.Doc, l.opts.IdentifierField)
	}
}

func identifierOf(doc document.Node, field string) (string, bool) {
	v, ok := doc.Lookup(field)
	if !ok {
		return "", false
	}
	text, ok := v.ScalarText()
	if !ok {
		return "", false
	}
	key := document.NormalizeIdentifier(text)
	return key, key != ""
}

// PrefixKey returns the part of name before the first separator. Names without
// a separator are keyed by their stem.
func PrefixKey(name, separator string) string {
	if idx := strings.Index(name, separator); separator != "" && idx >= 0 {
		return name[:idx]
	}
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// resolveCollisions keeps one resource per key. Input order is file-name order, so
// "first" is the lexicographically smallest file name.
func (l *Loader) resolveCollisions(keyed []Resource, category string, side Side) ([]Resource, []Warning) {
	groups := make(map[string][]Resource, len(keyed))
	order := make([]string, 0, len(keyed))
	for _, r := range keyed {
		if _, ok := groups[r.Key]; !ok {
			order = append(order, r.Key)
		}
		groups[r.Key] = append(groups[r.Key], r)
	}

	out := make([]Resource, 0, len(order))
	var warnings []Warning
	for _, key := range order {
		group := groups[key]
		if len(group) == 1 {
			out = append(out, group[0])
			continue
		}

		paths := make([]string, len(group))
		for i, r := range group {
			paths[i] = r.Name
		}
		msg := fmt.Sprintf("%d documents share key %q: %s", len(group), key, strings.Join(paths, ", "))
		if l.opts.Ambiguity == AmbiguityExclude {
			msg += "; key excluded"
		} else {
			msg += "; using " + group[0].Name
			out = append(out, group[0])
		}
		warnings = append(warnings, Warning{
			Kind:     WarnIdentityAmbiguity,
			Category: category,
			Side:     side,
			Path:     group[0].Path,
			Key:      key,
			Message:  msg,
		})
	}
	return out, warnings
}

func (l *Loader) associationSuffix(name string) string {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	for _, suffix := range l.opts.AssociationSuffixes {
		if suffix != "" && strings.HasSuffix(stem, suffix) && len(stem) > len(suffix) {
			return suffix
		}
	}
	return ""
}

func (l *Loader) excluded(name string) bool {
	return slices.Contains(l.opts.Exclude, name)
}

func (l *Loader) logWarnings(ws []Warning) {
	for _, w := range ws {
		l.logger.Warn("snapshot warning",
			"kind", w.Kind, "category", w.Category, "side", w.Side, "path", w.Path, "message", w.Message)
	}
}

// ListNames returns the sorted names of regular files in dir matching pattern.
// A missing or unreadable dir is a FatalInputError.
func ListNames(dir, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, faults.Wrap(faults.ConfigError, "invalid file pattern", pattern, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, faults.Wrap(faults.FatalInputError, "read snapshot directory", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if ok, _ := filepath.Match(pattern, e.Name()); ok {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// RequireDir returns a FatalInputError unless path is an existing directory.
func RequireDir(path, role string) error {
	info, err := os.Stat(path)
	if err != nil {
		return faults.Wrap(faults.FatalInputError, role+" directory is not accessible", path, err)
	}
	if !info.IsDir() {
		return faults.New(faults.FatalInputError, role+" path is not a directory", path)
	}
	return nil
}

// DirExists reports whether path is an existing directory.
func DirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func filterNames(names []string, keep func(string) bool) []string {
	out := names[:0:0]
	for _, n := range names {
		if keep(n) {
			out = append(out, n)
		}
	}
	return out
}

// ResolveUnder joins p onto root and rejects results outside root. Absolute p
// must already lie under root.
func ResolveUnder(root, p string) (string, error) {
	if p == "" {
		return "", faults.New(faults.ConfigError, "snapshot path is empty", "")
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", faults.Wrap(faults.ConfigError, "resolve snapshot root", root, err)
	}
	target := p
	if !filepath.IsAbs(target) {
		target = filepath.Join(absRoot, target)
	}
	target = filepath.Clean(target)

	rel, err := filepath.Rel(absRoot, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", faults.New(faults.ConfigError, "path escapes snapshot root", p)
	}
	return target, nil
}
