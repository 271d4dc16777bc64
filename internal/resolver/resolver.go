// Package resolver maps raw reference targets to canonical paths relative
// to the notes root. Resolution runs against an immutable snapshot of the
// file tree, so results are repeatable for a given corpus and
// configuration; candidate lists are reported in lexicographic order.
package resolver

import (
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/jesrav/jesktop/internal/models"
)

// Snapshot is a point-in-time view of every file under the notes root,
// indexed for exact, basename, and stem lookups.
type Snapshot struct {
	files  map[string]struct{}
	byName map[string][]string
	byStem map[string][]string
}

// NewSnapshot indexes the given relative slash paths. The input should be
// sorted (storage.Provider.Files guarantees this); the per-key slices then
// come out sorted too.
func NewSnapshot(files []string) *Snapshot {
	s := &Snapshot{
		files:  make(map[string]struct{}, len(files)),
		byName: make(map[string][]string),
		byStem: make(map[string][]string),
	}
	for _, f := range files {
		s.files[f] = struct{}{}
		name := path.Base(f)
		s.byName[name] = append(s.byName[name], f)
		s.byStem[stem(name)] = append(s.byStem[stem(name)], f)
	}
	return s
}

// Exists reports whether the cleaned path is a file in the snapshot.
func (s *Snapshot) Exists(p string) bool {
	_, ok := s.files[path.Clean(p)]
	return ok
}

// Resolver resolves reference targets against a snapshot using configured
// attachment-folder search roots.
type Resolver struct {
	snap              *Snapshot
	attachmentFolders []string
}

// New creates a Resolver over the snapshot. attachmentFolders are paths
// relative to the notes root, searched in the configured order.
func New(snap *Snapshot, attachmentFolders []string) *Resolver {
	return &Resolver{snap: snap, attachmentFolders: attachmentFolders}
}

// IsExternal reports whether a target points outside the corpus (an http
// or https URL). External targets are not resolved.
func IsExternal(target string) bool {
	return strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://")
}

// Resolve maps a reference's raw target to a canonical path relative to
// the notes root. sourcePath is the canonical path of the note containing
// the reference. On failure the error is either *AmbiguousError (with the
// full candidate list) or *BrokenError (with the locations tried); there
// is no silent fallback.
func (r *Resolver) Resolve(ref models.Reference, sourcePath string) (string, error) {
	target := decode(ref.RawTarget)
	switch ref.Kind {
	case models.KindWikilink:
		return r.resolveNote(target)
	case models.KindDiagram:
		return r.resolveDiagram(target, sourcePath)
	default:
		return r.resolveAttachment(target, sourcePath)
	}
}

// resolveDiagram resolves a diagram embed. The source file is the canonical
// target; a corpus that keeps only the exported PNG still resolves through
// the export.
func (r *Resolver) resolveDiagram(target, sourcePath string) (string, error) {
	resolved, err := r.resolveAttachment(target, sourcePath)
	if err == nil {
		return resolved, nil
	}
	srcErr, ok := AsBroken(err)
	if !ok {
		return "", err
	}
	resolved, err = r.resolveAttachment(target+".png", sourcePath)
	if err == nil {
		return resolved, nil
	}
	if expErr, ok := AsBroken(err); ok {
		return "", &BrokenError{Target: target, Tried: append(srcErr.Tried, expErr.Tried...)}
	}
	return "", err
}

// resolveNote resolves a wikilink target: exact path first, then the
// basename/stem indexes across the whole corpus.
func (r *Resolver) resolveNote(target string) (string, error) {
	cleaned := path.Clean(target)
	tried := []string{"exact:" + cleaned}
	if r.snap.Exists(cleaned) {
		return cleaned, nil
	}
	tried = append(tried, "exact:"+cleaned+".md")
	if r.snap.Exists(cleaned + ".md") {
		return cleaned + ".md", nil
	}

	base := path.Base(cleaned)
	// Tiered lookups: an exact filename beats a stem match, so [[note]]
	// resolving to note.md does not become ambiguous with note.png.
	tiers := []struct {
		label      string
		candidates []string
	}{
		{"name:" + base + ".md", r.snap.byName[base+".md"]},
		{"name:" + base, r.snap.byName[base]},
		{"stem:" + stem(base), r.snap.byStem[stem(base)]},
	}
	for _, tier := range tiers {
		tried = append(tried, tier.label)
		matches := filterSuffix(tier.candidates, cleaned)
		switch len(matches) {
		case 0:
			continue
		case 1:
			return matches[0], nil
		default:
			return "", &AmbiguousError{Target: target, Candidates: matches, Tried: tried}
		}
	}
	return "", &BrokenError{Target: target, Tried: tried}
}

// resolveAttachment resolves an image or diagram target. Exact
// notes-root-relative paths win outright; otherwise every configured
// search location is checked and a single surviving candidate is required.
func (r *Resolver) resolveAttachment(target, sourcePath string) (string, error) {
	cleaned := path.Clean(target)
	tried := []string{"exact:" + cleaned}
	if !strings.HasPrefix(cleaned, "../") && r.snap.Exists(cleaned) {
		return cleaned, nil
	}

	sourceDir := path.Dir(sourcePath)
	assetsDir := stem(path.Base(sourcePath)) + ".assets"
	name := path.Base(cleaned)

	locations := []string{
		path.Join(sourceDir, cleaned),
		path.Join(sourceDir, assetsDir, name),
	}
	for _, folder := range r.attachmentFolders {
		locations = append(locations,
			path.Join(folder, cleaned),
			path.Join(folder, assetsDir, name),
		)
	}

	seen := make(map[string]struct{})
	var candidates []string
	for _, loc := range locations {
		loc = path.Clean(loc)
		tried = append(tried, "search:"+loc)
		if strings.HasPrefix(loc, "../") {
			continue // escaped the notes root
		}
		if !r.snap.Exists(loc) {
			continue
		}
		if _, dup := seen[loc]; dup {
			continue
		}
		seen[loc] = struct{}{}
		candidates = append(candidates, loc)
	}

	switch len(candidates) {
	case 0:
		return "", &BrokenError{Target: target, Tried: tried}
	case 1:
		return candidates[0], nil
	default:
		sort.Strings(candidates)
		return "", &AmbiguousError{Target: target, Candidates: candidates, Tried: tried}
	}
}

// decode undoes URL escaping (%20 and friends) that editors apply to
// Markdown image paths. Undecodable targets are kept verbatim.
func decode(target string) string {
	if u, err := url.PathUnescape(target); err == nil {
		return u
	}
	return target
}

// filterSuffix keeps candidates whose path ends with the written target,
// so [[sub/note]] does not match other/note.md. Targets without a slash
// keep the full list.
func filterSuffix(candidates []string, target string) []string {
	if !strings.Contains(target, "/") {
		return candidates
	}
	var out []string
	for _, c := range candidates {
		if c == target || strings.HasSuffix(c, "/"+target) ||
			c == target+".md" || strings.HasSuffix(c, "/"+target+".md") {
			out = append(out, c)
		}
	}
	return out
}

func stem(name string) string {
	return strings.TrimSuffix(name, path.Ext(name))
}
