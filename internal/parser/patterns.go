package parser

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/jesrav/jesktop/internal/models"
)

// Pattern matches one syntactic form of a reference kind. Group is the
// index of the capture group holding the target text. A kind may have any
// number of patterns; adding a reference kind is a data change here (or in
// configuration), not a new code path.
type Pattern struct {
	Kind  models.RefKind
	re    *regexp.Regexp
	group int
}

// Default pattern sources, overridable through configuration. Diagram
// patterns are tried before image patterns which are tried before
// wikilinks, so `![[x.excalidraw]]` is a diagram embed rather than a
// generic embed and `![[x.png]]` is an image rather than a wikilink.
const (
	DefaultDiagramPattern  = `!\[\[([^\]]+\.excalidraw)\]\]`
	DefaultImageEmbed      = `!\[\[([^\]]+\.(?:png|jpg|jpeg|gif|svg|webp|bmp|tiff))\]\]`
	DefaultImageMarkdown   = `!\[[^\]]*\]\(([^()\s]+)\)`
	DefaultImageHTML       = `<img[^>]+src=['"]([^'"]+)['"][^>]*>`
	DefaultWikilinkPattern = `\[\[([^\][|]+)(?:\|[^\]]*)?\]\]`
)

// PatternSources holds the raw regular expressions for each reference kind.
type PatternSources struct {
	Wikilink []string
	Image    []string
	Diagram  []string
}

// DefaultPatternSources returns the built-in pattern set.
func DefaultPatternSources() PatternSources {
	return PatternSources{
		Wikilink: []string{DefaultWikilinkPattern},
		Image:    []string{DefaultImageEmbed, DefaultImageMarkdown, DefaultImageHTML},
		Diagram:  []string{DefaultDiagramPattern},
	}
}

// compilePatterns builds the ordered pattern table. Order encodes match
// priority when two patterns claim overlapping spans.
func compilePatterns(src PatternSources) ([]Pattern, error) {
	var out []Pattern
	add := func(kind models.RefKind, sources []string) error {
		for _, s := range sources {
			re, err := regexp.Compile(s)
			if err != nil {
				return fmt.Errorf("parser: compile %s pattern %q: %w", kind, s, err)
			}
			if re.NumSubexp() < 1 {
				return fmt.Errorf("parser: %s pattern %q has no capture group", kind, s)
			}
			out = append(out, Pattern{Kind: kind, re: re, group: 1})
		}
		return nil
	}
	if err := add(models.KindDiagram, src.Diagram); err != nil {
		return nil, err
	}
	if err := add(models.KindImage, src.Image); err != nil {
		return nil, err
	}
	if err := add(models.KindWikilink, src.Wikilink); err != nil {
		return nil, err
	}
	return out, nil
}

// match is an internal candidate before overlap filtering.
type match struct {
	kind     models.RefKind
	priority int // lower wins on overlap
	start    int
	end      int
	target   string
}

// scan runs every pattern over content and returns non-overlapping matches
// in source order. When spans overlap, the higher-priority pattern (earlier
// in the table) wins; embeds therefore shadow the wikilink syntax they
// contain.
func scan(patterns []Pattern, content string) []match {
	var all []match
	for prio, p := range patterns {
		for _, idx := range p.re.FindAllStringSubmatchIndex(content, -1) {
			gs, ge := idx[2*p.group], idx[2*p.group+1]
			if gs < 0 || ge <= gs {
				continue
			}
			all = append(all, match{
				kind:     p.Kind,
				priority: prio,
				start:    idx[0],
				end:      idx[1],
				target:   content[gs:ge],
			})
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].start != all[j].start {
			return all[i].start < all[j].start
		}
		return all[i].priority < all[j].priority
	})

	// An embed's wikilink body starts one byte after the `!`, so any match
	// beginning inside an accepted span is shadowed and dropped.
	var out []match
	lastEnd := -1
	for _, m := range all {
		if m.start < lastEnd {
			continue
		}
		out = append(out, m)
		lastEnd = m.end
	}
	return out
}
