package sitemap

import (
	"encoding/xml"
	"sort"
	"strings"
	"time"
)

const Namespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

// Entry is one site path. A zero LastMod is omitted.
type Entry struct {
	Path    string
	LastMod time.Time
}

type urlset struct {
	XMLName xml.Name   `xml:"urlset"`
	Xmlns   string     `xml:"xmlns,attr"`
	URLs    []urlEntry `xml:"url"`
}

type urlEntry struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// BuildXML renders entries as a sitemap document for domain. Paths are sorted
// and deduplicated; for a repeated path the entry with a LastMod wins.
func BuildXML(domain string, entries []Entry) ([]byte, error) {
	domain = strings.TrimRight(domain, "/")

	byPath := make(map[string]Entry, len(entries))
	for _, e := range entries {
		if prev, ok := byPath[e.Path]; ok && !prev.LastMod.IsZero() {
			continue
		}
		byPath[e.Path] = e
	}
	paths := make([]string, 0, len(byPath))
	for p := range byPath {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	doc := urlset{Xmlns: Namespace}
	for _, p := range paths {
		u := urlEntry{Loc: domain + p}
		if lm := byPath[p].LastMod; !lm.IsZero() {
			u.LastMod = lm.UTC().Format(time.DateOnly)
		}
		doc.URLs = append(doc.URLs, u)
	}

	out, err := xml.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}
