package models

import (
	"fmt"
	"sort"
	"time"
)

// Section identifies one extractable region of a profile page.
type Section string

// The closed set of known profile sections.
const (
	SectionName       Section = "name"
	SectionHeadline   Section = "headline"
	SectionAbout      Section = "about"
	SectionLocation   Section = "location"
	SectionSkills     Section = "skills"
	SectionExperience Section = "experience"
	SectionEducation  Section = "education"
)

// AllSections returns every known section in canonical order.
func AllSections() []Section {
	return []Section{
		SectionName,
		SectionHeadline,
		SectionAbout,
		SectionLocation,
		SectionSkills,
		SectionExperience,
		SectionEducation,
	}
}

// ParseSections validates a list of section names from a request.
// An empty input means "all sections". Unknown names are rejected.
func ParseSections(names []string) ([]Section, error) {
	if len(names) == 0 {
		return AllSections(), nil
	}
	known := make(map[Section]bool, len(AllSections()))
	for _, s := range AllSections() {
		known[s] = true
	}
	seen := make(map[Section]bool, len(names))
	out := make([]Section, 0, len(names))
	for _, n := range names {
		s := Section(n)
		if !known[s] {
			return nil, fmt.Errorf("unknown section %q", n)
		}
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out, nil
}

// SectionsKey renders a section set as a canonical sorted string,
// suitable for cache keys.
func SectionsKey(sections []Section) string {
	names := make([]string, len(sections))
	for i, s := range sections {
		names[i] = string(s)
	}
	sort.Strings(names)
	key := ""
	for i, n := range names {
		if i > 0 {
			key += ","
		}
		key += n
	}
	return key
}

// HasSection reports whether s is in the set.
func HasSection(sections []Section, s Section) bool {
	for _, v := range sections {
		if v == s {
			return true
		}
	}
	return false
}

// Entry is one item of a multi-entry section (a position held or a
// degree earned).
type Entry struct {
	Title        string `json:"title,omitempty"`
	Organization string `json:"organization,omitempty"`
	DateRange    string `json:"date_range,omitempty"`
	Description  string `json:"description,omitempty"`
}

// RecordMeta is the retrieval metadata attached to every ProfileRecord.
type RecordMeta struct {
	SourceURL        string    `json:"source_url"`
	RetrievedAt      time.Time `json:"retrieved_at"`
	ExtractorVersion string    `json:"extractor_version"`
}

// ProfileRecord is the structured result of one profile scrape: a value per
// requested section, plus retrieval metadata. Sections that were not
// requested or could not be extracted are left zero.
//
// ExtractionError marks a partial result: extraction inside the page hit a
// problem but whatever fields succeeded are still populated. A record with
// ExtractionError set is a success outcome, not a failure.
type ProfileRecord struct {
	Name       string     `json:"name,omitempty"`
	Headline   string     `json:"headline,omitempty"`
	About      string     `json:"about,omitempty"`
	Location   string     `json:"location,omitempty"`
	Skills     []string   `json:"skills,omitempty"`
	Experience []Entry    `json:"experience,omitempty"`
	Education  []Entry    `json:"education,omitempty"`

	ExtractionError string     `json:"extraction_error,omitempty"`
	Meta            RecordMeta `json:"meta"`
}
