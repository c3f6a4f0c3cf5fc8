package profile

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/peek/browser"
	"github.com/use-agent/peek/models"
	"github.com/ysmood/gson"
)

// extractorVersion tags every record with the selector generation that
// produced it, so consumers can detect stale extraction logic.
const extractorVersion = "0.4.1"

// Extractor turns a navigated session into a ProfileRecord for the
// requested sections.
type Extractor interface {
	Version() string
	Extract(ctx context.Context, s browser.Session, sections []models.Section) (*models.ProfileRecord, error)
}

// DOMExtractor is the default extractor. It evaluates a single JS function
// in the page that collects scalar fields and the raw HTML of multi-entry
// section containers, then parses those containers into structured entries
// on the Go side.
//
// Per-section failures inside the page are collected into the record's
// ExtractionError field; only a failure of the evaluation itself is
// returned as an error.
type DOMExtractor struct{}

// NewDOMExtractor creates the default extractor.
func NewDOMExtractor() *DOMExtractor { return &DOMExtractor{} }

func (e *DOMExtractor) Version() string { return extractorVersion }

// scalarJS maps scalar sections to the in-page expression producing them.
// Selectors are deliberately loose: exact page structure is out of scope
// and drifts; empty strings on miss are acceptable.
var scalarJS = map[models.Section]string{
	models.SectionName:     `text("h1, .top-card-layout__title, [data-section='name']")`,
	models.SectionHeadline: `text(".top-card-layout__headline, h2.headline, [data-section='headline']")`,
	models.SectionAbout:    `text("section.summary p, .core-section-container__content .about, [data-section='about']")`,
	models.SectionLocation: `text(".top-card-layout__first-subline, .profile-info-subheader span, [data-section='location']")`,
}

// containerJS maps multi-entry sections to the expression producing their
// container's outer HTML.
var containerJS = map[models.Section]string{
	models.SectionExperience: `outer("section.experience, #experience-section, [data-section='experience']")`,
	models.SectionEducation:  `outer("section.education, #education-section, [data-section='education']")`,
}

func (e *DOMExtractor) Extract(ctx context.Context, s browser.Session, sections []models.Section) (*models.ProfileRecord, error) {
	val, err := s.Eval(ctx, buildExtractionJS(sections))
	if err != nil {
		return nil, err
	}
	return decodeRecord(val, sections), nil
}

// buildExtractionJS assembles one JS function that collects every
// requested section, guarding each one so a broken selector poisons only
// its own field.
func buildExtractionJS(sections []models.Section) string {
	var b strings.Builder
	b.WriteString(`() => {
	const out = { errors: [] };
	const text = (sel) => { const el = document.querySelector(sel); return el ? el.textContent.trim() : ""; };
	const outer = (sel) => { const el = document.querySelector(sel); return el ? el.outerHTML : ""; };
	const grab = (key, fn, fallback) => {
		try { out[key] = fn(); } catch (e) { out[key] = fallback; out.errors.push(key + ": " + e.message); }
	};
`)
	for _, sec := range sections {
		if expr, ok := scalarJS[sec]; ok {
			b.WriteString("\tgrab(\"" + string(sec) + "\", () => " + expr + ", \"\");\n")
		}
	}
	if models.HasSection(sections, models.SectionSkills) {
		b.WriteString(`	grab("skills", () => Array.from(
		document.querySelectorAll("section.skills li, .skill-pill, [data-section='skills'] li")
	).map(el => el.textContent.trim()).filter(s => s.length > 0), []);
`)
	}
	for _, sec := range []models.Section{models.SectionExperience, models.SectionEducation} {
		if models.HasSection(sections, sec) {
			b.WriteString("\tgrab(\"" + string(sec) + "_html\", () => " + containerJS[sec] + ", \"\");\n")
		}
	}
	b.WriteString("\treturn out;\n}")
	return b.String()
}

// decodeRecord maps the evaluation result onto a ProfileRecord, parsing
// multi-entry container HTML into structured entries.
func decodeRecord(val gson.JSON, sections []models.Section) *models.ProfileRecord {
	rec := &models.ProfileRecord{}
	var problems []string

	for _, raw := range val.Get("errors").Arr() {
		problems = append(problems, raw.Str())
	}

	for _, sec := range sections {
		switch sec {
		case models.SectionName:
			rec.Name = str(val, "name")
		case models.SectionHeadline:
			rec.Headline = str(val, "headline")
		case models.SectionAbout:
			rec.About = str(val, "about")
		case models.SectionLocation:
			rec.Location = str(val, "location")
		case models.SectionSkills:
			for _, item := range val.Get("skills").Arr() {
				if s := item.Str(); s != "" {
					rec.Skills = append(rec.Skills, s)
				}
			}
		case models.SectionExperience:
			entries, err := parseEntries(str(val, "experience_html"))
			if err != nil {
				problems = append(problems, "experience: "+err.Error())
			} else {
				rec.Experience = entries
			}
		case models.SectionEducation:
			entries, err := parseEntries(str(val, "education_html"))
			if err != nil {
				problems = append(problems, "education: "+err.Error())
			} else {
				rec.Education = entries
			}
		}
	}

	if len(problems) > 0 {
		rec.ExtractionError = strings.Join(problems, "; ")
	}
	return rec
}

// parseEntries splits a multi-entry section container into individual
// entries and pulls the common fields out of each one.
func parseEntries(containerHTML string) ([]models.Entry, error) {
	if strings.TrimSpace(containerHTML) == "" {
		return nil, nil
	}

	items, err := matchAll(containerHTML, "li, .profile-section-card, .entry")
	if err != nil {
		return nil, err
	}

	entries := make([]models.Entry, 0, len(items))
	for _, item := range items {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(item))
		if err != nil {
			return nil, err
		}
		entry := models.Entry{
			Title:        firstText(doc, "h3", ".title", ".entry-title"),
			Organization: firstText(doc, "h4", ".subtitle", ".org", ".entry-org"),
			DateRange:    firstText(doc, ".date-range", "time", ".dates"),
			Description:  firstText(doc, "p", ".description"),
		}
		if entry != (models.Entry{}) {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

// str reads a string field from the evaluation result, tolerating a
// missing or non-string value.
func str(val gson.JSON, key string) string {
	if s, ok := val.Get(key).Val().(string); ok {
		return s
	}
	return ""
}

// firstText returns the trimmed text of the first selector that matches
// anything.
func firstText(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if s := strings.TrimSpace(doc.Find(sel).First().Text()); s != "" {
			return s
		}
	}
	return ""
}
