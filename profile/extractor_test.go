package profile

import (
	"strings"
	"testing"

	"github.com/use-agent/peek/models"
	"github.com/ysmood/gson"
)

func TestBuildExtractionJS_OnlyRequestedSections(t *testing.T) {
	js := buildExtractionJS([]models.Section{models.SectionName, models.SectionSkills})

	if !strings.Contains(js, `grab("name"`) {
		t.Error("generated JS does not collect the name section")
	}
	if !strings.Contains(js, `grab("skills"`) {
		t.Error("generated JS does not collect the skills section")
	}
	for _, absent := range []string{`grab("about"`, `grab("experience_html"`, `grab("education_html"`} {
		if strings.Contains(js, absent) {
			t.Errorf("generated JS collects unrequested section: %s", absent)
		}
	}
}

func TestBuildExtractionJS_AllSections(t *testing.T) {
	js := buildExtractionJS(models.AllSections())
	for _, key := range []string{"name", "headline", "about", "location", "skills", "experience_html", "education_html"} {
		if !strings.Contains(js, `grab("`+key+`"`) {
			t.Errorf("generated JS missing section %q", key)
		}
	}
}

func TestDecodeRecord_ScalarsAndSkills(t *testing.T) {
	val := gson.New(map[string]interface{}{
		"name":     "Jane Doe",
		"headline": "Staff Engineer",
		"skills":   []interface{}{"Go", "Distributed Systems", ""},
		"errors":   []interface{}{},
	})

	rec := decodeRecord(val, []models.Section{models.SectionName, models.SectionHeadline, models.SectionSkills})

	if rec.Name != "Jane Doe" {
		t.Errorf("Name = %q", rec.Name)
	}
	if rec.Headline != "Staff Engineer" {
		t.Errorf("Headline = %q", rec.Headline)
	}
	if len(rec.Skills) != 2 || rec.Skills[0] != "Go" || rec.Skills[1] != "Distributed Systems" {
		t.Errorf("Skills = %v, want non-empty values only", rec.Skills)
	}
	if rec.ExtractionError != "" {
		t.Errorf("ExtractionError = %q, want empty", rec.ExtractionError)
	}
}

func TestDecodeRecord_PartialFailureIsNotAnError(t *testing.T) {
	val := gson.New(map[string]interface{}{
		"name":   "Jane Doe",
		"about":  "",
		"errors": []interface{}{"about: selector exploded"},
	})

	rec := decodeRecord(val, []models.Section{models.SectionName, models.SectionAbout})

	if rec.Name != "Jane Doe" {
		t.Errorf("Name = %q, want the field that succeeded", rec.Name)
	}
	if !strings.Contains(rec.ExtractionError, "about: selector exploded") {
		t.Errorf("ExtractionError = %q, want the in-page failure note", rec.ExtractionError)
	}
}

func TestParseEntries(t *testing.T) {
	container := `<section class="experience"><ul>
		<li><h3>Staff Engineer</h3><h4>Acme Corp</h4><span class="date-range">2020 - Present</span><p>Built things.</p></li>
		<li><h3>Engineer</h3><h4>Widgets Inc</h4><time>2016 - 2020</time></li>
		<li></li>
	</ul></section>`

	entries, err := parseEntries(container)
	if err != nil {
		t.Fatalf("parseEntries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2 (empty items skipped): %+v", len(entries), entries)
	}

	first := entries[0]
	if first.Title != "Staff Engineer" || first.Organization != "Acme Corp" {
		t.Errorf("first entry = %+v", first)
	}
	if first.DateRange != "2020 - Present" {
		t.Errorf("first DateRange = %q", first.DateRange)
	}
	if first.Description != "Built things." {
		t.Errorf("first Description = %q", first.Description)
	}
	if entries[1].DateRange != "2016 - 2020" {
		t.Errorf("second DateRange = %q, want the <time> fallback", entries[1].DateRange)
	}
}

func TestParseEntries_EmptyContainer(t *testing.T) {
	entries, err := parseEntries("   ")
	if err != nil {
		t.Fatalf("parseEntries: %v", err)
	}
	if entries != nil {
		t.Errorf("got %v, want nil for an empty container", entries)
	}
}

func TestMatchAll_FallsBackToWholeInput(t *testing.T) {
	raw := `<div><span>no list items here</span></div>`
	items, err := matchAll(raw, "li")
	if err != nil {
		t.Fatalf("matchAll: %v", err)
	}
	if len(items) != 1 || items[0] != raw {
		t.Errorf("got %v, want the original HTML as a single item", items)
	}
}
