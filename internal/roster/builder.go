package roster

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/mentorloop/mentormatch/internal/csvio"
)

// defaultBirthYear is assumed when a birth column is absent or unparseable.
// A fixed fallback skews age scoring for such records; kept until the forms
// make the birth date mandatory.
const defaultBirthYear = 1990

// concatenatedFieldCommas is the comma count above which a single cell is
// treated as an entire mis-parsed row rather than a value.
const concatenatedFieldCommas = 4

var yearPattern = regexp.MustCompile(`\b(18|19|20)\d{2}\b`)

// BuildMentors maps merged rows into Mentor entities. Rows without a usable
// identity are dropped and logged; the batch itself never fails.
func BuildMentors(rows []*csvio.MergedRow, logger *zap.Logger) []*Mentor {
	mentors := make([]*Mentor, 0, len(rows))
	for _, row := range rows {
		person, ok := buildPerson(row, MentorIdentityColumn, "Mentor", mentorColumns(), logger)
		if !ok {
			continue
		}
		mentors = append(mentors, &Mentor{Person: *person})
	}
	return mentors
}

// BuildMentees maps merged rows into Mentee entities.
func BuildMentees(rows []*csvio.MergedRow, logger *zap.Logger) []*Mentee {
	mentees := make([]*Mentee, 0, len(rows))
	for _, row := range rows {
		person, ok := buildPerson(row, MenteeIdentityColumn, "Mentee", menteeColumns(), logger)
		if !ok {
			continue
		}
		mentees = append(mentees, &Mentee{
			Person:              *person,
			DesiredMentorGender: strings.TrimSpace(row.Get(menteeDesiredGenderColumn)),
		})
	}
	return mentees
}

// personColumns names the population-specific columns the builder normalizes.
type personColumns struct {
	gender   string
	birth    string
	location string
	study    string
}

func mentorColumns() personColumns {
	return personColumns{
		gender:   mentorGenderColumn,
		birth:    mentorBirthColumn,
		location: mentorLocationColumn,
		study:    mentorStudyColumn,
	}
}

func menteeColumns() personColumns {
	return personColumns{
		gender:   menteeGenderColumn,
		birth:    menteeBirthColumn,
		location: menteeLocationColumn,
		study:    menteeStudyColumn,
	}
}

func buildPerson(row *csvio.MergedRow, identityColumn, role string, columns personColumns, logger *zap.Logger) (*Person, bool) {
	id := strings.TrimSpace(row.Get(identityColumn))
	if id == "" {
		logger.Error("dropping row without identity",
			zap.String("identity_column", identityColumn),
			zap.Int("fields", row.Len()),
		)
		return nil, false
	}

	if looksConcatenated(id) {
		logger.Error("dropping row with a concatenated identity field, upstream delimiter likely wrong",
			zap.String("identity_column", identityColumn),
			zap.String("value_preview", preview(id)),
		)
		return nil, false
	}

	name := strings.TrimSpace(row.Get(nameColumn))
	if looksConcatenated(name) {
		logger.Error("name field looks like a whole row, extracting the first segment",
			zap.String("identity", id),
			zap.String("value_preview", preview(name)),
		)
		name = strings.TrimSpace(strings.SplitN(name, ",", 2)[0])
	}
	if name == "" {
		name = fmt.Sprintf("%s %s", role, id)
	}

	person := &Person{
		ID:         id,
		Name:       name,
		Gender:     strings.TrimSpace(row.Get(columns.gender)),
		Location:   strings.TrimSpace(row.Get(columns.location)),
		StudyLevel: strings.TrimSpace(row.Get(columns.study)),
		BirthYear:  parseBirthYear(row.Get(columns.birth), id, logger),
		Languages:  parseLanguages(row),
	}

	for _, field := range row.Fields() {
		if strings.TrimSpace(field.Value) == "" {
			continue
		}
		person.Fields = append(person.Fields, field)
	}

	return person, true
}

// parseBirthYear extracts a 4-digit year from the raw birth value. Missing or
// unparseable values fall back to defaultBirthYear.
func parseBirthYear(raw, id string, logger *zap.Logger) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultBirthYear
	}

	match := yearPattern.FindString(raw)
	if match == "" {
		logger.Warn("birth value has no recognizable year, using default",
			zap.String("identity", id),
			zap.String("value", raw),
			zap.Int("default_year", defaultBirthYear),
		)
		return defaultBirthYear
	}

	year, err := strconv.Atoi(match)
	if err != nil {
		return defaultBirthYear
	}
	return year
}

// parseLanguages collects the languages a person declared: German/English
// when a level is present, plus any free-text further languages.
func parseLanguages(row *csvio.MergedRow) []string {
	var languages []string

	if strings.TrimSpace(row.Get(germanLevelColumn)) != "" {
		languages = append(languages, "German")
	}
	if strings.TrimSpace(row.Get(englishLevelColumn)) != "" {
		languages = append(languages, "English")
	}

	further := row.Get(furtherLanguageColumn)
	for _, token := range strings.FieldsFunc(further, func(r rune) bool {
		return r == ',' || r == ';' || r == '/'
	}) {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		languages = append(languages, token)
	}

	return languages
}

func looksConcatenated(value string) bool {
	return strings.Count(value, ",") >= concatenatedFieldCommas
}

func preview(value string) string {
	const limit = 80
	if len(value) <= limit {
		return value
	}
	return value[:limit] + "..."
}
