package roster

import (
	"github.com/mentorloop/mentormatch/internal/csvio"
)

// Column names of the mentoring programme's CSV exports. The forms are
// bilingual, so several mentor columns carry German/English double labels.
const (
	MentorIdentityColumn = "Mentor Number"
	MenteeIdentityColumn = "Mentee Number"

	nameColumn = "Name"

	mentorGenderColumn   = "Geschlecht / Gender"
	mentorBirthColumn    = "Geburtsdatum / Date of birth"
	mentorLocationColumn = "Postadresse / Postal address"
	mentorStudyColumn    = "Aktueller oder zuletzt abgeschlossener Studiengang / Current or most recently completed course of study"

	menteeGenderColumn        = "Gender"
	menteeDesiredGenderColumn = "Desired gender of mentor"
	menteeBirthColumn         = "Birthday"
	menteeLocationColumn      = "Residence (city)"
	menteeStudyColumn         = "Previous studies (level)"

	germanLevelColumn     = "German"
	englishLevelColumn    = "English"
	furtherLanguageColumn = "Further language skills"
)

// Person is one canonical participant record: the normalized scalar fields
// extracted from known columns plus every raw merged column/value pair,
// preserved in insertion order for verbatim display.
type Person struct {
	ID         string
	Name       string
	Gender     string
	Location   string
	StudyLevel string
	BirthYear  int
	Languages  []string

	Fields []csvio.Field
}

type Mentor struct {
	Person
}

type Mentee struct {
	Person

	DesiredMentorGender string
}
