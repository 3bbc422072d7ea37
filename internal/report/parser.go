// Package report extracts structured fields from veterinary report text.
//
// The OCR text it receives is noisy and multilingual in practice (Spanish
// report templates with mixed casing and orthography), so extraction is
// pattern-based and tolerant: a field that cannot be matched is simply left
// empty, never an error. Parsing is pure; identical input always yields an
// identical Info.
package report

import (
	"regexp"
	"strings"
)

// Field names one extractable report field.
type Field string

const (
	FieldPatientName     Field = "patient_name"
	FieldSpecies         Field = "species"
	FieldBreed           Field = "breed"
	FieldSex             Field = "sex"
	FieldAge             Field = "age"
	FieldOwnerName       Field = "owner_name"
	FieldVeterinarian    Field = "veterinarian"
	FieldDate            Field = "date"
	FieldDiagnosis       Field = "diagnosis"
	FieldRecommendations Field = "recommendations"
)

// Info holds the parsed report fields. An empty string means the field was
// not found; absence is a valid terminal state.
type Info struct {
	PatientName     string `json:"patient_name,omitempty" firestore:"patientName,omitempty"`
	Species         string `json:"species,omitempty" firestore:"species,omitempty"`
	Breed           string `json:"breed,omitempty" firestore:"breed,omitempty"`
	Sex             string `json:"sex,omitempty" firestore:"sex,omitempty"`
	Age             string `json:"age,omitempty" firestore:"age,omitempty"`
	OwnerName       string `json:"owner_name,omitempty" firestore:"ownerName,omitempty"`
	Veterinarian    string `json:"veterinarian,omitempty" firestore:"veterinarian,omitempty"`
	Date            string `json:"date,omitempty" firestore:"date,omitempty"`
	Diagnosis       string `json:"diagnosis,omitempty" firestore:"diagnosis,omitempty"`
	Recommendations string `json:"recommendations,omitempty" firestore:"recommendations,omitempty"`
}

// Label alternations per field. Both common spellings/genders are listed so
// that template variants across clinics still match.
const (
	patientLabels  = `Paciente|Nombre`
	speciesLabels  = `Especie`
	breedLabels    = `Raza`
	sexLabels      = `Sexo`
	ageLabels      = `Edad`
	ownerLabels    = `Tutor(?:a)?|Propietari[oa]|Dueñ[oa]`
	vetLabels      = `Derivante|Profesional|Referido\s+por|Veterinari[oa]`
	dateLabels     = `Fecha`
	diagLabels     = `Diagn[oó]stico(?:\s+(?:radiogr[aá]fico|ecogr[aá]fico|ecocardiogr[aá]fico))?|Conclusi[oó]n(?:es)?|Conclusion(?:es)?|Hallazgos`
	recLabels      = `Se\s+recomienda|Recomendaci[oó]n(?:es)?|Notas?|Comentarios?`
	inlineValue    = `[:\-][^\S\n]*(\S[^\n]*)`
	nextLineValue  = `[:\-]?[^\S\n]*\n[^\S\n]*(\S[^\n]*)`
	sectionHeading = `[^\S\n]*[:\-]?[^\S\n]*\n?`
)

// allLabels is the stop set for multi-line sections: a new line starting
// with any recognized label terminates the section. This is the tie-break
// that keeps a diagnosis block from swallowing the labels that follow it.
var allLabels = strings.Join([]string{
	patientLabels, speciesLabels, breedLabels, sexLabels, ageLabels,
	ownerLabels, vetLabels, dateLabels, diagLabels, recLabels,
}, "|")

// The \b keeps a continuation line that merely starts with a label prefix
// ("Notable...", "Fechas...") from being mistaken for the next field.
var sectionStop = `(?:\n[^\S\n]*(?:` + allLabels + `)\b|\n{3}|\z)`

// labelLine matches a captured value that is itself a label line, which
// happens when the next-line fallback pattern grabs the following field.
// Such captures are rejected so the next pattern alternative can run.
var labelLine = regexp.MustCompile(`(?i)^(?:` + allLabels + `)\s*[:\-]`)

type normalizeFunc func(string) string

type patternSpec struct {
	re        *regexp.Regexp
	normalize normalizeFunc
}

type fieldSpec struct {
	field    Field
	patterns []patternSpec
	assign   func(*Info, string)
}

// Labels are matched as whole words on both sides so that prose merely
// containing a label ("Sobrenombre", "Notable") never starts a field.
func lineField(labels string) []patternSpec {
	return []patternSpec{
		{regexp.MustCompile(`(?i)\b(?:` + labels + `)\b\s*` + inlineValue), normalizeLine},
		{regexp.MustCompile(`(?i)\b(?:` + labels + `)\b\s*` + nextLineValue), normalizeLine},
	}
}

func sectionField(labels string, minLen int) []patternSpec {
	return []patternSpec{
		{
			regexp.MustCompile(`(?i)\b(?:` + labels + `)\b` + sectionHeading + `([\s\S]+?)` + sectionStop),
			blockNormalizer(minLen),
		},
	}
}

// fieldTable is the ordered, declarative extraction table: for each field,
// an ordered list of pattern alternatives where the first match wins.
var fieldTable = []fieldSpec{
	{FieldPatientName, lineField(patientLabels), func(i *Info, v string) { i.PatientName = v }},
	{FieldSpecies, lineField(speciesLabels), func(i *Info, v string) { i.Species = v }},
	{FieldBreed, lineField(breedLabels), func(i *Info, v string) { i.Breed = v }},
	{FieldSex, lineField(sexLabels), func(i *Info, v string) { i.Sex = v }},
	{FieldAge, lineField(ageLabels), func(i *Info, v string) { i.Age = v }},
	{FieldOwnerName, lineField(ownerLabels), func(i *Info, v string) { i.OwnerName = v }},
	{FieldVeterinarian, lineField(vetLabels), func(i *Info, v string) { i.Veterinarian = v }},
	{FieldDate, []patternSpec{
		{regexp.MustCompile(`(?i)(?:` + dateLabels + `)\s*[:\-]?\s*\n?\s*(\d{1,2}[/\-.]\d{1,2}[/\-.]\d{2,4})`), normalizeLine},
	}, func(i *Info, v string) { i.Date = v }},
	{FieldDiagnosis, sectionField(diagLabels, 10), func(i *Info, v string) { i.Diagnosis = v }},
	{FieldRecommendations, sectionField(recLabels, 5), func(i *Info, v string) { i.Recommendations = v }},
}

// Parse runs the extraction table over the reassembled document text.
func Parse(text string) Info {
	var info Info
	for _, spec := range fieldTable {
		for _, p := range spec.patterns {
			m := p.re.FindStringSubmatch(text)
			if m == nil {
				continue
			}
			value := p.normalize(m[1])
			if value == "" {
				continue
			}
			spec.assign(&info, value)
			break
		}
	}
	return info
}

var spaceRun = regexp.MustCompile(`[^\S\n]+`)

// normalizeLine trims a single-line capture and collapses whitespace runs.
// Captures that are themselves a label line are discarded.
func normalizeLine(v string) string {
	v = strings.TrimSpace(spaceRun.ReplaceAllString(v, " "))
	if labelLine.MatchString(v) {
		return ""
	}
	return v
}

// blockNormalizer trims a multi-line capture and rejects blocks shorter
// than minLen runes; tiny captures are OCR noise, not a real section.
func blockNormalizer(minLen int) normalizeFunc {
	return func(v string) string {
		v = strings.TrimSpace(v)
		if len([]rune(v)) < minLen {
			return ""
		}
		return v
	}
}
