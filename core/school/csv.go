package school

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

var (
	requiredCSVColumns = []string{"first_name", "last_name", "date_of_birth", "guardian_name", "guardian_contact"}
	optionalCSVColumns = []string{"photo_url", "address", "notes", "active"}

	errMissingColumns = errors.New("missing required columns")
)

// ImportStudentsCSV parses and validates the whole file before anything is
// persisted; any bad row fails the entire import. Dates must be ISO 8601.
// When classID is set, every imported student is enrolled into that class.
func (svc *Service) ImportStudentsCSV(ctx context.Context, r io.Reader, classID *int, validate *validator.Validate) ([]Student, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, core.NewValidationError(errMissingColumns)
		}
		return nil, core.NewValidationError(errors.Wrap(err, "reading CSV header"))
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[core.CleanString(name, true /* lower */)] = i
	}
	for _, name := range requiredCSVColumns {
		if _, ok := cols[name]; !ok {
			return nil, core.NewValidationError(errMissingColumns, core.FieldError{Field: name, Error: "column is required"})
		}
	}

	get := func(record []string, name string) string {
		if i, ok := cols[name]; ok && i < len(record) {
			return record[i]
		}
		return ""
	}

	now := nowFunc().UTC()
	students := make([]Student, 0)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, core.NewValidationError(errors.Wrap(err, "reading CSV row"))
		}

		ns := NewStudent{
			FirstName:       get(record, "first_name"),
			LastName:        get(record, "last_name"),
			PhotoURL:        core.CleanString(get(record, "photo_url")),
			GuardianName:    get(record, "guardian_name"),
			GuardianContact: get(record, "guardian_contact"),
			Address:         core.CleanString(get(record, "address")),
			Notes:           core.CleanString(get(record, "notes")),
		}
		if raw := core.CleanString(get(record, "date_of_birth")); raw != "" {
			dob, err := core.ParseDate(raw)
			if err != nil {
				return nil, core.NewValidationError(err, core.FieldError{Field: "date_of_birth", Error: "invalid date format"})
			}
			ns.DateOfBirth = dob
		}
		if raw := get(record, "active"); raw != "" {
			active := parseCSVBool(raw)
			ns.Active = &active
		}
		if err := ns.Validate(validate); err != nil {
			return nil, err
		}
		students = append(students, ns.student(now))
	}

	return svc.repo.ImportStudents(ctx, students, classID)
}

func parseCSVBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes":
		return true
	}
	return false
}
