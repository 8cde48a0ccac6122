package leadcsv

import (
	"bufio"
	"encoding/csv"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// UnknownName is the name given to a row that has an email but no name columns filled in.
const UnknownName = "Unknown Name"

// ErrInvalidFormat means the upload has no column a lead could be identified by,
// or the text could not be read as CSV at all.
var ErrInvalidFormat = errors.New("invalid CSV format: a name, first name, last name or email column is required")

// Record is a candidate lead built from one CSV row. Empty strings are absent values.
type Record struct {
	Name       string
	Email      string
	Phone      string
	Company    string
	Position   string
	CustomData map[string]string // original header -> value, non-empty values only
}

// Result is the outcome of parsing one upload.
type Result struct {
	Records []Record
	// Skipped counts the non-blank rows dropped because neither a name nor an email resolved.
	Skipped int
}

// ParseString is Parse over an in-memory CSV document.
func ParseString(s string) (*Result, error) {
	return Parse(strings.NewReader(s))
}

// Parse reads CSV text whose first line holds the headers and returns a record for
// every row that has a name or an email. Quoted fields may contain commas but not
// newlines: every line is one row, so a quote left open ends with its line.
//
// The upload is rejected with ErrInvalidFormat before any row is read when none of the
// headers normalize to name, firstName, lastName or email.
func Parse(r io.Reader) (*Result, error) {
	lines := bufio.NewReader(r)

	keys, err := readHeader(lines)
	if err != nil {
		return nil, err
	}

	res := &Result{Records: []Record{}}
	for {
		row, err := readRow(lines)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		values := cleanRow(row)
		if isBlank(values) {
			continue
		}

		rec, ok := buildRecord(keys, values)
		if !ok {
			res.Skipped++
			continue
		}
		res.Records = append(res.Records, rec)
	}

	return res, nil
}

// readHeader returns the canonical key of every column
func readHeader(lines *bufio.Reader) ([]string, error) {
	first := true
	for {
		row, err := readRow(lines)
		if err == io.EOF {
			return nil, errors.Wrap(ErrInvalidFormat, "no header row")
		}
		if err != nil {
			return nil, err
		}

		if first && len(row) > 0 {
			row[0] = strings.TrimPrefix(row[0], "\ufeff")
		}
		first = false

		headers := cleanRow(row)
		if isBlank(headers) {
			continue
		}

		keys := make([]string, len(headers))
		identifiable := false
		for i, h := range headers {
			keys[i] = Normalize(h)
			switch keys[i] {
			case FieldName, FieldFirstName, FieldLastName, FieldEmail:
				identifiable = true
			}
		}

		if !identifiable {
			return nil, ErrInvalidFormat
		}
		return keys, nil
	}
}

// readRow reads the next line and splits it into fields. io.EOF means there are no more lines.
func readRow(lines *bufio.Reader) ([]string, error) {
	line, err := lines.ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, errors.Wrapf(ErrInvalidFormat, "%v", err)
	}
	if err == io.EOF && line == "" {
		return nil, io.EOF
	}
	return splitLine(strings.TrimRight(line, "\r\n")), nil
}

// splitLine tokenizes one line. A line with an unbalanced quote is split on every comma
// and the stray quotes are dropped.
func splitLine(line string) []string {
	if strings.Count(line, `"`)%2 != 0 {
		fields := strings.Split(line, ",")
		for i, f := range fields {
			fields[i] = strings.ReplaceAll(f, `"`, "")
		}
		return fields
	}

	reader := csv.NewReader(strings.NewReader(line))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	fields, err := reader.Read()
	if err != nil {
		// only an empty line gets here; lazy quotes accept everything else
		return nil
	}
	return fields
}

func buildRecord(keys []string, values []string) (Record, bool) {
	var (
		rec       Record
		firstName string
		lastName  string
	)

	for i, key := range keys {
		value := ""
		if i < len(values) {
			value = values[i]
		}

		switch key {
		case FieldName:
			rec.Name = value
		case FieldFirstName:
			firstName = value
		case FieldLastName:
			lastName = value
		case FieldEmail:
			rec.Email = value
		case FieldPhone:
			rec.Phone = value
		case FieldCompany:
			rec.Company = value
		case FieldPosition:
			rec.Position = value
		default:
			if key == "" || value == "" {
				continue
			}
			if rec.CustomData == nil {
				rec.CustomData = map[string]string{}
			}
			rec.CustomData[key] = value
		}
	}

	if rec.Name == "" && (firstName != "" || lastName != "") {
		rec.Name = strings.TrimSpace(firstName + " " + lastName)
	}

	if rec.Name == "" && rec.Email == "" {
		return Record{}, false
	}
	if rec.Name == "" {
		rec.Name = UnknownName
	}
	return rec, true
}

func cleanRow(row []string) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = cleanField(v)
	}
	return out
}

// cleanField trims the value and strips one pair of surrounding double quotes
func cleanField(v string) string {
	v = strings.TrimSpace(v)
	if len(v) >= 2 && strings.HasPrefix(v, `"`) && strings.HasSuffix(v, `"`) {
		v = strings.TrimSpace(v[1 : len(v)-1])
	}
	return v
}

func isBlank(values []string) bool {
	for _, v := range values {
		if v != "" {
			return false
		}
	}
	return true
}
