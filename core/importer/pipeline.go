package importer

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

const dateLayout = "2006-01-02" // canonical YYYY-MM-DD

var (
	// errors
	ErrNoRecords = errors.New("no valid records to submit")

	NowFunc = time.Now // mockable
)

type (
	// RowError is a recoverable, per-line data-quality problem. Row errors are
	// accumulated over the whole file; they never stop the parse.
	RowError struct {
		Line    int    `json:"line"`
		Message string `json:"message"`
	}

	// Record is a validated, coerced create-payload: numeric fields parsed,
	// enum values canonical, dates normalized, documented defaults applied.
	Record map[string]interface{}

	ParseResult struct {
		Records []Record   `json:"records"`
		Errors  []RowError `json:"errors"`
	}

	FailedRecord struct {
		Record Record `json:"record"`
		Reason string `json:"reason"`
	}

	// ImportResult summarizes one batch submission. A non-empty FailedRecords
	// with a successful call is a partial success, not a failure.
	ImportResult struct {
		CreatedCount  int            `json:"created_count"`
		FailedRecords []FailedRecord `json:"failed_records,omitempty"`
	}

	// Gateway is the slice of an upstream service's surface Submit needs.
	Gateway interface {
		BulkCreate(ctx context.Context, idempotencyKey string, records []Record) (ImportResult, error)
	}

	Pipeline struct {
		schema Schema
	}

	fileRow struct {
		line   int
		fields []string
	}
)

func NewPipeline(schema Schema) *Pipeline {
	return &Pipeline{schema: schema}
}

func (p *Pipeline) Schema() Schema { return p.schema }

// Parse reads a delimited text file into validated records plus per-row errors.
// Every data line lands in exactly one of the two buckets. Only a structural
// problem (unreadable input, undecodable text) is returned as an error; a
// malformed header row fails the whole parse with a single RowError and zero
// records.
func (p *Pipeline) Parse(r io.Reader) (ParseResult, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return ParseResult{}, errors.Wrap(err, "reading upload")
	}
	text := strings.TrimPrefix(string(raw), "\uFEFF") // drop BOM
	if !utf8.ValidString(text) {
		return ParseResult{}, errors.New("upload is not valid UTF-8 text")
	}

	var rows []fileRow
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		rows = append(rows, fileRow{line: i + 1, fields: strings.Split(line, p.schema.Delimiter)})
	}
	return p.parseRows(rows), nil
}

func (p *Pipeline) parseRows(rows []fileRow) ParseResult {
	var res ParseResult
	if len(rows) == 0 {
		res.Errors = append(res.Errors, RowError{Line: 1, Message: "file is empty"})
		return res
	}

	header := rows[0]
	headers := make([]string, 0, len(header.fields))
	for _, h := range header.fields {
		headers = append(headers, core.CleanString(h))
	}
	if msg := p.checkHeaders(headers); msg != "" {
		// structural: fail the whole import before any per-row validation
		res.Errors = append(res.Errors, RowError{Line: header.line, Message: msg})
		return res
	}

	for _, row := range rows[1:] {
		if len(row.fields) != len(headers) {
			res.Errors = append(res.Errors, RowError{
				Line:    row.line,
				Message: fmt.Sprintf("expected %d fields, got %d", len(headers), len(row.fields)),
			})
			continue
		}
		rawFields := make(map[string]string, len(headers))
		for i, h := range headers {
			rawFields[h] = core.CleanString(row.fields[i])
		}
		rec, rowErr := p.validateRow(row.line, rawFields)
		if rowErr != nil {
			res.Errors = append(res.Errors, *rowErr)
			continue
		}
		res.Records = append(res.Records, rec)
	}
	return res
}

func (p *Pipeline) checkHeaders(headers []string) string {
	seen := make(map[string]bool, len(headers))
	for _, h := range headers {
		if _, ok := p.schema.field(h); !ok {
			return fmt.Sprintf("unknown column %q; expected columns: %s", h, p.schema.TemplateRow())
		}
		if seen[h] {
			return fmt.Sprintf("duplicate column %q", h)
		}
		seen[h] = true
	}
	for _, fld := range p.schema.Fields {
		if fld.Required && !seen[fld.Name] {
			return fmt.Sprintf("missing required column %q; expected columns: %s", fld.Name, p.schema.TemplateRow())
		}
	}
	return ""
}

// validateRow applies the validation rules in fixed order: required presence,
// identifier/number well-formedness, enum membership, calendar-valid dates.
// The first failing rule short-circuits the row: one error per row.
func (p *Pipeline) validateRow(line int, raw map[string]string) (Record, *RowError) {
	rowErr := func(format string, args ...interface{}) *RowError {
		return &RowError{Line: line, Message: fmt.Sprintf(format, args...)}
	}

	// (1) required-field presence
	for _, fld := range p.schema.Fields {
		if fld.Required && raw[fld.Name] == "" {
			return nil, rowErr("missing required field %q", fld.Name)
		}
	}

	// (2) numbers and foreign-key-shaped identifiers are well-formed
	for _, fld := range p.schema.Fields {
		val := raw[fld.Name]
		if val == "" || fld.Kind != FieldInt {
			continue
		}
		n, err := strconv.Atoi(val)
		if err != nil {
			return nil, rowErr("invalid %s: %q is not a number", fld.Name, val)
		}
		if fld.Identifier && n <= 0 {
			return nil, rowErr("invalid %s: %q is not a valid identifier", fld.Name, val)
		}
	}

	// (3) enum fields match one of the declared allowed values
	for _, fld := range p.schema.Fields {
		val := raw[fld.Name]
		if val == "" || fld.Kind != FieldEnum {
			continue
		}
		if canonicalEnum(val, fld.Allowed) == "" {
			return nil, rowErr("invalid %s %q; allowed values: %s%s",
				fld.Name, val, strings.Join(fld.Allowed, ", "), enumSuggestion(val, fld.Allowed))
		}
	}

	// (4) date fields are calendar-valid YYYY-MM-DD
	for _, fld := range p.schema.Fields {
		val := raw[fld.Name]
		if val == "" || fld.Kind != FieldDate {
			continue
		}
		if _, err := time.Parse(dateLayout, val); err != nil {
			return nil, rowErr("invalid %s: %q is not a valid YYYY-MM-DD date", fld.Name, val)
		}
	}

	return p.coerce(raw), nil
}

// coerce builds the create-payload from a fully validated row, applying
// documented defaults to absent/blank optional fields.
func (p *Pipeline) coerce(raw map[string]string) Record {
	rec := make(Record, len(p.schema.Fields))
	for _, fld := range p.schema.Fields {
		val := raw[fld.Name]
		if val == "" {
			switch {
			case fld.Default != "":
				val = fld.Default
			case fld.DefaultToday && fld.Kind == FieldDate:
				val = NowFunc().UTC().Format(dateLayout)
			default:
				continue // optional and absent: leave it out
			}
		}
		switch fld.Kind {
		case FieldInt:
			n, _ := strconv.Atoi(val) // validated above
			rec[fld.Name] = n
		case FieldEnum:
			rec[fld.Name] = canonicalEnum(val, fld.Allowed)
		default:
			rec[fld.Name] = val
		}
	}
	return rec
}

func canonicalEnum(val string, allowed []string) string {
	for _, a := range allowed {
		if strings.EqualFold(val, a) {
			return a
		}
	}
	return ""
}

// Submit sends the whole validated batch to the gateway in a single
// bulk-create call; per-row network calls would leak partial state during the
// upload. Callers must not submit while parse errors are outstanding.
//
// Each attempt carries a fresh UUID idempotency key: client semantics are
// at-most-once, and a retry after an ambiguous failure is a new submission
// the server is expected to deduplicate on its own constraints.
//
// A server that accepts the batch but rejects a subset reports the rejects in
// ImportResult.FailedRecords; that is a partial success, not an error. Only a
// transport/server failure of the call itself is returned as an error, with
// the server-provided message preserved.
func (p *Pipeline) Submit(ctx context.Context, gw Gateway, records []Record) (ImportResult, string, error) {
	if len(records) == 0 {
		return ImportResult{}, "", errors.Wrapf(ErrNoRecords, "submitting %s batch", p.schema.Entity)
	}
	key := uuid.New().String()
	res, err := gw.BulkCreate(ctx, key, records)
	if err != nil {
		return ImportResult{}, key, errors.Wrapf(err, "bulk creating %s", p.schema.Entity)
	}
	return res, key, nil
}
