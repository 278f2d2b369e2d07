package importer

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/darasa/core"
)

func testSchema() Schema {
	return Schema{
		Entity:    "enrollments",
		Delimiter: ",",
		Fields: []FieldSpec{
			{Name: "studentId", Kind: FieldInt, Required: true, Identifier: true},
			{Name: "classroomId", Kind: FieldInt, Required: true, Identifier: true},
			{Name: "enrollmentDate", Kind: FieldDate, DefaultToday: true},
			{Name: "status", Kind: FieldEnum, Allowed: []string{"ACTIVE", "INACTIVE", "COMPLETED", "CANCELLED"}, Default: "ACTIVE"},
			{Name: "observations", Kind: FieldString},
			{Name: "academicYear", Kind: FieldInt, Required: true},
			{Name: "period", Kind: FieldInt, Required: true},
		},
	}
}

func TestPipeline_Parse(t *testing.T) {
	p := NewPipeline(testSchema())

	tests := []struct {
		name        string
		file        string
		wantRecords []Record
		wantErrors  []RowError
	}{
		{
			name: "valid rows are coerced",
			file: "studentId,classroomId,enrollmentDate,status,observations,academicYear,period\n" +
				"1,1,2024-01-15,ACTIVE,,2024,1\n" +
				"2,1,2024-01-16,active,transferred in,2024,1",
			wantRecords: []Record{
				{"studentId": 1, "classroomId": 1, "enrollmentDate": "2024-01-15", "status": "ACTIVE", "academicYear": 2024, "period": 1},
				{"studentId": 2, "classroomId": 1, "enrollmentDate": "2024-01-16", "status": "ACTIVE", "observations": "transferred in", "academicYear": 2024, "period": 1},
			},
		},
		{
			name: "bad date collects a row error and keeps parsing",
			file: "studentId,classroomId,enrollmentDate,status,observations,academicYear,period\n" +
				"1,1,2024-01-15,ACTIVE,,2024,1\n" +
				"2,1,bad-date,ACTIVE,,2024,1",
			wantRecords: []Record{
				{"studentId": 1, "classroomId": 1, "enrollmentDate": "2024-01-15", "status": "ACTIVE", "academicYear": 2024, "period": 1},
			},
			wantErrors: []RowError{
				{Line: 3, Message: `invalid enrollmentDate: "bad-date" is not a valid YYYY-MM-DD date`},
			},
		},
		{
			name: "calendar-invalid date is rejected",
			file: "studentId,classroomId,enrollmentDate,status,observations,academicYear,period\n" +
				"1,1,2024-02-31,ACTIVE,,2024,1",
			wantErrors: []RowError{
				{Line: 2, Message: `invalid enrollmentDate: "2024-02-31" is not a valid YYYY-MM-DD date`},
			},
		},
		{
			name: "field count mismatch skips the row without partial mapping",
			file: "studentId,classroomId,enrollmentDate,status,observations,academicYear,period\n" +
				"1,1,2024-01-15,ACTIVE,2024,1",
			wantErrors: []RowError{{Line: 2, Message: "expected 7 fields, got 6"}},
		},
		{
			name: "missing required field",
			file: "studentId,classroomId,enrollmentDate,status,observations,academicYear,period\n" +
				",1,2024-01-15,ACTIVE,,2024,1",
			wantErrors: []RowError{{Line: 2, Message: `missing required field "studentId"`}},
		},
		{
			name: "one error per row: required check short-circuits the bad enum",
			file: "studentId,classroomId,enrollmentDate,status,observations,academicYear,period\n" +
				",1,2024-01-15,NOPE,,2024,1",
			wantErrors: []RowError{{Line: 2, Message: `missing required field "studentId"`}},
		},
		{
			name: "malformed identifier",
			file: "studentId,classroomId,enrollmentDate,status,observations,academicYear,period\n" +
				"abc,1,2024-01-15,ACTIVE,,2024,1",
			wantErrors: []RowError{{Line: 2, Message: `invalid studentId: "abc" is not a number`}},
		},
		{
			name: "non-positive identifier",
			file: "studentId,classroomId,enrollmentDate,status,observations,academicYear,period\n" +
				"0,1,2024-01-15,ACTIVE,,2024,1",
			wantErrors: []RowError{{Line: 2, Message: `invalid studentId: "0" is not a valid identifier`}},
		},
		{
			name: "unknown enum value suggests the closest allowed one",
			file: "studentId,classroomId,enrollmentDate,status,observations,academicYear,period\n" +
				"1,1,2024-01-15,ACITVE,,2024,1",
			wantErrors: []RowError{{
				Line:    2,
				Message: `invalid status "ACITVE"; allowed values: ACTIVE, INACTIVE, COMPLETED, CANCELLED; did you mean "ACTIVE"?`,
			}},
		},
		{
			name: "optional columns may be omitted entirely; defaults applied",
			file: "studentId,classroomId,academicYear,period\n" +
				"1,2,2024,1",
			wantRecords: []Record{
				{"studentId": 1, "classroomId": 2, "enrollmentDate": "2021-06-01", "status": "ACTIVE", "academicYear": 2024, "period": 1},
			},
		},
		{
			name: "unknown column fails the whole import",
			file: "studentId,classroomId,surprise,academicYear,period\n" +
				"1,1,x,2024,1",
			wantErrors: []RowError{{
				Line:    1,
				Message: `unknown column "surprise"; expected columns: studentId,classroomId,enrollmentDate,status,observations,academicYear,period`,
			}},
		},
		{
			name: "missing required column fails the whole import",
			file: "studentId,enrollmentDate,status,observations,academicYear,period\n" +
				"1,2024-01-15,ACTIVE,,2024,1",
			wantErrors: []RowError{{
				Line:    1,
				Message: `missing required column "classroomId"; expected columns: studentId,classroomId,enrollmentDate,status,observations,academicYear,period`,
			}},
		},
		{
			name:       "duplicate column fails the whole import",
			file:       "studentId,studentId,classroomId,academicYear,period\n1,1,1,2024,1",
			wantErrors: []RowError{{Line: 1, Message: `duplicate column "studentId"`}},
		},
		{
			name:       "empty file",
			file:       "\n\n",
			wantErrors: []RowError{{Line: 1, Message: "file is empty"}},
		},
		{
			name: "leading UTF-8 BOM is stripped before the header check",
			file: "\uFEFFstudentId,classroomId,academicYear,period\n" +
				"1,1,2024,1",
			wantRecords: []Record{
				{"studentId": 1, "classroomId": 1, "enrollmentDate": "2021-06-01", "status": "ACTIVE", "academicYear": 2024, "period": 1},
			},
		},
		{
			name: "blank lines are skipped, line numbers preserved",
			file: "\nstudentId,classroomId,academicYear,period\n\n1,1,2024,1\n\nbad,1,2024,1\n",
			wantRecords: []Record{
				{"studentId": 1, "classroomId": 1, "enrollmentDate": "2021-06-01", "status": "ACTIVE", "academicYear": 2024, "period": 1},
			},
			wantErrors: []RowError{{Line: 6, Message: `invalid studentId: "bad" is not a number`}},
		},
	}

	NowFunc = func() time.Time { return time.Date(2021, time.June, 1, 10, 0, 0, 0, time.UTC) }
	defer func() { NowFunc = time.Now }()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := p.Parse(strings.NewReader(tt.file))
			if err != nil {
				t.Fatalf("Parse() failed: %v", err)
			}
			assert.Equal(t, tt.wantRecords, res.Records)
			assert.Equal(t, tt.wantErrors, res.Errors)
		})
	}
}

// every data line is accounted for exactly once
func TestPipeline_Parse_completeness(t *testing.T) {
	p := NewPipeline(testSchema())
	file := "studentId,classroomId,academicYear,period\n" +
		"1,1,2024,1\n" +
		"bad,1,2024,1\n" +
		"2,1,2024\n" +
		"3,1,2024,2\n"

	res, err := p.Parse(strings.NewReader(file))
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if got := len(res.Records) + len(res.Errors); got != 4 {
		t.Errorf("failed! records+errors = %d; want 4", got)
	}
}

func TestPipeline_Parse_deterministic(t *testing.T) {
	p := NewPipeline(testSchema())
	file := "studentId,classroomId,enrollmentDate,status,observations,academicYear,period\n" +
		"1,1,2024-01-15,ACTIVE,,2024,1\n" +
		"2,1,oops,ACTIVE,,2024,1\n" +
		"x,1,2024-01-15,ACTIVE,,2024,1\n"

	first, err := p.Parse(strings.NewReader(file))
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	second, err := p.Parse(strings.NewReader(file))
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("failed! parse results differ between runs:\n%+v\n%+v", first, second)
	}
}

type fakeBulkGateway struct {
	calls int
	keys  []string
	last  []Record
	res   ImportResult
	err   error
}

func (gw *fakeBulkGateway) BulkCreate(_ context.Context, key string, records []Record) (ImportResult, error) {
	gw.calls++
	gw.keys = append(gw.keys, key)
	gw.last = records
	if gw.err != nil {
		return ImportResult{}, gw.err
	}
	return gw.res, nil
}

func TestPipeline_Submit(t *testing.T) {
	p := NewPipeline(testSchema())
	records := []Record{
		{"studentId": 1, "classroomId": 1, "academicYear": 2024, "period": 1},
		{"studentId": 2, "classroomId": 1, "academicYear": 2024, "period": 1},
		{"studentId": 3, "classroomId": 1, "academicYear": 2024, "period": 1},
	}

	t.Run("single batched call", func(t *testing.T) {
		gw := &fakeBulkGateway{res: ImportResult{CreatedCount: 3}}
		res, key, err := p.Submit(context.Background(), gw, records)
		if err != nil {
			t.Fatalf("Submit() failed: %v", err)
		}
		assert.Equal(t, 1, gw.calls)
		assert.Len(t, gw.last, 3)
		assert.Equal(t, 3, res.CreatedCount)
		assert.NotEmpty(t, key)
	})

	t.Run("partial server rejection is a success", func(t *testing.T) {
		gw := &fakeBulkGateway{res: ImportResult{
			CreatedCount:  2,
			FailedRecords: []FailedRecord{{Record: records[2], Reason: "student 3 already enrolled"}},
		}}
		res, _, err := p.Submit(context.Background(), gw, records)
		if err != nil {
			t.Fatalf("Submit() failed: %v", err)
		}
		assert.Equal(t, 2, res.CreatedCount)
		if assert.Len(t, res.FailedRecords, 1) {
			assert.Equal(t, "student 3 already enrolled", res.FailedRecords[0].Reason)
		}
	})

	t.Run("transport failure propagates the server message", func(t *testing.T) {
		gw := &fakeBulkGateway{err: core.NewGatewayError(502, "enrollment service is down")}
		_, _, err := p.Submit(context.Background(), gw, records)
		if err == nil {
			t.Fatal("Submit() expected an error")
		}
		gerr, ok := errors.Cause(err).(*core.GatewayError)
		if !ok {
			t.Fatalf("failed! cause = %T; want *core.GatewayError", errors.Cause(err))
		}
		assert.Equal(t, "enrollment service is down", gerr.Message)
	})

	t.Run("empty batch is refused", func(t *testing.T) {
		gw := &fakeBulkGateway{}
		_, _, err := p.Submit(context.Background(), gw, nil)
		assert.Equal(t, ErrNoRecords, errors.Cause(err))
		assert.Equal(t, 0, gw.calls)
	})

	t.Run("each attempt gets a fresh idempotency key", func(t *testing.T) {
		gw := &fakeBulkGateway{res: ImportResult{CreatedCount: 3}}
		_, key1, _ := p.Submit(context.Background(), gw, records)
		_, key2, _ := p.Submit(context.Background(), gw, records)
		assert.NotEqual(t, key1, key2)
	})
}

func Test_enumSuggestion(t *testing.T) {
	allowed := []string{"ACTIVE", "INACTIVE", "COMPLETED", "CANCELLED"}
	tests := []struct {
		val  string
		want string
	}{
		{val: "ACITVE", want: `; did you mean "ACTIVE"?`},
		{val: "cancelld", want: `; did you mean "CANCELLED"?`},
		{val: "zzz", want: ""},
	}
	for _, tt := range tests {
		if got := enumSuggestion(tt.val, allowed); got != tt.want {
			t.Errorf("enumSuggestion(%q) = %q; want %q", tt.val, got, tt.want)
		}
	}
}
