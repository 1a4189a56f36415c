package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	mysqlDriver "github.com/go-sql-driver/mysql"
)

func TestIsDuplicateEntryError(t *testing.T) {
	dup := &mysqlDriver.MySQLError{Number: 1062, Message: "Duplicate entry"}
	if !isDuplicateEntryError(fmt.Errorf("insert: %w", dup)) {
		t.Fatal("expected wrapped duplicate entry to match")
	}
	if isDuplicateEntryError(&mysqlDriver.MySQLError{Number: 1146}) {
		t.Fatal("unexpected match for missing table")
	}
	if isDuplicateEntryError(errors.New("boom")) {
		t.Fatal("unexpected match for plain error")
	}
}

func TestNullHelpers(t *testing.T) {
	if nullableString("") != nil {
		t.Fatal("empty string must be stored as NULL")
	}
	if nullableString("seti_1") != "seti_1" {
		t.Fatal("unexpected value")
	}
	if nullableStringValue(nil) != nil {
		t.Fatal("nil pointer must be stored as NULL")
	}
	if got := stringPtrFromNull(sql.NullString{String: "x", Valid: true}); got == nil || *got != "x" {
		t.Fatalf("unexpected pointer %v", got)
	}
	if stringPtrFromNull(sql.NullString{}) != nil {
		t.Fatal("invalid null string must map to nil")
	}
	if got := normalizeEmail("  Jane@Example.COM "); got != "jane@example.com" {
		t.Fatalf("unexpected email %q", got)
	}
}
