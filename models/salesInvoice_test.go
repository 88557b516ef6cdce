package models

import (
	"strings"
	"testing"

	"gorm.io/gorm"
	"gorm.io/gorm/utils/tests"
)

func TestLatestSequenceQueryLocksTheRead(t *testing.T) {
	db, err := gorm.Open(tests.DummyDialector{}, &gorm.Config{DryRun: true})
	if err != nil {
		t.Fatalf("open dry-run db: %v", err)
	}

	var lastSeq int
	stmt := latestSequenceQuery(db, "biz-1").Scan(&lastSeq).Statement

	sql := stmt.SQL.String()
	if !strings.Contains(sql, "FOR UPDATE") {
		t.Errorf("sequence read is not locked: %s", sql)
	}
	if !strings.Contains(sql, "COALESCE(MAX(sequence_no), 0)") {
		t.Errorf("sequence read lost its aggregate: %s", sql)
	}
	if len(stmt.Vars) != 1 || stmt.Vars[0] != "biz-1" {
		t.Errorf("vars = %v, want the tenant filter", stmt.Vars)
	}
}
