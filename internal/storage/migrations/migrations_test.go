package migrations

import (
	"strings"
	"testing"
)

func TestLoadMigrations_Embedded(t *testing.T) {
	pg, err := loadMigrations(PostgresFS, "postgres")
	if err != nil {
		t.Fatalf("loadMigrations failed: %v", err)
	}
	if len(pg) != 4 {
		t.Fatalf("expected 4 postgres migrations, got %d", len(pg))
	}
	if pg[0].name != "001_backtest_results.sql" || pg[3].name != "004_portfolios.sql" {
		t.Errorf("expected lexical order, got %s .. %s", pg[0].name, pg[3].name)
	}

	ch, err := loadMigrations(ClickhouseFS, "clickhouse")
	if err != nil {
		t.Fatalf("loadMigrations failed: %v", err)
	}
	if len(ch) != 1 {
		t.Fatalf("expected 1 clickhouse migration, got %d", len(ch))
	}
	for _, m := range ch {
		if err := validateNoSemicolonInStrings(m.sql); err != nil {
			t.Errorf("%s: %v", m.name, err)
		}
	}
}

func TestSplitStatements(t *testing.T) {
	input := `
-- header comment
CREATE TABLE a (x UInt8) ENGINE = Memory;

  -- indented comment
CREATE TABLE b (
    y String
) ENGINE = Memory;
`
	stmts := splitStatements(input)
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(stmts), stmts)
	}
	if !strings.HasPrefix(stmts[0], "CREATE TABLE a") {
		t.Errorf("unexpected first statement %q", stmts[0])
	}
	if strings.Contains(stmts[1], "comment") {
		t.Errorf("expected comments stripped, got %q", stmts[1])
	}
}

func TestValidateNoSemicolonInStrings(t *testing.T) {
	if err := validateNoSemicolonInStrings("SELECT 'a''b'; SELECT 1;"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := validateNoSemicolonInStrings("SELECT 'a;b'"); err == nil {
		t.Error("expected error for semicolon inside literal")
	}
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://default:@localhost:9000/market")
	if err != nil {
		t.Fatalf("databaseFromDSN failed: %v", err)
	}
	if db != "market" {
		t.Errorf("expected market, got %s", db)
	}

	if _, err := databaseFromDSN("clickhouse://localhost:9000"); err == nil {
		t.Error("expected error for missing database")
	}
	if _, err := databaseFromDSN("clickhouse://localhost:9000/bad-name"); err == nil {
		t.Error("expected error for invalid database name")
	}
}
