package migrations

import (
	"strings"
	"testing"
	"testing/fstest"
)

func TestSplitStatements(t *testing.T) {
	input := `
-- header comment
CREATE TABLE a (x Int32);

   -- indented comment
CREATE TABLE b (
    y String
)
ENGINE = MergeTree();
`
	stmts := splitStatements(input)
	if len(stmts) != 2 {
		t.Fatalf("got %d statements, want 2: %q", len(stmts), stmts)
	}
	if stmts[0] != "CREATE TABLE a (x Int32)" {
		t.Errorf("stmts[0] = %q", stmts[0])
	}
	if !strings.HasPrefix(stmts[1], "CREATE TABLE b") || !strings.HasSuffix(stmts[1], "ENGINE = MergeTree()") {
		t.Errorf("stmts[1] = %q", stmts[1])
	}
}

func TestValidateNoSemicolonInStrings(t *testing.T) {
	tests := []struct {
		sql     string
		wantErr bool
	}{
		{"SELECT 1;", false},
		{"SELECT 'a;b';", true},
		{"SELECT 'it''s';", false},
		{"SELECT 'it'';s';", true},
		{"INSERT INTO t VALUES ('x'); SELECT 2;", false},
	}
	for _, tt := range tests {
		err := validateNoSemicolonInStrings(tt.sql)
		if (err != nil) != tt.wantErr {
			t.Errorf("validateNoSemicolonInStrings(%q) error = %v, wantErr %v", tt.sql, err, tt.wantErr)
		}
	}
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://default:@localhost:9000/backtest")
	if err != nil || db != "backtest" {
		t.Errorf("databaseFromDSN() = %q, %v", db, err)
	}
	if _, err := databaseFromDSN("clickhouse://localhost:9000"); err == nil {
		t.Error("expected error for dsn without database")
	}
}

func TestLoadMigrations_Order(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/002_b.sql": {Data: []byte("CREATE TABLE b (x INT);")},
		"sql/001_a.sql": {Data: []byte("CREATE TABLE a (x INT);")},
		"sql/003_c.sql": {Data: []byte("  \n")},
		"sql/README.md": {Data: []byte("ignored")},
	}
	files, err := loadMigrations(fsys, "sql")
	if err != nil {
		t.Fatalf("loadMigrations: %v", err)
	}
	if len(files) != 2 || files[0].name != "001_a.sql" || files[1].name != "002_b.sql" {
		t.Errorf("files = %+v", files)
	}
}

func TestEmbeddedSchemas(t *testing.T) {
	pg, err := loadMigrations(PostgresFS, "postgres")
	if err != nil {
		t.Fatal(err)
	}
	ch, err := loadMigrations(ClickhouseFS, "clickhouse")
	if err != nil {
		t.Fatal(err)
	}

	wantTables := map[string]string{
		"backtest_runs":      joinSQL(pg),
		"backtest_summaries": joinSQL(pg),
		"predictions":        joinSQL(ch),
		"daily_records":      joinSQL(ch),
	}
	for table, sql := range wantTables {
		if !strings.Contains(sql, "CREATE TABLE IF NOT EXISTS "+table) {
			t.Errorf("schema for %s not embedded", table)
		}
	}

	for _, m := range ch {
		if err := validateNoSemicolonInStrings(m.sql); err != nil {
			t.Errorf("%s: %v", m.name, err)
		}
		if n := len(splitStatements(m.sql)); n != 1 {
			t.Errorf("%s: %d statements, want 1", m.name, n)
		}
	}
}

func joinSQL(ms []migration) string {
	var b strings.Builder
	for _, m := range ms {
		b.WriteString(m.sql)
	}
	return b.String()
}

func TestPending(t *testing.T) {
	files := []migration{{name: "001_a.sql"}, {name: "002_b.sql"}, {name: "003_c.sql"}}

	got := pending(files, map[string]bool{"002_b.sql": true})
	if len(got) != 2 || got[0].name != "001_a.sql" || got[1].name != "003_c.sql" {
		t.Errorf("pending = %+v", got)
	}
	if got := pending(files, map[string]bool{"001_a.sql": true, "002_b.sql": true, "003_c.sql": true}); len(got) != 0 {
		t.Errorf("expected nothing pending, got %+v", got)
	}
}
