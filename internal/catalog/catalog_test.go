package catalog

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	saf "github.com/reoring/saf"
)

const stats = "0 0\n0 0\n0 0\n0 0\n0 0\n0 0\n0 0\n"

func entry(name, data string) string {
	return "<Histo>\n<Description>\n\"" + name + "\"\n2 0 2\n</Description>\n<Statistics>\n" + stats +
		"</Statistics>\n<Data>\n" + data + "</Data>\n</Histo>\n"
}

func decode(t *testing.T, raw string) ([]saf.Histogram, saf.Issues) {
	t.Helper()
	hs, err := saf.DecodeBytes(context.Background(), []byte(raw))
	iss, _ := saf.AsIssues(err)
	return hs, iss
}

func openCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCatalog_StoreAndRead(t *testing.T) {
	c := openCatalog(t)
	ctx := context.Background()

	runID, err := c.BeginRun(ctx, saf.DialectErrors)
	if err != nil {
		t.Fatalf("BeginRun() error = %v", err)
	}
	if len(runID) != 36 {
		t.Errorf("run id %q is not a UUID", runID)
	}

	hs, iss := decode(t, entry("a", "0 0\n1 1\n2 NaN\n0 0\n")+entry("b", "0 0\nx 1\n0 0\n0 0\n")+entry("c", "0 0\n3 1\n4 1\n0 0\n"))
	if len(hs) != 2 || len(iss) != 1 {
		t.Fatalf("fixture: %d histograms, %d issues", len(hs), len(iss))
	}
	if err := c.Store(ctx, runID, FileResult{Path: "x.saf", Fingerprint: "fp1", Histograms: hs, Issues: iss}); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	files, err := c.Files(ctx)
	if err != nil {
		t.Fatalf("Files() error = %v", err)
	}
	if len(files) != 1 || files[0].Histograms != 2 || files[0].Issues != 1 || files[0].RunID != runID {
		t.Fatalf("Files() = %+v", files)
	}

	got, err := c.Histograms(ctx, "x.saf")
	if err != nil {
		t.Fatalf("Histograms() error = %v", err)
	}
	if len(got) != 2 || got[0].Name != "a" || got[1].Name != "c" || got[1].Position != 1 {
		t.Fatalf("Histograms() = %+v", got)
	}
	errs := got[0].Record["errors"].([]any)
	if errs[2] != "NaN" {
		t.Errorf("non-finite error not preserved: %v", errs)
	}

	stored, err := c.Issues(ctx, "x.saf")
	if err != nil {
		t.Fatalf("Issues() error = %v", err)
	}
	if len(stored) != 1 || stored[0].Code != saf.CodeFieldDecode || stored[0].Name != "b" || stored[0].Entry != 1 {
		t.Fatalf("Issues() = %+v", stored)
	}
	if stored[0].Pointer != "/histo/1/Data/1/0" || stored[0].Line == 0 {
		t.Errorf("issue position = %+v", stored[0])
	}
}

func TestCatalog_Unchanged(t *testing.T) {
	c := openCatalog(t)
	ctx := context.Background()

	same, err := c.Unchanged(ctx, "x.saf", "fp1", saf.DialectErrors)
	if err != nil || same {
		t.Fatalf("unknown file: %v %v", same, err)
	}
	runID, _ := c.BeginRun(ctx, saf.DialectErrors)
	if err := c.Store(ctx, runID, FileResult{Path: "x.saf", Fingerprint: "fp1"}); err != nil {
		t.Fatal(err)
	}
	if same, _ := c.Unchanged(ctx, "x.saf", "fp1", saf.DialectErrors); !same {
		t.Error("same fingerprint should be unchanged")
	}
	if same, _ := c.Unchanged(ctx, "x.saf", "fp2", saf.DialectErrors); same {
		t.Error("different fingerprint should be changed")
	}
}

func TestCatalog_UnchangedDependsOnDialect(t *testing.T) {
	c := openCatalog(t)
	ctx := context.Background()
	runID, _ := c.BeginRun(ctx, saf.DialectValues)
	if err := c.Store(ctx, runID, FileResult{Path: "x.saf", Fingerprint: "fp1", Dialect: saf.DialectValues}); err != nil {
		t.Fatal(err)
	}
	if same, _ := c.Unchanged(ctx, "x.saf", "fp1", saf.DialectValues); !same {
		t.Error("same bytes and dialect should be unchanged")
	}
	for _, d := range []saf.Dialect{saf.DialectErrors, saf.DialectSignedWeights} {
		if same, _ := c.Unchanged(ctx, "x.saf", "fp1", d); same {
			t.Errorf("same bytes under %v must be reindexed", d)
		}
	}
	files, err := c.Files(ctx)
	if err != nil || len(files) != 1 || files[0].Dialect != "values" {
		t.Fatalf("Files() = %+v, %v", files, err)
	}
}

func TestInitSchema_MigratesVersion1(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	const v1 = `
CREATE TABLE runs (id TEXT PRIMARY KEY, started_at TEXT NOT NULL, dialect TEXT NOT NULL);
CREATE TABLE files (
    path TEXT PRIMARY KEY,
    fingerprint TEXT NOT NULL,
    run_id TEXT NOT NULL REFERENCES runs(id),
    indexed_at TEXT NOT NULL,
    histograms INTEGER NOT NULL,
    issues INTEGER NOT NULL
);
CREATE TABLE schema_version (version INTEGER PRIMARY KEY, applied_at TEXT NOT NULL);
INSERT INTO runs VALUES ('r1', '2026-01-01T00:00:00Z', 'errors');
INSERT INTO files VALUES ('x.saf', 'fp', 'r1', '2026-01-01T00:00:00Z', 1, 0);
INSERT INTO schema_version VALUES (1, '2026-01-01 00:00:00');
`
	if _, err := db.Exec(v1); err != nil {
		t.Fatalf("seed v1: %v", err)
	}
	db.Close()

	c, err := Open(path)
	if err != nil {
		t.Fatalf("Open() after v1: %v", err)
	}
	defer c.Close()
	ctx := context.Background()
	var version int
	if err := c.db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_version`).Scan(&version); err != nil || version != SchemaVersion {
		t.Fatalf("schema version = %d, %v", version, err)
	}
	if same, _ := c.Unchanged(ctx, "x.saf", "fp", saf.DialectErrors); same {
		t.Error("rows indexed before the dialect was recorded must be reindexed")
	}
}

func TestCatalog_StoreReplaces(t *testing.T) {
	c := openCatalog(t)
	ctx := context.Background()
	runID, _ := c.BeginRun(ctx, saf.DialectErrors)

	hs, _ := decode(t, entry("a", "0 0\n1 1\n2 1\n0 0\n")+entry("b", "0 0\n1 1\n2 1\n0 0\n"))
	if err := c.Store(ctx, runID, FileResult{Path: "x.saf", Fingerprint: "fp1", Histograms: hs}); err != nil {
		t.Fatal(err)
	}
	if err := c.Store(ctx, runID, FileResult{Path: "x.saf", Fingerprint: "fp2", Histograms: hs[:1]}); err != nil {
		t.Fatal(err)
	}
	got, err := c.Histograms(ctx, "x.saf")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("old histograms not replaced: %d", len(got))
	}
}

func TestCatalog_UnknownRun(t *testing.T) {
	c := openCatalog(t)
	err := c.Store(context.Background(), "no-such-run", FileResult{Path: "x.saf", Fingerprint: "fp"})
	if err == nil {
		t.Fatal("foreign key on run_id should reject unknown runs")
	}
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	c, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	runID, _ := c.BeginRun(ctx, saf.DialectErrors)
	if err := c.Store(ctx, runID, FileResult{Path: "x.saf", Fingerprint: "fp"}); err != nil {
		t.Fatal(err)
	}
	c.Close()

	c, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer c.Close()
	if same, _ := c.Unchanged(ctx, "x.saf", "fp", saf.DialectErrors); !same {
		t.Error("data lost across reopen")
	}
}
