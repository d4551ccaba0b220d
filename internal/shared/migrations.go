package shared

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

//go:embed sql/*.sql
var schemaFiles embed.FS

// schemaFile matches names like "0001_migration_jobs_up.sql".
var schemaFile = regexp.MustCompile(`^(\d+)_[a-z0-9_]+_(up|down)\.sql$`)

// SchemaVersion is one versioned change to the journal schema with its forward and reverse SQL.
type SchemaVersion struct {
	Version int
	Name    string
	Up      string
	Down    string
}

// loadSchema reads the embedded schema files and returns them ordered by version.
func loadSchema() ([]SchemaVersion, error) {
	entries, err := schemaFiles.ReadDir("sql")
	if err != nil {
		return nil, fmt.Errorf("failed to read schema directory: %w", err)
	}

	byVersion := make(map[int]*SchemaVersion)
	for _, entry := range entries {
		m := schemaFile.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}

		version, _ := strconv.Atoi(m[1])
		content, err := schemaFiles.ReadFile(path.Join("sql", entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read schema file %s: %w", entry.Name(), err)
		}

		v, ok := byVersion[version]
		if !ok {
			name := strings.TrimSuffix(strings.TrimPrefix(entry.Name(), m[1]+"_"), "_"+m[2]+".sql")
			v = &SchemaVersion{Version: version, Name: name}
			byVersion[version] = v
		}

		if m[2] == "up" {
			v.Up = string(content)
		} else {
			v.Down = string(content)
		}
	}

	versions := make([]SchemaVersion, 0, len(byVersion))
	for _, v := range byVersion {
		if v.Up == "" || v.Down == "" {
			return nil, fmt.Errorf("incomplete schema version %d", v.Version)
		}
		versions = append(versions, *v)
	}

	sort.Slice(versions, func(i, j int) bool { return versions[i].Version < versions[j].Version })
	return versions, nil
}

// RunMigrations applies every schema version not yet recorded in schema_migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	versions, err := loadSchema()
	if err != nil {
		return err
	}

	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	current, err := CurrentSchemaVersion(ctx, db)
	if err != nil {
		return err
	}

	for _, v := range versions {
		if v.Version <= current {
			continue
		}
		if err := execScript(ctx, db, v.Up, "INSERT INTO schema_migrations (version) VALUES (?)", v.Version); err != nil {
			return fmt.Errorf("failed to apply schema version %d (%s): %w", v.Version, v.Name, err)
		}
	}
	return nil
}

// RollbackMigration reverts the most recently applied schema version.
func RollbackMigration(ctx context.Context, db *sql.DB) error {
	versions, err := loadSchema()
	if err != nil {
		return err
	}

	current, err := CurrentSchemaVersion(ctx, db)
	if err != nil {
		return err
	}
	if current == 0 {
		return fmt.Errorf("no migrations to rollback")
	}

	for _, v := range versions {
		if v.Version == current {
			if err := execScript(ctx, db, v.Down, "DELETE FROM schema_migrations WHERE version = ?", v.Version); err != nil {
				return fmt.Errorf("failed to rollback schema version %d: %w", v.Version, err)
			}
			return nil
		}
	}
	return fmt.Errorf("schema version %d not found", current)
}

// CurrentSchemaVersion reports the highest applied schema version, or 0 for a fresh database.
func CurrentSchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

// execScript runs each statement of script and the bookkeeping statement in one transaction.
func execScript(ctx context.Context, db *sql.DB, script, record string, version int) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range splitStatements(script) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w\nStatement: %s", err, stmt)
		}
	}

	if _, err := tx.ExecContext(ctx, record, version); err != nil {
		return err
	}
	return tx.Commit()
}

// splitStatements drops "--" comments and splits script on semicolons.
func splitStatements(script string) []string {
	var b strings.Builder
	for line := range strings.SplitSeq(script, "\n") {
		if idx := strings.Index(line, "--"); idx >= 0 {
			line = line[:idx]
		}
		if line = strings.TrimSpace(line); line != "" {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}

	var stmts []string
	for stmt := range strings.SplitSeq(b.String(), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}
