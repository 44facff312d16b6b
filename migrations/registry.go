package migrations

import (
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

const (
	rootDir    = "data/sql/migrations"
	upSuffix   = ".up.sql"
	downSuffix = ".down.sql"
)

// Source is the migration set for one dialect. Postgres files live at the
// root of the tree and sqlite overrides under sqlite/.
type Source struct {
	Dialect string
	Dir     string
	FS      fs.FS
	Names   []string
}

// Sources returns the postgres and sqlite sources of root, or of the embedded
// tree when root is nil. Every up migration must have a matching down file.
func Sources(root fs.FS) ([]Source, error) {
	if root == nil {
		root = FS()
	}
	base, dir, err := locateRoot(root)
	if err != nil {
		return nil, err
	}

	sqliteFS, err := fs.Sub(base, "sqlite")
	if err != nil {
		return nil, fmt.Errorf("migrations: resolve sqlite directory: %w", err)
	}
	sources := []Source{
		{Dialect: DialectPostgres, Dir: dir, FS: base},
		{Dialect: DialectSQLite, Dir: joinDir(dir, "sqlite"), FS: sqliteFS},
	}
	for i := range sources {
		names, err := pairedNames(sources[i])
		if err != nil {
			return nil, err
		}
		sources[i].Names = names
	}
	return sources, nil
}

// ForDialect picks the source matching a dialect name from Sources.
func ForDialect(root fs.FS, dialect string) (Source, error) {
	dialect = strings.ToLower(strings.TrimSpace(dialect))
	sources, err := Sources(root)
	if err != nil {
		return Source{}, err
	}
	for _, source := range sources {
		if source.Dialect == dialect {
			return source, nil
		}
	}
	return Source{}, fmt.Errorf("migrations: unsupported dialect %q", dialect)
}

func pairedNames(source Source) ([]string, error) {
	ups, err := fs.Glob(source.FS, "*"+upSuffix)
	if err != nil {
		return nil, fmt.Errorf("migrations: glob %s: %w", source.Dir, err)
	}
	if len(ups) == 0 {
		return nil, fmt.Errorf("migrations: %s directory %q has no %s files", source.Dialect, source.Dir, upSuffix)
	}
	names := make([]string, 0, len(ups))
	for _, up := range ups {
		name := strings.TrimSuffix(up, upSuffix)
		if _, err := fs.Stat(source.FS, name+downSuffix); err != nil {
			return nil, fmt.Errorf("migrations: %s migration %s has no down file", source.Dialect, name)
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// locateRoot accepts either the full tree or a directory that already holds
// the postgres files.
func locateRoot(root fs.FS) (fs.FS, string, error) {
	if info, err := fs.Stat(root, rootDir); err == nil && info.IsDir() {
		sub, err := fs.Sub(root, rootDir)
		if err != nil {
			return nil, "", fmt.Errorf("migrations: resolve %s: %w", rootDir, err)
		}
		return sub, rootDir, nil
	}
	if matches, err := fs.Glob(root, "*"+upSuffix); err == nil && len(matches) > 0 {
		return root, ".", nil
	}
	return nil, "", fmt.Errorf("migrations: %s not found", rootDir)
}

func joinDir(base string, child string) string {
	if base == "." {
		return child
	}
	return strings.TrimSuffix(base, "/") + "/" + child
}
