package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/arthur-debert/bridgepm/pkg/errors"
	"github.com/arthur-debert/bridgepm/pkg/logging"
	"github.com/arthur-debert/bridgepm/pkg/types"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

const columns = `exec_name, bridge, input, options, pkg_type, version, path, entry_point,
	pending_removal, installed_at, updated_at`

// Store is the durable table of installed packages. Reads may run
// concurrently; writes are serialized.
type Store struct {
	db     *sql.DB
	path   string
	mu     sync.Mutex
	logger zerolog.Logger
}

// Open opens (creating if needed) the store at path and applies migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	logger := logging.GetLogger("store")

	path, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrStoreOpen, "failed to resolve store path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrapf(err, errors.ErrStoreOpen, "failed to create store directory for %s", path)
	}
	if err := runMigrations(path); err != nil {
		return nil, errors.Wrapf(err, errors.ErrStoreOpen, "failed to migrate store %s", path)
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrStoreOpen, "failed to open store %s", path)
	}
	db.SetMaxOpenConns(1) // sqlite
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, errors.ErrStoreOpen, "failed to open store %s", path)
	}

	logger.Debug().Str("path", path).Msg("Store opened")
	return &Store{db: db, path: path, logger: logger}, nil
}

// Path is the database file location.
func (s *Store) Path() string { return s.path }

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Snapshot returns every installed package keyed by exec name.
func (s *Store) Snapshot(ctx context.Context) (map[string]types.InstalledPackage, error) {
	pkgs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]types.InstalledPackage, len(pkgs))
	for _, p := range pkgs {
		out[p.ExecName] = p
	}
	return out, nil
}

// List returns every installed package ordered by exec name.
func (s *Store) List(ctx context.Context) ([]types.InstalledPackage, error) {
	return s.query(ctx, `SELECT `+columns+` FROM packages ORDER BY exec_name`)
}

// ListByBridge returns the packages installed through bridge.
func (s *Store) ListByBridge(ctx context.Context, bridge string) ([]types.InstalledPackage, error) {
	return s.query(ctx, `SELECT `+columns+` FROM packages WHERE bridge = ? ORDER BY exec_name`, bridge)
}

// Bridges returns the distinct bridge names that own at least one package.
func (s *Store) Bridges(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT bridge FROM packages`)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrStoreIO, "failed to list bridges")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var b string
		if err := rows.Scan(&b); err != nil {
			return nil, errors.Wrap(err, errors.ErrStoreIO, "failed to read bridge name")
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrStoreIO, "failed to list bridges")
	}
	sort.Strings(out)
	return out, nil
}

// Get returns the record for execName.
func (s *Store) Get(ctx context.Context, execName string) (types.InstalledPackage, bool, error) {
	pkgs, err := s.query(ctx, `SELECT `+columns+` FROM packages WHERE exec_name = ?`, execName)
	if err != nil {
		return types.InstalledPackage{}, false, err
	}
	if len(pkgs) == 0 {
		return types.InstalledPackage{}, false, nil
	}
	return pkgs[0], true, nil
}

// Upsert inserts or replaces the record for pkg.ExecName and clears any
// pending removal mark. An exec name belongs to one bridge: replacing a row
// owned by another bridge is a namespace conflict and must go through Delete.
func (s *Store) Upsert(ctx context.Context, pkg types.InstalledPackage) error {
	if err := pkg.Validate(); err != nil {
		return errors.Wrapf(err, errors.ErrInvalidInput, "refusing to store %s", pkg.ExecName)
	}
	opts, err := json.Marshal(pkg.Options)
	if err != nil {
		return errors.Wrapf(err, errors.ErrStoreIO, "failed to encode options of %s", pkg.ExecName)
	}
	if pkg.Options == nil {
		opts = []byte("[]")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		var owner string
		err := tx.QueryRowContext(ctx, `SELECT bridge FROM packages WHERE exec_name = ?`, pkg.ExecName).Scan(&owner)
		switch {
		case err == sql.ErrNoRows:
		case err != nil:
			return errors.Wrapf(err, errors.ErrStoreIO, "failed to read %s", pkg.ExecName)
		case owner != pkg.Bridge:
			return errors.Newf(errors.ErrNamespaceConflict,
				"%s is already installed by bridge %s", pkg.ExecName, owner).
				WithDetail("owner", owner).
				WithDetail("bridge", pkg.Bridge)
		}

		now := Now()
		_, err = tx.ExecContext(ctx, `
		INSERT INTO packages(`+columns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
		ON CONFLICT(exec_name) DO UPDATE SET
		 input=excluded.input,
		 options=excluded.options,
		 pkg_type=excluded.pkg_type,
		 version=excluded.version,
		 path=excluded.path,
		 entry_point=excluded.entry_point,
		 pending_removal=0,
		 updated_at=excluded.updated_at;
		`, pkg.ExecName, pkg.Bridge, pkg.Input, string(opts), string(pkg.Type), pkg.Version,
			pkg.Path, pkg.EntryPoint, now, now)
		if err != nil {
			return errors.Wrapf(err, errors.ErrStoreIO, "failed to write %s", pkg.ExecName)
		}
		s.logger.Debug().Str("exec_name", pkg.ExecName).Str("version", pkg.Version).Msg("Package recorded")
		return nil
	})
}

// MarkPendingRemoval flags a row before its remove pipeline touches the
// filesystem. A flagged row left behind by an interrupted run is removed
// again on the next run.
func (s *Store) MarkPendingRemoval(ctx context.Context, execName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`UPDATE packages SET pending_removal = 1, updated_at = ? WHERE exec_name = ?`, Now(), execName)
	if err != nil {
		return errors.Wrapf(err, errors.ErrStoreIO, "failed to mark %s for removal", execName)
	}
	return nil
}

// Delete removes the record for execName. Deleting an absent row succeeds.
func (s *Store) Delete(ctx context.Context, execName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM packages WHERE exec_name = ?`, execName); err != nil {
		return errors.Wrapf(err, errors.ErrStoreIO, "failed to delete %s", execName)
	}
	s.logger.Debug().Str("exec_name", execName).Msg("Package record deleted")
	return nil
}

func (s *Store) query(ctx context.Context, q string, args ...interface{}) ([]types.InstalledPackage, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrStoreIO, "failed to query packages")
	}
	defer rows.Close()

	var out []types.InstalledPackage
	for rows.Next() {
		var (
			p       types.InstalledPackage
			opts    string
			pkgType string
		)
		if err := rows.Scan(&p.ExecName, &p.Bridge, &p.Input, &opts, &pkgType, &p.Version, &p.Path,
			&p.EntryPoint, &p.PendingRemoval, &p.InstalledAt, &p.UpdatedAt); err != nil {
			return nil, errors.Wrap(err, errors.ErrStoreIO, "failed to read package row")
		}
		p.Type = types.PkgType(pkgType)
		if err := json.Unmarshal([]byte(opts), &p.Options); err != nil {
			return nil, errors.Wrapf(err, errors.ErrStoreCorrupt, "options of %s are unreadable", p.ExecName)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrStoreIO, "failed to query packages")
	}
	return out, nil
}

// withTx runs fn in a transaction.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrStoreIO, "failed to begin transaction")
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.ErrStoreIO, "failed to commit")
	}
	return nil
}

// Now returns UTC time truncated to seconds.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}
