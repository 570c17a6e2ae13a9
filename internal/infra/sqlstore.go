package infra

import (
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sqlcipher "github.com/mutecomm/go-sqlcipher/v4"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/eliteGoblin/focusd/focuslock/internal/domain"
)

// Driver names registered by the two SQLite backends.
const (
	driverSQLCipher = "sqlite3"
	driverSQLite    = "sqlite"
)

// SQLStore implements domain.Store on SQLite, either encrypted with
// SQLCipher or plain through the pure-Go modernc driver.
type SQLStore struct {
	db     *sql.DB
	dbPath string
}

// OpenEncryptedStore opens (or creates) a SQLCipher database keyed with key.
func OpenEncryptedStore(dbPath string, key []byte) (*SQLStore, error) {
	if err := ensureDir(dbPath); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=4096&_busy_timeout=5000",
		dbPath, hex.EncodeToString(key))
	return openSQLStore(driverSQLCipher, dsn, dbPath)
}

// OpenSQLiteStore opens (or creates) an unencrypted SQLite database.
func OpenSQLiteStore(dbPath string) (*SQLStore, error) {
	if err := ensureDir(dbPath); err != nil {
		return nil, err
	}
	dsn := filepath.Clean(dbPath) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	return openSQLStore(driverSQLite, dsn, dbPath)
}

func openSQLStore(driver, dsn, dbPath string) (*SQLStore, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite serializes writers anyway; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	// With SQLCipher a wrong key only shows up on first access.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &SQLStore{db: db, dbPath: dbPath}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

func ensureDir(dbPath string) error {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return nil
}

// createTables creates the schema if it doesn't exist.
func (s *SQLStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		duration_secs INTEGER NOT NULL,
		start_utc INTEGER,
		end_utc INTEGER,
		remaining_secs INTEGER,
		active INTEGER NOT NULL DEFAULT 0
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_one_active ON sessions(active) WHERE active = 1;
	CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status);

	CREATE TABLE IF NOT EXISTS block_rules (
		id TEXT PRIMARY KEY,
		app_identity TEXT NOT NULL UNIQUE,
		match_kind TEXT NOT NULL,
		mode TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS favorites (
		id TEXT PRIMARY KEY,
		app_identity TEXT NOT NULL,
		display_name TEXT NOT NULL,
		pinned_order INTEGER,
		icon_hint TEXT
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLStore) Sessions() domain.SessionRepository   { return sqlSessions{db: s.db} }
func (s *SQLStore) Rules() domain.RuleRepository         { return sqlRules{db: s.db} }
func (s *SQLStore) Favorites() domain.FavoriteRepository { return sqlFavorites{db: s.db} }
func (s *SQLStore) Settings() domain.SettingsRepository  { return sqlSettings{db: s.db} }

// Path returns the database file path.
func (s *SQLStore) Path() string {
	return s.dbPath
}

// Close releases the database connection.
func (s *SQLStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// --- sessions ---

type sqlSessions struct{ db *sql.DB }

const sessionColumns = `id, status, duration_secs, start_utc, end_utc, remaining_secs`

func (r sqlSessions) Insert(s domain.Session) error {
	_, err := r.db.Exec(`
		INSERT INTO sessions (id, status, duration_secs, start_utc, end_utc, remaining_secs, active)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ID, string(s.Status), s.DurationSecs,
		nullInt(s.StartUTC), nullInt(s.EndUTC), nullInt(s.RemainingSecs), activeFlag(s.Status),
	)
	if isUniqueViolation(err) {
		return &domain.ConflictError{Resource: "session", Key: s.ID, Reason: "another session is active"}
	}
	return err
}

func (r sqlSessions) Update(s domain.Session) error {
	res, err := r.db.Exec(`
		UPDATE sessions
		SET status = ?, duration_secs = ?, start_utc = ?, end_utc = ?, remaining_secs = ?, active = ?
		WHERE id = ?`,
		string(s.Status), s.DurationSecs,
		nullInt(s.StartUTC), nullInt(s.EndUTC), nullInt(s.RemainingSecs), activeFlag(s.Status),
		s.ID,
	)
	if isUniqueViolation(err) {
		return &domain.ConflictError{Resource: "session", Key: s.ID, Reason: "another session is active"}
	}
	if err != nil {
		return err
	}
	return requireRow(res, "session", s.ID)
}

func (r sqlSessions) Get(id string) (*domain.Session, error) {
	row := r.db.QueryRow(`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Resource: "session", ID: id}
	}
	return s, err
}

func (r sqlSessions) Active() (*domain.Session, error) {
	row := r.db.QueryRow(`SELECT ` + sessionColumns + ` FROM sessions WHERE active = 1`)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

func (r sqlSessions) List() ([]domain.Session, error) {
	rows, err := r.db.Query(`SELECT ` + sessionColumns + ` FROM sessions ORDER BY rowid DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*domain.Session, error) {
	var (
		s                     domain.Session
		status                string
		start, end, remaining sql.NullInt64
	)
	if err := row.Scan(&s.ID, &status, &s.DurationSecs, &start, &end, &remaining); err != nil {
		return nil, err
	}
	s.Status = domain.SessionStatus(status)
	s.StartUTC = intPtr(start)
	s.EndUTC = intPtr(end)
	s.RemainingSecs = intPtr(remaining)
	return &s, nil
}

// --- block rules ---

type sqlRules struct{ db *sql.DB }

func (r sqlRules) Insert(rule domain.BlockRule) error {
	_, err := r.db.Exec(`INSERT INTO block_rules (id, app_identity, match_kind, mode) VALUES (?, ?, ?, ?)`,
		rule.ID, rule.AppIdentity, string(rule.MatchKind), string(rule.Mode))
	if isUniqueViolation(err) {
		return duplicateRule(rule.AppIdentity)
	}
	return err
}

func (r sqlRules) Update(rule domain.BlockRule) error {
	res, err := r.db.Exec(`UPDATE block_rules SET app_identity = ?, match_kind = ?, mode = ? WHERE id = ?`,
		rule.AppIdentity, string(rule.MatchKind), string(rule.Mode), rule.ID)
	if isUniqueViolation(err) {
		return duplicateRule(rule.AppIdentity)
	}
	if err != nil {
		return err
	}
	return requireRow(res, "block rule", rule.ID)
}

func (r sqlRules) Delete(id string) error {
	res, err := r.db.Exec(`DELETE FROM block_rules WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res, "block rule", id)
}

func (r sqlRules) Get(id string) (*domain.BlockRule, error) {
	var rule domain.BlockRule
	var kind, mode string
	err := r.db.QueryRow(`SELECT id, app_identity, match_kind, mode FROM block_rules WHERE id = ?`, id).
		Scan(&rule.ID, &rule.AppIdentity, &kind, &mode)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Resource: "block rule", ID: id}
	}
	if err != nil {
		return nil, err
	}
	rule.MatchKind = domain.MatchKind(kind)
	rule.Mode = domain.BlockMode(mode)
	return &rule, nil
}

func (r sqlRules) List() ([]domain.BlockRule, error) {
	rows, err := r.db.Query(`SELECT id, app_identity, match_kind, mode FROM block_rules ORDER BY app_identity`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.BlockRule
	for rows.Next() {
		var rule domain.BlockRule
		var kind, mode string
		if err := rows.Scan(&rule.ID, &rule.AppIdentity, &kind, &mode); err != nil {
			return nil, err
		}
		rule.MatchKind = domain.MatchKind(kind)
		rule.Mode = domain.BlockMode(mode)
		out = append(out, rule)
	}
	return out, rows.Err()
}

// --- favorites ---

type sqlFavorites struct{ db *sql.DB }

func (r sqlFavorites) Insert(f domain.Favorite) error {
	_, err := r.db.Exec(`
		INSERT INTO favorites (id, app_identity, display_name, pinned_order, icon_hint)
		VALUES (?, ?, ?, ?, ?)`,
		f.ID, f.AppIdentity, f.DisplayName, nullOrder(f.PinnedOrder), nullString(f.IconHint))
	if isUniqueViolation(err) {
		return &domain.ConflictError{Resource: "favorite", Key: f.ID, Reason: "id already exists"}
	}
	return err
}

func (r sqlFavorites) Update(f domain.Favorite) error {
	res, err := r.db.Exec(`
		UPDATE favorites SET app_identity = ?, display_name = ?, pinned_order = ?, icon_hint = ?
		WHERE id = ?`,
		f.AppIdentity, f.DisplayName, nullOrder(f.PinnedOrder), nullString(f.IconHint), f.ID)
	if err != nil {
		return err
	}
	return requireRow(res, "favorite", f.ID)
}

func (r sqlFavorites) Delete(id string) error {
	res, err := r.db.Exec(`DELETE FROM favorites WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res, "favorite", id)
}

func (r sqlFavorites) Get(id string) (*domain.Favorite, error) {
	row := r.db.QueryRow(`SELECT id, app_identity, display_name, pinned_order, icon_hint FROM favorites WHERE id = ?`, id)
	f, err := scanFavorite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Resource: "favorite", ID: id}
	}
	return f, err
}

func (r sqlFavorites) List() ([]domain.Favorite, error) {
	rows, err := r.db.Query(`SELECT id, app_identity, display_name, pinned_order, icon_hint FROM favorites ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Favorite
	for rows.Next() {
		f, err := scanFavorite(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

func scanFavorite(row scanner) (*domain.Favorite, error) {
	var (
		f     domain.Favorite
		order sql.NullInt64
		icon  sql.NullString
	)
	if err := row.Scan(&f.ID, &f.AppIdentity, &f.DisplayName, &order, &icon); err != nil {
		return nil, err
	}
	if order.Valid {
		v := int(order.Int64)
		f.PinnedOrder = &v
	}
	if icon.Valid {
		v := icon.String
		f.IconHint = &v
	}
	return &f, nil
}

// --- settings ---

type sqlSettings struct{ db *sql.DB }

func (r sqlSettings) Get(key string) (*domain.Setting, error) {
	var value string
	err := r.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &domain.Setting{Key: key, Value: value}, nil
}

func (r sqlSettings) Set(st domain.Setting) error {
	_, err := r.db.Exec(`INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)`, st.Key, st.Value)
	return err
}

func (r sqlSettings) List() ([]domain.Setting, error) {
	rows, err := r.db.Query(`SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Setting
	for rows.Next() {
		var st domain.Setting
		if err := rows.Scan(&st.Key, &st.Value); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// --- helpers ---

func requireRow(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &domain.NotFoundError{Resource: resource, ID: id}
	}
	return nil
}

func activeFlag(status domain.SessionStatus) int {
	if status.IsActive() {
		return 1
	}
	return 0
}

func nullInt(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func intPtr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func nullOrder(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

// isUniqueViolation recognizes UNIQUE/PRIMARY KEY failures from either driver.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var liteErr *msqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	var cipherErr sqlcipher.Error
	if errors.As(err, &cipherErr) && cipherErr.Code == sqlcipher.ErrConstraint {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

// Ensure SQLStore implements domain.Store.
var _ domain.Store = (*SQLStore)(nil)
