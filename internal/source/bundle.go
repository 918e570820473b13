package source

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vigilbox/vigil-backend/internal/model"
)

// BundleExt is the file extension for offline paper bundles.
const BundleExt = ".bundle.db"

const bundleFormatVersion = "1"

// BundlePath validates a bundle name and joins it onto the bundle directory.
// SECURITY: names must be plain file stems so a crafted reference cannot
// escape the bundle directory.
func BundlePath(dir, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: missing bundle name", ErrSourceInvalid)
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return "", fmt.Errorf("%w: bad bundle name", ErrSourceInvalid)
	}
	path := filepath.Join(dir, name+BundleExt)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", ErrSourceNotFound
		}
		return "", fmt.Errorf("stat bundle: %w", err)
	}
	return path, nil
}

// SaveBundle writes a question set to dir as a standalone SQLite file. An
// existing bundle with the same name is replaced.
func SaveBundle(dir, name string, set *model.QuestionSet) error {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("%w: bad bundle name", ErrSourceInvalid)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create bundle dir: %w", err)
	}

	path := filepath.Join(dir, name+BundleExt)
	tmp := path + ".tmp"
	if err := writeBundleFile(tmp, set); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("publish bundle: %w", err)
	}
	return nil
}

func writeBundleFile(path string, set *model.QuestionSet) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open bundle: %w", err)
	}
	defer db.Close()

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin bundle tx: %w", err)
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE bundle_meta (key TEXT PRIMARY KEY, value TEXT NOT NULL)`,
		`CREATE TABLE questions (
			ord      INTEGER PRIMARY KEY,
			id       INTEGER NOT NULL UNIQUE,
			topic    TEXT NOT NULL,
			question TEXT NOT NULL,
			options  TEXT NOT NULL,
			answer   TEXT NOT NULL
		)`,
	}
	for _, s := range stmts {
		if _, err := tx.Exec(s); err != nil {
			return fmt.Errorf("create bundle schema: %w", err)
		}
	}

	meta := map[string]string{
		"format_version":   bundleFormatVersion,
		"exam_name":        set.ExamName,
		"duration_seconds": strconv.Itoa(set.DurationSeconds),
		"max_violations":   strconv.Itoa(set.MaxViolations),
		"created_at":       time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range meta {
		if _, err := tx.Exec(`INSERT INTO bundle_meta (key, value) VALUES (?, ?)`, k, v); err != nil {
			return fmt.Errorf("write bundle meta: %w", err)
		}
	}

	insert, err := tx.Prepare(`INSERT INTO questions (ord, id, topic, question, options, answer) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare bundle insert: %w", err)
	}
	defer insert.Close()

	for i, q := range set.Questions {
		opts, err := json.Marshal(q.Options)
		if err != nil {
			return fmt.Errorf("encode options: %w", err)
		}
		if _, err := insert.Exec(i, q.ID, q.Topic, q.Question, string(opts), string(q.Answer)); err != nil {
			return fmt.Errorf("write bundle question: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bundle: %w", err)
	}
	return nil
}

// OpenBundle reads a bundle file back into a question set.
func OpenBundle(path string) (*model.QuestionSet, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceInvalid, err)
	}
	defer db.Close()

	meta, err := readBundleMeta(db)
	if err != nil {
		return nil, err
	}

	set := &model.QuestionSet{ExamName: meta["exam_name"]}
	if set.ExamName == "" {
		return nil, fmt.Errorf("%w: bundle has no exam name", ErrSourceInvalid)
	}
	set.DurationSeconds, _ = strconv.Atoi(meta["duration_seconds"])
	set.MaxViolations, _ = strconv.Atoi(meta["max_violations"])

	rows, err := db.Query(`SELECT id, topic, question, options, answer FROM questions ORDER BY ord`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceInvalid, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			q       model.QuestionRecord
			options string
			answer  string
		)
		if err := rows.Scan(&q.ID, &q.Topic, &q.Question, &options, &answer); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSourceInvalid, err)
		}
		if err := json.Unmarshal([]byte(options), &q.Options); err != nil {
			return nil, fmt.Errorf("%w: bad options payload", ErrSourceInvalid)
		}
		q.Answer = json.RawMessage(answer)
		set.Questions = append(set.Questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceInvalid, err)
	}
	if len(set.Questions) == 0 {
		return nil, fmt.Errorf("%w: bundle has no questions", ErrSourceInvalid)
	}
	return set, nil
}

func readBundleMeta(db *sql.DB) (map[string]string, error) {
	rows, err := db.Query(`SELECT key, value FROM bundle_meta`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceInvalid, err)
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSourceInvalid, err)
		}
		meta[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceInvalid, err)
	}
	if meta["format_version"] != bundleFormatVersion {
		return nil, fmt.Errorf("%w: unsupported bundle version %q", ErrSourceInvalid, meta["format_version"])
	}
	return meta, nil
}

// ListBundles enumerates the readable bundles in dir. Unreadable files are
// skipped rather than failing the whole listing.
func ListBundles(dir string) ([]model.BundleInfo, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read bundle dir: %w", err)
	}

	var out []model.BundleInfo
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), BundleExt) {
			continue
		}
		set, err := OpenBundle(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		out = append(out, model.BundleInfo{
			Name:            strings.TrimSuffix(e.Name(), BundleExt),
			ExamName:        set.ExamName,
			QuestionCount:   len(set.Questions),
			DurationSeconds: set.DurationSeconds,
		})
	}
	return out, nil
}
