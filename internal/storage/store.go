package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bobmatnyc/kuzu-memory/internal/memory"
	"github.com/bobmatnyc/kuzu-memory/internal/pool"
)

// SQLiteStore implements Store over a pool.Pool. It is grounded on the
// teacher's internal/storage/sqlite/memory_store.go CRUD bodies, adapted
// from the teacher's flat enrichment-status schema to spec §4.3's
// graph-shaped memories/entities/mentions tables.
type SQLiteStore struct {
	pool *pool.Pool
}

var _ Store = (*SQLiteStore)(nil)

// Open creates the schema (if absent) on pool's shared handle and returns
// a ready SQLiteStore.
func Open(ctx context.Context, p *pool.Pool) (*SQLiteStore, error) {
	if _, err := p.DB().ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("storage: creating schema: %w", err)
	}
	return &SQLiteStore{pool: p}, nil
}

// Put implements spec §4.3 put(): insert-or-upsert a memory and its
// entity mentions/session membership in one writer-leased transaction.
func (s *SQLiteStore) Put(ctx context.Context, m *memory.Memory, upsert bool) (string, error) {
	conn, release, err := s.pool.AcquireWriter(ctx)
	if err != nil {
		return "", err
	}
	defer release()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM memories WHERE id = ?)`, m.ID).Scan(&exists); err != nil {
		return "", err
	}
	if exists && !upsert {
		return "", ErrConflict
	}

	metadataJSON, err := json.Marshal(m.Metadata)
	if err != nil {
		return "", fmt.Errorf("storage: marshalling metadata: %w", err)
	}
	keywordsJSON, err := json.Marshal(m.Keywords)
	if err != nil {
		return "", err
	}
	entitiesJSON, err := json.Marshal(m.Entities)
	if err != nil {
		return "", err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO memories (
			id, content, content_hash, memory_type, source_type,
			session_id, agent_id, user_id, importance, confidence,
			access_count, created_at, accessed_at, valid_from, valid_to,
			metadata, keywords, entities
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			content=excluded.content, content_hash=excluded.content_hash,
			memory_type=excluded.memory_type, source_type=excluded.source_type,
			session_id=excluded.session_id, agent_id=excluded.agent_id, user_id=excluded.user_id,
			importance=excluded.importance, confidence=excluded.confidence,
			access_count=excluded.access_count, accessed_at=excluded.accessed_at,
			valid_from=excluded.valid_from, valid_to=excluded.valid_to,
			metadata=excluded.metadata, keywords=excluded.keywords, entities=excluded.entities
	`,
		m.ID, m.Content, m.ContentHash, string(m.MemoryType), string(m.SourceType),
		nullable(m.SessionID), nullable(m.AgentID), m.UserID, m.Importance, m.Confidence,
		m.AccessCount, m.CreatedAt, m.AccessedAt, m.ValidFrom, nullableTime(m.ValidTo),
		string(metadataJSON), string(keywordsJSON), string(entitiesJSON),
	)
	if err != nil {
		return "", fmt.Errorf("storage: put %s: %w", m.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM mentions WHERE memory_id = ?`, m.ID); err != nil {
		return "", err
	}
	for _, entity := range m.Entities {
		entityID, err := upsertEntity(ctx, tx, entity)
		if err != nil {
			return "", err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO mentions (memory_id, entity_id, weight) VALUES (?,?,1.0)
			 ON CONFLICT(memory_id, entity_id) DO NOTHING`, m.ID, entityID); err != nil {
			return "", err
		}
	}

	if m.SessionID != "" {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sessions (session_id, started_at) VALUES (?,?) ON CONFLICT(session_id) DO NOTHING`,
			m.SessionID, m.CreatedAt); err != nil {
			return "", err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO belongs_to (memory_id, session_id) VALUES (?,?)
			 ON CONFLICT(memory_id) DO UPDATE SET session_id=excluded.session_id`,
			m.ID, m.SessionID); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return m.ID, nil
}

func upsertEntity(ctx context.Context, tx *sql.Tx, name string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	var id string
	err := tx.QueryRowContext(ctx, `SELECT id FROM entities WHERE normalized_name = ?`, normalized).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return "", err
	}
	id = memory.ContentHash(normalized)[:16]
	_, err = tx.ExecContext(ctx,
		`INSERT INTO entities (id, name, normalized_name, kind) VALUES (?,?,?,'')
		 ON CONFLICT(normalized_name) DO NOTHING`, id, name, normalized)
	if err != nil {
		return "", err
	}
	return id, nil
}

// Get implements spec §4.3 get().
func (s *SQLiteStore) Get(ctx context.Context, id string) (*memory.Memory, error) {
	conn, release, err := s.pool.AcquireReader(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	row := conn.QueryRowContext(ctx, selectColumns+` FROM memories WHERE id = ?`, id)
	m, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return m, err
}

// FindByContentHash backs dedup.Lookup.
func (s *SQLiteStore) FindByContentHash(ctx context.Context, contentHash, userID string) (*memory.Memory, error) {
	conn, release, err := s.pool.AcquireReader(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	row := conn.QueryRowContext(ctx,
		selectColumns+` FROM memories WHERE content_hash = ? AND user_id = ? AND (valid_to IS NULL OR valid_to > ?)`,
		contentHash, userID, time.Now())
	m, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return m, err
}

// FindByTypeAndUser backs dedup.Lookup.
func (s *SQLiteStore) FindByTypeAndUser(ctx context.Context, memoryType memory.Type, userID string, limit int) ([]*memory.Memory, error) {
	conn, release, err := s.pool.AcquireReader(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := conn.QueryContext(ctx,
		selectColumns+` FROM memories WHERE memory_type = ? AND user_id = ? AND (valid_to IS NULL OR valid_to > ?) ORDER BY created_at DESC LIMIT ?`,
		string(memoryType), userID, time.Now(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMemories(rows)
}

// QueryByKeywords implements spec §4.3 query_by_keywords(): candidates are
// rows whose keywords JSON array intersects ks, scored by weighted
// Jaccard (weights from the caller-supplied ks map) in the recall
// engine — this layer only returns candidates and lets the caller score,
// matching the spec's split between Store (candidate generation) and
// Recall engine (scoring, §4.4.3).
func (s *SQLiteStore) QueryByKeywords(ctx context.Context, keywords map[string]float64, limit int, f Filters) ([]Scored, error) {
	conn, release, err := s.pool.AcquireReader(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	clauses, args := buildFilterClauses(f)
	var like []string
	for kw := range keywords {
		like = append(like, `keywords LIKE ?`)
		args = append(args, `%"`+kw+`"%`)
	}
	if len(like) > 0 {
		clauses = append(clauses, "("+strings.Join(like, " OR ")+")")
	}

	query := selectColumns + ` FROM memories`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	mems, err := scanMemories(rows)
	if err != nil {
		return nil, err
	}
	return toScored(mems), nil
}

// QueryByEntities implements spec §4.3 query_by_entities().
func (s *SQLiteStore) QueryByEntities(ctx context.Context, entities []string, limit int, f Filters) ([]Scored, error) {
	conn, release, err := s.pool.AcquireReader(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	clauses, args := buildFilterClauses(f)
	var like []string
	for _, e := range entities {
		like = append(like, `entities LIKE ?`)
		args = append(args, `%"`+e+`"%`)
	}
	if len(like) > 0 {
		clauses = append(clauses, "("+strings.Join(like, " OR ")+")")
	}

	query := selectColumns + ` FROM memories`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	mems, err := scanMemories(rows)
	if err != nil {
		return nil, err
	}
	return toScored(mems), nil
}

// QueryRecent implements spec §4.3 query_recent().
func (s *SQLiteStore) QueryRecent(ctx context.Context, limit int, f Filters) ([]*memory.Memory, error) {
	conn, release, err := s.pool.AcquireReader(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	clauses, args := buildFilterClauses(f)
	query := selectColumns + ` FROM memories`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMemories(rows)
}

// UpdateAccess implements spec §4.3 update_access().
func (s *SQLiteStore) UpdateAccess(ctx context.Context, id string, now time.Time) error {
	conn, release, err := s.pool.AcquireWriter(ctx)
	if err != nil {
		return err
	}
	defer release()

	res, err := conn.ExecContext(ctx,
		`UPDATE memories SET access_count = access_count + 1, accessed_at = ? WHERE id = ?`, now, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateImportance stores importance as id's new importance (spec §4.2 rule
// 3); the caller computes the duplicate-hit increment and clamps it to [0,1].
func (s *SQLiteStore) UpdateImportance(ctx context.Context, id string, importance float64) error {
	conn, release, err := s.pool.AcquireWriter(ctx)
	if err != nil {
		return err
	}
	defer release()

	res, err := conn.ExecContext(ctx, `UPDATE memories SET importance = ? WHERE id = ?`, importance, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete implements spec §4.3 delete().
func (s *SQLiteStore) Delete(ctx context.Context, id string) (bool, error) {
	conn, release, err := s.pool.AcquireWriter(ctx)
	if err != nil {
		return false, err
	}
	defer release()

	res, err := conn.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// SweepExpired implements spec §4.3 sweep_expired(): delete live memories
// whose valid_to has passed.
func (s *SQLiteStore) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	conn, release, err := s.pool.AcquireWriter(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	res, err := conn.ExecContext(ctx, `DELETE FROM memories WHERE valid_to IS NOT NULL AND valid_to <= ?`, now)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// recentMemoriesWindow bounds stats()'s recent_memories count (spec §6.2):
// live memories created within the last day.
const recentMemoriesWindow = 24 * time.Hour

// StoreStats implements spec §4.3 stats().
func (s *SQLiteStore) StoreStats(ctx context.Context) (Stats, error) {
	conn, release, err := s.pool.AcquireReader(ctx)
	if err != nil {
		return Stats{}, err
	}
	defer release()

	stats := Stats{ByType: make(map[memory.Type]int)}
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories`).Scan(&stats.TotalMemories); err != nil {
		return Stats{}, err
	}

	rows, err := conn.QueryContext(ctx, `SELECT memory_type, COUNT(*) FROM memories GROUP BY memory_type`)
	if err != nil {
		return Stats{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var t string
		var n int
		if err := rows.Scan(&t, &n); err != nil {
			return Stats{}, err
		}
		stats.ByType[memory.Type(t)] = n
	}

	now := time.Now()
	if err := conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM memories WHERE valid_to IS NOT NULL AND valid_to <= ?`, now).Scan(&stats.ExpiredLive); err != nil {
		return Stats{}, err
	}

	if err := conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM memories WHERE created_at >= ? AND (valid_to IS NULL OR valid_to > ?)`,
		now.Add(-recentMemoriesWindow), now).Scan(&stats.RecentMemories); err != nil {
		return Stats{}, err
	}
	return stats, rows.Err()
}

// Close shuts the underlying pool down with the default grace period.
func (s *SQLiteStore) Close() error {
	return s.pool.Shutdown(5 * time.Second)
}

const selectColumns = `SELECT id, content, content_hash, memory_type, source_type,
	session_id, agent_id, user_id, importance, confidence, access_count,
	created_at, accessed_at, valid_from, valid_to, metadata, keywords, entities`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMemory(row rowScanner) (*memory.Memory, error) {
	var m memory.Memory
	var sessionID, agentID sql.NullString
	var validTo sql.NullTime
	var metadataJSON, keywordsJSON, entitiesJSON string
	var memType, srcType string

	err := row.Scan(
		&m.ID, &m.Content, &m.ContentHash, &memType, &srcType,
		&sessionID, &agentID, &m.UserID, &m.Importance, &m.Confidence, &m.AccessCount,
		&m.CreatedAt, &m.AccessedAt, &m.ValidFrom, &validTo,
		&metadataJSON, &keywordsJSON, &entitiesJSON,
	)
	if err != nil {
		return nil, err
	}
	m.MemoryType = memory.Type(memType)
	m.SourceType = memory.Source(srcType)
	m.SessionID = sessionID.String
	m.AgentID = agentID.String
	if validTo.Valid {
		m.ValidTo = &validTo.Time
	}
	if err := json.Unmarshal([]byte(metadataJSON), &m.Metadata); err != nil {
		return nil, fmt.Errorf("storage: unmarshalling metadata for %s: %w", m.ID, err)
	}
	if err := json.Unmarshal([]byte(keywordsJSON), &m.Keywords); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(entitiesJSON), &m.Entities); err != nil {
		return nil, err
	}
	return &m, nil
}

func scanMemories(rows *sql.Rows) ([]*memory.Memory, error) {
	var out []*memory.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func toScored(mems []*memory.Memory) []Scored {
	out := make([]Scored, len(mems))
	for i, m := range mems {
		out[i] = Scored{Memory: m}
	}
	return out
}

// buildFilterClauses always includes the §3.2 liveness predicate
// ("expired memories are excluded from all queries") alongside the
// caller's own filters, so every candidate-generation query only ever
// considers rows that are not yet expired.
func buildFilterClauses(f Filters) ([]string, []any) {
	clauses := []string{"(valid_to IS NULL OR valid_to > ?)"}
	args := []any{time.Now()}
	if f.UserID != "" {
		clauses = append(clauses, "user_id = ?")
		args = append(args, f.UserID)
	}
	if f.SessionID != "" {
		clauses = append(clauses, "session_id = ?")
		args = append(args, f.SessionID)
	}
	if f.MemoryType != "" {
		clauses = append(clauses, "memory_type = ?")
		args = append(args, string(f.MemoryType))
	}
	return clauses, args
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

// SortScoredByFinalDesc sorts candidates by a caller-provided score
// descending, tie-breaking by (created_at desc, id asc) per spec §4.4.4.
// Exported for the recall package's ranking stage to reuse the exact
// tie-break rule against storage-returned candidates.
func SortScoredByFinalDesc(scored []Scored, finalScore func(Scored) float64) {
	sort.SliceStable(scored, func(i, j int) bool {
		si, sj := finalScore(scored[i]), finalScore(scored[j])
		if si != sj {
			return si > sj
		}
		if !scored[i].Memory.CreatedAt.Equal(scored[j].Memory.CreatedAt) {
			return scored[i].Memory.CreatedAt.After(scored[j].Memory.CreatedAt)
		}
		return scored[i].Memory.ID < scored[j].Memory.ID
	})
}
