package storage

// schema is the SQLite-backed rendition of the conceptual graph schema from
// spec §4.3: a Memory node table, an Entity node table, a Session node
// table, and three edge tables (mentions, relates_to, belongs_to). Grounded
// on the teacher's internal/storage/postgres/schema.go table layout,
// adapted to SQLite types and to the spec's six-type taxonomy instead of
// the teacher's free-form category/subcategory fields.
const schema = `
CREATE TABLE IF NOT EXISTS memories (
	id TEXT PRIMARY KEY,
	content TEXT NOT NULL,
	content_hash TEXT NOT NULL,

	memory_type TEXT NOT NULL,
	source_type TEXT NOT NULL,

	session_id TEXT,
	agent_id TEXT,
	user_id TEXT NOT NULL DEFAULT '',

	importance REAL NOT NULL DEFAULT 0,
	confidence REAL NOT NULL DEFAULT 0,

	access_count INTEGER NOT NULL DEFAULT 0,

	created_at TIMESTAMP NOT NULL,
	accessed_at TIMESTAMP NOT NULL,
	valid_from TIMESTAMP NOT NULL,
	valid_to TIMESTAMP,

	metadata TEXT NOT NULL DEFAULT '{}',
	keywords TEXT NOT NULL DEFAULT '[]',
	entities TEXT NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_memories_content_hash ON memories(content_hash, user_id);
CREATE INDEX IF NOT EXISTS idx_memories_type_user ON memories(memory_type, user_id);
CREATE INDEX IF NOT EXISTS idx_memories_created_at ON memories(created_at);
CREATE INDEX IF NOT EXISTS idx_memories_valid_to ON memories(valid_to);

CREATE TABLE IF NOT EXISTS entities (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	normalized_name TEXT NOT NULL,
	kind TEXT NOT NULL DEFAULT ''
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_entities_normalized ON entities(normalized_name);

CREATE TABLE IF NOT EXISTS sessions (
	session_id TEXT PRIMARY KEY,
	started_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS mentions (
	memory_id TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
	entity_id TEXT NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
	weight REAL NOT NULL DEFAULT 1.0,
	PRIMARY KEY (memory_id, entity_id)
);

CREATE INDEX IF NOT EXISTS idx_mentions_entity ON mentions(entity_id);

CREATE TABLE IF NOT EXISTS relates_to (
	from_memory_id TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
	to_memory_id TEXT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
	kind TEXT NOT NULL,
	similarity REAL NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL,
	PRIMARY KEY (from_memory_id, to_memory_id, kind)
);

CREATE TABLE IF NOT EXISTS belongs_to (
	memory_id TEXT PRIMARY KEY REFERENCES memories(id) ON DELETE CASCADE,
	session_id TEXT NOT NULL REFERENCES sessions(session_id) ON DELETE CASCADE
);
`
