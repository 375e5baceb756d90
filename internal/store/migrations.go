package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	username    TEXT NOT NULL UNIQUE,
	email       TEXT NOT NULL UNIQUE,
	trust_level INTEGER NOT NULL DEFAULT 0,
	active      INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS categories (
	id                       INTEGER PRIMARY KEY AUTOINCREMENT,
	name                     TEXT NOT NULL,
	email_in                 TEXT NOT NULL DEFAULT '',
	email_in_allow_strangers INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS topics (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	category_id INTEGER NOT NULL REFERENCES categories(id),
	title       TEXT NOT NULL,
	closed      INTEGER NOT NULL DEFAULT 0,
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS posts (
	id                   INTEGER PRIMARY KEY AUTOINCREMENT,
	topic_id             INTEGER NOT NULL REFERENCES topics(id),
	user_id              INTEGER NOT NULL REFERENCES users(id),
	post_number          INTEGER NOT NULL,
	reply_to_post_number INTEGER NOT NULL DEFAULT 0,
	raw                  TEXT NOT NULL,
	via_email            INTEGER NOT NULL DEFAULT 0,
	raw_email            TEXT NOT NULL DEFAULT '',
	created_at           DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS email_logs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	reply_key   TEXT NOT NULL UNIQUE,
	user_id     INTEGER NOT NULL REFERENCES users(id),
	topic_id    INTEGER NOT NULL REFERENCES topics(id),
	post_number INTEGER NOT NULL DEFAULT 1,
	to_address  TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_categories_email_in ON categories(email_in);
CREATE INDEX IF NOT EXISTS idx_posts_topic_id ON posts(topic_id);
CREATE INDEX IF NOT EXISTS idx_email_logs_reply_key ON email_logs(reply_key);
`,
	},
}
