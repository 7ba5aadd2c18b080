package store

// schema is the SQL DDL applied at startup by [Store.Migrate]. It is
// additive and idempotent (CREATE TABLE IF NOT EXISTS / CREATE INDEX IF NOT
// EXISTS) so repeated calls against an already-migrated database are no-ops.
const schema = `
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS folders (
    id        TEXT PRIMARY KEY,
    name      TEXT NOT NULL,
    parent_id TEXT REFERENCES folders(id) ON DELETE SET NULL
);
CREATE INDEX IF NOT EXISTS idx_folders_parent ON folders(parent_id);

CREATE TABLE IF NOT EXISTS sources (
    id           TEXT PRIMARY KEY,
    title        TEXT NOT NULL,
    source_type  TEXT NOT NULL,
    raw_text     TEXT NOT NULL DEFAULT '',
    cleaned_text TEXT NOT NULL DEFAULT '',
    cleaning     TEXT NOT NULL DEFAULT '{}',
    cover_art    TEXT NOT NULL DEFAULT '',
    folder_id    TEXT REFERENCES folders(id) ON DELETE SET NULL,
    created_at   TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sources_folder ON sources(folder_id);

CREATE TABLE IF NOT EXISTS episodes (
    id                  TEXT PRIMARY KEY,
    source_id           TEXT NOT NULL REFERENCES sources(id) ON DELETE CASCADE,
    title               TEXT NOT NULL,
    voice_id            TEXT NOT NULL,
    output_format       TEXT NOT NULL,
    chunk_strategy      TEXT NOT NULL,
    chunk_max_length    INTEGER NOT NULL,
    breathing_intensity TEXT NOT NULL,
    status              TEXT NOT NULL,
    total_duration_secs REAL NOT NULL DEFAULT 0,
    folder_id           TEXT REFERENCES folders(id) ON DELETE SET NULL,
    created_at          TIMESTAMP NOT NULL,
    last_played_at      TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_episodes_source ON episodes(source_id);
CREATE INDEX IF NOT EXISTS idx_episodes_folder ON episodes(folder_id);
CREATE INDEX IF NOT EXISTS idx_episodes_status ON episodes(status);

CREATE TABLE IF NOT EXISTS chunks (
    episode_id    TEXT NOT NULL REFERENCES episodes(id) ON DELETE CASCADE,
    chunk_index   INTEGER NOT NULL,
    text          TEXT NOT NULL,
    status        TEXT NOT NULL,
    duration_secs REAL NOT NULL DEFAULT 0,
    audio_path    TEXT NOT NULL DEFAULT '',
    error_message TEXT NOT NULL DEFAULT '',
    label         TEXT NOT NULL DEFAULT '',
    created_at    TIMESTAMP NOT NULL,
    PRIMARY KEY (episode_id, chunk_index)
);
CREATE INDEX IF NOT EXISTS idx_chunks_status ON chunks(status);

CREATE TABLE IF NOT EXISTS tags (
    id   TEXT PRIMARY KEY,
    name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS source_tags (
    source_id TEXT NOT NULL REFERENCES sources(id) ON DELETE CASCADE,
    tag_id    TEXT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
    PRIMARY KEY (source_id, tag_id)
);

CREATE TABLE IF NOT EXISTS episode_tags (
    episode_id TEXT NOT NULL REFERENCES episodes(id) ON DELETE CASCADE,
    tag_id     TEXT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
    PRIMARY KEY (episode_id, tag_id)
);

CREATE TABLE IF NOT EXISTS playback_state (
    episode_id        TEXT PRIMARY KEY REFERENCES episodes(id) ON DELETE CASCADE,
    current_chunk_idx INTEGER NOT NULL DEFAULT 0,
    position_secs     REAL NOT NULL DEFAULT 0,
    percent_listened  REAL NOT NULL DEFAULT 0,
    updated_at        TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
    id    INTEGER PRIMARY KEY CHECK (id = 1),
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS undo_tickets (
    id              TEXT PRIMARY KEY,
    operation_kind  TEXT NOT NULL,
    episode_id      TEXT NOT NULL,
    inverse_payload BLOB NOT NULL,
    expires_at      TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_undo_tickets_expires ON undo_tickets(expires_at);
`
