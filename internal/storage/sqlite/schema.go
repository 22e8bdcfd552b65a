package sqlite

const schema = `
-- Events table
CREATE TABLE IF NOT EXISTS events (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL CHECK(length(title) <= 500),
    description TEXT NOT NULL DEFAULT '',
    location TEXT NOT NULL DEFAULT '',
    organizer TEXT NOT NULL DEFAULT '',
    price TEXT NOT NULL DEFAULT '',
    start_time DATETIME NOT NULL,
    source_url TEXT NOT NULL DEFAULT '',
    tags TEXT,                -- JSON array of strings, NULL until enrichment
    summary TEXT,             -- NULL until enrichment
    embedding BLOB,           -- little-endian float32 vector, NULL until embedded
    score_total INTEGER,
    score_rarity INTEGER,
    score_uniqueness INTEGER,
    score_magnitude INTEGER,
    score_local_flavor INTEGER,
    score_social_affordance INTEGER,
    score_reason TEXT,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_events_start_time ON events(start_time);
CREATE INDEX IF NOT EXISTS idx_events_created_at ON events(created_at);

-- Signals table (user interactions; never hard-deleted)
CREATE TABLE IF NOT EXISTS signals (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    event_id TEXT NOT NULL,
    type TEXT NOT NULL,
    active INTEGER NOT NULL DEFAULT 1,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (event_id) REFERENCES events(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_signals_user ON signals(user_id);
CREATE INDEX IF NOT EXISTS idx_signals_event ON signals(event_id);
`
