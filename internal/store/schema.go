package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS price_lists (
    provider             TEXT PRIMARY KEY,
    source_url           TEXT NOT NULL,
    body                 BLOB NOT NULL,
    fetched_at           TEXT NOT NULL
);
`
