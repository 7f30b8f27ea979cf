package db

// SchemaSQL contains the database schema initialization SQL.
const SchemaSQL = `
    -- ==========================================================================
    -- COMPETITION TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS competition SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS title ON competition TYPE string;
    DEFINE FIELD IF NOT EXISTS url ON competition TYPE string;
    DEFINE FIELD IF NOT EXISTS prize ON competition TYPE string DEFAULT 'N/A';
    DEFINE FIELD IF NOT EXISTS status ON competition TYPE string DEFAULT 'active';
    DEFINE FIELD IF NOT EXISTS tags ON competition TYPE array<string> DEFAULT [];
    -- Analysis state + results live in one nested document so status
    -- transitions and output land atomically.
    DEFINE FIELD IF NOT EXISTS ingestion ON competition TYPE option<object> FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS last_updated ON competition TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS competition_status ON competition FIELDS status;

    -- ==========================================================================
    -- COMPETITION CACHE TABLE (single shared record)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS competition_cache SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS competitions ON competition_cache TYPE array<object> FLEXIBLE DEFAULT [];
    DEFINE FIELD IF NOT EXISTS last_refresh ON competition_cache TYPE datetime DEFAULT time::now();

    -- ==========================================================================
    -- USER TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS user SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS kaggle_username ON user TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS kaggle_key ON user TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS interests ON user TYPE array<string> DEFAULT [];
    DEFINE FIELD IF NOT EXISTS xp ON user TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS level ON user TYPE int DEFAULT 1;
    DEFINE FIELD IF NOT EXISTS competitions_analysed ON user TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS updated_at ON user TYPE datetime DEFAULT time::now();
`
