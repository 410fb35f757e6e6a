package db

// SchemaSQL contains the database schema initialization SQL. All tables carry
// a user_id owner column; every query in this package filters on it.
const SchemaSQL = `
    -- ==========================================================================
    -- CONVERSATION TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS conversation SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS user_id ON conversation TYPE string;
    DEFINE FIELD IF NOT EXISTS title ON conversation TYPE string;
    DEFINE FIELD IF NOT EXISTS created_at ON conversation TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS updated_at ON conversation TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS conversation_user ON conversation FIELDS user_id;

    -- ==========================================================================
    -- MESSAGE TABLE
    -- ==========================================================================
    -- Immutable once created; ordered within a conversation by created_at ASC
    DEFINE TABLE IF NOT EXISTS message SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS conversation ON message TYPE record<conversation>;
    DEFINE FIELD IF NOT EXISTS user_id ON message TYPE string;
    DEFINE FIELD IF NOT EXISTS content ON message TYPE string;
    DEFINE FIELD IF NOT EXISTS is_user_message ON message TYPE bool;
    DEFINE FIELD IF NOT EXISTS model_used ON message TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS retrieved_docs ON message TYPE option<array<object>> FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS created_at ON message TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS message_conversation ON message FIELDS conversation;
    DEFINE INDEX IF NOT EXISTS message_user ON message FIELDS user_id;
    DEFINE INDEX IF NOT EXISTS message_created ON message FIELDS created_at;

    -- ==========================================================================
    -- FEEDBACK TABLE
    -- ==========================================================================
    -- Insert-only. Snapshots the query/response pair alongside record links.
    DEFINE TABLE IF NOT EXISTS feedback SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS user_id ON feedback TYPE string;
    DEFINE FIELD IF NOT EXISTS message ON feedback TYPE option<record<message>>;
    DEFINE FIELD IF NOT EXISTS conversation ON feedback TYPE option<record<conversation>>;
    DEFINE FIELD IF NOT EXISTS feedback_type ON feedback TYPE string
        ASSERT $value IN ["thumbs_up", "thumbs_down"];
    DEFINE FIELD IF NOT EXISTS user_query ON feedback TYPE string;
    DEFINE FIELD IF NOT EXISTS bot_response ON feedback TYPE string;
    DEFINE FIELD IF NOT EXISTS thumbs_up_reason ON feedback TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS thumbs_down_reason ON feedback TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS corrected_question ON feedback TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS correct_answer ON feedback TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS model_used ON feedback TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS retrieved_docs ON feedback TYPE option<array<object>> FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS created_at ON feedback TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS feedback_user ON feedback FIELDS user_id;

    -- ==========================================================================
    -- NOTE TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS note SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS user_id ON note TYPE string;
    DEFINE FIELD IF NOT EXISTS title ON note TYPE string;
    DEFINE FIELD IF NOT EXISTS content ON note TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS created_at ON note TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS updated_at ON note TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS note_user ON note FIELDS user_id;

    -- ==========================================================================
    -- REPORTED QUESTION TABLE
    -- ==========================================================================
    -- Status is advanced by an external reviewer process
    DEFINE TABLE IF NOT EXISTS reported_question SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS user_id ON reported_question TYPE string;
    DEFINE FIELD IF NOT EXISTS question ON reported_question TYPE string;
    DEFINE FIELD IF NOT EXISTS comment ON reported_question TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS status ON reported_question TYPE string DEFAULT "pending"
        ASSERT $value IN ["pending", "reviewed", "resolved"];
    DEFINE FIELD IF NOT EXISTS created_at ON reported_question TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS reported_question_user ON reported_question FIELDS user_id;
`
