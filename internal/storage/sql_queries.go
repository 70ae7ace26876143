package storage

type SQLQuery string

const (
	// check whether a match is already archived for a bucket
	selectMatchExistsSQL SQLQuery = `
    SELECT EXISTS (
        SELECT 1 FROM matches WHERE tier = $1 AND division = $2 AND match_id = $3
    )
    `

	// insert a match payload, leaving an existing row untouched
	insertMatchSQL SQLQuery = `
    INSERT INTO matches (tier, division, match_id, payload, created_at)
    VALUES ($1, $2, $3, $4::JSONB, CURRENT_TIMESTAMP)
    ON CONFLICT (tier, division, match_id) DO NOTHING
    `

	// read every checkpoint
	selectCheckpointsSQL SQLQuery = `
    SELECT tier, division, page FROM checkpoints
    `

	// insert or update the page of a bucket
	upsertCheckpointSQL SQLQuery = `
    INSERT INTO checkpoints (tier, division, page, updated_at)
    VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
    ON CONFLICT (tier, division) DO UPDATE SET
        page = EXCLUDED.page,
        updated_at = CURRENT_TIMESTAMP
    `
)
