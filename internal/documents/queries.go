package documents

const (
	queryGetDocument = `
		SELECT id, user_id, title, content, created_at, updated_at
		FROM documents
		WHERE id = $1
	`

	queryCreateDocument = `
		INSERT INTO documents (id, user_id, title, content, created_at, updated_at)
		VALUES ($1, $2, $3, '', NOW(), NOW())
		RETURNING id, user_id, title, content, created_at, updated_at
	`

	queryGetOutline = `
		SELECT document_id, content, updated_at
		FROM document_outlines
		WHERE document_id = $1
	`

	queryUpsertOutline = `
		INSERT INTO document_outlines (document_id, content, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (document_id)
		DO UPDATE SET content = EXCLUDED.content, updated_at = NOW()
	`

	queryUpdateContent = `
		UPDATE documents
		SET content = $2, updated_at = NOW()
		WHERE id = $1
	`
)
