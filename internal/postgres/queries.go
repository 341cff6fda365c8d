package postgres

const (
	queryGetRoomByID   = `SELECT id, slug, admin_id, created_at FROM rooms WHERE id = $1`
	queryGetRoomBySlug = `SELECT id, slug, admin_id, created_at FROM rooms WHERE slug = $1`

	queryGetUserByID = `SELECT id, email, name, photo, created_at FROM users WHERE id = $1`

	queryInsertChat = `
		INSERT INTO chats (room_id, user_id, message)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`
	// newest first; $3 — курсор по id (NULL = с начала)
	queryListChats = `
		SELECT c.id, c.room_id, c.user_id, c.message, c.created_at, COALESCE(u.name, '')
		FROM chats c
		LEFT JOIN users u ON u.id = c.user_id
		WHERE c.room_id = $1
		  AND ($3::bigint IS NULL OR c.id < $3)
		ORDER BY c.id DESC
		LIMIT $2`
	queryDeleteChatsByRoom = `DELETE FROM chats WHERE room_id = $1`

	queryInsertCanvasOp = `
		INSERT INTO canvas_ops (room_id, user_id, kind, data)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`
	queryListCanvasOps = `
		SELECT o.id, o.room_id, o.user_id, o.kind, o.data, o.created_at, COALESCE(u.name, '')
		FROM canvas_ops o
		LEFT JOIN users u ON u.id = o.user_id
		WHERE o.room_id = $1
		ORDER BY o.id ASC`
	queryDeleteCanvasOp        = `DELETE FROM canvas_ops WHERE room_id = $1 AND id = $2`
	queryDeleteCanvasOpsByRoom = `DELETE FROM canvas_ops WHERE room_id = $1`
)
