package postgres

const (
	queryCreateRoomEvents = `
		CREATE TABLE IF NOT EXISTS room_events (
			id      BIGSERIAL PRIMARY KEY,
			room_id TEXT        NOT NULL,
			kind    TEXT        NOT NULL,
			user_id TEXT        NOT NULL DEFAULT '',
			detail  TEXT        NOT NULL DEFAULT '',
			at      TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS room_events_room_at_idx ON room_events (room_id, at DESC, id DESC);
	`

	queryRoomHistory = `
		SELECT id, room_id, kind, user_id, detail, at
		FROM room_events
		WHERE room_id = $1
		  AND (
		    $2::timestamptz IS NULL
		    OR at < $2
		    OR (at = $2 AND id < $3)
		  )
		ORDER BY at DESC, id DESC
		LIMIT $4
	`
)

var roomEventColumns = []string{"room_id", "kind", "user_id", "detail", "at"}
