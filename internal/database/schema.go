package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Schema is the cache schema. Entity ids are bytea because the portal hands
// out opaque binary identifiers; every entity table carries a done flag that
// separates forward-reference stubs from completed extraction passes.
const Schema = `
CREATE TABLE IF NOT EXISTS modules (
	tucan_id     bytea PRIMARY KEY,
	last_checked timestamptz NOT NULL DEFAULT NOW(),
	title        text NOT NULL DEFAULT '',
	module_id    text NOT NULL DEFAULT '',
	credits      integer,
	content      text NOT NULL DEFAULT '',
	done         boolean NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS courses (
	tucan_id     bytea PRIMARY KEY,
	last_checked timestamptz NOT NULL DEFAULT NOW(),
	title        text NOT NULL DEFAULT '',
	course_id    text NOT NULL DEFAULT '',
	sws          smallint NOT NULL DEFAULT 0,
	content      text NOT NULL DEFAULT '',
	done         boolean NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS course_groups (
	tucan_id bytea PRIMARY KEY,
	course   bytea REFERENCES courses (tucan_id),
	title    text NOT NULL DEFAULT '',
	done     boolean NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS course_events (
	course   bytea NOT NULL REFERENCES courses (tucan_id),
	start_at timestamptz NOT NULL,
	end_at   timestamptz NOT NULL,
	room     text NOT NULL,
	teachers text NOT NULL DEFAULT '',
	PRIMARY KEY (course, start_at, end_at, room)
);

CREATE TABLE IF NOT EXISTS course_group_events (
	course_group bytea NOT NULL REFERENCES course_groups (tucan_id),
	start_at     timestamptz NOT NULL,
	end_at       timestamptz NOT NULL,
	room         text NOT NULL,
	teachers     text NOT NULL DEFAULT '',
	PRIMARY KEY (course_group, start_at, end_at, room)
);

CREATE TABLE IF NOT EXISTS exams (
	tucan_id        bytea PRIMARY KEY,
	exam_type       text NOT NULL DEFAULT '',
	semester        text NOT NULL DEFAULT '',
	exam_start      timestamptz,
	exam_end        timestamptz,
	register_from   timestamptz,
	register_to     timestamptz,
	unregister_from timestamptz,
	unregister_to   timestamptz,
	examiner        text NOT NULL DEFAULT '',
	room            text NOT NULL DEFAULT '',
	done            boolean NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS module_courses (
	module bytea NOT NULL REFERENCES modules (tucan_id),
	course bytea NOT NULL REFERENCES courses (tucan_id),
	PRIMARY KEY (module, course)
);

CREATE TABLE IF NOT EXISTS module_exams (
	module bytea NOT NULL REFERENCES modules (tucan_id),
	exam   bytea NOT NULL REFERENCES exams (tucan_id),
	PRIMARY KEY (module, exam)
);

CREATE TABLE IF NOT EXISTS course_exams (
	course bytea NOT NULL REFERENCES courses (tucan_id),
	exam   bytea NOT NULL REFERENCES exams (tucan_id),
	PRIMARY KEY (course, exam)
);

CREATE TABLE IF NOT EXISTS module_menu (
	tucan_id        bytea PRIMARY KEY,
	last_checked    timestamptz NOT NULL DEFAULT NOW(),
	name            text NOT NULL DEFAULT '',
	normalized_name text NOT NULL DEFAULT '',
	child_type      smallint NOT NULL DEFAULT 0,
	parent          bytea REFERENCES module_menu (tucan_id),
	done            boolean NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS module_menu_parent_idx ON module_menu (parent);

CREATE TABLE IF NOT EXISTS module_menu_modules (
	module_menu bytea NOT NULL REFERENCES module_menu (tucan_id),
	module      bytea NOT NULL REFERENCES modules (tucan_id),
	PRIMARY KEY (module_menu, module)
);

CREATE TABLE IF NOT EXISTS user_modules (
	user_id text NOT NULL,
	module  bytea NOT NULL REFERENCES modules (tucan_id),
	PRIMARY KEY (user_id, module)
);

CREATE TABLE IF NOT EXISTS user_courses (
	user_id text NOT NULL,
	course  bytea NOT NULL REFERENCES courses (tucan_id),
	PRIMARY KEY (user_id, course)
);

CREATE TABLE IF NOT EXISTS user_course_groups (
	user_id      text NOT NULL,
	course_group bytea NOT NULL REFERENCES course_groups (tucan_id),
	PRIMARY KEY (user_id, course_group)
);

CREATE TABLE IF NOT EXISTS user_exams (
	user_id text NOT NULL,
	exam    bytea NOT NULL REFERENCES exams (tucan_id),
	PRIMARY KEY (user_id, exam)
);

CREATE TABLE IF NOT EXISTS user_checked (
	user_id    text NOT NULL,
	kind       text NOT NULL,
	checked_at timestamptz NOT NULL DEFAULT NOW(),
	PRIMARY KEY (user_id, kind)
);
`

// Migrate applies the schema. All statements are idempotent, so running it
// on every startup is safe.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
