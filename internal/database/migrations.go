package database

import (
	"context"
	"fmt"
)

var migrations = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`,

	`CREATE TABLE IF NOT EXISTS guardians (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		email VARCHAR(255) UNIQUE NOT NULL,
		name VARCHAR(255) NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS children (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		guardian_id UUID NOT NULL REFERENCES guardians(id) ON DELETE CASCADE,
		name VARCHAR(255) NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS connection_requests (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		requester_guardian_id UUID NOT NULL REFERENCES guardians(id) ON DELETE CASCADE,
		requester_child_id UUID NOT NULL REFERENCES children(id) ON DELETE CASCADE,
		target_guardian_id UUID NOT NULL REFERENCES guardians(id) ON DELETE CASCADE,
		target_child_id UUID REFERENCES children(id) ON DELETE CASCADE,
		message TEXT,
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		responded_at TIMESTAMP WITH TIME ZONE,
		CHECK (status IN ('pending', 'accepted', 'rejected'))
	)`,

	// At most one pending request per (requester, target guardian, requester child, target child).
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_connection_requests_pending ON connection_requests (
		requester_guardian_id, target_guardian_id, requester_child_id,
		COALESCE(target_child_id, '00000000-0000-0000-0000-000000000000'::uuid)
	) WHERE status = 'pending'`,

	// child_a_id < child_b_id, so the pair is unordered.
	`CREATE TABLE IF NOT EXISTS connections (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		guardian_a_id UUID NOT NULL REFERENCES guardians(id) ON DELETE CASCADE,
		child_a_id UUID NOT NULL REFERENCES children(id) ON DELETE CASCADE,
		guardian_b_id UUID NOT NULL REFERENCES guardians(id) ON DELETE CASCADE,
		child_b_id UUID NOT NULL REFERENCES children(id) ON DELETE CASCADE,
		request_id UUID REFERENCES connection_requests(id) ON DELETE SET NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		UNIQUE(child_a_id, child_b_id),
		CHECK (child_a_id < child_b_id)
	)`,

	`CREATE TABLE IF NOT EXISTS activities (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		host_child_id UUID NOT NULL REFERENCES children(id) ON DELETE CASCADE,
		created_by_guardian_id UUID NOT NULL REFERENCES guardians(id) ON DELETE CASCADE,
		name VARCHAR(255) NOT NULL,
		description TEXT,
		location VARCHAR(500),
		start_date DATE NOT NULL,
		end_date DATE NOT NULL,
		start_time VARCHAR(5),
		end_time VARCHAR(5),
		is_shared BOOLEAN NOT NULL DEFAULT FALSE,
		auto_notify_new_connections BOOLEAN NOT NULL DEFAULT FALSE,
		series_id UUID,
		joint_host_child_ids UUID[] NOT NULL DEFAULT '{}',
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		CHECK (end_date >= start_date)
	)`,

	// One row per occurrence date in a series.
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_activities_series_date ON activities (series_id, start_date)
		WHERE series_id IS NOT NULL`,

	`CREATE TABLE IF NOT EXISTS invitations (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		activity_id UUID NOT NULL REFERENCES activities(id) ON DELETE CASCADE,
		inviter_guardian_id UUID NOT NULL REFERENCES guardians(id) ON DELETE CASCADE,
		invited_guardian_id UUID NOT NULL REFERENCES guardians(id) ON DELETE CASCADE,
		invited_child_id UUID NOT NULL REFERENCES children(id) ON DELETE CASCADE,
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		message TEXT,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		status_viewed_at TIMESTAMP WITH TIME ZONE,
		responded_at TIMESTAMP WITH TIME ZONE,
		UNIQUE(activity_id, invited_child_id),
		CHECK (status IN ('pending', 'accepted', 'rejected'))
	)`,

	`CREATE TABLE IF NOT EXISTS pending_invitations (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		activity_id UUID NOT NULL REFERENCES activities(id) ON DELETE CASCADE,
		target_kind VARCHAR(32) NOT NULL,
		target_guardian_id UUID REFERENCES guardians(id) ON DELETE CASCADE,
		connection_request_id UUID REFERENCES connection_requests(id) ON DELETE CASCADE,
		invited_child_id UUID REFERENCES children(id) ON DELETE CASCADE,
		created_by_guardian_id UUID NOT NULL REFERENCES guardians(id) ON DELETE CASCADE,
		message TEXT,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		CHECK (
			(target_kind = 'guardian' AND target_guardian_id IS NOT NULL AND connection_request_id IS NULL)
			OR (target_kind = 'connection_request' AND connection_request_id IS NOT NULL
				AND target_guardian_id IS NULL AND invited_child_id IS NOT NULL)
		)
	)`,

	`CREATE UNIQUE INDEX IF NOT EXISTS uq_pending_invitations_target ON pending_invitations (
		activity_id,
		COALESCE(target_guardian_id, '00000000-0000-0000-0000-000000000000'::uuid),
		COALESCE(connection_request_id, '00000000-0000-0000-0000-000000000000'::uuid),
		COALESCE(invited_child_id, '00000000-0000-0000-0000-000000000000'::uuid)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_children_guardian_id ON children(guardian_id)`,
	`CREATE INDEX IF NOT EXISTS idx_connection_requests_target ON connection_requests(target_guardian_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_connections_child_b_id ON connections(child_b_id)`,
	`CREATE INDEX IF NOT EXISTS idx_activities_host_child_id ON activities(host_child_id, start_date)`,
	`CREATE INDEX IF NOT EXISTS idx_invitations_invited_guardian_id ON invitations(invited_guardian_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_pending_invitations_activity_id ON pending_invitations(activity_id)`,
	`CREATE INDEX IF NOT EXISTS idx_pending_invitations_target_guardian_id ON pending_invitations(target_guardian_id)`,
	`CREATE INDEX IF NOT EXISTS idx_pending_invitations_request_id ON pending_invitations(connection_request_id)`,
}

func (db *DB) Migrate(ctx context.Context) error {
	for i, migration := range migrations {
		if _, err := db.Pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
