package sqlstore

// dialect captures the few statements that differ between SQLite and the
// MySQL protocol spoken by a Dolt sql-server.
type dialect struct {
	name   string
	schema []string
	// forUpdate is appended to row reads inside mutating transactions.
	forUpdate string
	// upsertEnrollment inserts or replaces a pulse_enrollments row. Arguments:
	// user_id, channel_id, times, last_sent.
	upsertEnrollment string
}

var sqliteDialect = dialect{
	name: "sqlite",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS checklists (
    id VARCHAR(64) PRIMARY KEY,
    employee_id VARCHAR(64) NOT NULL,
    manager_id VARCHAR(64) NOT NULL,
    role VARCHAR(255) NOT NULL,
    created_at BIGINT NOT NULL,
    updated_at BIGINT NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_checklists_employee ON checklists(employee_id)`,
		`CREATE INDEX IF NOT EXISTS idx_checklists_manager ON checklists(manager_id)`,
		`CREATE TABLE IF NOT EXISTS checklist_items (
    id VARCHAR(64) PRIMARY KEY,
    checklist_id VARCHAR(64) NOT NULL REFERENCES checklists(id),
    position INTEGER NOT NULL,
    text TEXT NOT NULL,
    category VARCHAR(255) NOT NULL,
    completed INTEGER NOT NULL DEFAULT 0,
    completed_at BIGINT
)`,
		`CREATE INDEX IF NOT EXISTS idx_items_checklist ON checklist_items(checklist_id)`,
		`CREATE TABLE IF NOT EXISTS pulse_responses (
    id VARCHAR(64) PRIMARY KEY,
    user_id VARCHAR(64) NOT NULL,
    dimension VARCHAR(32) NOT NULL,
    level VARCHAR(16) NOT NULL,
    recorded_at BIGINT NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS pulse_enrollments (
    user_id VARCHAR(64) PRIMARY KEY,
    channel_id VARCHAR(64) NOT NULL,
    times TEXT NOT NULL,
    last_sent VARCHAR(10) NOT NULL DEFAULT ''
)`,
	},
	upsertEnrollment: `INSERT INTO pulse_enrollments (user_id, channel_id, times, last_sent)
VALUES (?, ?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET
    channel_id = excluded.channel_id,
    times = excluded.times,
    last_sent = CASE WHEN excluded.last_sent = '' THEN pulse_enrollments.last_sent ELSE excluded.last_sent END`,
}

var mysqlDialect = dialect{
	name: "mysql",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS checklists (
    id VARCHAR(64) PRIMARY KEY,
    employee_id VARCHAR(64) NOT NULL,
    manager_id VARCHAR(64) NOT NULL,
    role VARCHAR(255) NOT NULL,
    created_at BIGINT NOT NULL,
    updated_at BIGINT NOT NULL,
    INDEX idx_checklists_employee (employee_id),
    INDEX idx_checklists_manager (manager_id)
)`,
		`CREATE TABLE IF NOT EXISTS checklist_items (
    id VARCHAR(64) PRIMARY KEY,
    checklist_id VARCHAR(64) NOT NULL,
    position INT NOT NULL,
    text TEXT NOT NULL,
    category VARCHAR(255) NOT NULL,
    completed TINYINT NOT NULL DEFAULT 0,
    completed_at BIGINT NULL,
    INDEX idx_items_checklist (checklist_id),
    FOREIGN KEY (checklist_id) REFERENCES checklists(id)
)`,
		`CREATE TABLE IF NOT EXISTS pulse_responses (
    id VARCHAR(64) PRIMARY KEY,
    user_id VARCHAR(64) NOT NULL,
    dimension VARCHAR(32) NOT NULL,
    level VARCHAR(16) NOT NULL,
    recorded_at BIGINT NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS pulse_enrollments (
    user_id VARCHAR(64) PRIMARY KEY,
    channel_id VARCHAR(64) NOT NULL,
    times TEXT NOT NULL,
    last_sent VARCHAR(10) NOT NULL DEFAULT ''
)`,
	},
	forUpdate: " FOR UPDATE",
	upsertEnrollment: `INSERT INTO pulse_enrollments (user_id, channel_id, times, last_sent)
VALUES (?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
    channel_id = VALUES(channel_id),
    times = VALUES(times),
    last_sent = IF(VALUES(last_sent) = '', last_sent, VALUES(last_sent))`,
}
