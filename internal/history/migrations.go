package history

type migration struct {
	Version int
	Name    string
	SQL     string
}

var migrations = []migration{
	{
		Version: 1,
		Name:    "create runs",
		SQL: `
			CREATE TABLE runs (
				id           TEXT PRIMARY KEY,
				operation    TEXT NOT NULL,
				plugin       TEXT NOT NULL,
				plugin_id    TEXT NOT NULL DEFAULT '',
				version      TEXT NOT NULL DEFAULT '',
				kind         TEXT NOT NULL DEFAULT '',
				status       TEXT NOT NULL,
				error        TEXT NOT NULL DEFAULT '',
				started_at   TEXT NOT NULL,
				finished_at  TEXT
			);

			CREATE INDEX idx_runs_plugin ON runs (plugin, started_at);
			CREATE INDEX idx_runs_started ON runs (started_at);
		`,
	},
}
