package readings

import "embed"

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationTable = "aws_schema_migrations"

// The query role only ever reads.
const grantReadSQL = `GRANT SELECT ON aws_10min, aws_realtime TO %s;`
