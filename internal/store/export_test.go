package store

var (
	PoolConfig    = poolConfig
	GetSubmission = (*PostgresStore).getSubmission
)
