package config

const (
	EnvPrefix = "SHOWLINE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "SHOWLINE_DB_DSN"
	EnvDBHost = "SHOWLINE_DB_HOST"
	EnvDBUser = "SHOWLINE_DB_USER"
	EnvDBName = "SHOWLINE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
