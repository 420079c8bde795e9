package snowflake

import "strings"

// Config holds Snowflake connection settings.
type Config struct {
	Account   string
	User      string
	Password  string
	Database  string
	Schema    string
	Warehouse string
	Role      string
	// Table holds campaign metrics; defaults to CAMPAIGN_METRICS.
	Table string
}

// ParseConnectionString extracts components from an ODBC-style string:
// scheme=https;ACCOUNT=xxx;HOST=yyy;port=443;USER=zzz;PASSWORD=www;DB=db.schema;
// Keys are case-insensitive. Fields it does not carry stay empty.
func ParseConnectionString(connStr string) Config {
	parts := make(map[string]string)
	for _, kv := range strings.Split(connStr, ";") {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			continue
		}
		parts[strings.ToUpper(strings.TrimSpace(key))] = value
	}

	database, schema, _ := strings.Cut(parts["DB"], ".")
	return Config{
		Account:   parts["ACCOUNT"],
		User:      parts["USER"],
		Password:  parts["PASSWORD"],
		Database:  database,
		Schema:    schema,
		Warehouse: parts["WAREHOUSE"],
		Role:      parts["ROLE"],
	}
}

// merge fills empty fields of c from other.
func (c Config) merge(other Config) Config {
	fill := func(dst *string, src string) {
		if *dst == "" {
			*dst = src
		}
	}
	fill(&c.Account, other.Account)
	fill(&c.User, other.User)
	fill(&c.Password, other.Password)
	fill(&c.Database, other.Database)
	fill(&c.Schema, other.Schema)
	fill(&c.Warehouse, other.Warehouse)
	fill(&c.Role, other.Role)
	fill(&c.Table, other.Table)
	return c
}
