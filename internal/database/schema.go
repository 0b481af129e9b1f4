// Package database opens the backing stores and applies the embedded schema.
package database

import (
	"embed"
	"fmt"
	"strings"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Schema returns the DDL for the given driver.
func Schema(driver string) (string, error) {
	b, err := schemaFS.ReadFile("schema/" + driver + ".sql")
	if err != nil {
		return "", fmt.Errorf("database: no schema for driver %q", driver)
	}
	return string(b), nil
}

// statements splits a schema file into individual statements.
// Schema files never contain semicolons inside literals.
func statements(ddl string) []string {
	var out []string
	for _, s := range strings.Split(ddl, ";") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
