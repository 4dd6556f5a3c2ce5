// package colmap
//
// maps columns between different database types
package colmap

import (
	"fmt"
	"strings"
)

// Type : column mapping type
type Type string

const (
	// MysqlToCockroach : mysql -> cockroachdb type casting
	MysqlToCockroach Type = "MYSQL_COCKROACH"
)

var (
	mysqlToCockroachMap = map[string]string{
		"TINYINT":    "INT2",
		"SMALLINT":   "INT2",
		"MEDIUMINT":  "INT4",
		"INT":        "INT4",
		"INTEGER":    "INT4",
		"BIGINT":     "INT8",
		"FLOAT":      "FLOAT4",
		"DOUBLE":     "FLOAT8",
		"DECIMAL":    "DECIMAL",
		"DATE":       "DATE",
		"TIME":       "TIME",
		"DATETIME":   "TIMESTAMP",
		"TIMESTAMP":  "TIMESTAMP",
		"YEAR":       "INT2",
		"CHAR":       "STRING",
		"VARCHAR":    "STRING",
		"BINARY":     "BYTES",
		"VARBINARY":  "BYTES",
		"TINYBLOB":   "BYTES",
		"BLOB":       "BYTES",
		"MEDIUMBLOB": "BYTES",
		"LONGBLOB":   "BYTES",
		"TINYTEXT":   "STRING",
		"TEXT":       "STRING",
		"MEDIUMTEXT": "STRING",
		"LONGTEXT":   "STRING",
		"ENUM":       "STRING",
		"SET":        "STRING",
		"JSON":       "JSONB",
		"BIT":        "VARBIT",
		"BOOLEAN":    "BOOL",
		"SERIAL":     "INT8",
	}
)

// Convert : converts types to the target db if it cannot then it will error out
func Convert(t Type, colTypeSource string) (string, error) {
	colTypeSource = strings.ToUpper(strings.TrimSpace(strings.Split(colTypeSource, "(")[0]))
	colTypeSource = strings.TrimSuffix(colTypeSource, " UNSIGNED")
	switch t {
	case MysqlToCockroach:
		itm, ok := mysqlToCockroachMap[colTypeSource]
		if !ok {
			return "", fmt.Errorf("This col type %s does not have a cockroach mapping", colTypeSource)
		}
		return itm, nil
	}
	return "", fmt.Errorf("Unsupported type %s", t)
}

// IsTemporal : target types that can carry the mysql zero date
func IsTemporal(targetType string) bool {
	switch targetType {
	case "DATE", "TIMESTAMP", "TIMESTAMPTZ":
		return true
	}
	return false
}
