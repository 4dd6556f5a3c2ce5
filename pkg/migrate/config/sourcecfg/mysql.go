package sourcecfg

import (
	"fmt"
	"sort"

	"github.com/baderkha/dv-transfer/pkg/migrate/config"
	"github.com/hashicorp/go-multierror"
)

type MYSQL struct {
	SessionVariableValues map[string]string `json:"session_vars"`
	Host                  string            `json:"host"`
	UserName              string            `json:"user_name"`
	Password              string            `json:"password"`
	Port                  int               `json:"port"`
	DB                    string            `json:"db"`
	MaxConns              int               `json:"max_conns"`
	QueryLogging          bool              `json:"query_log"`
}

func (m *MYSQL) GetDSN() string {
	var ses string
	keys := make([]string, 0, len(m.SessionVariableValues))
	for k := range m.SessionVariableValues {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		ses += "&" + k + "=" + m.SessionVariableValues[k]
	}
	return fmt.Sprintf(`%s:%s@tcp(%s:%d)/%s?parseTime=true&collation=utf8mb4_general_ci&autocommit=true%s`, m.UserName, m.Password, m.Host, m.Port, m.DB, ses)
}

func (m *MYSQL) Validate() error {
	var finalErr error
	if m.Host == "" {
		finalErr = multierror.Append(finalErr, config.Missing("host"))
	}
	if m.UserName == "" {
		finalErr = multierror.Append(finalErr, config.Missing("user_name"))
	}
	if m.DB == "" {
		finalErr = multierror.Append(finalErr, config.Missing("db"))
	}
	return finalErr
}

func (m *MYSQL) SetDefaults() {
	if m.Port == 0 {
		m.Port = 3306
	}
	if m.MaxConns == 0 {
		m.MaxConns = 2
	}
}
