package targetcfg

import (
	"fmt"
	"net/url"

	"github.com/baderkha/dv-transfer/pkg/migrate/config"
	"github.com/hashicorp/go-multierror"
)

type Cockroach struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	UserName     string `json:"user_name"`
	Password     string `json:"password"`
	DB           string `json:"db"`
	SSLMode      string `json:"ssl_mode"`
	MaxConns     int    `json:"max_conns"`
	QueryLogging bool   `json:"query_log"`
}

func (c *Cockroach) GetDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&application_name=dv-transfer",
		url.QueryEscape(c.UserName), url.QueryEscape(c.Password), c.Host, c.Port, c.DB, c.SSLMode)
}

func (c *Cockroach) Validate() error {
	var finalErr error
	if c.Host == "" {
		finalErr = multierror.Append(finalErr, config.Missing("host"))
	}
	if c.UserName == "" {
		finalErr = multierror.Append(finalErr, config.Missing("user_name"))
	}
	if c.DB == "" {
		finalErr = multierror.Append(finalErr, config.Missing("db"))
	}
	return finalErr
}

func (c *Cockroach) SetDefaults() {
	if c.Port == 0 {
		c.Port = 26257
	}
	if c.SSLMode == "" {
		c.SSLMode = "disable"
	}
	if c.MaxConns == 0 {
		c.MaxConns = 2
	}
}
