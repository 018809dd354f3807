package tasks

import (
	"github.com/rileyhilliard/rollout/internal/env"
	"github.com/rileyhilliard/rollout/internal/remote"
	"github.com/rileyhilliard/rollout/internal/util"
)

var createDBTask = &Task{
	Name:        "create_db",
	Description: "Create the database role and database",
	Requires:    []string{env.KeyRoot},
	Notes:       []string{"reads credentials from the local credentials file; psql errors only warn"},
	Run: func(c *Context) error {
		creds, err := c.Credentials()
		if err != nil {
			return err
		}
		c.Log.Debug("[%s] creating database with %s", c.Host, creds)

		opts := remote.Options{
			Sudo:     true,
			AsUser:   c.Settings.DBSuperuser,
			WarnOnly: true,
		}
		for _, sql := range []string{creds.CreateUserSQL(), creds.CreateDatabaseSQL()} {
			if _, err := c.Run("psql -c "+util.ShellQuote(sql), opts); err != nil {
				return err
			}
		}
		return nil
	},
}
