// Package credentials reads the database account create_db provisions.
//
// The file is any format viper reads (YAML, JSON, TOML):
//
//	databases:
//	  default:
//	    name: shop
//	    user: shop
//	    password: s3cret
//	environments:
//	  production:
//	    database:
//	      password: other
//
// Fields under environments.<env>.database override the default section.
package credentials

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/rileyhilliard/rollout/internal/errors"
	"github.com/spf13/viper"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Credentials is a database and the role that owns it.
type Credentials struct {
	Name     string
	User     string
	Password string
}

// Load reads the credentials for environment from path.
func Load(path, environment string) (*Credentials, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Database credentials file not found: "+path,
				"Create it, or point database.credentials_file in rollout.yaml at it")
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to read database credentials file: "+path,
			"Check the file is valid YAML, JSON or TOML")
	}

	c := &Credentials{
		Name:     lookup(v, environment, "name"),
		User:     lookup(v, environment, "user"),
		Password: lookup(v, environment, "password"),
	}

	if err := c.Validate(); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid database credentials in "+path,
			fmt.Sprintf("Set databases.default.{name,user,password} (or environments.%s.database.*)", environment))
	}
	return c, nil
}

// lookup prefers the environment section over databases.default.
func lookup(v *viper.Viper, environment, field string) string {
	if environment != "" {
		if s := v.GetString("environments." + environment + ".database." + field); s != "" {
			return s
		}
	}
	return v.GetString("databases.default." + field)
}

// Validate checks that every field is set and names are plain identifiers.
func (c *Credentials) Validate() error {
	switch {
	case c.Name == "":
		return fmt.Errorf("database name is missing")
	case c.User == "":
		return fmt.Errorf("database user is missing")
	case c.Password == "":
		return fmt.Errorf("database password is missing")
	case !ValidIdentifier(c.Name):
		return fmt.Errorf("database name '%s' must be a plain identifier (letters, digits, underscore)", c.Name)
	case !ValidIdentifier(c.User):
		return fmt.Errorf("database user '%s' must be a plain identifier (letters, digits, underscore)", c.User)
	}
	return nil
}

// ValidIdentifier reports whether s can appear unquoted in SQL.
func ValidIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// EscapeLiteral escapes s for use inside an E'...' string literal.
func EscapeLiteral(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

// CreateUserSQL returns the statement that creates the owning role.
func (c *Credentials) CreateUserSQL() string {
	return fmt.Sprintf("CREATE USER %s WITH NOCREATEDB NOSUPERUSER ENCRYPTED PASSWORD E'%s'",
		c.User, EscapeLiteral(c.Password))
}

// CreateDatabaseSQL returns the statement that creates the database.
func (c *Credentials) CreateDatabaseSQL() string {
	return fmt.Sprintf("CREATE DATABASE %s WITH OWNER %s", c.Name, c.User)
}

// String hides the password.
func (c *Credentials) String() string {
	return fmt.Sprintf("%s (owner %s)", c.Name, c.User)
}
