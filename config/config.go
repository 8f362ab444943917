package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/syssam/stmthook"
)

// Config is the root of a configuration file.
type Config struct {
	Database Database `yaml:"database"`
	Logging  Logging  `yaml:"logging"`
	DAOs     []DAO    `yaml:"daos"`
}

// Logging configures the process logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// DAO is the file form of stmthook.DAO.
type DAO struct {
	Name         string        `yaml:"name"`
	Declarations []Declaration `yaml:"declarations"`
	Methods      []Method      `yaml:"methods"`
}

// Method is the file form of stmthook.Method.
type Method struct {
	Name         string        `yaml:"name"`
	SQL          string        `yaml:"sql"`
	Declarations []Declaration `yaml:"declarations"`
}

// Declaration is one `kind` entry. The remaining keys of the entry are
// decoded into the typed config of that kind.
type Declaration struct {
	Kind   stmthook.Kind
	Param  string
	Config stmthook.Config
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Declaration) UnmarshalYAML(n *yaml.Node) error {
	var head struct {
		Kind  stmthook.Kind `yaml:"kind"`
		Param string        `yaml:"param"`
	}
	if err := n.Decode(&head); err != nil {
		return err
	}
	if head.Kind == "" {
		return fmt.Errorf("line %d: declaration without kind", n.Line)
	}
	c, err := stmthook.NewConfig(head.Kind)
	if err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	if err := n.Decode(c); err != nil {
		return fmt.Errorf("line %d: %s: %w", n.Line, head.Kind, err)
	}
	d.Kind, d.Param, d.Config = head.Kind, head.Param, c
	return nil
}

// Load reads the file at path, applies environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse is Load for in-memory content.
func Parse(data []byte) (*Config, error) {
	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Database: Database{
			Dialect: "sqlite",
			DSN:     "file:stmthook.db",
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("STMTHOOK_DATABASE_DIALECT"); v != "" {
		cfg.Database.Dialect = v
	}
	if v := os.Getenv("STMTHOOK_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("STMTHOOK_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("STMTHOOK_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

// Validate checks the database section and the shape of every DAO.
// Declarations themselves are checked when they are registered.
func (c *Config) Validate() error {
	var errs []string
	if err := c.Database.Validate(); err != nil {
		errs = append(errs, err.Error())
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "json", "text":
	default:
		errs = append(errs, fmt.Sprintf("logging.format %q must be json or text", c.Logging.Format))
	}
	seen := make(map[string]bool, len(c.DAOs))
	for i, d := range c.DAOs {
		if d.Name == "" {
			errs = append(errs, fmt.Sprintf("daos[%d].name is required", i))
			continue
		}
		if seen[d.Name] {
			errs = append(errs, fmt.Sprintf("dao %s is declared twice", d.Name))
		}
		seen[d.Name] = true
		for _, decl := range d.Declarations {
			if decl.Param != "" {
				errs = append(errs, fmt.Sprintf("%s: %s declaration names param %q outside a method", d.Name, decl.Kind, decl.Param))
			}
		}
		for j, m := range d.Methods {
			switch {
			case m.Name == "":
				errs = append(errs, fmt.Sprintf("%s.methods[%d].name is required", d.Name, j))
			case m.SQL == "":
				errs = append(errs, fmt.Sprintf("%s.%s.sql is required", d.Name, m.Name))
			}
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// Declarations converts the file form into registry values. Entries under
// a DAO are type-scoped. Entries under a method are parameter-scoped when
// they name a param and method-scoped otherwise.
func (c *Config) Declarations() []stmthook.DAO {
	daos := make([]stmthook.DAO, 0, len(c.DAOs))
	for _, d := range c.DAOs {
		dao := stmthook.DAO{Name: d.Name}
		for _, decl := range d.Declarations {
			dao.Declarations = append(dao.Declarations, stmthook.OnType(decl.Config))
		}
		for _, m := range d.Methods {
			method := stmthook.Method{Name: m.Name, SQL: m.SQL}
			for _, decl := range m.Declarations {
				if decl.Param != "" {
					method.Declarations = append(method.Declarations, stmthook.OnParam(decl.Param, decl.Config))
				} else {
					method.Declarations = append(method.Declarations, stmthook.OnMethod(decl.Config))
				}
			}
			dao.Methods = append(dao.Methods, method)
		}
		daos = append(daos, dao)
	}
	return daos
}

// Register registers every configured DAO on r. It stops at the first DAO
// that fails.
func (c *Config) Register(r *stmthook.Registry) error {
	for _, d := range c.Declarations() {
		if err := r.Register(d); err != nil {
			return err
		}
	}
	return nil
}
