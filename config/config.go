// Package config loads the settings of the compiler and the table
// definitions of its catalog. Values come from, in order of precedence, the
// command line flags bound to the viper instance, SQL2PLAN_* environment
// variables, the configuration file, and the defaults below.
package config

import (
	"strings"

	"github.com/cockroachdb/errors"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/dianpeng/sql2plan/catalog"
	"github.com/dianpeng/sql2plan/opt"
	"github.com/dianpeng/sql2plan/source/awktab"
	"github.com/dianpeng/sql2plan/types"
	"github.com/spf13/viper"
)

const EnvPrefix = "SQL2PLAN"

// keys
const (
	KeyMode          = "mode"
	KeyMaxIterations = "max_iterations"
	KeyCaseSensitive = "case_sensitive"
	KeyIndexDir      = "index_dir"
	KeyScale         = "scale"
	KeyTPCH          = "tpch"
	KeyTables        = "tables"
)

const (
	SourceIndexed = "indexed"
	SourceAWK     = "awk"
)

type Column struct {
	Name     string `mapstructure:"name"`
	Type     string `mapstructure:"type"`
	Nullable bool   `mapstructure:"nullable"`
}

type Table struct {
	Name     string `mapstructure:"name"`
	Location string `mapstructure:"location"`
	Source   string `mapstructure:"source"` // indexed or awk
	RowCount int64  `mapstructure:"row_count"`

	// indexed sources
	FilterPushdown     bool     `mapstructure:"filter_pushdown"`
	ProjectionPushdown bool     `mapstructure:"projection_pushdown"`
	Indexed            []string `mapstructure:"indexed"` // empty means every column

	// awk sources
	Delimiter string `mapstructure:"delimiter"`
	Skip      int    `mapstructure:"skip"`

	Columns []Column `mapstructure:"columns"`
}

type Config struct {
	Mode          string  `mapstructure:"mode"`
	MaxIterations int     `mapstructure:"max_iterations"`
	CaseSensitive bool    `mapstructure:"case_sensitive"`
	IndexDir      string  `mapstructure:"index_dir"`
	Scale         float64 `mapstructure:"scale"`
	TPCH          bool    `mapstructure:"tpch"`
	Tables        []Table `mapstructure:"tables"`
}

// New returns a viper instance carrying the defaults and the environment
// binding, flags may be bound to it before Read
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyMode, opt.ModePushdown.String())
	v.SetDefault(KeyMaxIterations, opt.DefaultMaxIterations)
	v.SetDefault(KeyCaseSensitive, false)
	v.SetDefault(KeyIndexDir, "/data")
	v.SetDefault(KeyScale, 1.0)
	v.SetDefault(KeyTPCH, true)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// Read loads the file at path, if any, into v and decodes the result
func Read(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "config: read %s", path)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "config: decode")
	}
	if _, err := cfg.OptimizerMode(); err != nil {
		return nil, errors.Wrap(err, "config")
	}
	if cfg.MaxIterations < 1 {
		return nil, errors.Newf("config: %s must be positive, got %d", KeyMaxIterations, cfg.MaxIterations)
	}
	return cfg, nil
}

func Load(path string) (*Config, error) {
	return Read(New(), path)
}

func (self *Config) OptimizerMode() (opt.Mode, error) {
	return opt.ParseMode(self.Mode)
}

func (self *Config) OptimizerOptions() opt.Options {
	return opt.Options{
		MaxIterations: self.MaxIterations,
	}
}

// TableDefs returns the TPC-H tables, if enabled, followed by the configured
// ones
func (self *Config) TableDefs() ([]catalog.TableDef, error) {
	out := []catalog.TableDef{}
	if self.TPCH {
		out = append(out, catalog.TPCH(self.IndexDir, self.Scale)...)
	}
	for i := range self.Tables {
		def, err := self.Tables[i].def()
		if err != nil {
			return nil, errors.Wrapf(err, "config: table %q", self.Tables[i].Name)
		}
		out = append(out, def)
	}
	return out, nil
}

func (self *Config) Catalog() (*catalog.Catalog, error) {
	defs, err := self.TableDefs()
	if err != nil {
		return nil, err
	}
	return catalog.NewBuilder(self.CaseSensitive).Add(defs...).Build()
}

func (self *Table) def() (catalog.TableDef, error) {
	cols := make([]types.Column, 0, len(self.Columns))
	for _, c := range self.Columns {
		ty, err := types.Parse(c.Type)
		if err != nil {
			return catalog.TableDef{}, errors.Wrapf(err, "column %q", c.Name)
		}
		cols = append(cols, types.Column{
			Name:     c.Name,
			Type:     ty,
			Nullable: c.Nullable,
		})
	}

	def := catalog.TableDef{
		Name:     self.Name,
		Columns:  cols,
		Location: self.Location,
	}

	switch strings.ToLower(self.Source) {
	case SourceIndexed, "":
		var indexed mapset.Set[int]
		if len(self.Indexed) != 0 {
			indexed = mapset.NewThreadUnsafeSet[int]()
			for _, name := range self.Indexed {
				pos := columnIndex(cols, name)
				if pos < 0 {
					return catalog.TableDef{}, errors.Newf("indexed column %q is not a column", name)
				}
				indexed.Add(pos)
			}
		}
		def.Handle = &catalog.IndexedSource{
			Loc:        self.Location,
			Rows:       self.RowCount,
			Filter:     self.FilterPushdown,
			Projection: self.ProjectionPushdown,
			Indexed:    indexed,
		}

	case SourceAWK:
		def.Handle = &awktab.Source{
			Path:      self.Location,
			Delimiter: self.Delimiter,
			Skip:      self.Skip,
			Rows:      self.RowCount,
		}

	default:
		return catalog.TableDef{}, errors.Newf("unknown source %q, expect %s or %s", self.Source, SourceIndexed, SourceAWK)
	}
	return def, nil
}

func columnIndex(cols []types.Column, name string) int {
	for i, c := range cols {
		if strings.EqualFold(c.Name, name) {
			return i
		}
	}
	return -1
}
