package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/dianpeng/sql2plan/compiler"
	"github.com/dianpeng/sql2plan/config"
	"github.com/dianpeng/sql2plan/operator"
	"github.com/dianpeng/sql2plan/physical"
	"github.com/dianpeng/sql2plan/plan"
	"github.com/dianpeng/sql2plan/source/awktab"
	"github.com/dianpeng/sql2plan/sql"
	"github.com/golang/glog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	fConfig string
	fColor  bool
	fCost   bool
	fAWK    bool
)

func oops(stage string, err error) {
	fmt.Fprintf(os.Stderr, "ERROR [%s] %+v\n", stage, err)
	glog.Flush()
	os.Exit(-1)
}

func readQuery(args []string) (string, error) {
	if len(args) != 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", errors.Wrap(err, "read query from stdin")
	}
	return string(data), nil
}

func load(v *viper.Viper) *compiler.Compiler {
	cfg, err := config.Read(v, fConfig)
	if err != nil {
		oops("config", err)
	}
	cat, err := cfg.Catalog()
	if err != nil {
		oops("catalog", err)
	}
	mode, _ := cfg.OptimizerMode()
	c, err := compiler.New(cat, operator.Extended(), compiler.Options{
		Mode:      mode,
		Optimizer: cfg.OptimizerOptions(),
	})
	if err != nil {
		oops("compiler", err)
	}
	return c
}

func section(title, body string) {
	fmt.Printf("[%s]\n%s\n", title, strings.TrimRight(body, "\n"))
}

func explainCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "explain [query]",
		Short: "Print the parsed query, the logical plan and the physical plan of a query",
		Long: "Print the parsed query, the logical plan and the physical plan of a query.\n" +
			"The query is read from the arguments, or from STDIN when there is none.",
		Run: func(cmd *cobra.Command, args []string) {
			c := load(v)
			text, err := readQuery(args)
			if err != nil {
				oops("read", err)
			}

			out, err := c.Compile(text)
			if err != nil {
				oops("compile", err)
			}

			section("Input query", strings.TrimSpace(out.Text))
			section("Parsed query", sql.PrintCode(out.Parsed))
			section("Logical plan", plan.Explain(out.Simple))

			phys := physical.Explain(out.Physical, physical.ExplainOptions{Color: fColor})
			if fCost {
				phys = out.Result.Explain(fColor)
			}
			section(fmt.Sprintf("Physical plan, %s mode, cost %s", c.Mode(), out.Result.Cost), phys)

			if fAWK {
				physical.Walk(out.Physical, func(n physical.Node) {
					scan, ok := n.(*physical.NativeScan)
					if !ok {
						return
					}
					if _, ok := scan.Entry.Handle.(*awktab.Source); !ok {
						return
					}
					code, err := awktab.Render(scan)
					if err != nil {
						oops("awk", err)
					}
					section("AWK program of "+scan.String(), code)
				})
			}
		},
	}
	cmd.Flags().BoolVar(&fColor, "color", false, "highlight the conventions of the physical plan")
	cmd.Flags().BoolVar(&fCost, "cost", false, "annotate the physical plan with costs")
	cmd.Flags().BoolVar(&fAWK, "awk", false, "print the AWK program of every native scan of a delimited text table")
	return cmd
}

func tablesCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List the tables of the catalog",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := config.Read(v, fConfig)
			if err != nil {
				oops("config", err)
			}
			cat, err := cfg.Catalog()
			if err != nil {
				oops("catalog", err)
			}
			for _, e := range cat.Tables() {
				h := e.Handle
				fmt.Printf(
					"%s%s\n  location=%s, rows=%d, filter_pushdown=%t, projection_pushdown=%t\n",
					e.Name,
					e.Schema,
					h.Location(),
					h.EstimatedRowCount(),
					h.SupportsFilterPushdown(),
					h.SupportsProjectionPushdown(),
				)
			}
		},
	}
}

func main() {
	v := config.New()

	root := &cobra.Command{
		Use:   "sql2plan",
		Short: "Compile SQL queries into optimized physical plans",
		PersistentPreRun: func(*cobra.Command, []string) {
			// glog checks that the go flags were parsed, pflag did parse them
			_ = flag.CommandLine.Parse(nil)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&fConfig, "config", "", "configuration file, YAML, JSON or TOML")
	pf.String(config.KeyMode, "pushdown", "optimizer mode: simple, advanced or pushdown")
	pf.Int("max-iterations", 0, "maximum optimizer passes")
	pf.Bool("case-sensitive", false, "compare identifiers case sensitively")
	pf.String("index-dir", "", "directory holding the TPC-H indexes")

	for key, name := range map[string]string{
		config.KeyMode:          config.KeyMode,
		config.KeyMaxIterations: "max-iterations",
		config.KeyCaseSensitive: "case-sensitive",
		config.KeyIndexDir:      "index-dir",
	} {
		if err := v.BindPFlag(key, pf.Lookup(name)); err != nil {
			oops("flags", err)
		}
	}

	// glog flags, eg -v=2 -logtostderr
	pflag.CommandLine.AddGoFlagSet(flag.CommandLine)
	pf.AddFlagSet(pflag.CommandLine)

	root.AddCommand(explainCmd(v), tablesCmd(v))
	if err := root.Execute(); err != nil {
		os.Exit(-1)
	}
	glog.Flush()
}
