package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	cmdName = "prrules"
	cmdDesc = `Apply a business rule catalog to purchase requests/orders and report automatable matches.`

	cmdExamples = `  # Use the reference layout in the current directory
  prrules

  # Point at explicit files
  prrules --rules catalog.csv --records prs.csv --report out.csv

  # Read the catalog from PostgreSQL
  DATABASE_URL=postgres://... prrules --rule-source postgres`
)

// RunArgs holds command-line overrides; empty values leave the
// configuration untouched
type RunArgs struct {
	ConfigPath  string
	RulesPath   string
	RecordsPath string
	ReportPath  string
	RuleSource  string
	DatabaseURL string
	LogLevel    string
	LogFormat   string
}

func (ra *RunArgs) AddFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&ra.ConfigPath, "config", "c", "", "Path to a YAML config file")
	fs.StringVar(&ra.RulesPath, "rules", "", "Rule catalog CSV (csv source)")
	fs.StringVar(&ra.RecordsPath, "records", "", "Purchase request/order CSV")
	fs.StringVar(&ra.ReportPath, "report", "", "Report CSV to write")
	fs.StringVar(&ra.RuleSource, "rule-source", "", "Where to read rules from: csv or postgres")
	fs.StringVar(&ra.DatabaseURL, "database-url", "", "PostgreSQL URL (postgres source)")
	fs.StringVar(&ra.LogLevel, "log-level", "", "Log level: trace, debug, info, warn, error")
	fs.StringVar(&ra.LogFormat, "log-format", "", "Log format: text or json")
}

func NewRootCmd() *cobra.Command {
	args := &RunArgs{}

	cmd := &cobra.Command{
		Use:           cmdName,
		Short:         cmdDesc,
		Example:       cmdExamples,
		Args:          cobra.NoArgs,
		SilenceUsage: true,
		// cobra prints failures to stderr whatever the log handler
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return Run(cmd, args)
		},
	}
	args.AddFlags(cmd.PersistentFlags())

	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Apply the rule catalog and write the report (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return Run(cmd, args)
		},
	})

	return cmd
}
