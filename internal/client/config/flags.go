package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
	"github.com/dmitrijs2005/gophauth/internal/timex"
)

// parseFlags populates Config from -a, -t and -f. Other arguments are
// filtered out with flagx.FilterArgs so that -c does not break parsing.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-t", "-f"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "base URL of the gophauth API")
	fs.Func("t", "request timeout (e.g. 10s)", func(v string) error {
		d, err := timex.ParseDuration(v)
		if err == nil {
			cfg.RequestTimeout = d
		}
		return err
	})
	fs.StringVar(&cfg.SessionDB, "f", cfg.SessionDB, "path of the local session database")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
