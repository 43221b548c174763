package config

import (
	"flag"
	"os"
	"time"

	"github.com/keepsake-app/keepsake/internal/flagx"
)

// parseFlags populates selected agent Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   PostgreSQL DSN of the record store
//	-f string   path to the local cache database
//	-t string   session token
//	-k string   session secret
//	-i int      resync interval, minutes
//	-h string   push hook bind address
//	-s string   surface refresh URL
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-f", "-t", "-k", "-i", "-h", "-s"})

	fs := flag.NewFlagSet("agent", flag.ContinueOnError)

	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "record store DSN")
	fs.StringVar(&config.CachePath, "f", config.CachePath, "local cache database path")
	fs.StringVar(&config.SessionToken, "t", config.SessionToken, "session token")
	fs.StringVar(&config.SessionSecret, "k", config.SessionSecret, "session secret")

	resyncInterval := fs.Int("i", int(config.ResyncInterval.Minutes()), "resync interval (in minutes)")

	fs.StringVar(&config.PushHookAddr, "h", config.PushHookAddr, "push hook bind address")
	fs.StringVar(&config.SurfaceURL, "s", config.SurfaceURL, "surface refresh URL")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.ResyncInterval = time.Duration(*resyncInterval) * time.Minute
}
