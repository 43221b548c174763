package config

import (
	"encoding/json"
	"os"

	"github.com/keepsake-app/keepsake/internal/flagx"
	"github.com/keepsake-app/keepsake/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify intervals either as strings like "30m"
// or as integer nanoseconds.
type JsonConfig struct {
	DatabaseDSN    string         `json:"database_dsn"`
	CachePath      string         `json:"cache_path"`
	SessionToken   string         `json:"session_token"`
	SessionSecret  string         `json:"session_secret"`
	ResyncInterval timex.Duration `json:"resync_interval"`
	PushHookAddr   string         `json:"push_hook_addr"`
	SurfaceURL     string         `json:"surface_url"`
}

// parseJson overlays Config with values loaded from a JSON file. The file
// path comes from the -c/-config command-line flags; when neither is set,
// nothing is loaded. Panics on read or unmarshal errors. Only fields the
// file actually sets are copied, so a partial file keeps the defaults for
// everything it omits.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.DatabaseDSN != "" {
		cfg.DatabaseDSN = jc.DatabaseDSN
	}
	if jc.CachePath != "" {
		cfg.CachePath = jc.CachePath
	}
	if jc.SessionToken != "" {
		cfg.SessionToken = jc.SessionToken
	}
	if jc.SessionSecret != "" {
		cfg.SessionSecret = jc.SessionSecret
	}
	if jc.ResyncInterval.Duration != 0 {
		cfg.ResyncInterval = jc.ResyncInterval.Duration
	}
	if jc.PushHookAddr != "" {
		cfg.PushHookAddr = jc.PushHookAddr
	}
	if jc.SurfaceURL != "" {
		cfg.SurfaceURL = jc.SurfaceURL
	}
}
