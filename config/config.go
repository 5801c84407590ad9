// Package config holds the server's runtime properties, populated by
// viper from CLI flags, environment variables, and an optional config
// file, in that order of precedence.
package config

import (
	"strings"

	"github.com/spf13/viper"
)

// ServerProperties holds global config properties, mirroring the CLI
// surface named in the specification: --dir, --dbfilename,
// --requirepass, --save_schedule, --port, --hz, --cache_mode.
type ServerProperties struct {
	Bind           string `mapstructure:"bind"`
	Port           int    `mapstructure:"port"`
	Dir            string `mapstructure:"dir"`
	DBFilename     string `mapstructure:"dbfilename"`
	RequirePass    string `mapstructure:"requirepass"`
	SaveSchedule   string `mapstructure:"save_schedule"`
	Hz             int    `mapstructure:"hz"`
	CacheMode      bool   `mapstructure:"cache_mode"`
	Databases      int    `mapstructure:"databases"`
	MaxClients     int    `mapstructure:"maxclients"`
	Maxmemory      uint64 `mapstructure:"maxmemory"`
	ReplicaOf      string `mapstructure:"replicaof"`
	MetricsAddress string `mapstructure:"metrics_address"`
}

// Properties holds the active configuration, populated by Setup.
var Properties = defaultProperties()

func defaultProperties() *ServerProperties {
	return &ServerProperties{
		Bind:         "0.0.0.0",
		Port:         6399,
		Dir:          ".",
		DBFilename:   "dump",
		SaveSchedule: "",
		Hz:           10,
		Databases:    16,
		MaxClients:   10000,
	}
}

// Setup loads configuration from (in increasing precedence) defaults,
// an optional config file, environment variables prefixed DRAGONFLY_,
// and explicit flag values already bound to v by the caller.
func Setup(v *viper.Viper, configFile string) (*ServerProperties, error) {
	def := defaultProperties()
	v.SetDefault("bind", def.Bind)
	v.SetDefault("port", def.Port)
	v.SetDefault("dir", def.Dir)
	v.SetDefault("dbfilename", def.DBFilename)
	v.SetDefault("hz", def.Hz)
	v.SetDefault("databases", def.Databases)
	v.SetDefault("maxclients", def.MaxClients)

	v.SetEnvPrefix("dragonfly")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	props := &ServerProperties{}
	if err := v.Unmarshal(props); err != nil {
		return nil, err
	}
	Properties = props
	return props, nil
}
