package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
)

// holds parsed command-line flag values and which were set
type Flags struct {
	Addr   string
	DB     string
	Config string
	Set    map[string]bool
}

// holds the result of LoadEffectiveConfig
type EffectiveConfigResult struct {
	Config *Config
	Addr   string
	DBPath string
	Source string // "flags", "config", or "env"
}

// parses command-line flags and returns them as a Flags struct
// you can only pass 3 config values
func ParseConfigFlags() Flags {
	f, _ := ParseConfigFlagsFrom(flag.CommandLine, os.Args[1:])
	return f
}

// ParseConfigFlagsFrom registers the three flags on fs and parses args.
func ParseConfigFlagsFrom(fset *flag.FlagSet, args []string) (Flags, error) {
	addrPtr := fset.String("addr", ":8080", "HTTP listen address")
	dbPtr := fset.String("db", "./.guardcomms", "Pebble DB path")
	cfgPtr := fset.String("config", "./config.yaml", "Path to config file")
	if err := fset.Parse(args); err != nil {
		return Flags{}, err
	}

	// record which flags were set explicitly
	setFlags := make(map[string]bool)
	fset.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })

	return Flags{Addr: *addrPtr, DB: *dbPtr, Config: *cfgPtr, Set: setFlags}, nil
}

// loads config from file, returns config, found bool, and error
func ParseConfigFile(flags Flags) (*Config, bool, error) {
	cfgPath := ResolveConfigPath(flags.Config, flags.Set["config"])
	cfg, err := LoadConfigFile(cfgPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Config{}, false, nil
		}
		return nil, false, err
	}
	return cfg, true, nil
}

func parseList(v string) []string {
	if v == "" {
		return nil
	}
	parts := []string{}
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			parts = append(parts, s)
		}
	}
	return parts
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

// loads GUARDCOMMS_* environment variables into a new Config; reports whether any was set
func ParseConfigEnvs() (*Config, bool) {
	envs := map[string]string{
		"ADDR":        os.Getenv("GUARDCOMMS_ADDR"),
		"SERVER_PORT": os.Getenv("GUARDCOMMS_SERVER_PORT"),
		"DB_PATH":     os.Getenv("GUARDCOMMS_DB_PATH"),

		"CORS_ORIGINS": os.Getenv("GUARDCOMMS_CORS_ORIGINS"),
		"RATE_RPS":     os.Getenv("GUARDCOMMS_RATE_RPS"),
		"RATE_BURST":   os.Getenv("GUARDCOMMS_RATE_BURST"),

		"LOG_LEVEL": os.Getenv("GUARDCOMMS_LOG_LEVEL"),

		"STORE_BACKEND":         os.Getenv("GUARDCOMMS_STORE_BACKEND"),
		"STORE_FALLBACK_MEMORY": os.Getenv("GUARDCOMMS_STORE_FALLBACK_MEMORY"),
		"STORE_CACHE_SIZE":      os.Getenv("GUARDCOMMS_STORE_CACHE_SIZE"),

		"MESSAGES_WRITE_MODE":     os.Getenv("GUARDCOMMS_MESSAGES_WRITE_MODE"),
		"MESSAGES_QUEUE_CAPACITY": os.Getenv("GUARDCOMMS_MESSAGES_QUEUE_CAPACITY"),
		"MESSAGES_WRITE_TIMEOUT":  os.Getenv("GUARDCOMMS_MESSAGES_WRITE_TIMEOUT"),

		"ARCHIVE_ENABLED":        os.Getenv("GUARDCOMMS_ARCHIVE_ENABLED"),
		"ARCHIVE_CRON":           os.Getenv("GUARDCOMMS_ARCHIVE_CRON"),
		"ARCHIVE_INACTIVE_AFTER": os.Getenv("GUARDCOMMS_ARCHIVE_INACTIVE_AFTER"),
		"ARCHIVE_DRY_RUN":        os.Getenv("GUARDCOMMS_ARCHIVE_DRY_RUN"),
	}

	envUsed := false
	for _, v := range envs {
		if v != "" {
			envUsed = true
			break
		}
	}
	envCfg := &Config{}

	if v := envs["ADDR"]; v != "" {
		if h, p, err := net.SplitHostPort(v); err == nil {
			envCfg.Server.Address = h
			if pi, err := strconv.Atoi(p); err == nil {
				envCfg.Server.Port = pi
			}
		} else {
			envCfg.Server.Address = v
		}
	}
	if v := envs["SERVER_PORT"]; v != "" {
		if pi, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			envCfg.Server.Port = pi
		}
	}
	envCfg.Server.DBPath = strings.TrimSpace(envs["DB_PATH"])

	envCfg.Security.CORS.AllowedOrigins = parseList(envs["CORS_ORIGINS"])
	if v := envs["RATE_RPS"]; v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			envCfg.Security.RateLimit.RPS = f
		}
	}
	if v := envs["RATE_BURST"]; v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			envCfg.Security.RateLimit.Burst = n
		}
	}

	envCfg.Logging.Level = strings.TrimSpace(envs["LOG_LEVEL"])

	envCfg.Store.Backend = strings.ToLower(strings.TrimSpace(envs["STORE_BACKEND"]))
	if v := envs["STORE_FALLBACK_MEMORY"]; v != "" {
		b := parseBool(v)
		envCfg.Store.FallbackMemory = &b
	}
	if v := envs["STORE_CACHE_SIZE"]; v != "" {
		if s, err := parseSizeValue(v); err == nil {
			envCfg.Store.CacheSize = s
		}
	}

	envCfg.Messages.WriteMode = strings.ToLower(strings.TrimSpace(envs["MESSAGES_WRITE_MODE"]))
	if v := envs["MESSAGES_QUEUE_CAPACITY"]; v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			envCfg.Messages.QueueCapacity = n
		}
	}
	if v := envs["MESSAGES_WRITE_TIMEOUT"]; v != "" {
		if d, err := parseDurationValue(v); err == nil {
			envCfg.Messages.WriteTimeout = d
		}
	}

	if v := envs["ARCHIVE_ENABLED"]; v != "" {
		envCfg.Archive.Enabled = parseBool(v)
	}
	envCfg.Archive.Cron = strings.TrimSpace(envs["ARCHIVE_CRON"])
	if v := envs["ARCHIVE_INACTIVE_AFTER"]; v != "" {
		if d, err := parseDurationValue(v); err == nil {
			envCfg.Archive.InactiveAfter = d
		}
	}
	if v := envs["ARCHIVE_DRY_RUN"]; v != "" {
		envCfg.Archive.DryRun = parseBool(v)
	}

	return envCfg, envUsed
}

// decides which single source to use (flags, config file, or env) and returns the effective config plus resolved addr and dbPath. if --config is set, only the config file is used; otherwise flags if set; else config file if present; else env
func LoadEffectiveConfig(flags Flags, fileCfg *Config, fileExists bool, envCfg *Config) (EffectiveConfigResult, error) {
	var res EffectiveConfigResult
	if fileCfg == nil {
		fileCfg = &Config{}
	}
	if envCfg == nil {
		envCfg = &Config{}
	}

	if flags.Set["config"] {
		if !fileExists {
			return res, fmt.Errorf("config file %s not found", flags.Config)
		}
		return fromConfig(fileCfg, "config"), nil
	}

	if flags.Set["addr"] || flags.Set["db"] {
		// flags only carry addr and db; everything else comes from the file
		// (or env) so a bare --db run still gets a complete config.
		base := envCfg
		if fileExists {
			base = fileCfg
		}
		out := *base
		addr := flags.Addr
		if !flags.Set["addr"] {
			addr = base.Addr()
		}
		dbPath := flags.DB
		if !flags.Set["db"] {
			if p := strings.TrimSpace(envCfg.Server.DBPath); p != "" {
				dbPath = p
			} else if p := strings.TrimSpace(fileCfg.Server.DBPath); p != "" {
				dbPath = p
			}
		}
		host, port := splitAddr(addr)
		out.Server.Address = host
		out.Server.Port = port
		out.Server.DBPath = dbPath
		res.Config = &out
		res.Addr = addr
		res.DBPath = dbPath
		res.Source = "flags"
		return res, nil
	}

	if fileExists {
		return fromConfig(fileCfg, "config"), nil
	}
	return fromConfig(envCfg, "env"), nil
}

func fromConfig(c *Config, source string) EffectiveConfigResult {
	return EffectiveConfigResult{Config: c, Addr: c.Addr(), DBPath: c.Server.DBPath, Source: source}
}

// extracts host and port from a host:port string
func splitAddr(a string) (string, int) {
	if a == "" {
		return "", 0
	}
	h, p, err := net.SplitHostPort(a)
	if err != nil {
		return a, 0
	}
	pi, _ := strconv.Atoi(p)
	return h, pi
}
