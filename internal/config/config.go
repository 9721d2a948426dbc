package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Config holds orchestrator, provider, and persistence settings for one
// Teamarr instance. Load from env and/or a .env file (see LoadEnvFile).
type Config struct {
	// Provider credentials (thesportsdb-style primary, statfeed-style secondary).
	PrimaryProviderBaseURL   string
	PrimaryProviderAPIKey    string
	SecondaryProviderBaseURL string
	SecondaryProviderAPIKey  string
	SecondaryProviderLeague  string // statfeed serves exactly one league (§4.1)
	SecondaryProviderSport   string

	// Downstream IPTV manager facade.
	ManagerBaseURL string
	ManagerUser    string
	ManagerPass    string

	// External M3U source for event groups (§4.6 Phase 2).
	M3USourceURL string

	// Paths.
	StorePath string // SQLite database file, one per instance.
	LogDir    string

	// EPG generation windows (§6 Configuration).
	EPGOutputDaysAhead    int
	TeamScheduleDaysAhead int
	EventMatchDaysAhead   int
	EPGLookbackHours      int
	EPGTimezone           string

	// Per-sport programme duration (hours), pre-filled with per-sport
	// defaults; DurationForSport uses 3.5h for a missing or zero entry.
	SportDurationHours map[string]float64

	MidnightCrossoverMode string // "postgame" | "idle"
	MaxProgramHours       float64
	PregameMinHours       float64
	PostgameMaxHours      float64

	ChannelCreateTiming string // "day_of" | "day_before" | "2_days_before" | "week_before"
	ChannelDeleteTiming string // "stream_removed" | "end_of_day" | "end_of_next_day" | "manual"

	LogLevel  string
	LogFormat string // "text" | "json"

	// HTTP/provider behavior.
	HTTPTimeout        time.Duration
	HTTPMaxRetries     int
	ProviderRatePerMin int

	// Fingerprint cache purge threshold (generations).
	MatchCacheMaxGenerationAge int

	// HTTPLogHeaders logs diagnostic response headers (Retry-After, rate
	// limit headers) on any provider response other than 200, 206 or 304.
	HTTPLogHeaders bool
}

// Load reads config from environment. Call LoadEnvFile(".env") before Load()
// to populate os.Environ() from a local file first.
func Load() *Config {
	c := &Config{
		PrimaryProviderBaseURL:   getEnv("TEAMARR_PRIMARY_PROVIDER_URL", "https://www.thesportsdb.com/api/v1/json"),
		PrimaryProviderAPIKey:    os.Getenv("TEAMARR_PRIMARY_PROVIDER_KEY"),
		SecondaryProviderBaseURL: os.Getenv("TEAMARR_SECONDARY_PROVIDER_URL"),
		SecondaryProviderAPIKey:  os.Getenv("TEAMARR_SECONDARY_PROVIDER_KEY"),
		SecondaryProviderLeague:  os.Getenv("TEAMARR_SECONDARY_PROVIDER_LEAGUE"),
		SecondaryProviderSport:   os.Getenv("TEAMARR_SECONDARY_PROVIDER_SPORT"),

		ManagerBaseURL: os.Getenv("TEAMARR_MANAGER_URL"),
		ManagerUser:    os.Getenv("TEAMARR_MANAGER_USER"),
		ManagerPass:    os.Getenv("TEAMARR_MANAGER_PASS"),

		M3USourceURL: os.Getenv("TEAMARR_M3U_URL"),

		StorePath: getEnv("TEAMARR_STORE_PATH", "./teamarr.db"),
		LogDir:    getEnv("TEAMARR_LOG_DIR", "./log"),

		EPGOutputDaysAhead:    getEnvInt("TEAMARR_EPG_OUTPUT_DAYS_AHEAD", 14),
		TeamScheduleDaysAhead: getEnvInt("TEAMARR_TEAM_SCHEDULE_DAYS_AHEAD", 30),
		EventMatchDaysAhead:   getEnvInt("TEAMARR_EVENT_MATCH_DAYS_AHEAD", 7),
		EPGLookbackHours:      getEnvInt("TEAMARR_EPG_LOOKBACK_HOURS", 6),
		EPGTimezone:           getEnv("TEAMARR_EPG_TIMEZONE", "UTC"),

		MidnightCrossoverMode: getEnvEnum("TEAMARR_MIDNIGHT_CROSSOVER_MODE", "postgame", "postgame", "idle"),
		MaxProgramHours:       getEnvFloat("TEAMARR_MAX_PROGRAM_HOURS", 6.0),
		PregameMinHours:       getEnvFloat("TEAMARR_PREGAME_MIN_HOURS", 1.0),
		PostgameMaxHours:      getEnvFloat("TEAMARR_POSTGAME_MAX_HOURS", 2.0),

		ChannelCreateTiming: getEnvEnum("TEAMARR_CHANNEL_CREATE_TIMING", "day_before", "day_of", "day_before", "2_days_before", "week_before"),
		ChannelDeleteTiming: getEnvEnum("TEAMARR_CHANNEL_DELETE_TIMING", "end_of_day", "stream_removed", "end_of_day", "end_of_next_day", "manual"),

		LogLevel:  getEnv("TEAMARR_LOG_LEVEL", "info"),
		LogFormat: getEnvEnum("TEAMARR_LOG_FORMAT", "text", "text", "json"),

		HTTPTimeout:        getEnvDuration("TEAMARR_HTTP_TIMEOUT", 10*time.Second),
		HTTPMaxRetries:     getEnvInt("TEAMARR_HTTP_MAX_RETRIES", 3),
		ProviderRatePerMin: getEnvInt("TEAMARR_PROVIDER_RATE_PER_MIN", 100),

		MatchCacheMaxGenerationAge: getEnvInt("TEAMARR_MATCH_CACHE_MAX_GENERATION_AGE", 5),
		HTTPLogHeaders:             getEnvBool("TEAMARR_HTTP_LOG_HEADERS", true),
	}

	c.SportDurationHours = map[string]float64{
		"football":   getEnvFloat("TEAMARR_DURATION_FOOTBALL", 3.5),
		"basketball": getEnvFloat("TEAMARR_DURATION_BASKETBALL", 3.0),
		"hockey":     getEnvFloat("TEAMARR_DURATION_HOCKEY", 3.0),
		"baseball":   getEnvFloat("TEAMARR_DURATION_BASEBALL", 3.5),
		"soccer":     getEnvFloat("TEAMARR_DURATION_SOCCER", 2.5),
		"mma":        getEnvFloat("TEAMARR_DURATION_MMA", 5.0),
		"rugby":      getEnvFloat("TEAMARR_DURATION_RUGBY", 2.5),
		"boxing":     getEnvFloat("TEAMARR_DURATION_BOXING", 4.0),
		"tennis":     getEnvFloat("TEAMARR_DURATION_TENNIS", 3.0),
		"golf":       getEnvFloat("TEAMARR_DURATION_GOLF", 6.0),
		"racing":     getEnvFloat("TEAMARR_DURATION_RACING", 3.0),
		"cricket":    getEnvFloat("TEAMARR_DURATION_CRICKET", 4.0),
	}

	if c.HTTPMaxRetries < 0 {
		c.HTTPMaxRetries = 0
	}
	if c.ProviderRatePerMin <= 0 {
		c.ProviderRatePerMin = 100
	}
	if c.MatchCacheMaxGenerationAge <= 0 {
		c.MatchCacheMaxGenerationAge = 5
	}

	// Credentials fallback, same pattern as a subscription file: try a
	// manager-credentials file when env vars are absent.
	if c.ManagerUser == "" || c.ManagerPass == "" {
		if user, pass, err := readCredentialsFile(getEnv("TEAMARR_MANAGER_CREDENTIALS_FILE", "")); err == nil {
			if c.ManagerUser == "" {
				c.ManagerUser = user
			}
			if c.ManagerPass == "" {
				c.ManagerPass = pass
			}
		}
	}
	return c
}

// readCredentialsFile reads "Username: x" / "Password: x" lines from path.
// path may be empty to try the default location.
func readCredentialsFile(path string) (user, pass string, err error) {
	if path == "" {
		home := os.Getenv("HOME")
		if home == "" {
			return "", "", os.ErrNotExist
		}
		pattern := filepath.Join(home, ".config", "teamarr", "manager.*.txt")
		matches, globErr := filepath.Glob(pattern)
		if globErr != nil || len(matches) == 0 {
			return "", "", os.ErrNotExist
		}
		sort.Strings(matches)
		path = matches[len(matches)-1]
	}
	path = filepath.Clean(path)
	f, err := os.Open(path)
	if err != nil {
		return "", "", err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, "Username:") {
			user = strings.TrimSpace(strings.TrimPrefix(line, "Username:"))
		} else if strings.HasPrefix(line, "Password:") {
			pass = strings.TrimSpace(strings.TrimPrefix(line, "Password:"))
		}
	}
	if err := sc.Err(); err != nil {
		return "", "", err
	}
	if user == "" || pass == "" {
		return "", "", fmt.Errorf("credentials file: missing Username or Password")
	}
	return user, pass, nil
}

// DurationForSport returns the configured programme duration for sport,
// falling back to 3.5h (§4.6.2) when the sport is unrecognized.
func (c *Config) DurationForSport(sport string) time.Duration {
	if h, ok := c.SportDurationHours[strings.ToLower(sport)]; ok && h > 0 {
		return time.Duration(h * float64(time.Hour))
	}
	return 3*time.Hour + 30*time.Minute
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "yes")
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

// getEnvEnum returns the env value if it case-insensitively matches one of
// allowed, else defaultVal.
func getEnvEnum(key, defaultVal string, allowed ...string) string {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if v == "" {
		return defaultVal
	}
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	return defaultVal
}
