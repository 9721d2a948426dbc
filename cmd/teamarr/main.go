// Command teamarr is the control surface (§6): generate, generate
// --stream, abort, and cache refresh, wired against one SQLite-backed
// instance.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/teamarr/teamarr/internal/config"
	"github.com/teamarr/teamarr/internal/epg"
	"github.com/teamarr/teamarr/internal/httpclient"
	"github.com/teamarr/teamarr/internal/matcher"
	"github.com/teamarr/teamarr/internal/metrics"
	"github.com/teamarr/teamarr/internal/model"
	"github.com/teamarr/teamarr/internal/providers"
	"github.com/teamarr/teamarr/internal/providers/statfeed"
	"github.com/teamarr/teamarr/internal/providers/thesportsdb"
	"github.com/teamarr/teamarr/internal/reconciler"
	"github.com/teamarr/teamarr/internal/sportsdata"
	"github.com/teamarr/teamarr/internal/store"
	"github.com/teamarr/teamarr/internal/teamcache"
)

// Exit codes (§6).
const (
	exitSuccess       = 0
	exitAborted       = 2
	exitGenerationErr = 3
	exitMisconfigured = 4
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: teamarr <generate [--stream]|abort|cache refresh>")
		return exitMisconfigured
	}

	_ = config.LoadEnvFile(".env")
	cfg := config.Load()

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	app, err := newApp(context.Background(), cfg)
	if err != nil {
		logger.Error("startup failed", "error", err)
		return exitMisconfigured
	}
	defer app.store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch args[0] {
	case "generate":
		stream := len(args) > 1 && args[1] == "--stream"
		return app.generate(ctx, stream)
	case "abort":
		app.abort()
		return exitSuccess
	case "cache":
		if len(args) > 1 && args[1] == "refresh" {
			return app.cacheRefresh(ctx)
		}
		fmt.Fprintln(os.Stderr, "usage: teamarr cache refresh")
		return exitMisconfigured
	default:
		fmt.Fprintln(os.Stderr, "unknown command:", args[0])
		return exitMisconfigured
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

// app bundles every wired subsystem for one instance.
type app struct {
	cfg     *config.Config
	store   *store.Store
	data    *sportsdata.Service
	teams   *teamcache.Cache
	match   *matcher.Matcher
	orch    *epg.Orchestrator
	manager reconciler.Manager
	metrics *metrics.Registry

	runMu      sync.Mutex
	cancelRun  context.CancelFunc
	generation int64
}

// soccerLeagues is the expansion target for a group's soccer_all flag
// (§4.4.3 step 3); kept local since the matcher never imports teamcache.
var soccerLeagues = []string{"eng.1", "esp.1", "ita.1", "ger.1", "fra.1", "usa.1", "mex.1", "uefa.champions"}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	if cfg.StorePath == "" {
		return nil, errors.New("missing store path")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.StorePath), 0o755); err != nil && filepath.Dir(cfg.StorePath) != "." {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	st, err := store.Open(ctx, cfg.StorePath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	registry := providers.NewRegistry()

	primaryClient := httpclient.NewClient(cfg.ProviderRatePerMin, time.Minute, retryPolicyFrom(cfg))
	primary := thesportsdb.New(cfg.PrimaryProviderBaseURL, cfg.PrimaryProviderAPIKey, primaryClient)
	registry.Register(primary.Name(), primary, 1, true)

	if cfg.SecondaryProviderBaseURL != "" && cfg.SecondaryProviderLeague != "" {
		secondaryClient := httpclient.NewClient(cfg.ProviderRatePerMin, time.Minute, retryPolicyFrom(cfg))
		secondary := statfeed.New(cfg.SecondaryProviderBaseURL, cfg.SecondaryProviderAPIKey, cfg.SecondaryProviderLeague, cfg.SecondaryProviderSport, secondaryClient)
		registry.Register(secondary.Name(), secondary, 2, true)
	}

	dataService := sportsdata.New(registry)

	teamGroups := []teamcache.Group{{Name: "all soccer leagues", Leagues: soccerLeagues}}
	teamCache := teamcache.New(registry, teamGroups)
	teamCache.StartRefreshLoop(ctx, 7*24*time.Hour)

	singleEventLeagues := []matcher.SingleEventLeague{
		{Slug: "ufc", Keywords: []string{"ufc", "fight night", "pay per view"}},
	}

	candidateLeagues := func(teamA, teamB string) []matcher.CandidateLeague {
		src := teamCache.CandidateLeagues(teamA, teamB)
		out := make([]matcher.CandidateLeague, len(src))
		for i, c := range src {
			out[i] = matcher.CandidateLeague{League: c.League, TeamA: c.TeamA, TeamB: c.TeamB}
		}
		return out
	}

	m := matcher.New(dataService, candidateLeagues, teamCache.ExpandGroups, nil, singleEventLeagues, cfg.EventMatchDaysAhead)
	if cached, err := st.LoadMatchCache(ctx); err == nil {
		m.SeedFingerprintCache(cached)
	}

	orch := epg.New(dataService, matcherAdapter{m})

	var manager reconciler.Manager
	if cfg.ManagerBaseURL != "" {
		manager = reconciler.NewHTTPManager(cfg.ManagerBaseURL, cfg.ManagerUser, cfg.ManagerPass, httpclient.NewClient(cfg.ProviderRatePerMin, time.Minute, retryPolicyFrom(cfg)))
	}

	return &app{
		cfg: cfg, store: st, data: dataService, teams: teamCache, match: m,
		orch: orch, manager: manager, metrics: metrics.New(),
	}, nil
}

func retryPolicyFrom(cfg *config.Config) httpclient.RetryPolicy {
	policy := httpclient.DefaultRetryPolicy
	policy.MaxRetries = cfg.HTTPMaxRetries
	policy.LogHeaders = cfg.HTTPLogHeaders
	return policy
}

// matcherAdapter implements epg.Matcher over *matcher.Matcher, converting
// the decoupled mirror types at the one site that needs both.
type matcherAdapter struct{ m *matcher.Matcher }

func (a matcherAdapter) Match(ctx context.Context, rawName string, opts epg.MatchOptionsLike, generation int64) (epg.MatchOutcome, error) {
	result, err := a.m.Match(ctx, rawName, matcher.MatchOptions{
		GroupID: opts.GroupID, StreamID: opts.StreamID, IncludeFinal: opts.IncludeFinal,
	}, generation)
	if err != nil {
		return epg.MatchOutcome{}, err
	}
	return epg.MatchOutcome{EventID: result.EventID, League: result.League, Event: result.Event}, nil
}

// resolveTeam looks a team up through the Data Service, keyed by whatever
// provider produced it; teams are read-through, never stored locally.
func (a *app) resolveTeam(provider, providerID, league string) (model.Team, bool) {
	team, err := a.data.GetTeam(context.Background(), providerID, league)
	if err != nil || team == nil {
		return model.Team{}, false
	}
	return *team, true
}

func (a *app) loadSettings(ctx context.Context) (store.AppSettings, epg.FillerPolicy, error) {
	settings, err := a.store.GetSettings(ctx)
	if err != nil {
		return store.AppSettings{}, epg.FillerPolicy{}, err
	}
	loc, err := time.LoadLocation(settings.EPGTimezone)
	if err != nil {
		loc = time.UTC
	}
	crossover := epg.CrossoverPostgame
	if settings.MidnightCrossoverMode == "idle" {
		crossover = epg.CrossoverIdle
	}
	filler := epg.FillerPolicy{
		MaxProgramHours:   settings.MaxProgramHours,
		PostgameMaxHours:  2.0,
		MidnightCrossover: crossover,
		Timezone:          loc,
	}
	return settings, filler, nil
}

func (a *app) durationForSport(settings store.AppSettings) func(string) time.Duration {
	return func(sport string) time.Duration {
		if h, ok := settings.DurationHoursBySport[sport]; ok && h > 0 {
			return time.Duration(h * float64(time.Hour))
		}
		return 3*time.Hour + 30*time.Minute
	}
}

// generate runs one EPG generation, synchronously or with streamed progress
// depending on stream.
func (a *app) generate(ctx context.Context, stream bool) int {
	a.data.ResetProviderStats()

	settings, filler, err := a.loadSettings(ctx)
	if err != nil {
		slog.Error("load settings failed", "error", err)
		return exitMisconfigured
	}

	teamChannels, err := a.store.ListTeamChannels(ctx, a.resolveTeam)
	if err != nil {
		slog.Error("list team channels failed", "error", err)
		return exitGenerationErr
	}
	eventGroups, err := a.store.ListEnabledEventGroups(ctx)
	if err != nil {
		slog.Error("list event groups failed", "error", err)
		return exitGenerationErr
	}

	runCtx, cancel := context.WithCancel(ctx)
	a.runMu.Lock()
	a.cancelRun = cancel
	a.generation++
	generation := a.generation
	a.runMu.Unlock()
	defer func() {
		a.runMu.Lock()
		a.cancelRun = nil
		a.runMu.Unlock()
	}()

	runSettings := epg.Settings{
		TeamChannels:          teamChannels,
		EventGroups:           eventGroups,
		Lookback:              time.Duration(settings.EPGLookbackHours) * time.Hour,
		TeamScheduleDaysAhead: settings.TeamScheduleDaysAhead,
		EPGOutputDaysAhead:    settings.EPGOutputDaysAhead,
		DurationForSport:      a.durationForSport(settings),
		FillerPolicy:          filler,
		Now:                   time.Now(),
		Generation:            generation,
	}

	var progress chan epg.ProgressEvent
	if stream {
		progress = make(chan epg.ProgressEvent, 16)
		go func() {
			for ev := range progress {
				fmt.Printf("progress: phase=%s %d/%d (%.0f%%) %s\n", ev.Phase, ev.Current, ev.Total, ev.Percent, ev.Item)
			}
		}()
	}

	record, programmes, err := a.orch.Run(runCtx, runSettings, progress)
	if progress != nil {
		close(progress)
	}
	if err != nil {
		if errors.Is(err, epg.ErrAlreadyRunning) {
			slog.Warn("generation already in progress")
			return exitGenerationErr
		}
		slog.Error("generation failed", "error", err)
		return exitGenerationErr
	}

	if saveErr := a.store.SaveRunRecord(ctx, record); saveErr != nil {
		slog.Error("save run record failed", "error", saveErr)
	}

	a.recordMetrics(record)

	fmt.Printf("run %s: %s programmes emitted across %s events (%s streams matched, %s missed) in %s\n",
		record.ID, humanize.Comma(int64(record.ProgrammesEmitted)), humanize.Comma(int64(record.EventsProcessed)),
		humanize.Comma(int64(record.StreamsMatched)), humanize.Comma(int64(record.StreamsMissed)),
		humanize.RelTime(record.StartedAt, record.EndedAt, "elapsed", ""))

	a.match.PurgeFingerprintCache(generation, int64(a.cfg.MatchCacheMaxGenerationAge))
	for _, entry := range a.match.SnapshotFingerprintCache() {
		if saveErr := a.store.PutMatchCacheEntry(ctx, entry); saveErr != nil {
			slog.Warn("persist match cache entry failed", "event_id", entry.EventID, "error", saveErr)
		}
	}

	if err := a.reconcileChannels(ctx, eventGroups, settings, runSettings.DurationForSport, generation); err != nil {
		slog.Error("channel reconciliation failed", "error", err)
	}

	if err := a.writeXMLTV(programmes); err != nil {
		slog.Error("write xmltv failed", "error", err)
		return exitGenerationErr
	}

	switch record.Status {
	case "aborted":
		return exitAborted
	case "success", "partial":
		return exitSuccess
	default:
		return exitGenerationErr
	}
}

// reconcileChannels re-resolves every event group's streams (a fingerprint
// cache hit, since Phase 2 just matched them), then applies one reconciler
// pass to create/sync/delete downstream channels (§4.7).
func (a *app) reconcileChannels(ctx context.Context, eventGroups []epg.EventGroup, settings store.AppSettings, durationForSport func(string) time.Duration, generation int64) error {
	loc, err := time.LoadLocation(settings.EPGTimezone)
	if err != nil {
		loc = time.UTC
	}
	now := time.Now()

	var matchedEvents []reconciler.MatchedEvent
	for _, group := range eventGroups {
		for _, stream := range group.Streams {
			outcome, err := a.match.Match(ctx, stream.Name, matcher.MatchOptions{
				GroupID: group.GroupID, StreamID: stream.StreamID, IncludeFinal: group.IncludeFinal,
			}, generation)
			if err != nil {
				continue
			}
			dur := durationForSport(outcome.Event.Sport)
			if group.Template.DurationOverride > 0 {
				dur = group.Template.DurationOverride
			}
			matchedEvents = append(matchedEvents, reconciler.MatchedEvent{
				EventID: outcome.EventID, GroupID: group.GroupID,
				HomeTeamName: outcome.Event.Home.Name, AwayTeamName: outcome.Event.Away.Name,
				Start: outcome.Event.Start, SportDuration: dur,
				Name: outcome.Event.Home.Name + " vs " + outcome.Event.Away.Name,
				StreamPresent: true,
			})
		}
	}

	existing, err := a.store.ListManagedChannels(ctx)
	if err != nil {
		return fmt.Errorf("list managed channels: %w", err)
	}

	var downstreamIDs []string
	if a.manager != nil {
		remote, err := a.manager.ListChannels(ctx)
		if err != nil {
			slog.Warn("list downstream channels failed", "error", err)
		} else {
			downstreamIDs = make([]string, len(remote))
			for i, r := range remote {
				downstreamIDs[i] = r.ID
			}
		}
	}

	lifecycle := reconciler.Settings{
		CreationTiming: reconciler.CreationTiming(settings.ChannelCreateTiming),
		DeletePolicy:   reconciler.DeletePolicy(settings.ChannelDeleteTiming),
		Timezone:       loc,
	}
	result := reconciler.Reconcile(matchedEvents, existing, downstreamIDs, lifecycle, now)

	var creates, updates []model.ManagedChannel
	var deleteIDs []string
	for _, action := range result.Actions {
		switch action.Kind {
		case "create":
			ch := action.Channel
			ch.ID = uuid.NewString()
			if a.manager != nil {
				downstreamID, err := a.manager.CreateChannel(ctx, reconciler.ChannelSpec{Name: ch.Name, Number: ch.Number, M3UGroup: ch.M3UGroup, Profile: ch.Profile})
				if err != nil {
					slog.Error("create downstream channel failed", "event_id", action.EventID, "error", err)
					continue
				}
				ch.DownstreamChannelID = downstreamID
			}
			creates = append(creates, ch)
		case "sync":
			ch := action.Channel
			if a.manager != nil && ch.DownstreamChannelID != "" {
				if err := a.manager.UpdateChannel(ctx, ch.DownstreamChannelID, reconciler.ChannelSpec{Name: ch.Name, Number: ch.Number, M3UGroup: ch.M3UGroup, Profile: ch.Profile}); err != nil {
					slog.Error("update downstream channel failed", "event_id", action.EventID, "error", err)
				}
			}
			updates = append(updates, ch)
		case "delete":
			if a.manager != nil && action.Channel.DownstreamChannelID != "" {
				if err := a.manager.DeleteChannel(ctx, action.Channel.DownstreamChannelID); err != nil {
					slog.Error("delete downstream channel failed", "event_id", action.EventID, "error", err)
				}
			}
			deleteIDs = append(deleteIDs, action.Channel.ID)
		}
	}

	if len(result.Orphans) > 0 {
		slog.Warn("orphan downstream channels detected", "count", len(result.Orphans))
	}
	if len(result.Duplicates) > 0 {
		slog.Warn("duplicate managed channels detected", "groups", len(result.Duplicates))
	}

	if len(creates) == 0 && len(updates) == 0 && len(deleteIDs) == 0 {
		return nil
	}
	return a.store.SyncManagedChannels(ctx, creates, updates, deleteIDs)
}

func (a *app) writeXMLTV(programmes map[string][]model.Programme) error {
	outputPath := a.cfg.StorePath + ".xmltv"
	if outputPath == ".xmltv" {
		outputPath = "teamarr.xmltv"
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer f.Close()

	channels := make([]epg.ChannelMeta, 0, len(programmes))
	ids := make([]string, 0, len(programmes))
	for id := range programmes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		channels = append(channels, epg.ChannelMeta{ID: id, DisplayName: id})
	}

	return epg.WriteXMLTV(f, channels, programmes, epg.EmitOptions{EmitLiveNewTags: true})
}

// recordMetrics pushes one run's provider_stats() snapshot (reset at the
// start of generate, so these are this run's deltas) and outcome counters
// into the Prometheus registry (§4.2).
func (a *app) recordMetrics(record model.RunRecord) {
	stats := a.data.ProviderStats()
	for provider, snap := range stats.Providers {
		a.metrics.ProviderRequests.WithLabelValues(provider).Add(float64(snap.Requests))
		a.metrics.ProviderRetries.WithLabelValues(provider).Add(float64(snap.Retries))
		a.metrics.ProviderPreemptiveWait.WithLabelValues(provider).Add(float64(snap.PreemptiveWaits))
		a.metrics.ProviderReactiveWait.WithLabelValues(provider).Add(float64(snap.ReactiveWaits))
	}
	a.metrics.ProviderCacheHits.WithLabelValues("all").Add(float64(stats.Cache.Hits))
	a.metrics.ProviderCacheMisses.WithLabelValues("all").Add(float64(stats.Cache.Misses))

	a.metrics.RunsTotal.WithLabelValues(record.Status).Inc()
	a.metrics.RunDuration.Observe(record.EndedAt.Sub(record.StartedAt).Seconds())
	a.metrics.ProgrammesEmitted.Add(float64(record.ProgrammesEmitted))
	a.metrics.StreamsMatched.Add(float64(record.StreamsMatched))
	a.metrics.StreamsMissed.Add(float64(record.StreamsMissed))
}

// abort cancels the in-flight run, if any.
func (a *app) abort() {
	a.runMu.Lock()
	cancel := a.cancelRun
	a.runMu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// cacheRefresh forces an immediate team/league cache rebuild.
func (a *app) cacheRefresh(ctx context.Context) int {
	if err := a.teams.Refresh(ctx); err != nil {
		slog.Error("cache refresh failed", "error", err)
		return exitGenerationErr
	}
	return exitSuccess
}
