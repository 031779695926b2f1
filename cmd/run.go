package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"winewarden/internal/bootstrap"
	"winewarden/internal/config"
	"winewarden/internal/daemon"
	"winewarden/internal/pathmap"
	"winewarden/internal/policy"
	"winewarden/internal/report"
	"winewarden/internal/session"
	"winewarden/internal/supervisor"
	"winewarden/internal/trust"
	"winewarden/internal/types"
	"winewarden/internal/watch"
	"winewarden/internal/wwpaths"
	"winewarden/logging"
)

// runParams collects everything a run needs, whether it arrived as CLI
// flags or as a daemon.RunRequestPayload.
type runParams struct {
	Executable string
	Args       []string
	Prefix     string
	EventLog   string
	Trust      string
	NoRun      bool
	PirateSafe bool
	Live       bool
	LiveFS     bool
	LiveProc   bool
	LiveNet    bool
	PollMS     int
}

var runFlags runParams
var runUseDaemon bool

var runCmd = &cobra.Command{
	Use:   "run <exe> [args...]",
	Short: "Run a Windows executable under supervision",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVar(&runFlags.Prefix, "prefix", "", "Wine prefix root to sandbox (default: $HOME/.wine)")
	runCmd.Flags().StringVar(&runFlags.EventLog, "event-log", "", "JSON-lines event log to replay into the session after the child exits")
	runCmd.Flags().StringVar(&runFlags.Trust, "trust", "", "trust tier override (red, yellow, green)")
	runCmd.Flags().BoolVar(&runFlags.NoRun, "no-run", false, "resolve configuration and policy without starting the child")
	runCmd.Flags().BoolVar(&runFlags.PirateSafe, "pirate-safe", false, "run one trust tier stricter than resolved (green->yellow, otherwise red)")
	runCmd.Flags().BoolVar(&runFlags.Live, "live", false, "enable all live auxiliary watchers (fs, proc, net)")
	runCmd.Flags().BoolVar(&runFlags.LiveFS, "live-fs", false, "enable the filesystem auxiliary watcher")
	runCmd.Flags().BoolVar(&runFlags.LiveProc, "live-proc", false, "enable the /proc descendant auxiliary watcher")
	runCmd.Flags().BoolVar(&runFlags.LiveNet, "live-net", false, "enable the /proc/net auxiliary watcher")
	runCmd.Flags().IntVar(&runFlags.PollMS, "poll-ms", 0, "override the supervisor loop's poll timeout in milliseconds")
	runCmd.Flags().BoolVar(&runUseDaemon, "daemon", false, "submit this run to a running daemon instead of supervising it locally")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	params := runFlags
	params.Executable = args[0]
	params.Args = args[1:]

	if runUseDaemon {
		return runViaDaemon(params)
	}

	rep, err := executeRun(GetContext(), params)
	if err != nil {
		return err
	}
	report.RenderHuman(os.Stdout, rep)
	return nil
}

func runViaDaemon(p runParams) error {
	c, err := daemon.Dial(wwpaths.SocketPath())
	if err != nil {
		return fmt.Errorf("daemon not reachable: %w", err)
	}
	defer c.Close()

	resp, err := c.Run(daemon.RunRequestPayload{
		Executable: p.Executable,
		Args:       p.Args,
		Prefix:     p.Prefix,
		Trust:      p.Trust,
		EventLog:   p.EventLog,
		NoRun:      p.NoRun,
		PirateSafe: p.PirateSafe,
		Live:       p.Live,
		LiveFS:     p.LiveFS,
		LiveProc:   p.LiveProc,
		LiveNet:    p.LiveNet,
		PollMS:     p.PollMS,
	})
	if err != nil {
		return err
	}
	if resp.Report != nil {
		report.RenderHuman(os.Stdout, *resp.Report)
	}
	return nil
}

// executeRun is the end-to-end session lifecycle: load
// configuration, resolve trust tier and prefix, build the policy engine
// and path mapper, bootstrap the child, drive the supervisor loop to
// completion, and persist the resulting report and trust entry.
//
// Used directly by the `run` command and indirectly as a daemon.RunFunc.
func executeRun(ctx context.Context, p runParams) (types.SessionReport, error) {
	cfg, err := config.Load(wwpaths.ConfigPath())
	if err != nil {
		return types.SessionReport{}, err
	}

	prefixRoot := p.Prefix
	if prefixRoot == "" {
		if home, err := os.UserHomeDir(); err == nil {
			prefixRoot = home + "/.wine"
		}
	}

	tier := cfg.Tier()
	trustStore, err := trust.LoadStore(wwpaths.TrustStorePath())
	if err != nil {
		return types.SessionReport{}, err
	}
	execHash, hashErr := trust.HashExecutable(p.Executable)
	if hashErr == nil {
		if entry, ok := trustStore.Get(execHash); ok {
			tier = entry.Tier
		}
	}
	if p.Trust != "" {
		parsed, ok := types.ParseTrustTier(p.Trust)
		if !ok {
			return types.SessionReport{}, fmt.Errorf("invalid trust tier %q", p.Trust)
		}
		tier = parsed
	}
	if cfg.PirateSafe || p.PirateSafe {
		tier = downgradeTier(tier)
	}
	if p.PollMS == 0 {
		p.PollMS = cfg.PollMS
	}

	mapperRules := cfg.PathMapperRules(wwpaths.DataDir())
	if envRules := config.ParseRedirectMapEnv(os.Getenv("WINEWARDEN_REDIRECT_MAP")); len(envRules) > 0 {
		mapperRules = envRules
	}
	mapper := pathmap.New(mapperRules)

	startedAt := time.Now()
	sess := session.New(p.Executable, p.Args, tier, startedAt, mapper)

	eng := policy.New(cfg.SacredZones(), prefixRoot, tier, cfg.NetworkConfig(), cfg.ProcessConfig())
	sess.Profile = eng.Profile
	sess.ProcessTracker = eng.Tracker

	logger := logging.WithSession(logging.Default(), sess.ID)

	if p.NoRun {
		sess.End(startedAt)
		rep := sess.Finalize(trust.Score(tier, *sess.Profile, trust.DefaultWeights()))
		return rep, session.SaveReport(wwpaths.ReportsDir(), rep)
	}

	if err := runSupervised(ctx, p, prefixRoot, tier, sess, eng, mapper, logger); err != nil {
		return types.SessionReport{}, err
	}

	if err := replayEventLog(p.EventLog, sess, eng); err != nil {
		logger.Warn("event log replay failed", "err", err)
	}

	sess.End(time.Now())
	score := trust.Score(tier, *sess.Profile, trust.DefaultWeights())
	rep := sess.Finalize(score)

	if hashErr == nil {
		trustStore.RecordRun(p.Executable, execHash, score.RecommendedTier, rep.Metadata.EndedAt.UTC())
		if err := trustStore.Save(); err != nil && logger != nil {
			logger.Warn("failed to persist trust store", "err", err)
		}
	}

	if err := session.SaveReport(wwpaths.ReportsDir(), rep); err != nil {
		return rep, err
	}
	return rep, nil
}

// downgradeTier steps a tier one level stricter, the pirate-safe
// adjustment for untrusted releases.
func downgradeTier(tier types.TrustTier) types.TrustTier {
	switch tier {
	case types.TrustGreen:
		return types.TrustYellow
	default:
		return types.TrustRed
	}
}

// replayEventLog drains trailing events from the optional JSON-lines
// replay log through the same policy pipeline live events use.
func replayEventLog(path string, sess *session.Session, eng *policy.Engine) error {
	var source watch.EventSource = watch.NoopSource{}
	if path != "" {
		jsonl, err := watch.OpenJSONL(path)
		if err != nil {
			return err
		}
		source = jsonl
	}
	defer source.Close()

	for {
		attempt, ok, err := source.NextEvent()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		var decision types.PolicyDecision
		switch {
		case attempt.Target.Kind == types.TargetNetwork:
			decision = eng.EvaluateNetwork(attempt.Target.Network)
		case attempt.Target.Kind == types.TargetPath && attempt.Kind == types.AccessExecute:
			// Recorded process-spawn events carry the process name in the
			// path slot, mirroring the live process watcher.
			decision = eng.EvaluateProcess(attempt.Target.Path)
		case attempt.Target.Kind == types.TargetPath:
			decision = eng.EvaluatePath(attempt.Target.Path, attempt.Kind == types.AccessWrite)
		case attempt.Target.Kind == types.TargetDevice, attempt.Target.Kind == types.TargetSocket:
			decision = eng.EvaluateDeviceOrSocket(attempt.Target.Name)
		default:
			decision = types.PolicyDecision{Action: types.ActionAllow}
		}
		sess.RecordEvent(attempt, decision)
	}
}

// runSupervised starts the bootstrap child,
// receives its notify descriptor, builds the supervisor loop with whatever
// auxiliary watchers were requested, and drives it until the child exits.
func runSupervised(ctx context.Context, p runParams, prefixRoot string, tier types.TrustTier, sess *session.Session, eng *policy.Engine, mapper *pathmap.PathMapper, logger *slog.Logger) error {
	handle, conn, err := bootstrap.StartChild(bootstrap.Params{
		Executable: p.Executable,
		Args:       p.Args,
		PrefixRoot: prefixRoot,
		Tier:       tier,
		Rules:      bootstrap.RulesFromMapper(mapper),
	})
	if err != nil {
		return err
	}
	defer conn.Close()

	notifyFile, err := bootstrap.ReceiveNotifyFD(conn)
	if err != nil {
		if setupErr := handle.WaitSetup(); setupErr != nil {
			handle.Cmd.Wait()
			return fmt.Errorf("child bootstrap failed: %w", setupErr)
		}
		handle.Cmd.Wait()
		return err
	}
	defer notifyFile.Close()

	if err := handle.WaitSetup(); err != nil {
		handle.Cmd.Wait()
		return fmt.Errorf("child bootstrap failed: %w", err)
	}

	handler := supervisor.NewHandler(eng, mapper, sess.CopyOnWrite, sess.RecordEvent, logger)

	var watchers []watch.Drainer
	live := p.Live
	if p.LiveFS || live {
		if fw, err := watch.NewFSWatcher([]string{prefixRoot}); err == nil {
			watchers = append(watchers, fw)
		}
	}
	if p.LiveProc || live {
		watchers = append(watchers, watch.NewProcWatcher(handle.Cmd.Process.Pid))
	}
	if p.LiveNet || live {
		watchers = append(watchers, watch.NewNetWatcher(handle.Cmd.Process.Pid))
	}
	defer func() {
		for _, w := range watchers {
			w.Close()
		}
	}()

	loop := &supervisor.Loop{
		NotifyFD:       int(notifyFile.Fd()),
		PID:            handle.Cmd.Process.Pid,
		Handler:        handler,
		Watchers:       watchers,
		PollIntervalMS: p.PollMS,
		LiveMonitoring: live || p.LiveFS || p.LiveProc || p.LiveNet,
		Logger:         logger,
	}

	return loop.Run(ctx)
}
