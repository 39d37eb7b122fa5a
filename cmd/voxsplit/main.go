// Command voxsplit runs the self/other speaker diarization pipeline.
//
// With -enroll it computes and saves the speaker profile from an enrollment
// recording. Without it, it replays the WAV file given by -input through the
// full pipeline — classification, segmentation, transcription, alignment —
// and persists the attributed segments. Live device capture is provided by
// an external recorder writing WAV files; this binary consumes them.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/kymlab/voxsplit/internal/config"
	"github.com/kymlab/voxsplit/internal/health"
	"github.com/kymlab/voxsplit/internal/observe"
	"github.com/kymlab/voxsplit/internal/profile"
	"github.com/kymlab/voxsplit/internal/session"
	"github.com/kymlab/voxsplit/internal/store/postgres"
	"github.com/kymlab/voxsplit/pkg/audio/capture"
	"github.com/kymlab/voxsplit/pkg/audio/capture/wavfile"
	"github.com/kymlab/voxsplit/pkg/provider/features"
	"github.com/kymlab/voxsplit/pkg/provider/features/exthttp"
	"github.com/kymlab/voxsplit/pkg/provider/stt"
	sttopenai "github.com/kymlab/voxsplit/pkg/provider/stt/openai"
	"github.com/kymlab/voxsplit/pkg/provider/stt/whisper"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	enrollPath := flag.String("enroll", "", "enrollment WAV file; compute and save the speaker profile, then exit")
	inputPath := flag.String("input", "", "session WAV file to diarize")
	realtime := flag.Bool("realtime", false, "pace replay at capture speed instead of as fast as possible")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "voxsplit: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "voxsplit: %v\n", err)
		}
		return 1
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	extractor, err := exthttp.New(cfg.Extractor.BaseURL, cfg.Extractor.Dimensions,
		exthttp.WithMinDuration(cfg.Diarize.MinBlockDuration()),
	)
	if err != nil {
		slog.Error("failed to create feature extractor", "err", err)
		return 1
	}

	if *enrollPath != "" {
		if err := enroll(ctx, cfg, extractor, *enrollPath); err != nil {
			slog.Error("enrollment failed", "err", err)
			return 1
		}
		return 0
	}

	if *inputPath == "" {
		fmt.Fprintln(os.Stderr, "voxsplit: -input is required (or use -enroll to create a profile)")
		return 1
	}
	if cfg.Storage.PostgresDSN == "" {
		fmt.Fprintln(os.Stderr, "voxsplit: storage.postgres_dsn is required to run a session")
		return 1
	}

	prof, err := profile.Load(cfg.Profile.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "voxsplit: profile %q not found — run with -enroll <recording.wav> first\n", cfg.Profile.Path)
		} else {
			slog.Error("failed to load profile", "err", err)
		}
		return 1
	}
	if err := prof.CheckDimensions(extractor.Dimensions()); err != nil {
		slog.Error("profile is incompatible with the configured extractor", "err", err)
		return 1
	}

	shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "voxsplit"})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	sink, err := postgres.New(ctx, cfg.Storage.PostgresDSN, cfg.Extractor.Dimensions)
	if err != nil {
		slog.Error("failed to connect to the persistence sink", "err", err)
		return 1
	}
	defer sink.Close()

	transcriber, err := newTranscriber(cfg.Transcriber)
	if err != nil {
		slog.Error("failed to create transcriber", "err", err)
		return 1
	}

	runner, err := session.New(
		session.Config{
			SampleRate:        cfg.Audio.SampleRate,
			ActivityThreshold: cfg.Diarize.ActivityThreshold,
		},
		prof,
		cfg.Diarize.SimilarityThreshold,
		extractor,
		transcriber,
		sink,
	)
	if err != nil {
		slog.Error("failed to initialise session runner", "err", err)
		return 1
	}

	var wavOpts []wavfile.Option
	if *realtime {
		wavOpts = append(wavOpts, wavfile.WithRealtime())
	}
	source, err := wavfile.New(*inputPath, wavOpts...)
	if err != nil {
		slog.Error("failed to open capture source", "err", err)
		return 1
	}

	slog.Info("voxsplit starting",
		"input", *inputPath,
		"profile", cfg.Profile.Path,
		"similarity_threshold", cfg.Diarize.SimilarityThreshold,
		"transcriber", cfg.Transcriber.Name,
	)

	stream, err := source.Start(ctx, capture.Config{
		SampleRate:    cfg.Audio.SampleRate,
		BlockDuration: cfg.Audio.BlockDuration(),
	})
	if err != nil {
		slog.Error("failed to start capture", "err", err)
		return 1
	}

	// The observability listener, when configured, runs alongside the
	// session and is stopped once the session concludes.
	srvCtx, stopSrv := context.WithCancel(ctx)
	defer stopSrv()

	g, gctx := errgroup.WithContext(srvCtx)
	if cfg.Server.ListenAddr != "" {
		checker := health.Checker{Name: "database", Check: sink.Ping}
		srv := observe.NewServer(cfg.Server.ListenAddr, health.New(checker))
		g.Go(func() error { return srv.Run(gctx) })
	}

	var outcome *session.Outcome
	g.Go(func() error {
		defer stopSrv()
		var err error
		outcome, err = runner.Run(gctx, stream)
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("session failed", "err", err)
		return 1
	}

	report(outcome)
	return 0
}

// enroll computes the speaker profile from a complete recording and saves it
// to the configured JSON path, plus the database when a DSN is configured.
func enroll(ctx context.Context, cfg *config.Config, extractor features.Extractor, path string) error {
	samples, rate, err := wavfile.ReadMono(path)
	if err != nil {
		return err
	}
	if rate != cfg.Audio.SampleRate {
		return fmt.Errorf("enrollment recording is %d Hz but audio.sample_rate is %d", rate, cfg.Audio.SampleRate)
	}

	prof, err := profile.Enroll(ctx, extractor, samples, rate)
	if err != nil {
		return err
	}
	if err := profile.Save(prof, cfg.Profile.Path); err != nil {
		return err
	}
	slog.Info("profile saved", "path", cfg.Profile.Path, "dimensions", len(prof.Vector))

	if cfg.Storage.PostgresDSN != "" {
		sink, err := postgres.New(ctx, cfg.Storage.PostgresDSN, cfg.Extractor.Dimensions)
		if err != nil {
			return err
		}
		defer sink.Close()
		if err := sink.SaveProfile(ctx, cfg.Profile.Name, prof.Vector); err != nil {
			return err
		}
		slog.Info("profile stored in database", "name", cfg.Profile.Name)
	}
	return nil
}

// newTranscriber builds the configured transcription backend.
func newTranscriber(cfg config.TranscriberConfig) (stt.Provider, error) {
	switch cfg.Name {
	case "whisper":
		var opts []whisper.Option
		if cfg.Model != "" {
			opts = append(opts, whisper.WithModel(cfg.Model))
		}
		if cfg.Language != "" {
			opts = append(opts, whisper.WithLanguage(cfg.Language))
		}
		return whisper.New(cfg.BaseURL, opts...)
	case "openai":
		var opts []sttopenai.Option
		if cfg.BaseURL != "" {
			opts = append(opts, sttopenai.WithBaseURL(cfg.BaseURL))
		}
		if cfg.Language != "" {
			opts = append(opts, sttopenai.WithLanguage(cfg.Language))
		}
		return sttopenai.New(cfg.APIKey, cfg.Model, opts...)
	default:
		return nil, fmt.Errorf("unknown transcriber %q", cfg.Name)
	}
}

// report summarises the session outcome for the operator.
func report(out *session.Outcome) {
	if out == nil {
		return
	}
	switch out.Status {
	case session.StatusNoSegments:
		fmt.Println("no speech classified — nothing to persist")
	case session.StatusNoTranscript:
		fmt.Println("no words recognised — segments were not persisted")
	case session.StatusStored:
		fmt.Printf("session %d stored: %d segments (%d persisted, %d failed)\n",
			out.SessionID, len(out.Attributions), out.Persisted, out.Failed)
		for _, att := range out.Attributions {
			fmt.Printf("  [%s ~ %s] %-5s (sim:%.3f) %s\n",
				postgres.FormatClock(att.Start),
				postgres.FormatClock(att.End),
				att.Label,
				att.Similarity,
				att.Text,
			)
		}
	}
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
