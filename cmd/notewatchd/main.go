package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/arclabs561/notestream/internal/config"
	"github.com/arclabs561/notestream/internal/logging"
	"github.com/arclabs561/notestream/internal/note"
	"github.com/arclabs561/notestream/internal/preprocess"
	"github.com/arclabs561/notestream/internal/session"
)

// #region main

func main() {
	configPath := flag.String("config", "", "config file (default ~/.notestream/config.yaml)")
	input := flag.String("input", "", "notes file to watch (overrides config)")
	label := flag.String("label", "", "session label (overrides config)")
	once := flag.Bool("once", false, "run a single aggregation pass and exit")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *input != "" {
		cfg.Watch.Path = *input
	}
	if *label != "" {
		cfg.Watch.SessionLabel = *label
	}
	if cfg.Watch.Path == "" {
		fmt.Fprintln(os.Stderr, "usage: notewatchd --input notes.jsonl [--config path] [--label name] [--once]")
		fmt.Fprintln(os.Stderr, "       (or set watch.path in the config file)")
		os.Exit(2)
	}

	log := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Pretty: cfg.Logging.Pretty,
	})

	store, err := session.NewStore(cfg.Session.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("db", cfg.Session.DBPath).Msg("open session store")
	}
	defer store.Close()

	sess, err := store.BeginSession(cfg.Watch.SessionLabel, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("begin session")
	}

	mgr := preprocess.NewManager(cfg.ToPreprocessConfig(), logging.Component(log, "preprocess"))
	mgr.OnPass = func(rec preprocess.PassRecord) {
		if err := store.RecordPass(sess.ID, rec); err != nil {
			log.Error().Err(err).Msg("record pass")
		}
	}

	d := &daemon{
		log:   logging.Component(log, "watch"),
		cfg:   cfg,
		store: store,
		sess:  sess,
		mgr:   mgr,
	}

	log.Info().
		Str("path", cfg.Watch.Path).
		Str("db", cfg.Session.DBPath).
		Str("session", sess.ID).
		Msg("notewatchd ready")

	d.refresh()

	if *once {
		mgr.Wait()
		return
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := cron.New()
	if _, err := c.AddFunc(cfg.Watch.Cron, d.kickPass); err != nil {
		log.Fatal().Err(err).Str("spec", cfg.Watch.Cron).Msg("bad cron spec")
	}
	c.Start()

	watchErr := make(chan error, 1)
	go func() { watchErr <- d.watch(sigCtx) }()

	select {
	case <-sigCtx.Done():
	case err := <-watchErr:
		if err != nil {
			log.Error().Err(err).Msg("watcher stopped")
		}
	}

	log.Info().Msg("shutting down")
	<-c.Stop().Done()
	mgr.Wait()
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFromPath(path)
}

// #endregion main

// #region daemon

type daemon struct {
	log   zerolog.Logger
	cfg   *config.Config
	store *session.Store
	sess  session.SessionRecord
	mgr   *preprocess.Manager
}

// refresh reloads the note stream and runs one adaptive aggregation.
func (d *daemon) refresh() {
	notes, skipped, err := note.Load(d.cfg.Watch.Path)
	if err != nil {
		d.log.Error().Err(err).Msg("reload notes")
		return
	}

	res := d.mgr.ProcessNotes(notes)

	if err := d.store.SetNoteCount(d.sess.ID, len(notes)); err != nil {
		d.log.Error().Err(err).Msg("update note count")
	}

	d.log.Info().
		Int("notes", len(notes)).
		Int("skipped", skipped).
		Str("latency", res.Latency).
		Str("activity", string(res.Activity)).
		Float64("coherence", res.Aggregated.Coherence).
		Msg("stream aggregated")
}

// kickPass keeps the snapshot warm between file events. Runs on the cron
// schedule; the manager skips it under high activity or a pass in flight.
func (d *daemon) kickPass() {
	notes, _, err := note.Load(d.cfg.Watch.Path)
	if err != nil {
		d.log.Error().Err(err).Msg("reload notes")
		return
	}
	if d.mgr.PreprocessInBackground(notes) {
		d.log.Debug().Int("notes", len(notes)).Msg("background pass kicked")
	}
}

// watch follows the note file until the context ends. Rapid appends are
// coalesced, so one burst of capture output triggers one refresh.
func (d *daemon) watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer w.Close()

	// Watch the directory: capture tools replace the file atomically, and
	// a rename swaps the inode out from under a file-level watch.
	dir := filepath.Dir(d.cfg.Watch.Path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	debounce := time.Duration(d.cfg.Watch.DebounceMs) * time.Millisecond
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(d.cfg.Watch.Path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(debounce)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			d.log.Error().Err(err).Msg("watcher error")

		case <-timer.C:
			d.refresh()
		}
	}
}

// #endregion daemon
