package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jwebster45206/story-grid/internal/autosave"
	"github.com/jwebster45206/story-grid/internal/config"
	"github.com/jwebster45206/story-grid/internal/logger"
	"github.com/jwebster45206/story-grid/internal/storage"
	"github.com/jwebster45206/story-grid/pkg/grid"
	"github.com/jwebster45206/story-grid/pkg/script"
	"github.com/jwebster45206/story-grid/pkg/survey"
	"github.com/spf13/cobra"
)

type consoleFlags struct {
	respondent string
	importPath string
	needs      string
	apiBaseURL string
	scratch    bool
}

func main() {
	flags := &consoleFlags{}
	rootCmd := &cobra.Command{
		Use:   "console",
		Short: "Terminal editor for the learning route map survey",
		Long: `Edit the story grids of a survey in the terminal. Drafts are autosaved
to DATA_DIR, or to a story-grid API when --api is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(flags)
		},
		SilenceUsage: true,
	}
	rootCmd.Flags().StringVarP(&flags.respondent, "respondent", "r", "", "resume the draft of this respondent id")
	rootCmd.Flags().StringVarP(&flags.importPath, "import", "i", "", "load a downloaded survey file")
	rootCmd.Flags().StringVar(&flags.needs, "needs", "", "the unmet need told in the closing story")
	rootCmd.Flags().StringVar(&flags.apiBaseURL, "api", os.Getenv("API_BASE_URL"), "story-grid API base URL")
	rootCmd.Flags().BoolVar(&flags.scratch, "scratch", false, "add a scratch grid on DEFAULT_SCENARIO")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(flags *consoleFlags) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// The terminal belongs to the editor, so logs go to a file.
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	logFile, err := os.OpenFile(filepath.Join(cfg.DataDir, "console.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() {
		_ = logFile.Close()
	}()
	log := logger.SetupWriter(cfg, logFile)

	resolver := script.NewDefaultResolver(nil)
	scripts, err := storage.LoadScripts(cfg.DataDir, log)
	if err != nil {
		return fmt.Errorf("failed to load scripts: %w", err)
	}
	for _, s := range scripts {
		resolver.Add(s)
	}

	var (
		store  storage.DraftStore
		client = &http.Client{Timeout: 30 * time.Second}
	)
	if flags.apiBaseURL != "" {
		if !testConnection(client, flags.apiBaseURL) {
			return fmt.Errorf("could not connect to API at %s; please ensure the API is running", flags.apiBaseURL)
		}
		store = newAPIStore(client, flags.apiBaseURL)
	} else {
		store = storage.NewFileStore(cfg.DataDir, log)
	}
	defer func() {
		_ = store.Close()
	}()

	formOpts := []survey.FormOption{survey.WithLogger(log), survey.WithResolver(resolver)}
	if flags.respondent != "" {
		if err := storage.ValidateRespondentID(flags.respondent); err != nil {
			return err
		}
		formOpts = append(formOpts, survey.WithRespondentID(flags.respondent))
	}
	form := survey.NewForm(formOpts...)
	defer form.Close()

	if err := loadInitial(form, store, flags); err != nil {
		return err
	}

	var scratch *grid.Grid
	if flags.scratch {
		scratch = grid.New(
			grid.WithScenario(cfg.DefaultScenario),
			grid.WithResolver(resolver),
			grid.WithLogger(log.With("field", "scratch")),
		)
	}

	log = logger.WithRespondent(log, form.RespondentID())

	var p *tea.Program
	saver := autosave.New(store,
		autosave.WithDelay(cfg.AutosaveDelay),
		autosave.WithLogger(log),
		autosave.OnSaved(func(doc survey.Document) {
			p.Send(draftSavedMsg{timestamp: doc.Timestamp})
		}),
		autosave.OnError(func(err error) {
			p.Send(draftErrorMsg{err: err})
		}),
	)
	defer saver.Close()
	form.OnChange(func(string) { saver.Schedule(form.Snapshot()) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var events chan SSEEvent
	if flags.apiBaseURL != "" {
		events = make(chan SSEEvent, 16)
		// The stream has no client timeout.
		go func() {
			defer close(events)
			if err := listenToSSE(ctx, &http.Client{}, flags.apiBaseURL, form.RespondentID(), events); err != nil && ctx.Err() == nil {
				log.Warn("Event stream ended", "error", err)
			}
		}()
	}

	ui := NewConsoleUI(form, scratch, saver, resolver, cfg.ExportDir, log, events)
	ui.needs = flags.needs

	p = tea.NewProgram(ui, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running program: %w", err)
	}
	return nil
}

// loadInitial fills the form from an imported file, or else from the stored
// draft of the requested respondent. Fields that fail to import are logged
// and left empty.
func loadInitial(form *survey.Form, store storage.DraftStore, flags *consoleFlags) error {
	var (
		doc survey.Document
		err error
	)
	switch {
	case flags.importPath != "":
		doc, err = storage.ReadExport(flags.importPath)
		if err != nil {
			return err
		}
	case flags.respondent != "":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		doc, err = store.LoadDraft(ctx, flags.respondent)
		if errors.Is(err, storage.ErrDraftNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load draft: %w", err)
		}
	default:
		return nil
	}

	if err := form.Load(doc); err != nil {
		fmt.Fprintf(os.Stderr, "Some fields could not be loaded:\n%v\n", err)
	}
	return nil
}
