package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"strings"

	"github.com/mentorloop/mentormatch/internal/ai"
	"github.com/mentorloop/mentormatch/internal/ai/gemini"
	"github.com/mentorloop/mentormatch/internal/assignment"
	"github.com/mentorloop/mentormatch/internal/logger"
	"github.com/mentorloop/mentormatch/internal/matchpool"
	"github.com/mentorloop/mentormatch/internal/overrides"
	"github.com/mentorloop/mentormatch/internal/roster"
	"github.com/mentorloop/mentormatch/internal/scoring"
	"github.com/mentorloop/mentormatch/internal/secrets"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	PromptAccept        = "Accept and export"
	PromptReport        = "Report by mentor"
	PromptForceMatch    = "Force a match"
	PromptForceNonMatch = "Force a non-match"
	PromptExplain       = "Explain a pairing"
	PromptRecompute     = "Recompute scores"
	PromptQuit          = "Quit"
	PromptBack          = "back"

	defaultStorePath  = "mentormatch-overrides.db"
	defaultExportFile = "mentormatch-matches.json"
)

var errExit = errors.New("exit requested")

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the mentormatch main command",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("auto-approve", "y", false, "export the recommended assignment without the interactive prompt")
	runCmd.Flags().StringP("export-file", "o", "", "file for the exported assignment. Default is mentormatch-matches.json.")

	viper.BindPFlag("export.file", runCmd.Flags().Lookup("export-file"))
}

// session carries everything the interactive loop needs between actions.
type session struct {
	ctx    context.Context
	logger *zap.Logger
	config *Config

	scorer *scoring.Client
	store  *overrides.Store
	state  *overrides.State

	mentors     []*roster.Mentor
	mentees     []*roster.Mentee
	mentorsByID map[string]*roster.Mentor
	menteesByID map[string]*roster.Mentee

	results *scoring.Results
	pool    []*matchpool.PairScore
	engine  *assignment.Engine

	explainer ai.Explainer
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the mentormatch", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	if config == nil {
		logger.Fatal("config is required")
	}

	if config.Data == nil || config.Data.MentorsApplication == "" || config.Data.MenteesApplication == "" {
		logger.Fatal("application CSV paths are required under data.mentors-application and data.mentees-application")
	}

	if config.Scorer == nil || config.Scorer.URL == "" {
		logger.Fatal("scoring service url is required under scorer.url")
	}

	mentorRows, err := roster.LoadPopulation(config.Data.MentorsApplication, config.Data.MentorsInterview, roster.MentorIdentityColumn, logger)
	if err != nil {
		logger.Fatal("loading mentors", zap.Error(err))
	}

	menteeRows, err := roster.LoadPopulation(config.Data.MenteesApplication, config.Data.MenteesInterview, roster.MenteeIdentityColumn, logger)
	if err != nil {
		logger.Fatal("loading mentees", zap.Error(err))
	}

	mentors := roster.BuildMentors(mentorRows, logger)
	mentees := roster.BuildMentees(menteeRows, logger)

	if len(mentors) == 0 || len(mentees) == 0 {
		logger.Fatal("nothing to match",
			zap.Int("mentors", len(mentors)),
			zap.Int("mentees", len(mentees)),
		)
	}

	logger.Info("built person records",
		zap.Int("mentors", len(mentors)),
		zap.Int("mentees", len(mentees)),
	)

	storePath := defaultStorePath
	if config.Overrides != nil && config.Overrides.Store != "" {
		storePath = config.Overrides.Store
	}

	store, err := overrides.OpenStore(storePath)
	if err != nil {
		logger.Fatal("opening the override store", zap.Error(err))
	}
	defer store.Close()

	state, err := store.Load()
	if err != nil {
		logger.Fatal("loading persisted overrides", zap.Error(err))
	}

	logger.Info("loaded persisted overrides",
		zap.String("store", storePath),
		zap.Int("manual_matches", len(state.Matches())),
		zap.Int("manual_non_matches", len(state.NonMatches())),
	)

	scorer := scoring.New(ctx, logger, config.Scorer.URL)
	if err := scorer.Health(); err != nil {
		logger.Fatal("scoring service is not reachable",
			zap.Error(err),
			zap.String("url", config.Scorer.URL),
		)
	}

	s := &session{
		ctx:         ctx,
		logger:      logger,
		config:      config,
		scorer:      scorer,
		store:       store,
		state:       state,
		mentors:     mentors,
		mentees:     mentees,
		mentorsByID: mentorIndex(mentors),
		menteesByID: menteeIndex(mentees),
		engine:      assignment.NewEngine(logger),
	}

	s.explainer, err = prepareExplainer(ctx, config.AI, logger)
	if err != nil {
		logger.Warn("pairing explanations disabled", zap.Error(err))
	}

	if err := s.refreshScores(); err != nil {
		logger.Fatal("computing matching scores", zap.Error(err))
	}

	if len(s.pool) == 0 {
		logger.Info("exiting", zap.String("reason", "scoring service returned no candidate pairs"))
		return
	}

	if cmd.Flag("auto-approve").Value.String() == "true" {
		keys := s.engine.Compute(s.pool, s.state)
		s.report(keys)
		if err := s.export(keys); err != nil {
			logger.Fatal("exporting the assignment", zap.Error(err))
		}
		return
	}

	for {
		keys := s.engine.Compute(s.pool, s.state)
		s.report(keys)

		prompt := promptui.Select{
			Label: "Proceed?",
			Items: s.promptItems(),
		}

		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := s.handleAction(action, keys); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func (s *session) promptItems() []string {
	items := []string{PromptAccept, PromptReport, PromptForceMatch, PromptForceNonMatch}
	if s.explainer != nil {
		items = append(items, PromptExplain)
	}
	return append(items, PromptRecompute, PromptQuit)
}

func (s *session) handleAction(action string, keys []string) error {
	switch action {
	case PromptAccept:
		if err := s.export(keys); err != nil {
			return fmt.Errorf("exporting the assignment: %w", err)
		}
		return errExit
	case PromptReport:
		pretty, _ := json.MarshalIndent(s.reportByMentor(keys), "", "  ")
		s.logger.Info(string(pretty), zap.Int("pairs count", len(keys)))
		return nil
	case PromptForceMatch:
		return s.togglePair(s.state.ToggleMatch)
	case PromptForceNonMatch:
		return s.togglePair(s.state.ToggleNonMatch)
	case PromptExplain:
		return s.explain(keys)
	case PromptRecompute:
		return s.refreshScores()
	case PromptQuit:
		s.logger.Info("exiting", zap.String("reason", "got quit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

// refreshScores asks the scoring service for a fresh score set, forwarding the
// current overrides, and rebuilds the pool from the response.
func (s *session) refreshScores() error {
	req := &scoring.Request{
		ManualMatches:    s.state.Matches(),
		ManualNonMatches: s.state.NonMatches(),
	}

	if s.config.Scorer != nil {
		req.ImportanceModifiers = s.config.Scorer.Importance
		req.AgeMaxDifference = s.config.Scorer.AgeMaxDifference
		req.GeographicMaxDistance = s.config.Scorer.GeographicMaxDistance
	}

	results, err := s.scorer.Compute(req)
	if err != nil {
		return err
	}

	s.results = results
	s.rebuildPool()

	s.logger.Info("recomputed matching scores",
		zap.Int("final_matches", len(results.FinalMatches)),
		zap.Int("pool_size", len(s.pool)),
	)

	return nil
}

// rebuildPool rematerializes the pool from the last score set and the current
// override state. Cheap, so every override mutation triggers it.
func (s *session) rebuildPool() {
	s.pool = matchpool.Build(s.mentors, s.mentees, s.results, s.state, s.logger)
	s.state.MarkImmutable(matchpool.ImmutableKeys(s.pool))
}

// togglePair lets the user pick a pair from the pool and flips it through the
// given transition. Rejected transitions are reported and leave everything
// unchanged; successful ones are persisted immediately.
func (s *session) togglePair(toggle func(string) (overrides.Status, error)) error {
	items := make([]string, 0, len(s.pool)+1)
	for _, pair := range s.pool {
		items = append(items, s.pairLabel(pair.Key(), pair))
	}

	pairPrompt := promptui.Select{
		Label: "Choose a pair and press ENTER",
		Items: append(items, PromptBack),
	}

	_, selected, err := pairPrompt.Run()
	if err != nil {
		return err
	}

	if selected == PromptBack {
		return nil
	}

	key := strings.Split(selected, " ")[0]

	status, err := toggle(key)
	if err != nil {
		s.logger.Warn("override rejected", zap.String("pair", key), zap.Error(err))
		return nil
	}

	if err := s.store.Save(s.state); err != nil {
		return fmt.Errorf("persisting overrides: %w", err)
	}

	s.rebuildPool()

	s.logger.Info("override applied",
		zap.String("pair", key),
		zap.String("status", string(status)),
	)

	return nil
}

func (s *session) explain(keys []string) error {
	items := make([]string, 0, len(keys)+1)
	for _, key := range keys {
		items = append(items, s.pairLabel(key, matchpool.Find(s.pool, key)))
	}

	pairPrompt := promptui.Select{
		Label: "Choose a pairing to explain and press ENTER",
		Items: append(items, PromptBack),
	}

	_, selected, err := pairPrompt.Run()
	if err != nil {
		return err
	}

	if selected == PromptBack {
		return nil
	}

	key := strings.Split(selected, " ")[0]

	mentorID, menteeID, err := overrides.SplitKey(key)
	if err != nil {
		return err
	}

	mentor := s.mentorsByID[mentorID]
	mentee := s.menteesByID[menteeID]
	pair := matchpool.Find(s.pool, key)
	if mentor == nil || mentee == nil || pair == nil {
		s.logger.Warn("pair has no score data to explain", zap.String("pair", key))
		return nil
	}

	explanation, err := s.explainer.Explain(s.ctx, mentor, mentee, pair)
	if err != nil {
		s.logger.Warn("explanation failed", zap.String("pair", key), zap.Error(err))
		return nil
	}

	s.logger.Info(explanation.Summary, zap.String("pair", key))
	return nil
}

// report prints the current recommended assignment.
func (s *session) report(keys []string) {
	s.logger.Info("current recommended assignment", zap.Int("pairs", len(keys)))

	for _, key := range keys {
		pair := matchpool.Find(s.pool, key)
		s.logger.Info(s.pairLabel(key, pair),
			zap.String("status", string(s.state.Status(key))),
		)
	}
}

type mentorReport struct {
	Mentor   string            `json:"mentor"`
	Mentee   string            `json:"mentee"`
	Combined string            `json:"combined"`
	Scores   map[string]string `json:"scores,omitempty"`
	Manual   bool              `json:"manual"`
}

func (s *session) reportByMentor(keys []string) map[string]mentorReport {
	report := make(map[string]mentorReport, len(keys))

	for _, key := range keys {
		mentorID, menteeID, err := overrides.SplitKey(key)
		if err != nil {
			continue
		}

		entry := mentorReport{
			Mentor: s.mentorName(mentorID),
			Mentee: s.menteeName(menteeID),
			Manual: s.state.Status(key) == overrides.StatusManualMatch,
		}

		if pair := matchpool.Find(s.pool, key); pair != nil {
			entry.Combined = formatCombined(pair.Combined)
			entry.Scores = make(map[string]string, len(pair.Categories))
			for category, score := range pair.Categories {
				entry.Scores[category] = formatCombined(score)
			}
		}

		report[mentorID] = entry
	}

	return report
}

type exportedMatch struct {
	Pair       string            `json:"pair"`
	MentorID   string            `json:"mentor_id"`
	MentorName string            `json:"mentor_name"`
	MenteeID   string            `json:"mentee_id"`
	MenteeName string            `json:"mentee_name"`
	Combined   string            `json:"combined"`
	Categories map[string]string `json:"categories,omitempty"`
	Manual     bool              `json:"manual"`
}

// export writes the accepted assignment to the configured JSON file.
func (s *session) export(keys []string) error {
	matches := make([]exportedMatch, 0, len(keys))

	for _, key := range keys {
		mentorID, menteeID, err := overrides.SplitKey(key)
		if err != nil {
			continue
		}

		match := exportedMatch{
			Pair:       key,
			MentorID:   mentorID,
			MentorName: s.mentorName(mentorID),
			MenteeID:   menteeID,
			MenteeName: s.menteeName(menteeID),
			Manual:     s.state.Status(key) == overrides.StatusManualMatch,
		}

		if pair := matchpool.Find(s.pool, key); pair != nil {
			match.Combined = formatCombined(pair.Combined)
			match.Categories = make(map[string]string, len(pair.Categories))
			for category, score := range pair.Categories {
				match.Categories[category] = formatCombined(score)
			}
		}

		matches = append(matches, match)
	}

	data, err := json.MarshalIndent(matches, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal assignment: %w", err)
	}

	filename := defaultExportFile
	if configured := viper.GetString("export.file"); configured != "" {
		filename = configured
	}

	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("write assignment to %q: %w", filename, err)
	}

	s.logger.Info("exported the assignment",
		zap.String("filename", filename),
		zap.Int("pairs", len(matches)),
	)

	return nil
}

func (s *session) pairLabel(key string, pair *matchpool.PairScore) string {
	mentorID, menteeID, err := overrides.SplitKey(key)
	if err != nil {
		return key
	}

	combined := "manual"
	if pair != nil {
		combined = formatCombined(pair.Combined)
	}

	return fmt.Sprintf("%s %s / %s / %s",
		key, s.mentorName(mentorID), s.menteeName(menteeID), combined,
	)
}

func (s *session) mentorName(id string) string {
	if mentor, ok := s.mentorsByID[id]; ok {
		return mentor.Name
	}
	return "mentor " + id
}

func (s *session) menteeName(id string) string {
	if mentee, ok := s.menteesByID[id]; ok {
		return mentee.Name
	}
	return "mentee " + id
}

func mentorIndex(mentors []*roster.Mentor) map[string]*roster.Mentor {
	index := make(map[string]*roster.Mentor, len(mentors))
	for _, mentor := range mentors {
		index[mentor.ID] = mentor
	}
	return index
}

func menteeIndex(mentees []*roster.Mentee) map[string]*roster.Mentee {
	index := make(map[string]*roster.Mentee, len(mentees))
	for _, mentee := range mentees {
		index[mentee.ID] = mentee
	}
	return index
}

// formatCombined renders scores for humans; infinities mean forced decisions.
func formatCombined(score float64) string {
	if math.IsInf(score, 1) {
		return "+Inf"
	}
	if math.IsInf(score, -1) {
		return "-Inf"
	}
	return fmt.Sprintf("%.2f", score)
}

func prepareExplainer(ctx context.Context, cfg *AIConfig, baseLogger *zap.Logger) (ai.Explainer, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	if cfg.Gemini == nil {
		return nil, fmt.Errorf("gemini configuration is required when ai is enabled")
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: cfg.Gemini.APIKeyFile,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	genLogger := logger.WithCommonFields(baseLogger, "gemini", cfg.Gemini.Model).With(
		zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries),
	)

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, genLogger)
	if err != nil {
		return nil, err
	}

	return gemini.NewExplainer(generator, genLogger, cfg.Gemini.MaxLogLength), nil
}
