package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/metaphizix/BetwayCombinations/internal/betway"
	"github.com/metaphizix/BetwayCombinations/internal/combin"
	"github.com/metaphizix/BetwayCombinations/internal/engine"
	"github.com/metaphizix/BetwayCombinations/internal/fixtures"
	"github.com/metaphizix/BetwayCombinations/internal/ledger"
	pkgconfig "github.com/metaphizix/BetwayCombinations/internal/pkg/config"
	"github.com/metaphizix/BetwayCombinations/internal/pkg/logging"
	"github.com/metaphizix/BetwayCombinations/internal/pkg/models"
	"github.com/metaphizix/BetwayCombinations/internal/pkg/notify"
	"github.com/metaphizix/BetwayCombinations/internal/pkg/storage"
	"github.com/metaphizix/BetwayCombinations/internal/retry"
	"github.com/metaphizix/BetwayCombinations/internal/selector"
)

const defaultConfigPath = "configs/production.yaml"

// Exit codes. Pre-placement refusals are distinguished from mid-run
// failures so wrapper scripts can tell "nothing happened" from "the
// ledger now matters".
const (
	exitOK                   = 0
	exitError                = 1
	exitInsufficientFixtures = 2
	exitMissingReference     = 3
	exitPlacementFailed      = 4
)

type cliArgs struct {
	configPath string
	matchCount int
	stake      float64
	yes        bool
}

func main() {
	if err := run(); err != nil {
		slog.Error("Combination run failed", "error", err)
		os.Exit(exitCodeFor(err))
	}
}

func exitCodeFor(err error) int {
	var insufficient *selector.InsufficientFixturesError
	var missingRef *selector.MissingReferenceError
	var fatal *engine.FatalError
	switch {
	case errors.As(err, &insufficient):
		return exitInsufficientFixtures
	case errors.As(err, &missingRef):
		return exitMissingReference
	case errors.As(err, &fatal):
		return exitPlacementFailed
	default:
		return exitError
	}
}

func run() error {
	args, err := parseArgs()
	if err != nil {
		return err
	}

	// .env is optional; credentials may come from the real environment.
	_ = godotenv.Load()

	appConfig, err := pkgconfig.Load(args.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if _, err := logging.SetupLogger(&appConfig.Logging, "combinations"); err != nil {
		slog.Warn("Failed to setup logging, continuing with default logger", "error", err)
	}

	appConfig.Betway.Username = os.Getenv("BETWAY_USERNAME")
	appConfig.Betway.Password = os.Getenv("BETWAY_PASSWORD")
	if appConfig.Betway.Username == "" || appConfig.Betway.Password == "" {
		return fmt.Errorf("BETWAY_USERNAME and BETWAY_PASSWORD must be set")
	}

	interactive := args.matchCount == 0
	if interactive {
		if err := promptRunParameters(os.Stdin, &args); err != nil {
			return err
		}
	}
	if args.matchCount < 1 || args.matchCount > combin.MaxN {
		return fmt.Errorf("match count must be between 1 and %d, got %d", combin.MaxN, args.matchCount)
	}
	if args.stake <= 0 {
		return fmt.Errorf("stake must be positive, got %v", args.stake)
	}

	totalSlips := intPow(3, args.matchCount)
	totalCost := float64(totalSlips) * args.stake
	slog.Info("Run parameters",
		"matches", args.matchCount, "stake", args.stake,
		"total_slips", totalSlips, "total_cost", fmt.Sprintf("%.2f", totalCost))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	setupSignalHandler(ctx, cancel)

	return placeAll(ctx, appConfig, args, interactive, totalSlips)
}

func placeAll(ctx context.Context, appConfig *pkgconfig.Config, args cliArgs, interactive bool, totalSlips int) error {
	browser, err := betway.NewBrowser(ctx, appConfig.Betway)
	if err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	defer browser.Close()

	if err := browser.Login(ctx); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	cache, err := fixtures.Build(ctx, betway.NewScanner(browser), appConfig.Selection.MaxPages)
	if err != nil {
		return fmt.Errorf("fixture scan failed: %w", err)
	}
	slog.Info("Fixture snapshot frozen", "fixtures", cache.Len())

	sel, err := selector.Select(cache.All(), args.matchCount, time.Now(), selector.Options{
		LeadTime: appConfig.Selection.LeadTime,
		MinGap:   appConfig.Selection.MinGap,
	})
	if err != nil {
		return err
	}
	if err := selector.ValidateReferences(sel); err != nil {
		return err
	}

	fmt.Println("\nSelected fixtures:")
	for i, f := range sel {
		fmt.Printf("  %d. %s  (kickoff %s)\n", i+1, f.Name(), f.Kickoff.Format("Mon 15:04"))
	}
	if interactive && !args.yes {
		if !confirm("Proceed with these fixtures?") {
			return fmt.Errorf("aborted by operator")
		}
	}

	lock, err := ledger.AcquireLock(appConfig.Ledger.Path + ".lock")
	if err != nil {
		return err
	}
	defer lock.Release()

	led, err := ledger.Open(appConfig.Ledger.Path, ledger.Header{
		RunID:       uuid.NewString(),
		MatchCount:  args.matchCount,
		Stake:       args.stake,
		Fingerprint: sel.Fingerprint(),
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	defer led.Close()
	runID := led.Header().RunID

	gen, err := combin.New(args.matchCount)
	if err != nil {
		return err
	}

	policy := retry.DefaultPolicy()
	if appConfig.Retry.BaseDelay > 0 {
		policy.BaseDelay = appConfig.Retry.BaseDelay
	}
	if appConfig.Retry.Multiplier > 0 {
		policy.Multiplier = appConfig.Retry.Multiplier
	}
	if appConfig.Retry.MaxAttempts > 0 {
		policy.MaxAttempts = appConfig.Retry.MaxAttempts
	}

	notifier := notify.NewTelegramNotifier(appConfig.Telegram.BotToken, appConfig.Telegram.ChatID)

	var audit *storage.PostgresAuditStorage
	if appConfig.Postgres.DSN != "" {
		audit, err = storage.NewPostgresAuditStorage(&appConfig.Postgres)
		if err != nil {
			// The ledger alone is enough to run safely.
			slog.Warn("Audit storage unavailable, continuing without it", "error", err)
		} else {
			defer audit.Close()
			if err := audit.RecordRun(ctx, runID, args.matchCount, args.stake, strings.Join(sel.Fingerprint(), "; "), time.Now().UTC()); err != nil {
				slog.Warn("Failed to record run in audit storage", "error", err)
			}
		}
	}

	eng, err := engine.New(betway.NewSession(browser), led, gen, sel, retry.New(policy), engine.Config{
		Stake:           args.stake,
		ResetInterval:   appConfig.Engine.ResetInterval,
		PacingBase:      appConfig.Engine.PacingBase,
		PacingJitterMin: appConfig.Engine.PacingJitterMin,
		PacingJitterMax: appConfig.Engine.PacingJitterMax,
	})
	if err != nil {
		return err
	}
	eng.WithObserver(&runObserver{runID: runID, total: totalSlips, audit: audit, notifier: notifier})

	notifier.RunStarted(runID, args.matchCount, totalSlips, led.ResumeIndex(), args.stake)

	if err := eng.Run(ctx); err != nil {
		var fatal *engine.FatalError
		if errors.As(err, &fatal) {
			if errors.Is(err, engine.ErrConfirmationAmbiguous) {
				comb, combErr := gen.At(fatal.SlipIndex)
				combStr := "?"
				if combErr == nil {
					combStr = comb.String()
				}
				notifier.AmbiguousConfirmation(runID, fatal.SlipIndex, combStr)
			} else {
				notifier.FatalFailure(runID, fatal.SlipIndex, fatal.Err)
			}
		}
		return err
	}

	notifier.RunCompleted(runID, totalSlips)
	slog.Info("All slips placed", "run_id", runID, "total", totalSlips)
	return nil
}

// runObserver mirrors committed ledger records to the audit storage and
// the operator chat. Both are best effort.
type runObserver struct {
	runID    string
	total    int
	audit    *storage.PostgresAuditStorage
	notifier *notify.TelegramNotifier
}

func (o *runObserver) SlipRecorded(ctx context.Context, rec models.ProgressRecord) {
	if o.audit != nil {
		if err := o.audit.RecordSlip(ctx, o.runID, rec); err != nil {
			slog.Warn("Failed to mirror slip to audit storage", "index", rec.Index, "error", err)
		}
	}
	if rec.Status == models.StatusSuccess {
		o.notifier.SlipPlaced(rec.Index, o.total, rec.Combination)
	}
}

func parseArgs() (cliArgs, error) {
	var args cliArgs

	defaultConfig := os.Getenv("CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = defaultConfigPath
	}

	flag.StringVar(&args.configPath, "config", defaultConfig, "Path to config file (can be set via CONFIG_PATH env var)")
	flag.BoolVar(&args.yes, "yes", false, "Skip interactive confirmation prompts")
	flag.Parse()

	// Positional form: <matchCount> <stakePerSlip>. Absent args switch to
	// interactive prompts.
	rest := flag.Args()
	switch len(rest) {
	case 0:
		return args, nil
	case 2:
		n, err := strconv.Atoi(rest[0])
		if err != nil {
			return args, fmt.Errorf("invalid match count %q: %w", rest[0], err)
		}
		stake, err := strconv.ParseFloat(rest[1], 64)
		if err != nil {
			return args, fmt.Errorf("invalid stake %q: %w", rest[1], err)
		}
		args.matchCount = n
		args.stake = stake
		return args, nil
	default:
		return args, fmt.Errorf("usage: combinations [-config path] [-yes] [matchCount stakePerSlip]")
	}
}

// promptRunParameters reads match count and stake interactively, gating
// each value behind its own confirmation so the operator sees the slip
// count before committing to a stake and the total cost before any
// browser work starts.
func promptRunParameters(r io.Reader, args *cliArgs) error {
	reader := bufio.NewReader(r)

	fmt.Print("Number of matches to combine: ")
	line, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read match count: %w", err)
	}
	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return fmt.Errorf("invalid match count: %w", err)
	}
	if n < 1 || n > combin.MaxN {
		return fmt.Errorf("match count must be between 1 and %d, got %d", combin.MaxN, n)
	}
	slips := intPow(3, n)
	if !confirmFrom(reader, fmt.Sprintf("%d matches produce %d slips. Continue?", n, slips)) {
		return fmt.Errorf("aborted by operator")
	}

	fmt.Print("Stake per slip: ")
	line, err = reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read stake: %w", err)
	}
	stake, err := strconv.ParseFloat(strings.TrimSpace(line), 64)
	if err != nil {
		return fmt.Errorf("invalid stake: %w", err)
	}
	if stake <= 0 {
		return fmt.Errorf("stake must be positive, got %v", stake)
	}
	if !confirmFrom(reader, fmt.Sprintf("Total cost will be %.2f (%d slips at %.2f each). Continue?", float64(slips)*stake, slips, stake)) {
		return fmt.Errorf("aborted by operator")
	}

	args.matchCount = n
	args.stake = stake
	return nil
}

func confirm(question string) bool {
	return confirmFrom(bufio.NewReader(os.Stdin), question)
}

func confirmFrom(reader *bufio.Reader, question string) bool {
	fmt.Printf("%s [y/N]: ", question)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func intPow(base, exp int) int {
	result := 1
	for i := 0; i < exp; i++ {
		result *= base
	}
	return result
}

func setupSignalHandler(ctx context.Context, cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("Received shutdown signal, stopping placement...", "signal", sig.String())
			cancel()
		case <-ctx.Done():
			signal.Stop(sigChan)
			close(sigChan)
		}
	}()
}
