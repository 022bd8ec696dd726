package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/scada-notifier/internal/config"
	"github.com/jwalitptl/scada-notifier/internal/gateway"
	"github.com/jwalitptl/scada-notifier/internal/processor"
	"github.com/jwalitptl/scada-notifier/internal/repository/postgres"
	"github.com/jwalitptl/scada-notifier/internal/service/queue"
	"github.com/jwalitptl/scada-notifier/internal/service/recipient"
	apperrors "github.com/jwalitptl/scada-notifier/pkg/errors"
	"github.com/jwalitptl/scada-notifier/pkg/logger"
	"github.com/jwalitptl/scada-notifier/pkg/metrics"
)

const usage = `Usage:
  notifier send-alarm <message> <group> [--process]
  notifier process-queue`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := logger.NewFileLogger(cfg.Logging.Dir, level)

	switch os.Args[1] {
	case "send-alarm":
		os.Exit(runSendAlarm(cfg, log, os.Args[2:]))
	case "process-queue":
		os.Exit(runProcessQueue(cfg, log))
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n%s\n", os.Args[1], usage)
		os.Exit(2)
	}
}

func runSendAlarm(cfg *config.Config, log *logger.Logger, args []string) int {
	fs := flag.NewFlagSet("send-alarm", flag.ExitOnError)
	process := fs.Bool("process", false, "run a processing pass immediately after enqueue")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 2 {
		fmt.Fprintln(os.Stderr, usage)
		return 2
	}
	message := fs.Arg(0)
	groupNumber, err := strconv.Atoi(fs.Arg(1))
	if err != nil {
		fmt.Fprintf(os.Stderr, "group must be an integer: %v\n", err)
		return 1
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Error(err, "failed to connect to database")
		return 1
	}
	defer db.Close()

	m := metrics.New("notifier")
	base := postgres.NewBaseRepository(db)
	svc := queue.NewService(postgres.NewAlarmRepository(base), log, m)

	ctx := context.Background()
	alarmID, err := svc.Enqueue(ctx, message, groupNumber)
	if err != nil {
		if apperrors.IsValidation(err) {
			fmt.Fprintf(os.Stderr, "invalid alarm: %v\n", err)
		} else {
			log.Error(err, "failed to enqueue alarm")
		}
		return 1
	}
	fmt.Printf("Alarm queued successfully. ID: %s\n", alarmID)

	if *process {
		return runPass(ctx, cfg, log, m, db)
	}
	return 0
}

func runProcessQueue(cfg *config.Config, log *logger.Logger) int {
	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Error(err, "failed to connect to database")
		return 1
	}
	defer db.Close()

	return runPass(context.Background(), cfg, log, metrics.New("notifier"), db)
}

func runPass(ctx context.Context, cfg *config.Config, log *logger.Logger, m *metrics.Metrics, db *sqlx.DB) int {
	base := postgres.NewBaseRepository(db)
	proc := processor.New(
		postgres.NewAlarmRepository(base),
		postgres.NewDeliveryRepository(base),
		postgres.NewAuditRepository(base),
		recipient.NewService(postgres.NewUserRepository(base), log),
		gateway.NewClient(cfg.Gateway, log),
		cfg.Queue,
		log,
		m,
	)

	summary, err := proc.Run(ctx)
	if err != nil {
		log.Error(err, "processing pass failed")
		return 1
	}
	fmt.Printf("Pass complete: %d expanded, %d recipients, %d sent, %d retried, %d failed permanently\n",
		summary.AlarmsExpanded,
		summary.RecipientsCreated,
		summary.Sent,
		summary.Retried,
		summary.FailedPermanent,
	)
	return 0
}
