package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"

	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"

	"github.com/michaeltansg/grab-receipts-exporter/internal/archive"
	"github.com/michaeltansg/grab-receipts-exporter/internal/config"
	"github.com/michaeltansg/grab-receipts-exporter/internal/export"
	"github.com/michaeltansg/grab-receipts-exporter/internal/mail"
	"github.com/michaeltansg/grab-receipts-exporter/internal/pipeline"
	"github.com/michaeltansg/grab-receipts-exporter/internal/state"
	"github.com/michaeltansg/grab-receipts-exporter/pkg/types"
)

var (
	version     = "dev"
	showVersion = flag.Bool("version", false, "Show version information")
	showSummary = flag.Bool("summary", false, "Print archive totals per service type and exit (no network)")
	mailbox     = flag.String("mailbox", "", "Override the mailbox folder to export from")
	csvPath     = flag.String("csv-path", "", "Override the CSV output path")
	statePath   = flag.String("state-path", "", "Override the cursor state file path")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("grab-receipts-exporter version %s\n", version)
		os.Exit(0)
	}

	// Set up logging
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	// Flags override the environment
	if *mailbox != "" {
		cfg.Mailbox = *mailbox
	}
	if *csvPath != "" {
		cfg.CSVPath = *csvPath
	}
	if *statePath != "" {
		cfg.StatePath = *statePath
	}

	// Set log level
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	// Initialize archive
	receiptArchive, err := archive.NewArchive(cfg.ArchivePath, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize archive")
	}
	defer receiptArchive.Close()

	store := archive.NewStore(receiptArchive, logger)

	if *showSummary {
		if err := printArchiveSummary(store); err != nil {
			logger.WithError(err).Fatal("Failed to summarize archive")
		}
		return
	}

	// The summary mode works without credentials; an export run does not.
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}

	logger.Info("Starting Grab receipts exporter")

	// Initialize sinks and cursor
	sink, err := export.NewCSVSink(cfg.CSVPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open CSV sink")
	}
	defer sink.Close()

	cursor := state.NewFileCursor(cfg.StatePath)

	// Initialize mail source
	source := mail.NewClient(cfg, logger)
	defer source.Close()

	// Set up signal handling so an interrupt stops the run at a message
	// boundary with the cursor persisted
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.WithField("signal", sig).Info("Received shutdown signal")
		cancel()
	}()

	runner := pipeline.NewRunner(source, sink, store, cursor, logger)
	summary, err := runner.Run(ctx)
	if err != nil {
		logger.WithError(err).Fatal("Export run failed")
	}

	logger.WithFields(logrus.Fields{
		"run_id":    summary.RunID,
		"processed": summary.Processed,
		"exported":  summary.Exported,
		"failed":    summary.Failed,
		"last_uid":  summary.LastUID,
	}).Info("Export run finished")

	printRunSummary(summary)
}

// printRunSummary renders the per-type counts of one run as a table.
func printRunSummary(summary *pipeline.Summary) {
	serviceTypes := make([]types.ServiceType, 0, len(summary.ByType))
	for serviceType := range summary.ByType {
		serviceTypes = append(serviceTypes, serviceType)
	}
	sort.Slice(serviceTypes, func(i, j int) bool { return serviceTypes[i] < serviceTypes[j] })

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Type", "Count"})
	for _, serviceType := range serviceTypes {
		table.Append([]string{string(serviceType), strconv.Itoa(summary.ByType[serviceType])})
	}
	table.SetFooter([]string{"Failed", strconv.Itoa(summary.Failed)})
	table.Render()
}

// printArchiveSummary renders the all-time exported totals per service
// type from the local archive.
func printArchiveSummary(store *archive.Store) error {
	summaries, err := store.SummarizeByType()
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Type", "Count", "Total (THB)"})
	for _, s := range summaries {
		table.Append([]string{s.Type, strconv.Itoa(s.Count), strconv.FormatFloat(s.Total, 'f', 2, 64)})
	}
	table.Render()

	run, err := store.LastRun()
	if err != nil {
		return err
	}
	if run != nil {
		fmt.Printf("Last run %s: %d processed, %d exported, %d failed\n",
			run.ID, run.Processed, run.Exported, run.Failed)
	}
	return nil
}
