package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/campaign-agent/internal/agent/campaign"
	"github.com/campaign-agent/internal/agent/discovery"
	"github.com/campaign-agent/internal/app"
	"github.com/campaign-agent/internal/config"
	"github.com/campaign-agent/internal/models"
	"github.com/campaign-agent/internal/storage"
	"github.com/campaign-agent/internal/tracker"
	"github.com/campaign-agent/pkg/logger"
)

var (
	cfgFile string
	cfg     *config.Config
	log     *logger.Logger
	svc     *app.App
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "campaign",
		Short: "Trend-driven marketing content agent",
		Long: `Discovers trending topics, drafts platform-specific posts with Claude
and publishes them once a human has approved them.`,
		PersistentPreRunE:  initializeApp,
		PersistentPostRunE: closeApp,
		SilenceUsage:       true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./configs/config.yaml)")

	rootCmd.AddCommand(campaignCmd())
	rootCmd.AddCommand(trendsCmd())
	rootCmd.AddCommand(contentCmd())
	rootCmd.AddCommand(providersCmd())
	rootCmd.AddCommand(trackerCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func initializeApp(cmd *cobra.Command, args []string) error {
	var err error

	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log = logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	svc, err = app.New(cmd.Context(), cfg, log)
	return err
}

func closeApp(cmd *cobra.Command, args []string) error {
	if svc == nil {
		return nil
	}
	return svc.Close()
}

func parseID(arg string) (uint, error) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid content id: %s", arg)
	}
	return uint(id), nil
}

// ============ CAMPAIGN COMMANDS ============

func campaignCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "campaign",
		Short: "Campaign commands",
	}

	cmd.AddCommand(campaignRunCmd())
	return cmd
}

func campaignRunCmd() *cobra.Command {
	var topic string
	var platforms []string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a campaign on the newest trend or a custom topic",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}

			req := campaign.Request{Mode: campaign.ModeAuto}
			if cmd.Flags().Changed("topic") {
				req.Mode = campaign.ModeCustom
				req.Topic = topic
			}
			for _, p := range platforms {
				platform, err := models.ParsePlatform(p)
				if err != nil {
					return err
				}
				req.Platforms = append(req.Platforms, platform)
			}

			result, err := svc.Campaigns.Run(cmd.Context(), req)
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Campaign Results ===\n")
			fmt.Printf("Trends Found:      %d\n", result.TrendsFound)
			if result.Processed == nil {
				fmt.Printf("Processed:         (no topic)\n")
				return nil
			}
			fmt.Printf("Processed:         %s\n", *result.Processed)
			fmt.Printf("Content Generated: %t\n", result.ContentGenerated)
			for _, id := range result.ContentIDs {
				fmt.Printf("  - content %d awaiting approval\n", id)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&topic, "topic", "", "Generate for this topic instead of discovering trends")
	cmd.Flags().StringSliceVar(&platforms, "platform", nil, "Target platform (wechat, xhs, googledocs); repeatable, custom topics only")
	return cmd
}

// ============ TRENDS COMMANDS ============

func trendsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trends",
		Short: "Trend discovery commands",
	}

	cmd.AddCommand(trendsDiscoverCmd())
	cmd.AddCommand(trendsListCmd())
	return cmd
}

func trendsDiscoverCmd() *cobra.Command {
	var sourceName string

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Fetch trends from all sources into the trend store",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var result *discovery.Result
			var err error

			if sourceName != "" {
				result, err = svc.Discovery.RunForSource(ctx, svc.Sources, sourceName)
			} else {
				result, err = svc.Discovery.Run(ctx)
			}
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Discovery Results ===\n")
			fmt.Printf("Items Found: %d\n", result.ItemsFound)
			fmt.Printf("Inserted:    %d\n", result.Inserted)
			fmt.Printf("Duration:    %s\n", result.Duration)

			if len(result.Errors) > 0 {
				fmt.Printf("\nErrors:\n")
				for _, e := range result.Errors {
					fmt.Printf("  - %s\n", e)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sourceName, "source", "", "Run discovery for a specific source only")
	return cmd
}

func trendsListCmd() *cobra.Command {
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List discovered trends",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := storage.DefaultTopicFilter()
			filter.Limit = limit

			if status != "" {
				s := models.TopicStatus(status)
				filter.Status = &s
			}

			topics, err := svc.Repo.ListTopics(cmd.Context(), filter)
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Trends (%d) ===\n\n", len(topics))
			for _, t := range topics {
				fmt.Printf("[%d] %s\n", t.ID, t.Title)
				fmt.Printf("    Source: %s | Status: %s\n", t.Source, t.Status)
				fmt.Printf("    Discovered: %s\n", t.DiscoveredAt.Format(time.RFC1123))
				if t.SourceURL != "" {
					fmt.Printf("    URL: %s\n", t.SourceURL)
				}
				fmt.Println()
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status (pending, processed)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum trends to show")

	return cmd
}

// ============ CONTENT COMMANDS ============

func contentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "content",
		Short: "Review and publish generated content",
	}

	cmd.AddCommand(contentListCmd())
	cmd.AddCommand(contentShowCmd())
	cmd.AddCommand(contentApproveCmd())
	cmd.AddCommand(contentRejectCmd())
	cmd.AddCommand(contentPublishCmd())
	return cmd
}

func contentListCmd() *cobra.Command {
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List content by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := models.ParseContentStatus(status)
			if err != nil {
				return err
			}

			items, err := svc.Repo.ListByStatus(cmd.Context(), st, limit)
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Content: %s (%d) ===\n\n", st, len(items))
			for _, c := range items {
				printContentSummary(c)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", string(models.ContentStatusPendingApproval), "Status (draft, pending_approval, approved, published, rejected)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum items to show")

	return cmd
}

func contentShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [content-id]",
		Short: "Show a content item in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			c, err := svc.Repo.GetContent(cmd.Context(), id)
			if err != nil {
				return err
			}

			printContentSummary(c)
			fmt.Printf("--- %s ---\n\n%s\n", c.Title, c.Body)
			if len(c.Hashtags) > 0 {
				fmt.Printf("\n%s\n", strings.Join(c.Hashtags, " "))
			}
			if c.ImageURL != "" {
				fmt.Printf("\nImage: %s\n", c.ImageURL)
			}
			return nil
		},
	}
}

func contentApproveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "approve [content-id]",
		Short: "Approve content for publishing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			c, err := svc.Publisher.Approve(cmd.Context(), id)
			if err != nil {
				return err
			}

			fmt.Printf("Content %d is %s\n", c.ID, c.Status)
			return nil
		},
	}
}

func contentRejectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reject [content-id]",
		Short: "Reject content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			c, err := svc.Publisher.Reject(cmd.Context(), id)
			if err != nil {
				return err
			}

			fmt.Printf("Content %d is %s\n", c.ID, c.Status)
			return nil
		},
	}
}

func contentPublishCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "publish [content-id]",
		Short: "Publish approved content",
		Args: func(cmd *cobra.Command, args []string) error {
			if all {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if all {
				result, err := svc.Publisher.PublishApproved(ctx)
				if err != nil {
					return err
				}
				fmt.Printf("Published %d of %d approved items\n", result.Published, result.Attempted)
				for _, e := range result.Errors {
					fmt.Printf("  - %s\n", e)
				}
				return nil
			}

			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			c, err := svc.Publisher.Publish(ctx, id)
			if err != nil {
				return err
			}

			fmt.Printf("Content %d published to %s\n", c.ID, c.Platform)
			if c.PublishedURL != "" {
				fmt.Printf("URL: %s\n", c.PublishedURL)
			} else {
				fmt.Println("No URL returned: finish posting manually on the platform")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Publish every approved item")
	return cmd
}

func printContentSummary(c *models.Content) {
	fmt.Printf("[%d] %s | %s\n", c.ID, c.Platform, c.Status)
	fmt.Printf("    Title: %s\n", c.Title)
	fmt.Printf("    Topic: %s\n", c.TopicTitle)
	fmt.Printf("    Created: %s\n", c.CreatedAt.Format(time.RFC1123))
	if c.ApprovedAt != nil {
		fmt.Printf("    Approved: %s\n", c.ApprovedAt.Format(time.RFC1123))
	}
	if c.PublishedAt != nil {
		fmt.Printf("    Published: %s\n", c.PublishedAt.Format(time.RFC1123))
	}
	if c.PublishedURL != "" {
		fmt.Printf("    URL: %s\n", c.PublishedURL)
	}
	if c.LastPublishError != "" {
		fmt.Printf("    Last error: %s\n", c.LastPublishError)
	}
	fmt.Println()
}

// ============ PROVIDERS COMMANDS ============

func providersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "Publishing provider status",
	}

	cmd.AddCommand(providersListCmd())
	cmd.AddCommand(providersTestCmd())
	return cmd
}

func providersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show which providers are configured",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("\n=== Publishing Providers ===\n\n")
			for _, p := range svc.Registry.ListAll() {
				state := "configured"
				if !p.Configured {
					state = "missing " + strings.Join(p.MissingKeys, ", ")
				}
				fmt.Printf("%-25s %-11s %s\n", p.Name, p.Platform, state)
			}
			return nil
		},
	}
}

func providersTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Run a live check against each configured provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("\n=== Provider Tests ===\n\n")
			for _, r := range svc.Registry.TestAll(cmd.Context()) {
				state := "OK"
				switch {
				case r.Error != "":
					state = "FAILED: " + r.Error
				case !r.Tested:
					state = "OK (credentials present, no live check)"
				}
				fmt.Printf("%-25s %s\n", r.Provider, state)
			}
			return nil
		},
	}
}

// ============ TRACKER COMMANDS ============

func trackerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tracker",
		Short: "Google Sheets audit log",
	}

	cmd.AddCommand(trackerInitCmd())
	return cmd
}

func trackerInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize the Google Sheet with headers",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cfg.Tracker.Enabled {
				return fmt.Errorf("tracker is not enabled in config - set tracker.enabled=true and tracker.spreadsheet_id")
			}
			if svc.Tracker == nil {
				return fmt.Errorf("tracker could not be created, check the Google credentials")
			}

			if err := svc.Tracker.InitializeSheet(cmd.Context()); err != nil {
				return fmt.Errorf("failed to initialize sheet: %w", err)
			}

			fmt.Println("Google Sheet initialized successfully!")
			fmt.Printf("Spreadsheet ID: %s\n", cfg.Tracker.SpreadsheetID)
			fmt.Printf("Sheet Name: %s\n", cfg.Tracker.SheetName)
			fmt.Println("\nColumns:")
			for i, col := range tracker.SheetColumns {
				fmt.Printf("  %d. %s\n", i+1, col)
			}
			return nil
		},
	}
}

// ============ SERVE COMMAND ============

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return svc.Server().Start(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from server.addr)")
	return cmd
}
