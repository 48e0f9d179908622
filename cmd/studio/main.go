package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"studio-go/internal/app"
	"studio-go/internal/config"
	"studio-go/internal/studio"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates a StudioApp. The caller must defer app.Close().
func newApp() (*app.StudioApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewStudioApp(cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

var rootCmd = &cobra.Command{
	Use:   "studio",
	Short: "Local-first video project studio",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, _ := cmd.Flags().GetString("owner")

		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(owner, defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		if owner != "" {
			fmt.Printf("Owner ID: %s\n", owner)
		} else {
			fmt.Println("Owner ID: (none, local-only)")
		}
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Owner ID:  %s\n", cfg.OwnerID)
		fmt.Printf("Base Dir:  %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:   %s\n", cfg.LogDir)
		fmt.Printf("Database:  %s\n", cfg.Database.Type)
		fmt.Printf("Vault:     %s\n", cfg.Vault.Type)
		remoteState := "disabled"
		if cfg.Remote.Enabled {
			remoteState = "enabled"
		}
		fmt.Printf("Remote:    %s\n", remoteState)
		return nil
	},
}

// project command
var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects",
}

var projectCreateCmd = &cobra.Command{
	Use:   "create TITLE",
	Short: "Create a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectType, _ := cmd.Flags().GetString("type")
		topic, _ := cmd.Flags().GetString("topic")

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		saved, err := a.SaveProject(cmd.Context(), &studio.Project{
			ID:    uuid.New().String(),
			Type:  studio.ProjectType(projectType),
			Title: args[0],
			Topic: topic,
		})
		if err != nil {
			return fmt.Errorf("creating project: %w", err)
		}

		fmt.Printf("Created project %s (%s)\n", saved.ID, saved.Title)
		return nil
	},
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects, most recently updated first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		projects, err := a.ListProjects(cmd.Context())
		if err != nil {
			return err
		}

		if len(projects) == 0 {
			fmt.Println("No projects.")
			return nil
		}

		for _, p := range projects {
			synced := " "
			if p.Synced {
				synced = "S"
			}
			updated := time.UnixMilli(p.LastUpdated).UTC().Format("2006-01-02 15:04:05")
			fmt.Printf("%s  %-36s  %-8s  %s  %s\n", synced, p.ID, p.Type, updated, p.Title)
		}
		return nil
	},
}

var projectGetCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Show a project as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.GetProject(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if p == nil {
			return fmt.Errorf("project %s not found", args[0])
		}

		out, err := json.MarshalIndent(p, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding project: %w", err)
		}
		fmt.Println(string(out))
		return nil
	},
}

var projectDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a project everywhere",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.DeleteProject(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted project %s\n", args[0])
		return nil
	},
}

// queue command
var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Manage the upload queue",
}

var queueAddCmd = &cobra.Command{
	Use:   "add PROJECT_ID",
	Short: "Queue a project for upload",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		title, _ := cmd.Flags().GetString("title")
		description, _ := cmd.Flags().GetString("description")
		privacy, _ := cmd.Flags().GetString("privacy")
		tags, _ := cmd.Flags().GetStringSlice("tags")

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		project, err := a.GetProject(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if project == nil {
			return fmt.Errorf("project %s not found", args[0])
		}
		if title == "" {
			title = project.Title
		}

		item, err := a.EnqueueUpload(cmd.Context(), &studio.QueueItem{
			ProjectID:   project.ID,
			ProjectType: project.Type,
			Metadata: studio.UploadMetadata{
				Title:         title,
				Description:   description,
				Tags:          tags,
				PrivacyStatus: studio.PrivacyStatus(privacy),
			},
		})
		if err != nil {
			return fmt.Errorf("queueing upload: %w", err)
		}

		fmt.Printf("Queued %s for upload as %q\n", item.ID, item.Metadata.Title)
		return nil
	},
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List queued uploads, oldest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		items, err := a.ListQueue(cmd.Context())
		if err != nil {
			return err
		}

		if len(items) == 0 {
			fmt.Println("Queue is empty.")
			return nil
		}

		for _, item := range items {
			line := fmt.Sprintf("%-20s  %-10s  %3d%%  %s", item.ID, item.Status, item.Progress, item.Metadata.Title)
			if item.Error != "" {
				line += "  [" + item.Error + "]"
			}
			fmt.Println(line)
		}
		return nil
	},
}

var queueAttachCmd = &cobra.Command{
	Use:   "attach ITEM_ID FILE",
	Short: "Attach a rendered video file to a queued upload",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		checksum, err := a.AttachRender(cmd.Context(), args[0], args[1])
		if err != nil {
			return fmt.Errorf("attaching render: %w", err)
		}
		fmt.Printf("Attached %s to %s\n", checksum[:12], args[0])
		return nil
	},
}

var queueRetryCmd = &cobra.Command{
	Use:   "retry ITEM_ID",
	Short: "Reset a failed upload so it runs again",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		item, err := a.RetryUpload(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Reset %s to %s\n", item.ID, item.Status)
		return nil
	},
}

var queueRemoveCmd = &cobra.Command{
	Use:   "remove ITEM_ID",
	Short: "Remove an item from the queue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.RemoveUpload(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Removed %s\n", args[0])
		return nil
	},
}

// upload command
var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Run the upload worker",
}

var uploadRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Consume the queue until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Println("Upload worker running; Ctrl-C to stop.")
		if err := a.RunUploader(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}

// migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate the local database",
	RunE: func(cmd *cobra.Command, args []string) error {
		check, _ := cmd.Flags().GetBool("check")

		// Opening the app migrates the local store to the latest schema.
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if check {
			if err := a.CheckMigrations(); err != nil {
				return fmt.Errorf("schema check failed: %w", err)
			}
			fmt.Println("Database schema is up to date.")
			return nil
		}

		fmt.Println("Database migrated.")
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().String("owner", "", "Account id for remote sync (empty for local-only)")
	configCmd.AddCommand(configListCmd)

	// project subcommands
	projectCmd.AddCommand(projectCreateCmd)
	projectCreateCmd.Flags().String("type", string(studio.ProjectTypeShorts), "Project type: shorts, long or podcast")
	projectCreateCmd.Flags().String("topic", "", "Topic the video covers")
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectGetCmd)
	projectCmd.AddCommand(projectDeleteCmd)

	// queue subcommands
	queueCmd.AddCommand(queueAddCmd)
	queueAddCmd.Flags().String("title", "", "Upload title (defaults to the project title)")
	queueAddCmd.Flags().String("description", "", "Upload description")
	queueAddCmd.Flags().String("privacy", "", "Privacy status: public, private or unlisted")
	queueAddCmd.Flags().StringSlice("tags", nil, "Upload tags")
	queueCmd.AddCommand(queueListCmd)
	queueCmd.AddCommand(queueAttachCmd)
	queueCmd.AddCommand(queueRetryCmd)
	queueCmd.AddCommand(queueRemoveCmd)

	// upload subcommands
	uploadCmd.AddCommand(uploadRunCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(projectCmd)
	rootCmd.AddCommand(queueCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().Bool("check", false, "Only verify the schema version")
}
