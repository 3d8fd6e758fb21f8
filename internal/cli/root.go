package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lazypower/rooted/internal/config"
	"github.com/lazypower/rooted/internal/logging"
)

var (
	configPath string
	userFlag   string

	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "rooted",
	Short: "Tree-structured conversational memory",
	Long: "Rooted keeps a persona root and a STEM/BRANCH/LEAF memory tree per user, " +
		"and answers chat messages with the memories that matter.",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func Execute() error {
	defer func() {
		if logger != nil {
			logger.Sync()
		}
	}()
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.rooted/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&userFlag, "user", "u", "", "user id (default from config)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(treeCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(decayCmd)
	rootCmd.AddCommand(importCmd)
}

func loadConfig(cmd *cobra.Command, args []string) error {
	dir, err := config.DefaultDir()
	if err != nil {
		return err
	}
	path := configPath
	if path == "" {
		path = filepath.Join(dir, "config.yaml")
	}

	cfg, err = config.Load(path)
	if err != nil {
		return err
	}
	cfg.ResolvePaths(dir)
	logger = logging.Must(cfg.Logging)
	return nil
}

// currentUser is the --user flag, or the configured default user.
func currentUser() string {
	if userFlag != "" {
		return userFlag
	}
	return cfg.Server.DefaultUser
}
