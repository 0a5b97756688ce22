package main

import (
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/brettbedarf/ramfs"
	"github.com/brettbedarf/ramfs/config"
	"github.com/brettbedarf/ramfs/generators"
	"github.com/brettbedarf/ramfs/internal/util"
	"github.com/brettbedarf/ramfs/manifest"
	"github.com/brettbedarf/ramfs/server"
)

var (
	configPath   string
	manifestPath string
	verbose      int
	debug        bool
	fsName       string
	name         string
	umount       bool
)

var rootCmd = &cobra.Command{
	Use:   "ramfs <mountpoint>",
	Short: "Mount an in-memory filesystem",
	Long: `Mounts an in-memory filesystem at the given mountpoint and serves it
until interrupted. The tree starts empty unless a manifest file seeds it with
directories, files, and symlinks. All contents are lost on unmount.`,
	Args:         cobra.ExactArgs(1),
	RunE:         run,
	SilenceUsage: true,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a config file (.yaml, .json, or .toml)")
	rootCmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "path to a node manifest applied before mounting")
	rootCmd.Flags().IntVarP(&verbose, "verbose", "v", config.InfoVerbose, "log verbosity level between 1 (error) and 5 (trace)")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "log the raw FUSE wire traffic")
	rootCmd.Flags().StringVar(&fsName, "fsname", "", "filesystem source shown in mount listings")
	rootCmd.Flags().StringVar(&name, "name", "", "filesystem type label shown in mount listings")
	rootCmd.Flags().BoolVarP(&umount, "umount", "u", false,
		"unmount the mountpoint first if needed before mounting again. Useful for debuggers that don't exit properly.")
}

func run(cmd *cobra.Command, args []string) error {
	mnt := args[0]

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	util.InitializeLogger(cfg.LogLvl)
	logger := util.GetLogger("main")
	logger.Info().Int("verbose", verbose).Str("manifest", manifestPath).Str("mnt", mnt).Msg("RamFS server initializing")

	if umount { // send cli command
		c := exec.Command("fusermount", "-u", mnt)
		// we ignore error here if not already mounted
		c.Run() // nolint:errcheck
	}

	// Register all built-in symlink target generators
	generators.RegisterBuiltins()

	fsys := ramfs.New()
	if manifestPath != "" {
		m, err := manifest.Load(manifestPath)
		if err != nil {
			return fmt.Errorf("failed to load manifest: %w", err)
		}
		if err := m.Apply(fsys); err != nil {
			return fmt.Errorf("failed to apply manifest: %w", err)
		}
		logger.Info().Int("nodes", len(m.Nodes)).Str("manifest", manifestPath).Msg("Manifest applied")
	} else {
		logger.Debug().Msg("No manifest provided; starting with an empty tree")
	}

	srv := server.New(fsys, cfg)
	if err := srv.Serve(mnt); err != nil {
		return fmt.Errorf("failed to mount filesystem: %w", err)
	}

	// Setup signal handling for graceful shutdown
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	logger.Info().Str("mountpoint", mnt).Msg("Filesystem mounted successfully")

	// Wait for termination signal
	sig := <-signalChan
	logger.Info().Str("signal", sig.String()).Msg("Received signal, unmounting filesystem")

	if err := srv.Unmount(); err != nil {
		logger.Error().Err(err).Msg("Failed to unmount filesystem")
		return err
	}
	srv.Wait()
	logger.Info().Msg("Filesystem unmounted successfully")
	return nil
}

// loadConfig layers the file override under any flags set explicitly on the
// command line.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	override := &config.ConfigOverride{}
	if configPath != "" {
		fileOverride, err := config.LoadConfigOverrideFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
		override = fileOverride
	}
	if cmd.Flags().Changed("verbose") || override.LogLvl == nil {
		override.LogLvl = &verbose
	}
	if cmd.Flags().Changed("debug") {
		override.Debug = &debug
	}
	if fsName != "" {
		override.FsName = &fsName
	}
	if name != "" {
		override.Name = &name
	}
	return config.NewConfig(override), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
