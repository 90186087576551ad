package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/gangsheet/internal/httpapi"
	"github.com/matzehuels/gangsheet/pkg/store"
)

// serveCommand creates the serve command for running the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr      string
		redisAddr string
		dir       string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gang sheet HTTP API",
		Long: `Run the gang sheet HTTP API.

The API is stateless for editing: clients post snapshots and get layout,
summary, and preview data back. Saved sheets persist in a file directory by
default; pass --redis to share them across instances.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd, addr, redisAddr, dir)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&redisAddr, "redis", "", "redis address for shared sheet storage (host:port)")
	cmd.Flags().StringVar(&dir, "sheets-dir", "", "directory for file-based sheet storage")

	return cmd
}

func (c *CLI) runServe(cmd *cobra.Command, addr, redisAddr, dir string) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	var sheets store.Store
	if redisAddr != "" {
		sheets, err = store.NewRedisStore(cmd.Context(), store.RedisConfig{Addr: redisAddr})
		if err != nil {
			return fmt.Errorf("connect sheet store: %w", err)
		}
		c.Logger.Info("using redis sheet store", "addr", redisAddr)
	} else {
		if dir == "" {
			dir = sheetsDir()
		}
		sheets, err = store.NewFileStore(dir)
		if err != nil {
			return fmt.Errorf("open sheet store: %w", err)
		}
		c.Logger.Info("using file sheet store", "dir", dir)
	}
	defer sheets.Close()

	srv := httpapi.NewServer(cfg, sheets, c.Logger)
	return srv.ListenAndServe(cmd.Context(), addr)
}
