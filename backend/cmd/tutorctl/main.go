package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Tchaikovic/NeuroGym/backend/internal/services"
	"github.com/Tchaikovic/NeuroGym/backend/pkg/config"
	"github.com/Tchaikovic/NeuroGym/backend/pkg/logger"
)

// connectFunc opens the backends a command works on
type connectFunc func(ctx context.Context) (*services.ServiceManager, error)

func connectFromEnv(ctx context.Context) (*services.ServiceManager, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.Env); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return services.NewServiceManager(ctx, cfg, logger.Get())
}

// cli carries the connected services between cobra hooks and commands
type cli struct {
	connect connectFunc
	sm      *services.ServiceManager
}

func newRootCmd(connect connectFunc) *cobra.Command {
	c := &cli{connect: connect}

	root := &cobra.Command{
		Use:           "tutorctl",
		Short:         "Inspect and maintain tutor topics, conversations and statistics",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			sm, err := c.connect(cmd.Context())
			if err != nil {
				return err
			}
			c.sm = sm
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.sm != nil {
				c.sm.StopAll()
			}
		},
	}

	root.AddCommand(c.topicsCmd(), c.seedCmd(), c.historyCmd(), c.statsCmd())
	return root
}

func main() {
	defer logger.Sync()

	if err := newRootCmd(connectFromEnv).ExecuteContext(context.Background()); err != nil {
		logger.Get().Debug("Command failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
