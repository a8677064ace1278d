// Command prodctl 在服务停止时直接读写本地槽位：查看汇总与班次、导出报表、重置批次。
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"prodline/config"
	"prodline/internal/production"
	"prodline/internal/repository"
	applogger "prodline/pkg/logger"
	"prodline/pkg/slotstore"
)

var (
	// 全局参数
	configPath string
	verbose    bool

	// PersistentPreRunE 中初始化
	cfg       *config.Config
	logger    *zap.Logger
	slots     *slotstore.Store
	snapshots repository.SnapshotRepository
)

var rootCmd = &cobra.Command{
	Use:   "prodctl",
	Short: "Bottling-line production tracker, offline tools",
	Long: `prodctl works directly on the local slot store of the production tracker.

The server must be stopped: the slot store is locked by the running process.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := closeSlots(); err != nil {
			return err
		}

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if verbose {
			cfg.Log.Level = "debug"
		} else {
			cfg.Log.Level = "warn"
		}
		cfg.Log.Format = "console"

		logger, err = applogger.NewLogger(&cfg.Log, cfg.Auth.DeviceID)
		if err != nil {
			return err
		}

		slots, err = slotstore.Open(&cfg.Local, logger.Named("slotstore"))
		if err != nil {
			return fmt.Errorf("无法打开本地存储（服务是否仍在运行？）: %w", err)
		}
		snapshots = repository.NewSnapshotRepo(slots, logger.Named("local"))
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logger != nil {
			_ = logger.Sync()
		}
		return closeSlots()
	},
}

// closeSlots 释放本地存储目录锁；RunE 出错时 PersistentPostRunE 不会执行
func closeSlots() error {
	if slots == nil {
		return nil
	}
	err := slots.Close()
	slots = nil
	return err
}

// localSource 以本地槽位作为报表数据来源
type localSource struct {
	repo repository.SnapshotRepository
}

func (s localSource) Snapshot(context.Context) (production.Snapshot, error) {
	return s.repo.Load(), nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ./config/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	exportCmd.PersistentFlags().StringVarP(&exportOut, "out", "o", "", "output file (default produccion_<run>.<ext>)")
	exportCmd.AddCommand(exportPDFCmd)
	exportCmd.AddCommand(exportXLSXCmd)

	resetCmd.Flags().BoolVar(&resetYes, "yes", false, "confirm the reset")

	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(partialsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(resetCmd)
}

func main() {
	err := rootCmd.Execute()
	if cerr := closeSlots(); cerr != nil {
		fmt.Fprintln(os.Stderr, cerr)
	}
	if err != nil {
		os.Exit(1)
	}
}
