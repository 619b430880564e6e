// Copyright © 2025 jackelyj <dreamerlyj@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
//

package run

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/manyiweb/api-delivery/internal/delivery/client"
	"github.com/manyiweb/api-delivery/internal/delivery/config"
	"github.com/manyiweb/api-delivery/internal/delivery/db"
	"github.com/manyiweb/api-delivery/internal/delivery/metrics"
	"github.com/manyiweb/api-delivery/internal/delivery/notify"
	"github.com/manyiweb/api-delivery/internal/delivery/report"
	"github.com/manyiweb/api-delivery/internal/delivery/repository"
	"github.com/manyiweb/api-delivery/internal/delivery/scenario"
	"github.com/manyiweb/api-delivery/pkg/logger"
	"github.com/manyiweb/api-delivery/pkg/tracing"
)

// ErrScenariosFailed is returned when at least one scenario failed.
var ErrScenariosFailed = errors.New("scenarios failed")

// reportTitle heads the notification message.
const reportTitle = "API 自动化测试"

type options struct {
	configDir string
	filter    scenario.Filter
	notify    []string
}

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the end-to-end scenarios",
		Long: `Run the end-to-end scenarios against the environment selected by ENV
(test, fat or uat). Results are written to the report directory and the
summary is sent to the configured notification channels.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return Run(ctx, opts.configDir, opts.filter, opts.notify, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&opts.configDir, "config-dir", ".", "directory holding delivery.yaml and its overlays")
	cmd.Flags().StringSliceVar(&opts.filter.Suites, "suite", nil, "only scenarios of these suites")
	cmd.Flags().StringSliceVar(&opts.filter.Names, "scenario", nil, "only these scenarios")
	cmd.Flags().StringSliceVar(&opts.filter.Markers, "marker", nil, "only scenarios with one of these markers")
	cmd.Flags().StringSliceVar(&opts.notify, "notify", nil, "notification channels: wechat, dingtalk, email")
	return cmd
}

// Run loads the configuration in configDir, runs the selected scenarios
// and writes the run artifacts. The summary goes to out.
func Run(ctx context.Context, configDir string, filter scenario.Filter, channels []string, out io.Writer) error {
	cfg, _, err := config.Load(configDir)
	if err != nil {
		return err
	}
	lg, err := logger.Configure(logger.Options{Level: cfg.Log.Level, Dir: cfg.Log.Dir})
	if err != nil {
		return err
	}
	defer func() { _ = lg.Sync() }()
	lg.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("api_url", cfg.APIBaseURL()),
		zap.Bool("db_checks", cfg.DBChecksEnabled()),
		zap.String("log_file", logger.File()))

	tracer, err := tracing.NewManager(ctx, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := tracer.Shutdown(sctx); err != nil {
			lg.Warn("Tracer shutdown failed", zap.Error(err))
		}
	}()

	collector := metrics.NewCollector()
	c, err := client.New(client.Options{
		BaseURL: cfg.APIBaseURL(),
		Timeout: cfg.HTTPTimeout(),
		Retry:   cfg.RetryPolicy(),
		Tracer:  tracer,
		Metrics: collector,
		Logger:  lg,
	})
	if err != nil {
		return err
	}

	var repo repository.DockOrderRepository
	if cfg.DBChecksEnabled() {
		gdb, err := db.Open(cfg.DB)
		if err != nil {
			return err
		}
		defer func() {
			if err := db.Close(gdb); err != nil {
				lg.Warn("Close database failed", zap.Error(err))
			}
		}()
		repo = repository.NewDockOrderRepository(gdb)
	}

	env, err := scenario.NewEnv(ctx, cfg, c, scenario.EnvOptions{Metrics: collector, Repo: repo, Logger: lg})
	if err != nil {
		return err
	}

	rep := report.New(uuid.NewString(), report.Environment{
		Name:   cfg.Env,
		APIURL: cfg.APIBaseURL(),
		DBHost: cfg.DB.Host,
		DBPort: cfg.DB.Port,
	})
	runner := scenario.NewRunner(env, rep, scenario.WithMetrics(collector), scenario.WithLogger(lg))
	if err := runner.Register(scenario.All()...); err != nil {
		return err
	}
	summary := runner.Run(ctx, filter)

	writeArtifacts(cfg, rep, collector, lg)
	rep.PrintSummary(out)

	if len(channels) == 0 {
		channels = cfg.Notify.Channels
	}
	if len(channels) > 0 {
		d := notify.NewDispatcher(cfg.Notify, notify.WithLogger(lg))
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		for ch, err := range d.Send(nctx, reportTitle, notify.ReportMessage(summary, time.Now()), channels...) {
			if err != nil {
				lg.Warn("Notification not delivered", zap.String("channel", ch), zap.Error(err))
			}
		}
	}

	if summary.Failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrScenariosFailed, summary.Failed, summary.Total)
	}
	return nil
}

// writeArtifacts logs and continues on write errors so the summary is
// still printed.
func writeArtifacts(cfg *config.Config, rep *report.Report, collector *metrics.Collector, lg *zap.Logger) {
	if path, err := rep.WriteJSON(cfg.Report.ResultsDir); err != nil {
		lg.Error("Write results failed", zap.Error(err))
	} else {
		lg.Info("Results written", zap.String("path", path))
	}
	if _, err := rep.WriteEnvironment(cfg.Report.ResultsDir); err != nil {
		lg.Error("Write environment properties failed", zap.Error(err))
	}
	if _, err := report.WriteMetrics(cfg.Report.Dir, collector.Gatherer()); err != nil {
		lg.Error("Write metrics failed", zap.Error(err))
	}
}
