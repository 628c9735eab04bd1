// cmd/portal-manager/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"loan-portal/internal/api"
	"loan-portal/internal/backend"
	"loan-portal/internal/common/aws"
	"loan-portal/internal/common/camunda"
	"loan-portal/internal/common/config"
	"loan-portal/internal/common/database"
	"loan-portal/internal/common/logger"
	"loan-portal/internal/common/observability"
	"loan-portal/internal/formvalidation"
	"loan-portal/internal/journal"
	"loan-portal/internal/poller"
	"loan-portal/internal/session"
	"loan-portal/internal/tickets"
	"loan-portal/pkg/registry"

	// Auth
	ulogin "loan-portal/internal/workers/auth/user-login"
	ulogout "loan-portal/internal/workers/auth/user-logout"
	usignup "loan-portal/internal/workers/auth/user-signup"

	// Origination
	bd "loan-portal/internal/workers/application/bank-details"
	sa "loan-portal/internal/workers/application/submit-application"
	td "loan-portal/internal/workers/disbursement/track-disbursal"
	so "loan-portal/internal/workers/offers/select-offer"
	ea "loan-portal/internal/workers/verification/external-action"

	// Servicing & support
	ld "loan-portal/internal/workers/servicing/loan-dashboard"
	pi "loan-portal/internal/workers/servicing/payment-initiation"
	gt "loan-portal/internal/workers/support/grievance-ticket"

	// Communication
	sn "loan-portal/internal/workers/communication/send-notification"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("info", "console").Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting portal manager...",
		zap.String("environment", cfg.App.Environment),
		zap.String("version", cfg.App.Version),
	)

	obs := observability.New("loan-portal", zapLog)
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Redis (sessions, offer cache) ---
	var rc *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rc, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rc.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rc.Close()
	zapLog.Info("Redis connected successfully")

	// --- PostgreSQL (flow journal); optional ---
	var recorder journal.Recorder
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 5, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Error("postgres unavailable, flow journal disabled", zap.Error(err))
	} else {
		defer pg.Close()
		j := journal.New(pg.DB, log)
		if err := j.Migrate(ctx); err != nil {
			zapLog.Error("flow journal migration failed", zap.Error(err))
		} else {
			recorder = j
			zapLog.Info("PostgreSQL connected, flow journal enabled")
		}
	}

	// --- Elasticsearch (grievance index); optional ---
	var ticketIndex gt.Index
	var es *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return es.Ping()
	}, 5, 2*time.Second, zapLog, "Elasticsearch connection")
	if err != nil {
		zapLog.Error("elasticsearch unavailable, ticket search disabled", zap.Error(err))
	} else {
		idx := tickets.NewIndex(es, cfg.Database.Elasticsearch.TicketIndex, log)
		if err := idx.Ensure(ctx); err != nil {
			zapLog.Error("ticket index setup failed", zap.Error(err))
		} else {
			ticketIndex = idx
			zapLog.Info("Elasticsearch connected, ticket index ready")
		}
	}

	// --- Notifications (SES / SNS); optional ---
	var notifier *sn.Handler
	if cfg.Notifications.Email.Enabled || cfg.Notifications.SMS.Enabled {
		sender, err := aws.NewNotifier(ctx, cfg.Notifications.AWSRegion,
			cfg.Notifications.Email.FromEmail, cfg.Notifications.SMS.SenderID)
		if err != nil {
			zapLog.Error("aws notifier unavailable, notifications disabled", zap.Error(err))
		} else {
			notifier = sn.NewHandler(sn.LoadConfig(cfg), sender, log)
		}
	}

	// --- Core services ---
	flow, err := registry.Load(cfg.Flow.RegistryPath)
	if err != nil {
		zapLog.Fatal("flow registry load failed", zap.Error(err))
	}
	client := backend.NewFromConfig(cfg.Backend, log)
	sessions := session.NewStore(rc, cfg.Session)
	trackers := poller.NewRegistry()

	// --- Step handlers ---
	signup := usignup.NewHandler(usignup.LoadConfig(cfg), client, sessions, log)
	login := ulogin.NewHandler(ulogin.LoadConfig(cfg), client, sessions, log)
	logout := ulogout.NewHandler(ulogout.LoadConfig(cfg), sessions, trackers, log)
	application := sa.NewHandler(sa.LoadConfig(cfg), client, sessions, formvalidation.New(), recorder, flow, log)
	bank := bd.NewHandler(bd.LoadConfig(cfg), client, sessions, recorder, flow, log)
	offers := so.NewHandler(so.LoadConfig(cfg), client, sessions, so.HandlerOptions{
		Cache:   rc,
		Journal: recorder,
		Flow:    flow,
	}, log)
	actions := ea.NewHandler(ea.LoadConfig(cfg), func(kind, token string) poller.Source {
		return client.Source(kind, token)
	}, sessions, trackers, ea.HandlerOptions{Journal: recorder, Flow: flow}, log)
	go func() {
		_ = actions.RunSweeper(ctx)
	}()

	disbursalOpts := td.HandlerOptions{Journal: recorder, Flow: flow}
	ticketOpts := gt.HandlerOptions{Index: ticketIndex, Journal: recorder}
	if notifier != nil {
		disbursalOpts.Notifier = notifier
		ticketOpts.Notifier = notifier
	}
	disbursal := td.NewHandler(td.LoadConfig(cfg), client, sessions, disbursalOpts, log)
	dashboard := ld.NewHandler(ld.LoadConfig(cfg), client, sessions, log)
	payments := pi.NewHandler(pi.LoadConfig(cfg), client, sessions, recorder, log)
	grievances := gt.NewHandler(gt.LoadConfig(cfg), client, sessions, ticketOpts, log)

	// --- Zeebe workers ---
	var zc *camunda.Client
	var jobWorkers []worker.JobWorker
	if cfg.Camunda.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			zc, err = camunda.NewClient(cfg.Camunda)
			return err
		}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		if err := zc.HealthCheck(ctx); err != nil {
			zapLog.Warn("zeebe gateway not reachable yet, workers will keep polling", zap.Error(err))
		} else {
			zapLog.Info("Zeebe client connected successfully")
		}

		handlers := map[string]func(worker.JobClient, entities.Job){
			usignup.TaskType: signup.Handle,
			ulogin.TaskType:  login.Handle,
			ulogout.TaskType: logout.Handle,
			sa.TaskType:      application.Handle,
			bd.TaskType:      bank.Handle,
			so.TaskType:      offers.Handle,
			ea.TaskType:      actions.Handle,
			td.TaskType:      disbursal.Handle,
			ld.TaskType:      dashboard.Handle,
			pi.TaskType:      payments.Handle,
			gt.TaskType:      grievances.Handle,
		}
		if notifier != nil {
			handlers[sn.TaskType] = notifier.Handle
		}
		for taskType, handle := range handlers {
			if jw := camunda.StartWorker(zc.Zeebe(), taskType, config.GetWorkerConfig(cfg, taskType), handle, zapLog); jw != nil {
				jobWorkers = append(jobWorkers, jw)
			}
		}
		zapLog.Info("Zeebe workers registered", zap.Int("count", len(jobWorkers)))
	}

	// --- Browser API ---
	router := api.NewRouter(api.Handlers{
		Signup:      signup,
		Login:       login,
		Logout:      logout,
		Application: application,
		BankDetails: bank,
		Offers:      offers,
		Actions:     actions,
		Disbursal:   disbursal,
		Dashboard:   dashboard,
		Payments:    payments,
		Tickets:     grievances,
		Flow:        flow,
		Observer:    obs,
	}, cfg.Server.AllowedOrigins, log)

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
		IdleTimeout:  120 * time.Second,
	}
	go func() {
		zapLog.Info("API server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("API server failed", zap.Error(err))
		}
	}()

	// --- Metrics Server ---
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := rc.Ping(r.Context()); err != nil {
			api.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "error": err.Error()})
			return
		}
		if zc != nil {
			if err := zc.HealthCheck(r.Context()); err != nil {
				api.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "error": err.Error()})
				return
			}
		}
		api.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "ready",
			"trackers": trackers.Len(),
			"time":     time.Now().Format(time.RFC3339),
		})
	})
	metricsSrv := &http.Server{Addr: cfg.Server.MetricsAddress, Handler: mux}
	go func() {
		zapLog.Info("Metrics server listening", zap.String("addr", metricsSrv.Addr))
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	stop()
	zapLog.Info("Shutdown signal received, stopping...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("API server forced to shutdown", zap.Error(err))
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Metrics server forced to shutdown", zap.Error(err))
	}
	for _, jw := range jobWorkers {
		jw.Close()
	}
	if zc != nil {
		if err := zc.Close(); err != nil {
			zapLog.Error("Error closing Zeebe client", zap.Error(err))
		}
	}
	trackers.CloseAll()

	zapLog.Info("Portal manager stopped gracefully")
}
