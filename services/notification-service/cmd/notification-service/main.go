package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/medibook-health/medibook/libs/config"
	"github.com/medibook-health/medibook/libs/db"
	"github.com/medibook-health/medibook/libs/httpx"
	"github.com/medibook-health/medibook/libs/kafkax"
	otelx "github.com/medibook-health/medibook/libs/otel"
	"github.com/medibook-health/medibook/libs/runtime"
	"github.com/medibook-health/medibook/services/notification-service/internal/consumer"
	"github.com/medibook-health/medibook/services/notification-service/internal/email"
	"github.com/medibook-health/medibook/services/notification-service/internal/inbox"
	"github.com/medibook-health/medibook/services/notification-service/internal/render"
	"github.com/medibook-health/medibook/services/notification-service/internal/sms"
	"github.com/medibook-health/medibook/services/notification-service/internal/storage"
	"github.com/medibook-health/medibook/services/notification-service/migrations"
)

func main() {
	config.LoadDotenv()
	service := config.String("SERVICE_NAME", "notification-service")
	port, err := config.Port("PORT", "8085")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL, db.DefaultOptions())
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool, migrations.FS, "."); err != nil {
		logger.Error("migrations failed", "err", err)
		panic(err)
	}

	inboxRepo := inbox.NewRepository(pool)
	notificationsRepo := storage.NewRepository(pool)

	emailSender := email.NewSMTPSender(
		config.String("SMTP_HOST", "mailpit"),
		config.String("SMTP_PORT", "1025"),
		config.String("SMTP_FROM", "no-reply@medibook.local"),
	)

	var smsSender sms.Sender
	switch strings.ToLower(config.String("SMS_PROVIDER", "noop")) {
	case "webhook":
		smsSender = sms.NewWebhookSender(config.String("SMS_WEBHOOK_URL", ""), config.String("SMS_WEBHOOK_TOKEN", ""))
	default:
		smsSender = sms.NewNoopSender()
	}

	dispatcher := &dispatcher{
		logger:        logger,
		notifications: notificationsRepo,
		email:         emailSender,
		sms:           smsSender,
	}

	brokers := config.String("KAFKA_BROKERS", "")
	groupID := config.String("KAFKA_GROUP_ID", "notification-service")
	topics := []string{
		render.TopicBooked,
		render.TopicCancelled,
		render.TopicRescheduled,
		render.TopicCompleted,
	}
	for _, topic := range topics {
		eventConsumer := consumer.New(logger, inboxRepo, consumer.Config{
			Brokers: brokers,
			GroupID: groupID,
			Topic:   topic,
		}, dispatcher.handle)
		go eventConsumer.Run(ctx)
	}

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)
	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	handler = otelhttp.NewHandler(handler, "notification")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}

type dispatcher struct {
	logger        *slog.Logger
	notifications *storage.Repository
	email         email.Sender
	sms           sms.Sender
}

// handle renders one lifecycle event and dispatches every message it
// produces. Patient messages go over email and SMS using the contact
// details carried in the event; doctor and establishment messages land in
// the notifications table as in-app entries. Send failures are recorded and
// swallowed; a broken mail relay must not stall the consumer.
func (d *dispatcher) handle(ctx context.Context, msg kafka.Message) error {
	var evt render.AppointmentEvent
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		d.logger.Error("invalid appointment event", "err", err, "topic", msg.Topic)
		return nil
	}
	if evt.AppointmentID == "" {
		d.logger.Error("event missing appointment id", "topic", msg.Topic)
		return nil
	}

	for _, m := range render.Messages(msg.Topic, evt) {
		switch m.Audience {
		case render.AudiencePatient:
			d.sendPatient(ctx, msg.Topic, evt, m)
		case render.AudienceDoctor:
			d.record(ctx, msg.Topic, evt.AppointmentID, m, "inapp", evt.DoctorID, "sent", "")
		case render.AudienceEstablishment:
			d.record(ctx, msg.Topic, evt.AppointmentID, m, "inapp", evt.EstablishmentID, "sent", "")
		}
	}
	return nil
}

func (d *dispatcher) sendPatient(ctx context.Context, topic string, evt render.AppointmentEvent, m render.Message) {
	if evt.PatientEmail != "" {
		status, reason := "sent", ""
		if err := d.email.Send(evt.PatientEmail, m.Subject, m.Body); err != nil {
			status, reason = "failed", err.Error()
			d.logger.Error("email send failed", "err", err, "appointment_id", evt.AppointmentID)
		}
		d.record(ctx, topic, evt.AppointmentID, m, "email", evt.PatientEmail, status, reason)
	}
	if evt.PatientPhone != "" {
		status, reason := "sent", ""
		if err := d.sms.Send(ctx, evt.PatientPhone, m.Body); err != nil {
			status, reason = "failed", err.Error()
			d.logger.Error("sms send failed", "err", err, "appointment_id", evt.AppointmentID)
		}
		d.record(ctx, topic, evt.AppointmentID, m, "sms", evt.PatientPhone, status, reason)
	}
	if evt.PatientEmail == "" && evt.PatientPhone == "" {
		d.record(ctx, topic, evt.AppointmentID, m, "none", "", "skipped", "no contact details")
	}
}

func (d *dispatcher) record(ctx context.Context, topic, appointmentID string, m render.Message, channel, recipient, status, reason string) {
	err := d.notifications.Insert(ctx, storage.Notification{
		AppointmentID: appointmentID,
		EventType:     topic,
		Audience:      m.Audience,
		Channel:       channel,
		Recipient:     recipient,
		Subject:       m.Subject,
		Body:          m.Body,
		Status:        status,
		FailureReason: reason,
	})
	if err != nil {
		d.logger.Error("failed to persist notification", "err", err, "appointment_id", appointmentID)
	}
}
