package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"example.com/microblog/cmd/server"
	"example.com/microblog/cmd/worker"
	"example.com/microblog/internal/accounts"
	"example.com/microblog/internal/blob"
	appkafka "example.com/microblog/internal/broker"
	"example.com/microblog/internal/graph"
	config "example.com/microblog/internal/init"
	"example.com/microblog/internal/mail"
	"example.com/microblog/internal/messaging"
	"example.com/microblog/internal/posts"
	"example.com/microblog/internal/store"
	"example.com/microblog/internal/tasks"
)

func main() {
	// Initialize application configuration
	cfg := config.Init()
	mode := cfg.Mode
	if mode != "server" && mode != "worker" {
		log.Fatalf("unknown mode: %s", mode)
	}

	// Setup OS signal handling for graceful shutdown (SIGINT, SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Accounts, graph, posts and tasks live in Postgres
	pg, err := store.NewPostgres(ctx, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("Postgres connection failed: %v", err)
	}
	defer pg.Close()

	// Messages and notifications live in Cassandra
	cs, err := store.NewCassandra(cfg)
	if err != nil {
		log.Fatalf("Cassandra connection failed: %v", err)
	}
	defer cs.Close()

	var mailer mail.Mailer = mail.LogMailer{}
	if cfg.SMTPHost != "" {
		mailer = mail.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.MailSender)
	}

	// Configure Kafka client parameters
	kafkaCfg := appkafka.KafkaConfig{
		Brokers:      []string{cfg.KafkaBroker},
		Topic:        cfg.KafkaTopic,
		Partition:    cfg.KafkaPartition,
		GroupID:      cfg.KafkaGroupID,
		WriteTimeout: cfg.KafkaWriteTO,
		ReadTimeout:  cfg.KafkaReadTO,
	}

	msgSvc := messaging.NewService(pg, cs)

	// Run application depending on selected mode
	switch mode {
	case "server":
		kafkaWriter := appkafka.NewKafkaWriter(kafkaCfg)
		defer kafkaWriter.Close()

		svc := server.Services{
			Accounts: accounts.NewService(pg, mailer, accounts.Options{
				Secret:        []byte(cfg.JWTSecret),
				TokenTTL:      cfg.TokenTTL,
				ResetTokenTTL: cfg.ResetTokenTTL,
			}),
			Graph:     graph.NewService(pg, cfg.PostsPerPage),
			Posts:     posts.NewService(pg, cfg.PostsPerPage),
			Messaging: msgSvc,
			Tasks:     tasks.NewService(pg, kafkaWriter, msgSvc),
		}

		// Start the API server; export jobs are queued to Kafka
		if err := server.Run(ctx, svc, server.Options{
			Addr:        cfg.ServerAddr,
			TLSCertFile: cfg.TLSCertFile,
			TLSKeyFile:  cfg.TLSKeyFile,
		}); err != nil {
			log.Printf("Server error: %v", err)
		}

	case "worker":
		bucket, err := blob.NewS3Bucket(ctx, blob.S3Config{
			Region:    cfg.S3Region,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Endpoint:  cfg.S3Endpoint,
			Bucket:    cfg.S3Bucket,
		})
		if err != nil {
			log.Fatalf("S3 init failed: %v", err)
		}

		// The worker only reports progress, it never queues jobs.
		taskSvc := tasks.NewService(pg, nil, msgSvc)

		// Start the worker that reads task jobs from Kafka and runs them
		w := worker.New(worker.Deps{
			Posts:  pg,
			Tasks:  taskSvc,
			Bucket: bucket,
			Mailer: mailer,
			URLTTL: cfg.ExportURLTTL,
		}, appkafka.NewKafkaReader(kafkaCfg), cfg.WorkerCount, cfg.WorkerQueueSize)
		w.Run(ctx)
		_ = w.Close()
	}

	log.Println("Shutdown completed")
}
