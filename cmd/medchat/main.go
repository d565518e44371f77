package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"ai-medchat-be/internal/bootstrap"
	"ai-medchat-be/internal/cli"
	"ai-medchat-be/internal/config"
	"ai-medchat-be/pkg/events"

	pktNats "ai-medchat-be/pkg/nats"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCmd(load, os.Stdin, os.Stdout)
	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func load(ctx context.Context) (*cli.Runtime, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// keep the terminal for the conversation; logs go to file only
	container, err := bootstrap.NewContainer(cfg, bootstrap.Options{IsolatedLog: "logs/medchat-cli.log"})
	if err != nil {
		return nil, err
	}

	return &cli.Runtime{
		Chat:       container.ChatService,
		Documents:  container.DocumentService,
		Consumer:   container.ConsumerService,
		Logger:     container.Logger,
		UploadPath: container.Sessions.UploadPath,
		Subscribe: func(ctx context.Context, eventType string, handler func(events.Event)) error {
			sub, err := pktNats.NewSubscriber(cfg.App.NatsURL, container.Logger)
			if err != nil {
				return err
			}
			defer sub.Close()

			err = sub.Subscribe(ctx, eventType, "", func(_ context.Context, e events.Event) error {
				handler(e)
				return nil
			})
			if err != nil {
				return err
			}
			<-ctx.Done()
			return nil
		},
		Close: container.Close,
	}, nil
}
