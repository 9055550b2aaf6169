package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"casework/internal/cases/export"
	"casework/internal/cases/models"
)

func newEventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Work with the exported audit stream",
	}
	cmd.AddCommand(newEventsTailCmd())
	return cmd
}

func newEventsTailCmd() *cobra.Command {
	var (
		brokers  []string
		topic    string
		group    string
		category string
	)
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Print audit events from Kafka as JSON lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			consumer, err := export.NewConsumer(brokers, topic, group, slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil)))
			if err != nil {
				return err
			}
			defer consumer.Close()

			err = consumer.Run(ctx, printEvents(cmd, models.AuditCategory(category)))
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	f := cmd.Flags()
	f.StringSliceVar(&brokers, "brokers", []string{"localhost:9092"}, "Kafka seed brokers")
	f.StringVar(&topic, "topic", export.DefaultTopic, "audit topic")
	f.StringVar(&group, "group", "casectl", "consumer group")
	f.StringVar(&category, "category", "", "only print events of this category")
	return cmd
}

// printEvents renders each event as one JSON line, optionally keeping one category.
func printEvents(cmd *cobra.Command, category models.AuditCategory) export.Handler {
	enc := json.NewEncoder(cmd.OutOrStdout())
	return func(_ context.Context, e export.Event) error {
		if category != "" && e.Category != category {
			return nil
		}
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("write event: %w", err)
		}
		return nil
	}
}
