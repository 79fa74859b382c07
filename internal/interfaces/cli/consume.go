package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/turtacn/KeyTerm-Intelligence/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/KeyTerm-Intelligence/internal/pipeline"
)

var (
	consumePath        string
	consumeInputTopic  string
	consumeOutputTopic string
	consumeCache       bool
	consumeSave        bool
	consumeNoPublish   bool
)

// NewConsumeCmd creates the Kafka streaming command.
func NewConsumeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "consume",
		Short: "Consume raw records from Kafka and publish extractions",
		Long:  "Consume record envelopes from the input topic, run each record through\nthe selected extraction path, and publish the augmented records to the\noutput topic. Records that keep failing go to the dead-letter topic.",
		RunE:  runConsume,
	}

	cmd.Flags().StringVar(&consumePath, "path", string(pipeline.PathRule), "extraction path (rule, generative)")
	cmd.Flags().StringVar(&consumeInputTopic, "input-topic", "", "override the configured input topic")
	cmd.Flags().StringVar(&consumeOutputTopic, "output-topic", "", "override the configured output topic")
	cmd.Flags().BoolVar(&consumeCache, "cache", false, "cache per-answer results in Redis")
	cmd.Flags().BoolVar(&consumeSave, "save", false, "persist augmented records to PostgreSQL")
	cmd.Flags().BoolVar(&consumeNoPublish, "no-publish", false, "process without republishing to the output topic")

	return cmd
}

func runConsume(cmd *cobra.Command, args []string) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	cfg := cliCtx.Config
	if consumeInputTopic != "" {
		cfg.Kafka.InputTopic = consumeInputTopic
	}
	if consumeOutputTopic != "" {
		cfg.Kafka.OutputTopic = consumeOutputTopic
	}

	runner, path, cleanup, err := buildPathRunner(cmd, cliCtx, consumePath, consumeCache, consumeSave)
	if err != nil {
		return err
	}
	defer cleanup()

	var producer *kafka.Producer
	if !consumeNoPublish {
		producer, err = kafka.NewProducer(cfg.Kafka, cliCtx.Logger)
		if err != nil {
			return err
		}
		defer producer.Close()
	}

	dlqCfg := cfg.Kafka
	dlqCfg.OutputTopic = kafka.TopicRecordsDeadLetter
	deadLetter, err := kafka.NewProducer(dlqCfg, cliCtx.Logger)
	if err != nil {
		return err
	}
	defer deadLetter.Close()

	stream, err := pipeline.NewStream(runner, producer, path, cliCtx.Logger)
	if err != nil {
		return err
	}

	consumer, err := kafka.NewConsumer(cfg.Kafka, stream.Handle, deadLetter, cliCtx.Logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := consumer.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	cliCtx.Logger.Info("Shutting down consumer")
	return consumer.Close()
}
