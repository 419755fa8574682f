package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lutefd/pongboard/internal/client"
	"github.com/lutefd/pongboard/internal/config"
	"github.com/lutefd/pongboard/internal/domain/matches"
	"github.com/lutefd/pongboard/internal/ingest"
	"github.com/spf13/cobra"
)

var (
	recordBrokers  string
	recordTopic    string
	recordDuration time.Duration
)

var recordCmd = &cobra.Command{
	Use:   "record <player1> <score1> <score2> <player2>",
	Short: "Record a finished match through the API or a kafka topic",
	Args:  cobra.ExactArgs(4),
	RunE:  runRecord,
}

func init() {
	recordCmd.Flags().StringVar(&recordBrokers, "kafka", "", "comma separated brokers; publish to kafka instead of the API")
	recordCmd.Flags().StringVar(&recordTopic, "topic", config.Defaults().Kafka.Topic, "kafka topic")
	recordCmd.Flags().DurationVar(&recordDuration, "duration", 5*time.Minute, "match length, ending now")
}

func runRecord(cmd *cobra.Command, args []string) error {
	sub, err := parseSubmission(args, time.Now(), recordDuration)
	if err != nil {
		return err
	}

	if recordBrokers != "" {
		producer := ingest.NewProducer(config.KafkaConfig{
			Brokers: strings.Split(recordBrokers, ","),
			Topic:   recordTopic,
		})
		defer producer.Close()
		if err := producer.Publish(cmd.Context(), sub); err != nil {
			return fmt.Errorf("publish match: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "queued %s\n", sub.GameID)
		return nil
	}

	rec, err := client.New(serverURL).RecordGame(cmd.Context(), token, sub)
	if err != nil {
		return fmt.Errorf("record match: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), rec.Line())
	return nil
}

func parseSubmission(args []string, now time.Time, d time.Duration) (matches.Submission, error) {
	var s1, s2 int
	if _, err := fmt.Sscan(args[1], &s1); err != nil {
		return matches.Submission{}, fmt.Errorf("score1: %w", err)
	}
	if _, err := fmt.Sscan(args[2], &s2); err != nil {
		return matches.Submission{}, fmt.Errorf("score2: %w", err)
	}
	// leave a second of slack so the end time is never ahead of the server
	end := now.Add(-time.Second)
	sub := matches.Submission{
		GameID:         uuid.New(),
		Player1IntraID: args[0],
		Player2IntraID: args[3],
		Player1Score:   s1,
		Player2Score:   s2,
		StartTime:      end.Add(-d),
		EndTime:        end,
	}
	return sub, sub.Validate(now)
}
