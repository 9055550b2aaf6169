//go:build integration

package export_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"casework/internal/cases/export"
	"casework/internal/cases/models"
	"casework/pkg/testutil/containers"
)

type KafkaSuite struct {
	suite.Suite
	redpanda *containers.RedpandaContainer
}

func TestKafkaSuite(t *testing.T) {
	suite.Run(t, new(KafkaSuite))
}

func (s *KafkaSuite) SetupSuite() {
	s.redpanda = containers.GetManager().GetRedpanda(s.T())
}

func (s *KafkaSuite) TestPublishAndConsume() {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	topic := "casework.test.publish-consume"
	pub, err := export.NewKafkaPublisher(s.redpanda.Brokers, topic)
	s.Require().NoError(err)
	defer pub.Close()

	s.Require().NoError(pub.EnsureTopic(ctx, 1, 1))
	s.Require().NoError(pub.EnsureTopic(ctx, 1, 1), "an existing topic is not an error")
	s.Require().NoError(pub.Ping(ctx))

	sent := []export.Event{event(0, models.AuditCaseCreated), event(1, models.AuditNotesUpdated)}
	s.Require().NoError(pub.Publish(ctx, sent...))

	consumer, err := export.NewConsumer(s.redpanda.Brokers, topic, "casework-test", nil)
	s.Require().NoError(err)
	defer consumer.Close()

	var got []export.Event
	stop := errors.New("done")
	err = consumer.Run(ctx, func(_ context.Context, e export.Event) error {
		got = append(got, e)
		if len(got) == len(sent) {
			return stop
		}
		return nil
	})
	s.Require().ErrorIs(err, stop)
	s.Equal(sent[0].ID, got[0].ID)
	s.Equal(models.CategoryOperations, got[1].Category)
	s.True(sent[1].Timestamp.Equal(got[1].Timestamp))
}
