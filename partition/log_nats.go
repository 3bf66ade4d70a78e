package partition

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"

	"snaketron.dev/engine"
)

// NATSLog is an EventLog backed by a JetStream stream, one per partition,
// so that the partition's log survives an executor restart and can be
// replayed by the replication reader on another node.
type NATSLog struct {
	partition int
	subject   string
	stream    jetstream.Stream
	js        jetstream.JetStream
}

// streamName and subject naming mirror the "one subject per shard" layout:
// every partition gets its own durable stream rather than sharing one
// giant stream split by subject filters, so replay and retention policy
// can be tuned per partition independently.
func streamName(partition int) string { return fmt.Sprintf("SNAKETRON_P%d", partition) }
func subjectName(partition int) string {
	return fmt.Sprintf("snaketron.partition.%d.events", partition)
}

// OpenNATSLog creates (or attaches to) the JetStream stream backing a
// partition's log.
func OpenNATSLog(ctx context.Context, js jetstream.JetStream, partition int) (*NATSLog, error) {
	subject := subjectName(partition)
	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      streamName(partition),
		Subjects:  []string{subject},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("partition: open stream for partition %d: %w", partition, err)
	}
	return &NATSLog{partition: partition, subject: subject, stream: stream, js: js}, nil
}

func (l *NATSLog) Append(ctx context.Context, ev engine.Event) (Entry, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return Entry{}, fmt.Errorf("partition: marshal event: %w", err)
	}
	ack, err := l.js.Publish(ctx, l.subject, payload)
	if err != nil {
		return Entry{}, fmt.Errorf("partition: publish event: %w", err)
	}
	ev.Sequence = ack.Sequence
	return Entry{Partition: l.partition, Sequence: ack.Sequence, GameID: ev.GameID, Event: ev}, nil
}

func (l *NATSLog) Tail(ctx context.Context) (uint64, error) {
	info, err := l.stream.Info(ctx)
	if err != nil {
		return 0, fmt.Errorf("partition: stream info: %w", err)
	}
	return info.State.LastSeq, nil
}

// Subscribe creates an ephemeral ordered consumer starting at fromSequence
// (or, for 0, at the next new message) and streams entries onto the
// returned channel until ctx is canceled.
func (l *NATSLog) Subscribe(ctx context.Context, fromSequence uint64) (<-chan Entry, error) {
	deliverPolicy := jetstream.DeliverNewPolicy
	var startSeq uint64
	if fromSequence > 0 {
		deliverPolicy = jetstream.DeliverByStartSequencePolicy
		startSeq = fromSequence
	}

	consumer, err := l.stream.OrderedConsumer(ctx, jetstream.OrderedConsumerConfig{
		FilterSubjects: []string{l.subject},
		DeliverPolicy:  deliverPolicy,
		OptStartSeq:    startSeq,
		ReplayPolicy:   jetstream.ReplayInstantPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("partition: create ordered consumer: %w", err)
	}

	out := make(chan Entry, 64)
	consumeCtx, err := consumer.Consume(func(msg jetstream.Msg) {
		meta, err := msg.Metadata()
		if err != nil {
			msg.Nak()
			return
		}
		var ev engine.Event
		if err := json.Unmarshal(msg.Data(), &ev); err != nil {
			msg.Term()
			return
		}
		ev.Sequence = meta.Sequence.Stream
		entry := Entry{Partition: l.partition, Sequence: meta.Sequence.Stream, GameID: ev.GameID, Event: ev}
		msg.Ack()
		select {
		case out <- entry:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return nil, fmt.Errorf("partition: consume: %w", err)
	}

	go func() {
		<-ctx.Done()
		consumeCtx.Stop()
		close(out)
	}()
	return out, nil
}
